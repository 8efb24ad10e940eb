package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuartodemilla/fuel-etl/internal/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download both feeds to the data directory without loading",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p := pipeline.New(cfg, newFetcher(cfg.Fetch), nil, nil, nil)
		sizes, err := p.Fetch(cmd.Context())
		if err != nil {
			return err
		}
		for _, src := range pipeline.Sources(cfg.Sources) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d bytes\t%s\n", src.Name, sizes[src.Name], src.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
