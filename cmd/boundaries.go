package main

import (
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/cuartodemilla/fuel-etl/internal/fetcher"
	"github.com/cuartodemilla/fuel-etl/internal/geo"
)

var boundariesCmd = &cobra.Command{
	Use:   "boundaries",
	Short: "Manage administrative boundary data",
}

var boundariesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Load the boundary shapefile into PostGIS",
	Long: "Reads the configured shapefile (or downloads and extracts a zipped one with --url) " +
		"and replaces the contents of the boundaries table.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		shpPath := cfg.Boundaries.Path
		if url, _ := cmd.Flags().GetString("url"); url != "" {
			zipPath := filepath.Join(cfg.Sources.DataDir, "boundaries.zip")
			if _, err := fetcher.Replace(ctx, newFetcher(cfg.Fetch), fetcher.Source{
				Name: "boundaries",
				URL:  url,
				Path: zipPath,
			}); err != nil {
				return err
			}
			p, err := geo.ExtractShapefile(zipPath, filepath.Join(cfg.Sources.DataDir, "boundaries"))
			if err != nil {
				return err
			}
			shpPath = p
		}

		layer, err := geo.LoadShapefile(shpPath, cfg.Boundaries.StateField, cfg.Boundaries.CityField)
		if err != nil {
			return err
		}

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := geo.ImportBoundaries(ctx, pool, layer, cfg.Boundaries.Table)
		if err != nil {
			return eris.Wrap(err, "boundaries import")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d boundaries into %s\n", n, cfg.Boundaries.Table)
		return nil
	},
}

func init() {
	boundariesImportCmd.Flags().String("url", "", "download a zipped shapefile from this URL first")
	boundariesCmd.AddCommand(boundariesImportCmd)
	rootCmd.AddCommand(boundariesCmd)
}
