package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cuartodemilla/fuel-etl/internal/load"
	"github.com/cuartodemilla/fuel-etl/internal/pipeline"
	"github.com/cuartodemilla/fuel-etl/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, clean, enrich and load one snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if topStates, _ := cmd.Flags().GetInt("top-states"); cmd.Flags().Changed("top-states") {
			cfg.Enrich.TopStates = topStates
		}
		if maxRows, _ := cmd.Flags().GetInt("max-rows"); cmd.Flags().Changed("max-rows") {
			cfg.Enrich.MaxRows = maxRows
		}

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		loc, err := newLocator(cfg.Boundaries, pool)
		if err != nil {
			return eris.Wrap(err, "run: boundaries")
		}
		loader, err := load.New(pool)
		if err != nil {
			return err
		}

		var runs pipeline.RunRecorder
		if noLedger, _ := cmd.Flags().GetBool("no-ledger"); !noLedger {
			runs = store.NewRunLog(pool)
		}

		p := pipeline.New(cfg, newFetcher(cfg.Fetch), loc, loader, runs)
		report, err := p.Run(ctx)
		if err != nil {
			zap.L().Error("run failed", zap.String("traceback", eris.ToString(err, true)))
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), report.Format())
		return nil
	},
}

func init() {
	runCmd.Flags().Int("top-states", 0, "keep only stations in the N states with most stations (0 = all)")
	runCmd.Flags().Int("max-rows", 0, "cap the number of stations loaded (0 = no cap)")
	runCmd.Flags().Bool("no-ledger", false, "do not record the run in etl_run_log")
	rootCmd.AddCommand(runCmd)
}
