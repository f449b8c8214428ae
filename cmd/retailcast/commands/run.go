package commands

import (
	"fmt"

	"retailcast/internal/pipeline"

	"github.com/spf13/cobra"
)

var holdoutDays int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sales pipeline, then the returns pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBoth(cmd.Context())
	},
}

var salesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Train, forecast and report on sales",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), false, func(p *pipeline.Pipeline) error {
			_, err := p.RunSales(cmd.Context())
			return err
		})
	},
}

var returnsCmd = &cobra.Command{
	Use:   "returns",
	Short: "Train and forecast returns from the published sales forecast",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), true, func(p *pipeline.Pipeline) error {
			_, err := p.RunReturns(cmd.Context())
			return err
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rebuild the stocking report and staffing heatmap from the published sales forecast",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd.Context(), false, func(p *pipeline.Pipeline) error {
			_, err := p.RunReports(cmd.Context())
			return err
		})
	},
}

var backtestCmd = &cobra.Command{
	Use:       "backtest [sales|returns]",
	Short:     "Score the routed models on a trailing holdout",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{pipeline.Sales, pipeline.Returns},
	RunE: func(cmd *cobra.Command, args []string) error {
		subsystem := args[0]
		if subsystem != pipeline.Sales && subsystem != pipeline.Returns {
			return fmt.Errorf("unknown subsystem %q, want sales or returns", subsystem)
		}
		return withPipeline(cmd.Context(), subsystem == pipeline.Returns, func(p *pipeline.Pipeline) error {
			_, err := p.Backtest(cmd.Context(), subsystem, holdoutDays)
			return err
		})
	},
}

func init() {
	backtestCmd.Flags().IntVar(&holdoutDays, "holdout", 30, "trailing days withheld from fitting")
	rootCmd.AddCommand(runCmd, salesCmd, returnsCmd, reportCmd, backtestCmd)
}
