package commands

import (
	"context"
	"os/signal"
	"syscall"

	"retailcast/internal/config"
	"retailcast/internal/logging"
	"retailcast/internal/pipeline"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose      bool
	forceRetrain bool
	cfg          *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "retailcast",
	Short: "retailcast routes retail subcategories to forecast models and publishes rolling forecasts",
	Long: `A batch pipeline that builds daily demand per product subcategory, routes each one to a
seasonal, decomposition or cold-start model by sparsity, and publishes sales and returns
forecasts together with stocking and staffing reports.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		// Load configuration
		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("data", cfg.DataPath).
			Str("logs", cfg.LogDir).
			Int("horizon", cfg.HorizonDays).
			Msg("retailcast starting")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBoth(cmd.Context())
	},
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&forceRetrain, "force-retrain", false, "retrain even when models already exist")
}

// withPipeline opens the configured loader, runs fn and releases the loader.
func withPipeline(ctx context.Context, withReturns bool, fn func(*pipeline.Pipeline) error) error {
	loader, closeFn, err := pipeline.OpenLoader(ctx, cfg, withReturns)
	if err != nil {
		return err
	}
	defer closeFn()

	p := pipeline.New(cfg, loader)
	p.Force = forceRetrain
	return fn(p)
}

func runBoth(ctx context.Context) error {
	return withPipeline(ctx, true, func(p *pipeline.Pipeline) error {
		if _, err := p.RunSales(ctx); err != nil {
			return err
		}
		_, err := p.RunReturns(ctx)
		return err
	})
}
