package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/opsboard/internal/app"
	applog "github.com/vovakirdan/opsboard/internal/log"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := applog.New(cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(&cfg, logger)
		if err != nil {
			return err
		}

		logger.Info().Dur("tick_interval", cfg.TickInterval).Msg("starting opsboard")
		if err := application.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("engine exited with error")
			return err
		}
		logger.Info().Msg("engine stopped")
		return nil
	},
}

func init() {
	runCmd.Flags().DurationVar(&overrides.TickInterval, "tick", 0, "simulator tick interval")
	runCmd.Flags().DurationVar(&overrides.SummaryInterval, "summary-every", 0, "dashboard summary log interval")
}
