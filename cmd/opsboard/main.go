package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/opsboard/internal/config"
	applog "github.com/vovakirdan/opsboard/internal/log"
)

var (
	version = "dev"

	configPath string
	overrides  config.Config
)

var rootCmd = &cobra.Command{
	Use:   "opsboard",
	Short: "Game-day operations state engine",
	Long: `opsboard keeps the live operational state of a venue (attendance,
communication, security, parking, concessions, medical), derives dashboard
metrics from it and notifies observers of every change.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file path (default is ./config.yaml)")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.IntVar(&overrides.TotalCapacity, "capacity", 0, "venue capacity")
	flags.StringSliceVar(&overrides.Gates, "gates", nil, "entry gates")
	flags.IntVar(&overrides.AttendanceStep, "attendance-step", 0, "attendance added per tick")
	flags.Float64Var(&overrides.MessageChance, "message-chance", 0, "probability of a message per tick")
	flags.Float64Var(&overrides.IncidentChance, "incident-chance", 0, "probability of an incident update per tick")
	flags.Uint64Var(&overrides.Seed, "seed", 0, "random seed")

	rootCmd.AddCommand(runCmd, summaryCmd)
}

// loadConfig resolves defaults, file, env and flags, in that order.
func loadConfig() (config.Config, error) {
	bootstrap := applog.New(overrides.LogLevel)
	cfg, path, err := config.Load(bootstrap, configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.UpdateFrom(overrides)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
