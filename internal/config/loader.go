package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envConfigDefaultPath = "OPSBOARD_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range defaults(cfg) {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("OPSBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	// Decode into a zero value: every key already carries its default, and
	// decoding over Default() would merge lists element by element.
	var loaded Config
	if err := v.Unmarshal(&loaded); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return loaded, configPath, nil
}

// defaults lists every key so env vars resolve even when the file omits it.
func defaults(cfg Config) map[string]any {
	return map[string]any{
		"log_level":        cfg.LogLevel,
		"tick_interval":    cfg.TickInterval,
		"summary_interval": cfg.SummaryInterval,
		"feed_interval":    cfg.FeedInterval,
		"total_capacity":   cfg.TotalCapacity,
		"gates":            cfg.Gates,
		"attendance_step":  cfg.AttendanceStep,
		"message_chance":   cfg.MessageChance,
		"incident_chance":  cfg.IncidentChance,
		"seed":             cfg.Seed,
		"history_limit":    cfg.HistoryLimit,
		"message_limit":    cfg.MessageLimit,
		"incident_limit":   cfg.IncidentLimit,
		"backend_latency":  cfg.BackendLatency,
		"hydrate_timeout":  cfg.HydrateTimeout,
	}
}

// resolveConfigPath picks the explicit path, then a file under
// $OPSBOARD_CONFIG_DEFAULT_PATH, then config.yaml in the working directory.
func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}
	dir := os.Getenv(envConfigDefaultPath)
	if dir == "" || os.MkdirAll(dir, 0o755) != nil {
		dir = "."
		if cwd, err := os.Getwd(); err == nil {
			dir = cwd
		}
	}
	return filepath.Join(dir, defaultConfigName)
}

// writeDefaultConfig stores cfg as commented yaml at path.
func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString("# opsboard configuration; every key can be overridden with OPSBOARD_<KEY>.\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}
