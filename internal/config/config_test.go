package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	want := Default()
	if cfg.TickInterval != want.TickInterval || cfg.TotalCapacity != want.TotalCapacity || cfg.MessageLimit != want.MessageLimit {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !slices.Equal(cfg.Gates, want.Gates) {
		t.Fatalf("gates = %v, want %v", cfg.Gates, want.Gates)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read default config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# opsboard configuration") || !strings.Contains(string(data), "incident_limit: 200") {
		t.Fatalf("unexpected default file:\n%s", data)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := strings.Join([]string{
		"tick_interval: 2s",
		"total_capacity: 1500",
		"gates:",
		"  - North",
		"  - South",
		"message_chance: 0.75",
	}, "\n")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OPSBOARD_TOTAL_CAPACITY", "900")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TickInterval != 2*time.Second {
		t.Fatalf("tick_interval = %s, want 2s", cfg.TickInterval)
	}
	if cfg.TotalCapacity != 900 {
		t.Fatalf("total_capacity = %d, env should win", cfg.TotalCapacity)
	}
	if !slices.Equal(cfg.Gates, []string{"North", "South"}) {
		t.Fatalf("gates = %v, want exactly the file's gates", cfg.Gates)
	}
	if cfg.MessageChance != 0.75 {
		t.Fatalf("message_chance = %v", cfg.MessageChance)
	}
	if cfg.HistoryLimit != Default().HistoryLimit {
		t.Fatalf("history_limit = %d, want default", cfg.HistoryLimit)
	}
}

func TestValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{name: "chance above one", mutate: func(c *Config) { c.MessageChance = 1.5 }, key: "message_chance"},
		{name: "zero history", mutate: func(c *Config) { c.HistoryLimit = 0 }, key: "history_limit"},
		{name: "zero messages", mutate: func(c *Config) { c.MessageLimit = 0 }, key: "message_limit"},
		{name: "zero incidents", mutate: func(c *Config) { c.IncidentLimit = 0 }, key: "incident_limit"},
		{name: "no gates", mutate: func(c *Config) { c.Gates = nil }, key: "gates"},
		{name: "duplicate gates", mutate: func(c *Config) { c.Gates = []string{"A", "A"} }, key: "gates"},
		{name: "blank gate", mutate: func(c *Config) { c.Gates = []string{"A", ""} }, key: "gates[1]"},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "loud" }, key: "log_level"},
		{name: "no tick", mutate: func(c *Config) { c.TickInterval = 0 }, key: "tick_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Fatalf("error %q does not name %s", err, tt.key)
			}
		})
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{LogLevel: "debug", Seed: 42, Gates: []string{"Only"}})

	if cfg.LogLevel != "debug" || cfg.Seed != 42 || len(cfg.Gates) != 1 {
		t.Fatalf("override not applied: %+v", cfg)
	}
	if cfg.TotalCapacity != Default().TotalCapacity {
		t.Fatalf("zero values must not override")
	}
}
