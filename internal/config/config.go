package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/opsboard/internal/utils"
)

// Config holds engine configuration values.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error"`

	TickInterval    time.Duration `mapstructure:"tick_interval" yaml:"tick_interval" validate:"gt=0"`
	SummaryInterval time.Duration `mapstructure:"summary_interval" yaml:"summary_interval" validate:"gte=0"`
	FeedInterval    time.Duration `mapstructure:"feed_interval" yaml:"feed_interval" validate:"gt=0"`

	TotalCapacity int      `mapstructure:"total_capacity" yaml:"total_capacity" validate:"gt=0"`
	Gates         []string `mapstructure:"gates" yaml:"gates" validate:"min=1,unique,dive,required"`

	AttendanceStep int     `mapstructure:"attendance_step" yaml:"attendance_step" validate:"gte=0"`
	MessageChance  float64 `mapstructure:"message_chance" yaml:"message_chance" validate:"gte=0,lte=1"`
	IncidentChance float64 `mapstructure:"incident_chance" yaml:"incident_chance" validate:"gte=0,lte=1"`
	Seed           uint64  `mapstructure:"seed" yaml:"seed"`

	HistoryLimit  int `mapstructure:"history_limit" yaml:"history_limit" validate:"gt=0"`
	MessageLimit  int `mapstructure:"message_limit" yaml:"message_limit" validate:"gt=0"`
	IncidentLimit int `mapstructure:"incident_limit" yaml:"incident_limit" validate:"gt=0"`

	BackendLatency time.Duration `mapstructure:"backend_latency" yaml:"backend_latency" validate:"gte=0"`
	HydrateTimeout time.Duration `mapstructure:"hydrate_timeout" yaml:"hydrate_timeout" validate:"gt=0"`
}

// Default returns configuration for the demo venue.
func Default() Config {
	return Config{
		LogLevel:        "info",
		TickInterval:    15 * time.Second,
		SummaryInterval: time.Minute,
		FeedInterval:    time.Second,
		TotalCapacity:   20000,
		Gates:           []string{"Gate A", "Gate B", "Gate C", "Gate D"},
		AttendanceStep:  120,
		MessageChance:   0.3,
		IncidentChance:  0.1,
		Seed:            0,
		HistoryLimit:    720,
		MessageLimit:    500,
		IncidentLimit:   200,
		BackendLatency:  300 * time.Millisecond,
		HydrateTimeout:  5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.TickInterval != 0 {
		c.TickInterval = other.TickInterval
	}
	if other.SummaryInterval != 0 {
		c.SummaryInterval = other.SummaryInterval
	}
	if other.FeedInterval != 0 {
		c.FeedInterval = other.FeedInterval
	}
	if other.TotalCapacity != 0 {
		c.TotalCapacity = other.TotalCapacity
	}
	if len(other.Gates) > 0 {
		c.Gates = other.Gates
	}
	if other.AttendanceStep != 0 {
		c.AttendanceStep = other.AttendanceStep
	}
	if other.MessageChance != 0 {
		c.MessageChance = other.MessageChance
	}
	if other.IncidentChance != 0 {
		c.IncidentChance = other.IncidentChance
	}
	if other.Seed != 0 {
		c.Seed = other.Seed
	}
	if other.HistoryLimit != 0 {
		c.HistoryLimit = other.HistoryLimit
	}
	if other.MessageLimit != 0 {
		c.MessageLimit = other.MessageLimit
	}
	if other.IncidentLimit != 0 {
		c.IncidentLimit = other.IncidentLimit
	}
	if other.BackendLatency != 0 {
		c.BackendLatency = other.BackendLatency
	}
	if other.HydrateTimeout != 0 {
		c.HydrateTimeout = other.HydrateTimeout
	}
}

var validate = validator.New()

// Validate checks every field and reports the first violation by its
// config key.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate config: %w", err)
	}
	fe := fieldErrs[0]
	return fmt.Errorf("invalid config %s: failed %q (value %v)", keyOf(fe.StructNamespace()), fe.Tag(), fe.Value())
}

// keyOf maps a struct namespace like Config.Gates[0] to the yaml key.
func keyOf(namespace string) string {
	field := namespace[strings.Index(namespace, ".")+1:]
	suffix := ""
	if i := strings.Index(field, "["); i >= 0 {
		field, suffix = field[:i], field[i:]
	}
	return utils.SnakeCase(field) + suffix
}
