// Package config loads the engine tunables. Values come from built-in
// defaults, then an optional config file, then ADAPTIVE_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/openta/adaptive/internal/intervention"
	"github.com/openta/adaptive/internal/mastery"
	"github.com/openta/adaptive/internal/notify"
	"github.com/openta/adaptive/internal/quiz"
	"github.com/openta/adaptive/internal/runway"
	"github.com/openta/adaptive/internal/spacedrep"
)

// EnvPrefix prefixes every environment override, e.g.
// ADAPTIVE_QUIZ_WEAK_THRESHOLD=0.55.
const EnvPrefix = "ADAPTIVE"

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// StoreConfig selects the repository backend.
type StoreConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `mapstructure:"driver"`
	// DSN is the SQLite path or DSN. Empty means store.DefaultDBPath().
	DSN string `mapstructure:"dsn"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Mode  string `mapstructure:"mode"`  // "dev" or "prod"
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// Config holds every tunable the engine consumes.
type Config struct {
	Mastery      mastery.Config      `mapstructure:"mastery"`
	SpacedRep    spacedrep.Config    `mapstructure:"spacedrep"`
	Quiz         quiz.Config         `mapstructure:"quiz"`
	Runway       runway.Config       `mapstructure:"runway"`
	Intervention intervention.Config `mapstructure:"intervention"`
	Notify       notify.Config       `mapstructure:"notify"`
	Store        StoreConfig         `mapstructure:"store"`
	Log          LogConfig           `mapstructure:"log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mastery:      mastery.DefaultConfig(),
		SpacedRep:    spacedrep.DefaultConfig(),
		Quiz:         quiz.DefaultConfig(),
		Runway:       runway.DefaultConfig(),
		Intervention: intervention.DefaultConfig(),
		Notify:       notify.DefaultConfig(),
		Store:        StoreConfig{Driver: DriverSQLite},
		Log:          LogConfig{Mode: "prod", Level: "info"},
	}
}

// Load reads the configuration. path may be empty, in which case only
// defaults and environment variables apply.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("mastery.learning_rate", d.Mastery.LearningRate)
	v.SetDefault("mastery.strong_threshold", d.Mastery.StrongThreshold)

	v.SetDefault("spacedrep.base_growth_factor", d.SpacedRep.BaseGrowthFactor)
	v.SetDefault("spacedrep.max_growth_factor", d.SpacedRep.MaxGrowthFactor)
	v.SetDefault("spacedrep.growth_step", d.SpacedRep.GrowthStep)
	v.SetDefault("spacedrep.max_interval_days", d.SpacedRep.MaxIntervalDays)

	v.SetDefault("quiz.weak_threshold", d.Quiz.WeakThreshold)
	v.SetDefault("quiz.min_confidence", d.Quiz.MinConfidence)
	v.SetDefault("quiz.default_count", d.Quiz.DefaultCount)

	v.SetDefault("runway.horizon_days", d.Runway.HorizonDays)
	v.SetDefault("runway.max_topic_share", d.Runway.MaxTopicShare)
	v.SetDefault("runway.min_block_hours", d.Runway.MinBlockHours)
	v.SetDefault("runway.peak_days", d.Runway.PeakDays)
	v.SetDefault("runway.taper_days", d.Runway.TaperDays)
	v.SetDefault("runway.priority_topics", d.Runway.PriorityTopics)

	v.SetDefault("intervention.window", d.Intervention.Window)
	v.SetDefault("intervention.repeat_window", d.Intervention.RepeatWindow)
	v.SetDefault("intervention.repeat_threshold", d.Intervention.RepeatThreshold)

	v.SetDefault("notify.refresher_per_day", d.Notify.RefresherPerDay)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)

	v.SetDefault("log.mode", d.Log.Mode)
	v.SetDefault("log.level", d.Log.Level)
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	errs := []error{
		c.Mastery.Validate(),
		c.SpacedRep.Validate(),
		c.Quiz.Validate(),
		c.Runway.Validate(),
		c.Intervention.Validate(),
		c.Notify.Validate(),
	}
	switch c.Store.Driver {
	case DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver: %q", c.Store.Driver))
	}
	switch c.Log.Mode {
	case "dev", "prod":
	default:
		errs = append(errs, fmt.Errorf("unknown log mode: %q", c.Log.Mode))
	}
	return errors.Join(errs...)
}

// Thresholds returns the weak/strong classification the summaries use.
func (c Config) Thresholds() mastery.Thresholds {
	return mastery.Thresholds{
		Weak:          c.Quiz.WeakThreshold,
		MinConfidence: c.Quiz.MinConfidence,
		Strong:        c.Mastery.StrongThreshold,
	}
}
