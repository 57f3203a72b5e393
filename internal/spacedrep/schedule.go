package spacedrep

import (
	"fmt"
	"math"
)

// Config holds the review-interval growth curve.
type Config struct {
	// BaseGrowthFactor is the multiplier applied on the first successful
	// repeat (repetition 2).
	BaseGrowthFactor float64 `mapstructure:"base_growth_factor"`
	// MaxGrowthFactor caps the multiplier as repetitions accumulate.
	MaxGrowthFactor float64 `mapstructure:"max_growth_factor"`
	// GrowthStep is added to the multiplier per additional repetition.
	GrowthStep float64 `mapstructure:"growth_step"`
	// MaxIntervalDays keeps items from disappearing for a whole term.
	MaxIntervalDays int `mapstructure:"max_interval_days"`
}

// DefaultConfig returns the SM-2 style defaults: 2.0 growing to 2.5, 60-day cap.
func DefaultConfig() Config {
	return Config{
		BaseGrowthFactor: 2.0,
		MaxGrowthFactor:  2.5,
		GrowthStep:       0.1,
		MaxIntervalDays:  60,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.BaseGrowthFactor < 1 {
		return fmt.Errorf("spacedrep base_growth_factor %.2f must be >= 1", c.BaseGrowthFactor)
	}
	if c.MaxGrowthFactor < c.BaseGrowthFactor {
		return fmt.Errorf("spacedrep max_growth_factor %.2f below base %.2f", c.MaxGrowthFactor, c.BaseGrowthFactor)
	}
	if c.GrowthStep < 0 {
		return fmt.Errorf("spacedrep growth_step %.2f must be >= 0", c.GrowthStep)
	}
	if c.MaxIntervalDays < 1 {
		return fmt.Errorf("spacedrep max_interval_days %d must be >= 1", c.MaxIntervalDays)
	}
	return nil
}

// GrowthFactor returns the interval multiplier for a repetition count.
func (c Config) GrowthFactor(repetition int) float64 {
	steps := repetition - 2
	if steps < 0 {
		steps = 0
	}
	return math.Min(c.MaxGrowthFactor, c.BaseGrowthFactor+c.GrowthStep*float64(steps))
}

// nextInterval grows the interval for a successful repeat. The result never
// shrinks and never exceeds the cap.
func (c Config) nextInterval(current, repetition int) int {
	next := int(math.Round(float64(current) * c.GrowthFactor(repetition)))
	if next < current {
		next = current
	}
	if next > c.MaxIntervalDays {
		next = c.MaxIntervalDays
	}
	if next < 1 {
		next = 1
	}
	return next
}
