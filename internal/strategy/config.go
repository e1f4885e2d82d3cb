package strategy

import "fmt"

// Config holds the VCP thresholds. It is passed by value into NewEvaluator and
// never mutated afterwards, so evaluators with different settings can run side by side.
type Config struct {
	SMAPeriod        int     // trend moving average length
	SlopeLag         int     // sessions between the two SMA points compared for slope
	LookbackDays     int     // tightness window before any gap reset
	GapThreshold     float64 // overnight gap that resets the window (strictly greater)
	DefaultTightness float64 // allowed close range when no gap reset happened
	MinTightSessions int     // minimum sessions in the effective window
	ShortVolumeDays  int
	LongVolumeDays   int
	MinAvgVolume     float64 // liquidity floor on the short average volume
}

// DefaultConfig returns the stock VCP settings.
func DefaultConfig() Config {
	return Config{
		SMAPeriod:        60,
		SlopeLag:         5,
		LookbackDays:     10,
		GapThreshold:     0.04,
		DefaultTightness: 0.035,
		MinTightSessions: 3,
		ShortVolumeDays:  20,
		LongVolumeDays:   60,
		MinAvgVolume:     500000,
	}
}

// MinSessions is the history needed before the trend criterion can pass.
func (c Config) MinSessions() int {
	return c.SMAPeriod + c.SlopeLag
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	switch {
	case c.SMAPeriod <= 0:
		return fmt.Errorf("sma_period must be positive")
	case c.SlopeLag <= 0:
		return fmt.Errorf("slope_lag must be positive")
	case c.LookbackDays < 2:
		return fmt.Errorf("lookback_days must be at least 2")
	case c.GapThreshold <= 0:
		return fmt.Errorf("gap_threshold must be positive")
	case c.DefaultTightness <= 0:
		return fmt.Errorf("default_tightness must be positive")
	case c.MinTightSessions <= 0 || c.MinTightSessions > c.LookbackDays:
		return fmt.Errorf("min_tight_sessions must be in 1..lookback_days")
	case c.ShortVolumeDays <= 0 || c.LongVolumeDays <= c.ShortVolumeDays:
		return fmt.Errorf("volume windows must satisfy 0 < short < long")
	case c.MinAvgVolume < 0:
		return fmt.Errorf("min_avg_volume must not be negative")
	}
	return nil
}
