package resolver

import (
	"fmt"
	"time"
)

// Config holds the resolution engine settings.
type Config struct {
	// MinActionConfidence rejects proposed actions below this confidence.
	MinActionConfidence float64 `json:"min_action_confidence"`

	// EffectiveDate, when set, overrides the journal entry effective date
	// derived from the break's underlying record.
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
}

// DefaultConfig returns the standard resolution settings.
func DefaultConfig() *Config {
	return &Config{
		MinActionConfidence: 0.1,
	}
}

// StrictConfig returns settings that only act on high-confidence proposals.
func StrictConfig() *Config {
	return &Config{
		MinActionConfidence: 0.5,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.MinActionConfidence < 0 || c.MinActionConfidence > 1 {
		return fmt.Errorf("min action confidence must be between 0 and 1, got %f", c.MinActionConfidence)
	}
	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.EffectiveDate != nil {
		date := *c.EffectiveDate
		clone.EffectiveDate = &date
	}
	return &clone
}
