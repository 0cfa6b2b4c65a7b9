// Package matcher pairs transaction records from two independently sourced
// feeds that share no reliable common key.
//
// Matching runs in two passes:
//  1. A deterministic pass consumes pairs satisfying exact-match rules
//     (equal external ID, or amount within tolerance with corroborating
//     currency plus security or trade date agreement).
//  2. A probabilistic pass scores every remaining cross-feed pair with a
//     weighted similarity function and consumes the best pair per record
//     above a confidence threshold.
//
// Both passes are greedy and first-fit in feed order, which keeps runs
// deterministic and auditable for identical input. Every input record ends
// up in exactly one of a match, the feed-A residual or the feed-B residual.
//
// Example usage:
//
//	engine := matcher.NewEngine(matcher.DefaultConfig())
//	result, err := engine.Match(feedA, feedB)
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ScoreWeights defines the relative importance of each similarity signal.
// Only signals present on both records contribute; the score is
// renormalized by the sum of the applicable weights.
type ScoreWeights struct {
	AmountWeight     float64 `json:"amount_weight"`
	CurrencyWeight   float64 `json:"currency_weight"`
	SecurityIDWeight float64 `json:"security_id_weight"`
	TradeDateWeight  float64 `json:"trade_date_weight"`
}

// Validate checks if the score weights are valid
func (w *ScoreWeights) Validate() error {
	for name, weight := range map[string]float64{
		"amount":      w.AmountWeight,
		"currency":    w.CurrencyWeight,
		"security_id": w.SecurityIDWeight,
		"trade_date":  w.TradeDateWeight,
	} {
		if weight < 0.0 || weight > 1.0 {
			return fmt.Errorf("%s weight must be between 0.0 and 1.0: %f", name, weight)
		}
	}

	total := w.AmountWeight + w.CurrencyWeight + w.SecurityIDWeight + w.TradeDateWeight
	if total <= 0.0 {
		return fmt.Errorf("at least one score weight must be positive")
	}

	// Weights should sum to approximately 1.0 (allow some tolerance)
	if total < 0.9 || total > 1.1 {
		return fmt.Errorf("weights should sum to approximately 1.0, got %f", total)
	}

	return nil
}

// Config holds configuration parameters for both matching passes.
//
// Use the provided factory functions for common scenarios:
//   - DefaultConfig(): the standard production tolerances
//   - StrictConfig(): exact amounts only, high fuzzy threshold
//   - RelaxedConfig(): wider tolerances for exploratory matching
type Config struct {
	// AmountTolerance is the maximum absolute amount difference accepted
	// by the deterministic amount rule.
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`

	// MinConfidenceScore is the similarity threshold below which the
	// probabilistic pass leaves a pair unmatched.
	MinConfidenceScore float64 `json:"min_confidence_score"`

	// MaxDateDistanceDays is the span over which trade-date proximity
	// decays linearly to zero in the similarity score.
	MaxDateDistanceDays int `json:"max_date_distance_days"`

	// Weights are the similarity signal weights.
	Weights ScoreWeights `json:"weights"`
}

// DefaultConfig returns a configuration with the standard tolerances
func DefaultConfig() *Config {
	return &Config{
		AmountTolerance:     decimal.NewFromFloat(0.01),
		MinConfidenceScore:  0.7,
		MaxDateDistanceDays: 30,
		Weights: ScoreWeights{
			AmountWeight:     0.4,
			CurrencyWeight:   0.2,
			SecurityIDWeight: 0.2,
			TradeDateWeight:  0.2,
		},
	}
}

// StrictConfig returns a configuration for strict matching
func StrictConfig() *Config {
	return &Config{
		AmountTolerance:     decimal.Zero,
		MinConfidenceScore:  0.9,
		MaxDateDistanceDays: 7,
		Weights: ScoreWeights{
			AmountWeight:     0.5,
			CurrencyWeight:   0.2,
			SecurityIDWeight: 0.2,
			TradeDateWeight:  0.1,
		},
	}
}

// RelaxedConfig returns a configuration for relaxed, exploratory matching
func RelaxedConfig() *Config {
	return &Config{
		AmountTolerance:     decimal.NewFromFloat(0.05),
		MinConfidenceScore:  0.5,
		MaxDateDistanceDays: 60,
		Weights: ScoreWeights{
			AmountWeight:     0.4,
			CurrencyWeight:   0.1,
			SecurityIDWeight: 0.2,
			TradeDateWeight:  0.3,
		},
	}
}

// Validate checks if the matching configuration is valid
func (c *Config) Validate() error {
	if c.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative: %s", c.AmountTolerance.String())
	}

	if c.MinConfidenceScore < 0.0 || c.MinConfidenceScore > 1.0 {
		return fmt.Errorf("minimum confidence score must be between 0.0 and 1.0: %f", c.MinConfidenceScore)
	}

	if c.MaxDateDistanceDays <= 0 {
		return fmt.Errorf("max date distance days must be positive: %d", c.MaxDateDistanceDays)
	}

	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	return &clone
}

// String returns a human-readable description of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{AmountTolerance: %s, MinConfidence: %.2f, MaxDateDistance: %d days}",
		c.AmountTolerance.String(), c.MinConfidenceScore, c.MaxDateDistanceDays)
}
