// Package classifier detects financial discrepancies on matched and
// unmatched records, emitting typed break records.
//
// Five detectors run over every match in a fixed order: security
// identifiers, fixed income coupon amounts, market prices, trade dates and
// FX rates. Detectors are independent, so one match may yield several
// breaks; the fixed order keeps multi-break output reproducible. Each
// unmatched record yields exactly one break. Every division guards against
// a zero denominator by skipping the rule instead of raising an error.
package classifier

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds the tolerance and severity parameters for break detection.
//
// Use the provided factory functions for common scenarios:
//   - DefaultConfig(): the standard control-process tolerances
//   - StrictConfig(): tighter tolerances for critical books
//   - RelaxedConfig(): looser tolerances for noisy counterparty feeds
type Config struct {
	// AmountTolerance is the absolute amount difference above which the
	// coupon detector fires.
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`

	// PriceTolerancePct is the fraction of the larger price allowed
	// before the market price detector fires.
	PriceTolerancePct decimal.Decimal `json:"price_tolerance_pct"`

	// FXTolerancePct is the fraction of the larger rate allowed before
	// the FX rate detector fires.
	FXTolerancePct decimal.Decimal `json:"fx_tolerance_pct"`

	// DateToleranceDays is the whole-day difference allowed before the
	// date detector fires.
	DateToleranceDays int `json:"date_tolerance_days"`

	// Severity ladder thresholds, in percent.
	CouponHighPct  float64 `json:"coupon_high_pct"`
	CouponMedPct   float64 `json:"coupon_med_pct"`
	PriceHighPct   float64 `json:"price_high_pct"`
	PriceMedPct    float64 `json:"price_med_pct"`
	DateHighDays   int     `json:"date_high_days"`
	DateMedDays    int     `json:"date_med_days"`

	// ZScoreThreshold flags a feed-A price as anomalous when a price
	// history snapshot is available.
	ZScoreThreshold float64 `json:"z_score_threshold"`
}

// DefaultConfig returns the standard detection tolerances
func DefaultConfig() *Config {
	return &Config{
		AmountTolerance:   decimal.NewFromFloat(0.01),
		PriceTolerancePct: decimal.NewFromFloat(0.01),
		FXTolerancePct:    decimal.NewFromFloat(0.005),
		DateToleranceDays: 1,
		CouponHighPct:     20.0,
		CouponMedPct:      10.0,
		PriceHighPct:      5.0,
		PriceMedPct:       2.0,
		DateHighDays:      7,
		DateMedDays:       3,
		ZScoreThreshold:   3.0,
	}
}

// StrictConfig returns tighter tolerances for critical reconciliation
func StrictConfig() *Config {
	config := DefaultConfig()
	config.AmountTolerance = decimal.NewFromFloat(0.001)
	config.PriceTolerancePct = decimal.NewFromFloat(0.005)
	config.FXTolerancePct = decimal.NewFromFloat(0.001)
	config.DateToleranceDays = 0
	return config
}

// RelaxedConfig returns looser tolerances for noisy feeds
func RelaxedConfig() *Config {
	config := DefaultConfig()
	config.AmountTolerance = decimal.NewFromFloat(0.05)
	config.PriceTolerancePct = decimal.NewFromFloat(0.02)
	config.FXTolerancePct = decimal.NewFromFloat(0.01)
	config.DateToleranceDays = 3
	return config
}

// Validate checks if the classifier configuration is valid
func (c *Config) Validate() error {
	if c.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative: %s", c.AmountTolerance.String())
	}

	if c.PriceTolerancePct.IsNegative() {
		return fmt.Errorf("price tolerance percent cannot be negative: %s", c.PriceTolerancePct.String())
	}

	if c.FXTolerancePct.IsNegative() {
		return fmt.Errorf("fx tolerance percent cannot be negative: %s", c.FXTolerancePct.String())
	}

	if c.DateToleranceDays < 0 {
		return fmt.Errorf("date tolerance days cannot be negative: %d", c.DateToleranceDays)
	}

	if c.CouponMedPct > c.CouponHighPct {
		return fmt.Errorf("coupon medium threshold %f exceeds high threshold %f", c.CouponMedPct, c.CouponHighPct)
	}

	if c.PriceMedPct > c.PriceHighPct {
		return fmt.Errorf("price medium threshold %f exceeds high threshold %f", c.PriceMedPct, c.PriceHighPct)
	}

	if c.DateMedDays > c.DateHighDays {
		return fmt.Errorf("date medium threshold %d exceeds high threshold %d", c.DateMedDays, c.DateHighDays)
	}

	if c.ZScoreThreshold < 0 {
		return fmt.Errorf("z-score threshold cannot be negative: %f", c.ZScoreThreshold)
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
