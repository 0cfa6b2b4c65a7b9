package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang-trade-reconciliation-engine/internal/classifier"
	"golang-trade-reconciliation-engine/internal/classifier/fincalc"
	"golang-trade-reconciliation-engine/internal/matcher"
	"golang-trade-reconciliation-engine/internal/models"
	"golang-trade-reconciliation-engine/internal/reporter"
	"golang-trade-reconciliation-engine/internal/resolver"

	"github.com/shopspring/decimal"
)

// CreateMatcherConfig creates a matching configuration with the specified
// CLI overrides applied on top of the defaults.
func CreateMatcherConfig(amountTolerance, minConfidence float64) *matcher.Config {
	config := matcher.DefaultConfig()

	config.AmountTolerance = decimal.NewFromFloat(amountTolerance)
	config.MinConfidenceScore = minConfidence

	return config
}

// CreateClassifierConfig creates a break detection configuration with the
// specified tolerances.
func CreateClassifierConfig(dateToleranceDays int, priceTolerancePct, fxTolerancePct float64) *classifier.Config {
	config := classifier.DefaultConfig()

	config.DateToleranceDays = dateToleranceDays
	config.PriceTolerancePct = decimal.NewFromFloat(priceTolerancePct)
	config.FXTolerancePct = decimal.NewFromFloat(fxTolerancePct)

	return config
}

// CreateResolverConfig creates a resolution configuration. An empty
// effectiveDate leaves the per-break settlement date fallback in place.
func CreateResolverConfig(minActionConfidence float64, effectiveDate string) (*resolver.Config, error) {
	config := resolver.DefaultConfig()
	config.MinActionConfidence = minActionConfidence

	if effectiveDate != "" {
		t, err := time.Parse("2006-01-02", effectiveDate)
		if err != nil {
			return nil, fmt.Errorf("invalid effective date %q: %w", effectiveDate, err)
		}
		t = models.DateOnly(t)
		config.EffectiveDate = &t
	}

	return config, nil
}

// CreateReportConfig creates a report configuration for the specified
// output format.
func CreateReportConfig(format string, includeMatches bool) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
		config.IncludeMatches = includeMatches
	case "json":
		config.Format = reporter.FormatJSON
		config.IncludeMatches = includeMatches
	case "csv":
		config.Format = reporter.FormatCSV
		// CSV carries break and action rows only
		config.IncludeMatches = false
		config.IncludeUnmatched = false
		config.IncludePatterns = false
		config.IncludeErrors = false
	}

	return config
}

// MarketData holds the optional classifier inputs read from a market data
// file: per-security price histories and a table of reference FX rates.
type MarketData struct {
	PriceStats     map[string]fincalc.SeriesStats
	ReferenceRates fincalc.RateTable
}

type marketDataFile struct {
	PriceHistory   map[string][]float64 `json:"price_history"`
	ReferenceRates []referenceRateJSON  `json:"reference_rates"`
}

type referenceRateJSON struct {
	Base  string          `json:"base"`
	Quote string          `json:"quote"`
	Rate  decimal.Decimal `json:"rate"`
}

// LoadMarketData reads price histories and reference rates from a JSON
// file. Empty histories are rejected rather than silently skipped.
func LoadMarketData(path string) (*MarketData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read market data file: %w", err)
	}

	var file marketDataFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse market data file %s: %w", path, err)
	}

	md := &MarketData{}

	if len(file.PriceHistory) > 0 {
		md.PriceStats = make(map[string]fincalc.SeriesStats, len(file.PriceHistory))
		for securityID, prices := range file.PriceHistory {
			stats, err := fincalc.NewSeriesStats(prices)
			if err != nil {
				return nil, fmt.Errorf("invalid price history for %s: %w", securityID, err)
			}
			md.PriceStats[securityID] = stats
		}
	}

	if len(file.ReferenceRates) > 0 {
		md.ReferenceRates = make(fincalc.RateTable, len(file.ReferenceRates))
		for _, r := range file.ReferenceRates {
			if r.Base == "" || r.Quote == "" {
				return nil, fmt.Errorf("reference rate entry missing base or quote currency")
			}
			md.ReferenceRates[fincalc.RatePair{Base: r.Base, Quote: r.Quote}] = r.Rate
		}
	}

	return md, nil
}

// LoadHistoricalSnapshot reads resolution history entries from a JSON file
// containing an array of historical stats records.
func LoadHistoricalSnapshot(path string) (models.HistoricalSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var entries []*models.HistoricalStats
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse history file %s: %w", path, err)
	}

	snapshot := make(models.HistoricalSnapshot, len(entries))
	for i, entry := range entries {
		if entry == nil {
			return nil, fmt.Errorf("history entry %d is null", i)
		}
		if !entry.BreakType.IsValid() {
			return nil, fmt.Errorf("history entry %d has unknown break type %q", i, entry.BreakType)
		}
		snapshot.Add(entry)
	}

	return snapshot, nil
}

// ValidateConfig validates that all engine configurations are consistent.
func ValidateConfig(matcherConfig *matcher.Config, classifierConfig *classifier.Config, resolverConfig *resolver.Config) error {
	if err := matcherConfig.Validate(); err != nil {
		return fmt.Errorf("invalid matcher config: %w", err)
	}

	if err := classifierConfig.Validate(); err != nil {
		return fmt.Errorf("invalid classifier config: %w", err)
	}

	if err := resolverConfig.Validate(); err != nil {
		return fmt.Errorf("invalid resolver config: %w", err)
	}

	return nil
}
