// Package analyzer aggregates classified breaks into per-type patterns and
// adjusts action confidences using pre-fetched historical resolution
// statistics. Everything here is pure; the static cause and strategy tables
// never change at runtime.
package analyzer

import (
	"golang-trade-reconciliation-engine/internal/models"
)

// Pattern summarizes all breaks of one type within a run.
type Pattern struct {
	BreakType            models.BreakType `json:"break_type"`
	Count                int              `json:"count"`
	CommonCauses         []string         `json:"common_causes"`
	ResolutionStrategies []string         `json:"resolution_strategies"`
}

// typeProfile is the static metadata attached to every break type.
type typeProfile struct {
	causes     []string
	strategies []string
}

var profiles = map[models.BreakType]typeProfile{
	models.BreakSecurityID: {
		causes: []string{
			"identifier mapping differences between systems",
			"stale security master data",
			"corporate action not applied on one side",
		},
		strategies: []string{
			"verify against the security master",
			"request an identifier cross-reference from the counterparty",
		},
	},
	models.BreakCoupon: {
		causes: []string{
			"day-count convention mismatch",
			"accrual period boundary differences",
			"rounding differences in coupon calculation",
		},
		strategies: []string{
			"recompute the coupon under both day-count bases",
			"confirm the accrual schedule with the paying agent",
		},
	},
	models.BreakMarketPrice: {
		causes: []string{
			"different pricing sources or snapshot times",
			"stale price on one side",
			"clean versus dirty price confusion",
		},
		strategies: []string{
			"verify against an independent pricing source",
			"align the pricing snapshot time between feeds",
		},
	},
	models.BreakDate: {
		causes: []string{
			"settlement convention differences",
			"holiday calendar mismatch",
			"manual booking delay",
		},
		strategies: []string{
			"confirm the contractual settlement date",
			"check both holiday calendars for the trade currency",
		},
	},
	models.BreakFXRate: {
		causes: []string{
			"different rate fixing sources",
			"rate captured at a different fixing time",
			"inverted rate quotation",
		},
		strategies: []string{
			"verify against the agreed fixing source",
			"recompute the cross rate from reference pairs",
		},
	},
	models.BreakUnmatched: {
		causes: []string{
			"trade booked on one side only",
			"feed delivery gap or truncation",
			"identifier drift preventing a match",
		},
		strategies: []string{
			"confirm the trade exists with the counterparty",
			"rerun matching with relaxed thresholds",
		},
	},
}

// Analyze groups breaks by type and attaches the static cause and strategy
// metadata for each type that occurs. Types with no breaks are omitted.
func Analyze(breaks []*models.BreakRecord) map[models.BreakType]Pattern {
	patterns := make(map[models.BreakType]Pattern)

	for _, br := range breaks {
		pattern, ok := patterns[br.BreakType]
		if !ok {
			profile := profiles[br.BreakType]
			pattern = Pattern{
				BreakType:            br.BreakType,
				CommonCauses:         profile.causes,
				ResolutionStrategies: profile.strategies,
			}
		}
		pattern.Count++
		patterns[br.BreakType] = pattern
	}

	return patterns
}

// maxStatsWeight caps how many similar historical breaks count toward the
// adjustment, so a handful of observations never dominates the base score.
const maxStatsWeight = 10

// historyShare is the fraction of the final confidence contributed by the
// historical resolution rate at full weight.
const historyShare = 0.3

// AdjustConfidence blends a base confidence with the historical resolution
// rate for similar breaks. The blend weight scales with the number of
// similar breaks observed, capped at maxStatsWeight. A nil stats entry
// returns the base unchanged. The result is clamped to [0,1].
func AdjustConfidence(base float64, stats *models.HistoricalStats) float64 {
	if stats == nil || stats.SimilarBreaks <= 0 {
		return clamp01(base)
	}

	similar := stats.SimilarBreaks
	if similar > maxStatsWeight {
		similar = maxStatsWeight
	}
	weight := float64(similar) / maxStatsWeight

	adjusted := base*(1-historyShare*weight) + stats.ResolutionRate*historyShare*weight
	return clamp01(adjusted)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
