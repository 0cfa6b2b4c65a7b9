package matcher

import (
	"math"

	"golang-trade-reconciliation-engine/internal/models"
)

// SimilarityScore computes a weighted similarity between two records,
// returning a value in [0,1]. Each signal contributes only when both
// records carry it; the weighted sum is renormalized by the sum of the
// applicable weights. When no signal applies the score is 0.
//
// The function is pure: it reads nothing beyond its arguments.
func SimilarityScore(a, b *models.TransactionRecord, weights ScoreWeights, maxDateDistanceDays int) float64 {
	var weightedSum, applicableWeights float64

	// Amount similarity decays with the relative difference.
	if amountScore, ok := amountSimilarity(a, b); ok {
		weightedSum += amountScore * weights.AmountWeight
		applicableWeights += weights.AmountWeight
	}

	// Currency equality.
	if a.Currency != "" && b.Currency != "" {
		score := 0.0
		if a.Currency == b.Currency {
			score = 1.0
		}
		weightedSum += score * weights.CurrencyWeight
		applicableWeights += weights.CurrencyWeight
	}

	// Security identifier equality.
	if a.SecurityID != "" && b.SecurityID != "" {
		score := 0.0
		if a.SecurityID == b.SecurityID {
			score = 1.0
		}
		weightedSum += score * weights.SecurityIDWeight
		applicableWeights += weights.SecurityIDWeight
	}

	// Trade-date proximity decays linearly over the configured span.
	if a.HasTradeDate() && b.HasTradeDate() {
		deltaDays := models.DaysBetween(*a.TradeDate, *b.TradeDate)
		score := math.Max(0.0, 1.0-float64(deltaDays)/float64(maxDateDistanceDays))
		weightedSum += score * weights.TradeDateWeight
		applicableWeights += weights.TradeDateWeight
	}

	if applicableWeights == 0.0 {
		return 0.0
	}

	return weightedSum / applicableWeights
}

// amountSimilarity returns the amount signal and whether it applies.
// The signal is max(0, 1 - |Δ| / max(a, b)); a zero denominator makes the
// signal inapplicable rather than an error.
func amountSimilarity(a, b *models.TransactionRecord) (float64, bool) {
	amtA := a.Amount.Abs()
	amtB := b.Amount.Abs()

	larger := amtA
	if amtB.GreaterThan(larger) {
		larger = amtB
	}

	if larger.IsZero() {
		return 0.0, false
	}

	diffRatio, _ := amtA.Sub(amtB).Abs().Div(larger).Float64()
	return math.Max(0.0, 1.0-diffRatio), true
}
