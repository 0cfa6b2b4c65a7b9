package matcher

import (
	"fmt"

	"golang-trade-reconciliation-engine/internal/models"
)

// deterministicPass consumes (a, b) pairs satisfying an exact-match rule:
// equal external IDs, or amounts within tolerance with equal currency and
// agreement on security identifier or trade date. The scan is greedy
// first-fit in feed order; consumed records leave the pool. Matches carry
// confidence 1.0 and the "exact_match" criterion.
func deterministicPass(feedA, feedB []*models.TransactionRecord, config *Config) ([]*models.MatchRecord, []*models.TransactionRecord, []*models.TransactionRecord) {
	var matches []*models.MatchRecord
	consumedB := make([]bool, len(feedB))
	index := newFeedIndex(feedB)

	var residualA []*models.TransactionRecord
	for _, a := range feedA {
		matched := false

		for _, pos := range index.candidatesFor(a, config.AmountTolerance) {
			if consumedB[pos] {
				continue
			}

			b := feedB[pos]
			reason, ok := exactRule(a, b, config)
			if !ok {
				continue
			}

			matches = append(matches, &models.MatchRecord{
				ID:               matchID(a, b, models.MatchDeterministic),
				RecordA:          a,
				RecordB:          b,
				MatchType:        models.MatchDeterministic,
				ConfidenceScore:  1.0,
				MatchingCriteria: []string{"exact_match"},
				Reason:           reason,
			})
			consumedB[pos] = true
			matched = true
			break
		}

		if !matched {
			residualA = append(residualA, a)
		}
	}

	var residualB []*models.TransactionRecord
	for i, b := range feedB {
		if !consumedB[i] {
			residualB = append(residualB, b)
		}
	}

	return matches, residualA, residualB
}

// exactRule evaluates the deterministic match rule for one pair, returning
// a human-readable reason for an accepted pair.
func exactRule(a, b *models.TransactionRecord, config *Config) (string, bool) {
	if a.ExternalID != "" && a.ExternalID == b.ExternalID {
		return fmt.Sprintf("external ID %s present on both feeds", a.ExternalID), true
	}

	if a.Amount.Sub(b.Amount).Abs().GreaterThan(config.AmountTolerance) {
		return "", false
	}

	if a.Currency != b.Currency {
		return "", false
	}

	if a.SecurityID != "" && a.SecurityID == b.SecurityID {
		return "amount within tolerance with matching currency and security", true
	}

	if a.HasTradeDate() && b.HasTradeDate() && a.TradeDate.Equal(*b.TradeDate) {
		return "amount within tolerance with matching currency and trade date", true
	}

	return "", false
}
