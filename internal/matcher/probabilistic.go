package matcher

import (
	"fmt"

	"golang-trade-reconciliation-engine/internal/models"
)

// probabilisticPass pairs the residuals left by the deterministic pass.
// For each remaining feed-A record, in feed order, it scores every
// remaining feed-B record and consumes the arg-max when the score reaches
// the configured threshold; ties go to the first candidate encountered.
// Per-record greedy, not globally optimal, but deterministic for stable
// input ordering.
func probabilisticPass(residualA, residualB []*models.TransactionRecord, config *Config) ([]*models.MatchRecord, []*models.TransactionRecord, []*models.TransactionRecord) {
	var matches []*models.MatchRecord
	consumedB := make([]bool, len(residualB))

	var unmatchedA []*models.TransactionRecord
	for _, a := range residualA {
		bestPos := -1
		bestScore := 0.0

		for pos, b := range residualB {
			if consumedB[pos] {
				continue
			}

			score := SimilarityScore(a, b, config.Weights, config.MaxDateDistanceDays)
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}

		if bestPos < 0 || bestScore < config.MinConfidenceScore {
			unmatchedA = append(unmatchedA, a)
			continue
		}

		matches = append(matches, &models.MatchRecord{
			ID:               matchID(a, residualB[bestPos], models.MatchProbabilistic),
			RecordA:          a,
			RecordB:          residualB[bestPos],
			MatchType:        models.MatchProbabilistic,
			ConfidenceScore:  bestScore,
			MatchingCriteria: []string{"fuzzy_match"},
			Reason:           fmt.Sprintf("similarity score %.3f above threshold %.2f", bestScore, config.MinConfidenceScore),
		})
		consumedB[bestPos] = true
	}

	var unmatchedB []*models.TransactionRecord
	for i, b := range residualB {
		if !consumedB[i] {
			unmatchedB = append(unmatchedB, b)
		}
	}

	return matches, unmatchedA, unmatchedB
}
