package matcher

import (
	"fmt"

	"golang-trade-reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Engine runs the two matching passes over a feed pair. An Engine holds
// only configuration and is safe for concurrent use across independent
// feed pairs.
type Engine struct {
	config *Config
}

// MatchSet is the complete output of a matching run: the union of both
// passes' matches plus the final residuals, forming a strict partition of
// the input feeds.
type MatchSet struct {
	Matches   []*models.MatchRecord
	Unmatched models.UnmatchedSet
	Summary   MatchSummary
}

// MatchSummary provides aggregate statistics about a matching run
type MatchSummary struct {
	TotalFeedA           int             `json:"total_feed_a"`
	TotalFeedB           int             `json:"total_feed_b"`
	DeterministicMatches int             `json:"deterministic_matches"`
	ProbabilisticMatches int             `json:"probabilistic_matches"`
	UnmatchedA           int             `json:"unmatched_a"`
	UnmatchedB           int             `json:"unmatched_b"`
	TotalAmountMatched   decimal.Decimal `json:"total_amount_matched"`
	TotalAmountUnmatched decimal.Decimal `json:"total_amount_unmatched"`
}

// NewEngine creates a matching engine with the given configuration,
// falling back to defaults when nil.
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}

	return &Engine{config: config.Clone()}
}

// Match pairs the two feeds: deterministic pass first, probabilistic pass
// over the residuals, then summary statistics over the combined result.
func (e *Engine) Match(feedA, feedB []*models.TransactionRecord) (*MatchSet, error) {
	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matcher configuration: %w", err)
	}

	deterministic, residualA, residualB := deterministicPass(feedA, feedB, e.config)
	probabilistic, unmatchedA, unmatchedB := probabilisticPass(residualA, residualB, e.config)

	matches := make([]*models.MatchRecord, 0, len(deterministic)+len(probabilistic))
	matches = append(matches, deterministic...)
	matches = append(matches, probabilistic...)

	set := &MatchSet{
		Matches: matches,
		Unmatched: models.UnmatchedSet{
			UnmatchedA: unmatchedA,
			UnmatchedB: unmatchedB,
		},
	}
	set.Summary = e.summarize(set, len(feedA), len(feedB), len(deterministic), len(probabilistic))

	return set, nil
}

// matchID derives a reproducible identifier from the pair's own fields
func matchID(a, b *models.TransactionRecord, mt models.MatchType) string {
	return models.DeterministicID(
		"match", string(mt),
		a.ExternalID, a.Amount.String(), a.Currency, a.SecurityID,
		b.ExternalID, b.Amount.String(), b.Currency, b.SecurityID,
	)
}

// Config returns a copy of the engine configuration
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

func (e *Engine) summarize(set *MatchSet, totalA, totalB, deterministic, probabilistic int) MatchSummary {
	summary := MatchSummary{
		TotalFeedA:           totalA,
		TotalFeedB:           totalB,
		DeterministicMatches: deterministic,
		ProbabilisticMatches: probabilistic,
		UnmatchedA:           len(set.Unmatched.UnmatchedA),
		UnmatchedB:           len(set.Unmatched.UnmatchedB),
		TotalAmountMatched:   decimal.Zero,
		TotalAmountUnmatched: decimal.Zero,
	}

	for _, m := range set.Matches {
		summary.TotalAmountMatched = summary.TotalAmountMatched.Add(m.RecordA.Amount.Abs())
	}

	for _, r := range set.Unmatched.UnmatchedA {
		summary.TotalAmountUnmatched = summary.TotalAmountUnmatched.Add(r.Amount.Abs())
	}
	for _, r := range set.Unmatched.UnmatchedB {
		summary.TotalAmountUnmatched = summary.TotalAmountUnmatched.Add(r.Amount.Abs())
	}

	return summary
}
