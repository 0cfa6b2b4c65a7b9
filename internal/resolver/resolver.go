// Package resolver drives each classified break through the resolution
// state machine: resolvability filter, action generation, validation, and
// simulated apply with journal entry emission. Failures at any stage are
// recorded per break and never abort the run.
package resolver

import (
	"fmt"

	"golang-trade-reconciliation-engine/internal/models"
	apperrors "golang-trade-reconciliation-engine/pkg/errors"
)

// Engine runs the resolution state machine over a batch of breaks. An
// Engine holds configuration plus an optional pre-fetched historical
// snapshot and is safe for concurrent use across independent batches.
type Engine struct {
	config   *Config
	snapshot models.HistoricalSnapshot
}

// Option configures optional Engine inputs.
type Option func(*Engine)

// WithHistoricalSnapshot supplies pre-fetched resolution statistics used
// to adjust action confidences.
func WithHistoricalSnapshot(snapshot models.HistoricalSnapshot) Option {
	return func(e *Engine) {
		e.snapshot = snapshot
	}
}

// NewEngine creates a resolution engine with the given configuration,
// falling back to defaults when nil.
func NewEngine(config *Config, opts ...Option) *Engine {
	if config == nil {
		config = DefaultConfig()
	}

	e := &Engine{config: config.Clone()}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ResolutionSet is the complete output of a resolution run.
type ResolutionSet struct {
	Actions        []*models.ProposedAction `json:"proposed_actions"`
	JournalEntries []*models.JournalEntry   `json:"journal_entries"`
	Resolved       []*models.BreakRecord    `json:"resolved"`
	Errors         []*apperrors.EngineError `json:"errors,omitempty"`
	Summary        ResolutionSummary        `json:"summary"`
}

// ResolutionSummary provides aggregate statistics about a resolution run
type ResolutionSummary struct {
	TotalBreaks  int                      `json:"total_breaks"`
	Resolvable   int                      `json:"resolvable"`
	Resolved     int                      `json:"resolved"`
	Skipped      int                      `json:"skipped"`
	Rejected     int                      `json:"rejected"`
	Failed       int                      `json:"failed"`
	SuccessRate  float64                  `json:"success_rate"`
	BreaksByType map[models.BreakType]int `json:"breaks_by_type"`
	ActionCount  int                      `json:"action_count"`
	JournalCount int                      `json:"journal_count"`
}

// Resolve walks every break through the state machine. Break statuses are
// updated in place; the returned set collects the proposed actions, the
// journal entries emitted by successful applies, and every recorded error.
func (e *Engine) Resolve(breaks []*models.BreakRecord) (*ResolutionSet, error) {
	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resolver configuration: %w", err)
	}

	set := &ResolutionSet{
		Summary: ResolutionSummary{
			TotalBreaks:  len(breaks),
			BreaksByType: make(map[models.BreakType]int),
		},
	}

	for _, br := range breaks {
		set.Summary.BreaksByType[br.BreakType]++

		if !Resolvable(br) {
			br.Status = models.BreakStatusSkipped
			set.Summary.Skipped++
			continue
		}
		set.Summary.Resolvable++

		action := e.proposeAction(br)
		br.Status = models.BreakStatusActionProposed
		set.Actions = append(set.Actions, action)

		if err := e.validateAction(action); err != nil {
			br.Status = models.BreakStatusRejected
			set.Summary.Rejected++
			set.Errors = append(set.Errors,
				apperrors.ActionValidationError(apperrors.CodeInvalidAction, br.ID, err))
			continue
		}
		br.Status = models.BreakStatusValidated

		entry, err := e.buildJournalEntry(action, br)
		if err != nil {
			br.Status = models.BreakStatusFailed
			set.Summary.Failed++
			set.Errors = append(set.Errors,
				apperrors.ApplyError(apperrors.CodeJournalRejected, action.ID, err))
			continue
		}
		br.Status = models.BreakStatusApplied
		set.JournalEntries = append(set.JournalEntries, entry)

		br.Status = models.BreakStatusResolved
		set.Resolved = append(set.Resolved, br)
		set.Summary.Resolved++
	}

	set.Summary.ActionCount = len(set.Actions)
	set.Summary.JournalCount = len(set.JournalEntries)
	if set.Summary.Resolvable > 0 {
		set.Summary.SuccessRate = float64(set.Summary.Resolved) / float64(set.Summary.Resolvable)
	}

	return set, nil
}

// validateAction layers the configured confidence floor on top of the
// action's own structural validation.
func (e *Engine) validateAction(action *models.ProposedAction) error {
	if err := action.Validate(); err != nil {
		return err
	}

	if action.ConfidenceScore < e.config.MinActionConfidence {
		return fmt.Errorf("action confidence %.3f is below the configured floor %.3f",
			action.ConfidenceScore, e.config.MinActionConfidence)
	}

	return nil
}

// Config returns a copy of the engine configuration
func (e *Engine) Config() *Config {
	return e.config.Clone()
}
