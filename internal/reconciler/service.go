// Package reconciler provides the high-level facade over the reconciliation
// pipeline: input validation, matching, break classification, pattern
// analysis, and resolution. A Service is a pure function of its inputs;
// malformed records are excluded and recorded, never fatal.
package reconciler

import (
	"time"

	"golang-trade-reconciliation-engine/internal/analyzer"
	"golang-trade-reconciliation-engine/internal/classifier"
	"golang-trade-reconciliation-engine/internal/classifier/fincalc"
	"golang-trade-reconciliation-engine/internal/matcher"
	"golang-trade-reconciliation-engine/internal/models"
	"golang-trade-reconciliation-engine/internal/resolver"
	apperrors "golang-trade-reconciliation-engine/pkg/errors"
	"golang-trade-reconciliation-engine/pkg/logger"
)

// Service orchestrates the complete reconciliation pipeline. It holds only
// engines and configuration and is safe for concurrent use across
// independent runs.
type Service struct {
	matchingEngine   *matcher.Engine
	breakClassifier  *classifier.Classifier
	resolutionEngine *resolver.Engine
	logger           logger.Logger
}

// Options bundles the optional inputs of a Service.
type Options struct {
	MatcherConfig      *matcher.Config
	ClassifierConfig   *classifier.Config
	ResolverConfig     *resolver.Config
	HistoricalSnapshot models.HistoricalSnapshot
	PriceStats         map[string]fincalc.SeriesStats
	ReferenceRates     fincalc.RateTable
	Logger             logger.Logger
}

// NewService creates a reconciliation service. A nil options value or any
// nil field falls back to defaults.
func NewService(opts *Options) (*Service, error) {
	if opts == nil {
		opts = &Options{}
	}

	if opts.MatcherConfig != nil {
		if err := opts.MatcherConfig.Validate(); err != nil {
			return nil, apperrors.ConfigurationError(
				apperrors.CodeInvalidConfig, "matcher", opts.MatcherConfig, err)
		}
	}
	if opts.ClassifierConfig != nil {
		if err := opts.ClassifierConfig.Validate(); err != nil {
			return nil, apperrors.ConfigurationError(
				apperrors.CodeInvalidConfig, "classifier", opts.ClassifierConfig, err)
		}
	}
	if opts.ResolverConfig != nil {
		if err := opts.ResolverConfig.Validate(); err != nil {
			return nil, apperrors.ConfigurationError(
				apperrors.CodeInvalidConfig, "resolver", opts.ResolverConfig, err)
		}
	}

	log := opts.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("reconciliation_service")

	var classifierOpts []classifier.Option
	if opts.PriceStats != nil {
		classifierOpts = append(classifierOpts, classifier.WithPriceStats(opts.PriceStats))
	}
	if opts.ReferenceRates != nil {
		classifierOpts = append(classifierOpts, classifier.WithReferenceRates(opts.ReferenceRates))
	}

	var resolverOpts []resolver.Option
	if opts.HistoricalSnapshot != nil {
		resolverOpts = append(resolverOpts, resolver.WithHistoricalSnapshot(opts.HistoricalSnapshot))
	}

	return &Service{
		matchingEngine:   matcher.NewEngine(opts.MatcherConfig),
		breakClassifier:  classifier.New(opts.ClassifierConfig, classifierOpts...),
		resolutionEngine: resolver.NewEngine(opts.ResolverConfig, resolverOpts...),
		logger:           log,
	}, nil
}

// ReconciliationResult contains the complete results of a reconciliation run
type ReconciliationResult struct {
	Matches     []*models.MatchRecord                 `json:"matches"`
	UnmatchedA  []*models.TransactionRecord           `json:"unmatched_a"`
	UnmatchedB  []*models.TransactionRecord           `json:"unmatched_b"`
	Breaks      []*models.BreakRecord                 `json:"breaks"`
	Patterns    map[models.BreakType]analyzer.Pattern `json:"patterns,omitempty"`
	Summary     ReconciliationSummary                 `json:"summary"`
	Errors      []*apperrors.EngineError              `json:"errors,omitempty"`
	ProcessedAt time.Time                             `json:"processed_at"`
}

// ReconciliationSummary provides a high-level overview of a run
type ReconciliationSummary struct {
	Matching        matcher.MatchSummary     `json:"matching"`
	TotalBreaks     int                      `json:"total_breaks"`
	BreaksByType    map[models.BreakType]int `json:"breaks_by_type"`
	ExcludedRecords int                      `json:"excluded_records"`
}

// Reconcile runs matching and break classification over the two feeds.
// Malformed records are excluded from matching, recorded in the result's
// error list, and reflected in the summary; they never abort the run.
func (s *Service) Reconcile(feedA, feedB []*models.TransactionRecord) (*ReconciliationResult, error) {
	start := time.Now()

	s.logger.WithFields(logger.Fields{
		"feed_a_records": len(feedA),
		"feed_b_records": len(feedB),
	}).Info("Starting reconciliation run")

	result := &ReconciliationResult{ProcessedAt: start}

	validA := s.validateFeed(feedA, models.FeedA, result)
	validB := s.validateFeed(feedB, models.FeedB, result)

	matchSet, err := s.matchingEngine.Match(validA, validB)
	if err != nil {
		s.logger.WithError(err).Error("Matching failed")
		return nil, apperrors.WrapIfNeeded(err,
			apperrors.CategoryConfiguration, apperrors.CodeInvalidConfig, "matching failed")
	}

	matches, unmatched := s.validateMatches(matchSet, result)

	breaks, err := s.breakClassifier.Classify(matches, unmatched)
	if err != nil {
		s.logger.WithError(err).Error("Break classification failed")
		return nil, apperrors.WrapIfNeeded(err,
			apperrors.CategoryConfiguration, apperrors.CodeInvalidConfig, "break classification failed")
	}

	result.Matches = matches
	result.UnmatchedA = unmatched.UnmatchedA
	result.UnmatchedB = unmatched.UnmatchedB
	result.Breaks = breaks
	result.Patterns = analyzer.Analyze(breaks)
	result.Summary = ReconciliationSummary{
		Matching:        matchSet.Summary,
		TotalBreaks:     len(breaks),
		BreaksByType:    breakHistogram(breaks),
		ExcludedRecords: len(result.Errors),
	}

	s.logger.WithFields(logger.Fields{
		"matches":      len(result.Matches),
		"unmatched_a":  len(result.UnmatchedA),
		"unmatched_b":  len(result.UnmatchedB),
		"breaks":       len(result.Breaks),
		"excluded":     result.Summary.ExcludedRecords,
		"elapsed_time": time.Since(start),
	}).Info("Reconciliation run completed")

	return result, nil
}

// ResolutionResult contains the complete results of a resolution run
type ResolutionResult struct {
	Actions        []*models.ProposedAction   `json:"proposed_actions"`
	JournalEntries []*models.JournalEntry     `json:"journal_entries"`
	Resolved       []*models.BreakRecord      `json:"resolved"`
	Summary        resolver.ResolutionSummary `json:"summary"`
	Errors         []*apperrors.EngineError   `json:"errors,omitempty"`
	ProcessedAt    time.Time                  `json:"processed_at"`
}

// Resolve drives the given breaks through the resolution state machine.
// Malformed breaks are dropped and recorded before the engine runs.
func (s *Service) Resolve(breaks []*models.BreakRecord) (*ResolutionResult, error) {
	start := time.Now()

	s.logger.WithField("breaks", len(breaks)).Info("Starting resolution run")

	result := &ResolutionResult{ProcessedAt: start}

	valid := make([]*models.BreakRecord, 0, len(breaks))
	for _, br := range breaks {
		if err := br.Validate(); err != nil {
			s.logger.WithError(err).WithField("break_id", br.ID).Warn("Dropping malformed break")
			result.Errors = append(result.Errors, apperrors.Wrap(err,
				apperrors.CategoryValidation, apperrors.CodeOutOfRange,
				"break "+br.ID+" failed validation"))
			continue
		}
		valid = append(valid, br)
	}

	set, err := s.resolutionEngine.Resolve(valid)
	if err != nil {
		s.logger.WithError(err).Error("Resolution failed")
		return nil, apperrors.WrapIfNeeded(err,
			apperrors.CategoryConfiguration, apperrors.CodeInvalidConfig, "resolution failed")
	}

	result.Actions = set.Actions
	result.JournalEntries = set.JournalEntries
	result.Resolved = set.Resolved
	result.Summary = set.Summary
	result.Errors = append(result.Errors, set.Errors...)

	s.logger.WithFields(logger.Fields{
		"actions":      len(result.Actions),
		"journals":     len(result.JournalEntries),
		"resolved":     len(result.Resolved),
		"elapsed_time": time.Since(start),
	}).Info("Resolution run completed")

	return result, nil
}

// validateFeed filters out malformed records, logging and recording each
// exclusion.
func (s *Service) validateFeed(feed []*models.TransactionRecord, side models.Feed, result *ReconciliationResult) []*models.TransactionRecord {
	valid := make([]*models.TransactionRecord, 0, len(feed))

	for _, record := range feed {
		if record == nil {
			result.Errors = append(result.Errors, apperrors.RecordValidationError(
				apperrors.CodeMissingField, "", nil).WithContext("feed", string(side)))
			continue
		}

		if err := record.Validate(); err != nil {
			s.logger.WithError(err).WithFields(logger.Fields{
				"feed":        string(side),
				"external_id": record.ExternalID,
			}).Warn("Excluding malformed record")

			result.Errors = append(result.Errors, apperrors.RecordValidationError(
				apperrors.CodeMissingField, record.ExternalID, err).
				WithContext("feed", string(side)))
			continue
		}

		valid = append(valid, record)
	}

	return valid
}

// validateMatches drops any malformed match and returns its records to the
// residual sets so the partition invariant holds.
func (s *Service) validateMatches(set *matcher.MatchSet, result *ReconciliationResult) ([]*models.MatchRecord, models.UnmatchedSet) {
	matches := make([]*models.MatchRecord, 0, len(set.Matches))
	unmatched := set.Unmatched

	for _, m := range set.Matches {
		if err := m.Validate(); err != nil {
			s.logger.WithError(err).WithField("match_id", m.ID).Warn("Dropping malformed match")
			result.Errors = append(result.Errors, apperrors.MatchValidationError(
				apperrors.CodeInvalidMatch, m.ID, err))

			if m.RecordA != nil {
				unmatched.UnmatchedA = append(unmatched.UnmatchedA, m.RecordA)
			}
			if m.RecordB != nil {
				unmatched.UnmatchedB = append(unmatched.UnmatchedB, m.RecordB)
			}
			continue
		}
		matches = append(matches, m)
	}

	return matches, unmatched
}

func breakHistogram(breaks []*models.BreakRecord) map[models.BreakType]int {
	histogram := make(map[models.BreakType]int)
	for _, br := range breaks {
		histogram[br.BreakType]++
	}
	return histogram
}
