package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ActionType identifies a proposed corrective action.
type ActionType string

const (
	ActionSecurityIDCorrection ActionType = "security_id_correction"
	ActionCouponVerification   ActionType = "coupon_calculation_verification"
	ActionPriceVerification    ActionType = "price_verification"
	ActionDateVerification     ActionType = "date_verification"
	ActionFXRateCorrection     ActionType = "fx_rate_correction"
	ActionManualReview         ActionType = "manual_review"
)

// String returns the string representation of ActionType
func (at ActionType) String() string {
	return string(at)
}

// IsValid checks if the action type is known
func (at ActionType) IsValid() bool {
	switch at {
	case ActionSecurityIDCorrection, ActionCouponVerification, ActionPriceVerification,
		ActionDateVerification, ActionFXRateCorrection, ActionManualReview:
		return true
	default:
		return false
	}
}

// Priority orders proposed actions for operator attention.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid checks if the priority is valid
func (p Priority) IsValid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ProposedAction is a corrective action generated for a resolvable break.
type ProposedAction struct {
	ID              string                 `json:"id"`
	BreakID         string                 `json:"break_id"`
	ActionType      ActionType             `json:"action_type"`
	Description     string                 `json:"description"`
	Parameters      map[string]interface{} `json:"parameters"`
	Priority        Priority               `json:"priority"`
	ConfidenceScore float64                `json:"confidence_score"`
	EstimatedImpact string                 `json:"estimated_impact,omitempty"`
}

// Validate checks the proposed action is well formed. Actions failing
// validation are rejected, recorded, and never applied.
func (a *ProposedAction) Validate() error {
	if !a.ActionType.IsValid() {
		return fmt.Errorf("unknown action type: %q", a.ActionType)
	}

	if strings.TrimSpace(a.Description) == "" {
		return fmt.Errorf("action description cannot be empty")
	}

	if a.Parameters == nil {
		return fmt.Errorf("action parameters cannot be nil")
	}

	if a.ConfidenceScore < 0.1 {
		return fmt.Errorf("action confidence %.3f is below the 0.1 floor", a.ConfidenceScore)
	}

	if a.ConfidenceScore > 1.0 {
		return fmt.Errorf("action confidence %.3f exceeds 1.0", a.ConfidenceScore)
	}

	if !a.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %q", a.Priority)
	}

	return nil
}

// String returns a string representation of the ProposedAction
func (a *ProposedAction) String() string {
	return fmt.Sprintf("ProposedAction{Type: %s, Priority: %s, Confidence: %.2f}",
		a.ActionType, a.Priority, a.ConfidenceScore)
}

// JournalStatus tracks the lifecycle of a simulated journal entry.
type JournalStatus string

const (
	JournalStatusPending JournalStatus = "pending"
	JournalStatusPosted  JournalStatus = "posted"
)

// JournalEntry is a simulated double-entry accounting adjustment proposed
// to correct a break. Exactly one entry is emitted per applied action.
type JournalEntry struct {
	ID            string          `json:"id"`
	ActionID      string          `json:"action_id"`
	DebitAccount  string          `json:"debit_account"`
	CreditAccount string          `json:"credit_account"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	EffectiveDate time.Time       `json:"effective_date"`
	Description   string          `json:"description"`
	Status        JournalStatus   `json:"status"`
}

// Validate performs basic validation on the JournalEntry
func (j *JournalEntry) Validate() error {
	if strings.TrimSpace(j.DebitAccount) == "" {
		return fmt.Errorf("journal entry debit account cannot be empty")
	}

	if strings.TrimSpace(j.CreditAccount) == "" {
		return fmt.Errorf("journal entry credit account cannot be empty")
	}

	if j.Amount.IsNegative() {
		return fmt.Errorf("journal entry amount cannot be negative: %s", j.Amount.String())
	}

	if len(j.Currency) != 3 {
		return fmt.Errorf("journal entry currency must be a 3-letter code, got %q", j.Currency)
	}

	return nil
}

// String returns a string representation of the JournalEntry
func (j *JournalEntry) String() string {
	return fmt.Sprintf("JournalEntry{Dr: %s, Cr: %s, Amount: %s %s}",
		j.DebitAccount, j.CreditAccount, j.Amount.String(), j.Currency)
}

// HistoricalStats is a pre-fetched snapshot entry from the audit-history
// collaborator describing how similar breaks resolved in the past.
// It is supplied before a run starts and never fetched mid-pipeline.
type HistoricalStats struct {
	BreakType              BreakType `json:"break_type"`
	SecurityID             string    `json:"security_id"`
	SimilarBreaks          int       `json:"similar_breaks"`
	ResolutionRate         float64   `json:"resolution_rate"`
	CommonResolutionMethod string    `json:"common_resolution_method,omitempty"`
}

// HistoricalSnapshot is a read-only lookup of historical statistics keyed
// by break type and security identifier. A nil snapshot degrades gracefully
// to base confidences.
type HistoricalSnapshot map[StatsKey]*HistoricalStats

// StatsKey keys a HistoricalSnapshot entry.
type StatsKey struct {
	BreakType  BreakType
	SecurityID string
}

// Lookup returns the stats entry for a break type and security, or nil.
func (s HistoricalSnapshot) Lookup(bt BreakType, securityID string) *HistoricalStats {
	if s == nil {
		return nil
	}
	return s[StatsKey{BreakType: bt, SecurityID: securityID}]
}

// Add inserts a stats entry into the snapshot, keyed from its own fields.
func (s HistoricalSnapshot) Add(stats *HistoricalStats) {
	s[StatsKey{BreakType: stats.BreakType, SecurityID: stats.SecurityID}] = stats
}
