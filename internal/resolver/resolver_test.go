package resolver

import (
	"testing"
	"time"

	"golang-trade-reconciliation-engine/internal/models"
	apperrors "golang-trade-reconciliation-engine/pkg/errors"

	"github.com/shopspring/decimal"
)

func matchedBreak(bt models.BreakType, severity models.Severity, details models.BreakDetail) *models.BreakRecord {
	tradeDate := models.Date(2024, time.January, 10)
	settlement := models.Date(2024, time.January, 12)

	a := &models.TransactionRecord{
		ExternalID: "A1", Feed: models.FeedA,
		Amount: decimal.NewFromFloat(1000.00), Currency: "USD",
		SecurityID: "SEC-1", TradeDate: &tradeDate, SettlementDate: &settlement,
	}
	b := &models.TransactionRecord{
		ExternalID: "B1", Feed: models.FeedB,
		Amount: decimal.NewFromFloat(1000.00), Currency: "USD",
		SecurityID: "SEC-1", TradeDate: &tradeDate,
	}

	match := &models.MatchRecord{
		ID:              models.DeterministicID("resolver-test", a.ExternalID, b.ExternalID),
		RecordA:         a,
		RecordB:         b,
		MatchType:       models.MatchDeterministic,
		ConfidenceScore: 1.0,
	}

	return &models.BreakRecord{
		ID:              models.DeterministicID("resolver-test-break", string(bt)),
		BreakType:       bt,
		Severity:        severity,
		ConfidenceScore: 0.9,
		Status:          models.BreakStatusOpen,
		Match:           match,
		Details:         details,
	}
}

func priceBreak(severity models.Severity) *models.BreakRecord {
	return matchedBreak(models.BreakMarketPrice, severity, &models.PriceDetails{
		PriceA:        decimal.NewFromFloat(100.00),
		PriceB:        decimal.NewFromFloat(104.00),
		Difference:    decimal.NewFromFloat(4.00),
		Tolerance:     decimal.NewFromFloat(1.04),
		DifferencePct: 3.85,
	})
}

func unmatchedBreak() *models.BreakRecord {
	record := &models.TransactionRecord{
		ExternalID: "X1", Feed: models.FeedA,
		Amount: decimal.NewFromFloat(500.00), Currency: "USD",
	}
	return &models.BreakRecord{
		ID:              models.DeterministicID("resolver-test-break", "unmatched", "X1"),
		BreakType:       models.BreakUnmatched,
		Severity:        models.SeverityMedium,
		ConfidenceScore: 0.9,
		Status:          models.BreakStatusOpen,
		Record:          record,
		Details:         &models.UnmatchedDetails{Feed: models.FeedA, ExternalID: "X1"},
	}
}

func TestResolvable(t *testing.T) {
	tests := []struct {
		name string
		br   *models.BreakRecord
		want bool
	}{
		{"medium price break is resolvable", priceBreak(models.SeverityMedium), true},
		{"low price break is resolvable", priceBreak(models.SeverityLow), true},
		{"high severity is never resolvable", priceBreak(models.SeverityHigh), false},
		{"critical severity is never resolvable", priceBreak(models.SeverityCritical), false},
		{"unmatched is never resolvable", unmatchedBreak(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolvable(tt.br); got != tt.want {
				t.Errorf("Resolvable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolve_PriceBreak(t *testing.T) {
	// A resolvable medium price break yields exactly one price verification
	// action and one journal entry against the price adjustment accounts.
	engine := NewEngine(nil)

	br := priceBreak(models.SeverityMedium)
	set, err := engine.Resolve([]*models.BreakRecord{br})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(set.Actions) != 1 {
		t.Fatalf("Expected 1 action, got %d", len(set.Actions))
	}
	action := set.Actions[0]
	if action.ActionType != models.ActionPriceVerification {
		t.Errorf("Expected price verification, got %s", action.ActionType)
	}
	if action.Priority != models.PriorityMedium {
		t.Errorf("Expected medium priority, got %s", action.Priority)
	}
	if action.ConfidenceScore != 0.7 {
		t.Errorf("Expected base confidence 0.7 without history, got %f", action.ConfidenceScore)
	}
	if action.BreakID != br.ID {
		t.Error("Action does not reference the break")
	}

	if len(set.JournalEntries) != 1 {
		t.Fatalf("Expected 1 journal entry, got %d", len(set.JournalEntries))
	}
	entry := set.JournalEntries[0]
	if entry.DebitAccount != "Unrealized Gain/Loss" || entry.CreditAccount != "Trading Securities" {
		t.Errorf("Unexpected accounts: Dr %s / Cr %s", entry.DebitAccount, entry.CreditAccount)
	}
	if !entry.Amount.Equal(decimal.NewFromFloat(4.00)) {
		t.Errorf("Expected amount 4.00, got %s", entry.Amount)
	}
	if entry.Currency != "USD" {
		t.Errorf("Expected USD, got %s", entry.Currency)
	}
	if entry.Status != models.JournalStatusPending {
		t.Errorf("Expected pending status, got %s", entry.Status)
	}
	if entry.ActionID != action.ID {
		t.Error("Journal entry does not reference the action")
	}

	// Settlement date of the feed-A record drives the effective date.
	if !entry.EffectiveDate.Equal(models.Date(2024, time.January, 12)) {
		t.Errorf("Unexpected effective date: %s", entry.EffectiveDate)
	}

	if br.Status != models.BreakStatusResolved {
		t.Errorf("Expected resolved status, got %s", br.Status)
	}
	if set.Summary.Resolved != 1 || set.Summary.SuccessRate != 1.0 {
		t.Errorf("Unexpected summary: %+v", set.Summary)
	}
}

func TestResolve_ActionTable(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		bt         models.BreakType
		details    models.BreakDetail
		actionType models.ActionType
		priority   models.Priority
		confidence float64
		debit      string
		credit     string
	}{
		{
			bt:         models.BreakSecurityID,
			details:    &models.SecurityIDDetails{MismatchType: "sedol", SEDOLA: "B000001", SEDOLB: "B000002"},
			actionType: models.ActionSecurityIDCorrection,
			priority:   models.PriorityHigh,
			confidence: 0.75,
			debit:      "Trading Securities",
			credit:     "Trading Securities",
		},
		{
			bt: models.BreakCoupon,
			details: &models.CouponDetails{
				AmountA:    decimal.NewFromFloat(1000.00),
				AmountB:    decimal.NewFromFloat(950.00),
				Difference: decimal.NewFromFloat(50.00),
			},
			actionType: models.ActionCouponVerification,
			priority:   models.PriorityMedium,
			confidence: 0.6,
			debit:      "Interest Receivable",
			credit:     "Interest Income",
		},
		{
			bt: models.BreakDate,
			details: &models.DateDetails{
				TradeDateA: models.Date(2024, time.January, 10),
				TradeDateB: models.Date(2024, time.January, 12),
				DeltaDays:  2,
			},
			actionType: models.ActionDateVerification,
			priority:   models.PriorityLow,
			confidence: 0.8,
			debit:      "Other Assets",
			credit:     "Other Liabilities",
		},
		{
			bt: models.BreakFXRate,
			details: &models.FXRateDetails{
				RateA:      decimal.NewFromFloat(1.10),
				RateB:      decimal.NewFromFloat(1.12),
				Difference: decimal.NewFromFloat(0.02),
			},
			actionType: models.ActionFXRateCorrection,
			priority:   models.PriorityHigh,
			confidence: 0.65,
			debit:      "FX Gain/Loss",
			credit:     "Cash",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.bt), func(t *testing.T) {
			br := matchedBreak(tt.bt, models.SeverityMedium, tt.details)
			set, err := engine.Resolve([]*models.BreakRecord{br})
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}

			if len(set.Actions) != 1 {
				t.Fatalf("Expected 1 action, got %d", len(set.Actions))
			}
			action := set.Actions[0]
			if action.ActionType != tt.actionType {
				t.Errorf("Expected %s, got %s", tt.actionType, action.ActionType)
			}
			if action.Priority != tt.priority {
				t.Errorf("Expected priority %s, got %s", tt.priority, action.Priority)
			}
			if action.ConfidenceScore != tt.confidence {
				t.Errorf("Expected confidence %f, got %f", tt.confidence, action.ConfidenceScore)
			}

			if len(set.JournalEntries) != 1 {
				t.Fatalf("Expected 1 journal entry, got %d", len(set.JournalEntries))
			}
			entry := set.JournalEntries[0]
			if entry.DebitAccount != tt.debit || entry.CreditAccount != tt.credit {
				t.Errorf("Expected Dr %s / Cr %s, got Dr %s / Cr %s",
					tt.debit, tt.credit, entry.DebitAccount, entry.CreditAccount)
			}
		})
	}
}

func TestResolve_SkipsUnresolvable(t *testing.T) {
	engine := NewEngine(nil)

	high := priceBreak(models.SeverityHigh)
	unmatched := unmatchedBreak()
	medium := priceBreak(models.SeverityMedium)

	set, err := engine.Resolve([]*models.BreakRecord{high, unmatched, medium})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if high.Status != models.BreakStatusSkipped {
		t.Errorf("Expected high break skipped, got %s", high.Status)
	}
	if unmatched.Status != models.BreakStatusSkipped {
		t.Errorf("Expected unmatched break skipped, got %s", unmatched.Status)
	}
	if medium.Status != models.BreakStatusResolved {
		t.Errorf("Expected medium break resolved, got %s", medium.Status)
	}

	if set.Summary.TotalBreaks != 3 || set.Summary.Skipped != 2 || set.Summary.Resolved != 1 {
		t.Errorf("Unexpected summary: %+v", set.Summary)
	}
	if set.Summary.BreaksByType[models.BreakMarketPrice] != 2 {
		t.Errorf("Expected 2 price breaks in histogram, got %d",
			set.Summary.BreaksByType[models.BreakMarketPrice])
	}
}

func TestResolve_ConfidenceFloorRejects(t *testing.T) {
	// A snapshot with a terrible resolution history drags the coupon
	// action's confidence below a strict floor.
	snapshot := make(models.HistoricalSnapshot)
	snapshot.Add(&models.HistoricalStats{
		BreakType:      models.BreakCoupon,
		SecurityID:     "SEC-1",
		SimilarBreaks:  10,
		ResolutionRate: 0.0,
	})

	engine := NewEngine(StrictConfig(), WithHistoricalSnapshot(snapshot))

	br := matchedBreak(models.BreakCoupon, models.SeverityLow, &models.CouponDetails{
		AmountA:    decimal.NewFromFloat(1000.00),
		AmountB:    decimal.NewFromFloat(950.00),
		Difference: decimal.NewFromFloat(50.00),
	})

	set, err := engine.Resolve([]*models.BreakRecord{br})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// 0.6 base adjusted down to 0.42 by the zero resolution rate, below
	// the strict 0.5 floor.
	if br.Status != models.BreakStatusRejected {
		t.Errorf("Expected rejected status, got %s", br.Status)
	}
	if len(set.JournalEntries) != 0 {
		t.Error("Rejected action must not emit a journal entry")
	}
	if len(set.Errors) != 1 {
		t.Fatalf("Expected 1 recorded error, got %d", len(set.Errors))
	}
	if set.Errors[0].Category != apperrors.CategoryResolutionValidation {
		t.Errorf("Expected resolution_validation error, got %s", set.Errors[0].Category)
	}
	if set.Summary.Rejected != 1 || set.Summary.Resolved != 0 {
		t.Errorf("Unexpected summary: %+v", set.Summary)
	}
}

func TestResolve_HistoryAdjustsConfidence(t *testing.T) {
	snapshot := make(models.HistoricalSnapshot)
	snapshot.Add(&models.HistoricalStats{
		BreakType:      models.BreakMarketPrice,
		SecurityID:     "SEC-1",
		SimilarBreaks:  10,
		ResolutionRate: 1.0,
	})

	engine := NewEngine(nil, WithHistoricalSnapshot(snapshot))

	set, err := engine.Resolve([]*models.BreakRecord{priceBreak(models.SeverityMedium)})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(set.Actions) != 1 {
		t.Fatalf("Expected 1 action, got %d", len(set.Actions))
	}

	// Base 0.7 blended with a perfect resolution history at full weight.
	want := 0.7*0.7 + 0.3
	got := set.Actions[0].ConfidenceScore
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected adjusted confidence %f, got %f", want, got)
	}
}

func TestResolve_ApplyFailureIsRecorded(t *testing.T) {
	engine := NewEngine(nil)

	// An underlying record with a malformed currency makes the journal
	// entry fail validation at apply time.
	br := priceBreak(models.SeverityMedium)
	br.Match.RecordA.Currency = "US"

	set, err := engine.Resolve([]*models.BreakRecord{br})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if br.Status != models.BreakStatusFailed {
		t.Errorf("Expected failed status, got %s", br.Status)
	}
	if len(set.JournalEntries) != 0 {
		t.Error("Failed apply must not emit a journal entry")
	}
	if len(set.Errors) != 1 {
		t.Fatalf("Expected 1 recorded error, got %d", len(set.Errors))
	}
	if set.Errors[0].Category != apperrors.CategoryApply {
		t.Errorf("Expected apply error, got %s", set.Errors[0].Category)
	}
	if set.Summary.Failed != 1 || set.Summary.SuccessRate != 0.0 {
		t.Errorf("Unexpected summary: %+v", set.Summary)
	}
}

func TestResolve_EffectiveDateOverride(t *testing.T) {
	override := models.Date(2024, time.March, 31)
	config := DefaultConfig()
	config.EffectiveDate = &override

	engine := NewEngine(config)

	set, err := engine.Resolve([]*models.BreakRecord{priceBreak(models.SeverityMedium)})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(set.JournalEntries) != 1 {
		t.Fatalf("Expected 1 journal entry, got %d", len(set.JournalEntries))
	}
	if !set.JournalEntries[0].EffectiveDate.Equal(override) {
		t.Errorf("Expected overridden effective date, got %s", set.JournalEntries[0].EffectiveDate)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	engine := NewEngine(nil)

	first, err := engine.Resolve([]*models.BreakRecord{priceBreak(models.SeverityMedium)})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	second, err := engine.Resolve([]*models.BreakRecord{priceBreak(models.SeverityMedium)})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if first.Actions[0].ID != second.Actions[0].ID {
		t.Error("Action IDs differ across identical runs")
	}
	if first.JournalEntries[0].ID != second.JournalEntries[0].ID {
		t.Error("Journal entry IDs differ across identical runs")
	}
}

func TestConfigValidation(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}

	config.MinActionConfidence = 1.5
	if err := config.Validate(); err == nil {
		t.Error("Expected validation failure for confidence above 1")
	}

	engine := NewEngine(config)
	if _, err := engine.Resolve(nil); err == nil {
		t.Error("Expected Resolve to fail with invalid configuration")
	}
}
