package resolver

import (
	"fmt"
	"time"

	"golang-trade-reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

// accountTemplate is one row of the journal account template table.
type accountTemplate struct {
	debit  string
	credit string
}

var journalTemplates = map[models.ActionType]accountTemplate{
	models.ActionSecurityIDCorrection: {debit: "Trading Securities", credit: "Trading Securities"},
	models.ActionCouponVerification:   {debit: "Interest Receivable", credit: "Interest Income"},
	models.ActionPriceVerification:    {debit: "Unrealized Gain/Loss", credit: "Trading Securities"},
	models.ActionFXRateCorrection:     {debit: "FX Gain/Loss", credit: "Cash"},
}

var defaultTemplate = accountTemplate{debit: "Other Assets", credit: "Other Liabilities"}

// buildJournalEntry simulates applying a validated action by emitting the
// double-entry adjustment its account template prescribes. The entry must
// pass its own validation; a rejected entry fails the apply step.
func (e *Engine) buildJournalEntry(action *models.ProposedAction, br *models.BreakRecord) (*models.JournalEntry, error) {
	template, ok := journalTemplates[action.ActionType]
	if !ok {
		template = defaultTemplate
	}

	entry := &models.JournalEntry{
		ID:            models.DeterministicID("journal", action.ID),
		ActionID:      action.ID,
		DebitAccount:  template.debit,
		CreditAccount: template.credit,
		Amount:        journalAmount(br),
		Currency:      journalCurrency(br),
		EffectiveDate: e.effectiveDate(br),
		Description:   fmt.Sprintf("adjustment for %s break %s", br.BreakType, br.ID),
		Status:        models.JournalStatusPending,
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// journalAmount derives the adjustment amount from the break's detail
// payload, falling back to the amount gap between the matched records.
func journalAmount(br *models.BreakRecord) decimal.Decimal {
	switch d := br.Details.(type) {
	case *models.CouponDetails:
		return d.Difference.Abs()
	case *models.PriceDetails:
		return d.Difference.Abs()
	case *models.FXRateDetails:
		return d.Difference.Abs()
	}

	if br.Match != nil && br.Match.RecordA != nil && br.Match.RecordB != nil {
		diff := br.Match.RecordA.Amount.Sub(br.Match.RecordB.Amount).Abs()
		if !diff.IsZero() {
			return diff
		}
		return br.Match.RecordA.Amount.Abs()
	}

	if br.Record != nil {
		return br.Record.Amount.Abs()
	}

	return decimal.Zero
}

func journalCurrency(br *models.BreakRecord) string {
	if br.Match != nil && br.Match.RecordA != nil {
		return br.Match.RecordA.Currency
	}
	if br.Record != nil {
		return br.Record.Currency
	}
	return ""
}

// effectiveDate prefers the configured override, then the feed-A record's
// settlement date, then its trade date.
func (e *Engine) effectiveDate(br *models.BreakRecord) time.Time {
	if e.config.EffectiveDate != nil {
		return *e.config.EffectiveDate
	}

	var record *models.TransactionRecord
	if br.Match != nil {
		record = br.Match.RecordA
	} else {
		record = br.Record
	}
	if record == nil {
		return time.Time{}
	}

	if record.SettlementDate != nil {
		return *record.SettlementDate
	}
	if record.TradeDate != nil {
		return *record.TradeDate
	}

	return time.Time{}
}
