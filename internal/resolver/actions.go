package resolver

import (
	"fmt"

	"golang-trade-reconciliation-engine/internal/analyzer"
	"golang-trade-reconciliation-engine/internal/models"
)

// actionRule is one row of the action generation table.
type actionRule struct {
	actionType  models.ActionType
	priority    models.Priority
	confidence  float64
	description string
}

// actionTable maps each resolvable break type to its corrective action.
// Types without a row fall back to manual review.
var actionTable = map[models.BreakType]actionRule{
	models.BreakSecurityID: {
		actionType:  models.ActionSecurityIDCorrection,
		priority:    models.PriorityHigh,
		confidence:  0.75,
		description: "correct the security identifier against the security master",
	},
	models.BreakCoupon: {
		actionType:  models.ActionCouponVerification,
		priority:    models.PriorityMedium,
		confidence:  0.6,
		description: "recompute the coupon amount and verify the day-count basis",
	},
	models.BreakMarketPrice: {
		actionType:  models.ActionPriceVerification,
		priority:    models.PriorityMedium,
		confidence:  0.7,
		description: "verify the market price against an independent source",
	},
	models.BreakDate: {
		actionType:  models.ActionDateVerification,
		priority:    models.PriorityLow,
		confidence:  0.8,
		description: "confirm the contractual trade and settlement dates",
	},
	models.BreakFXRate: {
		actionType:  models.ActionFXRateCorrection,
		priority:    models.PriorityHigh,
		confidence:  0.65,
		description: "correct the fx rate from the agreed fixing source",
	},
}

var fallbackRule = actionRule{
	actionType:  models.ActionManualReview,
	priority:    models.PriorityLow,
	confidence:  0.3,
	description: "escalate to an operator for manual review",
}

// Resolvable reports whether a break qualifies for automatic resolution.
// High and critical severities always require an operator, and unmatched
// breaks have no counterpart to reconcile against.
func Resolvable(br *models.BreakRecord) bool {
	if br.BreakType == models.BreakUnmatched {
		return false
	}
	if br.Severity.Rank() >= models.SeverityHigh.Rank() {
		return false
	}
	return br.BreakType.IsValid()
}

// proposeAction generates the corrective action for a resolvable break,
// adjusting the table's base confidence with historical resolution stats
// when a snapshot entry exists for this break type and security.
func (e *Engine) proposeAction(br *models.BreakRecord) *models.ProposedAction {
	rule, ok := actionTable[br.BreakType]
	if !ok {
		rule = fallbackRule
	}

	stats := e.snapshot.Lookup(br.BreakType, br.SecurityIdentifier())
	confidence := analyzer.AdjustConfidence(rule.confidence, stats)

	return &models.ProposedAction{
		ID:              models.DeterministicID("action", br.ID),
		BreakID:         br.ID,
		ActionType:      rule.actionType,
		Description:     rule.description,
		Parameters:      actionParameters(br),
		Priority:        rule.priority,
		ConfidenceScore: confidence,
		EstimatedImpact: estimatedImpact(br),
	}
}

// actionParameters extracts the fields an operator or downstream system
// needs to carry out the action, keyed by the break's detail payload.
func actionParameters(br *models.BreakRecord) map[string]interface{} {
	params := map[string]interface{}{
		"break_type": br.BreakType.String(),
		"severity":   br.Severity.String(),
	}

	switch d := br.Details.(type) {
	case *models.SecurityIDDetails:
		params["mismatch_type"] = d.MismatchType
		params["security_id_a"] = d.SecurityIDA
		params["security_id_b"] = d.SecurityIDB
	case *models.CouponDetails:
		params["amount_a"] = d.AmountA.String()
		params["amount_b"] = d.AmountB.String()
		params["difference"] = d.Difference.String()
	case *models.PriceDetails:
		params["price_a"] = d.PriceA.String()
		params["price_b"] = d.PriceB.String()
		params["difference"] = d.Difference.String()
		params["tolerance"] = d.Tolerance.String()
	case *models.DateDetails:
		params["trade_date_a"] = d.TradeDateA.Format("2006-01-02")
		params["trade_date_b"] = d.TradeDateB.Format("2006-01-02")
		params["delta_days"] = d.DeltaDays
	case *models.FXRateDetails:
		params["rate_a"] = d.RateA.String()
		params["rate_b"] = d.RateB.String()
		params["difference"] = d.Difference.String()
	}

	return params
}

// estimatedImpact summarizes the monetary magnitude the action addresses
func estimatedImpact(br *models.BreakRecord) string {
	amount := journalAmount(br)
	if amount.IsZero() {
		return ""
	}

	currency := ""
	if br.Match != nil && br.Match.RecordA != nil {
		currency = br.Match.RecordA.Currency
	}

	return fmt.Sprintf("%s %s", amount.String(), currency)
}
