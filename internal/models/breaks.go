package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BreakType classifies the financial discrepancy a break represents.
type BreakType string

const (
	BreakSecurityID   BreakType = "security_id_break"
	BreakCoupon       BreakType = "fixed_income_coupon"
	BreakMarketPrice  BreakType = "market_price_difference"
	BreakDate         BreakType = "trade_settlement_date"
	BreakFXRate       BreakType = "fx_rate_error"
	BreakUnmatched    BreakType = "unmatched"
)

// String returns the string representation of BreakType
func (bt BreakType) String() string {
	return string(bt)
}

// IsValid checks if the break type is valid
func (bt BreakType) IsValid() bool {
	switch bt {
	case BreakSecurityID, BreakCoupon, BreakMarketPrice, BreakDate, BreakFXRate, BreakUnmatched:
		return true
	default:
		return false
	}
}

// Severity is the ordinal materiality classification of a break.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// String returns the string representation of Severity
func (s Severity) String() string {
	return string(s)
}

// Rank returns the ordinal position of the severity, low first.
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// BreakStatus tracks a break through the resolution state machine.
type BreakStatus string

const (
	BreakStatusOpen           BreakStatus = "open"
	BreakStatusActionProposed BreakStatus = "action_proposed"
	BreakStatusValidated      BreakStatus = "validated"
	BreakStatusApplied        BreakStatus = "applied"
	BreakStatusResolved       BreakStatus = "resolved"
	BreakStatusSkipped        BreakStatus = "skipped"
	BreakStatusRejected       BreakStatus = "rejected"
	BreakStatusFailed         BreakStatus = "failed"
)

// BreakDetail is the typed payload carried by a BreakRecord. Each break
// type has its own detail struct carrying exactly the fields that category
// defines, replacing the free-form maps of loosely typed designs.
type BreakDetail interface {
	// DetailType returns the break type this payload belongs to.
	DetailType() BreakType
}

// SecurityIDDetails describes a security identifier mismatch. MismatchType
// is "primary" when security_id/ISIN/CUSIP differ and "sedol" when only
// the SEDOL differs.
type SecurityIDDetails struct {
	MismatchType string `json:"mismatch_type"`
	SecurityIDA  string `json:"security_id_a,omitempty"`
	SecurityIDB  string `json:"security_id_b,omitempty"`
	ISINA        string `json:"isin_a,omitempty"`
	ISINB        string `json:"isin_b,omitempty"`
	CUSIPA       string `json:"cusip_a,omitempty"`
	CUSIPB       string `json:"cusip_b,omitempty"`
	SEDOLA       string `json:"sedol_a,omitempty"`
	SEDOLB       string `json:"sedol_b,omitempty"`
}

// DetailType implements BreakDetail
func (d *SecurityIDDetails) DetailType() BreakType { return BreakSecurityID }

// CouponDetails describes a fixed income coupon amount discrepancy.
// DayCountHint, when present, names the day-count basis whose accrual
// fraction best explains the difference between the two amounts.
type CouponDetails struct {
	AmountA       decimal.Decimal `json:"amount_a"`
	AmountB       decimal.Decimal `json:"amount_b"`
	Difference    decimal.Decimal `json:"difference"`
	DifferencePct float64         `json:"difference_pct"`
	DayCountHint  string          `json:"day_count_hint,omitempty"`
}

// DetailType implements BreakDetail
func (d *CouponDetails) DetailType() BreakType { return BreakCoupon }

// PriceDetails describes a market price discrepancy beyond tolerance.
// ZScore is set only when a price history snapshot was supplied to the
// classifier and flags how unusual the feed-A price is for the security.
type PriceDetails struct {
	PriceA        decimal.Decimal `json:"price_a"`
	PriceB        decimal.Decimal `json:"price_b"`
	Difference    decimal.Decimal `json:"difference"`
	Tolerance     decimal.Decimal `json:"tolerance"`
	DifferencePct float64         `json:"difference_pct"`
	ZScore        *float64        `json:"z_score,omitempty"`
}

// DetailType implements BreakDetail
func (d *PriceDetails) DetailType() BreakType { return BreakMarketPrice }

// DateDetails describes a trade/settlement date discrepancy.
type DateDetails struct {
	TradeDateA time.Time `json:"trade_date_a"`
	TradeDateB time.Time `json:"trade_date_b"`
	DeltaDays  int       `json:"delta_days"`
}

// DetailType implements BreakDetail
func (d *DateDetails) DetailType() BreakType { return BreakDate }

// FXRateDetails describes an FX rate discrepancy beyond tolerance.
// CrossRateDeviation is set only when a reference rate table was supplied
// and measures how far the feed-A rate sits from the implied cross rate.
type FXRateDetails struct {
	RateA              decimal.Decimal  `json:"rate_a"`
	RateB              decimal.Decimal  `json:"rate_b"`
	Difference         decimal.Decimal  `json:"difference"`
	Tolerance          decimal.Decimal  `json:"tolerance"`
	CrossRateDeviation *decimal.Decimal `json:"cross_rate_deviation,omitempty"`
}

// DetailType implements BreakDetail
func (d *FXRateDetails) DetailType() BreakType { return BreakFXRate }

// UnmatchedDetails describes a record that found no counterpart.
type UnmatchedDetails struct {
	Feed       Feed   `json:"feed"`
	ExternalID string `json:"external_id"`
}

// DetailType implements BreakDetail
func (d *UnmatchedDetails) DetailType() BreakType { return BreakUnmatched }

// BreakRecord is a detected discrepancy: either a mismatch between the two
// sides of a match, or a record with no counterpart. A match may yield zero
// or several breaks; each unmatched record yields exactly one.
type BreakRecord struct {
	ID              string       `json:"id"`
	BreakType       BreakType    `json:"break_type"`
	Severity        Severity     `json:"severity"`
	ConfidenceScore float64      `json:"confidence_score"`
	Status          BreakStatus  `json:"status"`
	Description     string       `json:"description,omitempty"`
	Details         BreakDetail  `json:"details,omitempty"`

	// Match is set for breaks detected on a matched pair.
	Match *MatchRecord `json:"match,omitempty"`
	// Record is set for unmatched breaks.
	Record *TransactionRecord `json:"record,omitempty"`
}

// Validate performs basic validation on the BreakRecord
func (b *BreakRecord) Validate() error {
	if !b.BreakType.IsValid() {
		return fmt.Errorf("invalid break type: %s", b.BreakType)
	}

	if b.Severity.Rank() == 0 {
		return fmt.Errorf("invalid severity: %s", b.Severity)
	}

	if b.ConfidenceScore < 0.0 || b.ConfidenceScore > 1.0 {
		return fmt.Errorf("confidence score must be between 0.0 and 1.0, got %f", b.ConfidenceScore)
	}

	if b.BreakType == BreakUnmatched {
		if b.Record == nil {
			return fmt.Errorf("unmatched break must reference a record")
		}
	} else if b.Match == nil {
		return fmt.Errorf("%s break must reference a match", b.BreakType)
	}

	if b.Details != nil && b.Details.DetailType() != b.BreakType {
		return fmt.Errorf("detail payload type %s does not match break type %s",
			b.Details.DetailType(), b.BreakType)
	}

	return nil
}

// SecurityIdentifier returns the security identifier the break concerns,
// preferring the feed-A side. Used to key historical statistics lookups.
func (b *BreakRecord) SecurityIdentifier() string {
	if b.Match != nil && b.Match.RecordA != nil {
		return b.Match.RecordA.PrimarySecurityIdentifier()
	}
	if b.Record != nil {
		return b.Record.PrimarySecurityIdentifier()
	}
	return ""
}

// String returns a string representation of the BreakRecord
func (b *BreakRecord) String() string {
	return fmt.Sprintf("BreakRecord{Type: %s, Severity: %s, Confidence: %.2f, Status: %s}",
		b.BreakType, b.Severity, b.ConfidenceScore, b.Status)
}

// breakRecordJSON is the wire shape of BreakRecord; the detail payload is
// serialized under a key named after the break type so the union round-trips.
type breakRecordJSON struct {
	ID              string             `json:"id"`
	BreakType       BreakType          `json:"break_type"`
	Severity        Severity           `json:"severity"`
	ConfidenceScore float64            `json:"confidence_score"`
	Status          BreakStatus        `json:"status"`
	Description     string             `json:"description,omitempty"`
	Details         json.RawMessage    `json:"details,omitempty"`
	Match           *MatchRecord       `json:"match,omitempty"`
	Record          *TransactionRecord `json:"record,omitempty"`
}

// MarshalJSON implements custom JSON marshaling for the detail union
func (b *BreakRecord) MarshalJSON() ([]byte, error) {
	aux := breakRecordJSON{
		ID:              b.ID,
		BreakType:       b.BreakType,
		Severity:        b.Severity,
		ConfidenceScore: b.ConfidenceScore,
		Status:          b.Status,
		Description:     b.Description,
		Match:           b.Match,
		Record:          b.Record,
	}

	if b.Details != nil {
		raw, err := json.Marshal(b.Details)
		if err != nil {
			return nil, err
		}
		aux.Details = raw
	}

	return json.Marshal(aux)
}

// UnmarshalJSON implements custom JSON unmarshaling for the detail union
func (b *BreakRecord) UnmarshalJSON(data []byte) error {
	var aux breakRecordJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	b.ID = aux.ID
	b.BreakType = aux.BreakType
	b.Severity = aux.Severity
	b.ConfidenceScore = aux.ConfidenceScore
	b.Status = aux.Status
	b.Description = aux.Description
	b.Match = aux.Match
	b.Record = aux.Record

	if len(aux.Details) == 0 {
		return nil
	}

	detail, err := decodeBreakDetail(aux.BreakType, aux.Details)
	if err != nil {
		return err
	}
	b.Details = detail

	return nil
}

func decodeBreakDetail(bt BreakType, raw json.RawMessage) (BreakDetail, error) {
	var detail BreakDetail

	switch bt {
	case BreakSecurityID:
		detail = &SecurityIDDetails{}
	case BreakCoupon:
		detail = &CouponDetails{}
	case BreakMarketPrice:
		detail = &PriceDetails{}
	case BreakDate:
		detail = &DateDetails{}
	case BreakFXRate:
		detail = &FXRateDetails{}
	case BreakUnmatched:
		detail = &UnmatchedDetails{}
	default:
		return nil, fmt.Errorf("unknown break type %q in detail payload", bt)
	}

	if err := json.Unmarshal(raw, detail); err != nil {
		return nil, fmt.Errorf("invalid %s detail payload: %w", bt, err)
	}

	return detail, nil
}
