// Package models defines the core data model for trade reconciliation:
// transaction records from both feeds, match records, break records with
// typed per-category detail payloads, proposed corrective actions and
// simulated journal entries.
//
// All monetary values use decimal arithmetic to avoid floating point
// rounding issues. Dates carry date-only semantics (midnight UTC).
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Feed identifies which side of the reconciliation a record came from.
type Feed string

const (
	// FeedA is the internal side, typically the firm's own trade records.
	FeedA Feed = "A"
	// FeedB is the external side, typically counterparty or custodian records.
	FeedB Feed = "B"
)

// String returns the string representation of Feed
func (f Feed) String() string {
	return string(f)
}

// IsValid checks if the feed identifier is valid
func (f Feed) IsValid() bool {
	return f == FeedA || f == FeedB
}

// TransactionRecord is an immutable transaction record from one feed.
// External identifiers are feed-scoped and may be absent or non-unique
// across feeds; optional fields are pointers and nil when not supplied.
// Records arrive from the ingestion collaborator with currency already
// uppercased and dates already parsed.
type TransactionRecord struct {
	ExternalID     string           `json:"external_id"`
	Feed           Feed             `json:"feed,omitempty"`
	Amount         decimal.Decimal  `json:"amount"`
	Currency       string           `json:"currency"`
	Quantity       *decimal.Decimal `json:"quantity,omitempty"`
	SecurityID     string           `json:"security_id,omitempty"`
	ISIN           string           `json:"isin,omitempty"`
	CUSIP          string           `json:"cusip,omitempty"`
	SEDOL          string           `json:"sedol,omitempty"`
	TradeDate      *time.Time       `json:"trade_date,omitempty"`
	SettlementDate *time.Time       `json:"settlement_date,omitempty"`
	FXRate         *decimal.Decimal `json:"fx_rate,omitempty"`
	FXCurrency     string           `json:"fx_currency,omitempty"`
	MarketPrice    *decimal.Decimal `json:"market_price,omitempty"`
	MarketValue    *decimal.Decimal `json:"market_value,omitempty"`
}

// Validate performs basic validation on the TransactionRecord.
// A record failing validation is excluded from matching; the run continues.
func (r *TransactionRecord) Validate() error {
	if strings.TrimSpace(r.ExternalID) == "" && r.SecurityID == "" && r.ISIN == "" {
		return fmt.Errorf("record must carry an external ID or a security identifier")
	}

	if len(r.Currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter code, got %q", r.Currency)
	}

	if r.Currency != strings.ToUpper(r.Currency) {
		return fmt.Errorf("currency must be uppercase, got %q", r.Currency)
	}

	if r.Quantity != nil && r.Quantity.IsNegative() {
		return fmt.Errorf("quantity cannot be negative: %s", r.Quantity.String())
	}

	if r.FXRate != nil && !r.FXRate.IsPositive() {
		return fmt.Errorf("fx rate must be positive: %s", r.FXRate.String())
	}

	if r.MarketPrice != nil && r.MarketPrice.IsNegative() {
		return fmt.Errorf("market price cannot be negative: %s", r.MarketPrice.String())
	}

	return nil
}

// String returns a string representation of the TransactionRecord
func (r *TransactionRecord) String() string {
	tradeDate := "-"
	if r.TradeDate != nil {
		tradeDate = r.TradeDate.Format("2006-01-02")
	}
	return fmt.Sprintf("TransactionRecord{ID: %s, Amount: %s %s, Security: %s, TradeDate: %s}",
		r.ExternalID, r.Amount.String(), r.Currency, r.SecurityID, tradeDate)
}

// HasTradeDate reports whether the record carries a trade date
func (r *TransactionRecord) HasTradeDate() bool {
	return r.TradeDate != nil && !r.TradeDate.IsZero()
}

// HasMarketPrice reports whether the record carries a market price
func (r *TransactionRecord) HasMarketPrice() bool {
	return r.MarketPrice != nil
}

// HasFXRate reports whether the record carries an FX rate
func (r *TransactionRecord) HasFXRate() bool {
	return r.FXRate != nil
}

// PrimarySecurityIdentifier returns the strongest security identifier
// present on the record, preferring security_id, then ISIN, then CUSIP.
func (r *TransactionRecord) PrimarySecurityIdentifier() string {
	if r.SecurityID != "" {
		return r.SecurityID
	}
	if r.ISIN != "" {
		return r.ISIN
	}
	return r.CUSIP
}

// MarshalJSON implements custom JSON marshaling so dates render date-only
func (r *TransactionRecord) MarshalJSON() ([]byte, error) {
	type Alias TransactionRecord
	aux := &struct {
		TradeDate      string `json:"trade_date,omitempty"`
		SettlementDate string `json:"settlement_date,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if r.TradeDate != nil {
		aux.TradeDate = r.TradeDate.Format("2006-01-02")
	}
	if r.SettlementDate != nil {
		aux.SettlementDate = r.SettlementDate.Format("2006-01-02")
	}

	return json.Marshal(aux)
}

// UnmarshalJSON implements custom JSON unmarshaling with flexible date formats
func (r *TransactionRecord) UnmarshalJSON(data []byte) error {
	type Alias TransactionRecord
	aux := &struct {
		TradeDate      string `json:"trade_date"`
		SettlementDate string `json:"settlement_date"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.TradeDate != "" {
		d, err := ParseDate(aux.TradeDate)
		if err != nil {
			return fmt.Errorf("invalid trade date: %w", err)
		}
		r.TradeDate = &d
	}

	if aux.SettlementDate != "" {
		d, err := ParseDate(aux.SettlementDate)
		if err != nil {
			return fmt.Errorf("invalid settlement date: %w", err)
		}
		r.SettlementDate = &d
	}

	return nil
}

// MatchType classifies how a pair of records was matched.
type MatchType string

const (
	// MatchDeterministic marks pairs consumed by an exact-match rule.
	MatchDeterministic MatchType = "deterministic"
	// MatchProbabilistic marks pairs consumed by similarity scoring.
	MatchProbabilistic MatchType = "probabilistic"
)

// String returns the string representation of MatchType
func (mt MatchType) String() string {
	return string(mt)
}

// IsValid checks if the match type is valid
func (mt MatchType) IsValid() bool {
	return mt == MatchDeterministic || mt == MatchProbabilistic
}

// MatchRecord pairs exactly one feed-A record with one feed-B record.
// Every TransactionRecord participates in at most one MatchRecord.
type MatchRecord struct {
	ID               string             `json:"id"`
	RecordA          *TransactionRecord `json:"record_a"`
	RecordB          *TransactionRecord `json:"record_b"`
	MatchType        MatchType          `json:"match_type"`
	ConfidenceScore  float64            `json:"confidence_score"`
	MatchingCriteria []string           `json:"matching_criteria"`
	Reason           string             `json:"reason,omitempty"`
}

// Validate performs basic validation on the MatchRecord.
// A match failing validation is dropped and recorded in the error list.
func (m *MatchRecord) Validate() error {
	if m.RecordA == nil {
		return fmt.Errorf("match is missing the feed-A record")
	}

	if m.RecordB == nil {
		return fmt.Errorf("match is missing the feed-B record")
	}

	if !m.MatchType.IsValid() {
		return fmt.Errorf("invalid match type: %s", m.MatchType)
	}

	if m.ConfidenceScore < 0.0 || m.ConfidenceScore > 1.0 {
		return fmt.Errorf("confidence score must be between 0.0 and 1.0, got %f", m.ConfidenceScore)
	}

	if len(m.MatchingCriteria) == 0 {
		return fmt.Errorf("match must carry at least one matching criterion")
	}

	return nil
}

// String returns a string representation of the MatchRecord
func (m *MatchRecord) String() string {
	return fmt.Sprintf("MatchRecord{Type: %s, Confidence: %.2f, A: %s, B: %s}",
		m.MatchType, m.ConfidenceScore, m.RecordA.ExternalID, m.RecordB.ExternalID)
}

// UnmatchedSet holds the residual records from both feeds after matching.
// Together with the matches it forms a strict partition of the input:
// every input record is in exactly one of a match, UnmatchedA or UnmatchedB.
type UnmatchedSet struct {
	UnmatchedA []*TransactionRecord `json:"unmatched_a"`
	UnmatchedB []*TransactionRecord `json:"unmatched_b"`
}

// Size returns the total number of unmatched records on both sides
func (u *UnmatchedSet) Size() int {
	return len(u.UnmatchedA) + len(u.UnmatchedB)
}

// ParseDate parses a date string using the formats commonly seen in feed
// extracts, returning a date-only time at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	formats := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"01/02/2006",
		"2006/01/02",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return DateOnly(t), nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date %q: %w", s, lastErr)
}

// DateOnly truncates a time to its date at midnight UTC
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the absolute whole-day difference between two dates
func DaysBetween(a, b time.Time) int {
	diff := DateOnly(a).Sub(DateOnly(b))
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}

// Date constructs a date-only time, convenient for fixtures and callers
// that hold year/month/day components.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
