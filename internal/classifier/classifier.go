package classifier

import (
	"fmt"

	"golang-trade-reconciliation-engine/internal/classifier/fincalc"
	"golang-trade-reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Classifier runs the break detectors over a matching result. It holds
// configuration plus optional read-only snapshots supplied before the run;
// it is safe for concurrent use across independent runs.
type Classifier struct {
	config *Config

	// priceStats maps security identifiers to historical price series
	// statistics. Optional; when present the market price detector
	// annotates breaks with a z-score.
	priceStats map[string]fincalc.SeriesStats

	// referenceRates is an optional FX reference rate table. When
	// present the FX detector annotates breaks with the deviation from
	// the implied cross rate via USD.
	referenceRates fincalc.RateTable
}

// Option configures optional Classifier inputs.
type Option func(*Classifier)

// WithPriceStats supplies a pre-computed price history snapshot keyed by
// security identifier.
func WithPriceStats(stats map[string]fincalc.SeriesStats) Option {
	return func(c *Classifier) {
		c.priceStats = stats
	}
}

// WithReferenceRates supplies a pre-fetched FX reference rate table.
func WithReferenceRates(rates fincalc.RateTable) Option {
	return func(c *Classifier) {
		c.referenceRates = rates
	}
}

// New creates a classifier with the given configuration, falling back to
// defaults when nil.
func New(config *Config, opts ...Option) *Classifier {
	if config == nil {
		config = DefaultConfig()
	}

	c := &Classifier{config: config.Clone()}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Classify evaluates every detector against every match, in fixed detector
// order, then emits one unmatched break per residual record. The output
// order is fully determined by the input order.
func (c *Classifier) Classify(matches []*models.MatchRecord, unmatched models.UnmatchedSet) ([]*models.BreakRecord, error) {
	if err := c.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classifier configuration: %w", err)
	}

	var breaks []*models.BreakRecord

	for _, match := range matches {
		if br := c.detectSecurityID(match); br != nil {
			breaks = append(breaks, br)
		}
		if br := c.detectCouponDifference(match); br != nil {
			breaks = append(breaks, br)
		}
		if br := c.detectPriceDifference(match); br != nil {
			breaks = append(breaks, br)
		}
		if br := c.detectDateDifference(match); br != nil {
			breaks = append(breaks, br)
		}
		if br := c.detectFXRateDifference(match); br != nil {
			breaks = append(breaks, br)
		}
	}

	for _, record := range unmatched.UnmatchedA {
		breaks = append(breaks, c.unmatchedBreak(record, models.FeedA))
	}
	for _, record := range unmatched.UnmatchedB {
		breaks = append(breaks, c.unmatchedBreak(record, models.FeedB))
	}

	return breaks, nil
}

// Config returns a copy of the classifier configuration
func (c *Classifier) Config() *Config {
	return c.config.Clone()
}

// detectSecurityID fires when the primary security identifiers differ, or,
// failing that, when only the SEDOL differs. The primary check takes
// precedence so one rule yields at most one break.
func (c *Classifier) detectSecurityID(match *models.MatchRecord) *models.BreakRecord {
	a, b := match.RecordA, match.RecordB

	primaryMismatch := fieldsDiffer(a.SecurityID, b.SecurityID) ||
		fieldsDiffer(a.ISIN, b.ISIN) ||
		fieldsDiffer(a.CUSIP, b.CUSIP)

	mismatchType := ""
	if primaryMismatch {
		mismatchType = "primary"
	} else if fieldsDiffer(a.SEDOL, b.SEDOL) {
		mismatchType = "sedol"
	}

	if mismatchType == "" {
		return nil
	}

	return &models.BreakRecord{
		ID:              breakID(models.BreakSecurityID, match.ID),
		BreakType:       models.BreakSecurityID,
		Severity:        models.SeverityHigh,
		ConfidenceScore: 1.0,
		Status:          models.BreakStatusOpen,
		Description:     fmt.Sprintf("security identifier mismatch (%s)", mismatchType),
		Match:           match,
		Details: &models.SecurityIDDetails{
			MismatchType: mismatchType,
			SecurityIDA:  a.SecurityID,
			SecurityIDB:  b.SecurityID,
			ISINA:        a.ISIN,
			ISINB:        b.ISIN,
			CUSIPA:       a.CUSIP,
			CUSIPB:       b.CUSIP,
			SEDOLA:       a.SEDOL,
			SEDOLB:       b.SEDOL,
		},
	}
}

// detectCouponDifference fires when the amounts differ beyond the absolute
// tolerance. Severity escalates with the difference as a percentage of the
// larger amount.
func (c *Classifier) detectCouponDifference(match *models.MatchRecord) *models.BreakRecord {
	a, b := match.RecordA, match.RecordB

	diff := a.Amount.Sub(b.Amount).Abs()
	if !diff.GreaterThan(c.config.AmountTolerance) {
		return nil
	}

	larger := decimal.Max(a.Amount.Abs(), b.Amount.Abs())
	if larger.IsZero() {
		return nil
	}

	pct, _ := diff.Div(larger).Mul(decimal.NewFromInt(100)).Float64()

	severity := models.SeverityLow
	switch {
	case pct > c.config.CouponHighPct:
		severity = models.SeverityHigh
	case pct > c.config.CouponMedPct:
		severity = models.SeverityMedium
	}

	details := &models.CouponDetails{
		AmountA:       a.Amount,
		AmountB:       b.Amount,
		Difference:    diff,
		DifferencePct: pct,
		DayCountHint:  dayCountHint(a, b),
	}

	return &models.BreakRecord{
		ID:              breakID(models.BreakCoupon, match.ID),
		BreakType:       models.BreakCoupon,
		Severity:        severity,
		ConfidenceScore: 0.8,
		Status:          models.BreakStatusOpen,
		Description:     fmt.Sprintf("coupon amount differs by %s (%.2f%%)", diff.String(), pct),
		Match:           match,
		Details:         details,
	}
}

// detectPriceDifference fires when both records carry a market price and
// the difference strictly exceeds 1% (configurable) of the larger price.
func (c *Classifier) detectPriceDifference(match *models.MatchRecord) *models.BreakRecord {
	a, b := match.RecordA, match.RecordB
	if !a.HasMarketPrice() || !b.HasMarketPrice() {
		return nil
	}

	priceA, priceB := *a.MarketPrice, *b.MarketPrice
	larger := decimal.Max(priceA.Abs(), priceB.Abs())
	if larger.IsZero() {
		return nil
	}

	tolerance := larger.Mul(c.config.PriceTolerancePct)
	diff := priceA.Sub(priceB).Abs()
	if !diff.GreaterThan(tolerance) {
		return nil
	}

	pct, _ := diff.Div(larger).Mul(decimal.NewFromInt(100)).Float64()

	severity := models.SeverityLow
	switch {
	case pct > c.config.PriceHighPct:
		severity = models.SeverityHigh
	case pct > c.config.PriceMedPct:
		severity = models.SeverityMedium
	}

	details := &models.PriceDetails{
		PriceA:        priceA,
		PriceB:        priceB,
		Difference:    diff,
		Tolerance:     tolerance,
		DifferencePct: pct,
	}

	if stats, ok := c.priceStats[a.PrimarySecurityIdentifier()]; ok {
		observed, _ := priceA.Float64()
		if z, err := stats.ZScore(observed); err == nil {
			details.ZScore = &z
		}
	}

	return &models.BreakRecord{
		ID:              breakID(models.BreakMarketPrice, match.ID),
		BreakType:       models.BreakMarketPrice,
		Severity:        severity,
		ConfidenceScore: 0.9,
		Status:          models.BreakStatusOpen,
		Description:     fmt.Sprintf("market price differs by %s (%.2f%%), tolerance %s", diff.String(), pct, tolerance.String()),
		Match:           match,
		Details:         details,
	}
}

// detectDateDifference fires when both trade dates are present, differ,
// and are more than the tolerance apart in whole days.
func (c *Classifier) detectDateDifference(match *models.MatchRecord) *models.BreakRecord {
	a, b := match.RecordA, match.RecordB
	if !a.HasTradeDate() || !b.HasTradeDate() {
		return nil
	}

	deltaDays := models.DaysBetween(*a.TradeDate, *b.TradeDate)
	if deltaDays <= c.config.DateToleranceDays {
		return nil
	}

	severity := models.SeverityLow
	switch {
	case deltaDays > c.config.DateHighDays:
		severity = models.SeverityHigh
	case deltaDays > c.config.DateMedDays:
		severity = models.SeverityMedium
	}

	return &models.BreakRecord{
		ID:              breakID(models.BreakDate, match.ID),
		BreakType:       models.BreakDate,
		Severity:        severity,
		ConfidenceScore: 0.8,
		Status:          models.BreakStatusOpen,
		Description:     fmt.Sprintf("trade dates differ by %d days", deltaDays),
		Match:           match,
		Details: &models.DateDetails{
			TradeDateA: *a.TradeDate,
			TradeDateB: *b.TradeDate,
			DeltaDays:  deltaDays,
		},
	}
}

// detectFXRateDifference fires when both records carry an FX rate and the
// difference strictly exceeds 0.5% (configurable) of the larger rate.
func (c *Classifier) detectFXRateDifference(match *models.MatchRecord) *models.BreakRecord {
	a, b := match.RecordA, match.RecordB
	if !a.HasFXRate() || !b.HasFXRate() {
		return nil
	}

	rateA, rateB := *a.FXRate, *b.FXRate
	larger := decimal.Max(rateA.Abs(), rateB.Abs())
	if larger.IsZero() {
		return nil
	}

	tolerance := larger.Mul(c.config.FXTolerancePct)
	diff := rateA.Sub(rateB).Abs()
	if !diff.GreaterThan(tolerance) {
		return nil
	}

	details := &models.FXRateDetails{
		RateA:      rateA,
		RateB:      rateB,
		Difference: diff,
		Tolerance:  tolerance,
	}

	if a.FXCurrency != "" && a.Currency != "" && a.Currency != a.FXCurrency {
		deviation, err := fincalc.CrossRateDeviation(rateA, a.Currency, a.FXCurrency, "USD", c.referenceRates)
		if err == nil {
			details.CrossRateDeviation = &deviation
		}
	}

	return &models.BreakRecord{
		ID:              breakID(models.BreakFXRate, match.ID),
		BreakType:       models.BreakFXRate,
		Severity:        models.SeverityHigh,
		ConfidenceScore: 0.9,
		Status:          models.BreakStatusOpen,
		Description:     fmt.Sprintf("fx rate differs by %s, tolerance %s", diff.String(), tolerance.String()),
		Match:           match,
		Details:         details,
	}
}

// unmatchedBreak emits the single break every residual record yields
func (c *Classifier) unmatchedBreak(record *models.TransactionRecord, feed models.Feed) *models.BreakRecord {
	return &models.BreakRecord{
		ID: breakID(models.BreakUnmatched,
			string(feed), record.ExternalID, record.Amount.String(), record.Currency),
		BreakType:       models.BreakUnmatched,
		Severity:        models.SeverityMedium,
		ConfidenceScore: 0.9,
		Status:          models.BreakStatusOpen,
		Description:     fmt.Sprintf("feed-%s record %s has no counterpart", feed, record.ExternalID),
		Record:          record,
		Details: &models.UnmatchedDetails{
			Feed:       feed,
			ExternalID: record.ExternalID,
		},
	}
}

// dayCountHint names the day-count basis whose accrual fraction best
// explains the ratio between the two amounts, when both records span the
// same trade-to-settlement period. Empty when no basis explains it.
func dayCountHint(a, b *models.TransactionRecord) string {
	if !a.HasTradeDate() || a.SettlementDate == nil || b.Amount.IsZero() {
		return ""
	}

	ratio, _ := a.Amount.Div(b.Amount).Float64()
	if ratio <= 0 {
		return ""
	}

	const hintTolerance = 1e-4

	for _, conv := range fincalc.Conventions() {
		for _, other := range fincalc.Conventions() {
			if conv == other {
				continue
			}

			fracA, errA := fincalc.YearFraction(*a.TradeDate, *a.SettlementDate, conv)
			fracB, errB := fincalc.YearFraction(*a.TradeDate, *a.SettlementDate, other)
			if errA != nil || errB != nil || fracB == 0 {
				continue
			}

			if diff := ratio - fracA/fracB; diff < hintTolerance && diff > -hintTolerance {
				return fmt.Sprintf("%s vs %s", conv, other)
			}
		}
	}

	return ""
}

// fieldsDiffer reports a mismatch only when both sides carry a value
func fieldsDiffer(a, b string) bool {
	return a != "" && b != "" && a != b
}

func breakID(bt models.BreakType, parts ...string) string {
	all := append([]string{"break", string(bt)}, parts...)
	return models.DeterministicID(all...)
}
