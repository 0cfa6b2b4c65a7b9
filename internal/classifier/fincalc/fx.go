package fincalc

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RatePair keys a currency pair in a RateTable.
type RatePair struct {
	Base  string
	Quote string
}

// RateTable is a read-only snapshot of reference FX rates, supplied before
// a run starts. It is keyed by (base, quote) currency pair.
type RateTable map[RatePair]decimal.Decimal

// Rate returns the rate for a pair, checking the inverse pair as a
// fallback, and reports whether any rate was found.
func (t RateTable) Rate(base, quote string) (decimal.Decimal, bool) {
	if t == nil {
		return decimal.Zero, false
	}

	if rate, ok := t[RatePair{Base: base, Quote: quote}]; ok {
		return rate, true
	}

	if inverse, ok := t[RatePair{Base: quote, Quote: base}]; ok && !inverse.IsZero() {
		return decimal.NewFromInt(1).Div(inverse), true
	}

	return decimal.Zero, false
}

// CrossRate derives the base→quote rate via an intermediate currency,
// typically USD: base→via multiplied by via→quote.
func (t RateTable) CrossRate(base, quote, via string) (decimal.Decimal, bool) {
	baseVia, ok := t.Rate(base, via)
	if !ok {
		return decimal.Zero, false
	}

	viaQuote, ok := t.Rate(via, quote)
	if !ok {
		return decimal.Zero, false
	}

	return baseVia.Mul(viaQuote), true
}

// CrossRateDeviation measures how far an observed rate sits from the
// cross rate implied by the reference table through the via currency,
// as a signed fraction of the implied rate. A deviation beyond the
// market's triangular-arbitrage bounds indicates a bad rate. Returns an
// error when the table cannot produce an implied rate or it is zero.
func CrossRateDeviation(observed decimal.Decimal, base, quote, via string, table RateTable) (decimal.Decimal, error) {
	implied, ok := table.CrossRate(base, quote, via)
	if !ok {
		return decimal.Zero, fmt.Errorf("no reference cross rate for %s/%s via %s", base, quote, via)
	}

	if implied.IsZero() {
		return decimal.Zero, fmt.Errorf("implied cross rate for %s/%s via %s is zero", base, quote, via)
	}

	return observed.Sub(implied).Div(implied), nil
}
