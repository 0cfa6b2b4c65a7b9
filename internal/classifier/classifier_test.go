package classifier

import (
	"testing"
	"time"

	"golang-trade-reconciliation-engine/internal/classifier/fincalc"
	"golang-trade-reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

func decimalPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := models.Date(year, month, day)
	return &d
}

func matchOf(a, b *models.TransactionRecord) *models.MatchRecord {
	return &models.MatchRecord{
		ID:               models.DeterministicID("test-match", a.ExternalID, b.ExternalID),
		RecordA:          a,
		RecordB:          b,
		MatchType:        models.MatchDeterministic,
		ConfidenceScore:  1.0,
		MatchingCriteria: []string{"exact_match"},
	}
}

func classify(t *testing.T, c *Classifier, matches []*models.MatchRecord, unmatched models.UnmatchedSet) []*models.BreakRecord {
	t.Helper()
	breaks, err := c.Classify(matches, unmatched)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	return breaks
}

func breaksOfType(breaks []*models.BreakRecord, bt models.BreakType) []*models.BreakRecord {
	var out []*models.BreakRecord
	for _, b := range breaks {
		if b.BreakType == bt {
			out = append(out, b)
		}
	}
	return out
}

func TestClassifier_CleanMatchYieldsNoBreaks(t *testing.T) {
	c := New(nil)

	a := &models.TransactionRecord{
		ExternalID: "A1", Amount: decimal.NewFromFloat(1000.00), Currency: "USD",
		SecurityID: "SEC-1", TradeDate: datePtr(2024, time.January, 10),
	}
	b := &models.TransactionRecord{
		ExternalID: "B1", Amount: decimal.NewFromFloat(1000.00), Currency: "USD",
		SecurityID: "SEC-1", TradeDate: datePtr(2024, time.January, 10),
	}

	breaks := classify(t, c, []*models.MatchRecord{matchOf(a, b)}, models.UnmatchedSet{})
	if len(breaks) != 0 {
		t.Errorf("Expected zero breaks for a clean match, got %d", len(breaks))
	}
}

func TestClassifier_SecurityIDBreak(t *testing.T) {
	c := New(nil)

	t.Run("primary identifier mismatch", func(t *testing.T) {
		a := &models.TransactionRecord{ExternalID: "A1", Amount: decimal.NewFromInt(100), Currency: "USD", SecurityID: "SEC-1"}
		b := &models.TransactionRecord{ExternalID: "B1", Amount: decimal.NewFromInt(100), Currency: "USD", SecurityID: "SEC-2"}

		breaks := classify(t, c, []*models.MatchRecord{matchOf(a, b)}, models.UnmatchedSet{})
		secBreaks := breaksOfType(breaks, models.BreakSecurityID)
		if len(secBreaks) != 1 {
			t.Fatalf("Expected 1 security ID break, got %d", len(secBreaks))
		}

		br := secBreaks[0]
		if br.Severity != models.SeverityHigh {
			t.Errorf("Expected high severity, got %s", br.Severity)
		}
		if br.ConfidenceScore != 1.0 {
			t.Errorf("Expected confidence 1.0, got %f", br.ConfidenceScore)
		}

		details := br.Details.(*models.SecurityIDDetails)
		if details.MismatchType != "primary" {
			t.Errorf("Expected primary mismatch, got %s", details.MismatchType)
		}
	})

	t.Run("sedol-only mismatch", func(t *testing.T) {
		a := &models.TransactionRecord{ExternalID: "A1", Amount: decimal.NewFromInt(100), Currency: "USD", SecurityID: "SEC-1", SEDOL: "B000001"}
		b := &models.TransactionRecord{ExternalID: "B1", Amount: decimal.NewFromInt(100), Currency: "USD", SecurityID: "SEC-1", SEDOL: "B000002"}

		breaks := classify(t, c, []*models.MatchRecord{matchOf(a, b)}, models.UnmatchedSet{})
		secBreaks := breaksOfType(breaks, models.BreakSecurityID)
		if len(secBreaks) != 1 {
			t.Fatalf("Expected 1 security ID break, got %d", len(secBreaks))
		}

		details := secBreaks[0].Details.(*models.SecurityIDDetails)
		if details.MismatchType != "sedol" {
			t.Errorf("Expected sedol mismatch, got %s", details.MismatchType)
		}
		if secBreaks[0].Severity != models.SeverityHigh {
			t.Errorf("Expected high severity, got %s", secBreaks[0].Severity)
		}
	})

	t.Run("one-sided identifier is not a mismatch", func(t *testing.T) {
		a := &models.TransactionRecord{ExternalID: "A1", Amount: decimal.NewFromInt(100), Currency: "USD", SecurityID: "SEC-1"}
		b := &models.TransactionRecord{ExternalID: "B1", Amount: decimal.NewFromInt(100), Currency: "USD"}

		breaks := classify(t, c, []*models.MatchRecord{matchOf(a, b)}, models.UnmatchedSet{})
		if len(breaksOfType(breaks, models.BreakSecurityID)) != 0 {
			t.Error("Expected no break when only one side carries the identifier")
		}
	})
}

func TestClassifier_CouponBreakSeverity(t *testing.T) {
	c := New(nil)

	tests := []struct {
		name     string
		amountA  float64
		amountB  float64
		severity models.Severity
	}{
		{"above 20 percent is high", 1000.00, 750.00, models.SeverityHigh},
		{"between 10 and 20 percent is medium", 1000.00, 850.00, models.SeverityMedium},
		{"below 10 percent is low", 1000.00, 950.00, models.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &models.TransactionRecord{ExternalID: "A1", Amount: decimal.NewFromFloat(tt.amountA), Currency: "USD"}
			b := &models.TransactionRecord{ExternalID: "B1", Amount: decimal.NewFromFloat(tt.amountB), Currency: "USD"}

			breaks := classify(t, c, []*models.MatchRecord{matchOf(a, b)}, models.UnmatchedSet{})
			couponBreaks := breaksOfType(breaks, models.BreakCoupon)
			if len(couponBreaks) != 1 {
				t.Fatalf("Expected 1 coupon break, got %d", len(couponBreaks))
			}

			br := couponBreaks[0]
			if br.Severity != tt.severity {
				t.Errorf("Expected severity %s, got %s", tt.severity, br.Severity)
			}
			if br.ConfidenceScore != 0.8 {
				t.Errorf("Expected confidence 0.8, got %f", br.ConfidenceScore)
			}
		})
	}

	t.Run("difference within tolerance is not a break", func(t *testing.T) {
		a := &models.TransactionRecord{ExternalID: "A1", Amount: decimal.NewFromFloat(1000.00), Currency: "USD"}
		b := &models.TransactionRecord{ExternalID: "B1", Amount: decimal.NewFromFloat(1000.01), Currency: "USD"}

		breaks := classify(t, c, []*models.MatchRecord{matchOf(a, b)}, models.UnmatchedSet{})
		if len(breaksOfType(breaks, models.BreakCoupon)) != 0 {
			t.Error("Expected no coupon break at exactly the tolerance")
		}
	})
}

func TestClassifier_PriceBreak(t *testing.T) {
	c := New(nil)

	priceMatch := func(priceA, priceB float64) *models.MatchRecord {
		a := &models.TransactionRecord{
			ExternalID: "A1", Amount: decimal.NewFromInt(100), Currency: "USD",
			SecurityID: "SEC-1", MarketPrice: decimalPtr(priceA),
		}
		b := &models.TransactionRecord{
			ExternalID: "B1", Amount: decimal.NewFromInt(100), Currency: "USD",
			SecurityID: "SEC-1", MarketPrice: decimalPtr(priceB),
		}
		return matchOf(a, b)
	}

	t.Run("six percent difference is a high severity break", func(t *testing.T) {
		// Scenario: 100.00 vs 106.00 is a 5.66% difference of the larger price.
		breaks := classify(t, c, []*models.MatchRecord{priceMatch(100.00, 106.00)}, models.UnmatchedSet{})
		priceBreaks := breaksOfType(breaks, models.BreakMarketPrice)
		if len(priceBreaks) != 1 {
			t.Fatalf("Expected 1 price break, got %d", len(priceBreaks))
		}

		br := priceBreaks[0]
		if br.Severity != models.SeverityHigh {
			t.Errorf("Expected high severity, got %s", br.Severity)
		}
		if br.ConfidenceScore != 0.9 {
			t.Errorf("Expected confidence 0.9, got %f", br.ConfidenceScore)
		}
	})

	t.Run("difference exactly at tolerance does not fire", func(t *testing.T) {
		// Tolerance is 1% of the larger price: 1.00 for a 100.00 price.
		breaks := classify(t, c, []*models.MatchRecord{priceMatch(99.00, 100.00)}, models.UnmatchedSet{})
		if len(breaksOfType(breaks, models.BreakMarketPrice)) != 0 {
			t.Error("Expected no break at exactly 1% difference (strict >)")
		}
	})

	t.Run("difference just beyond tolerance fires", func(t *testing.T) {
		breaks := classify(t, c, []*models.MatchRecord{priceMatch(98.999999, 100.00)}, models.UnmatchedSet{})
		if len(breaksOfType(breaks, models.BreakMarketPrice)) != 1 {
			t.Error("Expected a break just beyond the 1% tolerance")
		}
	})

	t.Run("severity escalates across 2 and 5 percent", func(t *testing.T) {
		low := classify(t, c, []*models.MatchRecord{priceMatch(98.5, 100.00)}, models.UnmatchedSet{})
		medium := classify(t, c, []*models.MatchRecord{priceMatch(97.0, 100.00)}, models.UnmatchedSet{})
		high := classify(t, c, []*models.MatchRecord{priceMatch(94.0, 100.00)}, models.UnmatchedSet{})

		if breaksOfType(low, models.BreakMarketPrice)[0].Severity != models.SeverityLow {
			t.Error("Expected low severity at 1.5%")
		}
		if breaksOfType(medium, models.BreakMarketPrice)[0].Severity != models.SeverityMedium {
			t.Error("Expected medium severity at 3%")
		}
		if breaksOfType(high, models.BreakMarketPrice)[0].Severity != models.SeverityHigh {
			t.Error("Expected high severity at 6%")
		}
	})

	t.Run("missing price on either side skips the detector", func(t *testing.T) {
		a := &models.TransactionRecord{ExternalID: "A1", Amount: decimal.NewFromInt(100), Currency: "USD", MarketPrice: decimalPtr(100)}
		b := &models.TransactionRecord{ExternalID: "B1", Amount: decimal.NewFromInt(100), Currency: "USD"}

		breaks := classify(t, c, []*models.MatchRecord{matchOf(a, b)}, models.UnmatchedSet{})
		if len(breaksOfType(breaks, models.BreakMarketPrice)) != 0 {
			t.Error("Expected no price break when one side lacks a price")
		}
	})

	t.Run("price history snapshot annotates a z-score", func(t *testing.T) {
		stats, err := fincalc.NewSeriesStats([]float64{100, 101, 99, 100, 100})
		if err != nil {
			t.Fatalf("NewSeriesStats() error = %v", err)
		}

		annotated := New(nil, WithPriceStats(map[string]fincalc.SeriesStats{"SEC-1": stats}))
		breaks := classify(t, annotated, []*models.MatchRecord{priceMatch(110.00, 100.00)}, models.UnmatchedSet{})
		priceBreaks := breaksOfType(breaks, models.BreakMarketPrice)
		if len(priceBreaks) != 1 {
			t.Fatalf("Expected 1 price break, got %d", len(priceBreaks))
		}

		details := priceBreaks[0].Details.(*models.PriceDetails)
		if details.ZScore == nil {
			t.Fatal("Expected z-score annotation with price stats supplied")
		}
		if *details.ZScore <= 0 {
			t.Errorf("Expected positive z-score for elevated price, got %f", *details.ZScore)
		}

		// Without the snapshot the structural output is identical minus
		// the annotation.
		plain := classify(t, c, []*models.MatchRecord{priceMatch(110.00, 100.00)}, models.UnmatchedSet{})
		plainDetails := breaksOfType(plain, models.BreakMarketPrice)[0].Details.(*models.PriceDetails)
		if plainDetails.ZScore != nil {
			t.Error("Expected no z-score without a price history snapshot")
		}
	})
}

func TestClassifier_DateBreak(t *testing.T) {
	c := New(nil)

	dateMatch := func(dayA, dayB int) *models.MatchRecord {
		a := &models.TransactionRecord{
			ExternalID: "A1", Amount: decimal.NewFromInt(100), Currency: "USD",
			TradeDate: datePtr(2024, time.January, dayA),
		}
		b := &models.TransactionRecord{
			ExternalID: "B1", Amount: decimal.NewFromInt(100), Currency: "USD",
			TradeDate: datePtr(2024, time.January, dayB),
		}
		return matchOf(a, b)
	}

	t.Run("ten day difference is a high severity break", func(t *testing.T) {
		breaks := classify(t, c, []*models.MatchRecord{dateMatch(10, 20)}, models.UnmatchedSet{})
		dateBreaks := breaksOfType(breaks, models.BreakDate)
		if len(dateBreaks) != 1 {
			t.Fatalf("Expected 1 date break, got %d", len(dateBreaks))
		}

		br := dateBreaks[0]
		if br.Severity != models.SeverityHigh {
			t.Errorf("Expected high severity, got %s", br.Severity)
		}
		if br.ConfidenceScore != 0.8 {
			t.Errorf("Expected confidence 0.8, got %f", br.ConfidenceScore)
		}
		if br.Details.(*models.DateDetails).DeltaDays != 10 {
			t.Errorf("Expected delta of 10 days, got %d", br.Details.(*models.DateDetails).DeltaDays)
		}
	})

	t.Run("one day difference is within tolerance", func(t *testing.T) {
		breaks := classify(t, c, []*models.MatchRecord{dateMatch(10, 11)}, models.UnmatchedSet{})
		if len(breaksOfType(breaks, models.BreakDate)) != 0 {
			t.Error("Expected no date break for a 1-day difference")
		}
	})

	t.Run("severity ladder across 3 and 7 days", func(t *testing.T) {
		low := classify(t, c, []*models.MatchRecord{dateMatch(10, 12)}, models.UnmatchedSet{})
		medium := classify(t, c, []*models.MatchRecord{dateMatch(10, 15)}, models.UnmatchedSet{})
		high := classify(t, c, []*models.MatchRecord{dateMatch(10, 18)}, models.UnmatchedSet{})

		if breaksOfType(low, models.BreakDate)[0].Severity != models.SeverityLow {
			t.Error("Expected low severity at 2 days")
		}
		if breaksOfType(medium, models.BreakDate)[0].Severity != models.SeverityMedium {
			t.Error("Expected medium severity at 5 days")
		}
		if breaksOfType(high, models.BreakDate)[0].Severity != models.SeverityHigh {
			t.Error("Expected high severity at 8 days")
		}
	})
}

func TestClassifier_FXRateBreak(t *testing.T) {
	c := New(nil)

	fxMatch := func(rateA, rateB float64) *models.MatchRecord {
		a := &models.TransactionRecord{
			ExternalID: "A1", Amount: decimal.NewFromInt(100), Currency: "EUR",
			FXRate: decimalPtr(rateA), FXCurrency: "JPY",
		}
		b := &models.TransactionRecord{
			ExternalID: "B1", Amount: decimal.NewFromInt(100), Currency: "EUR",
			FXRate: decimalPtr(rateB), FXCurrency: "JPY",
		}
		return matchOf(a, b)
	}

	t.Run("difference beyond half a percent fires high", func(t *testing.T) {
		breaks := classify(t, c, []*models.MatchRecord{fxMatch(165.0, 167.0)}, models.UnmatchedSet{})
		fxBreaks := breaksOfType(breaks, models.BreakFXRate)
		if len(fxBreaks) != 1 {
			t.Fatalf("Expected 1 fx break, got %d", len(fxBreaks))
		}

		if fxBreaks[0].Severity != models.SeverityHigh {
			t.Errorf("Expected high severity, got %s", fxBreaks[0].Severity)
		}
		if fxBreaks[0].ConfidenceScore != 0.9 {
			t.Errorf("Expected confidence 0.9, got %f", fxBreaks[0].ConfidenceScore)
		}
	})

	t.Run("difference at tolerance does not fire", func(t *testing.T) {
		// Tolerance is 0.5% of the larger rate: 0.5 for a rate of 100.
		breaks := classify(t, c, []*models.MatchRecord{fxMatch(99.5, 100.0)}, models.UnmatchedSet{})
		if len(breaksOfType(breaks, models.BreakFXRate)) != 0 {
			t.Error("Expected no fx break at exactly the tolerance (strict >)")
		}
	})

	t.Run("reference rates annotate the cross-rate deviation", func(t *testing.T) {
		rates := fincalc.RateTable{
			{Base: "EUR", Quote: "USD"}: decimal.NewFromFloat(1.10),
			{Base: "USD", Quote: "JPY"}: decimal.NewFromFloat(150.0),
		}

		annotated := New(nil, WithReferenceRates(rates))
		breaks := classify(t, annotated, []*models.MatchRecord{fxMatch(180.0, 165.0)}, models.UnmatchedSet{})
		fxBreaks := breaksOfType(breaks, models.BreakFXRate)
		if len(fxBreaks) != 1 {
			t.Fatalf("Expected 1 fx break, got %d", len(fxBreaks))
		}

		details := fxBreaks[0].Details.(*models.FXRateDetails)
		if details.CrossRateDeviation == nil {
			t.Fatal("Expected cross-rate deviation with reference rates supplied")
		}
		if !details.CrossRateDeviation.IsPositive() {
			t.Errorf("Expected positive deviation for an inflated rate, got %s", details.CrossRateDeviation)
		}
	})
}

func TestClassifier_UnmatchedBreaks(t *testing.T) {
	c := New(nil)

	x1 := &models.TransactionRecord{ExternalID: "X1", Amount: decimal.NewFromFloat(999.99), Currency: "USD"}
	b9 := &models.TransactionRecord{ExternalID: "B9", Amount: decimal.NewFromFloat(50.00), Currency: "EUR"}

	breaks := classify(t, c, nil, models.UnmatchedSet{
		UnmatchedA: []*models.TransactionRecord{x1},
		UnmatchedB: []*models.TransactionRecord{b9},
	})

	if len(breaks) != 2 {
		t.Fatalf("Expected 2 unmatched breaks, got %d", len(breaks))
	}

	first := breaks[0]
	if first.BreakType != models.BreakUnmatched {
		t.Errorf("Expected unmatched break, got %s", first.BreakType)
	}
	if first.Severity != models.SeverityMedium {
		t.Errorf("Expected medium severity, got %s", first.Severity)
	}
	if first.ConfidenceScore != 0.9 {
		t.Errorf("Expected confidence 0.9, got %f", first.ConfidenceScore)
	}

	details := first.Details.(*models.UnmatchedDetails)
	if details.ExternalID != "X1" || details.Feed != models.FeedA {
		t.Errorf("Unexpected unmatched details: %+v", details)
	}

	second := breaks[1].Details.(*models.UnmatchedDetails)
	if second.ExternalID != "B9" || second.Feed != models.FeedB {
		t.Errorf("Unexpected unmatched details: %+v", second)
	}
}

func TestClassifier_MultipleBreaksPerMatchInFixedOrder(t *testing.T) {
	c := New(nil)

	a := &models.TransactionRecord{
		ExternalID: "A1", Amount: decimal.NewFromFloat(1000.00), Currency: "USD",
		SecurityID: "SEC-1", MarketPrice: decimalPtr(100.00),
		TradeDate: datePtr(2024, time.January, 10),
	}
	b := &models.TransactionRecord{
		ExternalID: "B1", Amount: decimal.NewFromFloat(800.00), Currency: "USD",
		SecurityID: "SEC-2", MarketPrice: decimalPtr(106.00),
		TradeDate: datePtr(2024, time.January, 20),
	}

	breaks := classify(t, c, []*models.MatchRecord{matchOf(a, b)}, models.UnmatchedSet{})
	if len(breaks) != 4 {
		t.Fatalf("Expected 4 breaks, got %d", len(breaks))
	}

	wantOrder := []models.BreakType{
		models.BreakSecurityID,
		models.BreakCoupon,
		models.BreakMarketPrice,
		models.BreakDate,
	}
	for i, want := range wantOrder {
		if breaks[i].BreakType != want {
			t.Errorf("Break %d: expected %s, got %s", i, want, breaks[i].BreakType)
		}
	}
}
