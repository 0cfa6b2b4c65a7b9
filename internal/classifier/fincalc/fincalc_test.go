package fincalc

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestYearFraction(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		convention DayCountConvention
		want       float64
	}{
		{DayCountACT360, 182.0 / 360.0},
		{DayCountACT365, 182.0 / 365.0},
		{DayCount30360, 180.0 / 360.0},
	}

	for _, tt := range tests {
		t.Run(string(tt.convention), func(t *testing.T) {
			got, err := YearFraction(start, end, tt.convention)
			if err != nil {
				t.Fatalf("YearFraction() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected %f, got %f", tt.want, got)
			}
		})
	}

	t.Run("reversed dates are normalized", func(t *testing.T) {
		forward, _ := YearFraction(start, end, DayCountACT365)
		backward, _ := YearFraction(end, start, DayCountACT365)
		if forward != backward {
			t.Errorf("Expected symmetric fraction, got %f vs %f", forward, backward)
		}
	})

	t.Run("unknown convention is an error", func(t *testing.T) {
		if _, err := YearFraction(start, end, "ACT/ACT-ISDA"); err == nil {
			t.Error("Expected error for unknown convention")
		}
	})
}

func TestBond_Price(t *testing.T) {
	bond := Bond{FaceValue: 1000, CouponRate: 0.05, YearsToMature: 10, Frequency: 2}

	// At a yield equal to the coupon rate a bond prices at par.
	price, err := bond.Price(0.05)
	if err != nil {
		t.Fatalf("Price() error = %v", err)
	}
	if math.Abs(price-1000) > 0.01 {
		t.Errorf("Expected par price 1000, got %f", price)
	}

	// Higher yield means lower price.
	discounted, err := bond.Price(0.07)
	if err != nil {
		t.Fatalf("Price() error = %v", err)
	}
	if discounted >= price {
		t.Errorf("Expected discount price below par, got %f", discounted)
	}
}

func TestBond_YieldToMaturity(t *testing.T) {
	bond := Bond{FaceValue: 1000, CouponRate: 0.06, YearsToMature: 5, Frequency: 2}

	// Round-trip: price at a known yield, then solve back.
	price, err := bond.Price(0.045)
	if err != nil {
		t.Fatalf("Price() error = %v", err)
	}

	yield, err := bond.YieldToMaturity(price)
	if err != nil {
		t.Fatalf("YieldToMaturity() error = %v", err)
	}

	if math.Abs(yield-0.045) > 1e-6 {
		t.Errorf("Expected yield 0.045, got %f", yield)
	}

	if _, err := bond.YieldToMaturity(-10); err == nil {
		t.Error("Expected error for non-positive market price")
	}
}

func TestBond_DurationAndConvexity(t *testing.T) {
	bond := Bond{FaceValue: 1000, CouponRate: 0.05, YearsToMature: 10, Frequency: 2}

	macaulay, err := bond.MacaulayDuration(0.05)
	if err != nil {
		t.Fatalf("MacaulayDuration() error = %v", err)
	}
	if macaulay <= 0 || macaulay > bond.YearsToMature {
		t.Errorf("Expected duration in (0, %f], got %f", bond.YearsToMature, macaulay)
	}

	modified, err := bond.ModifiedDuration(0.05)
	if err != nil {
		t.Fatalf("ModifiedDuration() error = %v", err)
	}
	if modified >= macaulay {
		t.Errorf("Expected modified duration below Macaulay: %f vs %f", modified, macaulay)
	}

	convexity, err := bond.Convexity(0.05)
	if err != nil {
		t.Fatalf("Convexity() error = %v", err)
	}
	if convexity <= 0 {
		t.Errorf("Expected positive convexity, got %f", convexity)
	}
}

func TestRateTable_CrossRate(t *testing.T) {
	table := RateTable{
		{Base: "EUR", Quote: "USD"}: decimal.NewFromFloat(1.10),
		{Base: "USD", Quote: "JPY"}: decimal.NewFromFloat(150.0),
	}

	cross, ok := table.CrossRate("EUR", "JPY", "USD")
	if !ok {
		t.Fatal("Expected cross rate to be derivable")
	}

	want := decimal.NewFromFloat(165.0)
	if !cross.Equal(want) {
		t.Errorf("Expected cross rate %s, got %s", want, cross)
	}

	// Inverse lookup: GBP/USD known, ask USD/GBP leg.
	table[RatePair{Base: "GBP", Quote: "USD"}] = decimal.NewFromFloat(1.25)
	rate, ok := table.Rate("USD", "GBP")
	if !ok {
		t.Fatal("Expected inverse rate to be derivable")
	}
	if !rate.Equal(decimal.NewFromFloat(0.8)) {
		t.Errorf("Expected inverse rate 0.8, got %s", rate)
	}

	if _, ok := table.CrossRate("AUD", "NZD", "USD"); ok {
		t.Error("Expected no cross rate for unknown currencies")
	}
}

func TestCrossRateDeviation(t *testing.T) {
	table := RateTable{
		{Base: "EUR", Quote: "USD"}: decimal.NewFromFloat(1.10),
		{Base: "USD", Quote: "JPY"}: decimal.NewFromFloat(150.0),
	}

	// Observed matches the implied 165.0 exactly.
	deviation, err := CrossRateDeviation(decimal.NewFromFloat(165.0), "EUR", "JPY", "USD", table)
	if err != nil {
		t.Fatalf("CrossRateDeviation() error = %v", err)
	}
	if !deviation.IsZero() {
		t.Errorf("Expected zero deviation, got %s", deviation)
	}

	// Observed 10% above the implied rate.
	deviation, err = CrossRateDeviation(decimal.NewFromFloat(181.5), "EUR", "JPY", "USD", table)
	if err != nil {
		t.Fatalf("CrossRateDeviation() error = %v", err)
	}
	if !deviation.Round(4).Equal(decimal.NewFromFloat(0.1)) {
		t.Errorf("Expected deviation 0.1, got %s", deviation)
	}

	if _, err := CrossRateDeviation(decimal.NewFromFloat(1.0), "AUD", "NZD", "USD", table); err == nil {
		t.Error("Expected error when no reference rates exist")
	}
}

func TestSeriesStats(t *testing.T) {
	stats, err := NewSeriesStats([]float64{100, 102, 98, 101, 99})
	if err != nil {
		t.Fatalf("NewSeriesStats() error = %v", err)
	}

	if math.Abs(stats.Mean-100) > 1e-9 {
		t.Errorf("Expected mean 100, got %f", stats.Mean)
	}

	z, err := stats.ZScore(110)
	if err != nil {
		t.Fatalf("ZScore() error = %v", err)
	}
	if z <= 0 {
		t.Errorf("Expected positive z-score for value above mean, got %f", z)
	}

	if !stats.IsOutlier(120, 3) {
		t.Error("Expected 120 to be an outlier at 3 sigma")
	}
	if stats.IsOutlier(101, 3) {
		t.Error("Expected 101 not to be an outlier at 3 sigma")
	}

	degenerate, err := NewSeriesStats([]float64{100, 100, 100})
	if err != nil {
		t.Fatalf("NewSeriesStats() error = %v", err)
	}
	if _, err := degenerate.ZScore(101); err == nil {
		t.Error("Expected z-score error for zero standard deviation")
	}
	if degenerate.IsOutlier(200, 3) {
		t.Error("Expected degenerate series to never flag outliers")
	}

	if _, err := NewSeriesStats(nil); err == nil {
		t.Error("Expected error for empty series")
	}
}
