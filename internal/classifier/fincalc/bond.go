package fincalc

import (
	"fmt"
	"math"
)

// Bond describes a plain fixed-coupon bond for analytics purposes.
// CouponRate and Yield are annual decimals (0.05 = 5%); Frequency is the
// number of coupon payments per year.
type Bond struct {
	FaceValue     float64
	CouponRate    float64
	YearsToMature float64
	Frequency     int
}

// Validate checks the bond parameters are usable
func (b Bond) Validate() error {
	if b.FaceValue <= 0 {
		return fmt.Errorf("face value must be positive: %f", b.FaceValue)
	}
	if b.CouponRate < 0 {
		return fmt.Errorf("coupon rate cannot be negative: %f", b.CouponRate)
	}
	if b.YearsToMature <= 0 {
		return fmt.Errorf("years to maturity must be positive: %f", b.YearsToMature)
	}
	if b.Frequency <= 0 {
		return fmt.Errorf("coupon frequency must be positive: %d", b.Frequency)
	}
	return nil
}

// Price returns the present value of the bond's cash flows at the given
// annual yield.
func (b Bond) Price(yield float64) (float64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}

	periods := int(math.Round(b.YearsToMature * float64(b.Frequency)))
	if periods == 0 {
		periods = 1
	}

	coupon := b.FaceValue * b.CouponRate / float64(b.Frequency)
	periodYield := yield / float64(b.Frequency)

	price := 0.0
	for t := 1; t <= periods; t++ {
		discount := math.Pow(1+periodYield, float64(t))
		cashFlow := coupon
		if t == periods {
			cashFlow += b.FaceValue
		}
		price += cashFlow / discount
	}

	return price, nil
}

// YieldToMaturity solves for the annual yield that prices the bond at the
// given market price, using Newton-Raphson with a numerical derivative.
func (b Bond) YieldToMaturity(marketPrice float64) (float64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}

	if marketPrice <= 0 {
		return 0, fmt.Errorf("market price must be positive: %f", marketPrice)
	}

	const (
		maxIterations = 100
		tolerance     = 1e-9
		bump          = 1e-6
	)

	// Start from the current yield approximation.
	coupon := b.FaceValue * b.CouponRate
	yield := (coupon + (b.FaceValue-marketPrice)/b.YearsToMature) /
		((b.FaceValue + marketPrice) / 2)

	for i := 0; i < maxIterations; i++ {
		price, err := b.Price(yield)
		if err != nil {
			return 0, err
		}

		diff := price - marketPrice
		if math.Abs(diff) < tolerance {
			return yield, nil
		}

		bumped, err := b.Price(yield + bump)
		if err != nil {
			return 0, err
		}

		derivative := (bumped - price) / bump
		if derivative == 0 || math.IsNaN(derivative) {
			return 0, fmt.Errorf("yield solver stalled at iteration %d", i)
		}

		yield -= diff / derivative
		if math.IsNaN(yield) || math.IsInf(yield, 0) {
			return 0, fmt.Errorf("yield solver diverged at iteration %d", i)
		}
	}

	return 0, fmt.Errorf("yield solver did not converge within %d iterations", maxIterations)
}

// MacaulayDuration returns the weighted average time to the bond's cash
// flows, in years, at the given annual yield.
func (b Bond) MacaulayDuration(yield float64) (float64, error) {
	price, err := b.Price(yield)
	if err != nil {
		return 0, err
	}
	if price == 0 {
		return 0, fmt.Errorf("bond price is zero, duration undefined")
	}

	periods := int(math.Round(b.YearsToMature * float64(b.Frequency)))
	if periods == 0 {
		periods = 1
	}

	coupon := b.FaceValue * b.CouponRate / float64(b.Frequency)
	periodYield := yield / float64(b.Frequency)

	weighted := 0.0
	for t := 1; t <= periods; t++ {
		discount := math.Pow(1+periodYield, float64(t))
		cashFlow := coupon
		if t == periods {
			cashFlow += b.FaceValue
		}
		timeYears := float64(t) / float64(b.Frequency)
		weighted += timeYears * cashFlow / discount
	}

	return weighted / price, nil
}

// ModifiedDuration returns the bond's price sensitivity to yield changes.
func (b Bond) ModifiedDuration(yield float64) (float64, error) {
	macaulay, err := b.MacaulayDuration(yield)
	if err != nil {
		return 0, err
	}

	return macaulay / (1 + yield/float64(b.Frequency)), nil
}

// Convexity returns the second-order price sensitivity to yield changes.
func (b Bond) Convexity(yield float64) (float64, error) {
	price, err := b.Price(yield)
	if err != nil {
		return 0, err
	}
	if price == 0 {
		return 0, fmt.Errorf("bond price is zero, convexity undefined")
	}

	periods := int(math.Round(b.YearsToMature * float64(b.Frequency)))
	if periods == 0 {
		periods = 1
	}

	coupon := b.FaceValue * b.CouponRate / float64(b.Frequency)
	periodYield := yield / float64(b.Frequency)
	freq := float64(b.Frequency)

	sum := 0.0
	for t := 1; t <= periods; t++ {
		discount := math.Pow(1+periodYield, float64(t))
		cashFlow := coupon
		if t == periods {
			cashFlow += b.FaceValue
		}
		ft := float64(t)
		sum += cashFlow * ft * (ft + 1) / discount
	}

	return sum / (price * freq * freq * math.Pow(1+periodYield, 2)), nil
}
