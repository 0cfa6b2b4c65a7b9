// Package fincalc provides stateless fixed income and FX calculation
// utilities used to deepen break classification: day-count fractions,
// bond analytics, cross-rate consistency checks and simple outlier
// statistics. Everything here is a pure function of its inputs.
package fincalc

import (
	"fmt"
	"time"
)

// DayCountConvention names a day-count basis for accrual calculations.
type DayCountConvention string

const (
	// DayCountACT360 counts actual days over a 360-day year.
	DayCountACT360 DayCountConvention = "ACT/360"
	// DayCountACT365 counts actual days over a 365-day year.
	DayCountACT365 DayCountConvention = "ACT/365"
	// DayCount30360 counts 30-day months over a 360-day year (US/NASD).
	DayCount30360 DayCountConvention = "30/360"
)

// Conventions lists the supported day-count conventions in a fixed order.
func Conventions() []DayCountConvention {
	return []DayCountConvention{DayCountACT360, DayCountACT365, DayCount30360}
}

// YearFraction returns the accrual fraction between two dates under the
// given convention. Start and end may arrive in either order.
func YearFraction(start, end time.Time, convention DayCountConvention) (float64, error) {
	if end.Before(start) {
		start, end = end, start
	}

	switch convention {
	case DayCountACT360:
		return float64(actualDays(start, end)) / 360.0, nil
	case DayCountACT365:
		return float64(actualDays(start, end)) / 365.0, nil
	case DayCount30360:
		return float64(days30360(start, end)) / 360.0, nil
	default:
		return 0, fmt.Errorf("unknown day-count convention: %q", convention)
	}
}

func actualDays(start, end time.Time) int {
	return int(end.Sub(start) / (24 * time.Hour))
}

// days30360 implements the US/NASD 30/360 day adjustment
func days30360(start, end time.Time) int {
	d1, d2 := start.Day(), end.Day()
	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 && d1 == 30 {
		d2 = 30
	}

	years := end.Year() - start.Year()
	months := int(end.Month()) - int(start.Month())

	return years*360 + months*30 + (d2 - d1)
}
