// README: Fee calculator; pure time-based charge computation with a day/night tiered rate.
package fee

import (
	"errors"
	"math"
	"time"

	"poring/internal/types"
)

const (
	// Every minute of the day bills at least the off-peak rate; minutes inside the
	// 09:00-18:00 window bill the additional day differential on top.
	offPeakPerMinute = 5
	dayDifferential  = 25

	dayWindowStartMin = 9 * 60
	dayWindowEndMin   = 18 * 60

	// FullDayFee is one whole calendar day: 9h at 30/min plus 15h at 5/min.
	FullDayFee = 20700

	// Currency for all charges.
	Currency = "KRW"
)

var ErrInvalidInterval = errors.New("fee: end time before start time")

// Quote is the billing outcome for a rental interval.
type Quote struct {
	DurationMinutes int
	Charged         types.Money
}

// Compute returns the tiered charge and billed duration for [start, end].
// Charges are exact integer arithmetic; the charge never goes negative.
func Compute(start, end time.Time) (Quote, error) {
	if end.Before(start) {
		return Quote{}, ErrInvalidInterval
	}

	elapsed := end.Sub(start)
	durationMinutes := int((elapsed + time.Minute - 1) / time.Minute)

	var total int64
	days := calendarDaysBetween(start, end)
	if days == 0 {
		total = accumulatedSinceMidnight(end) - accumulatedSinceMidnight(start)
	} else {
		firstDay := FullDayFee - accumulatedSinceMidnight(start)
		middleDays := int64(days-1) * FullDayFee
		lastDay := accumulatedSinceMidnight(end)
		total = firstDay + middleDays + lastDay
	}
	if total < 0 {
		total = 0
	}

	return Quote{
		DurationMinutes: durationMinutes,
		Charged:         types.Money{Amount: total, Currency: Currency},
	}, nil
}

// accumulatedSinceMidnight is the charge from 00:00 of t's day up to t.
// Billing works in whole minutes; seconds within the current minute do not bill.
func accumulatedSinceMidnight(t time.Time) int64 {
	minutes := int64(t.Hour()*60 + t.Minute())

	total := minutes * offPeakPerMinute

	overlapEnd := minutes
	if overlapEnd > dayWindowEndMin {
		overlapEnd = dayWindowEndMin
	}
	if overlapEnd > dayWindowStartMin {
		total += (overlapEnd - dayWindowStartMin) * dayDifferential
	}
	return total
}

// calendarDaysBetween counts whole calendar-date steps from start's date to end's date.
func calendarDaysBetween(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())
	return int(math.Round(e.Sub(s).Hours() / 24))
}
