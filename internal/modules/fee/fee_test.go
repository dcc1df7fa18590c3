// README: Fee calculator tests (tier boundaries, multi-day spans, duration rounding).
package fee

import (
	"testing"
	"time"
)

func at(day, hour, min, sec int) time.Time {
	return time.Date(2025, time.March, day, hour, min, sec, 0, time.UTC)
}

func TestComputeZeroInterval(t *testing.T) {
	q, err := Compute(at(10, 14, 30, 0), at(10, 14, 30, 0))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if q.DurationMinutes != 0 || q.Charged.Amount != 0 {
		t.Fatalf("expected zero quote, got %+v", q)
	}
}

func TestComputeInvalidInterval(t *testing.T) {
	_, err := Compute(at(10, 12, 0, 0), at(10, 11, 59, 0))
	if err != ErrInvalidInterval {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestComputeSameDay(t *testing.T) {
	cases := []struct {
		name       string
		start, end time.Time
		wantFee    int64
		wantMins   int
	}{
		{
			name:  "full day window 09:00-18:00",
			start: at(10, 9, 0, 0), end: at(10, 18, 0, 0),
			wantFee:  9 * 60 * 30, // 16200
			wantMins: 9 * 60,
		},
		{
			name:  "off-peak only",
			start: at(10, 6, 0, 0), end: at(10, 7, 30, 0),
			wantFee:  90 * 5,
			wantMins: 90,
		},
		{
			name:  "crossing into the day window",
			start: at(10, 8, 30, 0), end: at(10, 9, 30, 0),
			wantFee:  30*5 + 30*30,
			wantMins: 60,
		},
		{
			name:  "crossing out of the day window",
			start: at(10, 17, 45, 0), end: at(10, 18, 15, 0),
			wantFee:  15*30 + 15*5,
			wantMins: 30,
		},
		{
			name:  "evening hour",
			start: at(10, 20, 0, 0), end: at(10, 21, 5, 0),
			wantFee:  65 * 5,
			wantMins: 65,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Compute(tc.start, tc.end)
			if err != nil {
				t.Fatalf("compute: %v", err)
			}
			if q.Charged.Amount != tc.wantFee {
				t.Errorf("fee = %d, want %d", q.Charged.Amount, tc.wantFee)
			}
			if q.DurationMinutes != tc.wantMins {
				t.Errorf("duration = %d, want %d", q.DurationMinutes, tc.wantMins)
			}
		})
	}
}

func TestComputeMultiDay(t *testing.T) {
	// Two exactly-spanned calendar days.
	q, err := Compute(at(1, 0, 0, 0), at(3, 0, 0, 0))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if q.Charged.Amount != 2*FullDayFee {
		t.Errorf("fee = %d, want %d", q.Charged.Amount, 2*FullDayFee)
	}
	if q.DurationMinutes != 2*24*60 {
		t.Errorf("duration = %d, want %d", q.DurationMinutes, 2*24*60)
	}

	// Partial first and last day around one full middle day:
	// 22:00 day1 -> 24:00 costs 120*5; day2 full; 00:00 -> 08:00 day3 costs 480*5.
	q, err = Compute(at(1, 22, 0, 0), at(3, 8, 0, 0))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want := int64(120*5 + FullDayFee + 480*5)
	if q.Charged.Amount != want {
		t.Errorf("fee = %d, want %d", q.Charged.Amount, want)
	}

	// Overnight with no whole middle day.
	q, err = Compute(at(1, 23, 30, 0), at(2, 0, 30, 0))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if q.Charged.Amount != 60*5 {
		t.Errorf("fee = %d, want %d", q.Charged.Amount, 60*5)
	}
}

func TestComputeDurationCeiling(t *testing.T) {
	q, err := Compute(at(10, 10, 0, 0), at(10, 10, 0, 1))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if q.DurationMinutes != 1 {
		t.Errorf("duration = %d, want 1 (ceiling of 1s)", q.DurationMinutes)
	}

	q, err = Compute(at(10, 10, 0, 30), at(10, 11, 4, 31))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if q.DurationMinutes != 65 {
		t.Errorf("duration = %d, want 65", q.DurationMinutes)
	}
}

func TestAccumulatedSinceMidnight(t *testing.T) {
	cases := []struct {
		hour, min int
		want      int64
	}{
		{0, 0, 0},
		{9, 0, 540 * 5},
		{18, 0, 1080*5 + 540*25},
		{12, 0, 720*5 + 180*25},
		{23, 59, 1439*5 + 540*25},
	}
	for _, tc := range cases {
		got := accumulatedSinceMidnight(at(10, tc.hour, tc.min, 0))
		if got != tc.want {
			t.Errorf("accumulatedSinceMidnight(%02d:%02d) = %d, want %d", tc.hour, tc.min, got, tc.want)
		}
	}
}
