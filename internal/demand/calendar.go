package demand

import "time"

// Day truncates a timestamp to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// DateRange enumerates every calendar day from start to end inclusive.
func DateRange(start, end time.Time) []time.Time {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return nil
	}
	days := make([]time.Time, 0, DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// FutureDates returns the horizon days following last.
func FutureDates(last time.Time, horizon int) []time.Time {
	if horizon <= 0 {
		return nil
	}
	out := make([]time.Time, horizon)
	base := Day(last)
	for i := range out {
		out[i] = base.AddDate(0, 0, i+1)
	}
	return out
}

// IsPayday flags the 15th and the 30th of each month.
func IsPayday(t time.Time) bool {
	d := t.Day()
	return d == 15 || d == 30
}

// DateKey formats a day as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
