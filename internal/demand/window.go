package demand

import "time"

// Window restricts transactions to those on or after historyStart and within the
// trailing windowDays of the latest surviving date. windowDays <= 0 disables the trailing cut.
func Window(rows []Transaction, historyStart time.Time, windowDays int) []Transaction {
	start := Day(historyStart)

	// 1. History cutoff
	kept := make([]Transaction, 0, len(rows))
	var latest time.Time
	for _, r := range rows {
		d := Day(r.Date)
		if d.IsZero() || (!start.IsZero() && d.Before(start)) {
			continue
		}
		kept = append(kept, r)
		if d.After(latest) {
			latest = d
		}
	}
	if windowDays <= 0 || len(kept) == 0 {
		return kept
	}

	// 2. Freshness window anchored on the latest date
	floor := latest.AddDate(0, 0, -(windowDays - 1))
	out := kept[:0]
	for _, r := range kept {
		if !Day(r.Date).Before(floor) {
			out = append(out, r)
		}
	}
	return out
}

// Latest returns the most recent transaction day, or the zero time.
func Latest(rows []Transaction) time.Time {
	var latest time.Time
	for _, r := range rows {
		if d := Day(r.Date); d.After(latest) {
			latest = d
		}
	}
	return latest
}
