package contracts

import (
	"sort"
	"time"
)

// DayLayout is the key format of snapshot and factor-history documents
const DayLayout = "2006-01-02"

// TradingDay formats t as a document day key in loc
func TradingDay(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DayLayout)
}

// DayFundValues is the shape shared by the snapshot document (mixed estimates)
// and the factor-history document (calibrated factors):
// { "YYYY-MM-DD": { fundName: value } }
type DayFundValues map[string]map[string]float64

// Days returns day keys in chronological order
func (d DayFundValues) Days() []string {
	days := make([]string, 0, len(d))
	for day := range d {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

// Latest returns the greatest day key. ISO dates sort chronologically.
func (d DayFundValues) Latest() (string, bool) {
	latest := ""
	for day := range d {
		if day > latest {
			latest = day
		}
	}
	return latest, latest != ""
}

// Has reports whether fund has a value recorded under day
func (d DayFundValues) Has(day, fund string) bool {
	values, ok := d[day]
	if !ok {
		return false
	}
	_, ok = values[fund]
	return ok
}

// Value returns the value recorded for (day, fund)
func (d DayFundValues) Value(day, fund string) (float64, bool) {
	values, ok := d[day]
	if !ok {
		return 0, false
	}
	v, ok := values[fund]
	return v, ok
}
