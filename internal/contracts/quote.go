package contracts

// Quote is a live price change for one instrument
type Quote struct {
	Name      string  `json:"name"`
	ChangePct float64 `json:"change_pct"`
}

// QuoteMap maps instrument code to its quote. Unresolved codes are absent, never zero.
type QuoteMap map[string]Quote

// ChangePct computes percent change against the previous close, 0 when prevClose ≤ 0
func ChangePct(current, prevClose float64) float64 {
	if prevClose <= 0 {
		return 0
	}
	return (current - prevClose) / prevClose * 100
}

// OfficialReturn is the latest published daily growth of a fund
type OfficialReturn struct {
	GrowthPct float64 `json:"growth_pct"`
	AsOf      string  `json:"as_of"` // YYYY-MM-DD
}

// IsStaleFor reports whether the figure predates the audited day
func (r OfficialReturn) IsStaleFor(day string) bool {
	return r.AsOf < day
}
