package engine

import (
	"time"

	"github.com/wonny/hawkeye/internal/valuation"
)

// Board is one refresh of the live monitor
type Board struct {
	At        time.Time            `json:"at"`
	Day       string               `json:"day"`
	Available bool                 `json:"available"` // false: no data this cycle
	Indices   []IndexQuote         `json:"indices"`
	Funds     []valuation.Estimate `json:"funds"`
}

// IndexQuote is a market index line on the board
type IndexQuote struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	ChangePct float64 `json:"change_pct"`
	Resolved  bool    `json:"resolved"`
}

// SnapshotResult is what an end-of-day snapshot recorded
type SnapshotResult struct {
	Day       string               `json:"day"`
	Values    map[string]float64   `json:"values"`
	Estimates []valuation.Estimate `json:"estimates"`
}
