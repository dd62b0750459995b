package contracts

import (
	"context"
	"errors"
)

var (
	// ErrQuotesUnavailable means the quote transport failed; callers retry later
	// and must never read it as "all changes are zero".
	ErrQuotesUnavailable = errors.New("quotes unavailable")

	// ErrNotYetAvailable means no usable official figure: missing, blank growth,
	// or the official transport failed.
	ErrNotYetAvailable = errors.New("official return not yet available")
)

// QuoteSource fetches live quotes for a batch of codes
// ⭐ SSOT: 실시간 시세 인터페이스
type QuoteSource interface {
	Fetch(ctx context.Context, codes []string) (QuoteMap, error)
}

// OfficialSource fetches the latest official daily growth of a fund
// ⭐ SSOT: 공식 净值 인터페이스
type OfficialSource interface {
	Fetch(ctx context.Context, officialCode string) (OfficialReturn, error)
}
