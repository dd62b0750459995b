package calibration

import (
	"context"

	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/internal/store"
)

// HistoryDocument stores calibrated factors per (day, fund).
// Presence of an entry is the "already audited" guard.
const HistoryDocument = "factor_history.json"

// HistoryStore reads and merges the factor-history document
type HistoryStore struct {
	docs store.DocumentStore
}

// NewHistoryStore creates a factor-history store
func NewHistoryStore(docs store.DocumentStore) *HistoryStore {
	return &HistoryStore{docs: docs}
}

// Load returns the whole history (empty when absent) and its version
func (h *HistoryStore) Load(ctx context.Context) (contracts.DayFundValues, string, error) {
	history := contracts.DayFundValues{}
	version, err := store.LoadJSON(ctx, h.docs, HistoryDocument, &history)
	if err != nil {
		return nil, "", err
	}
	if history == nil {
		history = contracts.DayFundValues{}
	}
	return history, version, nil
}

// Merge adds updates under day on top of history, keeping entries already there,
// and writes conditional on version
func (h *HistoryStore) Merge(ctx context.Context, history contracts.DayFundValues, version, day string, updates map[string]float64) error {
	entry := history[day]
	if entry == nil {
		entry = make(map[string]float64, len(updates))
		history[day] = entry
	}
	for fund, factor := range updates {
		entry[fund] = factor
	}

	_, err := store.SaveJSON(ctx, h.docs, HistoryDocument, history, version, "Factor History "+day)
	return err
}
