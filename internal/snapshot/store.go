package snapshot

import (
	"context"
	"fmt"

	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/internal/store"
)

// DocumentName is the snapshot document in the durable store
const DocumentName = "history.json"

// Store persists end-of-day mixed estimates keyed by trading day.
// Values are pre-factor so the audit compares against what the holdings said.
type Store struct {
	docs store.DocumentStore
}

// New creates a snapshot store over a document store
func New(docs store.DocumentStore) *Store {
	return &Store{docs: docs}
}

// All returns the whole snapshot document (empty when absent) and its version
func (s *Store) All(ctx context.Context) (contracts.DayFundValues, string, error) {
	history := contracts.DayFundValues{}
	version, err := store.LoadJSON(ctx, s.docs, DocumentName, &history)
	if err != nil {
		return nil, "", err
	}
	if history == nil {
		history = contracts.DayFundValues{}
	}
	return history, version, nil
}

// Record replaces the whole entry for day with values.
// The write is conditional on the version read here; a concurrent writer
// surfaces as store.ErrVersionConflict.
func (s *Store) Record(ctx context.Context, day string, values map[string]float64) error {
	if day == "" {
		return fmt.Errorf("record snapshot: %w", store.ErrInvalidInput)
	}

	history, version, err := s.All(ctx)
	if err != nil {
		return err
	}

	entry := make(map[string]float64, len(values))
	for fund, v := range values {
		entry[fund] = v
	}
	history[day] = entry

	if _, err := store.SaveJSON(ctx, s.docs, DocumentName, history, version, "Snapshot "+day); err != nil {
		return err
	}
	return nil
}

// LatestDay returns the most recent snapshot day, ok=false when none exist
func (s *Store) LatestDay(ctx context.Context) (string, bool, error) {
	history, _, err := s.All(ctx)
	if err != nil {
		return "", false, err
	}
	day, ok := history.Latest()
	return day, ok, nil
}

// Day returns the recorded values of one day, ok=false when the day is absent
func (s *Store) Day(ctx context.Context, day string) (map[string]float64, bool, error) {
	history, _, err := s.All(ctx)
	if err != nil {
		return nil, false, err
	}
	values, ok := history[day]
	return values, ok, nil
}
