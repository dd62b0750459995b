package funds

import (
	"context"

	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/internal/store"
)

// DocumentName is the fund configuration document in the durable store
const DocumentName = "funds.json"

// Repository loads and saves the fund configuration document
type Repository struct {
	docs store.DocumentStore
}

// NewRepository creates a fund repository over a document store
func NewRepository(docs store.DocumentStore) *Repository {
	return &Repository{docs: docs}
}

// Load returns every configured fund and the document version.
// A missing document is an empty set, not an error.
func (r *Repository) Load(ctx context.Context) (contracts.FundSet, string, error) {
	set := contracts.FundSet{}
	version, err := store.LoadJSON(ctx, r.docs, DocumentName, &set)
	if err != nil {
		return nil, "", err
	}
	if set == nil {
		set = contracts.FundSet{}
	}
	return set, version, nil
}

// Save writes the whole set conditional on version and returns the new version
func (r *Repository) Save(ctx context.Context, set contracts.FundSet, version, reason string) (string, error) {
	return store.SaveJSON(ctx, r.docs, DocumentName, set, version, reason)
}
