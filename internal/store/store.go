package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Store errors
var (
	// ErrVersionConflict is returned when the version token presented on write
	// no longer matches the stored document. The caller must re-read and retry.
	ErrVersionConflict = errors.New("document version conflict")

	// ErrInvalidInput is returned when a document name or body is unusable.
	ErrInvalidInput = errors.New("invalid input")
)

// Document is a whole stored document and its version token.
// An absent document has nil Data and an empty Version.
type Document struct {
	Data    []byte
	Version string
}

// Exists reports whether the document was present at read time
func (d Document) Exists() bool {
	return d.Version != ""
}

// DocumentStore reads and writes whole named JSON documents with optimistic concurrency
// ⭐ SSOT: 영속 문서 저장소 인터페이스
//
// Put succeeds only when version equals the current token ("" = must not exist yet)
// and returns the new token. Reason is a short audit message such as "Snapshot 2024-01-15".
type DocumentStore interface {
	Get(ctx context.Context, name string) (Document, error)
	Put(ctx context.Context, name string, data []byte, version, reason string) (string, error)
}

// LoadJSON reads name into dest and returns its version token.
// A missing document leaves dest untouched and returns "".
func LoadJSON(ctx context.Context, s DocumentStore, name string, dest interface{}) (string, error) {
	doc, err := s.Get(ctx, name)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", name, err)
	}
	if !doc.Exists() || len(doc.Data) == 0 {
		return doc.Version, nil
	}
	if err := json.Unmarshal(doc.Data, dest); err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return doc.Version, nil
}

// SaveJSON writes value as indented JSON, conditional on version
func SaveJSON(ctx context.Context, s DocumentStore, name string, value interface{}, version, reason string) (string, error) {
	data, err := json.MarshalIndent(value, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	newVersion, err := s.Put(ctx, name, data, version, reason)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	return newVersion, nil
}
