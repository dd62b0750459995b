package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wonny/hawkeye/pkg/logger"
)

// FileStore keeps each document as a JSON file in one directory.
// The version token is the sha256 of the file content, like a git blob sha.
// Locking is per process; concurrent writers in other processes are caught
// by the content hash check, not prevented.
type FileStore struct {
	dir    string
	logger *logger.Logger
	mu     sync.Mutex
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string, log *logger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir, logger: log.WithComponent("store.file")}, nil
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", ErrInvalidInput
	}
	return filepath.Join(s.dir, name), nil
}

func contentVersion(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *FileStore) read(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Document{}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Document{Data: data, Version: contentVersion(data)}, nil
}

// Get reads the whole document
func (s *FileStore) Get(_ context.Context, name string) (Document, error) {
	path, err := s.path(name)
	if err != nil {
		return Document{}, err
	}
	return s.read(path)
}

// Put replaces the document when version matches the current content hash
func (s *FileStore) Put(_ context.Context, name string, data []byte, version, reason string) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(path)
	if err != nil {
		return "", err
	}
	if current.Version != version {
		return "", ErrVersionConflict
	}

	// write-then-rename keeps readers from seeing a half-written document
	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("replace %s: %w", path, err)
	}

	newVersion := contentVersion(data)
	s.logger.WithFields(map[string]interface{}{
		"document": name,
		"reason":   reason,
		"version":  newVersion[:12],
	}).Info("Document written")

	return newVersion, nil
}
