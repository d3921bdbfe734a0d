// Package storage provides the bytes-to-URL artifact store used for error
// reports, exports and summary PDFs.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Store persists a named artifact and returns the URL it is served from.
type Store interface {
	Save(name string, data []byte) (string, error)
}

// LocalStore writes artifacts under a directory and serves them from
// BaseURL. File names are sanitized and timestamped so re-uploads never
// overwrite an earlier artifact.
type LocalStore struct {
	Dir     string
	BaseURL string
}

// NewLocalStore creates the artifact directory if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._\-]`)

// Save writes the artifact and returns its URL.
func (s *LocalStore) Save(name string, data []byte) (string, error) {
	clean := unsafeChars.ReplaceAllString(filepath.Base(name), "_")
	stamped := fmt.Sprintf("%d_%s", time.Now().UnixNano(), clean)

	if err := os.WriteFile(filepath.Join(s.Dir, stamped), data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", clean, err)
	}
	return s.BaseURL + "/" + stamped, nil
}

// MemoryStore keeps artifacts in memory. Test double.
type MemoryStore struct {
	Files map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Files: make(map[string][]byte)}
}

// Save records the artifact and returns a mem:// URL.
func (s *MemoryStore) Save(name string, data []byte) (string, error) {
	s.Files[name] = data
	return "mem://" + name, nil
}
