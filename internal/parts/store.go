package parts

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gofrs/flock"

	"github.com/lepinkainen/brickmass/internal/fileutil"
)

// ErrLocked is returned by Lock when another process holds the document lock.
var ErrLocked = errors.New("parts document is locked by another crawl")

// FileStore persists the result set as a single JSON document.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore returns a store for the document at path. The advisory lock
// lives next to it as path + ".lock".
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the document path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the saved records. A missing document is an empty result set.
func (s *FileStore) Load() ([]Part, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("No existing parts document", "path", s.path)
		return []Part{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	if doc.Pieces == nil {
		doc.Pieces = []Part{}
	}
	return doc.Pieces, nil
}

// Save replaces the document with pieces.
func (s *FileStore) Save(pieces []Part) error {
	if pieces == nil {
		pieces = []Part{}
	}
	return fileutil.WriteJSONFile(Document{Pieces: pieces}, s.path)
}

// Lock takes the single-writer lock. It does not block; ErrLocked is returned
// when another process already holds it.
func (s *FileStore) Lock() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Unlock releases the single-writer lock.
func (s *FileStore) Unlock() error {
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Index maps each id to its record. When an id repeats, the last one wins.
func Index(pieces []Part) map[string]Part {
	index := make(map[string]Part, len(pieces))
	for _, p := range pieces {
		index[p.ID] = p
	}
	return index
}
