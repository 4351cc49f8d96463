package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Store persists the session record. Implementations do not validate it.
type Store interface {
	Load() (Session, error)
	Save(Session) error
}

// record is the on-disk envelope.
type record struct {
	Version int     `json:"version"`
	State   Session `json:"state"`
}

const recordVersion = 1

// FileStore keeps the session in a JSON file under a private directory.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a file backed store.
// If baseDir is empty, uses ~/.blackwatch/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".blackwatch")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("session store initialized")

	return &FileStore{baseDir: baseDir}, nil
}

// Path returns the file the session is written to.
func (s *FileStore) Path() string {
	return filepath.Join(s.baseDir, Namespace+".json")
}

// Load reads the session. A missing or unreadable record is the anonymous
// session; the next Save replaces a corrupt file.
func (s *FileStore) Load() (Session, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Anonymous(), nil
		}
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Warn().Err(err).Str("path", s.Path()).Msg("discarding corrupt session file")
		return Anonymous(), nil
	}

	return rec.State, nil
}

// Save writes the session atomically.
func (s *FileStore) Save(sess Session) error {
	data, err := json.MarshalIndent(record{Version: recordVersion, State: sess}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	path := s.Path()
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// MemoryStore keeps the session in memory. Saves counts successful writes.
type MemoryStore struct {
	mu    sync.Mutex
	state Session
	saves int
}

// NewMemoryStore creates a store seeded with initial.
func NewMemoryStore(initial Session) *MemoryStore {
	return &MemoryStore{state: initial.clone()}
}

func (m *MemoryStore) Load() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone(), nil
}

func (m *MemoryStore) Save(sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = sess.clone()
	m.saves++
	return nil
}

// Saves returns the number of writes performed.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
