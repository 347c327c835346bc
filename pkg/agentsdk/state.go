package agentsdk

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"
)

// AuthState is the persisted view of the user's session. It never contains
// token values; the bridge keeps those server-side.
type AuthState struct {
	UserID            string     `json:"user_id"`
	Authenticated     bool       `json:"authenticated"`
	CloudID           string     `json:"cloud_id,omitempty"`
	ExpiresAt         time.Time  `json:"expires_at,omitzero"`
	RememberMeEnabled bool       `json:"remember_me_enabled"`
	CheckedAt         time.Time  `json:"checked_at,omitzero"`
}

// StateStore persists AuthState across background process restarts. The
// extension backs this with its local storage area; tests and CLI tooling use
// the file implementation.
type StateStore interface {
	// Load returns the stored state and whether one existed.
	Load() (AuthState, bool, error)
	Save(state AuthState) error
}

// FileStateStore keeps AuthState as a JSON file.
type FileStateStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

func (s *FileStateStore) Load() (AuthState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return AuthState{}, false, nil
	}
	if err != nil {
		return AuthState{}, false, err
	}

	var state AuthState
	if err := json.Unmarshal(raw, &state); err != nil {
		// A corrupt state file is treated as absent; the reconciler will
		// rebuild it from the bridge.
		return AuthState{}, false, nil
	}
	return state, true, nil
}

func (s *FileStateStore) Save(state AuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// MemStateStore is an in-memory StateStore for tests.
type MemStateStore struct {
	mu    sync.Mutex
	state AuthState
	has   bool
}

func (s *MemStateStore) Load() (AuthState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.has, nil
}

func (s *MemStateStore) Save(state AuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.has = true
	return nil
}
