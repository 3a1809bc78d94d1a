package offline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tabletap/tabletap/internal/orders"
)

// Entry is one queued submission waiting for connectivity. The idempotency
// key inside the request is what makes replay safe.
type Entry struct {
	ID         string                    `json:"id"`
	EnqueuedAt time.Time                 `json:"enqueued_at"`
	Request    orders.SubmitOrderRequest `json:"request"`
}

// StoredSession keeps the last known session for a table so the device can
// resume after a restart.
type StoredSession struct {
	SessionID string    `json:"session_id"`
	TableKey  string    `json:"table_key"`
	SavedAt   time.Time `json:"saved_at"`
}

// State is everything a device persists between runs.
type State struct {
	Entries  []Entry                  `json:"entries"`
	Sessions map[string]StoredSession `json:"sessions"`
}

// Store persists queue state across restarts.
type Store interface {
	Load() (State, error)
	Save(state State) error
}

// FileStore keeps state in a single JSON file. Saves go through a temp file
// and rename so a crash mid-write never corrupts the queue.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) Load() (State, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	state := State{Sessions: map[string]StoredSession{}}

	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return state, fmt.Errorf("cannot read queue state: %w", err)
	}

	if len(data) == 0 {
		return state, nil
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return State{Sessions: map[string]StoredSession{}}, fmt.Errorf("cannot decode queue state: %w", err)
	}
	if state.Sessions == nil {
		state.Sessions = map[string]StoredSession{}
	}

	return state, nil
}

func (fs *FileStore) Save(state State) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode queue state: %w", err)
	}

	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create queue directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "queue-*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create temp queue file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cannot write queue state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cannot close temp queue file: %w", err)
	}

	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cannot replace queue state: %w", err)
	}

	return nil
}
