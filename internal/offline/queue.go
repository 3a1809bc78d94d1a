package offline

import (
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
)

// Queue is the device-side submission buffer. Every mutation is written
// through to the store before it is acknowledged, so a crash never loses an
// accepted entry.
type Queue struct {
	store  Store
	logger apt.Logger

	mu    sync.Mutex
	state State
}

func NewQueue(store Store, logger apt.Logger) (*Queue, error) {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	state, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("cannot load queue: %w", err)
	}

	return &Queue{
		store:  store,
		logger: logger,
		state:  state,
	}, nil
}

func (q *Queue) Enqueue(entry Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now().UTC()
	}
	if entry.ID == "" {
		entry.ID = entry.Request.IdempotencyKey
	}

	for _, existing := range q.state.Entries {
		if existing.ID == entry.ID {
			q.logger.Debug("submission already queued", "entry_id", entry.ID)
			return nil
		}
	}

	q.state.Entries = append(q.state.Entries, entry)
	if err := q.store.Save(q.state); err != nil {
		q.state.Entries = q.state.Entries[:len(q.state.Entries)-1]
		return fmt.Errorf("cannot persist queue entry: %w", err)
	}

	return nil
}

// Entries returns a snapshot in enqueue order.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Entry, len(q.state.Entries))
	copy(out, q.state.Entries)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.state.Entries)
}

func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := make([]Entry, 0, len(q.state.Entries))
	for _, entry := range q.state.Entries {
		if entry.ID != id {
			kept = append(kept, entry)
		}
	}

	previous := q.state.Entries
	q.state.Entries = kept
	if err := q.store.Save(q.state); err != nil {
		q.state.Entries = previous
		return fmt.Errorf("cannot persist queue removal: %w", err)
	}
	return nil
}

// RememberSession stores the session a table key resolved to so a restarted
// device rejoins instead of minting a fresh session.
func (q *Queue) RememberSession(tableKey, sessionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state.Sessions == nil {
		q.state.Sessions = map[string]StoredSession{}
	}
	q.state.Sessions[tableKey] = StoredSession{
		SessionID: sessionID,
		TableKey:  tableKey,
		SavedAt:   time.Now().UTC(),
	}

	if err := q.store.Save(q.state); err != nil {
		return fmt.Errorf("cannot persist session: %w", err)
	}
	return nil
}

func (q *Queue) SessionFor(tableKey string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stored, ok := q.state.Sessions[tableKey]
	if !ok {
		return "", false
	}
	return stored.SessionID, true
}

func (q *Queue) ForgetSession(tableKey string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.state.Sessions, tableKey)
	if err := q.store.Save(q.state); err != nil {
		return fmt.Errorf("cannot persist session removal: %w", err)
	}
	return nil
}
