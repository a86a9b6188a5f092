package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	cferrors "github.com/otherjamesbrown/confab/pkg/errors"
	"github.com/otherjamesbrown/confab/pkg/logging"
)

// Store is the in-memory session registry. It is the only shared mutable
// state in the server; every mutation is applied as a single atomic
// read-modify-write keyed by session id.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry

	logger logging.Logger

	// onCount, when set, receives the live session count after every
	// create/evict. Used to drive the sessions gauge.
	onCount func(n int)
}

// entry pairs a session with its per-id mutation lock. The entry lock is
// held for the whole mutator, so concurrent mutators on the same id
// serialize and lost updates are impossible.
type entry struct {
	mu sync.Mutex
	s  *Session
}

// NewStore creates an empty session store.
func NewStore(logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Store{
		entries: make(map[string]*entry),
		logger:  logger.With(logging.F("component", "session_store")),
	}
}

// OnCountChange registers a callback invoked with the live session count
// after every create and eviction. Must be called before the store is shared.
func (st *Store) OnCountChange(fn func(n int)) {
	st.onCount = fn
}

// Create registers a new session in the given mode and returns it. The
// returned pointer is only safe to touch before the first concurrent access;
// afterwards all mutation goes through Update. The session is visible to
// readers as soon as Create returns, never half-constructed.
func (st *Store) Create(mode Mode) *Session {
	now := time.Now()
	s := &Session{
		ID:           uuid.New().String(),
		Mode:         mode,
		Status:       StatusIdle,
		CreatedAt:    now,
		LastActivity: now,
	}

	st.mu.Lock()
	st.entries[s.ID] = &entry{s: s}
	n := len(st.entries)
	st.mu.Unlock()

	st.logger.Info("session created",
		logging.F("session_id", s.ID),
		logging.F("mode", string(mode)))
	st.notifyCount(n)
	return s
}

// Update applies a mutation atomically with respect to concurrent mutators
// on the same id. The mutator runs under the per-session lock; it must not
// block on I/O or collaborator calls. Every successful mutation bumps
// LastActivity.
func (st *Store) Update(id string, mutate func(*Session) error) error {
	e, err := st.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := mutate(e.s); err != nil {
		return err
	}
	e.s.LastActivity = time.Now()
	return nil
}

// Snapshot returns the full current state of a session's results.
func (st *Store) Snapshot(id string) (Snapshot, error) {
	e, err := st.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.snapshot(), nil
}

// Latest returns the snapshot of the most recently created session, the
// legacy read-back variant for clients that lost their session id.
func (st *Store) Latest() (Snapshot, error) {
	st.mu.RLock()
	var newest *entry
	for _, e := range st.entries {
		if newest == nil || e.s.CreatedAt.After(newest.s.CreatedAt) {
			newest = e
		}
	}
	st.mu.RUnlock()

	if newest == nil {
		return Snapshot{}, cferrors.ErrSessionNotFound
	}

	newest.mu.Lock()
	defer newest.mu.Unlock()
	return newest.s.snapshot(), nil
}

// List returns all known sessions, newest first, for discovery by filename.
func (st *Store) List() []SessionInfo {
	st.mu.RLock()
	entries := make([]*entry, 0, len(st.entries))
	for _, e := range st.entries {
		entries = append(entries, e)
	}
	st.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].s.CreatedAt.After(entries[j].s.CreatedAt)
	})

	infos := make([]SessionInfo, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		infos = append(infos, SessionInfo{
			ID:       e.s.ID,
			Filename: e.s.Filename,
			Status:   e.s.Status,
		})
		e.mu.Unlock()
	}
	return infos
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.entries)
}

// lookup fetches the entry for id.
func (st *Store) lookup(id string) (*entry, error) {
	st.mu.RLock()
	e, ok := st.entries[id]
	st.mu.RUnlock()
	if !ok {
		return nil, cferrors.ErrSessionNotFound
	}
	return e, nil
}

// RunJanitor evicts idle sessions every interval until ctx is cancelled.
// A session is evicted once it has seen no activity for the idle window and
// has no transcription call in flight. Eviction takes the per-session lock,
// so it cannot race an in-flight mutation.
func (st *Store) RunJanitor(ctx context.Context, idle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.evictIdle(idle)
		}
	}
}

// evictIdle removes sessions idle longer than the window.
func (st *Store) evictIdle(idle time.Duration) {
	cutoff := time.Now().Add(-idle)

	st.mu.RLock()
	candidates := make([]*entry, 0)
	for _, e := range st.entries {
		candidates = append(candidates, e)
	}
	st.mu.RUnlock()

	for _, e := range candidates {
		e.mu.Lock()
		stale := e.s.LastActivity.Before(cutoff) && !e.s.Transcribing
		id := e.s.ID
		e.mu.Unlock()
		if !stale {
			continue
		}

		st.mu.Lock()
		// Re-check under the registry lock; a mutator may have run since.
		if cur, ok := st.entries[id]; ok && cur == e {
			cur.mu.Lock()
			if cur.s.LastActivity.Before(cutoff) && !cur.s.Transcribing {
				delete(st.entries, id)
				st.logger.Info("session evicted",
					logging.F("session_id", id),
					logging.F("idle", time.Since(cur.s.LastActivity)))
			}
			cur.mu.Unlock()
		}
		n := len(st.entries)
		st.mu.Unlock()
		st.notifyCount(n)
	}
}

func (st *Store) notifyCount(n int) {
	if st.onCount != nil {
		st.onCount(n)
	}
}
