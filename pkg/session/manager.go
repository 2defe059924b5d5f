package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/mentor"
	"github.com/aretw0/mentor/internal/logging"
	"github.com/aretw0/mentor/pkg/domain"
	"github.com/aretw0/mentor/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed session lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Observer is notified with the changes an action made to a session.
type Observer func(ctx context.Context, sessionID string, diff *domain.SnapshotDiff)

// Manager keeps the live sessions of a replica and persists their snapshots.
// A session unknown to the replica is resumed from the store on first access.
//
// Store access is serialized per session with reference-counted local locks
// and, optionally, a distributed lock. Session actions themselves run outside
// those locks: the session rejects a concurrent trigger of the same action
// with domain.ErrBusy instead of queueing it.
type Manager struct {
	tutor *mentor.Tutor
	store ports.SnapshotStore

	mu    sync.Mutex
	locks map[string]*lockEntry
	live  map[string]*mentor.Session

	locker    ports.DistributedLocker
	lockTTL   time.Duration
	observers []Observer
	logger    *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithObserver registers a callback receiving the diff produced by each action.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observers = append(m.observers, o)
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Session Manager starting sessions through tutor and
// persisting them in store.
func NewManager(tutor *mentor.Tutor, store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		tutor:   tutor,
		store:   store,
		locks:   make(map[string]*lockEntry),
		live:    make(map[string]*mentor.Session),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes fn while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Start opens a new session and persists its first snapshot.
func (m *Manager) Start(ctx context.Context, conceptID string, level domain.KnowledgeLevel) (*mentor.Session, error) {
	sess, err := m.tutor.Start(ctx, conceptID, level)
	if err != nil {
		return nil, err
	}
	id := sess.ID()

	err = m.WithLock(ctx, id, func(ctx context.Context) error {
		m.mu.Lock()
		m.live[id] = sess
		m.mu.Unlock()
		snap := sess.Snapshot()
		return m.store.Save(ctx, id, &snap)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist session %s: %w", id, err)
	}

	m.notify(ctx, id, nil, sess)
	m.logger.Info("session registered", "session_id", id, "concept_id", conceptID)
	return sess, nil
}

// Get returns the live session, resuming it from the store if needed.
// It returns domain.ErrSessionNotFound for unknown IDs.
func (m *Manager) Get(ctx context.Context, sessionID string) (*mentor.Session, error) {
	if sess := m.lookup(sessionID); sess != nil {
		return sess, nil
	}

	var sess *mentor.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if sess = m.lookup(sessionID); sess != nil {
			return nil
		}
		snap, err := m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		sess, err = m.tutor.Resume(*snap)
		if err != nil {
			return fmt.Errorf("failed to resume session: %w", err)
		}
		m.mu.Lock()
		m.live[sessionID] = sess
		m.mu.Unlock()
		m.logger.Debug("session resumed from store", "session_id", sessionID)
		return nil
	})
	return sess, err
}

func (m *Manager) lookup(sessionID string) *mentor.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[sessionID]
}

// Do runs an action against a session and persists the resulting snapshot.
// The action error is returned as-is so callers can match domain sentinels.
func (m *Manager) Do(ctx context.Context, sessionID string, fn func(context.Context, *mentor.Session) error) error {
	sess, err := m.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	before := sess.Snapshot()
	actionErr := fn(ctx, sess)

	if err := m.persist(ctx, sessionID, sess); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) && actionErr != nil {
			return actionErr
		}
		if actionErr != nil {
			return errors.Join(actionErr, err)
		}
		return err
	}
	m.notify(ctx, sessionID, &before, sess)
	return actionErr
}

// Save persists the current snapshot of a live session.
func (m *Manager) Save(ctx context.Context, sessionID string) error {
	sess := m.lookup(sessionID)
	if sess == nil {
		return domain.ErrSessionNotFound
	}
	return m.persist(ctx, sessionID, sess)
}

// persist saves the snapshot of sess only while it is the live instance of
// sessionID. An action that outlives Discard or Evict must not write back.
func (m *Manager) persist(ctx context.Context, sessionID string, sess *mentor.Session) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if m.lookup(sessionID) != sess {
			m.logger.Debug("session no longer live, snapshot dropped", "session_id", sessionID)
			return fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
		}
		snap := sess.Snapshot()
		if err := m.store.Save(ctx, sessionID, &snap); err != nil {
			return fmt.Errorf("failed to persist session %s: %w", sessionID, err)
		}
		return nil
	})
}

// Discard stops the session and removes it from the replica and the store.
func (m *Manager) Discard(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.mu.Lock()
		sess := m.live[sessionID]
		delete(m.live, sessionID)
		m.mu.Unlock()
		if sess != nil {
			sess.Stop(ctx)
		}
		return m.store.Delete(ctx, sessionID)
	})
}

// Evict forgets the live instance of a session without touching the store.
// The next access resumes it from its last snapshot.
func (m *Manager) Evict(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, sessionID)
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

func (m *Manager) notify(ctx context.Context, sessionID string, before *domain.Snapshot, sess *mentor.Session) {
	if len(m.observers) == 0 {
		return
	}
	after := sess.Snapshot()
	diff := domain.Diff(before, &after)
	if diff == nil {
		return
	}
	for _, o := range m.observers {
		o(ctx, sessionID, diff)
	}
}
