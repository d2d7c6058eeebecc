package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wochuna/Sacco/internal/metrics"
)

type memoryEntry struct {
	data      []byte
	updatedAt time.Time
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// MemoryStore keeps sessions in process. Sessions idle longer than the TTL
// are invisible to Load and removed by a background sweeper.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	locks   map[string]*keyLock
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics

	stopCh chan struct{}
	once   sync.Once
}

// NewMemoryStore creates a store and starts its sweeper. A non-positive
// sweepInterval disables the sweeper.
func NewMemoryStore(ttl, sweepInterval time.Duration, m *metrics.Metrics) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		locks:   make(map[string]*keyLock),
		ttl:     ttl,
		now:     time.Now,
		metrics: m,
		stopCh:  make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

// Lock serializes callers per session id. Different ids never contend.
func (s *MemoryStore) Lock(ctx context.Context, id string) (func(), error) {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		s.release(id, l)
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			s.release(id, l)
		})
	}, nil
}

func (s *MemoryStore) release(id string, l *keyLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
}

// Load returns a copy of the stored session.
func (s *MemoryStore) Load(_ context.Context, id string) (*Session, bool, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok && s.expired(entry, s.now()) {
		delete(s.entries, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	var sess Session
	if err := json.Unmarshal(entry.data, &sess); err != nil {
		return nil, false, err
	}
	return &sess, true, nil
}

// Save stores a copy of sess and refreshes its idle timer.
func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	now := s.now()
	sess.UpdatedAt = now.UTC()
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[sess.ID] = memoryEntry{data: data, updatedAt: now}
	n := len(s.entries)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(n)
	return nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	n := len(s.entries)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(n)
	return nil
}

// Len reports the number of stored sessions, expired ones included until the
// next sweep.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops sessions idle beyond the TTL and returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	removed := 0
	for id, entry := range s.entries {
		if s.expired(entry, now) {
			delete(s.entries, id)
			removed++
		}
	}
	n := len(s.entries)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(n)
	return removed
}

func (s *MemoryStore) expired(entry memoryEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(entry.updatedAt) > s.ttl
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep(s.now())
		case <-s.stopCh:
			return
		}
	}
}

// Close stops the sweeper.
func (s *MemoryStore) Close() {
	s.once.Do(func() {
		close(s.stopCh)
	})
}
