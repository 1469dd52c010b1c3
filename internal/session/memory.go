package session

import (
    "context"
    "sync"
    "time"

    "github.com/iliyamo/travel-reservation/internal/model"
)

// MemoryStore keeps sessions in an in-process map.  It is the default
// store when Redis is not configured and the store used by tests.  All
// methods are safe for concurrent use.
type MemoryStore struct {
    mu       sync.RWMutex
    sessions map[string]*model.ReservationSession
    ttl      time.Duration

    now func() time.Time // injectable clock for expiry tests
}

// NewMemoryStore returns an empty store whose sessions expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
    return &MemoryStore{
        sessions: make(map[string]*model.ReservationSession),
        ttl:      ttl,
        now:      func() time.Time { return time.Now().UTC() },
    }
}

// SetClock overrides the store's clock.  Test helper.
func (s *MemoryStore) SetClock(now func() time.Time) { s.now = now }

// Create opens a Pending session with a fresh transaction id.
func (s *MemoryStore) Create(ctx context.Context, p CreateParams) (*model.ReservationSession, error) {
    sess, err := newSession(p, s.ttl)
    if err != nil {
        return nil, err
    }
    sess.CreatedAt = s.now()
    sess.ExpiresAt = sess.CreatedAt.Add(s.ttl)
    s.mu.Lock()
    s.sessions[sess.TransactionID] = sess
    s.mu.Unlock()
    return copySession(sess), nil
}

// Get returns a session, sweeping it lazily when an expired Pending
// session is found.
func (s *MemoryStore) Get(ctx context.Context, transactionID string) (*model.ReservationSession, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    sess, ok := s.sessions[transactionID]
    if !ok {
        return nil, ErrSessionNotFound
    }
    if sess.Expired(s.now()) {
        delete(s.sessions, transactionID)
        return nil, ErrSessionNotFound
    }
    return copySession(sess), nil
}

// Transition performs a compare-and-swap on the session status.
func (s *MemoryStore) Transition(ctx context.Context, transactionID string, from, to model.SessionStatus) (*model.ReservationSession, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    sess, ok := s.sessions[transactionID]
    if !ok || sess.Expired(s.now()) {
        return nil, ErrSessionNotFound
    }
    if sess.Status != from || !model.ValidSessionTransition(from, to) {
        return nil, ErrInvalidTransition
    }
    sess.Status = to
    return copySession(sess), nil
}

// ListByStatus returns all sessions currently in the given status.
func (s *MemoryStore) ListByStatus(ctx context.Context, status model.SessionStatus) ([]*model.ReservationSession, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    var out []*model.ReservationSession
    for _, sess := range s.sessions {
        if sess.Status == status && !sess.Expired(s.now()) {
            out = append(out, copySession(sess))
        }
    }
    return out, nil
}

// SweepExpired drops expired Pending sessions (transitioning them to
// Released is implicit in their removal: no inventory was ever held)
// and terminal sessions past their expiry.
func (s *MemoryStore) SweepExpired(ctx context.Context) (int, error) {
    now := s.now()
    s.mu.Lock()
    defer s.mu.Unlock()
    removed := 0
    for id, sess := range s.sessions {
        terminal := sess.Status == model.SessionCommitted || sess.Status == model.SessionReleased
        if sess.Expired(now) || (terminal && now.After(sess.ExpiresAt)) {
            delete(s.sessions, id)
            removed++
        }
    }
    return removed, nil
}

// copySession returns a defensive copy so callers cannot mutate the
// store's record outside Transition.
func copySession(s *model.ReservationSession) *model.ReservationSession {
    out := *s
    out.UnitCodes = append([]string(nil), s.UnitCodes...)
    return &out
}
