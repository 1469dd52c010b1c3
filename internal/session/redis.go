package session

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/travel-reservation/internal/model"
)

// RedisStore keeps sessions in Redis with a key TTL equal to the
// session lifetime, so expired Pending sessions disappear without a
// sweeper.  Status transitions use WATCH-based optimistic transactions
// so exactly one concurrent caller wins a contested transition even
// across multiple server processes.
type RedisStore struct {
    rdb    *redis.Client
    ttl    time.Duration
    prefix string
}

// NewRedisStore returns a store using the given client.  The client
// must be non-nil; callers fall back to MemoryStore otherwise.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
    return &RedisStore{rdb: rdb, ttl: ttl, prefix: "resv:session:"}
}

func (s *RedisStore) key(transactionID string) string { return s.prefix + transactionID }

// Create opens a Pending session.  SetNX guards against the (already
// negligible) chance of a transaction id collision.
func (s *RedisStore) Create(ctx context.Context, p CreateParams) (*model.ReservationSession, error) {
    for attempt := 0; attempt < 3; attempt++ {
        sess, err := newSession(p, s.ttl)
        if err != nil {
            return nil, err
        }
        body, err := json.Marshal(sess)
        if err != nil {
            return nil, err
        }
        ok, err := s.rdb.SetNX(ctx, s.key(sess.TransactionID), body, s.ttl).Result()
        if err != nil {
            return nil, err
        }
        if ok {
            return sess, nil
        }
    }
    return nil, errors.New("session: could not allocate unique transaction id")
}

// Get returns the session for a transaction id.  Redis TTL already
// removes expired keys; a Pending session read inside the window but
// past its own expiry timestamp is reported as gone too.
func (s *RedisStore) Get(ctx context.Context, transactionID string) (*model.ReservationSession, error) {
    body, err := s.rdb.Get(ctx, s.key(transactionID)).Bytes()
    if err == redis.Nil {
        return nil, ErrSessionNotFound
    }
    if err != nil {
        return nil, err
    }
    var sess model.ReservationSession
    if err := json.Unmarshal(body, &sess); err != nil {
        return nil, err
    }
    if sess.Expired(time.Now().UTC()) {
        _ = s.rdb.Del(ctx, s.key(transactionID)).Err()
        return nil, ErrSessionNotFound
    }
    return &sess, nil
}

// Transition moves a session between statuses with an optimistic
// WATCH transaction.  Losing a race surfaces as ErrInvalidTransition
// after re-inspection, which callers treat as a benign duplicate.
func (s *RedisStore) Transition(ctx context.Context, transactionID string, from, to model.SessionStatus) (*model.ReservationSession, error) {
    key := s.key(transactionID)
    var updated *model.ReservationSession

    txn := func(tx *redis.Tx) error {
        body, err := tx.Get(ctx, key).Bytes()
        if err == redis.Nil {
            return ErrSessionNotFound
        }
        if err != nil {
            return err
        }
        var sess model.ReservationSession
        if err := json.Unmarshal(body, &sess); err != nil {
            return err
        }
        if sess.Expired(time.Now().UTC()) {
            return ErrSessionNotFound
        }
        if sess.Status != from || !model.ValidSessionTransition(from, to) {
            return ErrInvalidTransition
        }
        sess.Status = to
        next, err := json.Marshal(&sess)
        if err != nil {
            return err
        }
        _, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
            pipe.Set(ctx, key, next, redis.KeepTTL)
            return nil
        })
        if err == nil {
            updated = &sess
        }
        return err
    }

    for attempt := 0; attempt < 5; attempt++ {
        err := s.rdb.Watch(ctx, txn, key)
        if err == redis.TxFailedErr {
            continue // key changed under us; re-read and retry
        }
        if err != nil {
            return nil, err
        }
        return updated, nil
    }
    return nil, ErrInvalidTransition
}

// ListByStatus scans the session keyspace.  The recovery sweep runs
// infrequently, so a SCAN over the prefix is acceptable.
func (s *RedisStore) ListByStatus(ctx context.Context, status model.SessionStatus) ([]*model.ReservationSession, error) {
    var out []*model.ReservationSession
    iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
    for iter.Next(ctx) {
        body, err := s.rdb.Get(ctx, iter.Val()).Bytes()
        if err == redis.Nil {
            continue
        }
        if err != nil {
            return nil, err
        }
        var sess model.ReservationSession
        if err := json.Unmarshal(body, &sess); err != nil {
            continue
        }
        if sess.Status == status && !sess.Expired(time.Now().UTC()) {
            out = append(out, &sess)
        }
    }
    if err := iter.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// SweepExpired is mostly a no-op: Redis key TTLs remove expired
// sessions.  It still drops Pending sessions whose logical expiry has
// passed ahead of the key TTL.
func (s *RedisStore) SweepExpired(ctx context.Context) (int, error) {
    removed := 0
    now := time.Now().UTC()
    iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
    for iter.Next(ctx) {
        body, err := s.rdb.Get(ctx, iter.Val()).Bytes()
        if err != nil {
            continue
        }
        var sess model.ReservationSession
        if err := json.Unmarshal(body, &sess); err != nil {
            continue
        }
        if sess.Expired(now) {
            if s.rdb.Del(ctx, iter.Val()).Val() > 0 {
                removed++
            }
        }
    }
    return removed, iter.Err()
}
