package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists CallSessions across stateless webhook requests.
//
// The store is ephemeral and keyed purely by call_id; it is NOT a system of
// record. Bookings are persisted separately by the booking finalizer.
type Store interface {
	GetOrCreate(ctx context.Context, callID, tenantID string) (*CallSession, error)
	Save(ctx context.Context, s *CallSession) error
	Delete(ctx context.Context, callID string) error
}

var ErrInvalidSession = errors.New("session: invalid session")

const keyPrefix = "session:"

// RedisStore keeps sessions as JSON values with a TTL so abandoned calls
// expire instead of leaking. Safe for multi-process deployment.
type RedisStore struct {
	rdb   *redis.Client
	ttl   time.Duration
	clock func() time.Time
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{rdb: rdb, ttl: ttl, clock: time.Now}
}

func (r *RedisStore) GetOrCreate(ctx context.Context, callID, tenantID string) (*CallSession, error) {
	if callID == "" || tenantID == "" {
		return nil, ErrInvalidSession
	}
	raw, err := r.rdb.Get(ctx, keyPrefix+callID).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(callID, tenantID, r.clock()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}
	var s CallSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	if s.TenantID != tenantID {
		// One tenant per session; a call_id must never hop tenants.
		return nil, ErrInvalidSession
	}
	if s.Slots == nil {
		s.Slots = map[string]string{}
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *CallSession) error {
	if s == nil || s.CallID == "" {
		return ErrInvalidSession
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	// TTL is refreshed on every save; an active call never expires mid-turn.
	if err := r.rdb.Set(ctx, keyPrefix+s.CallID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, callID string) error {
	if callID == "" {
		return ErrInvalidSession
	}
	if err := r.rdb.Del(ctx, keyPrefix+callID).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

// MemoryStore is for tests and early development. Deep-copies on the way in
// and out so callers cannot alias the stored state.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*CallSession
	clock    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*CallSession{}, clock: time.Now}
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, callID, tenantID string) (*CallSession, error) {
	if callID == "" || tenantID == "" {
		return nil, ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[callID]
	if !ok {
		return New(callID, tenantID, m.clock()), nil
	}
	if s.TenantID != tenantID {
		return nil, ErrInvalidSession
	}
	return copySession(s), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *CallSession) error {
	if s == nil || s.CallID == "" {
		return ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.CallID] = copySession(s)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, callID)
	return nil
}

func copySession(s *CallSession) *CallSession {
	out := *s
	out.Slots = make(map[string]string, len(s.Slots))
	for k, v := range s.Slots {
		out.Slots[k] = v
	}
	out.Utterances = append([]Utterance(nil), s.Utterances...)
	return &out
}
