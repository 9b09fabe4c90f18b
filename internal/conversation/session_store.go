package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// SessionStore persists conversation state per username. Load returns a
// fresh idle state when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context, username string) (*State, error)
	Save(ctx context.Context, st *State) error
	Delete(ctx context.Context, username string) error
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*State
}

// NewMemorySessionStore returns an empty in-process store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*State)}
}

// Load returns a copy of the stored state, or a fresh one.
func (m *MemorySessionStore) Load(_ context.Context, username string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.sessions[username]; ok {
		return st.Clone(), nil
	}
	return NewState(username), nil
}

// Save stores a copy of st.
func (m *MemorySessionStore) Save(_ context.Context, st *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[st.Username] = st.Clone()
	return nil
}

// Delete drops the user's session.
func (m *MemorySessionStore) Delete(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, username)
	return nil
}

// RedisSessionStore keeps sessions as JSON values with a sliding TTL.
type RedisSessionStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

const defaultSessionTTL = 24 * time.Hour

// NewRedisSessionStore returns a store over client. A non-positive ttl
// uses the default and a nil tracer uses the global provider. It panics on
// a nil client.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisSessionStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("medbot.internal.conversation.sessions")
	}
	return &RedisSessionStore{redis: client, ttl: ttl, tracer: tracer}
}

// Load decodes the stored session, or returns a fresh one on a miss.
func (s *RedisSessionStore) Load(ctx context.Context, username string) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_session")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewState(username), nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load session: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode session: %w", err)
	}
	if st.Transcript == nil {
		st.Transcript = []Turn{}
	}
	return &st, nil
}

// Save writes st and resets its TTL.
func (s *RedisSessionStore) Save(ctx context.Context, st *State) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_session")
	defer span.End()

	data, err := json.Marshal(st)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(st.Username), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist session: %w", err)
	}
	return nil
}

// Delete removes the user's session key.
func (s *RedisSessionStore) Delete(ctx context.Context, username string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.delete_session")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(username)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to delete session: %w", err)
	}
	return nil
}

func sessionKey(username string) string {
	return fmt.Sprintf("medbot:session:%s", username)
}
