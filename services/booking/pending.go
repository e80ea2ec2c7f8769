package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrPendingNotFound is returned when a pending token is unknown or expired.
var ErrPendingNotFound = errors.New("pending workflow not found or expired")

// PendingExtension is the server-held state between an extension preview and
// its confirming call. The confirming call presents the token instead of
// resending every parameter, so parameter drift between rounds cannot
// silently change the outcome.
type PendingExtension struct {
	BookingID       string `json:"booking_id"`
	CheckInDate     string `json:"check_in_date"`
	CheckOutDate    string `json:"check_out_date"`
	PreferredRateID string `json:"preferred_rate_id,omitempty"`
	SelectedRateID  string `json:"selected_rate_id,omitempty"`
}

// PendingStore holds pending-confirmation workflow state, time-bounded.
type PendingStore interface {
	Put(ctx context.Context, token string, pending PendingExtension) error
	Get(ctx context.Context, token string) (*PendingExtension, error)
	Delete(ctx context.Context, token string) error
}

// RedisPendingStore implements PendingStore on Redis with a TTL per entry.
type RedisPendingStore struct {
	Client *redis.Client
	TTL    time.Duration
}

const pendingKeyPrefix = "pending:extension:"

func (s *RedisPendingStore) Put(ctx context.Context, token string, pending PendingExtension) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending workflow: %w", err)
	}
	if err := s.Client.Set(ctx, pendingKeyPrefix+token, data, s.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store pending workflow: %w", err)
	}
	return nil
}

func (s *RedisPendingStore) Get(ctx context.Context, token string) (*PendingExtension, error) {
	data, err := s.Client.Get(ctx, pendingKeyPrefix+token).Result()
	if err == redis.Nil {
		return nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending workflow: %w", err)
	}
	var pending PendingExtension
	if err := json.Unmarshal([]byte(data), &pending); err != nil {
		return nil, fmt.Errorf("failed to parse pending workflow: %w", err)
	}
	return &pending, nil
}

func (s *RedisPendingStore) Delete(ctx context.Context, token string) error {
	return s.Client.Del(ctx, pendingKeyPrefix+token).Err()
}

// MemoryPendingStore is the in-process PendingStore used in tests.
type MemoryPendingStore struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
	TTL     time.Duration
}

type pendingEntry struct {
	pending   PendingExtension
	expiresAt time.Time
}

func NewMemoryPendingStore(ttl time.Duration) *MemoryPendingStore {
	return &MemoryPendingStore{entries: make(map[string]pendingEntry), TTL: ttl}
}

func (s *MemoryPendingStore) Put(ctx context.Context, token string, pending PendingExtension) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = pendingEntry{pending: pending, expiresAt: time.Now().Add(s.TTL)}
	return nil
}

func (s *MemoryPendingStore) Get(ctx context.Context, token string) (*PendingExtension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.entries, token)
		return nil, ErrPendingNotFound
	}
	pending := entry.pending
	return &pending, nil
}

func (s *MemoryPendingStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}
