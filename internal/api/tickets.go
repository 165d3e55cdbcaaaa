package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/redis/go-redis/v9"
)

// WebSocket tickets are single-use and short-lived. A client obtains one
// with its bearer token, then opens /ws?ticket=... so the token never
// appears in a URL.

const (
	// defaultTicketTTL is used when the WebSocket config leaves it unset.
	defaultTicketTTL = 60 * time.Second

	// ticketLength is the nanoid length of a ticket.
	ticketLength = 32

	// ticketAttempts bounds retries on a (vanishingly rare) collision.
	ticketAttempts = 3

	redisTicketPrefix = "rentwise:ws-ticket:"
)

var errTicketCollision = errors.New("failed to generate a unique ticket")

// TicketStore issues and redeems WebSocket tickets.
type TicketStore interface {
	// Issue stores principal under a new ticket valid for ttl.
	Issue(ctx context.Context, principal Principal, ttl time.Duration) (string, error)
	// Redeem consumes a ticket. ok is false for unknown or expired tickets.
	Redeem(ctx context.Context, ticket string) (principal Principal, ok bool, err error)
}

// MemoryTicketStore keeps tickets in process. Suitable for a single replica.
type MemoryTicketStore struct {
	mu      sync.Mutex
	tickets map[string]memoryTicket
	now     func() time.Time
}

type memoryTicket struct {
	principal Principal
	expiresAt time.Time
}

// NewMemoryTicketStore creates an empty in-process store.
func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{
		tickets: make(map[string]memoryTicket),
		now:     time.Now,
	}
}

// Issue implements TicketStore.
func (m *MemoryTicketStore) Issue(_ context.Context, principal Principal, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for range ticketAttempts {
		ticket, err := gonanoid.New(ticketLength)
		if err != nil {
			return "", fmt.Errorf("generating ticket: %w", err)
		}
		if _, taken := m.tickets[ticket]; taken {
			continue
		}
		m.tickets[ticket] = memoryTicket{principal: principal, expiresAt: m.now().Add(ttl)}
		return ticket, nil
	}
	return "", errTicketCollision
}

// Redeem implements TicketStore.
func (m *MemoryTicketStore) Redeem(_ context.Context, ticket string) (Principal, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.tickets[ticket]
	if !ok {
		return Principal{}, false, nil
	}
	delete(m.tickets, ticket)

	if !m.now().Before(entry.expiresAt) {
		return Principal{}, false, nil
	}
	return entry.principal, true, nil
}

// PurgeExpired drops tickets that were never redeemed.
func (m *MemoryTicketStore) PurgeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	purged := 0
	for ticket, entry := range m.tickets {
		if !now.Before(entry.expiresAt) {
			delete(m.tickets, ticket)
			purged++
		}
	}
	return purged
}

// RedisTicketStore keeps tickets in Redis so any replica can redeem them.
// Expiry is enforced by the key TTL.
type RedisTicketStore struct {
	rdb redis.Cmdable
}

// NewRedisTicketStore creates a store on rdb. *cache.Client satisfies
// redis.Cmdable through its embedded client.
func NewRedisTicketStore(rdb redis.Cmdable) *RedisTicketStore {
	return &RedisTicketStore{rdb: rdb}
}

// Issue implements TicketStore.
func (s *RedisTicketStore) Issue(ctx context.Context, principal Principal, ttl time.Duration) (string, error) {
	payload, err := json.Marshal(principal)
	if err != nil {
		return "", fmt.Errorf("encoding ticket: %w", err)
	}

	for range ticketAttempts {
		ticket, err := gonanoid.New(ticketLength)
		if err != nil {
			return "", fmt.Errorf("generating ticket: %w", err)
		}
		ok, err := s.rdb.SetNX(ctx, redisTicketPrefix+ticket, payload, ttl).Result()
		if err != nil {
			return "", fmt.Errorf("storing ticket in redis: %w", err)
		}
		if ok {
			return ticket, nil
		}
	}
	return "", errTicketCollision
}

// Redeem implements TicketStore.
func (s *RedisTicketStore) Redeem(ctx context.Context, ticket string) (Principal, bool, error) {
	val, err := s.rdb.GetDel(ctx, redisTicketPrefix+ticket).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Principal{}, false, nil
		}
		return Principal{}, false, fmt.Errorf("redeeming ticket from redis: %w", err)
	}

	var principal Principal
	if err := json.Unmarshal([]byte(val), &principal); err != nil {
		return Principal{}, false, fmt.Errorf("decoding ticket: %w", err)
	}
	return principal, true, nil
}
