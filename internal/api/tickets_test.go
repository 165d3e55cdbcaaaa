package api

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nerrad567/rentwise-core/internal/auth"
)

var ticketPrincipal = Principal{Username: "tom", Role: auth.RoleUser}

func TestMemoryTicketStore_SingleUse(t *testing.T) {
	store := NewMemoryTicketStore()

	ticket, err := store.Issue(t.Context(), ticketPrincipal, time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if len(ticket) != ticketLength {
		t.Errorf("ticket length = %d, want %d", len(ticket), ticketLength)
	}

	got, ok, err := store.Redeem(t.Context(), ticket)
	if err != nil || !ok {
		t.Fatalf("Redeem() = %v, %v, want ok", ok, err)
	}
	if got != ticketPrincipal {
		t.Errorf("Redeem() principal = %+v, want %+v", got, ticketPrincipal)
	}

	if _, ok, _ := store.Redeem(t.Context(), ticket); ok {
		t.Error("second Redeem() succeeded")
	}
	if _, ok, _ := store.Redeem(t.Context(), "never-issued"); ok {
		t.Error("Redeem() of unknown ticket succeeded")
	}
}

func TestMemoryTicketStore_Expiry(t *testing.T) {
	store := NewMemoryTicketStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	stale, err := store.Issue(t.Context(), ticketPrincipal, time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := store.Issue(t.Context(), ticketPrincipal, time.Minute); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	now = now.Add(time.Minute)

	if _, ok, _ := store.Redeem(t.Context(), stale); ok {
		t.Error("Redeem() of expired ticket succeeded")
	}
	if n := store.PurgeExpired(); n != 1 {
		t.Errorf("PurgeExpired() = %d, want 1", n)
	}
	if n := store.PurgeExpired(); n != 0 {
		t.Errorf("second PurgeExpired() = %d, want 0", n)
	}
}

func TestRedisTicketStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() }) //nolint:errcheck // Test cleanup

	store := NewRedisTicketStore(rdb)

	ticket, err := store.Issue(t.Context(), ticketPrincipal, time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !mr.Exists(redisTicketPrefix + ticket) {
		t.Fatalf("key %q not stored", redisTicketPrefix+ticket)
	}
	if ttl := mr.TTL(redisTicketPrefix + ticket); ttl != time.Minute {
		t.Errorf("key TTL = %v, want 1m", ttl)
	}

	got, ok, err := store.Redeem(t.Context(), ticket)
	if err != nil || !ok {
		t.Fatalf("Redeem() = %v, %v, want ok", ok, err)
	}
	if got != ticketPrincipal {
		t.Errorf("Redeem() principal = %+v, want %+v", got, ticketPrincipal)
	}
	if _, ok, err := store.Redeem(t.Context(), ticket); ok || err != nil {
		t.Errorf("second Redeem() = %v, %v, want not ok and no error", ok, err)
	}

	expiring, err := store.Issue(t.Context(), ticketPrincipal, time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := store.Redeem(t.Context(), expiring); ok {
		t.Error("Redeem() of expired ticket succeeded")
	}
}

func TestRedisTicketStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() }) //nolint:errcheck // Test cleanup
	mr.Close()

	store := NewRedisTicketStore(rdb)
	if _, err := store.Issue(t.Context(), ticketPrincipal, time.Minute); err == nil {
		t.Error("Issue() against a stopped server expected error")
	}
	if _, _, err := store.Redeem(t.Context(), "anything"); err == nil {
		t.Error("Redeem() against a stopped server expected error")
	}
}
