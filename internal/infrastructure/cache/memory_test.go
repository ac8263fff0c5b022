package cache

import (
	"context"
	"testing"
	"time"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
)

func TestMemoryProfileCache_GetSet(t *testing.T) {
	c := NewMemoryProfileCache(time.Minute)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "alice"); ok {
		t.Fatalf("empty cache should miss")
	}

	c.Set(ctx, "alice", entities.Profile{Name: "Alice", Role: "Engineer"})
	got, ok := c.Get(ctx, "alice")
	if !ok || got.Name != "Alice" || got.Role != "Engineer" {
		t.Fatalf("unexpected cache hit %+v %v", got, ok)
	}
}

func TestMemoryProfileCache_Expiry(t *testing.T) {
	c := NewMemoryProfileCache(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "bob", entities.Profile{Name: "Bob"})
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get(ctx, "bob"); ok {
		t.Fatalf("expired entry should miss")
	}

	c.cleanupExpired()
	if len(c.items) != 0 {
		t.Fatalf("cleanup should drop expired entries, %d left", len(c.items))
	}
}
