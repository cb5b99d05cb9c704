package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreExpiresEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	if err := store.SetJSON(ctx, "timeline:1", []int{1, 2}, time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	var got []int
	hit, err := store.GetJSON(ctx, "timeline:1", &got)
	if err != nil || !hit || len(got) != 2 {
		t.Fatalf("expected hit, got hit=%v err=%v value=%v", hit, err, got)
	}

	now = now.Add(time.Hour)
	hit, err = store.GetJSON(ctx, "timeline:1", &got)
	if err != nil || hit {
		t.Fatalf("expected expired miss, got hit=%v err=%v", hit, err)
	}
	if store.Len() != 0 {
		t.Fatalf("expired entry should be evicted")
	}
}

func TestMemoryStoreDelMultipleKeys(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		if err := store.SetJSON(ctx, key, key, 0); err != nil {
			t.Fatalf("set %s failed: %v", key, err)
		}
	}
	if err := store.Del(ctx, "a", "b"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	var value string
	if hit, _ := store.GetJSON(ctx, "c", &value); !hit || value != "c" {
		t.Fatalf("expected c to remain")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", store.Len())
	}
}
