package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/tenantwise/audittrail/pkg/storage"
)

// setupStoreTest creates a miniredis instance and returns the store and a
// cleanup function
func setupStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	config := storage.DefaultConfig()
	config.RedisURL = "redis://" + mr.Addr()

	store, err := New(config)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create store: %v", err)
	}

	cleanup := func() {
		store.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func TestNew_InvalidURL(t *testing.T) {
	config := storage.DefaultConfig()
	config.RedisURL = "invalid://url"

	_, err := New(config)
	if err == nil {
		t.Fatal("Expected error for invalid redis URL")
	}
}

func TestNew_ConnectionFailure(t *testing.T) {
	config := storage.DefaultConfig()
	config.RedisURL = "redis://localhost:9999" // Non-existent server

	_, err := New(config)
	if err == nil {
		t.Fatal("Expected connection error")
	}
}

func TestStore_Key(t *testing.T) {
	store, _, cleanup := setupStoreTest(t)
	defer cleanup()

	if got := store.Key("event", "abc"); got != "audit:event:abc" {
		t.Errorf("Expected key 'audit:event:abc', got %q", got)
	}

	if got := store.Key("index", "all"); got != "audit:index:all" {
		t.Errorf("Expected key 'audit:index:all', got %q", got)
	}
}

func TestStore_SetAndGet(t *testing.T) {
	store, _, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()

	if err := store.Set(ctx, "test:key", []byte(`{"a":1}`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	data, err := store.Get(ctx, "test:key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if string(data) != `{"a":1}` {
		t.Errorf("Expected value %q, got %q", `{"a":1}`, string(data))
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	store, _, cleanup := setupStoreTest(t)
	defer cleanup()

	data, err := store.Get(context.Background(), "missing:key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if data != nil {
		t.Errorf("Expected nil for missing key, got %q", string(data))
	}
}

func TestStore_Del(t *testing.T) {
	store, mr, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	mr.Set("test:key", "value")

	if err := store.Del(ctx, "test:key"); err != nil {
		t.Fatalf("Del failed: %v", err)
	}

	if mr.Exists("test:key") {
		t.Error("Expected key to be deleted")
	}
}

func TestStore_ZAddAndZRangeByScore(t *testing.T) {
	store, _, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	key := "test:index"

	members := map[string]float64{
		"ev-1": 100,
		"ev-2": 200,
		"ev-3": 300,
	}
	for member, score := range members {
		if err := store.ZAdd(ctx, key, score, member); err != nil {
			t.Fatalf("ZAdd failed: %v", err)
		}
	}

	got, err := store.ZRangeByScore(ctx, key, "0", "+inf", 0, 0)
	if err != nil {
		t.Fatalf("ZRangeByScore failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 members, got %d", len(got))
	}

	// Ascending score order
	if got[0] != "ev-1" || got[1] != "ev-2" || got[2] != "ev-3" {
		t.Errorf("Expected score-ordered members, got %v", got)
	}
}

func TestStore_ZRangeByScore_Bounds(t *testing.T) {
	store, _, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	key := "test:index"

	for i, member := range []string{"a", "b", "c", "d"} {
		if err := store.ZAdd(ctx, key, float64((i+1)*100), member); err != nil {
			t.Fatalf("ZAdd failed: %v", err)
		}
	}

	got, err := store.ZRangeByScore(ctx, key, "150", "350", 0, 0)
	if err != nil {
		t.Fatalf("ZRangeByScore failed: %v", err)
	}
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("Expected [b c], got %v", got)
	}
}

func TestStore_ZRangeByScore_OffsetAndCount(t *testing.T) {
	store, _, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	key := "test:index"

	for i, member := range []string{"a", "b", "c", "d", "e"} {
		if err := store.ZAdd(ctx, key, float64(i), member); err != nil {
			t.Fatalf("ZAdd failed: %v", err)
		}
	}

	got, err := store.ZRangeByScore(ctx, key, "0", "+inf", 1, 2)
	if err != nil {
		t.Fatalf("ZRangeByScore failed: %v", err)
	}
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("Expected [b c], got %v", got)
	}
}

func TestStore_ZRem(t *testing.T) {
	store, _, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	key := "test:index"

	if err := store.ZAdd(ctx, key, 100, "ev-1"); err != nil {
		t.Fatalf("ZAdd failed: %v", err)
	}
	if err := store.ZAdd(ctx, key, 200, "ev-2"); err != nil {
		t.Fatalf("ZAdd failed: %v", err)
	}

	if err := store.ZRem(ctx, key, "ev-1"); err != nil {
		t.Fatalf("ZRem failed: %v", err)
	}

	got, err := store.ZRangeByScore(ctx, key, "0", "+inf", 0, 0)
	if err != nil {
		t.Fatalf("ZRangeByScore failed: %v", err)
	}
	if len(got) != 1 || got[0] != "ev-2" {
		t.Errorf("Expected [ev-2], got %v", got)
	}

	// Removing an absent member is not an error
	if err := store.ZRem(ctx, key, "ev-404"); err != nil {
		t.Errorf("ZRem of absent member failed: %v", err)
	}
}

func TestStore_Expire(t *testing.T) {
	store, mr, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	mr.Set("test:key", "value")

	if err := store.Expire(ctx, "test:key", time.Second); err != nil {
		t.Fatalf("Expire failed: %v", err)
	}

	ttl, err := store.TTL(ctx, "test:key")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Second {
		t.Errorf("Expected TTL in (0, 1s], got %v", ttl)
	}

	mr.FastForward(2 * time.Second)
	if mr.Exists("test:key") {
		t.Error("Expected key to expire")
	}
}

func TestStore_Ping(t *testing.T) {
	store, mr, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	mr.Close()
	if err := store.Ping(ctx); err == nil {
		t.Error("Expected ping error after server shutdown")
	}
}

func TestStore_ContextCancellation(t *testing.T) {
	store, _, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Set(ctx, "test:key", []byte("value"), 0); err == nil {
		t.Fatal("Expected error with cancelled context")
	}
}
