// Package kvtest provides conformance tests for kv.Store implementations
package kvtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leafsii/journal-backend/pkg/kv"
)

// StoreFactory creates a fresh Store instance for testing
type StoreFactory func(t *testing.T) kv.Store

// RunConformanceTests runs all conformance tests against a Store implementation
func RunConformanceTests(t *testing.T, factory StoreFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, store kv.Store)
	}{
		{"SetGet", testSetGet},
		{"GetNonExistent", testGetNonExistent},
		{"Overwrite", testOverwrite},
		{"Del", testDel},
		{"TTLExpiry", testTTLExpiry},
		{"OverwriteClearsTTL", testOverwriteClearsTTL},
		{"HealthCheck", testHealthCheck},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			tt.test(t, store)
		})
	}
}

func testSetGet(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "kvtest:string"
	value := []byte(`{"id":1,"name":"Travail"}`)

	if err := store.Set(ctx, key, value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(result) != string(value) {
		t.Errorf("Expected %q, got %q", value, result)
	}
}

func testGetNonExistent(t *testing.T, store kv.Store) {
	_, err := store.Get(context.Background(), "kvtest:missing")
	if !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func testOverwrite(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "kvtest:overwrite"

	if err := store.Set(ctx, key, []byte("one"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, key, []byte("two")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(result) != "two" {
		t.Errorf("Expected two, got %q", result)
	}
}

func testDel(t *testing.T, store kv.Store) {
	ctx := context.Background()
	keys := []string{"kvtest:del:1", "kvtest:del:2"}
	for _, key := range keys {
		if err := store.Set(ctx, key, []byte("v")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	deleted, err := store.Del(ctx, keys[0], keys[1], "kvtest:del:missing")
	if err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted keys, got %d", deleted)
	}

	if _, err := store.Get(ctx, keys[0]); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func testTTLExpiry(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "kvtest:ttl"

	if err := store.Set(ctx, key, []byte("short"), time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := store.Get(ctx, key); err != nil {
		t.Fatalf("Expected key to exist before expiry: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	if _, err := store.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after expiry, got %v", err)
	}
}

func testOverwriteClearsTTL(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "kvtest:ttl:overwrite"

	if err := store.Set(ctx, key, []byte("short"), time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, key, []byte("kept")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	result, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Expected key without ttl to survive: %v", err)
	}
	if string(result) != "kept" {
		t.Errorf("Expected kept, got %q", result)
	}
}

func testHealthCheck(t *testing.T, store kv.Store) {
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
