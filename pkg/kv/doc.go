// Package kv provides a Redis-like key-value store abstraction with in-memory
// and Redis-backed implementations.
//
// Values are opaque byte slices with an optional TTL. The journal read cache
// stores JSON documents here:
//
//	store := memory.New(30 * time.Second)
//	defer store.Close()
//
//	err := store.Set(ctx, "journal:categories", data, 30*time.Second)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	value, err := store.Get(ctx, "journal:categories")
//	if errors.Is(err, kv.ErrNotFound) {
//		log.Println("Key not found")
//	}
//
// The in-memory implementation expires keys lazily on read and in a
// background janitor. The Redis adapter wraps go-redis/v9.
package kv
