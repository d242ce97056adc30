// Package journal implements the journal's operations on top of the store,
// blob storage, read cache and change feed.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/leafsii/journal-backend/internal/db/interfaces"
	"github.com/leafsii/journal-backend/internal/metrics"
	"github.com/leafsii/journal-backend/internal/storage"
	"github.com/leafsii/journal-backend/internal/store"
)

type Service struct {
	db      interfaces.Database
	blobs   storage.Storage
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics

	cache    *store.Cache
	cacheTTL time.Duration
	events   Publisher

	group singleflight.Group

	genMu sync.Mutex
	gens  map[string]uint64 // bumped by every invalidation of a key
}

// sharedLoadTimeout bounds a cache fill that several requests wait on
const sharedLoadTimeout = 30 * time.Second

type Option func(*Service)

// WithCache enables the read cache for category and entry reads
func WithCache(cache *store.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithEvents publishes a change event after every successful write
func WithEvents(p Publisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(db interfaces.Database, blobs storage.Storage, logger *zap.SugaredLogger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Service{
		db:     db,
		blobs:  blobs,
		logger: logger,
		gens:   make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports the first unavailable dependency
func (s *Service) Ready(ctx context.Context) error {
	if !s.db.IsHealthy(ctx) {
		return errors.New("database unavailable")
	}
	if err := s.blobs.Health(ctx); err != nil {
		return fmt.Errorf("storage unavailable: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			return fmt.Errorf("cache unavailable: %w", err)
		}
	}
	return nil
}

// cachedRead serves key from the cache, loading it at most once concurrently
// on a miss. The shared load does not depend on any one caller's context; a
// load that overlaps an invalidation of key never writes back.
func cachedRead[T any](ctx context.Context, s *Service, key string, load func(context.Context) (T, error)) (T, error) {
	if s.cache == nil {
		return load(ctx)
	}

	var cached T
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, store.ErrCacheMiss) {
		s.logger.Warnw("Cache read failed; reading from database", "key", key, "error", err)
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		gen := s.generation(key)

		loadCtx, cancel := context.WithTimeout(detach(ctx), sharedLoadTimeout)
		defer cancel()

		val, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if s.generation(key) != gen {
			return val, nil
		}
		if err := s.cache.Set(loadCtx, key, val, s.cacheTTL); err != nil {
			s.logger.Warnw("Cache write failed", "key", key, "error", err)
		}
		// an invalidation may have slipped in between the check and the write
		if s.generation(key) != gen {
			if err := s.cache.Delete(loadCtx, key); err != nil {
				s.logger.Warnw("Cache invalidation failed", "keys", []string{key}, "error", err)
			}
		}
		return val, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (s *Service) generation(key string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[key]
}

// invalidate bumps the generation of keys before deleting them so loads
// already in flight drop their result.
func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	s.genMu.Lock()
	for _, key := range keys {
		s.gens[key]++
	}
	s.genMu.Unlock()

	for _, key := range keys {
		s.group.Forget(key)
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warnw("Cache invalidation failed", "keys", keys, "error", err)
	}
}

// detach keeps writes running when the client goes away mid-request
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
