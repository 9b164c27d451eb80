package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nordlys-fintech/fraud-detector/internal/config"
	"github.com/nordlys-fintech/fraud-detector/internal/metrics"
)

const scanBatchSize = 100

// redisCommands is the subset of the Redis API the cache uses.
type redisCommands interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// Stats is the cache observability snapshot.
type Stats struct {
	Available bool  `json:"available"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
}

// Service is a read-through cache on Redis. Every operation degrades to a
// no-op when the backing store is unreachable: a cache outage slows reads
// down to storage latency but never fails them.
type Service struct {
	client redisCommands
	rdb    *redis.Client
	logger *logrus.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewService connects to Redis. A connection failure is logged and leaves the
// cache disabled rather than failing the process.
func NewService(env *config.Config, logger *logrus.Logger) *Service {
	db, err := strconv.Atoi(env.RedisDB)
	if err != nil {
		logger.WithError(err).Warn("Cache.NewService.invalid REDIS_DB, using 0")
		db = 0
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         env.RedisAddress,
		Password:     env.RedisPassword,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	service := &Service{client: rdb, rdb: rdb, logger: logger}

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.WithError(err).Warn("Cache.NewService.unreachable, cache disabled")
		metrics.CacheAvailable.Set(0)
		service.client = nil
		service.rdb = nil
		return service
	}

	logger.WithField("address", env.RedisAddress).Info("Cache.NewService.connected")
	metrics.CacheAvailable.Set(1)
	return service
}

// Key derives a deterministic cache key from the logical query name and its
// parameters. Identical parameter sets produce identical keys regardless of
// map iteration order.
func Key(endpoint string, params map[string]any) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([][2]any, len(names))
	for i, name := range names {
		pairs[i] = [2]any{name, params[name]}
	}

	serialized, _ := json.Marshal(pairs)
	digest := md5.Sum(serialized)
	return endpoint + ":" + hex.EncodeToString(digest[:])
}

// Available reports whether the backing store is reachable.
func (s *Service) Available(ctx context.Context) bool {
	if s.client == nil {
		return false
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		metrics.CacheAvailable.Set(0)
		return false
	}
	metrics.CacheAvailable.Set(1)
	return true
}

// Get returns the cached JSON value for key. A corrupted entry is deleted and
// reported as a miss so it can never be served to a caller.
func (s *Service) Get(ctx context.Context, key string, keyType string) ([]byte, bool) {
	if !s.Available(ctx) {
		return nil, false
	}

	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.WithError(err).WithField("key", key).Error("Cache.Get.error")
			metrics.CacheErrors.WithLabelValues("get").Inc()
		}
		s.misses.Add(1)
		metrics.CacheMisses.WithLabelValues(keyType).Inc()
		return nil, false
	}

	if !json.Valid(value) {
		s.logger.WithField("key", key).Error("Cache.Get.corrupted entry, deleting")
		metrics.CacheErrors.WithLabelValues("get").Inc()
		s.Delete(ctx, key)
		s.misses.Add(1)
		metrics.CacheMisses.WithLabelValues(keyType).Inc()
		return nil, false
	}

	s.hits.Add(1)
	metrics.CacheHits.WithLabelValues(keyType).Inc()
	return value, true
}

// Set stores value under key. A zero ttl means no automatic expiry.
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if !s.Available(ctx) {
		return false
	}

	serialized, err := json.Marshal(value)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Error("Cache.Set.serialize error")
		metrics.CacheErrors.WithLabelValues("set").Inc()
		return false
	}

	if err := s.client.Set(ctx, key, serialized, ttl).Err(); err != nil {
		s.logger.WithError(err).WithField("key", key).Error("Cache.Set.error")
		metrics.CacheErrors.WithLabelValues("set").Inc()
		return false
	}
	return true
}

// Delete removes a single key.
func (s *Service) Delete(ctx context.Context, key string) bool {
	if s.client == nil {
		return false
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.WithError(err).WithField("key", key).Error("Cache.Delete.error")
		metrics.CacheErrors.WithLabelValues("delete").Inc()
		return false
	}
	return true
}

// InvalidatePattern deletes every key matching pattern (e.g. "anomalies:*")
// and returns the number of keys deleted. Writers call this after committing
// a mutation so a stale read cannot repopulate the domain with pre-write data.
func (s *Service) InvalidatePattern(ctx context.Context, pattern string) int {
	if !s.Available(ctx) {
		return 0
	}

	deleted := 0
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			s.logger.WithError(err).WithField("pattern", pattern).Error("Cache.InvalidatePattern.scan error")
			metrics.CacheErrors.WithLabelValues("invalidate_pattern").Inc()
			return deleted
		}

		if len(keys) > 0 {
			removed, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				s.logger.WithError(err).WithField("pattern", pattern).Error("Cache.InvalidatePattern.delete error")
				metrics.CacheErrors.WithLabelValues("invalidate_pattern").Inc()
				return deleted
			}
			deleted += int(removed)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	s.logger.WithFields(logrus.Fields{
		"pattern": pattern,
		"deleted": deleted,
	}).Info("Cache.InvalidatePattern.done")
	return deleted
}

// Stats returns hit/miss counters and the availability flag.
func (s *Service) Stats(ctx context.Context) Stats {
	return Stats{
		Available: s.Available(ctx),
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
	}
}

func (s *Service) Close() error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
