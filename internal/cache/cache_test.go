package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/nordlys-fintech/fraud-detector/internal/logging"
)

// fakeRedis is an in-memory stand-in for the narrow Redis surface the cache
// uses, with TTL support.
type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	expiry map[string]time.Time
	down   bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		values: make(map[string]string),
		expiry: make(map[string]time.Time),
	}
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	if f.down {
		return redis.NewStatusResult("", errors.New("connection refused"))
	}
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if deadline, ok := f.expiry[key]; ok && time.Now().After(deadline) {
		delete(f.values, key)
		delete(f.expiry, key)
	}

	value, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values[key] = string(value.([]byte))
	if expiration > 0 {
		f.expiry[key] = time.Now().Add(expiration)
	} else {
		delete(f.expiry, key)
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	deleted := int64(0)
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			delete(f.expiry, key)
			deleted++
		}
	}
	return redis.NewIntResult(deleted, nil)
}

func (f *fakeRedis) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for key := range f.values {
		if ok, _ := path.Match(match, key); ok {
			keys = append(keys, key)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func newTestService(fake *fakeRedis) *Service {
	return &Service{client: fake, logger: logging.SetupLogging()}
}

// -- Key derivation tests --

func TestKey_OrderIndependent(t *testing.T) {
	first := Key("anomalies", map[string]any{"limit": 100, "offset": 0, "status": "NEW"})
	second := Key("anomalies", map[string]any{"status": "NEW", "offset": 0, "limit": 100})

	assert.Equal(t, first, second)
}

func TestKey_DistinctParamsDistinctKeys(t *testing.T) {
	first := Key("anomalies", map[string]any{"limit": 100})
	second := Key("anomalies", map[string]any{"limit": 200})

	assert.NotEqual(t, first, second)
}

func TestKey_DomainPrefix(t *testing.T) {
	key := Key("anomalies", map[string]any{"limit": 100})
	assert.Regexp(t, `^anomalies:[0-9a-f]{32}$`, key)
}

// -- Service tests --

func TestSetThenGet(t *testing.T) {
	svc := newTestService(newFakeRedis())
	ctx := context.Background()

	ok := svc.Set(ctx, "anomalies:abc", map[string]int{"count": 42}, time.Minute)
	assert.True(t, ok)

	value, found := svc.Get(ctx, "anomalies:abc", "anomalies")
	assert.True(t, found)
	assert.JSONEq(t, `{"count":42}`, string(value))
}

func TestGet_ExpiredEntryIsMiss(t *testing.T) {
	svc := newTestService(newFakeRedis())
	ctx := context.Background()

	svc.Set(ctx, "anomalies:abc", "value", 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	_, found := svc.Get(ctx, "anomalies:abc", "anomalies")
	assert.False(t, found)
}

func TestGet_CorruptedEntrySelfHeals(t *testing.T) {
	fake := newFakeRedis()
	fake.values["anomalies:bad"] = "{not json"
	svc := newTestService(fake)

	_, found := svc.Get(context.Background(), "anomalies:bad", "anomalies")
	assert.False(t, found)

	_, stillThere := fake.values["anomalies:bad"]
	assert.False(t, stillThere, "corrupted entry should be deleted")
}

func TestInvalidatePattern_DeletesOnlyDomain(t *testing.T) {
	svc := newTestService(newFakeRedis())
	ctx := context.Background()

	svc.Set(ctx, "anomalies:one", 1, 0)
	svc.Set(ctx, "anomalies:two", 2, 0)
	svc.Set(ctx, "stats:other", 3, 0)

	deleted := svc.InvalidatePattern(ctx, "anomalies:*")
	assert.Equal(t, 2, deleted)

	_, found := svc.Get(ctx, "anomalies:one", "anomalies")
	assert.False(t, found)
	_, found = svc.Get(ctx, "stats:other", "stats")
	assert.True(t, found)
}

func TestDisabledCacheNoOps(t *testing.T) {
	svc := &Service{client: nil, logger: logging.SetupLogging()}
	ctx := context.Background()

	assert.False(t, svc.Available(ctx))
	assert.False(t, svc.Set(ctx, "k", "v", 0))

	_, found := svc.Get(ctx, "k", "generic")
	assert.False(t, found)
	assert.Equal(t, 0, svc.InvalidatePattern(ctx, "k*"))

	stats := svc.Stats(ctx)
	assert.False(t, stats.Available)
}

func TestUnreachableBackingStoreIsMiss(t *testing.T) {
	fake := newFakeRedis()
	fake.down = true
	svc := newTestService(fake)

	_, found := svc.Get(context.Background(), "k", "generic")
	assert.False(t, found)
}

func TestStats_CountsHitsAndMisses(t *testing.T) {
	svc := newTestService(newFakeRedis())
	ctx := context.Background()

	svc.Set(ctx, "k", "v", 0)
	svc.Get(ctx, "k", "generic")
	svc.Get(ctx, "absent", "generic")
	svc.Get(ctx, "absent", "generic")

	stats := svc.Stats(ctx)
	assert.True(t, stats.Available)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}
