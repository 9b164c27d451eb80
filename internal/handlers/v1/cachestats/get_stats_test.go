package cachestats

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"

	"github.com/nordlys-fintech/fraud-detector/internal/cache"
)

type fakeStatsProvider struct {
	stats cache.Stats
}

func (f *fakeStatsProvider) Stats(ctx context.Context) cache.Stats {
	return f.stats
}

func newStatsTestAPI(t *testing.T, provider statsProvider) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	NewGetStatsHandler(provider).Register(api)
	return api
}

func TestHTTP_GetCacheStats(t *testing.T) {
	provider := &fakeStatsProvider{stats: cache.Stats{Available: true, Hits: 75, Misses: 25}}

	resp := newStatsTestAPI(t, provider).Get("/api/v1/cache/stats")

	assert.Equal(t, http.StatusOK, resp.Code)
	var body GetStatsResponseBody
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Available)
	assert.Equal(t, int64(75), body.Hits)
	assert.Equal(t, int64(25), body.Misses)
	assert.InDelta(t, 0.75, body.HitRate, 1e-9)
}

func TestHTTP_GetCacheStats_NoLookups(t *testing.T) {
	provider := &fakeStatsProvider{stats: cache.Stats{Available: false}}

	resp := newStatsTestAPI(t, provider).Get("/api/v1/cache/stats")

	assert.Equal(t, http.StatusOK, resp.Code)
	var body GetStatsResponseBody
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Available)
	assert.Zero(t, body.HitRate)
}
