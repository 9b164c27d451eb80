package cachestats

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nordlys-fintech/fraud-detector/internal/cache"
	"github.com/nordlys-fintech/fraud-detector/internal/logging"
)

// GetStatsResponseBody is the response body for the cache stats endpoint.
type GetStatsResponseBody struct {
	Available bool    `json:"available" doc:"Whether the Redis backend is reachable"`
	Hits      int64   `json:"hits" doc:"Cache hits since startup"`
	Misses    int64   `json:"misses" doc:"Cache misses since startup"`
	HitRate   float64 `json:"hitRate" doc:"Hits as a fraction of all lookups, 0 when none"`
}

// GetStatsOutput is the Huma output for the cache stats endpoint.
type GetStatsOutput struct {
	Body GetStatsResponseBody
}

// statsProvider is the interface for reading cache counters.
type statsProvider interface {
	Stats(ctx context.Context) cache.Stats
}

// GetStatsHandler handles GET /api/v1/cache/stats.
type GetStatsHandler struct {
	Cache statsProvider
}

// NewGetStatsHandler creates a new GetStatsHandler.
func NewGetStatsHandler(c statsProvider) *GetStatsHandler {
	return &GetStatsHandler{Cache: c}
}

// Register registers the cache stats endpoint with the Huma API.
func (h *GetStatsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-cache-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/cache/stats",
		Summary:     "Get cache statistics",
		Description: "Returns hit/miss counters and availability of the read-side cache.",
		Tags:        []string{"Cache"},
	}, h.handle)
}

func (h *GetStatsHandler) handle(ctx context.Context, _ *struct{}) (*GetStatsOutput, error) {
	logData := logging.GetLogData(ctx)

	stats := h.Cache.Stats(ctx)

	rate := 0.0
	if total := stats.Hits + stats.Misses; total > 0 {
		rate = float64(stats.Hits) / float64(total)
	}

	if logData != nil {
		logData.AddData("cacheAvailable", stats.Available)
	}

	return &GetStatsOutput{Body: GetStatsResponseBody{
		Available: stats.Available,
		Hits:      stats.Hits,
		Misses:    stats.Misses,
		HitRate:   rate,
	}}, nil
}
