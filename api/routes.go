package api

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/sirupsen/logrus"

	"github.com/nordlys-fintech/fraud-detector/internal/cache"
	"github.com/nordlys-fintech/fraud-detector/internal/handlers/v1/anomaly"
	"github.com/nordlys-fintech/fraud-detector/internal/handlers/v1/cachestats"
	"github.com/nordlys-fintech/fraud-detector/internal/handlers/v1/status"
	"github.com/nordlys-fintech/fraud-detector/internal/logging"
	"github.com/nordlys-fintech/fraud-detector/internal/service"
)

type Rest struct {
	Logger  *logrus.Logger
	Port    string
	APIKey  string
	Service *service.Service
	Cache   *cache.Service
}

func (r *Rest) Serve() {
	mux := http.NewServeMux()

	statusHandler := status.NewHandler()
	mux.HandleFunc("/status", logging.LoggingWrapper("Status", r.Logger, statusHandler.Handler))

	humaAPI := humago.New(mux, huma.DefaultConfig("Fraud Detection API", "1.0.0"))
	if r.APIKey != "" {
		humaAPI.UseMiddleware(apiKeyMiddleware(humaAPI, r.APIKey))
	}

	anomaly.NewListAnomaliesHandler(r.Service.Anomaly).Register(humaAPI)
	anomaly.NewGetTransactionHandler(r.Service.Anomaly).Register(humaAPI)
	anomaly.NewUpdateStatusHandler(r.Service.Anomaly).Register(humaAPI)
	cachestats.NewGetStatsHandler(r.Cache).Register(humaAPI)

	server := http.Server{
		Addr:              ":" + r.Port,
		Handler:           mux,
		ReadTimeout:       time.Duration(30) * time.Second,
		WriteTimeout:      time.Duration(30) * time.Second,
		IdleTimeout:       time.Duration(10) * time.Second,
		ReadHeaderTimeout: time.Duration(10) * time.Second,
	}

	r.Logger.Info("HttpServer.Serve.listening")
	err := server.ListenAndServe()
	if err != nil {
		r.Logger.WithError(err).Error("HttpServer.Serve.listen error")
	}
	r.Logger.Info("HttpServer.Serve.shutting down")
}

// apiKeyMiddleware rejects requests whose X-API-Key header does not match
// the configured key. The /status and /metrics endpoints sit outside the
// Huma API and stay unauthenticated.
func apiKeyMiddleware(api huma.API, key string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if ctx.Header("X-API-Key") != key {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next(ctx)
	}
}
