package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transactions_processed_total",
		Help: "Total number of transactions processed by the detection service.",
	})

	AnomaliesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anomalies_detected_total",
		Help: "Total number of anomalies detected by the detection service.",
	})

	TransactionProcessingErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transaction_processing_errors_total",
		Help: "Total number of errors encountered while processing transactions.",
	})

	ScoringFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scoring_fallbacks_total",
		Help: "Total number of transactions given the default score because scoring failed.",
	})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of notification deliveries, labelled by channel and status.",
	}, []string{"channel", "status"})

	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Total number of alerts rejected because the dispatch queue was full.",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total number of cache hits, labelled by logical key domain.",
	}, []string{"cache_key_type"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total number of cache misses, labelled by logical key domain.",
	}, []string{"cache_key_type"})

	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_errors_total",
		Help: "Total number of cache errors, labelled by operation.",
	}, []string{"operation"})

	CacheAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cache_available",
		Help: "Whether the cache backing store is reachable (1) or the cache is disabled (0).",
	})
)
