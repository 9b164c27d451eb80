package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nordlys-fintech/fraud-detector/internal/cache"
	"github.com/nordlys-fintech/fraud-detector/internal/storage"
)

const (
	defaultLimit  = 100
	anomaliesTTL  = 60 * time.Second
	cacheDomain   = "anomalies"
	invalidateKey = "anomalies:*"
)

var (
	// ErrInvalidStatus is returned when a status update names an unknown status.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrTransactionNotFound is returned when no transaction matches the given ID.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// queryCache is satisfied by *cache.Service.
type queryCache interface {
	Get(ctx context.Context, key string, keyType string) ([]byte, bool)
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool
	InvalidatePattern(ctx context.Context, pattern string) int
}

// AnomalyService handles the read and review side of flagged transactions.
// Listing reads through the cache; status updates invalidate the whole
// anomalies cache domain after the write commits.
type AnomalyService struct {
	storage *storage.Storage
	cache   queryCache
	logger  *logrus.Logger
}

// NewAnomalyService creates a new AnomalyService.
func NewAnomalyService(store *storage.Storage, queries queryCache, logger *logrus.Logger) *AnomalyService {
	return &AnomalyService{storage: store, cache: queries, logger: logger}
}

// ListAnomalies returns flagged transactions matching the query, serving
// repeated identical queries from the cache.
func (s *AnomalyService) ListAnomalies(ctx context.Context, query AnomalyQuery) ([]Anomaly, error) {
	if query.Limit <= 0 {
		query.Limit = defaultLimit
	}

	params := map[string]any{
		"limit":  query.Limit,
		"offset": query.Offset,
	}
	if query.Status != nil {
		params["status"] = *query.Status
	}
	key := cache.Key(cacheDomain, params)

	if cached, ok := s.cache.Get(ctx, key, cacheDomain); ok {
		var anomalies []Anomaly
		if err := json.Unmarshal(cached, &anomalies); err == nil {
			return anomalies, nil
		}
		s.logger.WithField("key", key).Warning("AnomalyService.ListAnomalies.badCacheEntry")
	}

	rows, err := s.storage.Transactions.ListAnomalies(ctx, &storage.AnomalyFilter{
		Status: query.Status,
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		return nil, err
	}

	anomalies := make([]Anomaly, len(rows))
	for i, row := range rows {
		anomalies[i] = convertAnomaly(row)
	}

	s.cache.Set(ctx, key, anomalies, anomaliesTTL)
	return anomalies, nil
}

// GetTransaction returns one transaction by ID, flagged or not.
func (s *AnomalyService) GetTransaction(ctx context.Context, id string) (*Anomaly, error) {
	row, err := s.storage.Transactions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrTransactionNotFound
	}
	anomaly := convertAnomaly(row)
	return &anomaly, nil
}

// UpdateStatus moves a flagged transaction to a new review status and
// invalidates the anomalies cache domain once the write has committed.
func (s *AnomalyService) UpdateStatus(ctx context.Context, id string, status string) error {
	if !storage.ValidStatus(status) {
		return ErrInvalidStatus
	}

	updated, err := s.storage.Transactions.UpdateStatus(ctx, id, status)
	if err != nil {
		return err
	}
	if !updated {
		return ErrTransactionNotFound
	}

	deleted := s.cache.InvalidatePattern(ctx, invalidateKey)
	s.logger.WithFields(logrus.Fields{
		"transaction_id": id,
		"status":         status,
		"cache_deleted":  deleted,
	}).Info("AnomalyService.UpdateStatus.updated")
	return nil
}

func convertAnomaly(row *storage.Transaction) Anomaly {
	anomaly := Anomaly{
		TransactionID:    row.TransactionID,
		AccountID:        row.AccountID,
		Timestamp:        row.Timestamp,
		Amount:           row.Amount,
		MerchantCategory: row.MerchantCategory,
		Location:         row.Location,
		MLAnomalyScore:   row.MLAnomalyScore,
		CreatedAt:        row.CreatedAt,
	}
	if row.AlertReason != nil {
		anomaly.AlertReason = *row.AlertReason
	}
	if row.Status != nil {
		anomaly.Status = *row.Status
	}
	return anomaly
}
