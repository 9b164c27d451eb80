package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// Anomaly represents a flagged transaction in the service layer. The JSON
// tags double as the cache serialization format.
type Anomaly struct {
	TransactionID    string          `json:"transaction_id"`
	AccountID        string          `json:"account_id"`
	Timestamp        time.Time       `json:"timestamp"`
	Amount           decimal.Decimal `json:"amount"`
	MerchantCategory string          `json:"merchant_category"`
	Location         string          `json:"location"`
	MLAnomalyScore   float64         `json:"ml_anomaly_score"`
	AlertReason      string          `json:"alert_reason"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// AnomalyQuery carries the list filters; they are also the cache key inputs.
type AnomalyQuery struct {
	Status *string
	Limit  int
	Offset int
}
