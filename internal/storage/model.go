package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Review statuses an analyst can assign to a flagged transaction.
const (
	StatusNew          = "NEW"
	StatusInvestigated = "INVESTIGATED"
	StatusFraud        = "FRAUD"
	StatusDismissed    = "DISMISSED"
)

// Transaction is a scored transaction row.
// AlertReason and Status are nil for transactions that were not flagged.
type Transaction struct {
	TransactionID    string          `db:"transaction_id"`
	AccountID        string          `db:"account_id"`
	Timestamp        time.Time       `db:"timestamp"`
	Amount           decimal.Decimal `db:"amount"`
	MerchantCategory string          `db:"merchant_category"`
	Location         string          `db:"location"`
	MLAnomalyScore   float64         `db:"ml_anomaly_score"`
	AlertReason      *string         `db:"alert_reason"`
	IsAnomaly        bool            `db:"is_anomaly"`
	Status           *string         `db:"status"`
	CreatedAt        time.Time       `db:"created_at"`
}

// TransactionCreate is the input for persisting a scored transaction.
type TransactionCreate struct {
	TransactionID    string
	AccountID        string
	Timestamp        time.Time
	Amount           decimal.Decimal
	MerchantCategory string
	Location         string
	MLAnomalyScore   float64
	AlertReason      *string
	IsAnomaly        bool
	Status           *string
}

// AccountAggregates summarizes the committed transaction history of one account.
type AccountAggregates struct {
	TxCount   int64   `db:"tx_count"`
	AvgAmount float64 `db:"avg_amount"`
}

// AnomalyFilter specifies filters for listing flagged transactions.
type AnomalyFilter struct {
	Status *string
	Limit  int
	Offset int
}

// ITransactionTable defines the interface for transaction storage operations.
// This abstraction allows swapping the implementation (e.g. Bob) without changing callers.
//
//go:generate mockery --name ITransactionTable --output mock_ITransactionTable.go
type ITransactionTable interface {
	FindByID(ctx context.Context, id string) (*Transaction, error)
	Insert(ctx context.Context, create *TransactionCreate) error
	AccountAggregates(ctx context.Context, accountID string) (*AccountAggregates, error)
	ListAnomalies(ctx context.Context, filter *AnomalyFilter) ([]*Transaction, error)
	UpdateStatus(ctx context.Context, id string, status string) (bool, error)
}

// ValidStatus reports whether status is one of the recognized review statuses.
func ValidStatus(status string) bool {
	switch status {
	case StatusNew, StatusInvestigated, StatusFraud, StatusDismissed:
		return true
	}
	return false
}
