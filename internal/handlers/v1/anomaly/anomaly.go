package anomaly

import (
	"time"

	"github.com/nordlys-fintech/fraud-detector/internal/service"
)

// Anomaly is the API response model for a flagged transaction.
// It is used only for responses, not for request bodies.
type Anomaly struct {
	TransactionID    string  `json:"transactionID" doc:"Transaction identifier"`
	AccountID        string  `json:"accountID" doc:"Account identifier"`
	Timestamp        string  `json:"timestamp" doc:"RFC3339 event timestamp"`
	Amount           string  `json:"amount" doc:"Decimal amount"`
	MerchantCategory string  `json:"merchantCategory" doc:"Merchant category"`
	Location         string  `json:"location" doc:"Transaction location"`
	MLAnomalyScore   float64 `json:"mlAnomalyScore" doc:"Scaled anomaly risk score"`
	AlertReason      string  `json:"alertReason,omitempty" doc:"Why the transaction was flagged, empty when not flagged"`
	Status           string  `json:"status,omitempty" doc:"Review status, empty when not flagged"`
	CreatedAt        string  `json:"createdAt" doc:"RFC3339 persistence time"`
}

func convertAnomaly(a service.Anomaly) Anomaly {
	return Anomaly{
		TransactionID:    a.TransactionID,
		AccountID:        a.AccountID,
		Timestamp:        a.Timestamp.Format(time.RFC3339),
		Amount:           a.Amount.String(),
		MerchantCategory: a.MerchantCategory,
		Location:         a.Location,
		MLAnomalyScore:   a.MLAnomalyScore,
		AlertReason:      a.AlertReason,
		Status:           a.Status,
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
	}
}
