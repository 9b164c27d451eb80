package anomaly

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nordlys-fintech/fraud-detector/internal/service"
)

// GetTransactionInput is the Huma input for fetching one transaction.
type GetTransactionInput struct {
	TransactionID string `path:"transactionID" doc:"Transaction identifier"`
}

// GetTransactionOutput is the Huma output for fetching one transaction.
type GetTransactionOutput struct {
	Body Anomaly
}

// transactionGetter is the interface for fetching one transaction.
type transactionGetter interface {
	GetTransaction(ctx context.Context, id string) (*service.Anomaly, error)
}

// GetTransactionHandler handles GET /api/v1/transactions/{transactionID}.
type GetTransactionHandler struct {
	AnomalyService transactionGetter
}

// NewGetTransactionHandler creates a new GetTransactionHandler.
func NewGetTransactionHandler(svc transactionGetter) *GetTransactionHandler {
	return &GetTransactionHandler{AnomalyService: svc}
}

// Register registers the get transaction endpoint with the Huma API.
func (h *GetTransactionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-transaction",
		Method:      http.MethodGet,
		Path:        "/api/v1/transactions/{transactionID}",
		Summary:     "Get transaction",
		Description: "Returns one transaction by its identifier.",
		Tags:        []string{"Anomalies"},
	}, h.handle)
}

func (h *GetTransactionHandler) handle(ctx context.Context, input *GetTransactionInput) (*GetTransactionOutput, error) {
	anomaly, err := h.AnomalyService.GetTransaction(ctx, input.TransactionID)
	if err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			return nil, huma.NewError(http.StatusNotFound, "transaction not found")
		}
		return nil, huma.NewError(http.StatusInternalServerError, "failed to fetch transaction", err)
	}

	return &GetTransactionOutput{Body: convertAnomaly(*anomaly)}, nil
}
