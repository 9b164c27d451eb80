package anomaly

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nordlys-fintech/fraud-detector/internal/service"
)

// UpdateStatusBody is the request body for a review status change.
type UpdateStatusBody struct {
	Status string `json:"status" required:"true" enum:"NEW,INVESTIGATED,FRAUD,DISMISSED" doc:"New review status"`
}

// UpdateStatusInput is the Huma input for a review status change.
type UpdateStatusInput struct {
	TransactionID string `path:"transactionID" doc:"Transaction identifier"`
	Body          UpdateStatusBody
}

// UpdateStatusResponseBody is the response body for a review status change.
type UpdateStatusResponseBody struct {
	TransactionID string `json:"transactionID" doc:"Transaction identifier"`
	Status        string `json:"status" doc:"Review status after the update"`
}

// UpdateStatusOutput is the Huma output for a review status change.
type UpdateStatusOutput struct {
	Body UpdateStatusResponseBody
}

// statusUpdater is the interface for changing a review status.
type statusUpdater interface {
	UpdateStatus(ctx context.Context, id string, status string) error
}

// UpdateStatusHandler handles PUT /api/v1/anomalies/{transactionID}/status.
type UpdateStatusHandler struct {
	AnomalyService statusUpdater
}

// NewUpdateStatusHandler creates a new UpdateStatusHandler.
func NewUpdateStatusHandler(svc statusUpdater) *UpdateStatusHandler {
	return &UpdateStatusHandler{AnomalyService: svc}
}

// Register registers the update status endpoint with the Huma API.
func (h *UpdateStatusHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "update-anomaly-status",
		Method:      http.MethodPut,
		Path:        "/api/v1/anomalies/{transactionID}/status",
		Summary:     "Update review status",
		Description: "Moves a flagged transaction to a new review status.",
		Tags:        []string{"Anomalies"},
	}, h.handle)
}

func (h *UpdateStatusHandler) handle(ctx context.Context, input *UpdateStatusInput) (*UpdateStatusOutput, error) {
	err := h.AnomalyService.UpdateStatus(ctx, input.TransactionID, input.Body.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			return nil, huma.NewError(http.StatusBadRequest, "invalid status")
		case errors.Is(err, service.ErrTransactionNotFound):
			return nil, huma.NewError(http.StatusNotFound, "transaction not found")
		default:
			return nil, huma.NewError(http.StatusInternalServerError, "failed to update status", err)
		}
	}

	return &UpdateStatusOutput{Body: UpdateStatusResponseBody{
		TransactionID: input.TransactionID,
		Status:        input.Body.Status,
	}}, nil
}
