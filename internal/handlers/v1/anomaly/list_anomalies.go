package anomaly

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nordlys-fintech/fraud-detector/internal/logging"
	"github.com/nordlys-fintech/fraud-detector/internal/service"
	"github.com/nordlys-fintech/fraud-detector/internal/storage"
)

// ListAnomaliesInput is the Huma input for listing flagged transactions.
type ListAnomaliesInput struct {
	Status string `query:"status" required:"false" doc:"Filter by review status (NEW, INVESTIGATED, FRAUD, DISMISSED)"`
	Limit  int    `query:"limit" default:"100" minimum:"1" maximum:"500" doc:"Maximum number of results"`
	Offset int    `query:"offset" default:"0" minimum:"0" doc:"Number of results to skip"`
}

// ListAnomaliesResponseBody is the response body for listing flagged transactions.
type ListAnomaliesResponseBody struct {
	Data []Anomaly `json:"data" doc:"Flagged transactions, newest first"`
}

// ListAnomaliesOutput is the Huma output for listing flagged transactions.
type ListAnomaliesOutput struct {
	Body ListAnomaliesResponseBody
}

// anomalyLister is the interface for listing flagged transactions.
type anomalyLister interface {
	ListAnomalies(ctx context.Context, query service.AnomalyQuery) ([]service.Anomaly, error)
}

// ListAnomaliesHandler handles GET /api/v1/anomalies.
type ListAnomaliesHandler struct {
	AnomalyService anomalyLister
}

// NewListAnomaliesHandler creates a new ListAnomaliesHandler.
func NewListAnomaliesHandler(svc anomalyLister) *ListAnomaliesHandler {
	return &ListAnomaliesHandler{AnomalyService: svc}
}

// Register registers the list anomalies endpoint with the Huma API.
func (h *ListAnomaliesHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-anomalies",
		Method:      http.MethodGet,
		Path:        "/api/v1/anomalies",
		Summary:     "Get flagged anomalies",
		Description: "Returns transactions flagged as anomalous, optionally filtered by review status.",
		Tags:        []string{"Anomalies"},
	}, h.handle)
}

func (h *ListAnomaliesHandler) handle(ctx context.Context, input *ListAnomaliesInput) (*ListAnomaliesOutput, error) {
	logData := logging.GetLogData(ctx)

	query := service.AnomalyQuery{
		Limit:  input.Limit,
		Offset: input.Offset,
	}
	if input.Status != "" {
		if !storage.ValidStatus(input.Status) {
			return nil, huma.NewError(http.StatusBadRequest, "invalid status filter")
		}
		status := input.Status
		query.Status = &status
	}

	var stopTimer func()
	if logData != nil {
		stopTimer = logData.AddTiming("listAnomaliesMs")
	}
	anomalies, err := h.AnomalyService.ListAnomalies(ctx, query)
	if stopTimer != nil {
		stopTimer()
	}
	if err != nil {
		return nil, huma.NewError(http.StatusInternalServerError, "failed to list anomalies", err)
	}

	if logData != nil {
		logData.AddData("anomalyCount", len(anomalies))
	}

	resp := ListAnomaliesResponseBody{
		Data: make([]Anomaly, len(anomalies)),
	}
	for i, a := range anomalies {
		resp.Data[i] = convertAnomaly(a)
	}

	return &ListAnomaliesOutput{Body: resp}, nil
}
