package anomaly

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nordlys-fintech/fraud-detector/internal/service"
	"github.com/nordlys-fintech/fraud-detector/internal/storage"
)

type mockStatusUpdater struct {
	mock.Mock
}

func (m *mockStatusUpdater) UpdateStatus(ctx context.Context, id string, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func newUpdateTestAPI(t *testing.T, svc statusUpdater) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	NewUpdateStatusHandler(svc).Register(api)
	return api
}

func TestHTTP_UpdateStatus_Success(t *testing.T) {
	mockSvc := new(mockStatusUpdater)
	mockSvc.On("UpdateStatus", mock.Anything, "TRX_010", storage.StatusFraud).Return(nil)

	resp := newUpdateTestAPI(t, mockSvc).Put("/api/v1/anomalies/TRX_010/status", UpdateStatusBody{
		Status: storage.StatusFraud,
	})

	assert.Equal(t, http.StatusOK, resp.Code)
	var body UpdateStatusResponseBody
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "TRX_010", body.TransactionID)
	assert.Equal(t, storage.StatusFraud, body.Status)
	mockSvc.AssertExpectations(t)
}

func TestHTTP_UpdateStatus_UnknownStatusRejectedBySchema(t *testing.T) {
	mockSvc := new(mockStatusUpdater)

	resp := newUpdateTestAPI(t, mockSvc).Put("/api/v1/anomalies/TRX_010/status", map[string]any{
		"status": "ESCALATED",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	mockSvc.AssertNotCalled(t, "UpdateStatus")
}

func TestHTTP_UpdateStatus_NotFound(t *testing.T) {
	mockSvc := new(mockStatusUpdater)
	mockSvc.On("UpdateStatus", mock.Anything, "TRX_MISSING", storage.StatusDismissed).
		Return(service.ErrTransactionNotFound)

	resp := newUpdateTestAPI(t, mockSvc).Put("/api/v1/anomalies/TRX_MISSING/status", UpdateStatusBody{
		Status: storage.StatusDismissed,
	})

	assert.Equal(t, http.StatusNotFound, resp.Code)
	mockSvc.AssertExpectations(t)
}
