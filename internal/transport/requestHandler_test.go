package transport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodlink/backend/internal/entity"
	"github.com/bloodlink/backend/internal/service"
	"github.com/bloodlink/backend/internal/transport"
)

// fakeDispatchService implements service.DispatchService
type fakeDispatchService struct {
	CreateRequestFn func(ctx context.Context, req *service.CreateRequestInput) (*service.DispatchResult, error)
	GetRequestFn    func(ctx context.Context, id int64) (*service.RequestDetails, error)
	ApproveFn       func(ctx context.Context, requestID int64, hospitalID *int64) (*service.ApprovalResult, error)
}

func (f *fakeDispatchService) CreateRequest(ctx context.Context, req *service.CreateRequestInput) (*service.DispatchResult, error) {
	if f.CreateRequestFn != nil {
		return f.CreateRequestFn(ctx, req)
	}
	return &service.DispatchResult{
		Request: &entity.BloodRequest{ID: 1, BloodGroup: req.BloodGroup, UnitsRequired: req.UnitsRequired, Status: entity.RequestStatusPending},
	}, nil
}

func (f *fakeDispatchService) GetRequest(ctx context.Context, id int64) (*service.RequestDetails, error) {
	if f.GetRequestFn != nil {
		return f.GetRequestFn(ctx, id)
	}
	return &service.RequestDetails{
		Request: &entity.BloodRequest{ID: id, BloodGroup: "A+", UnitsRequired: 1, Status: entity.RequestStatusPending},
	}, nil
}

func (f *fakeDispatchService) ListRequests(ctx context.Context, filter *service.RequestFilterInput) ([]*entity.BloodRequest, error) {
	return []*entity.BloodRequest{{ID: 1, BloodGroup: "A+", Status: entity.RequestStatusPending}}, nil
}

func (f *fakeDispatchService) UpdateRequestStatus(ctx context.Context, id int64, input *service.UpdateStatusInput) (*entity.BloodRequest, error) {
	return &entity.BloodRequest{ID: id, Status: entity.RequestStatus(input.Status)}, nil
}

func (f *fakeDispatchService) Approve(ctx context.Context, requestID int64, hospitalID *int64) (*service.ApprovalResult, error) {
	if f.ApproveFn != nil {
		return f.ApproveFn(ctx, requestID, hospitalID)
	}
	request := &entity.BloodRequest{ID: requestID, HospitalID: 7, Status: entity.RequestStatusFulfilled}
	if hospitalID != nil {
		request.HospitalID = *hospitalID
	}
	return &service.ApprovalResult{Request: request}, nil
}

func (f *fakeDispatchService) SuggestHospitals(ctx context.Context, input *service.SuggestHospitalsInput) ([]*service.HospitalSuggestion, error) {
	return nil, nil
}

func (f *fakeDispatchService) RemindStaleRequests(ctx context.Context, olderThan time.Duration) (int, error) {
	return 0, nil
}

func (f *fakeDispatchService) SendRequestReminder(ctx context.Context, requestID int64) error {
	return nil
}

func newTestRouter(svc service.DispatchService) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	handler := transport.NewRequestHandler(svc)

	requests := router.Group("/api/requests")
	requests.POST("", handler.CreateRequest)
	requests.GET("/:id", handler.GetRequest)
	requests.POST("/:id/approve", handler.Approve)
	return router
}

func TestCreateRequestEndpoint(t *testing.T) {
	var got *service.CreateRequestInput
	router := newTestRouter(&fakeDispatchService{
		CreateRequestFn: func(ctx context.Context, req *service.CreateRequestInput) (*service.DispatchResult, error) {
			got = req
			return &service.DispatchResult{
				Request: &entity.BloodRequest{ID: 1, BloodGroup: req.BloodGroup, UnitsRequired: req.UnitsRequired, Status: entity.RequestStatusPending},
			}, nil
		},
	})

	body, _ := json.Marshal(map[string]interface{}{
		"blood_group":    "A+",
		"component":      "whole_blood",
		"units_required": 2,
		"urgency":        "Normal",
		"reason":         "scheduled surgery",
		"request_city":   "Springfield",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	require.NotNil(t, got)
	assert.Equal(t, "Springfield", got.City)

	var result service.DispatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, int64(1), result.Request.ID)
}

func TestCreateRequestEndpoint_BindingRejectsBadPayload(t *testing.T) {
	reached := false
	router := newTestRouter(&fakeDispatchService{
		CreateRequestFn: func(ctx context.Context, req *service.CreateRequestInput) (*service.DispatchResult, error) {
			reached = true
			return nil, entity.ErrInvalidInput
		},
	})

	cases := []struct {
		name string
		body string
	}{
		{"missing units_required", `{"blood_group": "A+", "component": "whole_blood", "urgency": "Normal", "reason": "surgery", "request_city": "Springfield"}`},
		{"missing component", `{"blood_group": "A+", "units_required": 1, "urgency": "Normal", "reason": "surgery", "request_city": "Springfield"}`},
		{"missing urgency", `{"blood_group": "A+", "component": "whole_blood", "units_required": 1, "reason": "surgery", "request_city": "Springfield"}`},
		{"missing reason", `{"blood_group": "A+", "component": "whole_blood", "units_required": 1, "urgency": "Normal", "request_city": "Springfield"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewReader([]byte(tc.body)))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			// Binding fails before the service is reached.
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, reached)
		})
	}
}

func TestCreateRequestEndpoint_NoHospitalIs400(t *testing.T) {
	router := newTestRouter(&fakeDispatchService{
		CreateRequestFn: func(ctx context.Context, req *service.CreateRequestInput) (*service.DispatchResult, error) {
			return nil, entity.ErrNoHospitalAvailable
		},
	})

	body := []byte(`{"blood_group": "A+", "component": "whole_blood", "units_required": 1, "urgency": "Normal", "reason": "anemia", "request_city": "Nowhereville"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no hospital")
}

func TestGetRequestEndpoint_NotFound(t *testing.T) {
	router := newTestRouter(&fakeDispatchService{
		GetRequestFn: func(ctx context.Context, id int64) (*service.RequestDetails, error) {
			return nil, entity.ErrRequestNotFound
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/requests/99", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApproveEndpoint(t *testing.T) {
	router := newTestRouter(&fakeDispatchService{})

	body := []byte(`{"hospital_id": 7}`)
	req := httptest.NewRequest(http.MethodPost, "/api/requests/1/approve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK      bool                 `json:"ok"`
		Request *entity.BloodRequest `json:"request"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, entity.RequestStatusFulfilled, resp.Request.Status)
}

func TestApproveEndpoint_WithoutHospitalID(t *testing.T) {
	var gotHospitalID *int64
	called := false
	router := newTestRouter(&fakeDispatchService{
		ApproveFn: func(ctx context.Context, requestID int64, hospitalID *int64) (*service.ApprovalResult, error) {
			called = true
			gotHospitalID = hospitalID
			return &service.ApprovalResult{
				Request: &entity.BloodRequest{ID: requestID, HospitalID: 7, Status: entity.RequestStatusFulfilled},
			}, nil
		},
	})

	// No body at all: the approval runs against the assigned hospital.
	req := httptest.NewRequest(http.MethodPost, "/api/requests/1/approve", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
	assert.Nil(t, gotHospitalID)
}

func TestApproveEndpoint_StockRanOutIs409(t *testing.T) {
	router := newTestRouter(&fakeDispatchService{
		ApproveFn: func(ctx context.Context, requestID int64, hospitalID *int64) (*service.ApprovalResult, error) {
			return &service.ApprovalResult{
				Request:        &entity.BloodRequest{ID: requestID, Status: entity.RequestStatusPending},
				DonorsNotified: 4,
			}, entity.ErrInsufficientStock
		},
	})

	body := []byte(`{"hospital_id": 7}`)
	req := httptest.NewRequest(http.MethodPost, "/api/requests/1/approve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		DonorsNotified int `json:"donorsNotified"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.DonorsNotified)
}

func TestApproveEndpoint_WrongHospitalIs403(t *testing.T) {
	router := newTestRouter(&fakeDispatchService{
		ApproveFn: func(ctx context.Context, requestID int64, hospitalID *int64) (*service.ApprovalResult, error) {
			return nil, entity.ErrForbidden
		},
	})

	body := []byte(`{"hospital_id": 8}`)
	req := httptest.NewRequest(http.MethodPost, "/api/requests/1/approve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
