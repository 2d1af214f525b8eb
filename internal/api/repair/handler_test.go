package repair_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sysverax/somerville-mobile-sub000/internal/api/repair"
	"github.com/sysverax/somerville-mobile-sub000/internal/domain"
	apperror "github.com/sysverax/somerville-mobile-sub000/internal/errors"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
)

type MockRepairService struct {
	mock.Mock
}

func (m *MockRepairService) CreateService(ctx context.Context, in domain.ServiceInput) (domain.ServiceRecord, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.ServiceRecord), args.Error(1)
}

func (m *MockRepairService) GetService(ctx context.Context, id string) (domain.ServiceRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.ServiceRecord), args.Error(1)
}

func (m *MockRepairService) ListServices(ctx context.Context, level domain.Level, nodeID string) ([]domain.ServiceRecord, error) {
	args := m.Called(ctx, level, nodeID)
	return args.Get(0).([]domain.ServiceRecord), args.Error(1)
}

func (m *MockRepairService) ListVariants(ctx context.Context, parentID string) ([]domain.ServiceRecord, error) {
	args := m.Called(ctx, parentID)
	return args.Get(0).([]domain.ServiceRecord), args.Error(1)
}

func (m *MockRepairService) UpdateService(ctx context.Context, id string, upd domain.ServiceUpdate) (domain.ServiceRecord, error) {
	args := m.Called(ctx, id, upd)
	return args.Get(0).(domain.ServiceRecord), args.Error(1)
}

func (m *MockRepairService) SetServiceActive(ctx context.Context, id string, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

func (m *MockRepairService) DeleteService(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func TestCreateServiceHandler_DecimalPrice(t *testing.T) {
	svc := new(MockRepairService)
	svc.On("CreateService", mock.Anything, mock.MatchedBy(func(in domain.ServiceInput) bool {
		return in.BasePrice.Equal(decimal.RequireFromString("199.90")) && in.Level == domain.LevelBrand
	})).Return(domain.ServiceRecord{ID: "s1", BasePrice: decimal.RequireFromString("199.90")}, nil)
	h := repair.NewHandler(svc, logger.NewNop())

	body := `{"name":"Screen","level":"brand","assigned_node_id":"b1","base_price":"199.90","base_time_minutes":60}`
	rec := httptest.NewRecorder()
	h.CreateServiceHandler(rec, httptest.NewRequest(http.MethodPost, "/v1/services", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, "199.9", out["base_price"])
	svc.AssertExpectations(t)
}

func TestCreateServiceHandler_InvalidAssignmentIs422(t *testing.T) {
	svc := new(MockRepairService)
	svc.On("CreateService", mock.Anything, mock.Anything).
		Return(domain.ServiceRecord{}, apperror.NewInvalidAssignmentError("variant level differs"))
	h := repair.NewHandler(svc, logger.NewNop())

	rec := httptest.NewRecorder()
	h.CreateServiceHandler(rec, httptest.NewRequest(http.MethodPost, "/v1/services",
		strings.NewReader(`{"name":"v","level":"product","parent_service_id":"p"}`)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_ASSIGNMENT")
}

func TestListServicesHandler(t *testing.T) {
	svc := new(MockRepairService)
	svc.On("ListServices", mock.Anything, domain.LevelSeries, "s1").Return([]domain.ServiceRecord{{ID: "a"}, {ID: "b"}}, nil)
	h := repair.NewHandler(svc, logger.NewNop())

	rec := httptest.NewRecorder()
	h.ListServicesHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/services?level=series&node_id=s1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var out []domain.ServiceRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
}

func TestSetServiceActiveHandler_Conflict(t *testing.T) {
	svc := new(MockRepairService)
	svc.On("SetServiceActive", mock.Anything, "v1", true).Return(apperror.NewConflictError("parent service is inactive"))
	h := repair.NewHandler(svc, logger.NewNop())

	req := httptest.NewRequest(http.MethodPut, "/v1/services/v1/active", strings.NewReader(`{"is_active":true}`))
	req.SetPathValue("id", "v1")
	rec := httptest.NewRecorder()
	h.SetServiceActiveHandler(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteServiceHandler(t *testing.T) {
	svc := new(MockRepairService)
	svc.On("DeleteService", mock.Anything, "s1").Return(nil)
	h := repair.NewHandler(svc, logger.NewNop())

	req := httptest.NewRequest(http.MethodDelete, "/v1/services/s1", nil)
	req.SetPathValue("id", "s1")
	rec := httptest.NewRecorder()
	h.DeleteServiceHandler(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
