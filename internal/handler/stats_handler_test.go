package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"labsight/internal/domain"
	"labsight/internal/handler"
	"labsight/mocks"
)

func TestStatsHandler_GetStats_Success(t *testing.T) {
	mockStatsSvc := new(mocks.MockStatsService)
	h := handler.NewStatsHandler(mockStatsSvc)

	userID := uuid.New()
	overview := &domain.StatsOverview{
		TotalDocuments: 3,
		ByStatus: map[domain.ProcessingStatus]int{
			domain.StatusComplete:   2,
			domain.StatusProcessing: 1,
		},
		MarkersByStatus: map[domain.MarkerStatus]int{
			domain.MarkerNormal:      10,
			domain.MarkerWarningHigh: 2,
		},
	}
	mockStatsSvc.On("GetOverview", mock.Anything, userID).Return(overview, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/stats", http.NoBody)
	setAuthContext(c, userID)

	h.GetStats(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(3), data["total_documents"])
	mockStatsSvc.AssertExpectations(t)
}

func TestStatsHandler_GetStats_MissingAuthContext(t *testing.T) {
	mockStatsSvc := new(mocks.MockStatsService)
	h := handler.NewStatsHandler(mockStatsSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/stats", http.NoBody)

	h.GetStats(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockStatsSvc.AssertNotCalled(t, "GetOverview", mock.Anything, mock.Anything)
}

func TestStatsHandler_GetStats_ServiceError(t *testing.T) {
	mockStatsSvc := new(mocks.MockStatsService)
	h := handler.NewStatsHandler(mockStatsSvc)

	userID := uuid.New()
	mockStatsSvc.On("GetOverview", mock.Anything, userID).Return(nil, assert.AnError)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/stats", http.NoBody)
	setAuthContext(c, userID)

	h.GetStats(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp handler.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
}
