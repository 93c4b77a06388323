package handler

import (
	"github.com/gin-gonic/gin"

	"labsight/internal/service"
)

// StatsHandler handles stats endpoints.
type StatsHandler struct {
	statsService service.StatsService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(statsService service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// GetStats handles GET /api/v1/stats
// @Summary Get dashboard statistics
// @Description Get aggregate counts for the caller's documents by status, analyzed markers by severity, and recent uploads
// @Tags stats
// @Produce json
// @Success 200 {object} Response{data=domain.StatsOverview} "Aggregate statistics"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /stats [get]
func (h *StatsHandler) GetStats(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	overview, err := h.statsService.GetOverview(c.Request.Context(), userID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, overview)
}
