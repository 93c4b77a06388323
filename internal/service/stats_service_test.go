package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"labsight/internal/domain"
	"labsight/internal/service"
	"labsight/mocks"
)

func TestStatsService_GetOverview(t *testing.T) {
	stats := new(mocks.MockStatsStore)
	svc := service.NewStatsService(stats)

	ownerID := uuid.New()
	overview := &domain.StatsOverview{
		TotalDocuments: 4,
		ByStatus: map[domain.ProcessingStatus]int{
			domain.StatusComplete:   3,
			domain.StatusProcessing: 1,
		},
		MarkersByStatus: map[domain.MarkerStatus]int{
			domain.MarkerNormal:     20,
			domain.MarkerDangerHigh: 2,
		},
	}
	stats.On("GetOverview", mock.Anything, ownerID).Return(overview, nil)

	got, err := svc.GetOverview(context.Background(), ownerID)
	assert.NoError(t, err)
	assert.Equal(t, overview, got)
	stats.AssertExpectations(t)
}

func TestStatsService_GetOverview_Error(t *testing.T) {
	stats := new(mocks.MockStatsStore)
	svc := service.NewStatsService(stats)

	ownerID := uuid.New()
	stats.On("GetOverview", mock.Anything, ownerID).Return(nil, errors.New("db down"))

	got, err := svc.GetOverview(context.Background(), ownerID)
	assert.Nil(t, got)
	assert.Error(t, err)
}
