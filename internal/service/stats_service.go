package service

import (
	"context"

	"github.com/google/uuid"

	"labsight/internal/domain"
	"labsight/internal/port"
)

// StatsService provides aggregate dashboard statistics.
type StatsService interface {
	GetOverview(ctx context.Context, ownerID uuid.UUID) (*domain.StatsOverview, error)
}

type statsService struct {
	stats port.StatsStore
}

// NewStatsService creates a new StatsService implementation.
func NewStatsService(stats port.StatsStore) StatsService {
	return &statsService{stats: stats}
}

func (s *statsService) GetOverview(ctx context.Context, ownerID uuid.UUID) (*domain.StatsOverview, error) {
	return s.stats.GetOverview(ctx, ownerID)
}
