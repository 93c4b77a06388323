package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"labsight/internal/domain"
)

// MockStatsStore is a mock implementation of port.StatsStore.
type MockStatsStore struct {
	mock.Mock
}

func (m *MockStatsStore) GetOverview(ctx context.Context, ownerID uuid.UUID) (*domain.StatsOverview, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatsOverview), args.Error(1)
}
