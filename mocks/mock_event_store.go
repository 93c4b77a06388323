package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"labsight/internal/domain"
)

// MockEventStore is a mock implementation of port.EventStore.
type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) Append(ctx context.Context, event *domain.ProcessingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventStore) ListByDocument(ctx context.Context, documentID uuid.UUID, limit int) ([]domain.ProcessingEvent, error) {
	args := m.Called(ctx, documentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProcessingEvent), args.Error(1)
}

func (m *MockEventStore) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}
