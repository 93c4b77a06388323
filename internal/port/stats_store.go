package port

import (
	"context"

	"github.com/google/uuid"

	"labsight/internal/domain"
)

// StatsStore provides aggregate statistics queries.
type StatsStore interface {
	GetOverview(ctx context.Context, ownerID uuid.UUID) (*domain.StatsOverview, error)
}
