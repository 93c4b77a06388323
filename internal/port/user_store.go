package port

import (
	"context"

	"github.com/google/uuid"

	"labsight/internal/domain"
)

// UserStore defines the contract for user account persistence.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
