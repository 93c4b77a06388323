package port

import (
	"context"

	"github.com/google/uuid"

	"labsight/internal/domain"
)

// EventStore defines the contract for the processing audit trail. Appends
// are best-effort from the pipeline's point of view; a failed append never
// fails a run.
type EventStore interface {
	Append(ctx context.Context, event *domain.ProcessingEvent) error
	ListByDocument(ctx context.Context, documentID uuid.UUID, limit int) ([]domain.ProcessingEvent, error)
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
}
