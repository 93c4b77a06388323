package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"labsight/internal/domain"
	"labsight/internal/port"
)

type eventRepo struct {
	db *sqlx.DB
}

// NewEventRepo creates a new PostgreSQL-backed EventStore.
func NewEventRepo(db *sqlx.DB) port.EventStore {
	return &eventRepo{db: db}
}

func (r *eventRepo) Append(ctx context.Context, event *domain.ProcessingEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO processing_events (id, document_id, stage, progress, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.DocumentID, event.Stage, event.Progress, event.Message, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("eventRepo.Append: %w", err)
	}
	return nil
}

func (r *eventRepo) ListByDocument(ctx context.Context, documentID uuid.UUID, limit int) ([]domain.ProcessingEvent, error) {
	var events []domain.ProcessingEvent
	err := r.db.SelectContext(ctx, &events,
		`SELECT * FROM processing_events
		 WHERE document_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("eventRepo.ListByDocument: %w", err)
	}
	return events, nil
}

func (r *eventRepo) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM processing_events WHERE document_id = $1", documentID)
	if err != nil {
		return fmt.Errorf("eventRepo.DeleteByDocument: %w", err)
	}
	return nil
}
