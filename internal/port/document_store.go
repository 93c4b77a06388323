package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"labsight/internal/domain"
)

// DocumentStore is the single source of truth for document metadata, run
// state and final analysis results. Every mutation is one atomic persisted
// operation; callers never rely on read-modify-write across fields.
type DocumentStore interface {
	Create(ctx context.Context, doc *domain.Document) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (*domain.Document, error)
	List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]domain.Document, int, error)
	FindByChecksum(ctx context.Context, ownerID uuid.UUID, checksum string) (*domain.Document, error)

	// Run-state writes, one field group per call.
	UpdateStage(ctx context.Context, id uuid.UUID, stage domain.ProcessingStage, progress int) error
	UpdateRawText(ctx context.Context, id uuid.UUID, rawText string) error
	MarkError(ctx context.Context, id uuid.UUID, message string) error
	MarkComplete(ctx context.Context, id uuid.UUID) error
	ResetForRetry(ctx context.Context, id uuid.UUID) error

	// ListStaleQueued returns documents still queued whose run never
	// started before the cutoff, for the requeue worker.
	ListStaleQueued(ctx context.Context, cutoff time.Time, limit int) ([]domain.Document, error)

	Delete(ctx context.Context, id uuid.UUID) error

	// Analysis results, 1:1 with documents. SaveResult replaces any prior
	// result for the same document atomically.
	SaveResult(ctx context.Context, result *domain.AnalysisResult) error
	GetResult(ctx context.Context, documentID uuid.UUID) (*domain.AnalysisResult, error)
	DeleteResult(ctx context.Context, documentID uuid.UUID) error
}
