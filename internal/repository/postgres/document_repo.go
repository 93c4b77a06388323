package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"labsight/internal/domain"
	"labsight/internal/port"
)

type documentRepo struct {
	db *sqlx.DB
}

// NewDocumentRepo creates a new PostgreSQL-backed DocumentStore. Document
// rows, analysis results and marker rows all live behind this one store;
// the result methods are in analysis_repo.go.
func NewDocumentRepo(db *sqlx.DB) port.DocumentStore {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, doc *domain.Document) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	query := `INSERT INTO documents (
		id, owner_id, filename, storage_location, content_type,
		size_bytes, checksum, status, stage, progress,
		raw_text, error_message, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13, $14
	)`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.OwnerID, doc.Filename, doc.StorageLocation, doc.ContentType,
		doc.SizeBytes, doc.Checksum, doc.Status, doc.Stage, doc.Progress,
		doc.RawText, doc.ErrorMessage, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("documentRepo.Create: %w", err)
	}
	return nil
}

func (r *documentRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.GetContext(ctx, &doc,
		"SELECT * FROM documents WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("documentRepo.Get: %w", err)
	}
	return &doc, nil
}

func (r *documentRepo) GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.GetContext(ctx, &doc,
		"SELECT * FROM documents WHERE id = $1 AND owner_id = $2", id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("documentRepo.GetForOwner: %w", err)
	}
	return &doc, nil
}

func (r *documentRepo) List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]domain.Document, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM documents WHERE owner_id = $1", ownerID)
	if err != nil {
		return nil, 0, fmt.Errorf("documentRepo.List count: %w", err)
	}

	var docs []domain.Document
	err = r.db.SelectContext(ctx, &docs,
		`SELECT * FROM documents WHERE owner_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("documentRepo.List: %w", err)
	}
	return docs, total, nil
}

func (r *documentRepo) FindByChecksum(ctx context.Context, ownerID uuid.UUID, checksum string) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.GetContext(ctx, &doc,
		`SELECT * FROM documents WHERE owner_id = $1 AND checksum = $2
		 ORDER BY created_at DESC LIMIT 1`,
		ownerID, checksum)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("documentRepo.FindByChecksum: %w", err)
	}
	return &doc, nil
}

func (r *documentRepo) UpdateStage(ctx context.Context, id uuid.UUID, stage domain.ProcessingStage, progress int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET stage = $1, progress = $2, updated_at = $3 WHERE id = $4`,
		stage, progress, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("documentRepo.UpdateStage: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *documentRepo) UpdateRawText(ctx context.Context, id uuid.UUID, rawText string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET raw_text = $1, updated_at = $2 WHERE id = $3`,
		rawText, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("documentRepo.UpdateRawText: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkError leaves stage and progress where the run stopped so the failure
// point stays visible to progress readers.
func (r *documentRepo) MarkError(ctx context.Context, id uuid.UUID, message string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
		domain.StatusError, message, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("documentRepo.MarkError: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *documentRepo) MarkComplete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET status = $1, stage = $2, progress = $3,
			error_message = NULL, updated_at = $4
		 WHERE id = $5`,
		domain.StatusComplete, domain.StageComplete, 100, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("documentRepo.MarkComplete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *documentRepo) ResetForRetry(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET status = $1, stage = $2, progress = 0,
			error_message = NULL, updated_at = $3
		 WHERE id = $4`,
		domain.StatusProcessing, domain.StageOCRExtraction, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("documentRepo.ResetForRetry: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *documentRepo) ListStaleQueued(ctx context.Context, cutoff time.Time, limit int) ([]domain.Document, error) {
	var docs []domain.Document
	err := r.db.SelectContext(ctx, &docs,
		`SELECT * FROM documents
		 WHERE status = $1 AND stage = $2 AND updated_at < $3
		 ORDER BY updated_at ASC LIMIT $4`,
		domain.StatusProcessing, domain.StageQueued, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ListStaleQueued: %w", err)
	}
	return docs, nil
}

func (r *documentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("documentRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
