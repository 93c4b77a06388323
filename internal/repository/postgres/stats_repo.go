package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"labsight/internal/domain"
	"labsight/internal/port"
)

type statsRepo struct {
	db *sqlx.DB
}

// NewStatsRepo creates a new PostgreSQL-backed StatsStore.
func NewStatsRepo(db *sqlx.DB) port.StatsStore {
	return &statsRepo{db: db}
}

const recentUploadsLimit = 5

const ownerDocStatsQuery = `SELECT
	COUNT(*) AS total_documents,
	COUNT(CASE WHEN status = 'processing' THEN 1 END) AS status_processing,
	COUNT(CASE WHEN status = 'complete' THEN 1 END) AS status_complete,
	COUNT(CASE WHEN status = 'error' THEN 1 END) AS status_error
FROM documents WHERE owner_id = $1`

type docStatsRow struct {
	TotalDocuments   int `db:"total_documents"`
	StatusProcessing int `db:"status_processing"`
	StatusComplete   int `db:"status_complete"`
	StatusError      int `db:"status_error"`
}

type markerStatusRow struct {
	Status domain.MarkerStatus `db:"status"`
	Count  int                 `db:"count"`
}

func (r *statsRepo) GetOverview(ctx context.Context, ownerID uuid.UUID) (*domain.StatsOverview, error) {
	var docStats docStatsRow
	if err := r.db.GetContext(ctx, &docStats, ownerDocStatsQuery, ownerID); err != nil {
		return nil, fmt.Errorf("statsRepo.GetOverview docs: %w", err)
	}

	overview := &domain.StatsOverview{
		TotalDocuments: docStats.TotalDocuments,
		ByStatus: map[domain.ProcessingStatus]int{
			domain.StatusProcessing: docStats.StatusProcessing,
			domain.StatusComplete:   docStats.StatusComplete,
			domain.StatusError:      docStats.StatusError,
		},
		MarkersByStatus: make(map[domain.MarkerStatus]int, len(domain.MarkerStatuses)),
	}
	for _, status := range domain.MarkerStatuses {
		overview.MarkersByStatus[status] = 0
	}

	var markerCounts []markerStatusRow
	err := r.db.SelectContext(ctx, &markerCounts,
		`SELECT m.status, COUNT(*) AS count
		 FROM analysis_markers m
		 INNER JOIN documents d ON d.id = m.document_id
		 WHERE d.owner_id = $1
		 GROUP BY m.status`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("statsRepo.GetOverview markers: %w", err)
	}
	for _, row := range markerCounts {
		overview.MarkersByStatus[row.Status] = row.Count
	}

	var recent []domain.Document
	err = r.db.SelectContext(ctx, &recent,
		`SELECT * FROM documents WHERE owner_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		ownerID, recentUploadsLimit)
	if err != nil {
		return nil, fmt.Errorf("statsRepo.GetOverview recent: %w", err)
	}
	overview.RecentUploads = recent

	return overview, nil
}
