package postgres

// Analysis-result persistence for documentRepo. A result is one row in
// analysis_results plus its ordered rows in analysis_markers; SaveResult
// replaces both atomically so readers never see a half-written rerun.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"labsight/internal/domain"
)

type resultRow struct {
	DocumentID      uuid.UUID `db:"document_id"`
	DocumentType    string    `db:"document_type"`
	TestDate        string    `db:"test_date"`
	Summary         string    `db:"summary"`
	KeyFindings     []byte    `db:"key_findings"`
	Recommendations []byte    `db:"recommendations"`
	Disclaimer      string    `db:"disclaimer"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type markerRow struct {
	DocumentID     uuid.UUID           `db:"document_id"`
	Position       int                 `db:"position"`
	Name           string              `db:"name"`
	Value          string              `db:"value"`
	Unit           string              `db:"unit"`
	ReferenceRange string              `db:"reference_range"`
	Status         domain.MarkerStatus `db:"status"`
}

func (r *documentRepo) SaveResult(ctx context.Context, result *domain.AnalysisResult) error {
	now := time.Now().UTC()
	result.CreatedAt = now
	result.UpdatedAt = now

	findings, err := json.Marshal(result.KeyFindings)
	if err != nil {
		return fmt.Errorf("documentRepo.SaveResult findings: %w", err)
	}
	recommendations, err := json.Marshal(result.Recommendations)
	if err != nil {
		return fmt.Errorf("documentRepo.SaveResult recommendations: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("documentRepo.SaveResult begin: %w", err)
	}
	defer tx.Rollback()

	// Reruns keep the original created_at; only updated_at moves.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO analysis_results (
			document_id, document_type, test_date, summary,
			key_findings, recommendations, disclaimer, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (document_id) DO UPDATE SET
			document_type = EXCLUDED.document_type,
			test_date = EXCLUDED.test_date,
			summary = EXCLUDED.summary,
			key_findings = EXCLUDED.key_findings,
			recommendations = EXCLUDED.recommendations,
			disclaimer = EXCLUDED.disclaimer,
			updated_at = EXCLUDED.updated_at`,
		result.DocumentID, result.DocumentType, result.TestDate, result.Summary,
		findings, recommendations, result.Disclaimer, result.CreatedAt, result.UpdatedAt)
	if err != nil {
		return fmt.Errorf("documentRepo.SaveResult upsert: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"DELETE FROM analysis_markers WHERE document_id = $1", result.DocumentID)
	if err != nil {
		return fmt.Errorf("documentRepo.SaveResult clear markers: %w", err)
	}

	if len(result.Markers) > 0 {
		valueStrings := make([]string, 0, len(result.Markers))
		valueArgs := make([]interface{}, 0, len(result.Markers)*7)
		for i, m := range result.Markers {
			base := i * 7
			valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7))
			valueArgs = append(valueArgs, result.DocumentID, i, m.Name, m.Value, m.Unit, m.ReferenceRange, m.Status)
		}
		query := fmt.Sprintf(
			`INSERT INTO analysis_markers (document_id, position, name, value, unit, reference_range, status) VALUES %s`,
			strings.Join(valueStrings, ", "))
		if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
			return fmt.Errorf("documentRepo.SaveResult markers: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("documentRepo.SaveResult commit: %w", err)
	}
	return nil
}

func (r *documentRepo) GetResult(ctx context.Context, documentID uuid.UUID) (*domain.AnalysisResult, error) {
	var row resultRow
	err := r.db.GetContext(ctx, &row,
		"SELECT * FROM analysis_results WHERE document_id = $1", documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("documentRepo.GetResult: %w", err)
	}

	result := &domain.AnalysisResult{
		DocumentID:   row.DocumentID,
		DocumentType: row.DocumentType,
		TestDate:     row.TestDate,
		Summary:      row.Summary,
		Disclaimer:   row.Disclaimer,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if err := json.Unmarshal(row.KeyFindings, &result.KeyFindings); err != nil {
		return nil, fmt.Errorf("documentRepo.GetResult findings: %w", err)
	}
	if err := json.Unmarshal(row.Recommendations, &result.Recommendations); err != nil {
		return nil, fmt.Errorf("documentRepo.GetResult recommendations: %w", err)
	}

	var markers []markerRow
	err = r.db.SelectContext(ctx, &markers,
		"SELECT * FROM analysis_markers WHERE document_id = $1 ORDER BY position ASC", documentID)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.GetResult markers: %w", err)
	}
	result.Markers = make([]domain.AnalyzedMarker, 0, len(markers))
	for _, m := range markers {
		result.Markers = append(result.Markers, domain.AnalyzedMarker{
			ExtractedMarker: domain.ExtractedMarker{
				Name:           m.Name,
				Value:          m.Value,
				Unit:           m.Unit,
				ReferenceRange: m.ReferenceRange,
			},
			Status: m.Status,
		})
	}
	return result, nil
}

// DeleteResult removes a document's analysis rows. Absence is not an error;
// the document delete flow calls this without checking for a result first.
// Marker rows go with the result via the cascade.
func (r *documentRepo) DeleteResult(ctx context.Context, documentID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM analysis_results WHERE document_id = $1", documentID)
	if err != nil {
		return fmt.Errorf("documentRepo.DeleteResult: %w", err)
	}
	return nil
}
