package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labsight/internal/domain"
)

func sampleResult(documentID uuid.UUID) *domain.AnalysisResult {
	return &domain.AnalysisResult{
		DocumentID:   documentID,
		DocumentType: "Blood Test Report",
		TestDate:     "2024-07-15",
		Summary:      "One marker is above its reference range.",
		KeyFindings:  []string{"Glucose is elevated."},
		Recommendations: []string{
			"Discuss fasting glucose with your physician.",
		},
		Disclaimer: "This analysis is for educational purposes only.",
		Markers: []domain.AnalyzedMarker{
			{
				ExtractedMarker: domain.ExtractedMarker{
					Name: "Glucose", Value: "126", Unit: "mg/dL", ReferenceRange: "70 - 100",
				},
				Status: domain.MarkerDangerHigh,
			},
			{
				ExtractedMarker: domain.ExtractedMarker{
					Name: "Hemoglobin", Value: "15.2", Unit: "g/dL", ReferenceRange: "13.0 - 17.5",
				},
				Status: domain.MarkerNormal,
			},
		},
	}
}

func TestDocumentRepo_SaveResultReplacesMarkers(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepo(db)
	result := sampleResult(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO analysis_results").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM analysis_markers").
		WithArgs(result.DocumentID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO analysis_markers").
		WithArgs(
			result.DocumentID, 0, "Glucose", "126", "mg/dL", "70 - 100", domain.MarkerDangerHigh,
			result.DocumentID, 1, "Hemoglobin", "15.2", "g/dL", "13.0 - 17.5", domain.MarkerNormal,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.SaveResult(context.Background(), result)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepo_SaveResultWithoutMarkersSkipsInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepo(db)
	result := sampleResult(uuid.New())
	result.Markers = nil

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO analysis_results").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM analysis_markers").
		WithArgs(result.DocumentID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.SaveResult(context.Background(), result)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepo_SaveResultRollsBackOnMarkerFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepo(db)
	result := sampleResult(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO analysis_results").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM analysis_markers").
		WithArgs(result.DocumentID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO analysis_markers").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.SaveResult(context.Background(), result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "markers")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepo_GetResult(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepo(db)
	documentID := uuid.New()

	now := time.Now().UTC()
	resultColumns := []string{
		"document_id", "document_type", "test_date", "summary",
		"key_findings", "recommendations", "disclaimer", "created_at", "updated_at",
	}
	mock.ExpectQuery("FROM analysis_results").
		WithArgs(documentID).
		WillReturnRows(sqlmock.NewRows(resultColumns).AddRow(
			documentID, "Blood Test Report", "2024-07-15", "One marker is elevated.",
			[]byte(`["Glucose is elevated."]`), []byte(`["Recheck in three months."]`),
			"Educational use only.", now, now))

	markerColumns := []string{
		"document_id", "position", "name", "value", "unit", "reference_range", "status",
	}
	mock.ExpectQuery("FROM analysis_markers").
		WithArgs(documentID).
		WillReturnRows(sqlmock.NewRows(markerColumns).
			AddRow(documentID, 0, "Glucose", "126", "mg/dL", "70 - 100", domain.MarkerDangerHigh).
			AddRow(documentID, 1, "Hemoglobin", "15.2", "g/dL", "13.0 - 17.5", domain.MarkerNormal))

	result, err := repo.GetResult(context.Background(), documentID)
	require.NoError(t, err)
	assert.Equal(t, documentID, result.DocumentID)
	assert.Equal(t, []string{"Glucose is elevated."}, result.KeyFindings)
	assert.Equal(t, []string{"Recheck in three months."}, result.Recommendations)
	require.Len(t, result.Markers, 2)
	assert.Equal(t, "Glucose", result.Markers[0].Name)
	assert.Equal(t, domain.MarkerDangerHigh, result.Markers[0].Status)
	assert.Equal(t, domain.MarkerNormal, result.Markers[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepo_GetResultNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepo(db)
	documentID := uuid.New()

	mock.ExpectQuery("FROM analysis_results").
		WithArgs(documentID).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetResult(context.Background(), documentID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepo_DeleteResultIgnoresAbsence(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepo(db)
	documentID := uuid.New()

	mock.ExpectExec("DELETE FROM analysis_results").
		WithArgs(documentID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteResult(context.Background(), documentID)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
