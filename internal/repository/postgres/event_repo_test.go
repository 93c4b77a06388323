package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labsight/internal/domain"
)

var eventColumns = []string{"id", "document_id", "stage", "progress", "message", "created_at"}

func TestEventRepo_AppendAssignsIDAndTimestamp(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepo(db)
	event := &domain.ProcessingEvent{
		DocumentID: uuid.New(),
		Stage:      domain.StageOCRExtraction,
		Progress:   10,
		Message:    "text extraction started",
	}

	mock.ExpectExec("INSERT INTO processing_events").
		WithArgs(sqlmock.AnyArg(), event.DocumentID, domain.StageOCRExtraction, 10,
			"text extraction started", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(context.Background(), event)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_ListByDocumentNewestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepo(db)
	documentID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("FROM processing_events").
		WithArgs(documentID, 50).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow(uuid.New(), documentID, domain.StageComplete, 100, "processing complete", now).
			AddRow(uuid.New(), documentID, domain.StageOCRExtraction, 10, "text extraction started", now.Add(-time.Minute)))

	events, err := repo.ListByDocument(context.Background(), documentID, 50)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.StageComplete, events[0].Stage)
	assert.Equal(t, 100, events[0].Progress)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_DeleteByDocument(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepo(db)
	documentID := uuid.New()

	mock.ExpectExec("DELETE FROM processing_events").
		WithArgs(documentID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.DeleteByDocument(context.Background(), documentID)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
