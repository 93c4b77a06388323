package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"labsight/internal/analysis"
	"labsight/internal/domain"
	"labsight/internal/pipeline"
	"labsight/internal/port"
	"labsight/internal/resilience"
	"labsight/mocks"
)

const extractionReply = `{
	"markers": [
		{"marker": "Hemoglobin", "value": "16.1", "unit": "g/dL", "reference_range": "13.0 - 17.5"}
	],
	"document_type": "Blood Test Report",
	"test_date": "07/15/2024"
}`

const outOfRangeReply = `{
	"markers": [
		{"marker": "Glucose", "value": "126", "unit": "mg/dL", "reference_range": "70 - 100"}
	],
	"document_type": "Metabolic Panel",
	"test_date": null
}`

type pipelineFixture struct {
	store      *mocks.MockDocumentStore
	events     *mocks.MockEventStore
	users      *mocks.MockUserStore
	storage    *mocks.MockObjectStorage
	extractor  *mocks.MockTextExtractor
	email      *mocks.MockEmailSender
	extractLLM *mocks.MockChatCompleter
	insightLLM *mocks.MockChatCompleter
	orch       *pipeline.Orchestrator
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		store:      new(mocks.MockDocumentStore),
		events:     new(mocks.MockEventStore),
		users:      new(mocks.MockUserStore),
		storage:    new(mocks.MockObjectStorage),
		extractor:  new(mocks.MockTextExtractor),
		email:      new(mocks.MockEmailSender),
		extractLLM: new(mocks.MockChatCompleter),
		insightLLM: new(mocks.MockChatCompleter),
	}
	f.orch = f.build(resilience.NewExecutor(resilience.Config{
		MaxAttempts:    1,
		InitialBackoff: time.Millisecond,
		BreakerEnabled: false,
	}))
	return f
}

func (f *pipelineFixture) build(exec *resilience.Executor) *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(
		f.store,
		f.events,
		f.users,
		f.storage,
		f.extractor,
		analysis.NewExtractorAgent(f.extractLLM, nil, nil),
		analysis.NewInsightAgent(f.insightLLM),
		f.email,
		exec,
		nil,
		pipeline.Config{Bucket: "labsight-test"},
	)
}

func (f *pipelineFixture) stubObjectFetch() {
	f.storage.On("GetPresignedURL", mock.Anything, "labsight-test", mock.Anything, mock.Anything).
		Return("https://signed.example/report.pdf", nil)
	f.storage.On("Download", mock.Anything, "labsight-test", mock.Anything).
		Return([]byte("%PDF-1.4"), nil)
}

func (f *pipelineFixture) stubOwner(doc *domain.Document) {
	f.users.On("GetByID", mock.Anything, doc.OwnerID).
		Return(&domain.User{ID: doc.OwnerID, Email: "owner@example.com", FullName: "Test Owner"}, nil)
}

func testDocument() *domain.Document {
	return &domain.Document{
		ID:              uuid.New(),
		OwnerID:         uuid.New(),
		Filename:        "cbc-report.pdf",
		StorageLocation: "uploads/cbc-report.pdf",
		ContentType:     "application/pdf",
		Status:          domain.StatusProcessing,
		Stage:           domain.StageQueued,
	}
}

type stageWrite struct {
	stage    domain.ProcessingStage
	progress int
}

func stageWrites(store *mocks.MockDocumentStore) []stageWrite {
	var writes []stageWrite
	for _, call := range store.Calls {
		if call.Method == "UpdateStage" {
			writes = append(writes, stageWrite{
				stage:    call.Arguments.Get(2).(domain.ProcessingStage),
				progress: call.Arguments.Int(3),
			})
		}
	}
	return writes
}

func savedResult(store *mocks.MockDocumentStore) *domain.AnalysisResult {
	for _, call := range store.Calls {
		if call.Method == "SaveResult" {
			return call.Arguments.Get(1).(*domain.AnalysisResult)
		}
	}
	return nil
}

func appendedEvents(events *mocks.MockEventStore) []domain.ProcessingEvent {
	var out []domain.ProcessingEvent
	for _, call := range events.Calls {
		if call.Method == "Append" {
			out = append(out, *call.Arguments.Get(1).(*domain.ProcessingEvent))
		}
	}
	return out
}

func TestOrchestrator_Run_CompletesDocument(t *testing.T) {
	f := newPipelineFixture()
	doc := testDocument()

	f.stubObjectFetch()
	f.extractor.On("Extract", mock.Anything, mock.Anything).
		Return(&port.ExtractOutput{Text: "Hemoglobin 16.1 g/dL (13.0 - 17.5)", PageCount: 2}, nil)
	f.extractLLM.On("Complete", mock.Anything, mock.Anything).Return(extractionReply, nil)

	f.store.On("UpdateStage", mock.Anything, doc.ID, mock.Anything, mock.Anything).Return(nil)
	f.store.On("UpdateRawText", mock.Anything, doc.ID, mock.Anything).Return(nil)
	f.store.On("SaveResult", mock.Anything, mock.Anything).Return(nil)
	f.store.On("MarkComplete", mock.Anything, doc.ID).Return(nil)
	f.events.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.stubOwner(doc)
	f.email.On("SendAnalysisComplete", mock.Anything, "owner@example.com", "Test Owner", doc.Filename, doc.ID.String()).
		Return(nil)

	err := f.orch.Run(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, []stageWrite{
		{domain.StageOCRExtraction, 10},
		{domain.StageAIAnalysis, 30},
		{domain.StageAIAnalysis, 50},
		{domain.StageAIAnalysis, 70},
		{domain.StageSavingResults, 90},
	}, stageWrites(f.store))

	saved := savedResult(f.store)
	require.NotNil(t, saved)
	assert.Equal(t, doc.ID, saved.DocumentID)
	require.Len(t, saved.Markers, 1)
	assert.Equal(t, "Hemoglobin", saved.Markers[0].Name)
	assert.Equal(t, domain.MarkerNormal, saved.Markers[0].Status)
	assert.Equal(t, "Blood Test Report", saved.DocumentType)
	assert.Equal(t, "2024-07-15", saved.TestDate)
	assert.Equal(t, "All lab markers are within their normal reference ranges.", saved.Summary)
	assert.Equal(t, analysis.Disclaimer, saved.Disclaimer)

	// Every marker came back normal, so no insight model call was needed.
	f.insightLLM.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)

	f.store.AssertCalled(t, "UpdateRawText", mock.Anything, doc.ID, "Hemoglobin 16.1 g/dL (13.0 - 17.5)")
	f.store.AssertCalled(t, "MarkComplete", mock.Anything, doc.ID)
	f.email.AssertCalled(t, "SendAnalysisComplete", mock.Anything, "owner@example.com", "Test Owner", doc.Filename, doc.ID.String())

	trail := appendedEvents(f.events)
	require.NotEmpty(t, trail)
	last := trail[len(trail)-1]
	assert.Equal(t, domain.StageComplete, last.Stage)
	assert.Equal(t, 100, last.Progress)
	assert.Equal(t, doc.ID, last.DocumentID)

	assert.Equal(t, domain.StatusComplete, doc.Status)
	assert.Equal(t, 100, doc.Progress)
}

func TestOrchestrator_Run_EmptyExtractionFailsRun(t *testing.T) {
	f := newPipelineFixture()
	doc := testDocument()

	f.stubObjectFetch()
	f.extractor.On("Extract", mock.Anything, mock.Anything).
		Return(&port.ExtractOutput{Text: "   \n"}, nil)

	f.store.On("UpdateStage", mock.Anything, doc.ID, mock.Anything, mock.Anything).Return(nil)
	f.store.On("MarkError", mock.Anything, doc.ID, mock.Anything).Return(nil)
	f.events.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.stubOwner(doc)
	f.email.On("SendAnalysisFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)

	err := f.orch.Run(context.Background(), doc)
	require.ErrorIs(t, err, domain.ErrExtractionEmpty)

	assert.Equal(t, []stageWrite{{domain.StageOCRExtraction, 10}}, stageWrites(f.store))
	f.store.AssertCalled(t, "MarkError", mock.Anything, doc.ID, "text extraction yielded no pages or data")
	f.store.AssertNotCalled(t, "UpdateRawText", mock.Anything, mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "SaveResult", mock.Anything, mock.Anything)
	f.extractLLM.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	f.email.AssertCalled(t, "SendAnalysisFailed",
		mock.Anything, "owner@example.com", "Test Owner", doc.Filename, "text extraction yielded no pages or data")
	assert.Equal(t, domain.StatusError, doc.Status)
}

func TestOrchestrator_Run_InsightFailureStillCompletes(t *testing.T) {
	f := newPipelineFixture()
	doc := testDocument()

	f.stubObjectFetch()
	f.extractor.On("Extract", mock.Anything, mock.Anything).
		Return(&port.ExtractOutput{Text: "Glucose 126 mg/dL (70 - 100)", PageCount: 1}, nil)
	f.extractLLM.On("Complete", mock.Anything, mock.Anything).Return(outOfRangeReply, nil)
	f.insightLLM.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("model unavailable"))

	f.store.On("UpdateStage", mock.Anything, doc.ID, mock.Anything, mock.Anything).Return(nil)
	f.store.On("UpdateRawText", mock.Anything, doc.ID, mock.Anything).Return(nil)
	f.store.On("SaveResult", mock.Anything, mock.Anything).Return(nil)
	f.store.On("MarkComplete", mock.Anything, doc.ID).Return(nil)
	f.events.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.stubOwner(doc)
	f.email.On("SendAnalysisComplete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)

	err := f.orch.Run(context.Background(), doc)
	require.NoError(t, err)

	saved := savedResult(f.store)
	require.NotNil(t, saved)
	require.Len(t, saved.Markers, 1)
	assert.Equal(t, domain.MarkerDangerHigh, saved.Markers[0].Status)
	assert.Equal(t, "Could not generate AI insights due to a technical error.", saved.Summary)
	assert.Equal(t, analysis.Disclaimer, saved.Disclaimer)
	f.store.AssertCalled(t, "MarkComplete", mock.Anything, doc.ID)
}

func TestOrchestrator_Run_NoMarkersStillCompletes(t *testing.T) {
	f := newPipelineFixture()
	doc := testDocument()

	f.stubObjectFetch()
	f.extractor.On("Extract", mock.Anything, mock.Anything).
		Return(&port.ExtractOutput{Text: "Clinical notes, no tabular values", PageCount: 1}, nil)
	f.extractLLM.On("Complete", mock.Anything, mock.Anything).
		Return(`{"markers": [], "document_type": "Clinical Notes", "test_date": null}`, nil)

	f.store.On("UpdateStage", mock.Anything, doc.ID, mock.Anything, mock.Anything).Return(nil)
	f.store.On("UpdateRawText", mock.Anything, doc.ID, mock.Anything).Return(nil)
	f.store.On("SaveResult", mock.Anything, mock.Anything).Return(nil)
	f.store.On("MarkComplete", mock.Anything, doc.ID).Return(nil)
	f.events.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.stubOwner(doc)
	f.email.On("SendAnalysisComplete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)

	err := f.orch.Run(context.Background(), doc)
	require.NoError(t, err)

	saved := savedResult(f.store)
	require.NotNil(t, saved)
	assert.Empty(t, saved.Markers)
	assert.Equal(t, "Clinical Notes", saved.DocumentType)
	f.store.AssertCalled(t, "MarkComplete", mock.Anything, doc.ID)
}

func TestOrchestrator_Run_AnalysisFailureKeepsRawText(t *testing.T) {
	f := newPipelineFixture()
	doc := testDocument()

	f.stubObjectFetch()
	f.extractor.On("Extract", mock.Anything, mock.Anything).
		Return(&port.ExtractOutput{Text: "Hemoglobin 16.1", PageCount: 1}, nil)
	f.extractLLM.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("model unavailable"))

	f.store.On("UpdateStage", mock.Anything, doc.ID, mock.Anything, mock.Anything).Return(nil)
	f.store.On("UpdateRawText", mock.Anything, doc.ID, mock.Anything).Return(nil)
	f.store.On("MarkError", mock.Anything, doc.ID, mock.Anything).Return(nil)
	f.events.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.stubOwner(doc)
	f.email.On("SendAnalysisFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)

	err := f.orch.Run(context.Background(), doc)
	require.Error(t, err)

	assert.Equal(t, []stageWrite{
		{domain.StageOCRExtraction, 10},
		{domain.StageAIAnalysis, 30},
	}, stageWrites(f.store))
	f.store.AssertCalled(t, "UpdateRawText", mock.Anything, doc.ID, "Hemoglobin 16.1")
	f.store.AssertNotCalled(t, "SaveResult", mock.Anything, mock.Anything)

	var errMsg string
	for _, call := range f.store.Calls {
		if call.Method == "MarkError" {
			errMsg = call.Arguments.String(2)
		}
	}
	assert.Contains(t, errMsg, "analyzing report")
}

func TestOrchestrator_Run_RetriesTransientExtractionFailure(t *testing.T) {
	f := newPipelineFixture()
	f.orch = f.build(resilience.NewExecutor(resilience.Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		BreakerEnabled: false,
	}))
	doc := testDocument()

	f.stubObjectFetch()
	f.extractor.On("Extract", mock.Anything, mock.Anything).
		Return(nil, errors.New("upstream timeout")).Twice()
	f.extractor.On("Extract", mock.Anything, mock.Anything).
		Return(&port.ExtractOutput{Text: "Hemoglobin 16.1 g/dL (13.0 - 17.5)", PageCount: 1}, nil).Once()
	f.extractLLM.On("Complete", mock.Anything, mock.Anything).Return(extractionReply, nil)

	f.store.On("UpdateStage", mock.Anything, doc.ID, mock.Anything, mock.Anything).Return(nil)
	f.store.On("UpdateRawText", mock.Anything, doc.ID, mock.Anything).Return(nil)
	f.store.On("SaveResult", mock.Anything, mock.Anything).Return(nil)
	f.store.On("MarkComplete", mock.Anything, doc.ID).Return(nil)
	f.events.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.stubOwner(doc)
	f.email.On("SendAnalysisComplete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)

	err := f.orch.Run(context.Background(), doc)
	require.NoError(t, err)

	f.extractor.AssertNumberOfCalls(t, "Extract", 3)
	f.store.AssertCalled(t, "MarkComplete", mock.Anything, doc.ID)
}

func TestOrchestrator_Run_StageWriteFailureAbortsRun(t *testing.T) {
	f := newPipelineFixture()
	doc := testDocument()

	f.stubObjectFetch()
	f.store.On("UpdateStage", mock.Anything, doc.ID, domain.StageOCRExtraction, 10).
		Return(errors.New("db down"))
	f.store.On("MarkError", mock.Anything, doc.ID, mock.Anything).Return(nil)
	f.events.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.stubOwner(doc)
	f.email.On("SendAnalysisFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)

	err := f.orch.Run(context.Background(), doc)
	require.Error(t, err)

	f.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "SaveResult", mock.Anything, mock.Anything)
}

func TestOrchestrator_Retry_ResetsAndReruns(t *testing.T) {
	f := newPipelineFixture()
	doc := testDocument()
	doc.Status = domain.StatusError
	doc.Stage = domain.StageOCRExtraction
	failure := "text extraction yielded no pages or data"
	doc.ErrorMessage = &failure

	f.store.On("Get", mock.Anything, doc.ID).Return(doc, nil)
	f.store.On("ResetForRetry", mock.Anything, doc.ID).Return(nil)

	f.stubObjectFetch()
	f.extractor.On("Extract", mock.Anything, mock.Anything).
		Return(&port.ExtractOutput{Text: "Hemoglobin 16.1 g/dL (13.0 - 17.5)", PageCount: 1}, nil)
	f.extractLLM.On("Complete", mock.Anything, mock.Anything).Return(extractionReply, nil)

	f.store.On("UpdateStage", mock.Anything, doc.ID, mock.Anything, mock.Anything).Return(nil)
	f.store.On("UpdateRawText", mock.Anything, doc.ID, mock.Anything).Return(nil)
	f.store.On("SaveResult", mock.Anything, mock.Anything).Return(nil)
	f.store.On("MarkComplete", mock.Anything, doc.ID).Return(nil)
	f.events.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.stubOwner(doc)

	// The completion email is the run's last side effect, so it doubles as
	// the done signal for the background goroutine.
	done := make(chan struct{})
	f.email.On("SendAnalysisComplete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { close(done) }).
		Return(nil)

	returned, err := f.orch.Retry(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, returned.Status)
	assert.Equal(t, domain.StageOCRExtraction, returned.Stage)
	assert.Equal(t, 0, returned.Progress)
	assert.Nil(t, returned.ErrorMessage)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background run did not finish")
	}

	f.store.AssertCalled(t, "ResetForRetry", mock.Anything, doc.ID)
	f.store.AssertCalled(t, "MarkComplete", mock.Anything, doc.ID)
}

func TestOrchestrator_Retry_RefusesCompletedDocument(t *testing.T) {
	f := newPipelineFixture()
	doc := testDocument()
	doc.Status = domain.StatusComplete
	doc.Stage = domain.StageComplete
	doc.Progress = 100

	f.store.On("Get", mock.Anything, doc.ID).Return(doc, nil)

	_, err := f.orch.Retry(context.Background(), doc.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyComplete)
	f.store.AssertNotCalled(t, "ResetForRetry", mock.Anything, mock.Anything)
}

func TestOrchestrator_Retry_RefusesDocumentWithoutStoredFile(t *testing.T) {
	f := newPipelineFixture()
	doc := testDocument()
	doc.Status = domain.StatusError
	doc.StorageLocation = ""

	f.store.On("Get", mock.Anything, doc.ID).Return(doc, nil)

	_, err := f.orch.Retry(context.Background(), doc.ID)
	require.ErrorIs(t, err, domain.ErrNoStorageLocation)
	f.store.AssertNotCalled(t, "ResetForRetry", mock.Anything, mock.Anything)
}

func TestOrchestrator_Retry_PropagatesNotFound(t *testing.T) {
	f := newPipelineFixture()
	id := uuid.New()

	f.store.On("Get", mock.Anything, id).Return(nil, domain.ErrNotFound)

	_, err := f.orch.Retry(context.Background(), id)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
