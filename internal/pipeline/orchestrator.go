// Package pipeline drives an uploaded document through its processing run:
// text extraction, model analysis, range classification and result
// persistence, with the document row reflecting every stage as it happens.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"labsight/internal/analysis"
	"labsight/internal/domain"
	"labsight/internal/observability/metrics"
	"labsight/internal/port"
	"labsight/internal/resilience"
)

// Progress checkpoints written as a run advances. Readers polling the
// document row see these exact values in this order.
const (
	progressExtraction = 10
	progressAnalysis   = 30
	progressInsights   = 50
	progressAnalyzed   = 70
	progressSaving     = 90
	progressDone       = 100
)

const (
	defaultRunTimeout    = 5 * time.Minute
	defaultPresignExpiry = int64(3600)

	// Terminal status writes and outcome emails run after the run context
	// may already be dead, so they get their own deadline.
	statusWriteTimeout = 10 * time.Second
)

// Config carries the orchestrator's policy settings.
type Config struct {
	Bucket        string
	PresignExpiry int64
	RunTimeout    time.Duration
}

// Orchestrator executes processing runs. One instance is shared by the HTTP
// layer and the requeue worker; each run gets its own goroutine and timeout.
type Orchestrator struct {
	store     port.DocumentStore
	events    port.EventStore
	users     port.UserStore
	storage   port.ObjectStorage
	extractor port.TextExtractor
	agent     *analysis.ExtractorAgent
	insights  *analysis.InsightAgent
	email     port.EmailSender
	exec      *resilience.Executor
	metrics   *metrics.PipelineMetrics
	cfg       Config
}

// NewOrchestrator wires a pipeline orchestrator. events, users, storage and
// email may be nil, which disables the audit trail, outcome emails and
// presigned extraction URLs respectively. A nil executor or metrics gets a
// default instance.
func NewOrchestrator(
	store port.DocumentStore,
	events port.EventStore,
	users port.UserStore,
	storage port.ObjectStorage,
	extractor port.TextExtractor,
	agent *analysis.ExtractorAgent,
	insights *analysis.InsightAgent,
	email port.EmailSender,
	exec *resilience.Executor,
	m *metrics.PipelineMetrics,
	cfg Config,
) *Orchestrator {
	if exec == nil {
		exec = resilience.NewExecutor(resilience.DefaultConfig())
	}
	if m == nil {
		m = metrics.NewPipelineMetrics()
	}
	return &Orchestrator{
		store:     store,
		events:    events,
		users:     users,
		storage:   storage,
		extractor: extractor,
		agent:     agent,
		insights:  insights,
		email:     email,
		exec:      exec,
		metrics:   m,
		cfg:       cfg,
	}
}

// Launch starts a processing run for doc on its own goroutine.
func (o *Orchestrator) Launch(doc *domain.Document) {
	// Copy before launching goroutine so the caller's value is independent
	// of background work.
	run := *doc

	go func() {
		timeout := o.cfg.RunTimeout
		if timeout <= 0 {
			timeout = defaultRunTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := o.Run(ctx, &run); err != nil {
			log.Printf("pipeline.Orchestrator: background run for document %s: %v", run.ID, err)
		}
	}()
}

// Run executes the full pipeline for doc synchronously and reports the
// terminal error, if any. On failure the document is marked errored with the
// failure message; the run is never left in a processing state.
func (o *Orchestrator) Run(ctx context.Context, doc *domain.Document) error {
	o.metrics.RunStarted()
	log.Printf("pipeline.Orchestrator: starting run for document %s (%s)", doc.ID, doc.Filename)

	if err := o.run(ctx, doc); err != nil {
		o.metrics.RunFinished("error")
		o.failRun(doc, err)
		return err
	}

	o.metrics.RunFinished("complete")
	o.notifyOutcome(doc, nil)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, doc *domain.Document) error {
	if err := o.setStage(ctx, doc, domain.StageOCRExtraction, progressExtraction, "text extraction started"); err != nil {
		return err
	}

	stageStart := time.Now()
	rawText, err := o.extractText(ctx, doc)
	o.metrics.ObserveStage(string(domain.StageOCRExtraction), time.Since(stageStart))
	if err != nil {
		return err
	}

	// Raw text survives even when later stages fail, and a failed write is
	// not worth failing the run over either.
	if err := o.store.UpdateRawText(ctx, doc.ID, rawText); err != nil {
		log.Printf("pipeline.Orchestrator: saving raw text for %s: %v", doc.ID, err)
	}

	if err := o.setStage(ctx, doc, domain.StageAIAnalysis, progressAnalysis, "marker extraction started"); err != nil {
		return err
	}

	stageStart = time.Now()
	extraction, err := o.extractMarkers(ctx, rawText)
	if err != nil {
		o.metrics.ObserveStage(string(domain.StageAIAnalysis), time.Since(stageStart))
		return err
	}
	if len(extraction.Markers) == 0 {
		log.Printf("pipeline.Orchestrator: document %s produced no markers", doc.ID)
	}

	if err := o.setStage(ctx, doc, domain.StageAIAnalysis, progressInsights, "generating insights"); err != nil {
		return err
	}

	insights := o.insights.Generate(ctx, extraction)
	o.metrics.ObserveStage(string(domain.StageAIAnalysis), time.Since(stageStart))

	if err := o.setStage(ctx, doc, domain.StageAIAnalysis, progressAnalyzed, "insights generated"); err != nil {
		return err
	}
	if err := o.setStage(ctx, doc, domain.StageSavingResults, progressSaving, "saving results"); err != nil {
		return err
	}

	stageStart = time.Now()
	result := &domain.AnalysisResult{
		DocumentID:      doc.ID,
		Markers:         extraction.Markers,
		DocumentType:    extraction.DocumentType,
		TestDate:        extraction.TestDate,
		Summary:         insights.Summary,
		KeyFindings:     insights.KeyFindings,
		Recommendations: insights.Recommendations,
		Disclaimer:      insights.Disclaimer,
	}
	if err := o.store.SaveResult(ctx, result); err != nil {
		return fmt.Errorf("saving analysis result: %w", err)
	}
	if err := o.store.MarkComplete(ctx, doc.ID); err != nil {
		return fmt.Errorf("marking document complete: %w", err)
	}
	o.metrics.ObserveStage(string(domain.StageSavingResults), time.Since(stageStart))

	doc.Status = domain.StatusComplete
	doc.Stage = domain.StageComplete
	doc.Progress = progressDone
	o.recordEvent(ctx, doc, "processing complete")

	log.Printf("pipeline.Orchestrator: document %s processed, %d markers analyzed", doc.ID, len(extraction.Markers))
	return nil
}

// Retry resets a failed or stuck document and starts a fresh run. Completed
// documents are never reprocessed, and a document with no stored file has
// nothing to rerun against.
func (o *Orchestrator) Retry(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	doc, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status == domain.StatusComplete {
		return nil, domain.ErrAlreadyComplete
	}
	if doc.StorageLocation == "" {
		return nil, domain.ErrNoStorageLocation
	}

	if err := o.store.ResetForRetry(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("resetting document for retry: %w", err)
	}
	doc.Status = domain.StatusProcessing
	doc.Stage = domain.StageOCRExtraction
	doc.Progress = 0
	doc.ErrorMessage = nil
	o.recordEvent(ctx, doc, "retry requested")

	log.Printf("pipeline.Orchestrator: retrying document %s", doc.ID)
	o.Launch(doc)
	return doc, nil
}

func (o *Orchestrator) extractText(ctx context.Context, doc *domain.Document) (string, error) {
	input := o.extractionInput(ctx, doc)

	var out *port.ExtractOutput
	err := o.exec.Execute(ctx, "ocr.extract", func(ctx context.Context) error {
		var extractErr error
		out, extractErr = o.extractor.Extract(ctx, input)
		return extractErr
	}, resilience.AlwaysRetry)
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}
	if out == nil || strings.TrimSpace(out.Text) == "" {
		return "", domain.ErrExtractionEmpty
	}

	log.Printf("pipeline.Orchestrator: extracted %d pages from document %s", out.PageCount, doc.ID)
	return out.Text, nil
}

func (o *Orchestrator) extractMarkers(ctx context.Context, rawText string) (*analysis.Extraction, error) {
	var extraction *analysis.Extraction
	err := o.exec.Execute(ctx, "llm.extract", func(ctx context.Context) error {
		var extractErr error
		extraction, extractErr = o.agent.Extract(ctx, rawText)
		return extractErr
	}, resilience.AlwaysRetry)
	if err != nil {
		return nil, fmt.Errorf("analyzing report: %w", err)
	}
	return extraction, nil
}

// extractionInput assembles the provider input. Cloud extractors read the
// presigned URL, local ones read the bytes, so both are fetched; either
// fetch failing alone still leaves the other path usable.
func (o *Orchestrator) extractionInput(ctx context.Context, doc *domain.Document) port.ExtractInput {
	input := port.ExtractInput{
		Key:         doc.StorageLocation,
		ContentType: doc.ContentType,
		Filename:    doc.Filename,
	}
	if o.storage == nil {
		return input
	}

	expiry := o.cfg.PresignExpiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	url, err := o.storage.GetPresignedURL(ctx, o.cfg.Bucket, doc.StorageLocation, expiry)
	if err != nil {
		log.Printf("pipeline.Orchestrator: presigning %s: %v", doc.StorageLocation, err)
	} else {
		input.URL = url
	}

	data, err := o.storage.Download(ctx, o.cfg.Bucket, doc.StorageLocation)
	if err != nil {
		log.Printf("pipeline.Orchestrator: downloading %s: %v", doc.StorageLocation, err)
	} else {
		input.Data = data
	}
	return input
}

// setStage persists a stage transition and mirrors it onto doc so later
// steps and the failure path know where the run is.
func (o *Orchestrator) setStage(ctx context.Context, doc *domain.Document, stage domain.ProcessingStage, progress int, note string) error {
	if err := o.store.UpdateStage(ctx, doc.ID, stage, progress); err != nil {
		return fmt.Errorf("updating stage to %s: %w", stage, err)
	}
	doc.Stage = stage
	doc.Progress = progress
	o.recordEvent(ctx, doc, note)
	return nil
}

// recordEvent appends to the document's audit trail. A failed append never
// fails a run.
func (o *Orchestrator) recordEvent(ctx context.Context, doc *domain.Document, message string) {
	if o.events == nil {
		return
	}
	event := &domain.ProcessingEvent{
		ID:         uuid.New(),
		DocumentID: doc.ID,
		Stage:      doc.Stage,
		Progress:   doc.Progress,
		Message:    message,
	}
	if err := o.events.Append(ctx, event); err != nil {
		log.Printf("pipeline.Orchestrator: recording event for %s: %v", doc.ID, err)
	}
}

// failRun records a terminal failure on the document row and notifies the
// owner. The run context may already be canceled, so writes get a fresh one.
func (o *Orchestrator) failRun(doc *domain.Document, runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), statusWriteTimeout)
	defer cancel()

	log.Printf("pipeline.Orchestrator: document %s failed at stage %s: %v", doc.ID, doc.Stage, runErr)
	if err := o.store.MarkError(ctx, doc.ID, runErr.Error()); err != nil {
		log.Printf("pipeline.Orchestrator: recording failure for %s: %v", doc.ID, err)
	}
	doc.Status = domain.StatusError
	o.recordEvent(ctx, doc, fmt.Sprintf("processing failed: %v", runErr))
	o.notifyOutcome(doc, runErr)
}

// notifyOutcome emails the document owner about the run result. Delivery is
// best effort and never affects run state.
func (o *Orchestrator) notifyOutcome(doc *domain.Document, runErr error) {
	if o.email == nil || o.users == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), statusWriteTimeout)
	defer cancel()

	owner, err := o.users.GetByID(ctx, doc.OwnerID)
	if err != nil {
		log.Printf("pipeline.Orchestrator: looking up owner of %s: %v", doc.ID, err)
		return
	}

	if runErr != nil {
		err = o.email.SendAnalysisFailed(ctx, owner.Email, owner.FullName, doc.Filename, runErr.Error())
	} else {
		err = o.email.SendAnalysisComplete(ctx, owner.Email, owner.FullName, doc.Filename, doc.ID.String())
	}
	if err != nil {
		log.Printf("pipeline.Orchestrator: sending outcome email for %s: %v", doc.ID, err)
	}
}
