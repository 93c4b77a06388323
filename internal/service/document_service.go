package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"labsight/internal/config"
	"labsight/internal/domain"
	"labsight/internal/export"
	"labsight/internal/port"
)

// Pipeline is the slice of the processing orchestrator the document service
// depends on: fire-and-forget launch and retry of a document run.
type Pipeline interface {
	Launch(doc *domain.Document)
	Run(ctx context.Context, doc *domain.Document) error
	Retry(ctx context.Context, id uuid.UUID) (*domain.Document, error)
}

// UploadDocumentInput is the DTO for document upload requests.
type UploadDocumentInput struct {
	OwnerID uuid.UUID
	File    multipart.File
	Header  *multipart.FileHeader
}

// UploadResult carries the created document plus, when the same owner already
// uploaded a byte-identical file, the id of that earlier document.
type UploadResult struct {
	Document    *domain.Document
	DuplicateOf *uuid.UUID
}

// DocumentService defines the document management contract.
type DocumentService interface {
	Upload(ctx context.Context, input UploadDocumentInput) (*UploadResult, error)
	GetByID(ctx context.Context, ownerID, docID uuid.UUID) (*domain.Document, *domain.AnalysisResult, error)
	List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]domain.Document, int, error)
	Progress(ctx context.Context, ownerID, docID uuid.UUID) (*domain.ProgressView, error)
	Events(ctx context.Context, ownerID, docID uuid.UUID, limit int) ([]domain.ProcessingEvent, error)
	Retry(ctx context.Context, ownerID, docID uuid.UUID) (*domain.Document, error)
	Delete(ctx context.Context, ownerID, docID uuid.UUID) error
	Export(ctx context.Context, ownerID, docID uuid.UUID, format export.Format) (*export.File, error)
}

type documentService struct {
	store    port.DocumentStore
	events   port.EventStore
	storage  port.ObjectStorage
	pipeline Pipeline
	s3Cfg    *config.S3Config
	pipeCfg  *config.PipelineConfig
}

// NewDocumentService creates a new DocumentService implementation.
func NewDocumentService(
	store port.DocumentStore,
	events port.EventStore,
	storage port.ObjectStorage,
	pipeline Pipeline,
	s3Cfg *config.S3Config,
	pipeCfg *config.PipelineConfig,
) DocumentService {
	return &documentService{
		store:    store,
		events:   events,
		storage:  storage,
		pipeline: pipeline,
		s3Cfg:    s3Cfg,
		pipeCfg:  pipeCfg,
	}
}

func (s *documentService) Upload(ctx context.Context, input UploadDocumentInput) (*UploadResult, error) {
	// Validate file extension
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Header.Filename), "."))
	fileType, ok := domain.AllowedExtensions[ext]
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	// Validate file size
	maxBytes := s.s3Cfg.MaxFileSizeMB * 1024 * 1024
	if input.Header.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	// Read first 512 bytes for magic-byte content type detection
	buf := make([]byte, 512)
	n, err := input.File.Read(buf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading file header: %w", err)
	}
	detectedType := http.DetectContentType(buf[:n])
	if _, validContent := domain.AllowedContentTypes[detectedType]; !validContent {
		return nil, domain.ErrUnsupportedFileType
	}

	// Checksum the full stream for duplicate detection, then rewind for upload
	if _, err := input.File.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking file: %w", err)
	}
	hasher := sha256.New()
	if _, err := io.Copy(hasher, input.File); err != nil {
		return nil, fmt.Errorf("hashing file: %w", err)
	}
	checksum := hex.EncodeToString(hasher.Sum(nil))
	if _, err := input.File.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking file: %w", err)
	}

	// Duplicate detection is advisory: the upload proceeds either way.
	var duplicateOf *uuid.UUID
	if existing, err := s.store.FindByChecksum(ctx, input.OwnerID, checksum); err == nil {
		duplicateOf = &existing.ID
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Printf("documentService.Upload: checksum lookup failed: %v", err)
	}

	docID := uuid.New()
	storageKey := docID.String() + filepath.Ext(input.Header.Filename)
	contentType := domain.AllowedFileTypes[fileType]

	log.Printf("documentService.Upload: uploading %s (%s, %d bytes) for owner %s",
		input.Header.Filename, contentType, input.Header.Size, input.OwnerID)

	if _, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3Cfg.Bucket,
		Key:         storageKey,
		Body:        input.File,
		ContentType: contentType,
		Size:        input.Header.Size,
	}); err != nil {
		log.Printf("documentService.Upload: storage upload failed for %s: %v", docID, err)
		return nil, domain.ErrUploadFailed
	}

	doc := &domain.Document{
		ID:              docID,
		OwnerID:         input.OwnerID,
		Filename:        input.Header.Filename,
		StorageLocation: storageKey,
		ContentType:     contentType,
		SizeBytes:       input.Header.Size,
		Checksum:        checksum,
		Status:          domain.StatusProcessing,
		Stage:           domain.StageQueued,
		Progress:        0,
	}
	if err := s.store.Create(ctx, doc); err != nil {
		log.Printf("documentService.Upload: failed to create document record: %v", err)
		if delErr := s.storage.Delete(ctx, s.s3Cfg.Bucket, storageKey); delErr != nil {
			log.Printf("documentService.Upload: failed to remove orphaned object %s: %v", storageKey, delErr)
		}
		return nil, fmt.Errorf("creating document: %w", err)
	}

	s.pipeline.Launch(doc)

	return &UploadResult{Document: doc, DuplicateOf: duplicateOf}, nil
}

// GetByID returns the document and, once processing is complete, its analysis
// result. A complete document with a missing result is returned without one.
func (s *documentService) GetByID(ctx context.Context, ownerID, docID uuid.UUID) (*domain.Document, *domain.AnalysisResult, error) {
	doc, err := s.store.GetForOwner(ctx, ownerID, docID)
	if err != nil {
		return nil, nil, err
	}
	if doc.Status != domain.StatusComplete {
		return doc, nil, nil
	}

	result, err := s.store.GetResult(ctx, docID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Printf("documentService.GetByID: document %s is complete but has no result", docID)
			return doc, nil, nil
		}
		return nil, nil, err
	}
	return doc, result, nil
}

func (s *documentService) List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]domain.Document, int, error) {
	return s.store.List(ctx, ownerID, offset, limit)
}

func (s *documentService) Progress(ctx context.Context, ownerID, docID uuid.UUID) (*domain.ProgressView, error) {
	doc, err := s.store.GetForOwner(ctx, ownerID, docID)
	if err != nil {
		return nil, err
	}
	return &domain.ProgressView{
		Status:       doc.Status,
		Stage:        doc.Stage,
		Progress:     doc.Progress,
		ErrorMessage: doc.ErrorMessage,
	}, nil
}

func (s *documentService) Events(ctx context.Context, ownerID, docID uuid.UUID, limit int) ([]domain.ProcessingEvent, error) {
	if _, err := s.store.GetForOwner(ctx, ownerID, docID); err != nil {
		return nil, err
	}
	return s.events.ListByDocument(ctx, docID, limit)
}

func (s *documentService) Retry(ctx context.Context, ownerID, docID uuid.UUID) (*domain.Document, error) {
	if _, err := s.store.GetForOwner(ctx, ownerID, docID); err != nil {
		return nil, err
	}
	return s.pipeline.Retry(ctx, docID)
}

// Delete removes a document and everything derived from it. Derived rows and
// the stored object are retried and ultimately tolerated; the primary record
// must go, otherwise the whole deletion reports failure.
func (s *documentService) Delete(ctx context.Context, ownerID, docID uuid.UUID) error {
	doc, err := s.store.GetForOwner(ctx, ownerID, docID)
	if err != nil {
		return err
	}

	attempts := s.pipeCfg.DeleteAttempts
	if attempts <= 0 {
		attempts = 3
	}
	baseDelay := s.pipeCfg.DeleteBaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	log.Printf("documentService.Delete: deleting document %s for owner %s", docID, ownerID)

	// Step 1: analysis result and processing events. Both deletes are
	// idempotent, so a retry re-running the pair is safe.
	s.deleteStep(ctx, "derived rows", attempts, baseDelay, true, func(ctx context.Context) error {
		if err := s.store.DeleteResult(ctx, docID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("deleting analysis result: %w", err)
		}
		if err := s.events.DeleteByDocument(ctx, docID); err != nil {
			return fmt.Errorf("deleting processing events: %w", err)
		}
		return nil
	})

	// Step 2: the stored object.
	if doc.StorageLocation != "" {
		s.deleteStep(ctx, "stored object", attempts, baseDelay, true, func(ctx context.Context) error {
			return s.storage.Delete(ctx, s.s3Cfg.Bucket, doc.StorageLocation)
		})
	}

	// Step 3: the primary record.
	if err := s.deleteStep(ctx, "document record", attempts, baseDelay, false, func(ctx context.Context) error {
		return s.store.Delete(ctx, docID)
	}); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrDeletionFailed, err)
	}
	return nil
}

// deleteStep runs fn up to attempts times with doubling backoff. When
// tolerate is set, exhausting all attempts logs the failure and reports
// success so the remaining steps still run.
func (s *documentService) deleteStep(ctx context.Context, step string, attempts int, baseDelay time.Duration, tolerate bool, fn func(context.Context) error) error {
	delay := baseDelay
	var lastErr error

loop:
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		log.Printf("documentService.Delete: %s failed (attempt %d/%d), retrying in %s: %v",
			step, attempt, attempts, delay, lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			break loop
		case <-timer.C:
		}
		delay *= 2
	}

	if tolerate {
		log.Printf("documentService.Delete: %s failed after %d attempts, continuing: %v", step, attempts, lastErr)
		return nil
	}
	return lastErr
}

func (s *documentService) Export(ctx context.Context, ownerID, docID uuid.UUID, format export.Format) (*export.File, error) {
	doc, err := s.store.GetForOwner(ctx, ownerID, docID)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.StatusComplete {
		return nil, domain.ErrNotComplete
	}
	result, err := s.store.GetResult(ctx, docID)
	if err != nil {
		return nil, err
	}
	return export.Markers(doc, result, format)
}
