package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"labsight/internal/domain"
	"labsight/internal/export"
	"labsight/internal/service"
)

// MockDocumentService is a mock implementation of service.DocumentService.
type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, input service.UploadDocumentInput) (*service.UploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockDocumentService) GetByID(ctx context.Context, ownerID, docID uuid.UUID) (*domain.Document, *domain.AnalysisResult, error) {
	args := m.Called(ctx, ownerID, docID)
	var doc *domain.Document
	if args.Get(0) != nil {
		doc = args.Get(0).(*domain.Document)
	}
	var result *domain.AnalysisResult
	if args.Get(1) != nil {
		result = args.Get(1).(*domain.AnalysisResult)
	}
	return doc, result, args.Error(2)
}

func (m *MockDocumentService) List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]domain.Document, int, error) {
	args := m.Called(ctx, ownerID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Document), args.Int(1), args.Error(2)
}

func (m *MockDocumentService) Progress(ctx context.Context, ownerID, docID uuid.UUID) (*domain.ProgressView, error) {
	args := m.Called(ctx, ownerID, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProgressView), args.Error(1)
}

func (m *MockDocumentService) Events(ctx context.Context, ownerID, docID uuid.UUID, limit int) ([]domain.ProcessingEvent, error) {
	args := m.Called(ctx, ownerID, docID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProcessingEvent), args.Error(1)
}

func (m *MockDocumentService) Retry(ctx context.Context, ownerID, docID uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, ownerID, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, ownerID, docID uuid.UUID) error {
	args := m.Called(ctx, ownerID, docID)
	return args.Error(0)
}

func (m *MockDocumentService) Export(ctx context.Context, ownerID, docID uuid.UUID, format export.Format) (*export.File, error) {
	args := m.Called(ctx, ownerID, docID, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.File), args.Error(1)
}
