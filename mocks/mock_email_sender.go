package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEmailSender is a mock implementation of port.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendAnalysisComplete(ctx context.Context, toEmail, toName, filename, documentID string) error {
	args := m.Called(ctx, toEmail, toName, filename, documentID)
	return args.Error(0)
}

func (m *MockEmailSender) SendAnalysisFailed(ctx context.Context, toEmail, toName, filename, reason string) error {
	args := m.Called(ctx, toEmail, toName, filename, reason)
	return args.Error(0)
}
