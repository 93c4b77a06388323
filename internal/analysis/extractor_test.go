package analysis_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labsight/internal/analysis"
	"labsight/internal/domain"
	"labsight/internal/port"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
	last  port.ChatRequest
}

func (s *stubCompleter) Name() string { return "stub" }

func (s *stubCompleter) Complete(_ context.Context, req port.ChatRequest) (string, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestExtractorAgent_Extract(t *testing.T) {
	completer := &stubCompleter{reply: `{
		"markers": [
			{"marker": "Hemoglobin", "value": "16.1", "unit": "g/dL", "reference_range": "13.0 - 17.5"},
			{"marker": "Glucose", "value": "126", "unit": "mg/dL", "reference_range": "70 - 100"}
		],
		"document_type": "Blood Test Report",
		"test_date": "07/15/2024"
	}`}
	agent := analysis.NewExtractorAgent(completer, nil, nil)

	out, err := agent.Extract(context.Background(), "HEMOGLOBIN 16.1 g/dL 13.0-17.5")

	require.NoError(t, err)
	assert.Equal(t, "Blood Test Report", out.DocumentType)
	assert.Equal(t, "2024-07-15", out.TestDate)
	require.Len(t, out.Markers, 2)
	assert.Equal(t, "Hemoglobin", out.Markers[0].Name)
	assert.Equal(t, domain.MarkerNormal, out.Markers[0].Status)
	assert.Equal(t, "Glucose", out.Markers[1].Name)
	assert.Equal(t, domain.MarkerDangerHigh, out.Markers[1].Status)

	assert.True(t, completer.last.ForceJSON)
	assert.InDelta(t, 0.1, completer.last.Temperature, 1e-9)
	assert.Contains(t, completer.last.System, "extract health markers")
	assert.Contains(t, completer.last.User, "Extract data from this text:")
	assert.Contains(t, completer.last.User, "HEMOGLOBIN 16.1")
}

func TestExtractorAgent_Extract_NumericValueCoerced(t *testing.T) {
	completer := &stubCompleter{reply: `{
		"markers": [{"marker": "WBC", "value": 6.8, "unit": "10^3/mm^3", "reference_range": "4.5 - 11.0"}],
		"document_type": "CBC"
	}`}
	agent := analysis.NewExtractorAgent(completer, nil, nil)

	out, err := agent.Extract(context.Background(), "text")

	require.NoError(t, err)
	require.Len(t, out.Markers, 1)
	assert.Equal(t, "6.8", out.Markers[0].Value)
	assert.Equal(t, domain.MarkerNormal, out.Markers[0].Status)
}

func TestExtractorAgent_Extract_CleansControlCharacters(t *testing.T) {
	completer := &stubCompleter{reply: "{\"markers\": [], \"document_type\": \"Blood\x01 Test\"}"}
	agent := analysis.NewExtractorAgent(completer, nil, nil)

	out, err := agent.Extract(context.Background(), "text")

	require.NoError(t, err)
	assert.Equal(t, "Blood Test", out.DocumentType)
	assert.Empty(t, out.Markers)
}

func TestExtractorAgent_Extract_DropsMarkersFailingValidation(t *testing.T) {
	completer := &stubCompleter{reply: `{
		"markers": [
			{"marker": "Hemoglobin", "value": "14.2", "unit": "g/dL", "reference_range": "13.0 - 17.5"},
			{"marker": "", "value": "5.0", "reference_range": "1 - 10"}
		],
		"document_type": "Blood Test Report"
	}`}
	agent := analysis.NewExtractorAgent(completer, nil, nil)

	out, err := agent.Extract(context.Background(), "text")

	require.NoError(t, err)
	require.Len(t, out.Markers, 1)
	assert.Equal(t, "Hemoglobin", out.Markers[0].Name)
}

func TestExtractorAgent_Extract_SchemaRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"no markers key", `{"document_type": "Blood Test Report"}`},
		{"no document type", `{"markers": []}`},
		{"marker without value", `{"markers": [{"marker": "Hemoglobin"}], "document_type": "x"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			agent := analysis.NewExtractorAgent(&stubCompleter{reply: tc.reply}, nil, nil)

			_, err := agent.Extract(context.Background(), "text")

			require.Error(t, err)
			assert.Contains(t, err.Error(), "schema")
		})
	}
}

func TestExtractorAgent_Extract_UnparseableResponse(t *testing.T) {
	agent := analysis.NewExtractorAgent(&stubCompleter{reply: "I cannot help with that."}, nil, nil)

	_, err := agent.Extract(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing extraction response")
}

func TestExtractorAgent_Extract_CompleterError(t *testing.T) {
	agent := analysis.NewExtractorAgent(&stubCompleter{err: errors.New("boom")}, nil, nil)

	_, err := agent.Extract(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction call")
}

func TestNormalizeTestDate(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"us format", "07/15/2024", "2024-07-15"},
		{"already iso", "2024-07-15", "2024-07-15"},
		{"free text passthrough", "July 2024", "July 2024"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, analysis.NormalizeTestDate(tc.in))
		})
	}
}
