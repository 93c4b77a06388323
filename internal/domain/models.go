package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account that owns uploaded documents.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Document represents an uploaded lab report and the live state of its
// processing run. Status, Stage, Progress and ErrorMessage are mutated only
// by the pipeline that owns the run.
type Document struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	OwnerID         uuid.UUID        `db:"owner_id" json:"owner_id"`
	Filename        string           `db:"filename" json:"filename"`
	StorageLocation string           `db:"storage_location" json:"storage_location"`
	ContentType     string           `db:"content_type" json:"content_type"`
	SizeBytes       int64            `db:"size_bytes" json:"size_bytes"`
	Checksum        string           `db:"checksum" json:"checksum"`
	Status          ProcessingStatus `db:"status" json:"status"`
	Stage           ProcessingStage  `db:"stage" json:"stage"`
	Progress        int              `db:"progress" json:"progress"`
	RawText         *string          `db:"raw_text" json:"raw_text,omitempty"`
	ErrorMessage    *string          `db:"error_message" json:"error_message,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// ExtractedMarker is a single measurement pulled out of the report text.
// Value is kept as the raw string because lab values carry non-numeric
// decoration (trend arrows, unit suffixes, "<0.5" style bounds).
type ExtractedMarker struct {
	Name           string `db:"name" json:"name"`
	Value          string `db:"value" json:"value"`
	Unit           string `db:"unit" json:"unit,omitempty"`
	ReferenceRange string `db:"reference_range" json:"reference_range,omitempty"`
}

// AnalyzedMarker is an ExtractedMarker with its severity verdict attached.
type AnalyzedMarker struct {
	ExtractedMarker
	Status MarkerStatus `db:"status" json:"status"`
}

// ReportExtraction is the raw structured payload pulled from a report before
// range analysis: the markers as extracted plus document-level metadata.
type ReportExtraction struct {
	Markers      []ExtractedMarker `json:"markers"`
	DocumentType string            `json:"document_type"`
	TestDate     string            `json:"test_date,omitempty"`
}

// AnalysisResult is the final output of a completed run. Exactly one live
// result exists per document; reruns replace it atomically.
type AnalysisResult struct {
	DocumentID      uuid.UUID        `db:"document_id" json:"document_id"`
	Markers         []AnalyzedMarker `json:"markers"`
	DocumentType    string           `db:"document_type" json:"document_type"`
	TestDate        string           `db:"test_date" json:"test_date,omitempty"`
	Summary         string           `db:"summary" json:"summary"`
	KeyFindings     []string         `json:"key_findings"`
	Recommendations []string         `json:"recommendations"`
	Disclaimer      string           `db:"disclaimer" json:"disclaimer"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// ProcessingEvent is one entry in a document's processing audit trail.
type ProcessingEvent struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	DocumentID uuid.UUID       `db:"document_id" json:"document_id"`
	Stage      ProcessingStage `db:"stage" json:"stage"`
	Progress   int             `db:"progress" json:"progress"`
	Message    string          `db:"message" json:"message"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// ProgressView is the polling read of a run's live state.
type ProgressView struct {
	Status       ProcessingStatus `json:"status"`
	Stage        ProcessingStage  `json:"stage"`
	Progress     int              `json:"progress"`
	ErrorMessage *string          `json:"error_message,omitempty"`
}

// StatsOverview aggregates dashboard counts across a user's documents.
type StatsOverview struct {
	TotalDocuments  int                      `json:"total_documents"`
	ByStatus        map[ProcessingStatus]int `json:"by_status"`
	MarkersByStatus map[MarkerStatus]int     `json:"markers_by_status"`
	RecentUploads   []Document               `json:"recent_uploads"`
}
