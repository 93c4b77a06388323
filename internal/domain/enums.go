package domain

// FileType represents the allowed file types for upload.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeJPG FileType = "jpg"
	FileTypePNG FileType = "png"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF: "application/pdf",
	FileTypeJPG: "image/jpeg",
	FileTypePNG: "image/png",
}

// AllowedContentTypes maps MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/png":       FileTypePNG,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
}

// ProcessingStatus is the top-level lifecycle state of a document.
type ProcessingStatus string

const (
	StatusProcessing ProcessingStatus = "processing"
	StatusComplete   ProcessingStatus = "complete"
	StatusError      ProcessingStatus = "error"
)

// ProcessingStage names the pipeline phase a document run is in. Stage is
// only meaningful while the document status is StatusProcessing.
type ProcessingStage string

const (
	StageQueued        ProcessingStage = "queued"
	StageOCRExtraction ProcessingStage = "ocr_extraction"
	StageAIAnalysis    ProcessingStage = "ai_analysis"
	StageSavingResults ProcessingStage = "saving_results"
	StageComplete      ProcessingStage = "complete"
)

// MarkerStatus is the severity verdict for a single health marker value
// relative to its reference range.
type MarkerStatus string

const (
	MarkerDangerLow   MarkerStatus = "danger_low"
	MarkerWarningLow  MarkerStatus = "warning_low"
	MarkerNormal      MarkerStatus = "normal"
	MarkerWarningHigh MarkerStatus = "warning_high"
	MarkerDangerHigh  MarkerStatus = "danger_high"
	MarkerUnknown     MarkerStatus = "unknown"
)

// MarkerStatuses lists every severity value, used for stats aggregation.
var MarkerStatuses = []MarkerStatus{
	MarkerDangerLow,
	MarkerWarningLow,
	MarkerNormal,
	MarkerWarningHigh,
	MarkerDangerHigh,
	MarkerUnknown,
}

// ValidationRuleType categorizes extraction validation rules.
type ValidationRuleType string

const (
	ValidationRuleRequired ValidationRuleType = "required"
	ValidationRuleFormat   ValidationRuleType = "format"
	ValidationRuleLogical  ValidationRuleType = "logical"
)

// ValidationSeverity controls what a failed rule does to a marker: error
// drops it from the result, warning keeps it and logs a diagnostic.
type ValidationSeverity string

const (
	ValidationSeverityError   ValidationSeverity = "error"
	ValidationSeverityWarning ValidationSeverity = "warning"
)
