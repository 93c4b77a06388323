// Package export renders a document's analyzed markers as downloadable
// files for the export endpoint.
package export

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"labsight/internal/domain"
)

// Format selects the export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a query-string value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// File is a rendered export ready for a Content-Disposition download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Markers renders the result's markers in the requested format.
func Markers(doc *domain.Document, result *domain.AnalysisResult, format Format) (*File, error) {
	switch format {
	case FormatCSV:
		data, err := markersCSV(result)
		if err != nil {
			return nil, err
		}
		return &File{
			Name:        BuildFilename(doc.Filename, FormatCSV),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case FormatXLSX:
		data, err := markersXLSX(result)
		if err != nil {
			return nil, err
		}
		return &File{
			Name:        BuildFilename(doc.Filename, FormatXLSX),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans an uploaded filename for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for the Content-Disposition
// header. Format: {sanitized_report_name}_markers_{YYYY-MM-DD}.{ext}
func BuildFilename(reportFilename string, format Format) string {
	base := strings.TrimSuffix(reportFilename, filepath.Ext(reportFilename))
	sanitized := SanitizeFilename(base)
	if sanitized == "" {
		sanitized = "report"
	}
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_markers_%s.%s", sanitized, date, format)
}
