package export

import (
	"bytes"
	"encoding/csv"

	"labsight/internal/domain"
)

// BOM is the UTF-8 byte-order mark, prepended for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the marker export header row.
var columns = []string{
	"Marker",
	"Value",
	"Unit",
	"Reference Range",
	"Status",
}

// markersCSV renders the result's markers as a BOM-prefixed CSV document.
func markersCSV(result *domain.AnalysisResult) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	for i := range result.Markers {
		if err := w.Write(markerToRow(&result.Markers[i])); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// markerToRow converts a single analyzed marker to a CSV row.
func markerToRow(m *domain.AnalyzedMarker) []string {
	return []string{
		m.Name,
		m.Value,
		m.Unit,
		m.ReferenceRange,
		string(m.Status),
	}
}
