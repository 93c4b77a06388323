package report

// Result is the outcome of one rule applied to an extraction.
type Result struct {
	Passed        bool
	FieldPath     string
	ExpectedValue string
	ActualValue   string
	Message       string
	// MarkerIndex is the index of the marker the result refers to, or -1 for
	// report-level results.
	MarkerIndex int
}
