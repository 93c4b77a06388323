// Package marker classifies health marker values against the free-text
// reference ranges printed on lab reports. Classification is pure and
// deterministic: the same (value, range) pair always yields the same
// severity, and anything the parser cannot justify degrades to
// MarkerUnknown rather than guessing.
package marker

import (
	"regexp"
	"strconv"
	"strings"

	"labsight/internal/domain"
)

// DefaultWarningMargin separates warning from danger severity as a fraction
// of the reference span (bounded ranges) or of the bound itself (one-sided
// ranges). It is a policy value, not a clinical constant.
const DefaultWarningMargin = 0.20

var (
	// numericTokenRe pulls the first floating-point token out of a raw
	// value string, skipping unit suffixes and trend glyphs around it.
	numericTokenRe = regexp.MustCompile(`[-+]?\d*\.\d+|\d+`)

	boundedRangeRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*-\s*(\d+(?:\.\d+)?)`)
	upperBoundRe   = regexp.MustCompile(`<=\s*(\d+(?:\.\d+)?)|<\s*(\d+(?:\.\d+)?)`)
	lowerBoundRe   = regexp.MustCompile(`>=\s*(\d+(?:\.\d+)?)|>\s*(\d+(?:\.\d+)?)`)
)

// Classifier applies the severity policy to marker values.
type Classifier struct {
	margin float64
}

// NewClassifier returns a Classifier with the given warning margin.
// Non-positive margins fall back to DefaultWarningMargin.
func NewClassifier(margin float64) *Classifier {
	if margin <= 0 {
		margin = DefaultWarningMargin
	}
	return &Classifier{margin: margin}
}

// Default is the classifier with the stock warning margin.
var Default = NewClassifier(DefaultWarningMargin)

// Classify maps a raw value string and a free-text reference range to a
// severity. Values inside the range are normal; outside it, the distance
// from the nearest bound decides warning versus danger. OCR noise, missing
// ranges and unparseable values all yield MarkerUnknown; Classify never
// panics.
func Classify(value, referenceRange string) domain.MarkerStatus {
	return Default.Classify(value, referenceRange)
}

// Classify implements the severity scale for a single marker.
func (c *Classifier) Classify(value, referenceRange string) domain.MarkerStatus {
	v, ok := parseValue(value)
	if !ok {
		return domain.MarkerUnknown
	}

	rng := strings.ReplaceAll(strings.TrimSpace(referenceRange), ",", ".")
	if rng == "" {
		return domain.MarkerUnknown
	}

	if m := boundedRangeRe.FindStringSubmatch(rng); m != nil {
		low, errLow := strconv.ParseFloat(m[1], 64)
		high, errHigh := strconv.ParseFloat(m[2], 64)
		if errLow != nil || errHigh != nil {
			return domain.MarkerUnknown
		}
		return c.classifyBounded(v, low, high)
	}

	if m := upperBoundRe.FindStringSubmatch(rng); m != nil {
		limit, ok := submatchFloat(m)
		if !ok {
			return domain.MarkerUnknown
		}
		return c.classifyUpperBound(v, limit)
	}

	if m := lowerBoundRe.FindStringSubmatch(rng); m != nil {
		limit, ok := submatchFloat(m)
		if !ok {
			return domain.MarkerUnknown
		}
		return c.classifyLowerBound(v, limit)
	}

	return domain.MarkerUnknown
}

// classifyBounded handles "LOW - HIGH" ranges. The interval is inclusive on
// both ends. A degenerate or inverted span gets a zero margin so the
// warning band cannot go negative.
func (c *Classifier) classifyBounded(v, low, high float64) domain.MarkerStatus {
	if v >= low && v <= high {
		return domain.MarkerNormal
	}

	span := high - low
	margin := 0.0
	if span > 0 {
		margin = span * c.margin
	}

	if v < low {
		if low-v <= margin {
			return domain.MarkerWarningLow
		}
		return domain.MarkerDangerLow
	}
	if v-high <= margin {
		return domain.MarkerWarningHigh
	}
	return domain.MarkerDangerHigh
}

// classifyUpperBound handles "< X" and "<= X" ranges. The comparison is
// strict either way; a value sitting exactly on the bound is already a
// warning.
func (c *Classifier) classifyUpperBound(v, limit float64) domain.MarkerStatus {
	if v < limit {
		return domain.MarkerNormal
	}
	margin := abs(limit) * c.margin
	if v-limit <= margin {
		return domain.MarkerWarningHigh
	}
	return domain.MarkerDangerHigh
}

// classifyLowerBound handles "> X" and ">= X" ranges, mirroring
// classifyUpperBound on the low side.
func (c *Classifier) classifyLowerBound(v, limit float64) domain.MarkerStatus {
	if v > limit {
		return domain.MarkerNormal
	}
	margin := abs(limit) * c.margin
	if limit-v <= margin {
		return domain.MarkerWarningLow
	}
	return domain.MarkerDangerLow
}

// parseValue extracts the first numeric token from a raw value string.
// Decimal commas are normalized to points first so "4,2" reads as 4.2.
func parseValue(raw string) (float64, bool) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	token := numericTokenRe.FindString(normalized)
	if token == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// submatchFloat returns whichever alternative group of a one-sided range
// pattern matched ("<=" is tried before "<", ">=" before ">").
func submatchFloat(m []string) (float64, bool) {
	token := m[1]
	if token == "" {
		token = m[2]
	}
	if token == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
