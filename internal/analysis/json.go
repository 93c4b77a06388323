package analysis

import (
	"encoding/json"
	"log"
	"regexp"
)

// controlCharRe matches the bytes that break encoding/json when a model
// copies them out of OCR text: C0 controls except \t \n \r, plus DEL.
var controlCharRe = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")

// CleanJSONString strips invalid control characters from a JSON payload.
func CleanJSONString(s string) string {
	if s == "" {
		return s
	}
	return controlCharRe.ReplaceAllString(s, "")
}

// SafeUnmarshal parses a JSON payload into v, retrying once on a cleaned
// copy when the raw form fails to decode.
func SafeUnmarshal(data string, v any) error {
	if err := json.Unmarshal([]byte(data), v); err == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(CleanJSONString(data)), v); err != nil {
		snippet := data
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		log.Printf("analysis: JSON parse failed even after cleaning: %v (payload starts %q)", err, snippet)
		return err
	}
	return nil
}

// flexString decodes from either a JSON string or a bare number; models
// return marker values both ways.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}
