package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Normalize recovers a structured record from free-text model output and
// unmarshals it into dst. It tolerates surrounding prose and markdown code
// fences: the text is trimmed, fence lines are stripped, and parsing is
// attempted on the first-`{`-to-last-`}` span. A non-nil error means the
// caller should fall back to its stage-specific default record; Normalize
// itself never panics.
func Normalize(text string, dst any) error {
	cleaned := ExtractJSON(text)
	if cleaned == "" {
		return fmt.Errorf("normalize: no JSON object found")
	}
	if err := json.Unmarshal([]byte(cleaned), dst); err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	return nil
}

// ExtractJSON reduces free text to the JSON object span it most likely
// contains: surrounding whitespace is trimmed, a leading code fence (with
// optional language tag) and a bare trailing fence are removed, and the
// result is cut down to the first `{` through the last `}`. Returns "" when
// no object span exists.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		lines = lines[1:]
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
			lines = lines[:len(lines)-1]
		}
		text = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// truncate shortens s to at most n bytes, used when copying raw model output
// into fallback records.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// clamp01 bounds scores and confidences to the [0, 1] range the schemas
// require, whatever the model produced.
func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
