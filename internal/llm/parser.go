package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoJSON = errors.New("no JSON object in model output")

// ParseJSONObject decodes a model reply into an object. It tries the whole
// reply, then the outermost {...} span, then that span with single quotes
// swapped for double quotes.
func ParseJSONObject(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out, nil
	}

	candidate := extractJSON(text)
	if candidate == "" {
		return nil, ErrNoJSON
	}
	if err := json.Unmarshal([]byte(candidate), &out); err == nil {
		return out, nil
	}

	relaxed := strings.ReplaceAll(candidate, "'", `"`)
	if err := json.Unmarshal([]byte(relaxed), &out); err == nil {
		return out, nil
	}
	return nil, ErrNoJSON
}

func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start == -1 || end == -1 || end <= start {
		return ""
	}

	return text[start : end+1]
}
