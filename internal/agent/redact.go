package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

const imagePrefix = "data:image"

// RedactForLog walks raw as a JSON value and replaces every string value
// starting with "data:image" by "<image len=N>" (§4.4 logging hygiene).
// If raw does not parse as JSON, it is treated as an opaque string and
// checked directly — tool params/results are not always JSON objects.
func RedactForLog(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return redactString(string(raw))
	}

	redacted := redactValue(v)
	out, err := json.Marshal(redacted)
	if err != nil {
		return redactString(string(raw))
	}
	return string(out)
}

func redactValue(v any) any {
	switch t := v.(type) {
	case string:
		return redactString(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = redactValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = redactValue(val)
		}
		return out
	default:
		return v
	}
}

func redactString(s string) string {
	if strings.HasPrefix(s, imagePrefix) {
		return fmt.Sprintf("<image len=%d>", len(s))
	}
	return s
}
