package util

import (
	"bytes"
	"encoding/json"
	"strings"
)

// NormalizeAnswer converts a submitted answer payload to its canonical
// string form: a JSON string becomes its unquoted value, anything else
// is compacted JSON. Returns ErrAnswerEmpty for null, "", [] and
// whitespace-only values.
func NormalizeAnswer(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", ErrAnswerEmpty
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", ErrAnswerEmpty
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", ErrAnswerEmpty
		}
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", ErrAnswerEmpty
	}
	out := buf.String()
	if out == "[]" || out == "{}" {
		return "", ErrAnswerEmpty
	}
	return out, nil
}

// AnswersEqual compares a normalized submission to the stored correct
// answer, ignoring surrounding whitespace.
func AnswersEqual(submitted, correct string) bool {
	return strings.TrimSpace(submitted) == strings.TrimSpace(correct)
}
