package jsonedit

import (
	"encoding/json"
	"errors"
)

// ParseField parses edited text as JSON. Text that is not valid JSON becomes a
// JSON string holding the raw text, so the result is never an error.
func ParseField(text string) any {
	v, err := decodeStrict(text)
	if err != nil {
		return text
	}
	return v
}

// ParseFields applies ParseField to every buffer independently and returns
// an object with exactly the given keys.
func ParseFields(texts map[string]string) map[string]any {
	out := make(map[string]any, len(texts))
	for k, t := range texts {
		out[k] = ParseField(t)
	}
	return out
}

// ParseValue parses text as a single JSON value with no fallback.
func ParseValue(text string) (any, error) {
	v, err := decodeStrict(text)
	if err != nil {
		pe := &ParseError{Err: err}
		var se *json.SyntaxError
		if errors.As(err, &se) {
			pe.Offset = se.Offset
		}
		return nil, pe
	}
	return v, nil
}

// Seed returns the text a field buffer starts with for v, such that
// ParseField(Seed(v)) yields v again. Strings are shown raw unless the raw
// text would parse as some other JSON value.
func Seed(v any) string {
	if s, ok := v.(string); ok {
		if back, ok := ParseField(s).(string); ok && back == s {
			return s
		}
	}
	return textOf(v)
}
