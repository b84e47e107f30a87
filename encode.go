package jsonedit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const canonicalIndent = "  "

// Encode serializes v as JSON indented with indent, without HTML escaping.
// An empty indent produces compact output.
func Encode(v any, indent string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("jsonedit: failed to encode JSON: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Decode parses a complete JSON document, keeping numbers as json.Number.
func Decode(text string) (any, error) {
	v, err := decodeStrict(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDocument, err)
	}
	return v, nil
}

// textOf is Encode with the canonical indent for values already known to be
// JSON-representable.
func textOf(v any) string {
	s, err := Encode(v, canonicalIndent)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}

var errTrailingData = errors.New("unexpected data after top-level value")

func decodeStrict(text string) (any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty input")
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errTrailingData
		}
		return nil, err
	}
	return v, nil
}
