package dispatcher

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultAnchor is the marker that precedes the payload in well-formed model
// output.
const DefaultAnchor = "输入："

// ResponseValidator decides whether raw endpoint output carries a usable
// structured payload.
type ResponseValidator interface {
	Validate(raw string) (json.RawMessage, error)
}

// JSONValidator accepts a response that is a JSON object, or that contains one
// which ExtractJSON can locate.
type JSONValidator struct {
	Anchor string
}

func NewJSONValidator(anchor string) *JSONValidator {
	return &JSONValidator{Anchor: anchor}
}

func (v *JSONValidator) Validate(raw string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	fragment, err := ExtractJSON(raw, v.Anchor)
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(fragment)) {
		return nil, fmt.Errorf("%w: extracted fragment is not valid JSON", ErrInvalidResponse)
	}

	return json.RawMessage(fragment), nil
}

// ExtractJSON finds the first balanced JSON object in raw. The search starts
// right after anchor when raw contains it, and falls back to the start of raw
// when nothing opens after the anchor. Braces inside string literals do not
// count, and a backslash escapes the next character inside a string.
func ExtractJSON(raw, anchor string) (string, error) {
	start := 0
	if anchor != "" {
		if idx := strings.Index(raw, anchor); idx >= 0 {
			start = idx + len(anchor)
		}
	}

	open := strings.IndexByte(raw[start:], '{')
	if open >= 0 {
		open += start
	} else if open = strings.IndexByte(raw, '{'); open < 0 {
		return "", fmt.Errorf("%w: %w", ErrInvalidResponse, ErrNoJSONObject)
	}

	depth := 0
	inString := false
	escaped := false
	// The markers are ASCII, so walking bytes is safe on UTF-8 input.
	for i := open; i < len(raw); i++ {
		ch := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[open : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("%w: %w", ErrInvalidResponse, ErrUnterminatedJSON)
}
