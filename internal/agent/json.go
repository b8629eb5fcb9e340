package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoJSON means the text contains no opening brace.
	ErrNoJSON = errors.New("agent did not return valid JSON")
	// ErrIncompleteJSON means the first object is never closed.
	ErrIncompleteJSON = errors.New("agent did not return complete JSON")
	// ErrInvalidJSON means a balanced object was found but does not parse.
	ErrInvalidJSON = errors.New("failed parsing JSON from agent output")
)

// IsJSONError reports whether err came from recovering JSON out of agent text.
func IsJSONError(err error) bool {
	return errors.Is(err, ErrNoJSON) || errors.Is(err, ErrIncompleteJSON) || errors.Is(err, ErrInvalidJSON)
}

// ExtractJSON returns the first top-level object in text. It starts at the first '{' and
// counts brace depth until it returns to zero; braces inside string literals are counted too.
func ExtractJSON(text string) (json.RawMessage, error) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return nil, ErrNoJSON
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				var probe any
				if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
				}
				return json.RawMessage(candidate), nil
			}
		}
	}
	return nil, ErrIncompleteJSON
}

// DecodeJSON parses text as a JSON object, falling back to ExtractJSON when the text carries
// prose around the object.
func DecodeJSON(text string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &out); err == nil && out != nil {
		return out, nil
	}

	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return out, nil
}
