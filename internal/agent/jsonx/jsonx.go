// Package jsonx extracts JSON objects from completion-service output, which
// routinely wraps them in markdown fences or surrounding prose.
package jsonx

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoObject is returned when no parseable JSON object is found.
var ErrNoObject = errors.New("no JSON object in text")

// ExtractObject finds the first JSON object in text and unmarshals it into v.
// It tries, in order: a ```json fence, a bare ``` fence, and a balanced-brace
// scan over the raw text.
func ExtractObject(text string, v any) error {
	for _, candidate := range candidates(text) {
		if json.Unmarshal([]byte(candidate), v) == nil {
			return nil
		}
	}
	return ErrNoObject
}

func candidates(text string) []string {
	var out []string
	if fenced, ok := fencedBlock(text, "```json"); ok {
		out = append(out, fenced)
	}
	if fenced, ok := fencedBlock(text, "```"); ok {
		out = append(out, fenced)
	}
	if braced, ok := bracedObject(text); ok {
		out = append(out, braced)
	}
	return out
}

func fencedBlock(text, fence string) (string, bool) {
	start := strings.Index(text, fence)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// bracedObject scans for the first balanced {...} span, ignoring braces
// inside string literals.
func bracedObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}
