package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyOrNoJSON is returned when the text holds no JSON object at all.
// It is structural and not worth retrying with the same input.
var ErrEmptyOrNoJSON = errors.New("empty or no JSON object in response")

// Parse recovers the first JSON object from free-form model output.
//
// Preference order: the brace-matched substring parsed as-is, then a
// jsonrepair rewrite of it, then field-level recovery of known keys on top
// of a conservative default. A repaired object carrying none of the known
// keys is also layered over the default. Parse only fails when text
// contains no '{'.
func Parse(text string) (map[string]any, error) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return nil, ErrEmptyOrNoJSON
	}

	raw := text[start:]
	cut, closed := balance(raw)
	payload := escapeControlInStrings(cut)

	if obj, ok := decodeFirst(payload); ok {
		if closed {
			return obj, nil
		}
		return withDefaults(obj), nil
	}

	// jsonrepair closes truncated input itself and needs the original tail
	// to tell an unfinished key from a finished one
	input := payload
	if !closed {
		input = raw
	}
	if obj, ok := decodeFirst(normalize(input)); ok {
		return withDefaults(obj), nil
	}

	return recoverFields(payload), nil
}

// decodeFirst decodes the leading JSON value and ignores trailing content
func decodeFirst(payload string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(payload))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// balance cuts s at the brace closing its first object and reports true.
// When the object is truncated, the open string and every open bracket are
// closed and balance reports false.
func balance(s string) (string, bool) {
	var (
		stack    []byte
		inString bool
		escape   bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				return s[:i+1], true
			}
		}
	}

	if escape {
		// A dangling backslash would escape the closing quote
		s = s[:len(s)-1]
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String(), false
}

// escapeControlInStrings escapes raw control characters inside string
// literals so literal newlines never break parsing.
func escapeControlInStrings(s string) string {
	var (
		b        strings.Builder
		inString bool
		escape   bool
	)
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escape:
			escape = false
			if c < 0x20 {
				// "\<newline>" is not a JSON escape
				writeControl(&b, c)
				continue
			}
			b.WriteByte('\\')
			b.WriteByte(c)
		case inString && c == '\\':
			escape = true
		case c == '"':
			inString = !inString
			b.WriteByte(c)
		case inString && c < 0x20:
			writeControl(&b, c)
		default:
			b.WriteByte(c)
		}
	}
	if escape {
		b.WriteByte('\\')
	}
	return b.String()
}

func writeControl(b *strings.Builder, c byte) {
	switch c {
	case '\n':
		b.WriteString(`\n`)
	case '\r':
		b.WriteString(`\r`)
	case '\t':
		b.WriteString(`\t`)
	default:
		fmt.Fprintf(b, `\u%04x`, c)
	}
}
