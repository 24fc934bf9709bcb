package repair

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var (
	boolField   = regexp.MustCompile(`"(relevant|substantive)"\s*:\s*(true|false|True|False)`)
	numberField = regexp.MustCompile(`"(score|confidence)"\s*:\s*"?(-?\d+(?:\.\d+)?)`)
	stringField = regexp.MustCompile(`"(justification|substantive_reasoning|requirement_id)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	listField   = regexp.MustCompile(`(?s)"(claims|quotes|evidence)"\s*:\s*\[(.*?)(?:\]|$)`)
	spansField  = regexp.MustCompile(`(?s)"quote_spans"\s*:\s*\[(.*?)(?:\]\s*[,}]|$)`)
	spanObject  = regexp.MustCompile(`\{[^{}]*"quote"[^{}]*\}?`)
	quotedText  = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
)

// Default returns the conservative object used when nothing can be recovered
func Default() map[string]any {
	return map[string]any{
		"relevant":    false,
		"claims":      []any{},
		"quote_spans": []any{},
	}
}

// recoverFields extracts known keys one by one from text that would not
// parse, layered over Default. It never fails.
func recoverFields(text string) map[string]any {
	found := make(map[string]any)
	first := func(key string, value any) {
		if _, ok := found[key]; !ok {
			found[key] = value
		}
	}

	for _, m := range boolField.FindAllStringSubmatch(text, -1) {
		first(m[1], strings.EqualFold(m[2], "true"))
	}

	for _, m := range numberField.FindAllStringSubmatch(text, -1) {
		if f, err := strconv.ParseFloat(m[2], 64); err == nil {
			first(m[1], f)
		}
	}

	for _, m := range stringField.FindAllStringSubmatch(text, -1) {
		first(m[1], unquote(m[2]))
	}

	for _, m := range listField.FindAllStringSubmatch(text, -1) {
		items := []any{}
		for _, q := range quotedText.FindAllStringSubmatch(m[2], -1) {
			if s := unquote(q[1]); s != "" {
				items = append(items, s)
			}
		}
		first(m[1], items)
	}

	if m := spansField.FindStringSubmatch(text); m != nil {
		spans := []any{}
		for _, raw := range spanObject.FindAllString(m[1], -1) {
			if span, ok := decodeFirst(normalize(raw)); ok {
				spans = append(spans, span)
			}
		}
		found["quote_spans"] = spans
	}

	out := Default()
	for k, v := range found {
		out[k] = v
	}
	return out
}

// unquote decodes the body of a JSON string, falling back to the raw text
func unquote(body string) string {
	var s string
	if err := json.Unmarshal([]byte(`"`+body+`"`), &s); err != nil {
		return body
	}
	return s
}
