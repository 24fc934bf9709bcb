package validate

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/cardaudit/internal/model"
)

var (
	// ErrMissingField is returned when a required key is absent or null
	ErrMissingField = errors.New("missing field")

	// ErrScoreOutOfRange is returned for scores outside {0,1,2,3} or non-integral scores
	ErrScoreOutOfRange = errors.New("score out of range")

	// ErrWrongType is returned when a field cannot be read as its expected type
	ErrWrongType = errors.New("wrong field type")
)

// noOffset marks a span whose offsets were not supplied
const noOffset = -1

// Extraction converts a repaired Stage A payload into a ClaimExtraction.
// Any "quotes" list in the payload is ignored: quotes are only ever
// derived from spans verified against the chunk.
func Extraction(obj map[string]any) (model.ClaimExtraction, error) {
	var ext model.ClaimExtraction

	relevant, err := optionalBool(obj, "relevant")
	if err != nil {
		return ext, err
	}
	ext.Relevant = relevant

	claims, err := stringList(obj, "claims")
	if err != nil {
		return ext, err
	}
	ext.Claims = claims

	spans, err := quoteSpans(obj["quote_spans"])
	if err != nil {
		return ext, err
	}
	ext.QuoteSpans = spans

	return ext, nil
}

// Score converts a repaired Stage B payload into a RequirementScore for reqID.
// The requirement id from the payload is never trusted.
func Score(obj map[string]any, reqID string) (model.RequirementScore, error) {
	rs := model.RequirementScore{RequirementID: reqID}

	level, err := ScoreLevel(obj["score"])
	if err != nil {
		return rs, err
	}
	rs.Score = level

	justification, ok := obj["justification"].(string)
	if !ok || strings.TrimSpace(justification) == "" {
		return rs, fmt.Errorf("%w: justification", ErrMissingField)
	}
	rs.Justification = strings.TrimSpace(justification)

	confidence, err := number(obj["confidence"])
	if err != nil {
		return rs, fmt.Errorf("confidence: %w", err)
	}
	rs.Confidence = math.Min(1, math.Max(0, confidence))

	evidence, err := stringList(obj, "evidence")
	if err != nil {
		return rs, err
	}
	rs.Evidence = evidence

	if v, present := obj["substantive"]; present && v != nil {
		b, err := toBool(v)
		if err != nil {
			return rs, fmt.Errorf("substantive: %w", err)
		}
		rs.Substantive = &b
	}
	if s, ok := obj["substantive_reasoning"].(string); ok {
		rs.SubstantiveReasoning = strings.TrimSpace(s)
	}

	return rs, nil
}

// ScoreLevel coerces a raw score into the 4-level enum. Values outside the
// range are rejected, never clamped.
func ScoreLevel(v any) (model.ScoreLevel, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: score", ErrMissingField)
	}

	if s, ok := v.(string); ok {
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case "ABSENT":
			return model.ScoreAbsent, nil
		case "MENTIONED":
			return model.ScoreMentioned, nil
		case "PARTIAL":
			return model.ScorePartial, nil
		case "THOROUGH":
			return model.ScoreThorough, nil
		}
	}

	f, err := number(v)
	if err != nil {
		return 0, fmt.Errorf("score: %w", err)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrScoreOutOfRange, f)
	}
	if f < float64(model.ScoreAbsent) || f > float64(model.MaxScore) {
		return 0, fmt.Errorf("%w: %v", ErrScoreOutOfRange, f)
	}
	return model.ScoreLevel(int(f)), nil
}

func number(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, ErrMissingField
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("%w: %v", ErrWrongType, n)
		}
		return n, nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrWrongType, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %T is not a number", ErrWrongType, v)
	}
}

func offset(v any) int {
	f, err := number(v)
	if err != nil || f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return noOffset
	}
	return int(f)
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrWrongType, b)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("%w: %T is not a boolean", ErrWrongType, v)
	}
}

func optionalBool(obj map[string]any, key string) (bool, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return false, nil
	}
	b, err := toBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// stringList reads a list of strings. A lone string becomes a one-item list,
// non-string items are skipped and a missing key yields an empty list.
func stringList(obj map[string]any, key string) ([]string, error) {
	switch v := obj[key].(type) {
	case nil:
		return []string{}, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}, nil
		}
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s is %T, want list", ErrWrongType, key, v)
	}
}

// quoteSpans reads span objects; missing or unreadable offsets are left
// unset so verification falls back to locating the quote text.
func quoteSpans(v any) ([]model.QuoteSpan, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: quote_spans is %T, want list", ErrWrongType, v)
	}

	spans := make([]model.QuoteSpan, 0, len(items))
	for _, item := range items {
		span := model.QuoteSpan{Start: noOffset, End: noOffset}
		switch it := item.(type) {
		case string:
			span.Quote = it
		case map[string]any:
			span.Quote, _ = it["quote"].(string)
			span.Start = offset(it["start"])
			span.End = offset(it["end"])
		default:
			continue
		}
		if span.Quote == "" {
			continue
		}
		spans = append(spans, span)
	}
	return spans, nil
}
