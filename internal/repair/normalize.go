package repair

import "github.com/kaptinlin/jsonrepair"

// knownKeys are the fields either stage reads from a response
var knownKeys = []string{
	"relevant", "claims", "quote_spans", "quotes",
	"score", "confidence", "justification", "substantive",
	"substantive_reasoning", "evidence", "requirement_id",
}

// normalize rewrites malformed JSON-ish text into valid JSON: Python
// literals, single quotes, bare keys, missing or trailing commas and
// truncation. Text jsonrepair cannot fix is returned unchanged.
func normalize(payload string) string {
	repaired, err := jsonrepair.JSONRepair(payload)
	if err != nil {
		return payload
	}
	return repaired
}

// withDefaults layers obj over Default when obj has none of the known keys
func withDefaults(obj map[string]any) map[string]any {
	for _, key := range knownKeys {
		if _, ok := obj[key]; ok {
			return obj
		}
	}

	out := Default()
	for k, v := range obj {
		out[k] = v
	}
	return out
}
