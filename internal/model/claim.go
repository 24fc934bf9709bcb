package model

// QuoteSpan is a verbatim excerpt claimed by the model, with character offsets into a chunk
type QuoteSpan struct {
	Quote string `json:"quote"`
	Start int    `json:"start"` // Byte offset into the chunk text (inclusive)
	End   int    `json:"end"`   // Byte offset into the chunk text (exclusive)
}

// Valid reports whether the span's offsets address exactly its quote in text
func (s QuoteSpan) Valid(text string) bool {
	if s.Quote == "" {
		return false
	}
	if s.Start < 0 || s.Start >= s.End || s.End > len(text) {
		return false
	}
	return text[s.Start:s.End] == s.Quote
}

// ClaimExtraction is the Stage A result for one (requirement, chunk) pair
type ClaimExtraction struct {
	RequirementID string      `json:"requirement_id,omitempty"`
	ChunkIndex    int         `json:"chunk_index"`
	Relevant      bool        `json:"relevant"`
	Claims        []string    `json:"claims"`
	Quotes        []string    `json:"quotes"`                // Expanded, verified quotes (never empty strings)
	QuoteSpans    []QuoteSpan `json:"quote_spans,omitempty"` // Spans that survived verification
}

// Evidence is the aggregated Stage A output for one requirement across a document
type Evidence struct {
	Claims []string `json:"claims"`
	Quotes []string `json:"quotes"`
}

// Empty reports whether there is nothing to score
func (e Evidence) Empty() bool {
	return len(e.Claims) == 0 || len(e.Quotes) == 0
}
