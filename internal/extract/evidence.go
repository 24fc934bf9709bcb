package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/cardaudit/internal/model"
)

// ContextParagraphs is how many paragraphs before and after a quote are kept
const ContextParagraphs = 2

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

type paragraph struct {
	start, end int
}

// paragraphs returns the non-blank blocks of text separated by blank lines
func paragraphs(text string) []paragraph {
	var out []paragraph
	start := 0
	for _, m := range paragraphBreak.FindAllStringIndex(text, -1) {
		if strings.TrimSpace(text[start:m[0]]) != "" {
			out = append(out, paragraph{start, m[0]})
		}
		start = m[1]
	}
	if strings.TrimSpace(text[start:]) != "" {
		out = append(out, paragraph{start, len(text)})
	}
	return out
}

// VerifySpan checks a span against the chunk text. A span whose offsets
// address its quote exactly is kept as is; otherwise the first verbatim
// occurrence of the quote is used. A quote absent from text is discarded.
func VerifySpan(span model.QuoteSpan, text string) (model.QuoteSpan, bool) {
	if span.Quote == "" {
		return model.QuoteSpan{}, false
	}
	if span.Valid(text) {
		return span, true
	}

	idx := strings.Index(text, span.Quote)
	if idx < 0 {
		return model.QuoteSpan{}, false
	}
	return model.QuoteSpan{Quote: span.Quote, Start: idx, End: idx + len(span.Quote)}, true
}

// ExpandQuotes widens each verified span to its paragraph plus up to
// ContextParagraphs paragraphs on either side. Results are trimmed and
// deduplicated in first-seen order.
func ExpandQuotes(text string, spans []model.QuoteSpan) []string {
	paras := paragraphs(text)
	expanded := make([]string, 0, len(spans))

	for _, span := range spans {
		if len(paras) == 0 {
			expanded = append(expanded, strings.TrimSpace(text[span.Start:span.End]))
			continue
		}

		idx := -1
		for i, p := range paras {
			if span.Start >= p.start && span.Start < p.end {
				idx = i
				break
			}
		}
		if idx < 0 {
			// Quote starts inside a paragraph break
			expanded = append(expanded, strings.TrimSpace(text[span.Start:span.End]))
			continue
		}

		first := max(0, idx-ContextParagraphs)
		last := min(len(paras)-1, idx+ContextParagraphs)
		expanded = append(expanded, strings.TrimSpace(text[paras[first].start:paras[last].end]))
	}

	return dedupe(expanded)
}

// Aggregate merges the extractions for one requirement. Only relevant
// extractions contribute; claims and quotes are trimmed, empties dropped and
// each list deduplicated independently in first-occurrence order.
func Aggregate(extractions []model.ClaimExtraction) model.Evidence {
	var claims, quotes []string
	for _, ext := range extractions {
		if !ext.Relevant {
			continue
		}
		claims = append(claims, ext.Claims...)
		quotes = append(quotes, ext.Quotes...)
	}

	return model.Evidence{
		Claims: dedupe(claims),
		Quotes: dedupe(quotes),
	}
}

// dedupe trims items, drops empties and keeps the first occurrence of each
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
