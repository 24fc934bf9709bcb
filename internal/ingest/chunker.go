package ingest

import (
	"iter"
	"unicode/utf8"
)

// DefaultMaxTokens is used when a non-positive chunk size is requested
const DefaultMaxTokens = 1200

// Chunk is a contiguous substring of a document
type Chunk struct {
	Index   int
	Text    string
	Start   int // Byte offset of Text in the document
	End     int // Byte offset one past the end of Text
	Overlap int // Leading bytes shared with the previous chunk
}

// Fresh returns the part of the chunk not shared with the previous one
func (c Chunk) Fresh() string {
	return c.Text[c.Overlap:]
}

// Chunks lazily splits text into windows of at most maxTokens tokens.
// Consecutive windows share overlap tokens; the sequence ends as soon as
// the document is covered. An empty document yields nothing.
func Chunks(text string, maxTokens, overlap int) iter.Seq[Chunk] {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlap < 0 || overlap >= maxTokens {
		overlap = 0
	}

	return func(yield func(Chunk) bool) {
		tokens := Tokenize(text)
		n := len(tokens)
		if n == 0 {
			return
		}

		// Chunk edges fall between characters, never inside a UTF-8 sequence
		boundary := func(i int) bool {
			return i == n || utf8.RuneStart(text[tokens[i].Start])
		}

		prevEnd := 0
		for index, start := 0, 0; ; index++ {
			end := min(start+maxTokens, n)
			for end > start+1 && !boundary(end) {
				end--
			}
			for !boundary(end) {
				end++
			}

			c := Chunk{
				Index: index,
				Start: tokens[start].Start,
				End:   tokens[end-1].End,
			}
			c.Text = text[c.Start:c.End]
			if index > 0 {
				c.Overlap = prevEnd - c.Start
			}

			if !yield(c) {
				return
			}
			if end == n {
				return
			}

			prevEnd = c.End
			next := max(end-overlap, start+1)
			for !boundary(next) {
				next++
			}
			start = next
		}
	}
}

// ChunkText collects every chunk of text
func ChunkText(text string, maxTokens, overlap int) []Chunk {
	var out []Chunk
	for c := range Chunks(text, maxTokens, overlap) {
		out = append(out, c)
	}
	return out
}
