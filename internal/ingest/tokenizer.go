package ingest

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

// Encoding is the BPE vocabulary chunk sizes are measured in
const Encoding = tokenizer.Cl100kBase

var loadCodec = sync.OnceValues(func() (tokenizer.Codec, error) {
	return tokenizer.Get(Encoding)
})

// Token is a byte range of the source text
type Token struct {
	Start int
	End   int
}

// Tokenize splits text into contiguous cl100k tokens that cover it exactly.
// A token may end inside a multi-byte character; the chunker only cuts on
// character boundaries.
func Tokenize(text string) []Token {
	if text == "" {
		return nil
	}

	var pieces []string
	if codec, err := loadCodec(); err == nil {
		if _, encoded, err := codec.Encode(text); err == nil {
			pieces = encoded
		}
	}

	tokens := make([]Token, 0, len(pieces)+1)
	pos := 0
	for _, piece := range pieces {
		// The encoder sees invalid UTF-8 as U+FFFD; stop mapping at the first mismatch
		if piece == "" || !strings.HasPrefix(text[pos:], piece) {
			break
		}
		tokens = append(tokens, Token{Start: pos, End: pos + len(piece)})
		pos += len(piece)
	}

	// Anything left unmapped counts one token per character
	for pos < len(text) {
		_, size := utf8.DecodeRuneInString(text[pos:])
		tokens = append(tokens, Token{Start: pos, End: pos + size})
		pos += size
	}

	return tokens
}

// CountTokens returns the number of tokens in text
func CountTokens(text string) int {
	return len(Tokenize(text))
}
