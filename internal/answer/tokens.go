package answer

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// tokenCounter measures text against the context budget. It prefers the
// cl100k_base encoding and falls back to a rune estimate when the encoding
// files cannot be loaded, such as on a machine without network access.
type tokenCounter struct {
	enc *tiktoken.Tiktoken
}

func newTokenCounter() *tokenCounter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &tokenCounter{}
	}
	return &tokenCounter{enc: enc}
}

func (t *tokenCounter) Count(text string) int {
	if t.enc != nil {
		return len(t.enc.Encode(text, nil, nil))
	}
	// Estimate at four runes per token.
	return (utf8.RuneCountInString(text) + 3) / 4
}
