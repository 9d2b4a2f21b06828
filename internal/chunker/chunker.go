package chunker

import (
	"unicode"

	"docchat/internal/domain"
)

// Span is one window of text together with its rune offset in the source.
type Span struct {
	Start int
	Text  string
}

// Splitter cuts text into overlapping windows of at most size runes.
// Within a window it prefers to break on a paragraph boundary, then a
// sentence end, then a word boundary, before falling back to a hard cut.
// A boundary is only taken in the second half of the window so chunks
// never degenerate. Splitting is deterministic and offset-faithful: every
// span is the exact substring of the input at its recorded offset.
type Splitter struct {
	size    int
	overlap int
}

func New(size, overlap int) *Splitter {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 5
	}
	return &Splitter{size: size, overlap: overlap}
}

// Chunk splits one page and attaches its source metadata to every chunk.
func (s *Splitter) Chunk(page domain.Page) []domain.Chunk {
	spans := s.Split(page.Text)
	chunks := make([]domain.Chunk, 0, len(spans))
	for i, sp := range spans {
		chunks = append(chunks, domain.Chunk{
			Source:  page.Source,
			Page:    page.Number,
			Ordinal: i,
			Start:   sp.Start,
			Text:    sp.Text,
		})
	}
	return chunks
}

// Split produces the ordered spans covering text. Consecutive spans overlap
// by the configured overlap (less when the step is clamped to keep forward
// progress), and stripping each span's overlapping prefix reconstructs the
// input exactly.
func (s *Splitter) Split(text string) []Span {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	var spans []Span
	pos := 0
	for {
		end := pos + s.size
		if end >= n {
			spans = append(spans, Span{Start: pos, Text: string(runes[pos:n])})
			break
		}
		cut := s.cutPoint(runes, pos, end)
		spans = append(spans, Span{Start: pos, Text: string(runes[pos:cut])})
		next := cut - s.overlap
		if next <= pos {
			next = pos + 1
		}
		pos = next
	}
	return spans
}

// cutPoint picks where the window [pos, end) should actually end. It scans
// backward from the window end and accepts the latest boundary past the
// window midpoint, trying paragraph breaks, sentence ends, and word
// boundaries in that order. With no acceptable boundary the cut is hard at
// end. Callers guarantee end < len(runes).
func (s *Splitter) cutPoint(runes []rune, pos, end int) int {
	floor := pos + s.size/2

	// Paragraph break: cut just after a blank line.
	for i := end - 2; i > pos; i-- {
		if i+2 <= floor {
			break
		}
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i + 2
		}
	}
	// Sentence end: a terminator followed by whitespace, cut after the
	// terminator.
	for i := end - 1; i > pos; i-- {
		if i+1 <= floor {
			break
		}
		if isSentenceEnd(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}
	// Word boundary: cut just after whitespace.
	for i := end - 1; i > pos; i-- {
		if i+1 <= floor {
			break
		}
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
