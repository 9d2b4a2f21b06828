package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

func TestSplit(t *testing.T) {
	t.Run("Should return the whole text when it fits one window", func(t *testing.T) {
		spans := New(20, 5).Split("Page 1: Alpha.")
		require.Len(t, spans, 1)
		assert.Equal(t, 0, spans[0].Start)
		assert.Equal(t, "Page 1: Alpha.", spans[0].Text)
	})
	t.Run("Should return nil for empty text", func(t *testing.T) {
		assert.Nil(t, New(20, 5).Split(""))
	})
	t.Run("Should cut after a word boundary in the second half of the window", func(t *testing.T) {
		spans := New(20, 5).Split("Alpha beta gamma delta epsilon")
		require.Len(t, spans, 2)
		assert.Equal(t, Span{Start: 0, Text: "Alpha beta gamma "}, spans[0])
		assert.Equal(t, Span{Start: 12, Text: "amma delta epsilon"}, spans[1])
	})
	t.Run("Should prefer a paragraph break over later word boundaries", func(t *testing.T) {
		spans := New(30, 5).Split("One two three.\n\nFour five six seven eight nine.")
		require.Len(t, spans, 3)
		assert.Equal(t, Span{Start: 0, Text: "One two three.\n\n"}, spans[0])
		assert.Equal(t, Span{Start: 11, Text: "ee.\n\nFour five six seven "}, spans[1])
		assert.Equal(t, Span{Start: 31, Text: "even eight nine."}, spans[2])
	})
	t.Run("Should cut after a sentence terminator followed by whitespace", func(t *testing.T) {
		spans := New(30, 5).Split("First sentence here. Second part follows now okay")
		require.Len(t, spans, 3)
		assert.Equal(t, Span{Start: 0, Text: "First sentence here."}, spans[0])
		assert.Equal(t, Span{Start: 15, Text: "here. Second part follows now "}, spans[1])
		assert.Equal(t, Span{Start: 40, Text: " now okay"}, spans[2])
	})
	t.Run("Should hard cut when no boundary exists", func(t *testing.T) {
		spans := New(20, 5).Split(strings.Repeat("a", 25))
		require.Len(t, spans, 2)
		assert.Equal(t, Span{Start: 0, Text: strings.Repeat("a", 20)}, spans[0])
		assert.Equal(t, Span{Start: 15, Text: strings.Repeat("a", 10)}, spans[1])
	})
	t.Run("Should be deterministic", func(t *testing.T) {
		text := "Determinism matters. The same input must always split the same way, run after run."
		s := New(25, 8)
		assert.Equal(t, s.Split(text), s.Split(text))
	})
}

func TestSplitReconstruction(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{"plain sentences", "The quick brown fox jumps over the lazy dog. Pack my box with five dozen liquor jugs. Sphinx of black quartz, judge my vow.", 40, 10},
		{"paragraphs", "Intro block with a few words.\n\nSecond paragraph carries more detail than the first one did.\n\nThird paragraph closes the page.", 35, 12},
		{"no whitespace at all", strings.Repeat("x", 137), 30, 7},
		{"multibyte runes", "héllo wörld — 你好世界。 Ünïcode text должен резаться по рунам, not bytes. Еще немного текста для второго окна.", 30, 8},
		{"overlap nearly the whole window", "abcdefghij klmnopqrst uvwxyz", 10, 9},
		{"zero overlap", "one two three four five six seven eight nine ten eleven twelve", 16, 0},
	}
	for _, tc := range cases {
		t.Run("Should reconstruct "+tc.name, func(t *testing.T) {
			spans := New(tc.size, tc.overlap).Split(tc.text)
			require.NotEmpty(t, spans)
			runes := []rune(tc.text)

			prevStart := -1
			prevEnd := 0
			var b strings.Builder
			for _, sp := range spans {
				r := []rune(sp.Text)
				require.NotEmpty(t, r)
				// exact substring at the recorded offset
				require.Equal(t, string(runes[sp.Start:sp.Start+len(r)]), sp.Text)
				// starts strictly increase, coverage stays contiguous
				require.Greater(t, sp.Start, prevStart)
				require.LessOrEqual(t, sp.Start, prevEnd)
				skip := prevEnd - sp.Start
				if skip < 0 {
					skip = 0
				}
				b.WriteString(string(r[skip:]))
				prevStart = sp.Start
				prevEnd = sp.Start + len(r)
			}
			require.Equal(t, len(runes), prevEnd, "final span must end at the end of the text")
			assert.Equal(t, tc.text, b.String())
		})
	}
}

func TestChunk(t *testing.T) {
	t.Run("Should attach page metadata and per-page ordinals", func(t *testing.T) {
		page := domain.Page{Source: "report.pdf", Number: 3, Text: "Alpha beta gamma delta epsilon"}
		chunks := New(20, 5).Chunk(page)
		require.Len(t, chunks, 2)
		for i, ch := range chunks {
			assert.Equal(t, "report.pdf", ch.Source)
			assert.Equal(t, 3, ch.Page)
			assert.Equal(t, i, ch.Ordinal)
		}
		assert.Equal(t, 0, chunks[0].Start)
		assert.Equal(t, 12, chunks[1].Start)
	})
	t.Run("Should return no chunks for an empty page", func(t *testing.T) {
		assert.Empty(t, New(20, 5).Chunk(domain.Page{Source: "empty.pdf", Number: 1}))
	})
}

func TestNew(t *testing.T) {
	t.Run("Should clamp nonsense parameters to workable ones", func(t *testing.T) {
		s := New(-1, -1)
		assert.Equal(t, 1000, s.size)
		assert.Equal(t, 0, s.overlap)
		s = New(10, 50)
		assert.Equal(t, 2, s.overlap)
	})
}
