package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// numberedText builds prose whose words are all distinct, so overlaps can be
// located unambiguously.
func numberedText(words, perParagraph int) string {
	var b strings.Builder
	for i := 0; i < words; i++ {
		if i > 0 {
			if i%perParagraph == 0 {
				b.WriteString(".\n\n")
			} else {
				b.WriteString(" ")
			}
		}
		fmt.Fprintf(&b, "word%04d", i)
	}
	b.WriteString(".")
	return b.String()
}

// merge re-joins chunks by dropping the longest prefix of each chunk that is
// already at the end of the accumulated text.
func merge(chunks []string) string {
	if len(chunks) == 0 {
		return ""
	}
	acc := chunks[0]
	for _, c := range chunks[1:] {
		k := min(len(acc), len(c))
		for ; k > 0; k-- {
			if strings.HasSuffix(acc, c[:k]) {
				break
			}
		}
		acc += c[k:]
	}
	return acc
}

func TestShortTextIsSingleChunk(t *testing.T) {
	s := New(DefaultSize, DefaultOverlap)
	assert.Equal(t, []string{"Inflation is a rise in prices."}, s.Split("  Inflation is a rise in prices.\n"))
}

func TestEmptyTextHasNoChunks(t *testing.T) {
	s := New(DefaultSize, DefaultOverlap)
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split(" \n\n\t "))
}

func TestChunksAreBoundedAndNonEmpty(t *testing.T) {
	text := numberedText(900, 40)
	s := New(DefaultSize, DefaultOverlap)

	chunks := s.Split(text)
	require.Greater(t, len(chunks), 5)
	for i, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c), "chunk %d", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(c), DefaultSize, "chunk %d", i)
		assert.Contains(t, text, c, "chunk %d must be a fragment of the input", i)
	}
}

func TestConsecutiveChunksOverlap(t *testing.T) {
	s := New(DefaultSize, DefaultOverlap)
	chunks := s.Split(numberedText(900, 40))
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		first := strings.Fields(chunks[i])[0]
		assert.Contains(t, chunks[i-1], first, "chunk %d should start inside chunk %d", i, i-1)
	}
}

func TestRejoinReconstructsText(t *testing.T) {
	text := numberedText(1200, 25)
	s := New(DefaultSize, DefaultOverlap)

	assert.Equal(t, text, merge(s.Split(text)))
}

func TestPrefersParagraphBoundaries(t *testing.T) {
	para := strings.Repeat("alpha beta gamma delta ", 30) // 690 chars
	text := strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para)
	s := New(DefaultSize, DefaultOverlap)

	chunks := s.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, strings.TrimSpace(para), chunks[0])
}

func TestHardCutWithoutWhitespace(t *testing.T) {
	text := strings.Repeat("x", 2500)
	s := New(DefaultSize, DefaultOverlap)

	chunks := s.Split(text)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	assert.Len(t, chunks[2], 700)
}

func TestLengthCountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("économie élasticité ", 200)
	s := New(300, 30)

	for _, c := range s.Split(text) {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 300)
		assert.True(t, utf8.ValidString(c))
	}
}

func TestDeterministicAndRestartable(t *testing.T) {
	text := numberedText(700, 30)
	s := New(DefaultSize, DefaultOverlap)
	seq := s.Chunks(text)

	var first, second []string
	for c := range seq {
		first = append(first, c)
	}
	for c := range seq {
		second = append(second, c)
	}
	assert.Equal(t, first, second)
	assert.Equal(t, first, New(DefaultSize, DefaultOverlap).Split(text))
}

func TestEarlyStop(t *testing.T) {
	s := New(100, 10)
	count := 0
	for range s.Chunks(numberedText(500, 20)) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestNewNormalizesSettings(t *testing.T) {
	s := New(0, -5)
	assert.Equal(t, DefaultSize, s.Size())
	assert.Equal(t, 0, s.Overlap())

	s = New(100, 300)
	assert.Equal(t, 50, s.Overlap())
}
