// Package chunker splits extracted document text into overlapping bounded chunks.
package chunker

import (
	"iter"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultSize    = 1000 // characters
	DefaultOverlap = 100  // characters
)

// Break points, most natural first. A hard cut is the fallback.
var separators = []string{"\n\n", "\n", ". ", "? ", "! ", " "}

// Splitter produces chunks of at most size characters, each starting about
// overlap characters before the end of its predecessor.
type Splitter struct {
	size    int
	overlap int
}

func New(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Splitter{size: size, overlap: overlap}
}

func (s *Splitter) Size() int    { return s.size }
func (s *Splitter) Overlap() int { return s.overlap }

// Chunks returns a lazy sequence over the chunks of text. Each range over the
// sequence restarts from the beginning. Chunks are never empty.
func (s *Splitter) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		runes := []rune(text)
		n := len(runes)
		start := skipSpace(runes, 0)
		for start < n {
			end := min(start+s.size, n)
			if end < n {
				end = s.breakPoint(runes, start, end)
			}

			chunk := strings.TrimSpace(string(runes[start:end]))
			if chunk != "" && !yield(chunk) {
				return
			}
			if skipSpace(runes, end) >= n {
				return
			}
			start = skipSpace(runes, s.nextStart(runes, start, end))
		}
	}
}

// Split collects every chunk of text.
func (s *Splitter) Split(text string) []string {
	return slices.Collect(s.Chunks(text))
}

// breakPoint moves end back to the last natural boundary inside the second
// half of the window, or leaves it as a hard cut.
func (s *Splitter) breakPoint(runes []rune, start, end int) int {
	window := string(runes[start:end])
	floor := (end - start) / 2
	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		cut := utf8.RuneCountInString(window[:idx]) + utf8.RuneCountInString(sep)
		if cut > floor {
			return start + cut
		}
	}
	return end
}

// nextStart steps back by the overlap, then forward to the next word start
// so the following chunk does not open mid-word.
func (s *Splitter) nextStart(runes []rune, start, end int) int {
	next := end - s.overlap
	if next <= start {
		return end
	}
	for i := next; i < end; i++ {
		if unicode.IsSpace(runes[i]) {
			if i+1 < end {
				return i + 1
			}
			break
		}
	}
	return next
}

func skipSpace(runes []rune, i int) int {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}
