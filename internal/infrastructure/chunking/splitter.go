package chunking

import (
	"strings"
	"unicode"
)

// Splitter cuts page text into overlapping rune windows. A window end is
// pulled back to the nearest whitespace when one lies in its last fifth, so
// words survive the cut.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1200
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(collapseSpaces(text))
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, len(runes)/s.ChunkSize+1)
	for start := 0; start < len(runes); {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = wordBoundary(runes, start, end, s.ChunkSize/5)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - s.Overlap
		if next <= start {
			next = end
		}
		start = alignToWord(runes, next, end)
	}
	return out
}

// alignToWord moves a window start that falls inside a word to the start of
// the following word, looking no further than end.
func alignToWord(runes []rune, start, end int) int {
	if start == 0 || unicode.IsSpace(runes[start-1]) {
		return start
	}
	for i := start; i <= end && i < len(runes); i++ {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return start
}

func wordBoundary(runes []rune, start, end, slack int) int {
	for i := end; i > end-slack && i > start; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return end
}

// collapseSpaces joins hard-wrapped PDF lines while keeping paragraph breaks.
func collapseSpaces(text string) string {
	paragraphs := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
