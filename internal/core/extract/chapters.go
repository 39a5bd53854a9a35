package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

// Lengths count characters, not bytes.
const (
	minHeadingLineLen  = 10
	minChapterTitleLen = 15
)

// Tried in order; the first pattern that matches a line wins.
var chapterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?i:chapter)\s+(\d+)\s*[:\-]?\s*(.+)$`),
	regexp.MustCompile(`^(?i:unit)\s+(\d+)\s*[:\-]?\s*(.+)$`),
	regexp.MustCompile(`^(\d+)\.\s+([A-Z][A-Za-z\s,.-]{15,})$`),
}

// Words that mark a cross-reference or an exercise prompt rather than a heading.
var chapterDenylist = []string{
	"page", "figure", "table", "exercise", "example", "answer", "question",
	"what", "how", "why", "explain", "write", "draw", "solve",
}

// DetectChapters scans every line of every page for chapter headings.
// Titles are deduplicated by exact string. The result is sorted by chapter
// number unless a number is not numeric, in which case encounter order is kept.
func DetectChapters(pages []domain.Page) []domain.Chapter {
	chapters := make([]domain.Chapter, 0, 16)
	seen := make(map[string]struct{})

	for _, page := range pages {
		for lineNum, line := range strings.Split(page.Text, "\n") {
			line = strings.TrimSpace(line)
			if utf8.RuneCountInString(line) < minHeadingLineLen {
				continue
			}
			number, title, ok := matchHeading(line)
			if !ok || !acceptChapterTitle(title, seen) {
				continue
			}
			seen[title] = struct{}{}
			chapters = append(chapters, domain.Chapter{
				Number: number,
				Name:   title,
				Page:   page.Number,
				Line:   lineNum,
			})
		}
	}

	sortChaptersByNumber(chapters)
	return chapters
}

func matchHeading(line string) (number, title string, ok bool) {
	for _, pattern := range chapterPatterns {
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		return m[1], strings.TrimSpace(m[2]), true
	}
	return "", "", false
}

func acceptChapterTitle(title string, seen map[string]struct{}) bool {
	if utf8.RuneCountInString(title) <= minChapterTitleLen {
		return false
	}
	if _, dup := seen[title]; dup {
		return false
	}
	lower := strings.ToLower(title)
	for _, word := range chapterDenylist {
		if strings.Contains(lower, word) {
			return false
		}
	}
	return true
}

func sortChaptersByNumber(chapters []domain.Chapter) {
	numbers := make([]int, len(chapters))
	for i, ch := range chapters {
		n, err := strconv.Atoi(ch.Number)
		if err != nil {
			return
		}
		numbers[i] = n
	}
	idx := make([]int, len(chapters))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return numbers[idx[a]] < numbers[idx[b]] })

	sorted := make([]domain.Chapter, len(chapters))
	for i, j := range idx {
		sorted[i] = chapters[j]
	}
	copy(chapters, sorted)
}
