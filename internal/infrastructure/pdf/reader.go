// Package pdf extracts per-page text rows from textbook PDFs.
package pdf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

// wordGapRatio is the horizontal gap, relative to font size, read as a space.
const wordGapRatio = 0.2

type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

// ReadPages returns one Page per PDF page, numbered from 1. Pages that fail
// to decode are kept with empty text so numbering stays aligned.
func (r *Reader) ReadPages(ctx context.Context, src io.ReaderAt, size int64) ([]domain.Page, error) {
	doc, err := openDocument(src, size)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read pdf", err)
	}

	total := doc.NumPage()
	pages := make([]domain.Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := pageText(doc.Page(i))
		if err != nil {
			slog.Warn("pdf_page_unreadable", "page", i, "error", err)
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}
	return pages, nil
}

func openDocument(src io.ReaderAt, size int64) (doc *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	return pdf.NewReader(src, size)
}

func pageText(page pdf.Page) (text string, err error) {
	if page.V.IsNull() {
		return "", nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("decode page: %v", rec)
		}
	}()

	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		glyphs := make([]glyph, 0, len(row.Content))
		for _, t := range row.Content {
			glyphs = append(glyphs, glyph{s: t.S, x: t.X, w: t.W, size: t.FontSize})
		}
		if line := strings.TrimSpace(joinGlyphs(glyphs)); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

type glyph struct {
	s    string
	x    float64
	w    float64
	size float64
}

// joinGlyphs rebuilds a row, inserting a space where the gap between
// consecutive fragments is wider than a fraction of the font size.
func joinGlyphs(glyphs []glyph) string {
	var b strings.Builder
	for i, g := range glyphs {
		if i > 0 {
			prev := glyphs[i-1]
			gap := g.x - (prev.x + prev.w)
			if gap > prev.size*wordGapRatio && !strings.HasSuffix(prev.s, " ") && !strings.HasPrefix(g.s, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.s)
	}
	return b.String()
}
