package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

func TestDetectChaptersExplicitHeading(t *testing.T) {
	pages := []domain.Page{
		{Number: 1, Text: "CHAPTER 1: Chemical Reactions and Equations\nsome body text"},
		{Number: 9, Text: "intro\nCHAPTER 1: Chemical Reactions and Equations"},
	}

	chapters := DetectChapters(pages)

	require.Len(t, chapters, 1)
	assert.Equal(t, "1", chapters[0].Number)
	assert.Equal(t, "Chemical Reactions and Equations", chapters[0].Name)
	assert.Equal(t, 1, chapters[0].Page)
	assert.Equal(t, 0, chapters[0].Line)
}

func TestDetectChaptersPatternsAndSorting(t *testing.T) {
	pages := []domain.Page{
		{Number: 40, Text: "Unit 3 - Metals and Non-metals in Nature"},
		{Number: 2, Text: "2. Acids, Bases and Salts Overview"},
		{Number: 1, Text: "Chapter 1 Chemical Reactions and Equations"},
	}

	chapters := DetectChapters(pages)

	require.Len(t, chapters, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{chapters[0].Number, chapters[1].Number, chapters[2].Number})
	assert.Equal(t, "Acids, Bases and Salts Overview", chapters[1].Name)
	assert.Equal(t, "Metals and Non-metals in Nature", chapters[2].Name)
}

func TestDetectChaptersRejectsDenylistShortAndLowercaseNumbered(t *testing.T) {
	pages := []domain.Page{{Number: 5, Text: "" +
		"Chapter 2: see the table of contents here\n" + // denylist: table
		"Chapter 4: Write the balanced equation\n" + // denylist: write
		"Chapter 7: Short Title\n" + // too short
		"3. lowercase heading that is long enough\n" + // numbered pattern needs a capital
		"Chapter 9\n"}, // no title at all
	}

	assert.Empty(t, DetectChapters(pages))
}

func TestDetectChaptersCountsTitleCharacters(t *testing.T) {
	pages := []domain.Page{{Number: 3, Text: "" +
		"Chapter 5: Réaction chimiq\n" + // 15 characters, 16 bytes
		"Chapter 6: Réactions chimiques\n"},
	}

	chapters := DetectChapters(pages)

	assert.Len(t, chapters, 1)
	assert.Equal(t, "6", chapters[0].Number)
	assert.Equal(t, "Réactions chimiques", chapters[0].Name)
}

func TestDetectChaptersSkipsShortLines(t *testing.T) {
	pages := []domain.Page{{Number: 1, Text: "Unit 1 x\n\n   \n"}}
	assert.Empty(t, DetectChapters(pages))
}

func TestSortChaptersKeepsOrderWhenNumberNotNumeric(t *testing.T) {
	chapters := []domain.Chapter{
		{Number: "2", Name: "b"},
		{Number: "IV", Name: "a"},
		{Number: "1", Name: "c"},
	}

	sortChaptersByNumber(chapters)

	assert.Equal(t, "b", chapters[0].Name)
	assert.Equal(t, "a", chapters[1].Name)
	assert.Equal(t, "c", chapters[2].Name)
}
