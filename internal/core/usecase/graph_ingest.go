package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/extract"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
)

var schemaStatements = []string{
	`CREATE CONSTRAINT concept_name IF NOT EXISTS FOR (c:Concept) REQUIRE c.name IS UNIQUE`,
	`CREATE CONSTRAINT formula_expression IF NOT EXISTS FOR (f:Formula) REQUIRE f.expression IS UNIQUE`,
}

const (
	mergeChapterQuery = `MERGE (c:Chapter {number: $number, name: $name})`

	mergeConceptQuery = `MATCH (c:Chapter {number: $number, name: $chapter})
MERGE (x:Concept {name: $name})
MERGE (x)-[:BELONGS_TO]->(c)`

	mergeFormulaQuery = `MATCH (c:Chapter {number: $number, name: $chapter})
MERGE (f:Formula {expression: $expression})
MERGE (f)-[:APPEARS_IN]->(c)`

	mergeManualConceptQuery = `MERGE (ch:Chapter {name: $chapter})
ON CREATE SET ch.number = $number
MERGE (c:Concept {name: $concept})
MERGE (c)-[:BELONGS_TO]->(ch)`

	mergeManualFormulaQuery = `MATCH (c:Concept {name: $concept})
MERGE (f:Formula {expression: $formula})
MERGE (c)-[:HAS_FORMULA]->(f)`
)

type GraphIngestUseCase struct {
	graph ports.GraphStore
}

func NewGraphIngestUseCase(graph ports.GraphStore) *GraphIngestUseCase {
	return &GraphIngestUseCase{graph: graph}
}

func (uc *GraphIngestUseCase) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := uc.graph.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure graph schema: %w", err)
		}
	}
	return nil
}

// pageAssignment ties one page to the chapter it was attributed to.
type pageAssignment struct {
	page    domain.Page
	chapter domain.Chapter
}

// attributePages assigns every page to the latest chapter starting at or
// before it. Pages ahead of the first chapter are returned as unassigned.
func attributePages(pages []domain.Page, chapters []domain.Chapter) ([]pageAssignment, []domain.Page) {
	starts := make([]domain.Chapter, len(chapters))
	copy(starts, chapters)
	sort.SliceStable(starts, func(i, j int) bool {
		if starts[i].Page != starts[j].Page {
			return starts[i].Page < starts[j].Page
		}
		return starts[i].Line < starts[j].Line
	})

	assigned := make([]pageAssignment, 0, len(pages))
	var unassigned []domain.Page
	for _, page := range pages {
		idx := sort.Search(len(starts), func(i int) bool { return starts[i].Page > page.Number }) - 1
		if idx < 0 {
			unassigned = append(unassigned, page)
			continue
		}
		assigned = append(assigned, pageAssignment{page: page, chapter: starts[idx]})
	}
	return assigned, unassigned
}

// Ingest extracts chapters, concepts and formulas from pages and merges
// them into the graph. Failures on a single chapter or page are logged and
// counted; the run goes on. Only a cancelled context aborts it.
func (uc *GraphIngestUseCase) Ingest(ctx context.Context, pages []domain.Page) (domain.GraphIngestReport, error) {
	var report domain.GraphIngestReport

	chapters := extract.DetectChapters(pages)
	if len(chapters) == 0 {
		slog.Warn("ingest_no_chapters_detected", "pages", len(pages))
		report.PagesSkipped = len(pages)
		return report, nil
	}

	failedChapters := make(map[string]struct{})
	for _, ch := range chapters {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, err := uc.graph.Run(ctx, mergeChapterQuery, chapterParams(ch)); err != nil {
			slog.Warn("ingest_chapter_failed", "chapter", ch.Number, "name", ch.Name, "error", err.Error())
			report.ChapterErrors++
			report.AddFailure(fmt.Sprintf("chapter %s %q: %v", ch.Number, ch.Name, err))
			failedChapters[chapterKey(ch)] = struct{}{}
			continue
		}
		report.Chapters++
	}

	assigned, unassigned := attributePages(pages, chapters)
	report.PagesSkipped += len(unassigned)

	seenConcepts := make(map[string]struct{})
	seenFormulas := make(map[string]struct{})
	conceptNames := make(map[string]struct{})
	formulaExprs := make(map[string]struct{})

	for _, a := range assigned {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, failed := failedChapters[chapterKey(a.chapter)]; failed {
			report.PagesSkipped++
			continue
		}

		facts := extract.BuildPageFacts(a.chapter, a.page.Text)
		report.Reactions += len(facts.Reactions)
		if !facts.Valid() {
			report.PagesSkipped++
			continue
		}

		if err := uc.writePageFacts(ctx, facts, seenConcepts, seenFormulas); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			slog.Warn("ingest_page_failed", "page", a.page.Number, "chapter", a.chapter.Number, "error", err.Error())
			report.PageErrors++
			report.AddFailure(fmt.Sprintf("page %d: %v", a.page.Number, err))
			continue
		}

		for _, name := range facts.Concepts {
			conceptNames[name] = struct{}{}
		}
		for _, expr := range facts.Formulas {
			formulaExprs[expr] = struct{}{}
		}
		report.PagesAttached++
	}

	report.Concepts = len(conceptNames)
	report.Formulas = len(formulaExprs)

	slog.Info("ingest_graph_completed",
		"chapters", report.Chapters,
		"concepts", report.Concepts,
		"formulas", report.Formulas,
		"reactions", report.Reactions,
		"pages_attached", report.PagesAttached,
		"pages_skipped", report.PagesSkipped,
		"chapter_errors", report.ChapterErrors,
		"page_errors", report.PageErrors,
	)
	return report, nil
}

func (uc *GraphIngestUseCase) writePageFacts(
	ctx context.Context,
	facts domain.PageFacts,
	seenConcepts, seenFormulas map[string]struct{},
) error {
	scope := chapterKey(facts.Chapter)

	for _, name := range facts.Concepts {
		key := scope + "|" + name
		if _, ok := seenConcepts[key]; ok {
			continue
		}
		params := chapterScopeParams(facts.Chapter)
		params["name"] = name
		if _, err := uc.graph.Run(ctx, mergeConceptQuery, params); err != nil {
			return fmt.Errorf("merge concept %q: %w", name, err)
		}
		seenConcepts[key] = struct{}{}
	}

	for _, expr := range facts.Formulas {
		key := scope + "|" + expr
		if _, ok := seenFormulas[key]; ok {
			continue
		}
		params := chapterScopeParams(facts.Chapter)
		params["expression"] = expr
		if _, err := uc.graph.Run(ctx, mergeFormulaQuery, params); err != nil {
			return fmt.Errorf("merge formula %q: %w", expr, err)
		}
		seenFormulas[key] = struct{}{}
	}
	return nil
}

// AddFact links one concept to its chapter and, when given, to a formula.
func (uc *GraphIngestUseCase) AddFact(ctx context.Context, fact domain.ManualFact) error {
	fact.Chapter = strings.TrimSpace(fact.Chapter)
	fact.Concept = strings.TrimSpace(fact.Concept)
	fact.Formula = strings.TrimSpace(fact.Formula)
	if fact.Chapter == "" || fact.Concept == "" {
		return domain.WrapError(domain.ErrInvalidInput, "add fact", errors.New("chapter and concept are required"))
	}

	params := map[string]any{
		"chapter": fact.Chapter,
		"number":  strings.TrimSpace(fact.ChapterNumber),
		"concept": fact.Concept,
	}
	if _, err := uc.graph.Run(ctx, mergeManualConceptQuery, params); err != nil {
		return fmt.Errorf("add fact concept %q: %w", fact.Concept, err)
	}

	if fact.Formula == "" {
		return nil
	}
	if _, err := uc.graph.Run(ctx, mergeManualFormulaQuery, map[string]any{
		"concept": fact.Concept,
		"formula": fact.Formula,
	}); err != nil {
		return fmt.Errorf("add fact formula %q: %w", fact.Formula, err)
	}
	return nil
}

// Seed applies a list of manual facts and returns how many were written.
func (uc *GraphIngestUseCase) Seed(ctx context.Context, facts []domain.ManualFact) (int, error) {
	written := 0
	for i, fact := range facts {
		if err := uc.AddFact(ctx, fact); err != nil {
			return written, fmt.Errorf("seed fact %d: %w", i, err)
		}
		written++
	}
	return written, nil
}

func chapterKey(ch domain.Chapter) string {
	return ch.Number + "|" + ch.Name
}

func chapterParams(ch domain.Chapter) map[string]any {
	return map[string]any{"number": ch.Number, "name": ch.Name}
}

func chapterScopeParams(ch domain.Chapter) map[string]any {
	return map[string]any{"number": ch.Number, "chapter": ch.Name}
}
