package usecase

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
	"github.com/kirillkom/textbook-rag/internal/core/routing"
)

const chapterOneQuestion = "What is the name of Chapter 1 in science?"

var chapterOneNameVariants = map[string]struct{}{
	"chapter 1 name":    {},
	"chapter one name":  {},
	"name of chapter 1": {},
}

// DefaultChapterTitles is the static chapter-title table used when no
// catalog provides one.
func DefaultChapterTitles() map[string]string {
	return map[string]string{
		"1": "Chemical Reactions and Equations",
		"2": "Acids, Bases and Salts",
		"3": "Metals and Non-metals",
		"4": "Carbon and its Compounds",
	}
}

type chapterShortcut struct {
	pattern *regexp.Regexp
	title   string
}

type AnswerUseCase struct {
	facts    *FactLookupUseCase
	embedder ports.Embedder
	vectorDB ports.VectorStore
	lexical  ports.LexicalIndex
	llm      ports.Completer
	web      []ports.WebSearcher
	chapters []chapterShortcut
	gate     ports.MaintenanceLock
	limits   domain.RetrievalLimits
}

func NewAnswerUseCase(
	facts *FactLookupUseCase,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	lexical ports.LexicalIndex,
	llm ports.Completer,
	web []ports.WebSearcher,
	chapterTitles map[string]string,
	gate ports.MaintenanceLock,
	limits domain.RetrievalLimits,
) *AnswerUseCase {
	if len(chapterTitles) == 0 {
		chapterTitles = DefaultChapterTitles()
	}
	return &AnswerUseCase{
		facts:    facts,
		embedder: embedder,
		vectorDB: vectorDB,
		lexical:  lexical,
		llm:      llm,
		web:      web,
		chapters: compileChapterShortcuts(chapterTitles),
		gate:     gate,
		limits:   withDefaultLimits(limits),
	}
}

func withDefaultLimits(l domain.RetrievalLimits) domain.RetrievalLimits {
	if l.DenseTopK <= 0 {
		l.DenseTopK = 4
	}
	if l.SparseTopK <= 0 {
		l.SparseTopK = 4
	}
	if l.MinContextChars <= 0 {
		l.MinContextChars = 200
	}
	if !l.Fusion.Valid() {
		l.Fusion = domain.FusionConcat
	}
	if l.RRFK <= 0 {
		l.RRFK = 60
	}
	if l.RerankTopN <= 0 {
		l.RerankTopN = l.DenseTopK + l.SparseTopK
	}
	if l.WebMaxResults <= 0 {
		l.WebMaxResults = 3
	}
	if l.DenseTimeout <= 0 {
		l.DenseTimeout = 10 * time.Second
	}
	if l.SparseTimeout <= 0 {
		l.SparseTimeout = 5 * time.Second
	}
	if l.LLMTimeout <= 0 {
		l.LLMTimeout = 60 * time.Second
	}
	if l.WebTimeout <= 0 {
		l.WebTimeout = 10 * time.Second
	}
	return l
}

// compileChapterShortcuts orders the table by chapter number so the first
// match is deterministic.
func compileChapterShortcuts(titles map[string]string) []chapterShortcut {
	numbers := make([]string, 0, len(titles))
	for n := range titles {
		numbers = append(numbers, n)
	}
	sort.SliceStable(numbers, func(i, j int) bool {
		a, errA := strconv.Atoi(numbers[i])
		b, errB := strconv.Atoi(numbers[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return numbers[i] < numbers[j]
	})

	out := make([]chapterShortcut, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, chapterShortcut{
			pattern: regexp.MustCompile(`\bchapter\s+` + regexp.QuoteMeta(strings.ToLower(n)) + `\b`),
			title:   titles[n],
		})
	}
	return out
}

// Answer routes question and answers it from the evidence of that route.
// Collaborator failures degrade to a refusal; an error is returned only for
// empty input or while ingestion holds the stores.
func (uc *AnswerUseCase) Answer(ctx context.Context, question string, allowWeb bool) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("question is required"))
	}

	if uc.gate != nil {
		release, err := uc.gate.TryQuery(ctx)
		if err != nil {
			return nil, domain.WrapError(domain.ErrTemporary, "answer", err)
		}
		defer release()
	}

	route := routing.Classify(question)
	slog.Debug("route_selected", "route", route.String())

	var text string
	switch route {
	case domain.RouteFact:
		text = uc.answerFact(ctx, question)
	case domain.RouteHybrid:
		text = uc.answerHybrid(ctx, question)
	case domain.RouteWeb:
		text = uc.answerWeb(ctx, question, allowWeb)
	default:
		text, _ = uc.answerText(ctx, question)
	}

	return &domain.Answer{Text: text, Route: route}, nil
}

func (uc *AnswerUseCase) answerFact(ctx context.Context, question string) string {
	fact, ok := uc.lookupFact(ctx, question)
	if !ok {
		return domain.Refusal
	}
	return domain.FactProvenancePrefix + fact.Value
}

func (uc *AnswerUseCase) lookupFact(ctx context.Context, question string) (domain.Fact, bool) {
	if uc.facts == nil {
		return domain.Fact{}, false
	}
	fact, err := uc.facts.Lookup(ctx, question)
	if err != nil {
		if !errors.Is(err, domain.ErrNoFactIntent) {
			slog.Warn("fact_lookup_failed", "error", err.Error())
		}
		return domain.Fact{}, false
	}
	return fact, true
}

func (uc *AnswerUseCase) answerHybrid(ctx context.Context, question string) string {
	var (
		fact     domain.Fact
		factOK   bool
		textAns  string
		textOK   bool
		branches errgroup.Group
	)

	branches.Go(func() error {
		fact, factOK = uc.lookupFact(ctx, question)
		return nil
	})
	branches.Go(func() error {
		textAns, textOK = uc.answerText(ctx, question)
		return nil
	})
	_ = branches.Wait()

	switch {
	case textOK && factOK:
		return textAns + "\n\nFormula / Fact:\n" + fact.Value
	case textOK:
		return textAns
	case factOK:
		return domain.FactProvenancePrefix + fact.Value
	default:
		return domain.Refusal
	}
}

// answerText answers from the textbook passages. The bool is false when the
// result is a refusal.
func (uc *AnswerUseCase) answerText(ctx context.Context, question string) (string, bool) {
	query := normalizeQuestion(question)

	if title, ok := uc.chapterTitle(query); ok {
		return title, true
	}

	dense, sparse := uc.retrieve(ctx, query)
	contextText := joinPassages(uc.fuse(query, dense, sparse))
	if !uc.contextSufficient(contextText) {
		return domain.Refusal, false
	}

	answer, err := uc.complete(ctx, buildTextAnswerPrompt(contextText, query))
	if err != nil {
		slog.Warn("text_answer_llm_failed", "error", err.Error())
		return domain.Refusal, false
	}
	return answer, true
}

func normalizeQuestion(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	if _, ok := chapterOneNameVariants[q]; ok {
		return chapterOneQuestion
	}
	if strings.HasPrefix(q, "chapter") && strings.Contains(q, "summary") {
		return "Give summary of " + question
	}
	return question
}

func (uc *AnswerUseCase) chapterTitle(query string) (string, bool) {
	q := strings.ToLower(query)
	if !strings.Contains(q, "chapter") || !strings.Contains(q, "name") {
		return "", false
	}
	for _, ch := range uc.chapters {
		if ch.pattern.MatchString(q) {
			return ch.title, true
		}
	}
	return "", false
}

// retrieve runs the dense and sparse channels concurrently. A failing
// channel contributes no passages.
func (uc *AnswerUseCase) retrieve(ctx context.Context, query string) (dense, sparse []domain.Passage) {
	var channels errgroup.Group

	channels.Go(func() error {
		passages, err := uc.searchDense(ctx, query)
		if err != nil {
			slog.Warn("dense_retrieval_failed", "error", err.Error())
			return nil
		}
		dense = passages
		return nil
	})
	channels.Go(func() error {
		passages, err := uc.searchSparse(ctx, query)
		if err != nil {
			slog.Warn("sparse_retrieval_failed", "error", err.Error())
			return nil
		}
		sparse = passages
		return nil
	})
	_ = channels.Wait()

	return dense, sparse
}

func (uc *AnswerUseCase) searchDense(ctx context.Context, query string) ([]domain.Passage, error) {
	if uc.embedder == nil || uc.vectorDB == nil {
		return nil, nil
	}
	denseCtx, cancel := context.WithTimeout(ctx, uc.limits.DenseTimeout)
	defer cancel()

	vector, err := uc.embedder.EmbedQuery(denseCtx, query)
	if err != nil {
		return nil, err
	}
	passages, err := uc.vectorDB.Search(denseCtx, vector, uc.limits.DenseTopK)
	if err != nil {
		return nil, err
	}
	return trimPassages(passages, uc.limits.DenseTopK), nil
}

func (uc *AnswerUseCase) searchSparse(ctx context.Context, query string) ([]domain.Passage, error) {
	if uc.lexical == nil {
		return nil, nil
	}
	sparseCtx, cancel := context.WithTimeout(ctx, uc.limits.SparseTimeout)
	defer cancel()

	passages, err := uc.lexical.Search(sparseCtx, query, uc.limits.SparseTopK)
	if err != nil {
		return nil, err
	}
	return trimPassages(passages, uc.limits.SparseTopK), nil
}

func (uc *AnswerUseCase) fuse(query string, dense, sparse []domain.Passage) []domain.Passage {
	limit := uc.limits.DenseTopK + uc.limits.SparseTopK
	switch uc.limits.Fusion {
	case domain.FusionRRF:
		return trimPassages(fusePassagesRRF(dense, sparse, uc.limits.RRFK), limit)
	case domain.FusionRRFRerank:
		fused := fusePassagesRRF(dense, sparse, uc.limits.RRFK)
		return trimPassages(rerankPassages(query, fused, uc.limits.RerankTopN), limit)
	default:
		return concatPassages(dense, sparse)
	}
}

func (uc *AnswerUseCase) contextSufficient(contextText string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(contextText)) >= uc.limits.MinContextChars
}

func (uc *AnswerUseCase) complete(ctx context.Context, prompt string) (string, error) {
	if uc.llm == nil {
		return "", errors.New("language model is not configured")
	}
	llmCtx, cancel := context.WithTimeout(ctx, uc.limits.LLMTimeout)
	defer cancel()

	answer, err := uc.llm.Complete(llmCtx, prompt)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errors.New("language model returned an empty answer")
	}
	return answer, nil
}
