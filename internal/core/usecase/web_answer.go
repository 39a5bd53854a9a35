package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

func (uc *AnswerUseCase) answerWeb(ctx context.Context, question string, allowWeb bool) string {
	if !allowWeb {
		return domain.Refusal
	}

	snippets := uc.searchWeb(ctx, question)
	if len(snippets) == 0 {
		return fmt.Sprintf(noWebResultsTemplate, question)
	}

	joined := strings.Join(snippets, "\n\n")
	if hasPlaceholderMarker(joined) {
		return joined
	}

	answer, err := uc.complete(ctx, buildWebAnswerPrompt(joined, question))
	if err != nil {
		slog.Warn("web_answer_llm_failed", "error", err.Error())
		return joined
	}
	return answer
}

// searchWeb asks providers in order and returns the first non-empty result
// set. Results from different providers are never merged.
func (uc *AnswerUseCase) searchWeb(ctx context.Context, question string) []string {
	for _, provider := range uc.web {
		if ctx.Err() != nil {
			return nil
		}
		webCtx, cancel := context.WithTimeout(ctx, uc.limits.WebTimeout)
		results, err := provider.Search(webCtx, question, uc.limits.WebMaxResults)
		cancel()
		if err != nil {
			slog.Warn("web_search_failed", "provider", provider.Name(), "error", err.Error())
			continue
		}

		snippets := make([]string, 0, len(results))
		for _, r := range results {
			if r = strings.TrimSpace(r); r != "" {
				snippets = append(snippets, r)
			}
		}
		if len(snippets) == 0 {
			continue
		}
		if len(snippets) > uc.limits.WebMaxResults {
			snippets = snippets[:uc.limits.WebMaxResults]
		}
		slog.Debug("web_search_selected", "provider", provider.Name(), "results", len(snippets))
		return snippets
	}
	return nil
}

func hasPlaceholderMarker(text string) bool {
	for _, marker := range domain.WebPlaceholderMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
