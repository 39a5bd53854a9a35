package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
)

const rustingOfIron = "Rusting of Iron"

var relationQueries = map[string]string{
	domain.RelationHasFormula: `MATCH (c:Concept {name: $concept})-[:HAS_FORMULA]->(f:Formula)
RETURN f.expression AS value LIMIT 1`,
	domain.RelationBelongsTo: `MATCH (c:Concept {name: $concept})-[:BELONGS_TO]->(ch:Chapter)
RETURN ch.name AS value LIMIT 1`,
}

// DefaultFactIntents are used when no catalog provides intents.
func DefaultFactIntents() []domain.FactIntent {
	return []domain.FactIntent{
		{Name: "rust_formula", Triggers: []string{"formula", "rust"}, Concept: rustingOfIron, Relation: domain.RelationHasFormula},
		{Name: "rust_chapter", Triggers: []string{"chapter", "rust"}, Concept: rustingOfIron, Relation: domain.RelationBelongsTo},
	}
}

// ValidateFactIntent reports whether an intent can be resolved by a known graph query.
func ValidateFactIntent(intent domain.FactIntent) error {
	if strings.TrimSpace(intent.Concept) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate fact intent", fmt.Errorf("intent %q has no concept", intent.Name))
	}
	if len(intent.Triggers) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate fact intent", fmt.Errorf("intent %q has no triggers", intent.Name))
	}
	if _, ok := relationQueries[intent.Relation]; !ok {
		return domain.WrapError(domain.ErrInvalidInput, "validate fact intent", fmt.Errorf("intent %q has unknown relation %q", intent.Name, intent.Relation))
	}
	return nil
}

type FactLookupUseCase struct {
	graph   ports.GraphStore
	intents []domain.FactIntent
	timeout time.Duration
}

func NewFactLookupUseCase(graph ports.GraphStore, intents []domain.FactIntent, timeout time.Duration) *FactLookupUseCase {
	if len(intents) == 0 {
		intents = DefaultFactIntents()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &FactLookupUseCase{
		graph:   graph,
		intents: intents,
		timeout: timeout,
	}
}

// Lookup resolves question against the first matching intent. The error kind
// tells apart a question with no intent (ErrNoFactIntent), an intent with no
// stored fact (ErrFactNotFound) and an unreachable store (ErrTemporary).
func (uc *FactLookupUseCase) Lookup(ctx context.Context, question string) (domain.Fact, error) {
	intent, ok := uc.match(question)
	if !ok {
		return domain.Fact{}, domain.WrapError(domain.ErrNoFactIntent, "fact lookup", fmt.Errorf("question %q", question))
	}

	query, ok := relationQueries[intent.Relation]
	if !ok {
		return domain.Fact{}, domain.WrapError(domain.ErrNoFactIntent, "fact lookup", fmt.Errorf("unsupported relation %q", intent.Relation))
	}

	lookupCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	rows, err := uc.graph.Run(lookupCtx, query, map[string]any{"concept": intent.Concept})
	if err != nil {
		if errors.Is(err, domain.ErrTemporary) {
			return domain.Fact{}, fmt.Errorf("fact lookup %s: %w", intent.Name, err)
		}
		return domain.Fact{}, domain.WrapError(domain.ErrTemporary, "fact lookup "+intent.Name, err)
	}

	value := firstValue(rows)
	if value == "" {
		return domain.Fact{}, domain.WrapError(domain.ErrFactNotFound, "fact lookup", fmt.Errorf("%s of %q", intent.Relation, intent.Concept))
	}

	return domain.Fact{
		Value:   value,
		Concept: intent.Concept,
		Intent:  intent.Name,
	}, nil
}

func (uc *FactLookupUseCase) match(question string) (domain.FactIntent, bool) {
	q := strings.ToLower(question)
	for _, intent := range uc.intents {
		if matchesAll(q, intent.Triggers) {
			return intent, true
		}
	}
	return domain.FactIntent{}, false
}

func matchesAll(q string, triggers []string) bool {
	if len(triggers) == 0 {
		return false
	}
	for _, trigger := range triggers {
		if !strings.Contains(q, strings.ToLower(trigger)) {
			return false
		}
	}
	return true
}

func firstValue(rows []map[string]any) string {
	if len(rows) == 0 {
		return ""
	}
	raw, ok := rows[0]["value"]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
