package websearch

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/kirillkom/textbook-rag/internal/core/ports"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/resilience"
)

// Guarded throttles a provider and runs it through the resilience executor.
type Guarded struct {
	inner    ports.WebSearcher
	limiter  *rate.Limiter
	executor *resilience.Executor
}

// Guard wraps inner. A nil limiter or executor disables that layer.
func Guard(inner ports.WebSearcher, limiter *rate.Limiter, executor *resilience.Executor) *Guarded {
	return &Guarded{inner: inner, limiter: limiter, executor: executor}
}

func (g *Guarded) Name() string { return g.inner.Name() }

func (g *Guarded) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s rate limit: %w", g.inner.Name(), err)
		}
	}

	op := "websearch." + g.inner.Name()
	out, err := resilience.Do(ctx, g.executor, op, func(callCtx context.Context) ([]string, error) {
		return g.inner.Search(callCtx, query, maxResults)
	}, resilience.ClassifyTransport)
	if err != nil {
		return nil, resilience.WrapTemporary(op, err, resilience.ClassifyTransport)
	}
	return out, nil
}
