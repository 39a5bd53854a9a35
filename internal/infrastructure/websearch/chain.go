package websearch

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/textbook-rag/internal/core/ports"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/resilience"
)

type Config struct {
	Providers     []string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int

	DuckDuckGoURL     string
	DuckDuckGoHTMLURL string
	SurfURL           string
	SurfAPIKey        string
}

// Build returns the providers in configured order, each behind its own limiter.
// surf is skipped when no api key is configured.
func Build(cfg Config, executor *resilience.Executor) ([]ports.WebSearcher, error) {
	out := make([]ports.WebSearcher, 0, len(cfg.Providers))
	for _, raw := range cfg.Providers {
		var provider ports.WebSearcher
		switch name := strings.ToLower(strings.TrimSpace(raw)); name {
		case "":
			continue
		case "duckduckgo":
			provider = NewDuckDuckGo(cfg.DuckDuckGoURL, cfg.Timeout)
		case "duckduckgo_html":
			provider = NewDuckDuckGoHTML(cfg.DuckDuckGoHTMLURL, cfg.Timeout)
		case "surf":
			if cfg.SurfAPIKey == "" {
				continue
			}
			provider = NewSurf(cfg.SurfURL, cfg.SurfAPIKey, cfg.Timeout)
		case "placeholder":
			out = append(out, NewPlaceholder())
			continue
		default:
			return nil, fmt.Errorf("unknown web search provider %q", raw)
		}
		out = append(out, Guard(provider, newLimiter(cfg.RatePerSecond, cfg.Burst), executor))
	}
	return out, nil
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
