package ghstats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/marioleme/gitfolio/internal/cache"
)

const (
	// languageRepoLimit caps the per-repository fan-out so one aggregation
	// pass cannot burn the whole API quota.
	languageRepoLimit   = 20
	languageConcurrency = 5
)

// languageAggregate is cached wholesale so that a degraded pass stays
// observable even when served from cache.
type languageAggregate struct {
	Totals   LanguageTotals
	Degraded []string
}

// AggregateLanguages merges the language byte maps of the user's own
// repositories into one totals map. Forked and language-less repositories
// are skipped, the working set is capped at the first languageRepoLimit
// qualifying entries, and a repository whose language fetch fails is counted
// in the returned degraded list rather than aborting the aggregation.
func (s *Service) AggregateLanguages(ctx context.Context, username string, repos []RepositorySummary) (LanguageTotals, []string, error) {
	key := fmt.Sprintf("agg_languages_%s", username)
	agg, err := cache.GetOrFetch(ctx, s.store, key, nil,
		func(ctx context.Context) (languageAggregate, error) {
			return s.aggregateLanguages(ctx, username, repos)
		})
	if err != nil {
		return nil, nil, err
	}
	return agg.Totals, agg.Degraded, nil
}

func (s *Service) aggregateLanguages(ctx context.Context, username string, repos []RepositorySummary) (languageAggregate, error) {
	var candidates []RepositorySummary
	for _, r := range repos {
		if r.Fork || r.Language == "" {
			continue
		}
		candidates = append(candidates, r)
		if len(candidates) == languageRepoLimit {
			break
		}
	}

	maps := make([]LanguageTotals, len(candidates))
	var mu sync.Mutex
	var degraded []string

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(languageConcurrency)
	for i, repo := range candidates {
		i, repo := i, repo
		g.Go(func() error {
			langs, err := s.Languages(gCtx, username, repo.Name)
			if err != nil {
				slog.Warn("skipping repo languages", "repo", repo.Name, "error", err)
				mu.Lock()
				degraded = append(degraded, repo.Name)
				mu.Unlock()
				return nil
			}
			maps[i] = langs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return languageAggregate{}, err
	}

	totals := make(LanguageTotals)
	for _, langs := range maps {
		for lang, bytes := range langs {
			totals[lang] += bytes
		}
	}
	return languageAggregate{Totals: totals, Degraded: degraded}, nil
}
