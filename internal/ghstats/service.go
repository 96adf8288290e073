// Package ghstats gathers a GitHub user's profile, repositories, languages,
// and activity into portfolio statistics. Every fetch goes through the cache
// gateway so repeated views within the freshness window cost no API calls,
// and quota exhaustion degrades to stale or synthetic data instead of errors.
package ghstats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v68/github"

	"github.com/marioleme/gitfolio/internal/cache"
)

const (
	defaultPageSize = 30
	commitPageSize  = 10
	// Full enumeration walks pages of 100 but never more than 10 of them,
	// guarding against runaway pagination if the API drifts.
	fullEnumPageSize = 100
	maxRepoPages     = 10
)

// Service exposes typed accessors over the GitHub API with caching and
// fallback semantics. Construct one per process; it is safe for concurrent
// use.
type Service struct {
	client *github.Client
	store  *cache.Store
}

// NewService returns a Service with its own cache. token may be empty for
// unauthenticated access; a cacheTTL of zero means cache.DefaultTTL.
func NewService(token string, cacheTTL time.Duration) *Service {
	return &Service{
		client: newGitHubClient(token),
		store:  cache.New(cacheTTL, cache.WithRateLimitedCheck(IsRateLimited)),
	}
}

// newServiceWith wires an explicit client and store. Test seam.
func newServiceWith(client *github.Client, store *cache.Store) *Service {
	return &Service{client: client, store: store}
}

// Profile fetches a user's public profile.
func (s *Service) Profile(ctx context.Context, username string) (Profile, error) {
	key := fmt.Sprintf("profile_%s", username)
	return cache.GetOrFetch(ctx, s.store, key,
		func() Profile { return fallbackProfile(username) },
		func(ctx context.Context) (Profile, error) {
			user, _, err := s.client.Users.Get(ctx, username)
			if err != nil {
				return Profile{}, classify(err)
			}
			return profileFrom(user), nil
		})
}

// Repositories fetches one page of a user's own repositories, most recently
// updated first. page and perPage fall back to 1 and 30.
func (s *Service) Repositories(ctx context.Context, username string, page, perPage int) ([]RepositorySummary, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPageSize
	}
	key := fmt.Sprintf("repos_%s_%d_%d", username, page, perPage)
	return cache.GetOrFetch(ctx, s.store, key,
		func() []RepositorySummary { return []RepositorySummary{} },
		func(ctx context.Context) ([]RepositorySummary, error) {
			opts := &github.RepositoryListByUserOptions{
				Sort:        "updated",
				Type:        "owner",
				ListOptions: github.ListOptions{Page: page, PerPage: perPage},
			}
			repos, _, err := s.client.Repositories.ListByUser(ctx, username, opts)
			if err != nil {
				return nil, classify(err)
			}
			result := make([]RepositorySummary, 0, len(repos))
			for _, r := range repos {
				result = append(result, repositoryFrom(r))
			}
			return result, nil
		})
}

// AllRepositories enumerates a user's repositories across pages of 100,
// stopping at the first short page or after maxRepoPages pages. The per-page
// fetches are themselves cached, so a refresh within the window only re-runs
// the concatenation.
func (s *Service) AllRepositories(ctx context.Context, username string) ([]RepositorySummary, error) {
	key := fmt.Sprintf("all_repos_%s", username)
	return cache.GetOrFetch(ctx, s.store, key,
		func() []RepositorySummary { return []RepositorySummary{} },
		func(ctx context.Context) ([]RepositorySummary, error) {
			var all []RepositorySummary
			for page := 1; page <= maxRepoPages; page++ {
				repos, err := s.Repositories(ctx, username, page, fullEnumPageSize)
				if err != nil {
					return nil, err
				}
				all = append(all, repos...)
				if len(repos) < fullEnumPageSize {
					break
				}
			}
			return all, nil
		})
}

// Repository fetches a single repository's metadata.
func (s *Service) Repository(ctx context.Context, username, repo string) (RepositorySummary, error) {
	key := fmt.Sprintf("repo_%s_%s", username, repo)
	return cache.GetOrFetch(ctx, s.store, key, nil,
		func(ctx context.Context) (RepositorySummary, error) {
			r, _, err := s.client.Repositories.Get(ctx, username, repo)
			if err != nil {
				return RepositorySummary{}, classify(err)
			}
			return repositoryFrom(r), nil
		})
}

// Languages fetches a repository's language byte map.
func (s *Service) Languages(ctx context.Context, username, repo string) (LanguageTotals, error) {
	key := fmt.Sprintf("languages_%s_%s", username, repo)
	return cache.GetOrFetch(ctx, s.store, key, nil,
		func(ctx context.Context) (LanguageTotals, error) {
			langs, _, err := s.client.Repositories.ListLanguages(ctx, username, repo)
			if err != nil {
				return nil, classify(err)
			}
			return languageTotalsFrom(langs), nil
		})
}

// Commits fetches one page of a repository's commit history, newest first.
func (s *Service) Commits(ctx context.Context, username, repo string, page, perPage int) ([]CommitRecord, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = commitPageSize
	}
	key := fmt.Sprintf("commits_%s_%s_%d", username, repo, page)
	return cache.GetOrFetch(ctx, s.store, key, nil,
		func(ctx context.Context) ([]CommitRecord, error) {
			opts := &github.CommitsListOptions{
				ListOptions: github.ListOptions{Page: page, PerPage: perPage},
			}
			commits, _, err := s.client.Repositories.ListCommits(ctx, username, repo, opts)
			if err != nil {
				return nil, classify(err)
			}
			result := make([]CommitRecord, 0, len(commits))
			for _, c := range commits {
				result = append(result, commitFrom(c))
			}
			return result, nil
		})
}

// Events fetches one page of a user's public activity timeline.
func (s *Service) Events(ctx context.Context, username string, page, perPage int) ([]EventRecord, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPageSize
	}
	key := fmt.Sprintf("events_%s_%d", username, page)
	return cache.GetOrFetch(ctx, s.store, key,
		func() []EventRecord { return []EventRecord{} },
		func(ctx context.Context) ([]EventRecord, error) {
			opts := &github.ListOptions{Page: page, PerPage: perPage}
			events, _, err := s.client.Activity.ListEventsPerformedByUser(ctx, username, true, opts)
			if err != nil {
				return nil, classify(err)
			}
			result := make([]EventRecord, 0, len(events))
			for _, ev := range events {
				result = append(result, eventFrom(ev))
			}
			return result, nil
		})
}

// ClearCache drops every cached entry. Used for forced refresh.
func (s *Service) ClearCache() {
	s.store.Clear()
}

// CacheInfo reports the cache's entry count and keys.
func (s *Service) CacheInfo() cache.Info {
	return s.store.Info()
}

// evictUser drops every cache entry scoped to username.
func (s *Service) evictUser(username string) {
	for _, category := range []string{
		"stats", "agg_languages", "profile", "repos", "all_repos",
		"events", "repo", "repo_stats", "languages", "commits",
	} {
		s.store.Evict(fmt.Sprintf("%s_%s", category, username))
	}
}
