package ghstats

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/marioleme/gitfolio/internal/cache"
)

const (
	topRepoCount        = 6
	recentActivityLimit = 10
	eventFetchSize      = 100
	enrichCommitCount   = 5
)

// UserStats composes the consolidated statistics record for a user. The
// profile, full repository enumeration, and most recent public events are
// fetched concurrently; the composition proceeds only once all three have
// settled and fails as a whole if any of them fails terminally. The result
// is cached under its own key, so repeated calls within the freshness window
// skip every sub-fetch.
func (s *Service) UserStats(ctx context.Context, username string) (UserStatistics, error) {
	key := fmt.Sprintf("stats_%s", username)
	return cache.GetOrFetch(ctx, s.store, key,
		func() UserStatistics { return fallbackStats(username) },
		func(ctx context.Context) (UserStatistics, error) {
			return s.composeUserStats(ctx, username)
		})
}

func (s *Service) composeUserStats(ctx context.Context, username string) (UserStatistics, error) {
	var (
		profile Profile
		repos   []RepositorySummary
		events  []EventRecord
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.Profile(gCtx, username)
		return err
	})
	g.Go(func() error {
		var err error
		repos, err = s.AllRepositories(gCtx, username)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = s.Events(gCtx, username, 1, eventFetchSize)
		return err
	})
	if err := g.Wait(); err != nil {
		return UserStatistics{}, err
	}

	// All aggregate counters exclude forks.
	var own []RepositorySummary
	for _, r := range repos {
		if !r.Fork {
			own = append(own, r)
		}
	}

	stats := UserStatistics{
		Profile:    profile,
		TotalRepos: profile.PublicRepos,
		OwnRepos:   len(own),
		Followers:  profile.Followers,
		Following:  profile.Following,
		JoinedDate: profile.CreatedAt,
		LastActive: profile.UpdatedAt,
	}
	for _, r := range own {
		stats.TotalStars += r.Stars
		stats.TotalForks += r.Forks
		stats.TotalWatchers += r.Watchers
	}

	languages, degraded, err := s.AggregateLanguages(ctx, username, own)
	if err != nil {
		return UserStatistics{}, err
	}
	stats.Languages = languages
	stats.Degraded = degraded

	stats.TopRepositories = topByStars(own, topRepoCount)
	stats.RecentActivity, stats.ContributionDates = pushActivity(events)
	if len(events) > 0 {
		stats.LastActive = events[0].CreatedAt
	}
	return stats, nil
}

// topByStars returns the n highest-starred repositories, ties keeping their
// original list order. The input slice is not reordered.
func topByStars(repos []RepositorySummary, n int) []RepositorySummary {
	ranked := make([]RepositorySummary, len(repos))
	copy(ranked, repos)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Stars > ranked[j].Stars
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// pushActivity filters the timeline down to push events and derives the
// recent-activity window plus the distinct contribution dates, ascending.
func pushActivity(events []EventRecord) ([]EventRecord, []string) {
	pushes := []EventRecord{}
	seen := make(map[string]bool)
	for _, ev := range events {
		if ev.Type != "PushEvent" {
			continue
		}
		pushes = append(pushes, ev)
		seen[ev.CreatedAt.UTC().Format("2006-01-02")] = true
	}

	recent := pushes
	if len(recent) > recentActivityLimit {
		recent = recent[:recentActivityLimit]
	}

	dates := make([]string, 0, len(seen))
	for day := range seen {
		dates = append(dates, day)
	}
	sort.Strings(dates)
	return recent, dates
}

// RepositoryWithStats enriches a single repository with its language map and
// five most recent commits. Language and commit failures degrade to empty
// collections; only the metadata fetch is load-bearing.
func (s *Service) RepositoryWithStats(ctx context.Context, username, repo string) (RepositoryDetails, error) {
	key := fmt.Sprintf("repo_stats_%s_%s", username, repo)
	return cache.GetOrFetch(ctx, s.store, key, nil,
		func(ctx context.Context) (RepositoryDetails, error) {
			var (
				summary RepositorySummary
				langs   LanguageTotals
				commits []CommitRecord
			)

			g, gCtx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				summary, err = s.Repository(gCtx, username, repo)
				return err
			})
			g.Go(func() error {
				l, err := s.Languages(gCtx, username, repo)
				if err == nil {
					langs = l
				}
				return nil
			})
			g.Go(func() error {
				c, err := s.Commits(gCtx, username, repo, 1, enrichCommitCount)
				if err == nil {
					commits = c
				}
				return nil
			})
			if err := g.Wait(); err != nil {
				return RepositoryDetails{}, err
			}

			if langs == nil {
				langs = LanguageTotals{}
			}
			if commits == nil {
				commits = []CommitRecord{}
			}

			details := RepositoryDetails{
				RepositorySummary: summary,
				Languages:         langs,
				RecentCommits:     commits,
				IsActive:          len(commits) > 0,
				LastCommit:        summary.UpdatedAt,
			}
			if len(commits) > 0 {
				details.LastCommit = commits[0].Date
			}
			return details, nil
		})
}

// RefreshUserStats evicts every cache entry scoped to username and
// recomputes the statistics record.
func (s *Service) RefreshUserStats(ctx context.Context, username string) (UserStatistics, error) {
	s.evictUser(username)
	return s.UserStats(ctx, username)
}
