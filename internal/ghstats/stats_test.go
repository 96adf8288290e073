package ghstats

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// statsMux fakes the endpoints the composer touches for user "octocat" with
// one own repo ("a", 5 stars, Go) and one fork ("b", 100 stars).
func statsMux(t *testing.T) (*http.ServeMux, *sync.Map) {
	t.Helper()
	var langQueries sync.Map

	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"login":        "octocat",
			"public_repos": 2,
			"followers":    42,
			"following":    7,
			"created_at":   "2011-01-25T18:44:36Z",
			"updated_at":   "2024-06-01T00:00:00Z",
		})
	})
	mux.HandleFunc("/users/octocat/repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{
			{"name": "a", "fork": false, "stargazers_count": 5, "forks_count": 2, "watchers_count": 5, "language": "Go"},
			{"name": "b", "fork": true, "stargazers_count": 100, "forks_count": 40, "watchers_count": 100, "language": "Go"},
		})
	})
	mux.HandleFunc("/users/octocat/events/public", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []map[string]any{
			{"type": "PushEvent", "repo": map[string]any{"name": "octocat/a"}, "created_at": "2024-06-02T09:30:00Z"},
			{"type": "WatchEvent", "repo": map[string]any{"name": "octocat/b"}, "created_at": "2024-06-02T08:00:00Z"},
			{"type": "PushEvent", "repo": map[string]any{"name": "octocat/a"}, "created_at": "2024-06-02T07:00:00Z"},
			{"type": "PushEvent", "repo": map[string]any{"name": "octocat/a"}, "created_at": "2024-06-01T12:00:00Z"},
		})
	})
	mux.HandleFunc("/repos/octocat/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/languages") {
			repo := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/repos/octocat/"), "/languages")
			langQueries.Store(repo, true)
			writeJSON(t, w, map[string]int{"Go": 12345})
			return
		}
		http.NotFound(w, r)
	})

	return mux, &langQueries
}

func TestUserStats(t *testing.T) {
	mux, langQueries := statsMux(t)
	s := newTestService(t, mux)

	stats, err := s.UserStats(context.Background(), "octocat")
	if err != nil {
		t.Fatal(err)
	}

	if stats.TotalRepos != 2 {
		t.Errorf("TotalRepos = %d, want 2 (profile-reported)", stats.TotalRepos)
	}
	if stats.OwnRepos != 1 {
		t.Errorf("OwnRepos = %d, want 1", stats.OwnRepos)
	}
	if stats.TotalStars != 5 {
		t.Errorf("TotalStars = %d, want 5 (fork excluded)", stats.TotalStars)
	}
	if stats.Followers != 42 || stats.Following != 7 {
		t.Errorf("followers/following = %d/%d", stats.Followers, stats.Following)
	}

	if len(stats.TopRepositories) != 1 || stats.TopRepositories[0].Name != "a" {
		t.Errorf("TopRepositories = %+v, want [a]", stats.TopRepositories)
	}

	// Only the own repo's languages may be queried.
	if _, ok := langQueries.Load("b"); ok {
		t.Error("language aggregation queried forked repo b")
	}
	if stats.Languages["Go"] != 12345 {
		t.Errorf("Languages = %v", stats.Languages)
	}

	if len(stats.RecentActivity) != 3 {
		t.Errorf("RecentActivity = %d entries, want 3 push events", len(stats.RecentActivity))
	}
	want := []string{"2024-06-01", "2024-06-02"}
	if len(stats.ContributionDates) != len(want) {
		t.Fatalf("ContributionDates = %v, want %v", stats.ContributionDates, want)
	}
	for i, day := range want {
		if stats.ContributionDates[i] != day {
			t.Errorf("ContributionDates[%d] = %q, want %q", i, stats.ContributionDates[i], day)
		}
	}

	if stats.JoinedDate.Year() != 2011 {
		t.Errorf("JoinedDate = %v", stats.JoinedDate)
	}
	wantActive := time.Date(2024, 6, 2, 9, 30, 0, 0, time.UTC)
	if !stats.LastActive.Equal(wantActive) {
		t.Errorf("LastActive = %v, want %v", stats.LastActive, wantActive)
	}
}

func TestUserStatsCached(t *testing.T) {
	var profileHits int32
	mux, _ := statsMux(t)
	counting := http.NewServeMux()
	counting.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/octocat" {
			atomic.AddInt32(&profileHits, 1)
		}
		mux.ServeHTTP(w, r)
	})

	s := newTestService(t, counting)
	ctx := context.Background()

	if _, err := s.UserStats(ctx, "octocat"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UserStats(ctx, "octocat"); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&profileHits); got != 1 {
		t.Errorf("profile hits = %d, want 1 (second call cached)", got)
	}

	// A refresh evicts the user's entries and refetches.
	if _, err := s.RefreshUserStats(ctx, "octocat"); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&profileHits); got != 2 {
		t.Errorf("profile hits after refresh = %d, want 2", got)
	}
}

func TestUserStatsRateLimitedColdFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
	})

	s := newTestService(t, mux)
	stats, err := s.UserStats(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("expected statistics-shaped fallback, got %v", err)
	}
	if stats.Profile.Login != "octocat" {
		t.Errorf("fallback profile login = %q", stats.Profile.Login)
	}
	if stats.TotalStars != 0 || stats.OwnRepos != 0 {
		t.Errorf("fallback counters should be zero: %+v", stats)
	}
	if stats.Languages == nil || stats.TopRepositories == nil ||
		stats.RecentActivity == nil || stats.ContributionDates == nil {
		t.Error("fallback collections must be empty, never nil")
	}
}

func TestTopByStars(t *testing.T) {
	repos := []RepositorySummary{
		{Name: "low", Stars: 1},
		{Name: "tie-1", Stars: 7},
		{Name: "tie-2", Stars: 7},
		{Name: "high", Stars: 9},
		{Name: "e", Stars: 3}, {Name: "f", Stars: 4},
		{Name: "g", Stars: 5}, {Name: "h", Stars: 6},
	}

	top := topByStars(repos, 6)
	if len(top) != 6 {
		t.Fatalf("len = %d, want 6", len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i].Stars > top[i-1].Stars {
			t.Errorf("not sorted descending at %d: %+v", i, top)
		}
	}
	if top[0].Name != "high" {
		t.Errorf("top[0] = %s, want high", top[0].Name)
	}
	// Equal star counts keep their original relative order.
	if top[1].Name != "tie-1" || top[2].Name != "tie-2" {
		t.Errorf("tie order broken: %s, %s", top[1].Name, top[2].Name)
	}
	// Input order untouched.
	if repos[0].Name != "low" {
		t.Error("input slice was reordered")
	}
}

func TestPushActivity(t *testing.T) {
	day := func(d int, hour int) time.Time {
		return time.Date(2024, 5, d, hour, 0, 0, 0, time.UTC)
	}
	var events []EventRecord
	for i := 0; i < 15; i++ {
		events = append(events, EventRecord{Type: "PushEvent", CreatedAt: day(20-i%3, 10+i%5)})
	}
	events = append(events, EventRecord{Type: "IssuesEvent", CreatedAt: day(1, 1)})

	recent, dates := pushActivity(events)
	if len(recent) != recentActivityLimit {
		t.Errorf("recent = %d, want %d", len(recent), recentActivityLimit)
	}
	// 15 pushes across 3 distinct days, the issue event excluded.
	if len(dates) != 3 {
		t.Fatalf("dates = %v, want 3 distinct days", dates)
	}
	for i := 1; i < len(dates); i++ {
		if dates[i] <= dates[i-1] {
			t.Errorf("dates not strictly ascending: %v", dates)
		}
	}
}

func TestRepositoryWithStats(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/demo", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"name":             "demo",
			"language":         "Go",
			"stargazers_count": 3,
			"updated_at":       "2024-05-01T00:00:00Z",
		})
	})
	mux.HandleFunc("/repos/octocat/demo/languages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]int{"Go": 500})
	})
	mux.HandleFunc("/repos/octocat/demo/commits", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("per_page"); got != "5" {
			t.Errorf("per_page = %q, want 5", got)
		}
		writeJSON(t, w, []map[string]any{
			{
				"sha": "head",
				"commit": map[string]any{
					"message": "latest",
					"author":  map[string]any{"name": "octocat", "date": "2024-05-10T12:00:00Z"},
				},
			},
		})
	})

	s := newTestService(t, mux)
	details, err := s.RepositoryWithStats(context.Background(), "octocat", "demo")
	if err != nil {
		t.Fatal(err)
	}
	if !details.IsActive {
		t.Error("IsActive = false, want true")
	}
	wantCommit := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	if !details.LastCommit.Equal(wantCommit) {
		t.Errorf("LastCommit = %v, want %v", details.LastCommit, wantCommit)
	}
	if details.Languages["Go"] != 500 {
		t.Errorf("Languages = %v", details.Languages)
	}
}

func TestRepositoryWithStatsDegraded(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/quiet", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"name":       "quiet",
			"updated_at": "2024-04-01T00:00:00Z",
		})
	})
	// Languages and commits endpoints are missing: both fetches fail and
	// must degrade to empty collections.

	s := newTestService(t, mux)
	details, err := s.RepositoryWithStats(context.Background(), "octocat", "quiet")
	if err != nil {
		t.Fatal(err)
	}
	if details.IsActive {
		t.Error("IsActive = true, want false with no commits")
	}
	wantUpdated := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	if !details.LastCommit.Equal(wantUpdated) {
		t.Errorf("LastCommit = %v, want repo update time %v", details.LastCommit, wantUpdated)
	}
	if details.Languages == nil || details.RecentCommits == nil {
		t.Error("degraded collections must be empty, never nil")
	}
}
