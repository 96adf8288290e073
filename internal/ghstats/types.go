package ghstats

import (
	"time"

	"github.com/google/go-github/v68/github"
)

// Profile holds a GitHub user's public profile.
type Profile struct {
	Login       string    `json:"login"`
	Name        string    `json:"name,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Location    string    `json:"location,omitempty"`
	Blog        string    `json:"blog,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	HTMLURL     string    `json:"html_url,omitempty"`
	PublicRepos int       `json:"public_repos"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RepositorySummary holds the repository metadata used for listing and
// statistics derivation.
type RepositorySummary struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Language    string    `json:"language,omitempty"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	Watchers    int       `json:"watchers"`
	Fork        bool      `json:"fork"`
	UpdatedAt   time.Time `json:"updated_at"`
	Homepage    string    `json:"homepage,omitempty"`
	HTMLURL     string    `json:"html_url,omitempty"`
	CloneURL    string    `json:"clone_url,omitempty"`
}

// CommitRecord holds one commit's metadata.
type CommitRecord struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  string    `json:"author,omitempty"`
	Date    time.Time `json:"date"`
}

// EventRecord holds one entry from a user's public activity timeline.
type EventRecord struct {
	Type      string    `json:"type"`
	Repo      string    `json:"repo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LanguageTotals maps language name to accumulated byte count.
type LanguageTotals map[string]int64

// UserStatistics is the consolidated record the portfolio renders. All
// counters except TotalRepos and Followers/Following are derived from the
// user's own (non-fork) repositories.
type UserStatistics struct {
	Profile Profile `json:"profile"`

	// TotalRepos is the account-wide public count reported by the profile.
	// OwnRepos comes from the capped enumeration (at most 10 pages of 100),
	// so the two are not guaranteed to reconcile for very large accounts.
	TotalRepos int `json:"total_repos"`
	OwnRepos   int `json:"own_repos"`

	TotalStars    int `json:"total_stars"`
	TotalForks    int `json:"total_forks"`
	TotalWatchers int `json:"total_watchers"`
	Followers     int `json:"followers"`
	Following     int `json:"following"`

	Languages         LanguageTotals      `json:"languages"`
	TopRepositories   []RepositorySummary `json:"top_repositories"`
	RecentActivity    []EventRecord       `json:"recent_activity"`
	ContributionDates []string            `json:"contribution_dates"`

	JoinedDate time.Time `json:"joined_date"`
	LastActive time.Time `json:"last_active"`

	// Degraded lists repositories whose language data could not be fetched
	// during aggregation. Empty on a fully successful pass.
	Degraded []string `json:"degraded,omitempty"`
}

// RepositoryDetails enriches a repository with its language map and recent
// commit activity.
type RepositoryDetails struct {
	RepositorySummary
	Languages     LanguageTotals `json:"languages"`
	RecentCommits []CommitRecord `json:"recent_commits"`
	IsActive      bool           `json:"is_active"`
	LastCommit    time.Time      `json:"last_commit"`
}

func profileFrom(u *github.User) Profile {
	return Profile{
		Login:       u.GetLogin(),
		Name:        u.GetName(),
		Bio:         u.GetBio(),
		Location:    u.GetLocation(),
		Blog:        u.GetBlog(),
		AvatarURL:   u.GetAvatarURL(),
		HTMLURL:     u.GetHTMLURL(),
		PublicRepos: u.GetPublicRepos(),
		Followers:   u.GetFollowers(),
		Following:   u.GetFollowing(),
		CreatedAt:   u.GetCreatedAt().Time,
		UpdatedAt:   u.GetUpdatedAt().Time,
	}
}

func repositoryFrom(r *github.Repository) RepositorySummary {
	return RepositorySummary{
		Name:        r.GetName(),
		Description: r.GetDescription(),
		Language:    r.GetLanguage(),
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		Watchers:    r.GetWatchersCount(),
		Fork:        r.GetFork(),
		UpdatedAt:   r.GetUpdatedAt().Time,
		Homepage:    r.GetHomepage(),
		HTMLURL:     r.GetHTMLURL(),
		CloneURL:    r.GetCloneURL(),
	}
}

func commitFrom(c *github.RepositoryCommit) CommitRecord {
	return CommitRecord{
		SHA:     c.GetSHA(),
		Message: c.GetCommit().GetMessage(),
		Author:  c.GetCommit().GetAuthor().GetName(),
		Date:    c.GetCommit().GetAuthor().GetDate().Time,
	}
}

func eventFrom(ev *github.Event) EventRecord {
	return EventRecord{
		Type:      ev.GetType(),
		Repo:      ev.GetRepo().GetName(),
		CreatedAt: ev.GetCreatedAt().Time,
	}
}

func languageTotalsFrom(langs map[string]int) LanguageTotals {
	totals := make(LanguageTotals, len(langs))
	for lang, bytes := range langs {
		totals[lang] = int64(bytes)
	}
	return totals
}

// fallbackJoinDate stands in for the real account creation date when the
// profile cannot be fetched at all.
var fallbackJoinDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func fallbackProfile(username string) Profile {
	return Profile{
		Login:     username,
		CreatedAt: fallbackJoinDate,
		UpdatedAt: time.Now().UTC(),
	}
}

func fallbackStats(username string) UserStatistics {
	p := fallbackProfile(username)
	return UserStatistics{
		Profile:           p,
		Languages:         LanguageTotals{},
		TopRepositories:   []RepositorySummary{},
		RecentActivity:    []EventRecord{},
		ContributionDates: []string{},
		JoinedDate:        p.CreatedAt,
		LastActive:        p.UpdatedAt,
	}
}
