package ghstats

import (
	"net/http"
	"time"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// newGitHubClient builds a go-github client. An empty token yields an
// unauthenticated client (the public API works without one, at a lower
// quota). Rate-limit handling lives in the cache gateway, not here, so the
// transport does no retrying of its own.
func newGitHubClient(token string) *github.Client {
	transport := http.DefaultTransport
	if token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   http.DefaultTransport,
		}
	}
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}
	return github.NewClient(httpClient)
}
