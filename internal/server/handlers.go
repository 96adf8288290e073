package server

import (
	"context"
	"net/http"
	"regexp"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/marioleme/gitfolio/internal/cache"
	"github.com/marioleme/gitfolio/internal/contact"
	"github.com/marioleme/gitfolio/internal/ghstats"
)

var validUsername = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,37}[a-zA-Z0-9])?$`)

// StatsProvider is the slice of ghstats.Service the handlers need.
type StatsProvider interface {
	UserStats(ctx context.Context, username string) (ghstats.UserStatistics, error)
	RefreshUserStats(ctx context.Context, username string) (ghstats.UserStatistics, error)
	Repositories(ctx context.Context, username string, page, perPage int) ([]ghstats.RepositorySummary, error)
	RepositoryWithStats(ctx context.Context, username, repo string) (ghstats.RepositoryDetails, error)
	ClearCache()
	CacheInfo() cache.Info
}

// Handler holds the HTTP handlers.
type Handler struct {
	stats StatsProvider
	relay contact.Relay
}

// NewHandler creates a handler over the given statistics provider and relay.
func NewHandler(stats StatsProvider, relay contact.Relay) *Handler {
	return &Handler{stats: stats, relay: relay}
}

// Health handles GET /healthz.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// UserStats handles GET /api/users/:username/stats.
func (h *Handler) UserStats(c echo.Context) error {
	username, err := pathUsername(c)
	if err != nil {
		return err
	}
	stats, err := h.stats.UserStats(c.Request().Context(), username)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// RefreshStats handles POST /api/users/:username/stats/refresh. It evicts
// the user's cache entries and recomputes.
func (h *Handler) RefreshStats(c echo.Context) error {
	username, err := pathUsername(c)
	if err != nil {
		return err
	}
	stats, err := h.stats.RefreshUserStats(c.Request().Context(), username)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Repositories handles GET /api/users/:username/repos.
func (h *Handler) Repositories(c echo.Context) error {
	username, err := pathUsername(c)
	if err != nil {
		return err
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))

	repos, err := h.stats.Repositories(c.Request().Context(), username, page, perPage)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, repos)
}

// Repository handles GET /api/users/:username/repos/:repo.
func (h *Handler) Repository(c echo.Context) error {
	username, err := pathUsername(c)
	if err != nil {
		return err
	}
	details, err := h.stats.RepositoryWithStats(c.Request().Context(), username, c.Param("repo"))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, details)
}

// Contact handles POST /api/contact.
func (h *Handler) Contact(c echo.Context) error {
	var msg contact.Message
	if err := c.Bind(&msg); err != nil {
		return c.JSON(http.StatusBadRequest, contact.Result{Message: "invalid request body"})
	}
	if err := msg.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, contact.Result{Message: err.Error()})
	}

	result := h.relay.Send(c.Request().Context(), msg)
	if !result.Success {
		return c.JSON(http.StatusBadGateway, result)
	}
	return c.JSON(http.StatusOK, result)
}

// CacheInfo handles GET /api/cache.
func (h *Handler) CacheInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, h.stats.CacheInfo())
}

// ClearCache handles DELETE /api/cache.
func (h *Handler) ClearCache(c echo.Context) error {
	h.stats.ClearCache()
	return c.NoContent(http.StatusNoContent)
}

func pathUsername(c echo.Context) (string, error) {
	username := c.Param("username")
	if !validUsername.MatchString(username) {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid username")
	}
	return username, nil
}

// apiError maps the ghstats error taxonomy onto HTTP statuses. Rate-limited
// failures only reach here when no cached or synthetic fallback applied.
func apiError(c echo.Context, err error) error {
	switch {
	case ghstats.IsNotFound(err):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	case ghstats.IsRateLimited(err):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "github rate limit exceeded"})
	case ghstats.IsMalformed(err):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "malformed upstream response"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
