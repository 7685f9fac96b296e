package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"converse-service/internal/models"
	"converse-service/internal/observability"
)

// Directory result bounds: browsing the directory returns more rows than a
// targeted search.
const (
	browseLimit = 50
	searchLimit = 10
)

type identityClient interface {
	ListUsers(ctx context.Context, query string, limit int) ([]models.SearchedUser, error)
}

// UserHandler serves the user directory search endpoint.
type UserHandler struct {
	identity identityClient
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(identity identityClient) *UserHandler {
	return &UserHandler{identity: identity}
}

// Search handles GET /api/users/search. An empty query browses the
// directory (up to 50 users); otherwise up to 10 matches are returned. The
// caller never appears in the results.
func (h *UserHandler) Search(c *gin.Context) {
	callerID := userIDFromContext(c)
	query := strings.TrimSpace(c.Query("query"))

	mode := "search"
	limit := searchLimit
	if query == "" {
		mode = "browse"
		limit = browseLimit
	}

	// Ask for one extra row so filtering the caller out cannot shrink a
	// full page below the limit.
	records, err := h.identity.ListUsers(c.Request.Context(), query, limit+1)
	if err != nil {
		observability.IncDirectorySearch(mode, "error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "users": []models.SearchedUser{}})
		return
	}

	seen := map[string]struct{}{}
	users := make([]models.SearchedUser, 0, limit)
	for _, user := range records {
		if user.ID == callerID {
			continue
		}
		if _, dup := seen[user.ID]; dup {
			continue
		}
		seen[user.ID] = struct{}{}
		users = append(users, user)
		if len(users) == limit {
			break
		}
	}

	observability.IncDirectorySearch(mode, "ok")
	c.JSON(http.StatusOK, gin.H{"users": users})
}
