package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-pipeline/internal/shared/server/respond"
	"resume-pipeline/internal/users"
)

const (
	userIDKey   = "userId"
	userRoleKey = "userRole"

	// HeaderUserID and HeaderUserRole carry the identity asserted by the gateway.
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// Identity reads the gateway identity headers and stores the caller in context.
// Requests without a valid identity are rejected with 401.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		rawID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if rawID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}
		userID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || userID <= 0 {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid user id", nil)
			return
		}

		role := users.RoleJobSeeker
		if rawRole := c.GetHeader(HeaderUserRole); strings.TrimSpace(rawRole) != "" {
			role, err = users.ParseRole(rawRole)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid user role", nil)
				return
			}
		}

		c.Set(userIDKey, userID)
		c.Set(userRoleKey, role)
		c.Next()
	}
}

// IdentityFromContext returns the caller stored by Identity.
func IdentityFromContext(c *gin.Context) (users.Identity, bool) {
	if c == nil {
		return users.Identity{}, false
	}
	id, ok := c.Get(userIDKey)
	if !ok {
		return users.Identity{}, false
	}
	userID, ok := id.(int64)
	if !ok {
		return users.Identity{}, false
	}
	role, _ := c.Get(userRoleKey)
	r, _ := role.(users.Role)
	return users.Identity{UserID: userID, Role: r}, true
}

// UserIDFromContext returns the caller id as a string, or "" when anonymous.
func UserIDFromContext(c *gin.Context) string {
	ident, ok := IdentityFromContext(c)
	if !ok {
		return ""
	}
	return strconv.FormatInt(ident.UserID, 10)
}
