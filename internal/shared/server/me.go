package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-pipeline/internal/shared/server/middleware"
	"resume-pipeline/internal/shared/server/respond"
	"resume-pipeline/internal/users"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"userId":    ident.UserID,
		"role":      ident.Role,
		"canUpload": ident.Role.Can(users.PermUploadResume),
		"canMatch":  ident.Role.Can(users.PermMatchResume) || ident.Role.Can(users.PermMatchOwnResume),
	})
}
