package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/http/api/apiutil"
)

// Me returns the caller's profile as of the current request.
func Me(c *gin.Context) {
	ident, ok := apiutil.CurrentIdentity(c)
	if !ok {
		apiutil.Fail(c, http.StatusUnauthorized, apiutil.CodeInvalidSession, "invalid session")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    formatUser(&ident.User),
		"session": formatSession(&ident.Session, ident.Session.ID),
	})
}
