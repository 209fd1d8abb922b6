package apiutil

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/logging"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/security"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/session"
)

const identityKey = "identity"

// Authenticator resolves the caller behind an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*session.Identity, error)
}

// RequireAuth validates the Bearer access token and stores the identity.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			Fail(c, http.StatusUnauthorized, CodeTokenInvalid, "missing authorization header")
			return
		}
		token, ok := bearerToken(authHeader)
		if !ok {
			Fail(c, http.StatusUnauthorized, CodeTokenMalformed, "invalid authorization format")
			return
		}
		if token == "" {
			Error(c, security.ErrTokenMalformed)
			return
		}

		ident, errAuth := auth.Authenticate(c.Request.Context(), token)
		if errAuth != nil {
			Error(c, errAuth)
			return
		}
		c.Set(identityKey, ident)
		c.Set(logging.UserIDKey, ident.User.ID)
		c.Next()
	}
}

// bearerToken extracts the credential from an Authorization header. The
// scheme name is case-insensitive (RFC 7235).
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// RequireAdmin rejects callers without the admin flag. It must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := CurrentIdentity(c)
		if !ok {
			Error(c, session.ErrInvalidSession)
			return
		}
		if !ident.User.IsAdmin {
			Fail(c, http.StatusForbidden, CodeForbidden, "admin access required")
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by RequireAuth.
func CurrentIdentity(c *gin.Context) (*session.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	ident, ok := value.(*session.Identity)
	return ident, ok && ident != nil
}

// UserSubject keys per-user rate limits on the authenticated user.
func UserSubject(c *gin.Context) string {
	ident, ok := CurrentIdentity(c)
	if !ok {
		return ""
	}
	return strconv.FormatUint(ident.User.ID, 10)
}
