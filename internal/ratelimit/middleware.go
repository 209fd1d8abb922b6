package ratelimit

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SubjectFunc extracts the rate limit subject (client IP, user ID) from a request.
type SubjectFunc func(c *gin.Context) string

// RejectFunc writes the response for a rejected or failed check.
type RejectFunc func(c *gin.Context, err error)

// Middleware enforces the scope limit before the handler runs. A limiter
// error fails open.
func Middleware(m *Manager, scope Scope, subject SubjectFunc, reject RejectFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil || subject == nil {
			c.Next()
			return
		}
		result, errCheck := m.Check(c.Request.Context(), scope, subject(c))
		if errors.Is(errCheck, ErrRateLimited) {
			c.Header("X-RateLimit-Remaining", "0")
			retryAfter := int(time.Until(result.Reset).Seconds() + 0.999)
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			reject(c, errCheck)
			return
		}
		if errCheck != nil {
			log.WithError(errCheck).WithField("scope", scope.String()).Warn("rate limit: check failed")
			c.Next()
			return
		}
		if !result.Reset.IsZero() {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		}
		c.Next()
	}
}

// ClientIP keys requests by the client address gin resolves.
func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}
