package ratelimit

import (
	"fmt"
	"strings"
)

// KeyForDecision builds a limiter key for the resolved scope. Login limits are
// keyed by client IP, vote limits by user ID.
func KeyForDecision(subject string, decision Decision) string {
	subject = strings.TrimSpace(subject)
	if subject == "" || decision.Limit <= 0 {
		return ""
	}
	switch decision.Scope {
	case ScopeLogin:
		return fmt.Sprintf("login:ip:%s", subject)
	case ScopeVote:
		return fmt.Sprintf("vote:u:%s", subject)
	default:
		return ""
	}
}
