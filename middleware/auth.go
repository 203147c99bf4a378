package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"checkin-backend/services"
)

const profileKey = "profile"

// TokenParser validates a session token.
type TokenParser interface {
	ParseToken(raw string) (services.Principal, error)
}

// ProfileResolver looks up the caller's current role.
type ProfileResolver interface {
	Resolve(ctx context.Context, email string) (services.Profile, error)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	// EventSource cannot set headers, so the stream accepts a query token.
	return strings.TrimSpace(c.Query("access_token"))
}

// RequireAuth validates the bearer token and resolves the caller's role on
// every request so removals and demotions apply immediately.
func RequireAuth(tokens TokenParser, profiles ProfileResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "missing bearer token"})
			return
		}
		p, err := tokens.ParseToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid or expired session"})
			return
		}
		profile, err := profiles.Resolve(c.Request.Context(), p.Email)
		if err != nil {
			status := http.StatusForbidden
			if services.CodeOf(err) == services.CodeSyncFailure {
				status = http.StatusServiceUnavailable
			}
			c.AbortWithStatusJSON(status, gin.H{"status": "error", "message": err.Error()})
			return
		}
		c.Set(profileKey, profile)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentProfile(c)
		if !ok || !p.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": "error", "message": "admin access required"})
			return
		}
		c.Next()
	}
}

// CurrentProfile returns the profile stored by RequireAuth.
func CurrentProfile(c *gin.Context) (services.Profile, bool) {
	v, ok := c.Get(profileKey)
	if !ok {
		return services.Profile{}, false
	}
	p, ok := v.(services.Profile)
	return p, ok
}
