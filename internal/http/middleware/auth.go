package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pranathisri21/frame-vault/internal/identity"
)

const handleKey = "framevault.handle"

// Authenticator resolves a session token to the signed-in user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity.Handle, error)
}

// RequireUser rejects requests without a valid session. The token is read
// from the session cookie first and then from a Bearer Authorization header.
func RequireUser(auth Authenticator, cookieName string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookieName)
		if token == "" {
			abortJSON(c, http.StatusUnauthorized, "sign in required")
			return
		}

		handle, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, identity.ErrUnauthorized) {
				logger.Error("failed to authenticate request", "error", err)
				abortJSON(c, http.StatusInternalServerError, "failed to check session")
				return
			}
			abortJSON(c, http.StatusUnauthorized, "sign in required")
			return
		}

		c.Set(handleKey, handle)
		c.Next()
	}
}

// RequireAdmin must run after RequireUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		handle, ok := CurrentHandle(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "sign in required")
			return
		}
		if !handle.Admin {
			abortJSON(c, http.StatusForbidden, "admin access required")
			return
		}
		c.Next()
	}
}

// CurrentHandle returns the user attached by RequireUser.
func CurrentHandle(c *gin.Context) (identity.Handle, bool) {
	v, ok := c.Get(handleKey)
	if !ok {
		return identity.Handle{}, false
	}
	handle, ok := v.(identity.Handle)
	return handle, ok
}

// SetHandle attaches handle to the request context.
func SetHandle(c *gin.Context, handle identity.Handle) {
	c.Set(handleKey, handle)
}

// SessionToken extracts the session token from the cookie or the
// Authorization header.
func SessionToken(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func abortJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
