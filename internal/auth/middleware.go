package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys for auth data
const (
	ContextKeyAuthType = "auth_type" // "bearer" or "none"
)

// AuthType indicates how the request was authenticated
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBearer AuthType = "bearer"
)

// Middleware checks the Authorization header against a bcrypt token hash.
type Middleware struct {
	tokenHash   string
	limiter     *RateLimiter
	publicPaths map[string]bool
}

// NewMiddleware creates a new authentication middleware. An empty tokenHash
// disables authentication. limiter may be nil.
func NewMiddleware(tokenHash string, limiter *RateLimiter) *Middleware {
	return &Middleware{
		tokenHash: tokenHash,
		limiter:   limiter,
		publicPaths: map[string]bool{
			"/health": true,
			"/ping":   true,
		},
	}
}

// Enabled reports whether a token is required.
func (m *Middleware) Enabled() bool {
	return m.tokenHash != ""
}

// Handler returns a Gin middleware handler that authenticates requests.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.Enabled() || m.publicPaths[c.Request.URL.Path] {
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
			return
		}

		ip := c.ClientIP()
		if m.limiter != nil {
			if allowed, retryAfter := m.limiter.Allow(ip); !allowed {
				c.Header("Retry-After", retryAfter.String())
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"error":       "too many failed authentication attempts",
					"retry_after": retryAfter.String(),
				})
				return
			}
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok || CheckToken(token, m.tokenHash) != nil {
			if m.limiter != nil {
				m.limiter.RecordFailure(ip)
			}
			c.Header("WWW-Authenticate", `Bearer realm="calibre-bridge"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		if m.limiter != nil {
			m.limiter.RecordSuccess(ip)
		}
		c.Set(ContextKeyAuthType, AuthTypeBearer)
		c.Next()
	}
}

// bearerToken extracts the token from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// GetAuthType returns how the current request was authenticated.
func GetAuthType(c *gin.Context) AuthType {
	if v, ok := c.Get(ContextKeyAuthType); ok {
		if t, ok := v.(AuthType); ok {
			return t
		}
	}
	return AuthTypeNone
}
