package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testToken = "test-token-0123456789"

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T, tokenHash string, limiter *RateLimiter) *gin.Engine {
	t.Helper()
	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.Use(NewMiddleware(tokenHash, limiter).Handler())
	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/api/books", func(c *gin.Context) { c.String(http.StatusOK, string(GetAuthType(c))) })
	return router
}

func hashedTestToken(t *testing.T) string {
	t.Helper()
	hash, err := HashToken(testToken, bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}

func doRequest(router *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestMiddleware_Disabled(t *testing.T) {
	router := setupRouter(t, "", nil)

	w := doRequest(router, "/api/books", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "none", w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestMiddleware_Enabled(t *testing.T) {
	router := setupRouter(t, hashedTestToken(t), nil)

	tests := []struct {
		name          string
		path          string
		authorization string
		wantStatus    int
	}{
		{"valid token", "/api/books", "Bearer " + testToken, http.StatusOK},
		{"lowercase scheme", "/api/books", "bearer " + testToken, http.StatusOK},
		{"missing header", "/api/books", "", http.StatusUnauthorized},
		{"wrong token", "/api/books", "Bearer nope-nope-nope-nope", http.StatusUnauthorized},
		{"wrong scheme", "/api/books", "Basic " + testToken, http.StatusUnauthorized},
		{"empty token", "/api/books", "Bearer ", http.StatusUnauthorized},
		{"public health", "/health", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, tt.path, tt.authorization)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), "authentication required")
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
			}
		})
	}

	w := doRequest(router, "/api/books", "Bearer "+testToken)
	assert.Equal(t, "bearer", w.Body.String())
}

func TestMiddleware_LocksOutRepeatedFailures(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{MaxAttempts: 3, LockoutDuration: time.Minute})
	defer limiter.Stop()
	router := setupRouter(t, hashedTestToken(t), limiter)

	for i := 0; i < 3; i++ {
		w := doRequest(router, "/api/books", "Bearer wrong-token-wrong-token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := doRequest(router, "/api/books", "Bearer "+testToken)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{MaxAttempts: 2, WindowDuration: time.Minute, LockoutDuration: time.Minute})
	defer limiter.Stop()

	allowed, _ := limiter.Allow("10.0.0.1")
	assert.True(t, allowed)

	locked, _ := limiter.RecordFailure("10.0.0.1")
	assert.False(t, locked)
	locked, retry := limiter.RecordFailure("10.0.0.1")
	assert.True(t, locked)
	assert.Equal(t, time.Minute, retry)

	allowed, _ = limiter.Allow("10.0.0.1")
	assert.False(t, allowed)

	allowed, _ = limiter.Allow("10.0.0.2")
	assert.True(t, allowed, "other clients are unaffected")

	limiter.RecordSuccess("10.0.0.1")
	allowed, _ = limiter.Allow("10.0.0.1")
	assert.True(t, allowed)

	limiter.Stop()
	limiter.Stop()
}
