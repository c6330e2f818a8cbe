package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthRouter(tokens *TokenService, allowQuery bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(tokens, allowQuery), func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": p.UserID, "name": p.Name, "role": p.Role})
	})
	return r
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	tokens := NewTokenService("secret", time.Hour)
	token, err := tokens.GenerateToken("u1", "Ana", "worker")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	setupAuthRouter(tokens, false).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"u1","name":"Ana","role":"worker"}`, rec.Body.String())
}

func TestAuthMiddlewareRejectsMissingAndInvalidTokens(t *testing.T) {
	tokens := NewTokenService("secret", time.Hour)
	router := setupAuthRouter(tokens, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := NewTokenService("other", time.Hour).GenerateToken("u1", "Ana", "worker")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareQueryToken(t *testing.T) {
	tokens := NewTokenService("secret", time.Hour)
	token, err := tokens.GenerateToken("u1", "Ana", "worker")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	setupAuthRouter(tokens, false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me?token="+token, nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	setupAuthRouter(tokens, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me?token="+token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	tokens := &TokenService{secret: []byte("secret"), ttl: -time.Minute}
	token, err := tokens.GenerateToken("u1", "Ana", "worker")
	require.NoError(t, err)

	_, err = tokens.ParseToken(token)
	require.Error(t, err)
}
