package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID   = "userID"
	ContextUserName = "userName"
	ContextUserRole = "userRole"
)

type tokenParser interface {
	ParseToken(token string) (*Claims, error)
}

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Name   string
	Role   string
}

// AuthMiddleware validates the bearer token of the Authorization header. When
// allowQuery is set, a token query parameter is accepted as well, for
// websocket clients that cannot set headers.
func AuthMiddleware(tokens tokenParser, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c, allowQuery)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		claims, err := tokens.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserName, claims.Name)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

func bearerToken(c *gin.Context, allowQuery bool) (string, bool) {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if allowQuery {
		if token := c.Query("token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// PrincipalFromContext returns the caller set by AuthMiddleware.
func PrincipalFromContext(c *gin.Context) (Principal, bool) {
	userID := c.GetString(ContextUserID)
	if userID == "" {
		return Principal{}, false
	}
	return Principal{
		UserID: userID,
		Name:   c.GetString(ContextUserName),
		Role:   c.GetString(ContextUserRole),
	}, true
}
