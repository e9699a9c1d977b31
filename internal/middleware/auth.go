package middleware

import (
	"errors"
	"net/http"
	"strings"

	pkgAuth "zhuoji-service/pkg/auth"

	"github.com/gin-gonic/gin"
)

const ContextSessionIDKey = "sessionID"

// SessionAuthRequired admits requests carrying a token for the session named
// by the :id path parameter.
func SessionAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := pkgAuth.ParseSessionToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if id := c.Param("id"); id != "" && id != claims.SubjectID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token belongs to another session"})
			return
		}

		c.Set(ContextSessionIDKey, claims.SubjectID)
		c.Next()
	}
}

func ExtractBearerToken(authHeader string) (string, error) {
	if strings.TrimSpace(authHeader) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
