package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// operatorCtxKey is the Gin context key used to store the authenticated operator.
const operatorCtxKey = "operator"

// APIKeyMiddleware guards the operator-only surface by mapping
// X-API-Key → operator name. The event endpoints stay public: they are called
// cross-origin from browsers and cannot carry a secret.
func APIKeyMiddleware(keys map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader("X-API-Key"))
		operator, ok := keys[apiKey]
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(operatorCtxKey, operator)
		c.Next()
	}
}

// Operator returns the authenticated operator name from the request context.
func Operator(c *gin.Context) string {
	v, _ := c.Get(operatorCtxKey)
	s, _ := v.(string)
	return s
}
