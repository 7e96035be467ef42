package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Widgets embed on arbitrary customer sites, so the reviews API answers any
// origin. Key-level domain restrictions are enforced in the handler, not
// here; CORS alone is not an auth boundary.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Widget-API-Key, X-Test-Mode, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
