package router

import (
	"crypto/subtle"
	"net/http"

	"concierge/controllers"

	"github.com/gin-gonic/gin"
)

// Adminizer blocks access unless the request carries the admin bearer token.
// With no ADMIN_TOKEN configured the admin routes are closed.
func Adminizer(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminToken == "" {
			controllers.RespondError(c, "admin disabled", http.StatusForbidden)
			c.Abort()
			return
		}
		token := controllers.BearerToken(c)
		if token == "" {
			controllers.RespondError(c, "unauthorized", http.StatusUnauthorized)
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
			controllers.RespondError(c, "admin required", http.StatusForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
