package router

import (
	"log"
	"time"

	"concierge/middleware"

	"github.com/gin-gonic/gin"
)

// Logger logs method, path, status, latency and the request id.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		log.Printf("%s %s -> %d (%s) req=%s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), duration, middleware.RequestIDFrom(c))
	}
}
