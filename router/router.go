package router

import (
	"log"

	"concierge/controllers"
	dbpkg "concierge/db"
	"concierge/metrics"
	"concierge/middleware"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

// Initialize wires all routes and middlewares.
// Public routes: health, webhook and image proxy. Admin routes need the
// ADMIN_TOKEN bearer.
func Initialize(r *gin.Engine, app *controllers.App, database *gorm.DB) {
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(controllers.SetAppToContext(app))
	if database != nil {
		r.Use(dbpkg.SetDBtoContext(database))
	}

	r.GET("/health", controllers.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Meta webhook (page + instagram)
	r.GET("/webhook", Logger(), controllers.WebhookVerify)
	r.POST("/webhook", Logger(), controllers.WebhookUpdate)

	r.GET("/img", Logger(), controllers.ImageProxy)

	admin := r.Group("/admin")
	admin.Use(Adminizer(app.Config.AdminToken))

	admin.POST("/subscribe", Logger(), controllers.AdminSubscribe)
	admin.GET("/status", Logger(), controllers.AdminStatus)

	// Ledger
	admin.GET("/events", Logger(), controllers.GetEvents)
	admin.GET("/events/processed-per-day", Logger(), controllers.GetEventsProcessedPerDay)
	admin.GET("/events/:id", Logger(), controllers.GetEventByID)

	log.Printf("Routes initialized")
}
