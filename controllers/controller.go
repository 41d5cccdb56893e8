package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"concierge/config"
	"concierge/models"
	"concierge/session"

	"github.com/gin-gonic/gin"
)

func RespondError(c *gin.Context, msg string, code int) {
	c.JSON(code, gin.H{"error": msg})
}

func RespondSuccess(c *gin.Context, payload any) {
	c.JSON(200, payload)
}

// EventQueue accepts the inbound events of one delivery.
type EventQueue interface {
	Enqueue(ctx context.Context, deliveryID string, events []models.InboundEvent) error
}

// LedgerStats reports ledger rows by status.
type LedgerStats interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// Subscriptions manages the page's webhook subscription.
type Subscriptions interface {
	SubscribeApp(ctx context.Context) error
	SubscribedApps(ctx context.Context) (json.RawMessage, error)
}

// App is what the handlers need besides the database.
type App struct {
	Config   config.Configuration
	Sessions *session.Manager
	Queue    EventQueue
	Stats    LedgerStats
	Graph    Subscriptions
	HTTP     *http.Client // image proxy fetches
}

const appKey = "app"

func SetAppToContext(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(appKey, app)
		c.Next()
	}
}

func AppInstance(c *gin.Context) *App {
	v, ok := c.Get(appKey)
	if !ok {
		return nil
	}
	app, _ := v.(*App)
	return app
}

// GET /health
func Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
