package controllers

import (
	"context"
	"net/http"
	"time"

	dbpkg "concierge/db"

	"github.com/gin-gonic/gin"
)

const adminTimeout = 15 * time.Second

// POST /admin/subscribe
func AdminSubscribe(c *gin.Context) {
	app := AppInstance(c)
	if app == nil || app.Graph == nil {
		RespondError(c, "graph client not configured", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), adminTimeout)
	defer cancel()

	if err := app.Graph.SubscribeApp(ctx); err != nil {
		RespondError(c, err.Error(), http.StatusBadGateway)
		return
	}
	RespondSuccess(c, gin.H{"success": true})
}

// GET /admin/status
func AdminStatus(c *gin.Context) {
	app := AppInstance(c)
	if app == nil {
		RespondError(c, "app not configured", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), adminTimeout)
	defer cancel()

	out := gin.H{
		"features": app.Config.Features,
		"warnings": app.Config.Warnings(),
	}

	if app.Graph != nil {
		if subs, err := app.Graph.SubscribedApps(ctx); err != nil {
			out["subscriptions_error"] = err.Error()
		} else {
			out["subscriptions"] = subs
		}
	}
	stats := app.Stats
	if stats == nil {
		if l := dbpkg.LedgerInstance(c); l != nil {
			stats = l
		}
	}
	if stats != nil {
		if counts, err := stats.CountByStatus(ctx); err != nil {
			out["ledger_error"] = err.Error()
		} else {
			out["ledger"] = counts
		}
	}
	if app.Sessions != nil {
		out["caches"] = app.Sessions.Sizes()
	}

	RespondSuccess(c, out)
}
