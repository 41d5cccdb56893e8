package controllers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"concierge/metrics"
	"concierge/models"
	"concierge/tools"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const enqueueTimeout = 10 * time.Second

// GET /webhook
func WebhookVerify(c *gin.Context) {
	app := AppInstance(c)
	if app == nil || app.Config.Meta.VerifyToken == "" {
		RespondError(c, "WEBHOOK_VERIFY_TOKEN not set", http.StatusInternalServerError)
		return
	}
	verifyToken := app.Config.Meta.VerifyToken

	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	tokenOK := subtle.ConstantTimeCompare([]byte(token), []byte(verifyToken)) == 1
	log.Printf("[META][VERIFY] mode=%s token_ok=%v", mode, tokenOK)

	if mode == "subscribe" && tokenOK && challenge != "" {
		c.String(http.StatusOK, "%s", challenge)
		return
	}

	RespondError(c, "forbidden", http.StatusForbidden)
}

// POST /webhook
func WebhookUpdate(c *gin.Context) {
	app := AppInstance(c)
	if app == nil {
		RespondError(c, "app not configured", http.StatusInternalServerError)
		return
	}

	// Read raw body once so we can validate Meta signature.
	raw, err := c.GetRawData()
	if err != nil {
		RespondError(c, "failed to read body", http.StatusBadRequest)
		return
	}

	if !tools.VerifySignature(app.Config.Meta.AppSecret, raw, c.GetHeader("X-Hub-Signature-256")) {
		metrics.WebhookDeliveries.WithLabelValues("unknown", "rejected").Inc()
		log.Printf("[META][WEBHOOK] signature rejected")
		RespondError(c, "forbidden: invalid signature", http.StatusForbidden)
		return
	}

	// ack before any processing, Meta retries slow deliveries
	c.String(http.StatusOK, "EVENT_RECEIVED")
	c.Writer.Flush()

	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		metrics.WebhookDeliveries.WithLabelValues("unknown", "invalid").Inc()
		log.Printf("[META][WEBHOOK] invalid json: %v", err)
		return
	}

	deliveryID := uuid.NewString()
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	events := collectEvents(ctx, app, payload)
	if len(events) == 0 {
		return
	}
	if err := app.Queue.Enqueue(ctx, deliveryID, events); err != nil {
		log.Printf("[META][WEBHOOK] delivery=%s enqueue error: %v", deliveryID, err)
		return
	}
	log.Printf("[META][WEBHOOK] delivery=%s object=%s events=%d", deliveryID, payload.Object, len(events))
}

// collectEvents de-dups every entry and extracts its events.
func collectEvents(ctx context.Context, app *App, payload WebhookPayload) []models.InboundEvent {
	platform, ok := platformForObject(payload.Object)
	if !ok {
		metrics.WebhookDeliveries.WithLabelValues(payload.Object, "invalid").Inc()
		log.Printf("[META][WEBHOOK] ignoring object=%q", payload.Object)
		return nil
	}

	opts := extractOptions{
		HandleStandby: app.Config.Features.HandleStandby,
		OwnIDs:        ownIDs(app),
	}

	var out []models.InboundEvent
	for _, entry := range payload.Entry {
		if !app.Sessions.FirstDelivery(ctx, string(platform), entry.ID, entry.Time) {
			metrics.WebhookDeliveries.WithLabelValues(payload.Object, "duplicate").Inc()
			continue
		}
		metrics.WebhookDeliveries.WithLabelValues(payload.Object, "accepted").Inc()

		// the entry id is the page or IG account the event was sent to
		opts.OwnIDs[entry.ID] = true
		for _, ev := range ExtractEvents(platform, entry, opts) {
			metrics.InboundEvents.WithLabelValues(string(ev.Platform), string(ev.Surface)).Inc()
			out = append(out, ev)
		}
	}
	return out
}

func ownIDs(app *App) map[string]bool {
	ids := map[string]bool{}
	for _, id := range []string{app.Config.Meta.PageID, app.Config.Meta.IGUserID} {
		if id != "" {
			ids[id] = true
		}
	}
	return ids
}
