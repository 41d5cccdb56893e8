package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	dbpkg "concierge/db"
	"concierge/models"

	"github.com/gin-gonic/gin"
)

// GET /admin/events
// Query params:
// - status=pending|processing|done|skipped|failed (optional)
// - platform=facebook|instagram (optional)
// - q=text (optional) -> searches sender_id + text + reply_text
// - sort_by=created_at|processed_at|scheduled_at|id (optional, default: created_at)
// - order=asc|desc (optional, default: desc)
// - limit (optional, default: 200, max: 500)
// - offset (optional, default: 0)
func GetEvents(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db not configured in context", http.StatusInternalServerError)
		return
	}

	status := strings.TrimSpace(c.Query("status"))
	platform := strings.TrimSpace(c.Query("platform"))
	q := strings.TrimSpace(c.Query("q"))
	sortBy := strings.TrimSpace(c.DefaultQuery("sort_by", "created_at"))
	order := strings.ToLower(strings.TrimSpace(c.DefaultQuery("order", "desc")))

	limit := clampInt(queryInt(c, "limit", 200), 1, 500)
	offset := clampInt(queryInt(c, "offset", 0), 0, 1_000_000)

	switch sortBy {
	case "created_at", "processed_at", "scheduled_at", "id":
	default:
		sortBy = "created_at"
	}
	if order != "asc" {
		order = "desc"
	}

	query := db.Model(&models.Event{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if platform != "" {
		query = query.Where("platform = ?", platform)
	}
	if q != "" {
		like := "%" + q + "%"
		query = query.Where("sender_id LIKE ? OR text LIKE ? OR reply_text LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	var events []models.Event
	if err := query.Order(fmt.Sprintf("%s %s, id %s", sortBy, order, order)).
		Limit(limit).
		Offset(offset).
		Find(&events).Error; err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	RespondSuccess(c, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"events": events,
	})
}

// GET /admin/events/:id
func GetEventByID(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db not configured in context", http.StatusInternalServerError)
		return
	}

	var event models.Event
	if err := db.First(&event, id).Error; err != nil {
		RespondError(c, "event not found", http.StatusNotFound)
		return
	}

	RespondSuccess(c, gin.H{"event": event})
}

type processedPerDayRow struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// GET /admin/events/processed-per-day
// Query params:
// - from=YYYY-MM-DD (optional, default: today-6)
// - to=YYYY-MM-DD   (optional, default: today)
// Returns a daily series, days without events included.
func GetEventsProcessedPerDay(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db not configured in context", http.StatusInternalServerError)
		return
	}

	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.Local)
	toExclusive := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.Local).AddDate(0, 0, 1)

	dayExpr := "date(processed_at)"
	dialect := strings.ToLower(db.Dialect().GetName())
	if strings.Contains(dialect, "sqlite") {
		dayExpr = "strftime('%Y-%m-%d', processed_at, 'localtime')"
	} else if strings.Contains(dialect, "postgres") {
		dayExpr = "to_char(date_trunc('day', processed_at), 'YYYY-MM-DD')"
	}

	var rows []processedPerDayRow
	if err := db.Table("events").
		Select(fmt.Sprintf("%s as day, count(*) as count", dayExpr)).
		Where("status = ? AND processed_at IS NOT NULL AND processed_at >= ? AND processed_at < ?",
			models.EVENT_STATUS_DONE, from, toExclusive).
		Group("day").
		Order("day asc").
		Scan(&rows).Error; err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	RespondSuccess(c, gin.H{
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
		"series": fillDailySeries(from, to, rows),
	})
}
