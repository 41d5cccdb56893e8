package db

import (
	"context"
	"time"

	"concierge/models"

	"github.com/jinzhu/gorm"
)

// Ledger records accepted inbound events for the events worker.
type Ledger struct {
	DB *gorm.DB
	// Delay holds new rows back before the worker may pick them up.
	Delay time.Duration
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{DB: db}
}

// Enqueue writes every event of one delivery as pending rows, all or nothing.
func (l *Ledger) Enqueue(ctx context.Context, deliveryID string, events []models.InboundEvent) error {
	if len(events) == 0 {
		return nil
	}
	scheduled := time.Now().Add(l.Delay)

	tx := l.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	for _, in := range events {
		ev := models.NewEvent(deliveryID, in, scheduled)
		if err := tx.Create(&ev).Error; err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return err
	}
	return nil
}

type statusCount struct {
	Status string
	Count  int64
}

// CountByStatus returns how many rows sit in each status.
func (l *Ledger) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []statusCount
	if err := l.DB.Model(&models.Event{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := map[string]int64{
		models.EVENT_STATUS_PENDING:    0,
		models.EVENT_STATUS_PROCESSING: 0,
		models.EVENT_STATUS_DONE:       0,
		models.EVENT_STATUS_SKIPPED:    0,
		models.EVENT_STATUS_FAILED:     0,
	}
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

// Purge deletes finished rows older than age.
func (l *Ledger) Purge(ctx context.Context, age time.Duration) (int64, error) {
	res := l.DB.
		Where("status IN (?) AND updated_at < ?",
			[]string{models.EVENT_STATUS_DONE, models.EVENT_STATUS_SKIPPED, models.EVENT_STATUS_FAILED},
			time.Now().Add(-age)).
		Delete(&models.Event{})
	return res.RowsAffected, res.Error
}
