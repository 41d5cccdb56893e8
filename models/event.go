package models

import (
	"encoding/json"
	"strings"
	"time"
)

/************************************************
/**** MARK: EVENT STATUS ****/
/************************************************/
const EVENT_STATUS_PENDING = "pending"
const EVENT_STATUS_PROCESSING = "processing"
const EVENT_STATUS_DONE = "done"
const EVENT_STATUS_SKIPPED = "skipped"
const EVENT_STATUS_FAILED = "failed"

// Event is one inbound interaction accepted by the webhook.
// It enters as "pending" and is picked up by the events worker.
type Event struct {
	ID             int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	DeliveryID     string     `gorm:"not null;index" json:"delivery_id"` // one per webhook POST
	Platform       string     `gorm:"not null;index" json:"platform"`
	Surface        string     `gorm:"not null" json:"surface"`
	SenderID       string     `gorm:"not null;index" json:"sender_id"`
	RecipientID    string     `gorm:"default:''" json:"recipient_id"`
	MessageID      string     `gorm:"default:''" json:"message_id"`
	CommentID      string     `gorm:"default:''" json:"comment_id"`
	Standby        bool       `gorm:"not null;default:false" json:"standby"`
	Text           string     `gorm:"type:text" json:"text"`
	AttachmentType string     `gorm:"default:''" json:"attachment_type"`
	AttachmentURL  string     `gorm:"type:text" json:"attachment_url"`
	SharedPost     string     `gorm:"type:text" json:"shared_post"` // JSON of SharedPost
	Status         string     `gorm:"not null;default:'pending';index" json:"status"`
	ScheduledAt    *time.Time `gorm:"index" json:"scheduled_at"`
	ProcessedAt    *time.Time `json:"processed_at"`
	ReplyText      string     `gorm:"type:text" json:"reply_text"`
	Error          string     `gorm:"type:text" json:"error"`
	CreatedAt      *time.Time `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
}

// NewEvent builds a pending ledger row for an inbound event.
func NewEvent(deliveryID string, in InboundEvent, scheduledAt time.Time) Event {
	ev := Event{
		DeliveryID:     deliveryID,
		Platform:       string(in.Platform),
		Surface:        string(in.Surface),
		SenderID:       in.SenderID,
		RecipientID:    in.RecipientID,
		MessageID:      in.MessageID,
		CommentID:      in.CommentID,
		Standby:        in.Standby,
		Text:           in.Text,
		AttachmentType: in.AttachmentType,
		AttachmentURL:  in.AttachmentURL,
		Status:         EVENT_STATUS_PENDING,
		ScheduledAt:    &scheduledAt,
	}
	if in.SharedPost != nil {
		if b, err := json.Marshal(in.SharedPost); err == nil {
			ev.SharedPost = string(b)
		}
	}
	return ev
}

// Inbound rebuilds the InboundEvent stored in the row.
func (e Event) Inbound() (InboundEvent, error) {
	in := InboundEvent{
		Platform:       Platform(e.Platform),
		Surface:        Surface(e.Surface),
		SenderID:       e.SenderID,
		RecipientID:    e.RecipientID,
		MessageID:      e.MessageID,
		CommentID:      e.CommentID,
		Standby:        e.Standby,
		Text:           e.Text,
		AttachmentType: e.AttachmentType,
		AttachmentURL:  e.AttachmentURL,
	}
	if strings.TrimSpace(e.SharedPost) != "" {
		var post SharedPost
		if err := json.Unmarshal([]byte(e.SharedPost), &post); err != nil {
			return in, err
		}
		in.SharedPost = &post
	}
	return in, nil
}
