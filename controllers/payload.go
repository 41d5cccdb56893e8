package controllers

import (
	"bytes"
	"encoding/json"
	"strings"

	"concierge/models"
)

// WebhookPayload is the envelope Meta posts for both "page" and "instagram".
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
	Standby   []MessagingEvent `json:"standby"`
	Changes   []ChangeEvent    `json:"changes"`
}

type MessagingEvent struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Timestamp int64 `json:"timestamp"`
	Message   *struct {
		Mid         string       `json:"mid"`
		Text        string       `json:"text"`
		IsEcho      bool         `json:"is_echo"`
		Attachments []Attachment `json:"attachments"`
	} `json:"message"`
	Postback *struct {
		Title   string `json:"title"`
		Payload string `json:"payload"`
	} `json:"postback"`
}

type Attachment struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type ChangeEvent struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// page feed change
type feedValue struct {
	Item      string `json:"item"`
	Verb      string `json:"verb"`
	CommentID string `json:"comment_id"`
	PostID    string `json:"post_id"`
	Message   string `json:"message"`
	From      struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"from"`
}

// instagram comments change
type igCommentValue struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	From struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"from"`
	Media struct {
		ID string `json:"id"`
	} `json:"media"`
}

func platformForObject(object string) (models.Platform, bool) {
	switch strings.ToLower(strings.TrimSpace(object)) {
	case "page":
		return models.PlatformFacebook, true
	case "instagram":
		return models.PlatformInstagram, true
	}
	return "", false
}

// extractOptions carries the bits of configuration extraction depends on.
type extractOptions struct {
	HandleStandby bool
	// OwnIDs are the page and IG account ids; events they author are ignored.
	OwnIDs map[string]bool
}

// ExtractEvents turns one entry into inbound events. Echoes, our own comments
// and events without content are dropped.
func ExtractEvents(platform models.Platform, entry WebhookEntry, opts extractOptions) []models.InboundEvent {
	var out []models.InboundEvent

	for _, m := range entry.Messaging {
		if ev, ok := fromMessaging(platform, m, false, opts); ok {
			out = append(out, ev)
		}
	}
	if opts.HandleStandby {
		for _, m := range entry.Standby {
			if ev, ok := fromMessaging(platform, m, true, opts); ok {
				out = append(out, ev)
			}
		}
	}
	for _, ch := range entry.Changes {
		if ev, ok := fromChange(platform, ch, opts); ok {
			out = append(out, ev)
		}
	}
	return out
}

func fromMessaging(platform models.Platform, m MessagingEvent, standby bool, opts extractOptions) (models.InboundEvent, bool) {
	sender := strings.TrimSpace(m.Sender.ID)
	if sender == "" || opts.OwnIDs[sender] {
		return models.InboundEvent{}, false
	}
	ev := models.InboundEvent{
		Platform:    platform,
		Surface:     models.SurfaceDM,
		SenderID:    sender,
		RecipientID: strings.TrimSpace(m.Recipient.ID),
		Standby:     standby,
	}

	switch {
	case m.Message != nil:
		if m.Message.IsEcho {
			return ev, false
		}
		ev.MessageID = m.Message.Mid
		ev.Text = strings.TrimSpace(m.Message.Text)
		for _, att := range m.Message.Attachments {
			applyAttachment(&ev, att)
		}
	case m.Postback != nil:
		ev.Text = strings.TrimSpace(m.Postback.Title)
	default:
		return ev, false
	}

	if ev.Text == "" && ev.AttachmentURL == "" && ev.SharedPost.Empty() {
		return ev, false
	}
	return ev, true
}

func applyAttachment(ev *models.InboundEvent, att Attachment) {
	kind := strings.ToLower(strings.TrimSpace(att.Type))
	var payload struct {
		URL string `json:"url"`
	}
	_ = json.Unmarshal(att.Payload, &payload)

	switch kind {
	case models.ATTACHMENT_IMAGE, models.ATTACHMENT_AUDIO:
		if ev.AttachmentURL == "" && payload.URL != "" {
			ev.AttachmentType = kind
			ev.AttachmentURL = payload.URL
		}
	default:
		raw, err := json.Marshal(att)
		if err != nil {
			return
		}
		if post := ScanSharedPost(raw); !post.Empty() {
			ev.AttachmentType = models.ATTACHMENT_SHARE
			ev.SharedPost = post
		}
	}
}

func fromChange(platform models.Platform, ch ChangeEvent, opts extractOptions) (models.InboundEvent, bool) {
	dec := json.NewDecoder(bytes.NewReader(ch.Value))

	switch {
	case platform == models.PlatformFacebook && ch.Field == "feed":
		var v feedValue
		if err := dec.Decode(&v); err != nil {
			return models.InboundEvent{}, false
		}
		if v.Item != "comment" || v.Verb != "add" || opts.OwnIDs[v.From.ID] || strings.TrimSpace(v.Message) == "" {
			return models.InboundEvent{}, false
		}
		return models.InboundEvent{
			Platform:  platform,
			Surface:   models.SurfaceComment,
			SenderID:  v.From.ID,
			CommentID: v.CommentID,
			Text:      strings.TrimSpace(v.Message),
		}, true

	case platform == models.PlatformInstagram && ch.Field == "comments":
		var v igCommentValue
		if err := dec.Decode(&v); err != nil {
			return models.InboundEvent{}, false
		}
		if opts.OwnIDs[v.From.ID] || strings.TrimSpace(v.Text) == "" {
			return models.InboundEvent{}, false
		}
		return models.InboundEvent{
			Platform:  platform,
			Surface:   models.SurfaceComment,
			SenderID:  v.From.ID,
			CommentID: v.ID,
			Text:      strings.TrimSpace(v.Text),
		}, true
	}
	return models.InboundEvent{}, false
}
