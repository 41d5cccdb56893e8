package workers

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"concierge/config"
	dbpkg "concierge/db"
	"concierge/metrics"
	"concierge/models"
	"concierge/nlp"
	"concierge/replies"
	"concierge/session"
	"concierge/tools"

	"github.com/jinzhu/gorm"
)

const (
	batchSize      = 50
	handleTimeout  = 90 * time.Second
	purgeInterval  = time.Hour
	purgeRetention = 24 * time.Hour
)

type Composer interface {
	Compose(ctx context.Context, req replies.Request) replies.Reply
}

// Sender is the outbound side of the Graph API.
type Sender interface {
	SendText(ctx context.Context, platform models.Platform, recipientID, text string) error
	SendPrivateReply(ctx context.Context, platform models.Platform, commentID, text string) error
	ReplyComment(ctx context.Context, platform models.Platform, commentID, text string) error
	TakeThreadControl(ctx context.Context, psid string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// Processor turns pending ledger rows into replies.
type Processor struct {
	DB          *gorm.DB
	Config      config.Configuration
	Composer    Composer
	Sender      Sender
	Transcriber Transcriber
	Sessions    *session.Manager
}

// Start runs the worker loop until ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	interval := time.Duration(p.Config.WorkerIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ledger := dbpkg.NewLedger(p.DB)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		purge := time.NewTicker(purgeInterval)
		defer purge.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.ProcessDue(ctx)
			case <-purge.C:
				if n, err := ledger.Purge(ctx, purgeRetention); err != nil {
					log.Printf("events worker: purge error: %v", err)
				} else if n > 0 {
					log.Printf("events worker: purged %d rows", n)
				}
			}
		}
	}()
}

// ProcessDue claims due pending rows and handles them. Rows of one sender run
// in order; different senders run in parallel. It returns once the batch is done.
func (p *Processor) ProcessDue(ctx context.Context) int {
	now := time.Now()

	var events []models.Event
	if err := p.DB.
		Where("status = ?", models.EVENT_STATUS_PENDING).
		Where("scheduled_at IS NOT NULL AND scheduled_at <= ?", now).
		Order("scheduled_at asc, id asc").
		Limit(batchSize).
		Find(&events).Error; err != nil {
		log.Printf("events worker: query error: %v", err)
		return 0
	}

	bySender := map[string][]int64{}
	var order []string
	for _, ev := range events {
		// optimistic lock: only the worker that flips the status owns the row
		res := p.DB.Model(&models.Event{}).
			Where("id = ? AND status = ?", ev.ID, models.EVENT_STATUS_PENDING).
			Update("status", models.EVENT_STATUS_PROCESSING)
		if res.Error != nil || res.RowsAffected == 0 {
			continue
		}
		key := ev.Platform + ":" + ev.SenderID
		if _, ok := bySender[key]; !ok {
			order = append(order, key)
		}
		bySender[key] = append(bySender[key], ev.ID)
	}

	var wg sync.WaitGroup
	claimed := 0
	for _, key := range order {
		ids := bySender[key]
		claimed += len(ids)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range ids {
				p.HandleEvent(ctx, id)
			}
		}()
	}
	wg.Wait()
	return claimed
}

// HandleEvent processes one claimed row and records the outcome.
func (p *Processor) HandleEvent(parent context.Context, eventID int64) {
	var ev models.Event
	if err := p.DB.First(&ev, eventID).Error; err != nil {
		return
	}
	if ev.Status != models.EVENT_STATUS_PROCESSING {
		return
	}

	ctx, cancel := context.WithTimeout(parent, handleTimeout)
	defer cancel()

	in, err := ev.Inbound()
	if err != nil {
		p.finish(ev, models.EVENT_STATUS_FAILED, "", "decode event: "+err.Error())
		return
	}
	if !p.Config.Features.AutoReply {
		p.finish(ev, models.EVENT_STATUS_SKIPPED, "", "auto reply disabled")
		return
	}

	text := strings.TrimSpace(in.Text)
	if in.AttachmentType == models.ATTACHMENT_AUDIO {
		text = joinText(text, p.transcribe(ctx, in.AttachmentURL))
	}
	imageURL := ""
	if in.AttachmentType == models.ATTACHMENT_IMAGE && p.Config.Features.ImageForwarding {
		imageURL = tools.ProxyImageURL(p.Config.PublicBaseURL, in.AttachmentURL)
	}
	if text == "" && imageURL == "" && in.SharedPost.Empty() {
		p.finish(ev, models.EVENT_STATUS_SKIPPED, "", "no content")
		return
	}

	reply := p.Composer.Compose(ctx, replies.Request{
		Platform:   in.Platform,
		Surface:    in.Surface,
		SenderID:   in.SenderID,
		Text:       text,
		SharedPost: in.SharedPost,
		ImageURL:   imageURL,
	})

	var sendErr error
	var sent string
	if in.Surface == models.SurfaceComment {
		sent, sendErr = p.replyToComment(ctx, in, reply)
	} else {
		sent, sendErr = p.replyToMessage(ctx, in, reply)
	}

	key := replies.SessionKey(in.Platform, in.SenderID)
	p.Sessions.AppendHistory(ctx, key,
		models.ConversationMessage{Role: models.ROLE_USER, Content: text},
		models.ConversationMessage{Role: models.ROLE_ASSISTANT, Content: reply.Text()},
	)

	switch {
	case sendErr != nil && sent == "":
		p.finish(ev, models.EVENT_STATUS_FAILED, reply.Text(), sendErr.Error())
	case sendErr != nil:
		p.finish(ev, models.EVENT_STATUS_DONE, sent, sendErr.Error())
	default:
		p.finish(ev, models.EVENT_STATUS_DONE, sent, "")
	}
}

func (p *Processor) transcribe(ctx context.Context, audioURL string) string {
	if !p.Config.Features.VoiceTranscription || p.Transcriber == nil || audioURL == "" {
		return ""
	}
	transcript, err := p.Transcriber.Transcribe(ctx, audioURL)
	if err != nil {
		if !errors.Is(err, tools.ErrDisabled) {
			log.Printf("events worker: transcription error: %v", err)
		}
		return ""
	}
	return transcript
}

func (p *Processor) chunks(text string) []string {
	return nlp.SplitToChunks(text, p.Config.MaxOutputChars)
}

// replyToMessage sends every section as consecutive chunked messages. It
// returns what was delivered and the first send error.
func (p *Processor) replyToMessage(ctx context.Context, in models.InboundEvent, reply replies.Reply) (string, error) {
	if in.Standby && p.Config.Features.TakeThreadControl && in.Platform == models.PlatformFacebook {
		if err := p.Sender.TakeThreadControl(ctx, in.SenderID); err != nil {
			log.Printf("events worker: take_thread_control error: %v", err)
		}
	}

	var delivered []string
	var firstErr error
	for _, section := range reply.Sections {
		for _, chunk := range p.chunks(section) {
			if err := p.Sender.SendText(ctx, in.Platform, in.SenderID, chunk); err != nil {
				log.Printf("events worker: send error: %v", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			delivered = append(delivered, chunk)
		}
	}
	return strings.Join(delivered, "\n\n"), firstErr
}

// replyToComment posts the price-free version publicly. When stripping lost
// content the full reply also goes to the commenter as a private reply, and a
// reply left empty by stripping is replaced with a pointer to the inbox.
func (p *Processor) replyToComment(ctx context.Context, in models.InboundEvent, reply replies.Reply) (string, error) {
	full := strings.TrimSpace(reply.Text())
	public := nlp.StripPricesFromPublic(full)

	var firstErr error
	sentPrivately := false
	if public != full && p.Config.Features.PrivateReplies {
		// a comment accepts a single private reply
		if chunks := p.chunks(full); len(chunks) > 0 {
			if err := p.Sender.SendPrivateReply(ctx, in.Platform, in.CommentID, chunks[0]); err != nil {
				log.Printf("events worker: private reply error: %v", err)
				firstErr = err
			} else {
				sentPrivately = true
			}
		}
	}
	if public == "" && full != "" {
		public = replies.PublicNotice(reply.Language, sentPrivately)
	}

	var delivered []string
	for _, chunk := range p.chunks(public) {
		if err := p.Sender.ReplyComment(ctx, in.Platform, in.CommentID, chunk); err != nil {
			log.Printf("events worker: comment reply error: %v", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delivered = append(delivered, chunk)
	}
	return strings.Join(delivered, "\n\n"), firstErr
}

func (p *Processor) finish(ev models.Event, status, replyText, errText string) {
	metrics.EventsProcessed.WithLabelValues(ev.Platform, ev.Surface, status).Inc()
	t := time.Now()
	if err := p.DB.Model(&models.Event{}).Where("id = ?", ev.ID).Updates(map[string]any{
		"status":       status,
		"processed_at": &t,
		"reply_text":   replyText,
		"error":        errText,
	}).Error; err != nil {
		log.Printf("events worker: update event %d: %v", ev.ID, err)
	}
}

func joinText(text, transcript string) string {
	transcript = strings.TrimSpace(transcript)
	switch {
	case text == "":
		return transcript
	case transcript == "":
		return text
	}
	return text + "\n" + transcript
}
