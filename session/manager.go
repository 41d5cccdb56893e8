// Package session keeps per-user conversational state (sticky campaign,
// history, last shared post) and the webhook delivery de-dup set.
package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"concierge/cache"
	"concierge/models"
	"concierge/nlp"
)

const (
	DedupeTTL  = time.Hour
	StickyTTL  = 7 * 24 * time.Hour
	HistoryTTL = 30 * 24 * time.Hour
	PostTTL    = 3 * 24 * time.Hour

	MaxHistory = 20
)

// Stores groups the independent stores the manager writes to.
type Stores struct {
	Dedupe  cache.Store
	Sticky  cache.Store
	History cache.Store
	Posts   cache.Store
}

// NewMemoryStores builds in-process stores, each bounded to max entries.
func NewMemoryStores(max int) Stores {
	return Stores{
		Dedupe:  cache.NewMemoryStore(max),
		Sticky:  cache.NewMemoryStore(max),
		History: cache.NewMemoryStore(max),
		Posts:   cache.NewMemoryStore(max),
	}
}

type Manager struct {
	stores Stores
}

func NewManager(stores Stores) *Manager {
	return &Manager{stores: stores}
}

// FirstDelivery records a webhook entry and reports whether it is new.
// A cache failure lets the entry through.
func (m *Manager) FirstDelivery(ctx context.Context, platform, entryID string, timestamp int64) bool {
	key := fmt.Sprintf("%s:%s:%d", platform, entryID, timestamp)
	ok, err := m.stores.Dedupe.SetNX(ctx, key, []byte("1"), DedupeTTL)
	if err != nil {
		log.Printf("session: dedupe error: %v", err)
		return true
	}
	return ok
}

func (m *Manager) StickyCampaign(ctx context.Context, userID string) nlp.Campaign {
	raw, ok, err := m.stores.Sticky.Get(ctx, userID)
	if err != nil {
		log.Printf("session: sticky read error: %v", err)
		return nlp.CampaignNone
	}
	if !ok {
		return nlp.CampaignNone
	}
	return nlp.ParseCampaign(string(raw))
}

// SetStickyCampaign overwrites the user's campaign and restarts its expiry.
func (m *Manager) SetStickyCampaign(ctx context.Context, userID string, c nlp.Campaign) {
	if c == nlp.CampaignNone {
		return
	}
	if err := m.stores.Sticky.Set(ctx, userID, []byte(c), StickyTTL); err != nil {
		log.Printf("session: sticky write error: %v", err)
	}
}

func (m *Manager) History(ctx context.Context, userID string) []models.ConversationMessage {
	var history []models.ConversationMessage
	if _, err := cache.GetJSON(ctx, m.stores.History, userID, &history); err != nil {
		log.Printf("session: history read error: %v", err)
		return nil
	}
	return history
}

// AppendHistory adds messages and keeps only the newest MaxHistory.
func (m *Manager) AppendHistory(ctx context.Context, userID string, msgs ...models.ConversationMessage) {
	history := append(m.History(ctx, userID), msgs...)
	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}
	if err := cache.SetJSON(ctx, m.stores.History, userID, history, HistoryTTL); err != nil {
		log.Printf("session: history write error: %v", err)
	}
}

func (m *Manager) LastPost(ctx context.Context, userID string) *models.PostMemory {
	var post models.PostMemory
	ok, err := cache.GetJSON(ctx, m.stores.Posts, userID, &post)
	if err != nil {
		log.Printf("session: post read error: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	return &post
}

func (m *Manager) SetLastPost(ctx context.Context, userID string, post models.PostMemory) {
	if err := cache.SetJSON(ctx, m.stores.Posts, userID, post, PostTTL); err != nil {
		log.Printf("session: post write error: %v", err)
	}
}

// Sizes reports live entry counts for stores that can count them.
func (m *Manager) Sizes() map[string]int {
	out := map[string]int{}
	for name, s := range map[string]cache.Store{
		"dedupe":  m.stores.Dedupe,
		"sticky":  m.stores.Sticky,
		"history": m.stores.History,
		"posts":   m.stores.Posts,
	} {
		if sizer, ok := s.(cache.Sizer); ok {
			out[name] = sizer.Len()
		}
	}
	return out
}
