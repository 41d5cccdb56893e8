package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"concierge/cache"
	"concierge/models"
	"concierge/nlp"
)

func newTestManager(now func() time.Time) *Manager {
	return NewManager(Stores{
		Dedupe:  cache.NewMemoryStore(100).WithClock(now),
		Sticky:  cache.NewMemoryStore(100).WithClock(now),
		History: cache.NewMemoryStore(100).WithClock(now),
		Posts:   cache.NewMemoryStore(100).WithClock(now),
	})
}

func TestFirstDelivery(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := newTestManager(func() time.Time { return now })
	ctx := context.Background()

	if !m.FirstDelivery(ctx, "page", "123", 1700000000) {
		t.Fatal("first delivery should be accepted")
	}
	if m.FirstDelivery(ctx, "page", "123", 1700000000) {
		t.Fatal("replay should be dropped")
	}
	if !m.FirstDelivery(ctx, "page", "123", 1700000001) {
		t.Fatal("different timestamp is a different delivery")
	}
	if !m.FirstDelivery(ctx, "instagram", "123", 1700000000) {
		t.Fatal("different platform is a different delivery")
	}

	now = now.Add(DedupeTTL)
	if !m.FirstDelivery(ctx, "page", "123", 1700000000) {
		t.Fatal("delivery should be accepted again after the window")
	}
}

func TestStickyCampaign_ExpiresAndOverwrites(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := newTestManager(func() time.Time { return now })
	ctx := context.Background()

	if got := m.StickyCampaign(ctx, "u1"); got != nlp.CampaignNone {
		t.Fatalf("expected none, got %q", got)
	}
	m.SetStickyCampaign(ctx, "u1", nlp.CampaignStaycation)
	if got := m.StickyCampaign(ctx, "u1"); got != nlp.CampaignStaycation {
		t.Fatalf("expected staycation, got %q", got)
	}

	m.SetStickyCampaign(ctx, "u1", nlp.CampaignNone)
	if got := m.StickyCampaign(ctx, "u1"); got != nlp.CampaignStaycation {
		t.Fatalf("none must not clear the sticky campaign, got %q", got)
	}

	m.SetStickyCampaign(ctx, "u1", nlp.CampaignHoneymoon)
	if got := m.StickyCampaign(ctx, "u1"); got != nlp.CampaignHoneymoon {
		t.Fatalf("expected honeymoon, got %q", got)
	}

	now = now.Add(StickyTTL)
	if got := m.StickyCampaign(ctx, "u1"); got != nlp.CampaignNone {
		t.Fatalf("expected expiry after 7 days, got %q", got)
	}
}

func TestAppendHistory_CapsAtMax(t *testing.T) {
	m := NewManager(NewMemoryStores(100))
	ctx := context.Background()

	for i := 0; i < MaxHistory+5; i++ {
		m.AppendHistory(ctx, "u1", models.ConversationMessage{Role: models.ROLE_USER, Content: fmt.Sprintf("m%d", i)})
	}
	history := m.History(ctx, "u1")
	if len(history) != MaxHistory {
		t.Fatalf("expected %d entries, got %d", MaxHistory, len(history))
	}
	if history[0].Content != "m5" || history[len(history)-1].Content != fmt.Sprintf("m%d", MaxHistory+4) {
		t.Errorf("expected oldest entries dropped, got first=%q last=%q", history[0].Content, history[len(history)-1].Content)
	}
}

func TestLastPost(t *testing.T) {
	m := NewManager(NewMemoryStores(100))
	ctx := context.Background()

	if m.LastPost(ctx, "u1") != nil {
		t.Fatal("expected no post")
	}
	m.SetLastPost(ctx, "u1", models.PostMemory{Caption: "3 days of chill", Permalink: "https://instagram.com/p/abc"})
	post := m.LastPost(ctx, "u1")
	if post == nil || post.Permalink != "https://instagram.com/p/abc" {
		t.Fatalf("unexpected post %+v", post)
	}
	if sizes := m.Sizes(); sizes["posts"] != 1 {
		t.Errorf("expected 1 post entry, got %v", sizes)
	}
}
