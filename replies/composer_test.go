package replies

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"concierge/config"
	"concierge/models"
	"concierge/nlp"
	"concierge/session"
	"concierge/tools"
)

type fakeBrain struct {
	calls []tools.AskRequest
	ans   tools.Answer
}

func (f *fakeBrain) Ask(ctx context.Context, req tools.AskRequest) tools.Answer {
	f.calls = append(f.calls, req)
	if f.ans.Message == "" {
		return tools.Answer{Message: "model reply", Language: nlp.LangEnglish}
	}
	return f.ans
}

type fakeGeo struct {
	place *tools.GeocodeResult
	route *tools.RouteInfo
}

func (f *fakeGeo) GeocodePlace(ctx context.Context, place string) *tools.GeocodeResult {
	return f.place
}

func (f *fakeGeo) GetRouteInfo(ctx context.Context, origin, dest tools.LatLng) *tools.RouteInfo {
	return f.route
}

type fakeMedia struct {
	info *tools.MediaInfo
	err  error
}

func (f *fakeMedia) LookupMedia(ctx context.Context, id string) (*tools.MediaInfo, error) {
	return f.info, f.err
}

func newTestComposer() (*Composer, *fakeBrain, *fakeGeo) {
	brain := &fakeBrain{}
	geo := &fakeGeo{}
	sessions := session.NewManager(session.NewMemoryStores(100))
	return NewComposer(config.Defaults().Business, brain, geo, nil, sessions), brain, geo
}

func dm(text string) Request {
	return Request{Platform: models.PlatformInstagram, Surface: models.SurfaceDM, SenderID: "u1", Text: text}
}

func TestComposeNightsQuoteOnly(t *testing.T) {
	c, brain, _ := newTestComposer()
	reply := c.Compose(context.Background(), dm("price for 4 nights"))

	if len(reply.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d: %q", len(reply.Sections), reply.Sections)
	}
	if want := QuoteForNights(4).Format(nlp.LangEnglish); reply.Sections[0] != want {
		t.Errorf("expected quote section, got %q", reply.Sections[0])
	}
	if strings.Contains(reply.Sections[0], "Current rates") {
		t.Errorf("rate card must not appear next to a quote")
	}
	if len(brain.calls) != 0 {
		t.Errorf("model must not be called, got %d calls", len(brain.calls))
	}
}

func TestComposeNightsAreClamped(t *testing.T) {
	c, _, _ := newTestComposer()
	reply := c.Compose(context.Background(), dm("rate for 40 nights"))
	if !strings.Contains(reply.Sections[0], "21-night") {
		t.Errorf("expected a 21-night quote, got %q", reply.Sections[0])
	}
}

func TestComposeStaycationFirstTriggerShowsLongCard(t *testing.T) {
	c, _, _ := newTestComposer()
	ctx := context.Background()
	key := SessionKey(models.PlatformInstagram, "u1")

	first := c.Compose(ctx, dm("9000 package for 3 friends"))
	if got := c.Sessions.StickyCampaign(ctx, key); got != nlp.CampaignStaycation {
		t.Fatalf("expected sticky %q, got %q", nlp.CampaignStaycation, got)
	}
	long := c.Templates.Campaigns[nlp.CampaignStaycation].LongCard
	if len(first.Sections) != 1 || first.Sections[0] != long {
		t.Fatalf("expected long card, got %q", first.Sections)
	}

	second := c.Compose(ctx, dm("what is the rate"))
	if second.Sections[0] != c.Templates.Campaigns[nlp.CampaignStaycation].PriceReply {
		t.Errorf("expected price reply on a later trigger, got %q", second.Sections[0])
	}
}

func TestComposeRatesWithoutCampaignShowsRateCard(t *testing.T) {
	c, _, _ := newTestComposer()
	reply := c.Compose(context.Background(), dm("rate kitna hai"))
	if reply.Language != nlp.LangRomanUrdu {
		t.Errorf("expected roman-ur, got %q", reply.Language)
	}
	if reply.Sections[0] != c.Templates.RateCard.in(nlp.LangRomanUrdu) {
		t.Errorf("expected roman urdu rate card, got %q", reply.Sections[0])
	}
}

func TestRateCardSurvivesPublicStripWithoutPrices(t *testing.T) {
	c, _, _ := newTestComposer()
	req := dm("rate kitna hai")
	req.Surface = models.SurfaceComment
	public := nlp.StripPricesFromPublic(c.Compose(context.Background(), req).Text())

	if public == "" {
		t.Fatalf("expected some public text to survive")
	}
	for _, line := range strings.Split(public, "\n") {
		if nlp.IsPriceLine(line) {
			t.Errorf("price line leaked into comment reply: %q", line)
		}
	}
	if strings.Contains(public, "30,000") || strings.Contains(public, "50,000") {
		t.Errorf("price leaked: %q", public)
	}
}

func TestComposeContactAndLocationOrder(t *testing.T) {
	c, _, _ := newTestComposer()
	reply := c.Compose(context.Background(), dm("whatsapp number and location please"))
	if len(reply.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(reply.Sections))
	}
	if !strings.Contains(reply.Sections[0], "WhatsApp") || !strings.Contains(reply.Sections[1], "Google Maps") {
		t.Errorf("unexpected sections %q", reply.Sections)
	}
}

func TestComposeRouteBlock(t *testing.T) {
	c, brain, geo := newTestComposer()
	geo.place = &tools.GeocodeResult{Query: "lahore", Formatted: "Lahore, Pakistan", Location: tools.LatLng{Lat: 31.5, Lng: 74.3}}
	geo.route = &tools.RouteInfo{
		Modes: []tools.ModeRoute{
			{Mode: tools.ModeDriving, DistanceText: "420 km", Duration: 8*time.Hour + 30*time.Minute},
			{Mode: tools.ModeTransit, DistanceText: "430 km", Duration: 11 * time.Hour},
		},
	}

	reply := c.Compose(context.Background(), dm("how far is it from lahore"))
	if len(reply.Sections) != 1 {
		t.Fatalf("expected 1 section, got %q", reply.Sections)
	}
	block := reply.Sections[0]
	for _, want := range []string{"From Lahore", "420 km", "8h 30m", "Public transport", "11h"} {
		if !strings.Contains(block, want) {
			t.Errorf("expected %q in %q", want, block)
		}
	}
	if len(brain.calls) != 0 {
		t.Errorf("model must not be called")
	}
}

func TestComposeRouteFailureOmitsSection(t *testing.T) {
	c, brain, _ := newTestComposer()
	reply := c.Compose(context.Background(), dm("distance from lahore"))
	if reply.Source != SourceModel || len(brain.calls) != 1 {
		t.Errorf("expected model fallback when the route section is omitted, got %+v", reply)
	}
}

func TestComposeRouteWithoutOriginAsks(t *testing.T) {
	c, _, _ := newTestComposer()
	reply := c.Compose(context.Background(), dm("route kya hai"))
	if reply.Sections[0] != c.Templates.AskOrigin.in(nlp.LangRomanUrdu) {
		t.Errorf("expected origin question, got %q", reply.Sections[0])
	}
}

func TestComposeHoneymoonFollowUps(t *testing.T) {
	c, brain, _ := newTestComposer()
	ctx := context.Background()
	offer := c.Templates.Campaigns[nlp.CampaignHoneymoon]

	if got := c.Compose(ctx, dm("honeymoon package?")); got.Sections[0] != offer.LongCard {
		t.Fatalf("expected long card, got %q", got.Sections[0])
	}
	if got := c.Compose(ctx, dm("is it available next week")); got.Sections[0] != offer.Availability {
		t.Errorf("expected availability text, got %q", got.Sections[0])
	}
	if got := c.Compose(ctx, dm("what facilities")); got.Sections[0] != offer.Facilities {
		t.Errorf("expected facilities text, got %q", got.Sections[0])
	}
	if got := c.Compose(ctx, dm("honeymoon deal")); got.Sections[0] != offer.PriceReply {
		t.Errorf("expected price reply, got %q", got.Sections[0])
	}

	got := c.Compose(ctx, dm("can we bring our dog"))
	if got.Source != SourceModel || len(brain.calls) != 1 {
		t.Fatalf("expected model delegation, got %+v", got)
	}
	if !strings.Contains(brain.calls[0].Context, offer.Title) {
		t.Errorf("expected campaign context, got %q", brain.calls[0].Context)
	}
}

func TestComposeCampaignTieFavorsStaycation(t *testing.T) {
	c, _, _ := newTestComposer()
	got := c.Compose(context.Background(), dm("honeymoon or 9k chill"))
	if got.Sections[0] != c.Templates.Campaigns[nlp.CampaignStaycation].LongCard {
		t.Errorf("expected staycation card, got %q", got.Sections[0])
	}
}

func TestComposeFallsBackToModel(t *testing.T) {
	c, brain, _ := newTestComposer()
	brain.ans = tools.Answer{Message: "جی ہاں", Language: nlp.LangUrdu}
	req := dm("do you allow pets")
	req.ImageURL = "https://example.com/img?u=x"

	got := c.Compose(context.Background(), req)
	if got.Source != SourceModel || got.Language != nlp.LangUrdu || got.Sections[0] != "جی ہاں" {
		t.Fatalf("unexpected reply %+v", got)
	}
	if brain.calls[0].ImageURL != req.ImageURL || brain.calls[0].Surface != models.SurfaceDM {
		t.Errorf("request not forwarded: %+v", brain.calls[0])
	}
}

func TestSharedPostOwnership(t *testing.T) {
	c, brain, _ := newTestComposer()
	ctx := context.Background()
	key := SessionKey(models.PlatformInstagram, "u1")

	notOurs := dm("")
	notOurs.SharedPost = &models.SharedPost{Permalink: "https://instagram.com/p/abc", Username: "someotherhotel"}
	if got := c.Compose(ctx, notOurs); got.Sections[0] != c.Templates.NotOurs.in(nlp.LangEnglish) {
		t.Errorf("expected not-our-post reply, got %q", got.Sections[0])
	}

	ours := dm("")
	ours.SharedPost = &models.SharedPost{Username: "riversidehuts", Caption: "Sunset by the river\n#naran #kpk", Permalink: "https://instagram.com/p/xyz"}
	got := c.Compose(ctx, ours)
	if got.Source != SourcePost || !strings.Contains(got.Sections[0], "Sunset by the river") || strings.Contains(got.Sections[0], "#naran") {
		t.Errorf("unexpected caption summary %q", got.Sections[0])
	}
	if post := c.Sessions.LastPost(ctx, key); post == nil || post.Permalink != "https://instagram.com/p/xyz" {
		t.Errorf("expected last post to be remembered, got %+v", post)
	}

	campaignPost := dm("")
	campaignPost.SharedPost = &models.SharedPost{Username: "riversidehuts", Caption: "Honeymoon 70k is back!"}
	if got := c.Compose(ctx, campaignPost); got.Sections[0] != c.Templates.Campaigns[nlp.CampaignHoneymoon].LongCard {
		t.Errorf("expected campaign card, got %q", got.Sections[0])
	}
	if sticky := c.Sessions.StickyCampaign(ctx, key); sticky != nlp.CampaignHoneymoon {
		t.Errorf("expected sticky honeymoon, got %q", sticky)
	}

	priced := dm("price?")
	priced.SharedPost = &models.SharedPost{Username: "riversidehuts", Caption: "New deluxe huts"}
	if got := c.Compose(ctx, priced); got.Source != SourceModel {
		t.Fatalf("expected model reply for a price ask on a post, got %+v", got)
	}
	if last := brain.calls[len(brain.calls)-1]; !strings.Contains(last.Context, "New deluxe huts") {
		t.Errorf("expected caption in model context, got %q", last.Context)
	}
}

func TestSharedPostLookupDecidesOwnership(t *testing.T) {
	c, _, _ := newTestComposer()
	ctx := context.Background()

	c.Media = &fakeMedia{info: &tools.MediaInfo{ID: "1", Username: "someone_else", Caption: "Stayed at Riverside Huts!"}}
	req := dm("")
	req.SharedPost = &models.SharedPost{AssetID: "1"}
	if got := c.Compose(ctx, req); got.Sections[0] != c.Templates.NotOurs.in(nlp.LangEnglish) {
		t.Errorf("looked-up author must decide ownership, got %q", got.Sections[0])
	}

	c.Media = &fakeMedia{err: errors.New("boom")}
	req.SharedPost = &models.SharedPost{AssetID: "1", Caption: "Riverside Huts in autumn"}
	if got := c.Compose(ctx, req); got.Source != SourcePost || got.Sections[0] == c.Templates.NotOurs.in(nlp.LangEnglish) {
		t.Errorf("expected substring fallback to claim the post, got %q", got.Sections[0])
	}
}

func TestExtractOrigin(t *testing.T) {
	cases := map[string]string{
		"distance from lahore":               "lahore",
		"how far is it from Islamabad to you": "islamabad",
		"from dera ismail khan how long":      "dera ismail khan",
		"karachi se kitna door hai":           "karachi",
		"aap se rabta":                        "",
		"how far is it":                       "",
	}
	for in, want := range cases {
		if got := ExtractOrigin(in); got != want {
			t.Errorf("ExtractOrigin(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		lang nlp.Language
		want string
	}{
		{45 * time.Minute, nlp.LangEnglish, "45m"},
		{2 * time.Hour, nlp.LangEnglish, "2h"},
		{8*time.Hour + 30*time.Minute, nlp.LangRomanUrdu, "8 ghante 30 minute"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.d, tc.lang); got != tc.want {
			t.Errorf("FormatDuration(%s, %s): expected %q, got %q", tc.d, tc.lang, tc.want, got)
		}
	}
}
