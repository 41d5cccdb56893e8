// Package replies turns one inbound message into the ordered sections the
// bot sends back. Canned blocks come from Templates; anything open-ended goes
// to the model.
package replies

import (
	"context"
	"log"
	"strings"

	"concierge/config"
	"concierge/metrics"
	"concierge/models"
	"concierge/nlp"
	"concierge/session"
	"concierge/tools"
)

type Brain interface {
	Ask(ctx context.Context, req tools.AskRequest) tools.Answer
}

type Geo interface {
	GeocodePlace(ctx context.Context, place string) *tools.GeocodeResult
	GetRouteInfo(ctx context.Context, origin, dest tools.LatLng) *tools.RouteInfo
}

type MediaLookup interface {
	LookupMedia(ctx context.Context, mediaID string) (*tools.MediaInfo, error)
}

type Request struct {
	Platform   models.Platform
	Surface    models.Surface
	SenderID   string
	Text       string
	SharedPost *models.SharedPost
	ImageURL   string
}

// Source says which branch produced a reply.
type Source string

const (
	SourceIntents  Source = "intents"
	SourcePost     Source = "shared_post"
	SourceCampaign Source = "campaign"
	SourceModel    Source = "model"
)

type Reply struct {
	Sections []string
	Language nlp.Language
	Source   Source
}

func (r Reply) Text() string {
	return strings.Join(r.Sections, "\n\n")
}

type Composer struct {
	Business  config.Business
	Templates Templates
	Brain     Brain
	Geo       Geo
	Media     MediaLookup
	Sessions  *session.Manager
}

// NewComposer wires the reply pipeline. geo and media may be nil.
func NewComposer(b config.Business, brain Brain, geo Geo, media MediaLookup, sessions *session.Manager) *Composer {
	return &Composer{
		Business:  b,
		Templates: NewTemplates(b),
		Brain:     brain,
		Geo:       geo,
		Media:     media,
		Sessions:  sessions,
	}
}

// SessionKey scopes per-user state to a platform.
func SessionKey(platform models.Platform, senderID string) string {
	return string(platform) + ":" + senderID
}

func (c *Composer) Compose(ctx context.Context, req Request) Reply {
	lang := nlp.DetectLanguage(req.Text)
	key := SessionKey(req.Platform, req.SenderID)
	in := nlp.Classify(req.Text)
	for _, it := range in.Fired() {
		metrics.IntentsFired.WithLabelValues(string(it)).Inc()
	}

	hasPost := req.SharedPost != nil && !req.SharedPost.Empty()

	if sections := c.intentSections(ctx, req, key, in, lang, hasPost); len(sections) > 0 {
		return Reply{Sections: sections, Language: lang, Source: SourceIntents}
	}

	if hasPost {
		return c.sharedPost(ctx, req, key, lang)
	}

	if reply, ok := c.campaignFollowUp(ctx, req, key, in, lang); ok {
		return reply
	}

	return c.ask(ctx, req, key, "")
}

// intentSections runs the generic steps in order. Rates defer to an attached
// shared post unless a night count was given.
func (c *Composer) intentSections(ctx context.Context, req Request, key string, in nlp.Intents, lang nlp.Language, hasPost bool) []string {
	var sections []string

	if in.Contact {
		sections = append(sections, c.Templates.Contact.in(lang))
	}
	if in.Location {
		sections = append(sections, c.Templates.Location.in(lang))
	}

	switch {
	case in.Rates && in.Nights > 0:
		sections = append(sections, QuoteForNights(ClampNights(in.Nights)).Format(lang))
	case in.Rates && !hasPost:
		camp := nlp.CampaignFromText(req.Text)
		sticky := c.Sessions.StickyCampaign(ctx, key)
		if camp == nlp.CampaignNone {
			camp = sticky
		}
		if camp == nlp.CampaignStaycation {
			offer := c.Templates.Campaigns[camp]
			if sticky == camp {
				sections = append(sections, offer.PriceReply)
			} else {
				sections = append(sections, offer.LongCard)
			}
			c.Sessions.SetStickyCampaign(ctx, key, camp)
		} else {
			sections = append(sections, c.Templates.RateCard.in(lang))
		}
	}

	if in.Route || in.Distance {
		if block := c.routeBlock(ctx, req.Text, lang); block != "" {
			sections = append(sections, block)
		}
	}
	return sections
}

func (c *Composer) routeBlock(ctx context.Context, text string, lang nlp.Language) string {
	origin := ExtractOrigin(text)
	if origin == "" {
		return c.Templates.AskOrigin.in(lang)
	}
	if c.Geo == nil {
		return ""
	}
	place := c.Geo.GeocodePlace(ctx, origin)
	if place == nil {
		return ""
	}
	dest := tools.LatLng{Lat: c.Business.Lat, Lng: c.Business.Lng}
	info := c.Geo.GetRouteInfo(ctx, place.Location, dest)
	if info == nil {
		return ""
	}
	return formatRoute(placeLabel(origin, place), c.Business.LocationName, info, lang)
}

func (c *Composer) campaignFollowUp(ctx context.Context, req Request, key string, in nlp.Intents, lang nlp.Language) (Reply, bool) {
	fromText := nlp.CampaignFromText(req.Text)
	sticky := c.Sessions.StickyCampaign(ctx, key)
	camp := fromText
	if camp == nlp.CampaignNone {
		camp = sticky
	}
	if camp == nlp.CampaignNone {
		return Reply{}, false
	}
	offer := c.Templates.Campaigns[camp]
	if fromText != nlp.CampaignNone {
		defer c.Sessions.SetStickyCampaign(ctx, key, fromText)
	}

	var text string
	switch {
	case in.Availability:
		text = offer.Availability
	case in.Facilities:
		text = offer.Facilities
	case fromText != nlp.CampaignNone && fromText == sticky:
		text = offer.PriceReply
	case fromText != nlp.CampaignNone:
		text = offer.LongCard
	default:
		return c.ask(ctx, req, key, "The customer is interested in our "+offer.Title+" offer.\n"+offer.Facts), true
	}
	return Reply{Sections: []string{text}, Language: lang, Source: SourceCampaign}, true
}

// ask delegates to the model with the user's history and any remembered post.
func (c *Composer) ask(ctx context.Context, req Request, key, extra string) Reply {
	var notes []string
	if extra != "" {
		notes = append(notes, extra)
	}
	if post := c.Sessions.LastPost(ctx, key); post != nil {
		notes = append(notes, "Earlier the customer shared our post.\nCaption: "+post.Caption+"\nPermalink: "+post.Permalink)
	}
	if c.Brain == nil {
		log.Printf("replies: no model configured")
		ans := tools.FallbackAnswer()
		return Reply{Sections: []string{ans.Message}, Language: ans.Language, Source: SourceModel}
	}
	ans := c.Brain.Ask(ctx, tools.AskRequest{
		Text:     req.Text,
		Surface:  req.Surface,
		History:  c.Sessions.History(ctx, key),
		Context:  strings.Join(notes, "\n\n"),
		ImageURL: req.ImageURL,
	})
	return Reply{Sections: []string{ans.Message}, Language: ans.Language, Source: SourceModel}
}
