package replies

import (
	"context"
	"log"
	"strings"

	"concierge/models"
	"concierge/nlp"
)

const maxCaptionLines = 4

// resolvePost fills in caption and author through the media lookup when the
// post carries an asset id.
func (c *Composer) resolvePost(ctx context.Context, post models.SharedPost) (models.SharedPost, bool) {
	if post.AssetID != "" && c.Media != nil {
		info, err := c.Media.LookupMedia(ctx, post.AssetID)
		if err == nil && info != nil {
			if info.Caption != "" {
				post.Caption = info.Caption
			}
			if info.Permalink != "" {
				post.Permalink = info.Permalink
			}
			if info.Username != "" {
				post.Username = info.Username
			}
			return post, info.Username != ""
		}
		log.Printf("replies: media lookup %s: %v", post.AssetID, err)
	}
	return post, false
}

// IsBrandOwned matches the post's author, permalink and caption against the
// business usernames. A looked-up post is judged on its author only.
func (c *Composer) IsBrandOwned(post models.SharedPost, lookedUp bool) bool {
	fields := []string{post.Username}
	if !lookedUp {
		fields = append(fields, post.Permalink, post.Caption)
	}
	for _, f := range fields {
		f = squash(f)
		if f == "" {
			continue
		}
		for _, brand := range append([]string{c.Business.Name}, c.Business.BrandUsernames...) {
			if b := squash(brand); b != "" && strings.Contains(f, b) {
				return true
			}
		}
	}
	return false
}

func squash(s string) string {
	return strings.ReplaceAll(nlp.Normalize(s), " ", "")
}

func (c *Composer) sharedPost(ctx context.Context, req Request, key string, lang nlp.Language) Reply {
	post, lookedUp := c.resolvePost(ctx, *req.SharedPost)
	if !c.IsBrandOwned(post, lookedUp) {
		return Reply{Sections: []string{c.Templates.NotOurs.in(lang)}, Language: lang, Source: SourcePost}
	}

	c.Sessions.SetLastPost(ctx, key, models.PostMemory{Caption: post.Caption, Permalink: post.Permalink})

	if nlp.IsPricingIntent(req.Text) {
		return c.ask(ctx, req, key, "The customer shared this post of ours and asks about its price.\nCaption: "+post.Caption+"\nPermalink: "+post.Permalink)
	}

	if camp := nlp.CampaignFromCaption(post.Caption); camp != nlp.CampaignNone {
		c.Sessions.SetStickyCampaign(ctx, key, camp)
		return Reply{Sections: []string{c.Templates.Campaigns[camp].LongCard}, Language: lang, Source: SourcePost}
	}

	return Reply{Sections: []string{c.captionSummary(post, lang)}, Language: lang, Source: SourcePost}
}

// captionSummary keeps the first lines of the caption, minus hashtags.
func (c *Composer) captionSummary(post models.SharedPost, lang nlp.Language) string {
	var lines []string
	for _, line := range strings.Split(post.Caption, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, "• "+line)
		if len(lines) == maxCaptionLines {
			break
		}
	}

	var b strings.Builder
	b.WriteString(c.Templates.PostIntro.in(lang))
	if len(lines) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(lines, "\n"))
	}
	if post.Permalink != "" {
		b.WriteString("\n")
		b.WriteString(post.Permalink)
	}
	b.WriteString("\n")
	b.WriteString(c.Templates.PostOutro.in(lang))
	return b.String()
}
