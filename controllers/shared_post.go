package controllers

import (
	"bytes"
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"concierge/models"
)

var (
	cdnRe       = regexp.MustCompile(`(?i)^https?://(?:[a-z0-9-]+\.)*(?:cdninstagram\.com|fbcdn\.net|fbsbx\.com)(?::\d+)?/`)
	permalinkRe = regexp.MustCompile(`https?://(?:www\.)?(?:instagram\.com/(?:[A-Za-z0-9_.]+/)?(?:p|reel|reels|tv)/[A-Za-z0-9_-]+|facebook\.com/[^\s"?#]+/(?:posts|videos|photos)/[^\s"?#]+|fb\.watch/[A-Za-z0-9_-]+)/?`)
	assetIDRe   = regexp.MustCompile(`^\d{6,}$`)
)

var cdnDomains = []string{"cdninstagram.com", "fbcdn.net", "fbsbx.com"}

// isCDNHost reports whether host is one of Meta's media CDNs or a subdomain of one.
func isCDNHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, d := range cdnDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

var (
	assetKeys    = map[string]bool{"asset_id": true, "ig_post_media_id": true, "media_id": true, "reel_video_id": true, "id": true}
	captionKeys  = map[string]bool{"caption": true, "title": true, "text": true, "description": true, "message": true, "name": true}
	usernameKeys = map[string]bool{"username": true, "owner_username": true, "author": true, "author_name": true}
)

// ScanSharedPost walks an attachment of any shape and keeps what looks like a
// shared post: a CDN thumbnail, an asset id, a permalink, a caption and an
// author. The longest caption-like string wins.
func ScanSharedPost(raw []byte) *models.SharedPost {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil
	}
	post := &models.SharedPost{}
	scanValue("", doc, post)
	if post.Empty() {
		return nil
	}
	return post
}

func scanValue(key string, v any, post *models.SharedPost) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			scanValue(strings.ToLower(k), t[k], post)
		}
	case []any:
		for _, child := range t {
			scanValue(key, child, post)
		}
	case json.Number:
		if assetKeys[key] && post.AssetID == "" && assetIDRe.MatchString(t.String()) {
			post.AssetID = t.String()
		}
	case string:
		scanString(key, strings.TrimSpace(t), post)
	}
}

func scanString(key, s string, post *models.SharedPost) {
	if s == "" {
		return
	}
	if post.Permalink == "" {
		if m := permalinkRe.FindString(s); m != "" {
			post.Permalink = m
		}
	}
	switch {
	case cdnRe.MatchString(s):
		if post.ThumbnailURL == "" {
			post.ThumbnailURL = s
		}
		if u, err := url.Parse(s); err == nil && post.AssetID == "" {
			if id := u.Query().Get("asset_id"); assetIDRe.MatchString(id) {
				post.AssetID = id
			}
		}
	case assetKeys[key] && assetIDRe.MatchString(s):
		if post.AssetID == "" {
			post.AssetID = s
		}
	case usernameKeys[key]:
		if post.Username == "" {
			post.Username = strings.TrimPrefix(s, "@")
		}
	case captionKeys[key] && !strings.HasPrefix(s, "http"):
		if len(s) > len(post.Caption) {
			post.Caption = s
		}
	}
}
