package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	imageProxyTimeout = 15 * time.Second
	maxImageBytes     = 8 << 20
	maxImageRedirects = 5
)

// GET /img?u=<url>
// Only Meta CDN hosts are fetched, redirects included.
func ImageProxy(c *gin.Context) {
	target, ok := forceHTTPS(c.Query("u"))
	if !ok {
		RespondError(c, "invalid url", http.StatusBadRequest)
		return
	}
	if !isCDNHost(target.Hostname()) {
		RespondError(c, "host not allowed", http.StatusForbidden)
		return
	}

	client := *http.DefaultClient
	if app := AppInstance(c); app != nil && app.HTTP != nil {
		client = *app.HTTP
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxImageRedirects {
			return errors.New("too many redirects")
		}
		if !isCDNHost(req.URL.Hostname()) {
			return fmt.Errorf("redirect to %s not allowed", req.URL.Hostname())
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), imageProxyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		RespondError(c, "invalid url", http.StatusBadRequest)
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("[IMG] fetch error: %v", err)
		RespondError(c, "upstream error", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(contentType, "image/") {
		log.Printf("[IMG] upstream status=%d type=%q", resp.StatusCode, contentType)
		RespondError(c, "upstream error", http.StatusBadGateway)
		return
	}

	c.Header("Cache-Control", "public, max-age=300")
	c.DataFromReader(http.StatusOK, -1, contentType, io.LimitReader(resp.Body, maxImageBytes), nil)
}

func forceHTTPS(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.User != nil {
		return nil, false
	}
	switch u.Scheme {
	case "http", "https":
		u.Scheme = "https"
	default:
		return nil, false
	}
	return u, true
}
