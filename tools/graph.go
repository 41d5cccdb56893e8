package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"concierge/metrics"
	"concierge/models"

	"golang.org/x/time/rate"
)

var ErrDisabled = errors.New("client disabled (missing credentials)")

// GraphAPIError is a non-2xx answer from the Graph API.
type GraphAPIError struct {
	StatusCode int
	Body       string
}

func (e GraphAPIError) Error() string {
	return fmt.Sprintf("graph api error: status=%d body=%s", e.StatusCode, e.Body)
}

// GraphClient is a thin client for the Page and Instagram messaging calls.
// Tokens travel as the access_token query parameter.
type GraphClient struct {
	BaseURL         string // e.g. https://graph.facebook.com
	ApiVersion      string // e.g. v21.0
	PageID          string
	PageAccessToken string
	IGUserID        string
	IGAccessToken   string
	HTTP            *http.Client
	Limiter         *rate.Limiter
}

func NewGraphClient(baseURL, apiVersion, pageID, pageToken, igUserID, igToken string) *GraphClient {
	return &GraphClient{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		ApiVersion:      apiVersion,
		PageID:          pageID,
		PageAccessToken: pageToken,
		IGUserID:        igUserID,
		IGAccessToken:   igToken,
		HTTP:            &http.Client{Timeout: 15 * time.Second},
		Limiter:         rate.NewLimiter(rate.Limit(20), 40),
	}
}

func (c *GraphClient) tokenFor(platform models.Platform) string {
	if platform == models.PlatformInstagram && strings.TrimSpace(c.IGAccessToken) != "" {
		return strings.TrimSpace(c.IGAccessToken)
	}
	return strings.TrimSpace(c.PageAccessToken)
}

func (c *GraphClient) do(ctx context.Context, kind, method, path, token string, query url.Values, body any, out any) error {
	if token == "" {
		return ErrDisabled
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	apiVersion := strings.TrimSpace(c.ApiVersion)
	if apiVersion == "" {
		apiVersion = "v21.0"
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("access_token", token)
	endpoint := fmt.Sprintf("%s/%s/%s", c.BaseURL, apiVersion, strings.TrimPrefix(path, "/"))

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint+"?"+query.Encode(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		metrics.OutboundCalls.WithLabelValues(kind, "error").Inc()
		// *url.Error carries the full URL, token included
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("graph %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		metrics.OutboundCalls.WithLabelValues(kind, "error").Inc()
		log.Printf("[GRAPH] %s %s -> %d", method, path, resp.StatusCode)
		return GraphAPIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	metrics.OutboundCalls.WithLabelValues(kind, "ok").Inc()

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// SendText sends one message to a user thread.
func (c *GraphClient) SendText(ctx context.Context, platform models.Platform, recipientID, text string) error {
	return c.do(ctx, "send", http.MethodPost, "me/messages", c.tokenFor(platform), nil, map[string]any{
		"recipient":      map[string]any{"id": recipientID},
		"messaging_type": "RESPONSE",
		"message":        map[string]any{"text": text},
	}, nil)
}

// SendPrivateReply answers a comment privately, in the commenter's inbox.
func (c *GraphClient) SendPrivateReply(ctx context.Context, platform models.Platform, commentID, text string) error {
	return c.do(ctx, "private_reply", http.MethodPost, "me/messages", c.tokenFor(platform), nil, map[string]any{
		"recipient": map[string]any{"comment_id": commentID},
		"message":   map[string]any{"text": text},
	}, nil)
}

// ReplyComment posts a public reply under a comment.
func (c *GraphClient) ReplyComment(ctx context.Context, platform models.Platform, commentID, text string) error {
	edge := "comments"
	if platform == models.PlatformInstagram {
		edge = "replies"
	}
	q := url.Values{}
	q.Set("message", text)
	return c.do(ctx, "comment_reply", http.MethodPost, commentID+"/"+edge, c.tokenFor(platform), q, nil, nil)
}

// TakeThreadControl asks the handover protocol for the thread of psid.
func (c *GraphClient) TakeThreadControl(ctx context.Context, psid string) error {
	return c.do(ctx, "thread_control", http.MethodPost, "me/take_thread_control", c.tokenFor(models.PlatformFacebook), nil, map[string]any{
		"recipient": map[string]any{"id": psid},
		"metadata":  "auto-reply",
	}, nil)
}

// MediaInfo is what the Graph API tells about an Instagram media object.
type MediaInfo struct {
	ID        string `json:"id"`
	Caption   string `json:"caption"`
	Permalink string `json:"permalink"`
	Username  string `json:"username"`
}

// LookupMedia resolves a shared asset id. Needs the IG token.
func (c *GraphClient) LookupMedia(ctx context.Context, mediaID string) (*MediaInfo, error) {
	token := strings.TrimSpace(c.IGAccessToken)
	if token == "" || strings.TrimSpace(mediaID) == "" {
		return nil, ErrDisabled
	}
	q := url.Values{}
	q.Set("fields", "caption,permalink,username")
	var out MediaInfo
	if err := c.do(ctx, "lookup", http.MethodGet, url.PathEscape(mediaID), token, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var SubscribedFields = []string{"messages", "messaging_postbacks", "message_echoes", "standby", "feed"}

// SubscribeApp subscribes the app to this page's webhook fields.
func (c *GraphClient) SubscribeApp(ctx context.Context) error {
	if strings.TrimSpace(c.PageID) == "" {
		return fmt.Errorf("page_id is required")
	}
	q := url.Values{}
	q.Set("subscribed_fields", strings.Join(SubscribedFields, ","))
	return c.do(ctx, "subscribe", http.MethodPost, c.PageID+"/subscribed_apps", c.tokenFor(models.PlatformFacebook), q, nil, nil)
}

// SubscribedApps returns the raw subscription list of the page.
func (c *GraphClient) SubscribedApps(ctx context.Context) (json.RawMessage, error) {
	if strings.TrimSpace(c.PageID) == "" {
		return nil, fmt.Errorf("page_id is required")
	}
	var out json.RawMessage
	if err := c.do(ctx, "status", http.MethodGet, c.PageID+"/subscribed_apps", c.tokenFor(models.PlatformFacebook), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
