package controllers

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"concierge/config"
	"concierge/models"
	"concierge/session"
	"concierge/tools"

	"github.com/gin-gonic/gin"
)

const testSecret = "app-secret"

type fakeQueue struct {
	mu         sync.Mutex
	deliveries []string
	events     []models.InboundEvent
}

func (q *fakeQueue) Enqueue(ctx context.Context, deliveryID string, events []models.InboundEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deliveries = append(q.deliveries, deliveryID)
	q.events = append(q.events, events...)
	return nil
}

type fakeGraph struct {
	subscribed bool
	err        error
}

func (f *fakeGraph) SubscribeApp(ctx context.Context) error {
	f.subscribed = f.err == nil
	return f.err
}

func (f *fakeGraph) SubscribedApps(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"data":[{"name":"concierge"}]}`), f.err
}

type fakeStats struct{}

func (fakeStats) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return map[string]int64{models.EVENT_STATUS_PENDING: 2}, nil
}

func newTestApp() (*App, *fakeQueue) {
	cfg := config.Defaults()
	cfg.Meta.AppSecret = testSecret
	cfg.Meta.VerifyToken = "verify-me"
	cfg.Meta.PageID = "PAGE1"
	cfg.Meta.IGUserID = "IG1"
	q := &fakeQueue{}
	return &App{
		Config:   cfg,
		Sessions: session.NewManager(session.NewMemoryStores(100)),
		Queue:    q,
		Stats:    fakeStats{},
		Graph:    &fakeGraph{},
	}, q
}

func newTestRouter(app *App) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SetAppToContext(app))
	r.GET("/webhook", WebhookVerify)
	r.POST("/webhook", WebhookUpdate)
	r.GET("/img", ImageProxy)
	r.POST("/admin/subscribe", AdminSubscribe)
	r.GET("/admin/status", AdminStatus)
	return r
}

func postSigned(r http.Handler, body string, sign bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if sign {
		req.Header.Set("X-Hub-Signature-256", tools.SignBody(testSecret, []byte(body)))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookVerify(t *testing.T) {
	app, _ := newTestApp()
	r := newTestRouter(app)

	cases := []struct {
		query  string
		status int
		body   string
	}{
		{"hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", http.StatusOK, "12345"},
		{"hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", http.StatusForbidden, ""},
		{"hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=12345", http.StatusForbidden, ""},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook?"+tc.query, nil))
		if w.Code != tc.status {
			t.Errorf("%s: expected %d, got %d", tc.query, tc.status, w.Code)
		}
		if tc.body != "" && w.Body.String() != tc.body {
			t.Errorf("%s: expected body %q, got %q", tc.query, tc.body, w.Body.String())
		}
	}
}

const dmPayload = `{"object":"page","entry":[{"id":"PAGE1","time":1700000000,"messaging":[
 {"sender":{"id":"U1"},"recipient":{"id":"PAGE1"},"timestamp":1700000000,"message":{"mid":"m1","text":"price for 4 nights"}},
 {"sender":{"id":"PAGE1"},"recipient":{"id":"U1"},"message":{"mid":"m2","text":"echo","is_echo":true}}
]}]}`

func TestWebhookRejectsBadSignature(t *testing.T) {
	app, q := newTestApp()
	r := newTestRouter(app)

	if w := postSigned(r, dmPayload, false); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without signature, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(dmPayload))
	req.Header.Set("X-Hub-Signature-256", tools.SignBody("other-secret", []byte(dmPayload)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong secret, got %d", w.Code)
	}
	if len(q.events) != 0 {
		t.Errorf("rejected deliveries must not be processed")
	}
}

func TestWebhookAcksAndEnqueues(t *testing.T) {
	app, q := newTestApp()
	r := newTestRouter(app)

	w := postSigned(r, dmPayload, true)
	if w.Code != http.StatusOK || w.Body.String() != "EVENT_RECEIVED" {
		t.Fatalf("expected ack, got %d %q", w.Code, w.Body.String())
	}
	if len(q.events) != 1 {
		t.Fatalf("expected 1 event (echo dropped), got %d", len(q.events))
	}
	ev := q.events[0]
	if ev.Platform != models.PlatformFacebook || ev.Surface != models.SurfaceDM || ev.SenderID != "U1" || ev.Text != "price for 4 nights" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestWebhookDedupeOnReplay(t *testing.T) {
	app, q := newTestApp()
	r := newTestRouter(app)

	postSigned(r, dmPayload, true)
	w := postSigned(r, dmPayload, true)
	if w.Code != http.StatusOK {
		t.Fatalf("replay must still be acked, got %d", w.Code)
	}
	if len(q.events) != 1 || len(q.deliveries) != 1 {
		t.Errorf("replay produced duplicate work: %d events, %d deliveries", len(q.events), len(q.deliveries))
	}

	// same entry, new timestamp, is a new delivery
	postSigned(r, strings.Replace(dmPayload, `"time":1700000000`, `"time":1700000001`, 1), true)
	if len(q.events) != 2 {
		t.Errorf("expected a fresh delivery to pass, got %d events", len(q.events))
	}
}

func TestWebhookInvalidJSONIsAcked(t *testing.T) {
	app, q := newTestApp()
	w := postSigned(newTestRouter(app), `{"object":`, true)
	if w.Code != http.StatusOK || len(q.events) != 0 {
		t.Errorf("expected ack and no work, got %d / %d events", w.Code, len(q.events))
	}
}

func TestWebhookStandbyToggle(t *testing.T) {
	payload := `{"object":"page","entry":[{"id":"PAGE1","time":1,"standby":[
	  {"sender":{"id":"U2"},"recipient":{"id":"PAGE1"},"message":{"mid":"s1","text":"hello?"}}]}]}`

	app, q := newTestApp()
	postSigned(newTestRouter(app), payload, true)
	if len(q.events) != 0 {
		t.Fatalf("standby must be ignored when the toggle is off")
	}

	app, q = newTestApp()
	app.Config.Features.HandleStandby = true
	postSigned(newTestRouter(app), payload, true)
	if len(q.events) != 1 || !q.events[0].Standby {
		t.Fatalf("expected one standby event, got %+v", q.events)
	}
}

func TestWebhookComments(t *testing.T) {
	payload := `{"object":"instagram","entry":[{"id":"IG1","time":5,"changes":[
	  {"field":"comments","value":{"id":"C1","text":"rate kitna hai","from":{"id":"U3","username":"guest"},"media":{"id":"M1"}}},
	  {"field":"comments","value":{"id":"C2","text":"thanks!","from":{"id":"IG1","username":"riversidehuts"},"media":{"id":"M1"}}}
	]}]}`
	app, q := newTestApp()
	postSigned(newTestRouter(app), payload, true)

	if len(q.events) != 1 {
		t.Fatalf("expected own comment to be skipped, got %d events", len(q.events))
	}
	ev := q.events[0]
	if ev.Surface != models.SurfaceComment || ev.CommentID != "C1" || ev.Platform != models.PlatformInstagram {
		t.Errorf("unexpected event %+v", ev)
	}

	feed := `{"object":"page","entry":[{"id":"PAGE1","time":6,"changes":[
	  {"field":"feed","value":{"item":"comment","verb":"add","comment_id":"P_C9","post_id":"P","message":"location?","from":{"id":"U4","name":"Guest"}}},
	  {"field":"feed","value":{"item":"reaction","verb":"add","from":{"id":"U5"}}}
	]}]}`
	postSigned(newTestRouter(app), feed, true)
	if len(q.events) != 2 || q.events[1].CommentID != "P_C9" {
		t.Errorf("expected page comment event, got %+v", q.events)
	}
}

func TestWebhookAttachments(t *testing.T) {
	payload := `{"object":"instagram","entry":[{"id":"IG1","time":7,"messaging":[
	  {"sender":{"id":"U6"},"recipient":{"id":"IG1"},"message":{"mid":"a1","attachments":[{"type":"audio","payload":{"url":"https://cdn.example.com/voice.mp4"}}]}},
	  {"sender":{"id":"U7"},"recipient":{"id":"IG1"},"message":{"mid":"a2","attachments":[{"type":"ig_reel","payload":{"reel_video_id":"17890001112223","title":"Honeymoon 70k at the river","url":"https://lookaside.fbsbx.com/ig_messaging_cdn/?asset_id=17890001112223"}}]}}
	]}]}`
	app, q := newTestApp()
	postSigned(newTestRouter(app), payload, true)

	if len(q.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(q.events))
	}
	if q.events[0].AttachmentType != models.ATTACHMENT_AUDIO || q.events[0].AttachmentURL == "" {
		t.Errorf("expected audio attachment, got %+v", q.events[0])
	}
	post := q.events[1].SharedPost
	if post == nil || post.AssetID != "17890001112223" || post.Caption != "Honeymoon 70k at the river" {
		t.Errorf("unexpected shared post %+v", post)
	}
}

func TestScanSharedPost(t *testing.T) {
	raw := []byte(`{"type":"share","payload":{"url":"https://scontent.cdninstagram.com/v/t51/abc.jpg",
	  "generic":{"elements":[{"title":"Sunset at Riverside Huts","subtitle":"x",
	  "default_action":{"url":"https://www.instagram.com/p/C0ffee_12/"}}]},
	  "owner":{"username":"@riversidehuts"},"ig_post_media_id":17841400000000000}}`)
	post := ScanSharedPost(raw)
	if post == nil {
		t.Fatalf("expected a shared post")
	}
	if post.ThumbnailURL != "https://scontent.cdninstagram.com/v/t51/abc.jpg" {
		t.Errorf("thumbnail: got %q", post.ThumbnailURL)
	}
	if post.Permalink != "https://www.instagram.com/p/C0ffee_12/" {
		t.Errorf("permalink: got %q", post.Permalink)
	}
	if post.Username != "riversidehuts" || post.Caption != "Sunset at Riverside Huts" {
		t.Errorf("author/caption: got %q / %q", post.Username, post.Caption)
	}
	if post.AssetID != "17841400000000000" {
		t.Errorf("asset id: got %q", post.AssetID)
	}

	if ScanSharedPost([]byte(`{"type":"fallback","payload":{}}`)) != nil {
		t.Errorf("expected nil for an empty attachment")
	}
}

func TestAdminEndpoints(t *testing.T) {
	app, _ := newTestApp()
	r := newTestRouter(app)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/subscribe", nil))
	if w.Code != http.StatusOK || !app.Graph.(*fakeGraph).subscribed {
		t.Fatalf("subscribe: got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/status", nil))
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("status body: %v", err)
	}
	for _, key := range []string{"subscriptions", "ledger", "caches", "features"} {
		if _, ok := body[key]; !ok {
			t.Errorf("expected %q in status, got %v", key, body)
		}
	}

	app.Graph = &fakeGraph{err: errors.New("graph down")}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/subscribe", nil))
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502 when graph fails, got %d", w.Code)
	}
}

// cdnClient sends every request to upstream whatever host the URL names.
func cdnClient(upstream *httptest.Server) *http.Client {
	addr := upstream.Listener.Addr().String()
	return &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}}
}

func TestImageProxy(t *testing.T) {
	var mu sync.Mutex
	var fetched []string
	upstream := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		fetched = append(fetched, r.Host+r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/not-image":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>"))
		case "/hop":
			http.Redirect(w, r, "https://scontent-lhr8-1.cdninstagram.com/pic.jpg", http.StatusFound)
		case "/escape":
			http.Redirect(w, r, "https://169.254.169.254/latest/meta-data/", http.StatusFound)
		default:
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte("jpeg-bytes"))
		}
	}))
	defer upstream.Close()

	app, _ := newTestApp()
	app.HTTP = cdnClient(upstream)
	r := newTestRouter(app)

	get := func(target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/img?u="+url.QueryEscape(target), nil))
		return w
	}

	// plain http is upgraded to https
	w := get("http://scontent.cdninstagram.com/v/pic.jpg")
	if w.Code != http.StatusOK || w.Body.String() != "jpeg-bytes" {
		t.Fatalf("expected proxied image, got %d %q", w.Code, w.Body.String())
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "max-age=300") {
		t.Errorf("cache-control: got %q", cc)
	}

	if w := get("https://lookaside.fbsbx.com/hop"); w.Code != http.StatusOK {
		t.Errorf("expected redirect within the CDN to be followed, got %d", w.Code)
	}
	if w := get("https://scontent.xx.fbcdn.net/not-image"); w.Code != http.StatusBadGateway {
		t.Errorf("expected 502 for non-image, got %d", w.Code)
	}
	if w := get("https://scontent.xx.fbcdn.net/escape"); w.Code != http.StatusBadGateway {
		t.Errorf("expected 502 for a redirect off the CDN, got %d", w.Code)
	}

	mu.Lock()
	seen := len(fetched)
	mu.Unlock()

	for _, target := range []string{
		"https://example.com/pic.jpg",
		"http://127.0.0.1:8080/admin/status",
		"https://169.254.169.254/latest/meta-data/",
		"https://evilcdninstagram.com/pic.jpg",
		"https://fbcdn.net.example.com/pic.jpg",
	} {
		if w := get(target); w.Code != http.StatusForbidden {
			t.Errorf("%s: expected 403, got %d", target, w.Code)
		}
	}
	mu.Lock()
	if len(fetched) != seen {
		t.Errorf("non-CDN hosts must not be fetched, got %v", fetched[seen:])
	}
	mu.Unlock()

	for _, target := range []string{"ftp://scontent.cdninstagram.com/x", "https://user@scontent.cdninstagram.com/x", ""} {
		if w := get(target); w.Code != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %d", target, w.Code)
		}
	}
}

func TestIsCDNHost(t *testing.T) {
	cases := map[string]bool{
		"cdninstagram.com":                 true,
		"scontent-lhr8-1.cdninstagram.com": true,
		"SCONTENT.XX.FBCDN.NET":            true,
		"lookaside.fbsbx.com.":             true,
		"evilcdninstagram.com":             false,
		"fbcdn.net.example.com":            false,
		"127.0.0.1":                        false,
		"":                                 false,
	}
	for host, want := range cases {
		if got := isCDNHost(host); got != want {
			t.Errorf("%q: expected %v, got %v", host, want, got)
		}
	}
}
