package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"concierge/config"
	"concierge/controllers"
	"concierge/middleware"
	"concierge/session"

	"github.com/gin-gonic/gin"
)

func newTestEngine(adminToken string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Defaults()
	cfg.AdminToken = adminToken
	app := &controllers.App{
		Config:   cfg,
		Sessions: session.NewManager(session.NewMemoryStores(10)),
	}
	r := gin.New()
	Initialize(r, app, nil)
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestEngine("")
	if w := do(r, http.MethodGet, "/health", ""); w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Errorf("health: got %d %q", w.Code, w.Body.String())
	}
	w := do(r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Errorf("metrics: got %d", w.Code)
	}
}

func TestAdminGate(t *testing.T) {
	cases := []struct {
		configured string
		sent       string
		status     int
	}{
		{"", "anything", http.StatusForbidden},
		{"s3cret", "", http.StatusUnauthorized},
		{"s3cret", "wrong", http.StatusForbidden},
		{"s3cret", "s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		w := do(newTestEngine(tc.configured), http.MethodGet, "/admin/status", tc.sent)
		if w.Code != tc.status {
			t.Errorf("configured=%q sent=%q: expected %d, got %d", tc.configured, tc.sent, tc.status, w.Code)
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	r := newTestEngine("")
	w := do(r, http.MethodGet, "/health", "")
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Errorf("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(middleware.RequestIDHeader); got != "abc-123" {
		t.Errorf("expected incoming id to be kept, got %q", got)
	}
}
