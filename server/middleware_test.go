package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminAuthToken(t *testing.T) {
	cfg := &authConfig{adminToken: "sekrit", enabled: true}
	h := adminAuth(okHandler(), cfg)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/rooms/hall-a/reset", nil)
	req.Header.Set("X-Admin-Token", "sekrit")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token rejected: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/admin/rooms/hall-a/reset", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token accepted: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/rooms/hall-a/reset", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token accepted: %d", rec.Code)
	}
}

func TestAdminAuthBasic(t *testing.T) {
	cfg := &authConfig{adminUsername: "admin", adminPassword: "pw", enabled: true}
	h := adminAuth(okHandler(), cfg)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/rooms/hall-a/reset", nil)
	req.SetBasicAuth("admin", "pw")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid credentials rejected: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/admin/rooms/hall-a/reset", nil)
	req.SetBasicAuth("admin", "nope")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad credentials accepted: %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate challenge")
	}
}

func TestAdminAuthDisabledPassesThrough(t *testing.T) {
	h := adminAuth(okHandler(), &authConfig{enabled: false})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/rooms/hall-a/reset", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("dev mode must pass through: %d", rec.Code)
	}
}

func TestIsOriginAllowed(t *testing.T) {
	allowed := []string{"https://board.example.org", "*.example.net"}
	tests := []struct {
		origin string
		want   bool
	}{
		{"https://board.example.org", true},
		{"https://evil.example.org", false},
		{"https://sub.example.net", true},
		{"https://example.net", true},
		{"https://example.org", false},
	}
	for _, tt := range tests {
		if got := isOriginAllowed(tt.origin, allowed); got != tt.want {
			t.Fatalf("isOriginAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestCORSPermissivePreflight(t *testing.T) {
	h := withCORSConfig(okHandler(), &corsConfig{permissive: true})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/rooms/hall-a/ranking", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("allow-origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORSRestrictedBlocksUnknownOrigin(t *testing.T) {
	h := withCORSConfig(okHandler(), &corsConfig{allowedOrigins: []string{"https://board.example.org"}})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms/hall-a/ranking", nil)
	req.Header.Set("Origin", "https://evil.example")
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unknown origin must not get CORS headers")
	}
}
