package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"mkwanja/internal/core"
)

func TestParseMonthParam(t *testing.T) {
	now := time.Date(2025, time.July, 4, 10, 0, 0, 0, time.Local)

	tests := []struct {
		name    string
		query   url.Values
		want    string
		wantErr bool
	}{
		{"explicit", url.Values{"month": {"2024-12"}}, "2024-12", false},
		{"absent uses now", url.Values{}, "2025-07", false},
		{"whitespace uses now", url.Values{"month": {"  "}}, "2025-07", false},
		{"invalid", url.Values{"month": {"12-2024"}}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMonthParam(tt.query, now)
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("month = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseOptionalMonth(t *testing.T) {
	got, err := parseOptionalMonth(url.Values{})
	if err != nil || got != nil {
		t.Fatalf("absent month: got %v, %v", got, err)
	}
	got, err = parseOptionalMonth(url.Values{"month": {"2025-02"}})
	if err != nil || got == nil || got.String() != "2025-02" {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		key    string
		want   string
		isJSON bool
	}{
		{"json string", `{"amount":"12.50"}`, "amount", "12.50", true},
		{"json number keeps precision", `{"amount": 12.10}`, "amount", "12.10", true},
		{"json missing key", `{"amount":"1"}`, "note", "", true},
		{"form", "amount=7&note=hi", "note", "hi", false},
		{"control characters stripped", `{"note":"a\u0000b"}`, "note", "ab", true},
		{"empty body", "", "amount", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			p := NewRequestBodyParser(httptest.NewRecorder(), req)
			if err := p.Parse(); err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if p.IsJSON() != tt.isJSON {
				t.Errorf("IsJSON = %v", p.IsJSON())
			}
		})
	}
}

func TestRequestBodyParserMalformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":`))
	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	// A second call returns the same result.
	if err := p.Parse(); !core.IsValidation(err) {
		t.Fatalf("expected cached validation error, got %v", err)
	}
}

func TestRequestBodyParserRejectsOversizedBody(t *testing.T) {
	body := "category=" + strings.Repeat("a", maxBodyBytes) + "&amount=1"
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	p := NewRequestBodyParser(httptest.NewRecorder(), req)

	err := p.Parse()
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if p.Get("category") != "" {
		t.Errorf("oversized body was partially parsed")
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct", "203.0.113.5:1234", "", "203.0.113.5"},
		{"untrusted peer ignores xff", "203.0.113.5:1234", "198.51.100.1", "203.0.113.5"},
		{"trusted proxy uses xff", "10.0.0.2:80", "198.51.100.1, 10.0.0.2", "198.51.100.1"},
		{"trusted proxy bad xff", "127.0.0.1:80", "not-an-ip", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(req); got != tt.want {
				t.Errorf("extractClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2)
	rl.now = func() time.Time { return now }

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a") {
		t.Fatal("third request should be limited")
	}
	if !rl.allow("b") {
		t.Fatal("other clients are independent")
	}

	now = now.Add(rateWindow + time.Second)
	if !rl.allow("a") {
		t.Fatal("new window should reset the counter")
	}

	now = now.Add(staleClientAge + time.Minute)
	if removed := rl.cleanupStaleEntries(); removed != 2 {
		t.Fatalf("removed %d stale clients, want 2", removed)
	}
	if rl.activeClients() != 0 {
		t.Fatalf("active clients = %d", rl.activeClients())
	}
}

func TestIsSuspicious(t *testing.T) {
	if !isSuspicious(httptest.NewRequest(http.MethodGet, "/api/../../etc/passwd", nil)) {
		t.Error("path traversal should be flagged")
	}
	if isSuspicious(httptest.NewRequest(http.MethodGet, "/api/dashboard?month=2025-03", nil)) {
		t.Error("normal request flagged")
	}
}
