package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Output: &buf})

	l.Info("expense saved", FieldAmount, 1200)
	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "amount_cents=1200") {
		t.Errorf("unexpected output: %s", out)
	}

	buf.Reset()
	l.WithComponent(ComponentLock).Warn("unlock failed")
	if !strings.Contains(buf.String(), "component=lock") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestMiddlewareCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})

	h := Middleware(base, func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			LogError(r.Context(), "boom", errors.New("disk full"), ComponentStorage, OpCreate, nil)
		}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	out := buf.String()
	for _, want := range []string{"request_id=req-1", "component=storage", `error="disk full"`, "operation=create"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Errorf("unexpected fallback logger: %+v", l)
	}
}

func TestLogHTTPEndLevel(t *testing.T) {
	var buf bytes.Buffer
	ctx := NewContext(context.Background(), New(Config{Level: slog.LevelInfo, Output: &buf}))
	LogHTTPEnd(ctx, httptest.NewRequest(http.MethodPost, "/api/expenses", nil), 500, 12, "10.0.0.1")
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "success=false") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
