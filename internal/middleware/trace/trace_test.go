package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	applog "hse/internal/log"
)

func newTestLogger(buf *bytes.Buffer) *applog.Logger {
	return applog.New(applog.Config{
		Component: applog.ComponentHTTP,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestGenerateRequestID(t *testing.T) {
	re := regexp.MustCompile(`^req_[0-9a-f]{16}$`)
	a, b := GenerateRequestID(), GenerateRequestID()
	if !re.MatchString(a) {
		t.Errorf("GenerateRequestID() = %q, want req_ followed by 16 hex digits", a)
	}
	if a == b {
		t.Errorf("GenerateRequestID() returned the same id twice: %q", a)
	}
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(newTestLogger(&buf), func(*http.Request) string { return "203.0.113.7" })

	var seenID string
	var ctxLogger *applog.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		ctxLogger = applog.FromContext(r.Context())
		if r.URL.Path == "/boom" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if seenID == "" {
		t.Fatal("request id missing from handler context")
	}
	if got := rec.Header().Get(HeaderRequestID); got != seenID {
		t.Errorf("X-Request-ID = %q, want %q", got, seenID)
	}
	if ctxLogger == nil || ctxLogger.Component() != applog.ComponentHTTP {
		t.Error("handler context should carry a request logger")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/boom", nil))

	out := buf.String()
	for _, want := range []string{"HTTP request started", "HTTP request completed", "client_ip=203.0.113.7", "status_code=500", "level=ERROR"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}

	metrics := m.GetMetrics()
	if metrics.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", metrics.TotalRequests)
	}
	if metrics.ServerErrors != 1 {
		t.Errorf("ServerErrors = %d, want 1", metrics.ServerErrors)
	}
}
