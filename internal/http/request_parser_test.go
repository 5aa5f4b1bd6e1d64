package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"type": "Audit", "inspector": "Jane", "score": 92.5, "draft": false, "tags": ["a"]}`
	req := httptest.NewRequest(http.MethodPost, "/reports/inspections", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}

	values := parser.Values()
	tests := map[string]string{
		"type":      "Audit",
		"inspector": "Jane",
		"score":     "92.5",
		"draft":     "false",
		"tags":      "",
	}
	for key, want := range tests {
		if got := values.Get(key); got != want {
			t.Errorf("Values().Get(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "topic=Fire+drill&no_of_attendees=12"
	req := httptest.NewRequest(http.MethodPost, "/reports/trainings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}

	values := parser.Values()
	if got := values.Get("topic"); got != "Fire drill" {
		t.Errorf("topic = %q, want 'Fire drill'", got)
	}
	if got := values.Get("no_of_attendees"); got != "12" {
		t.Errorf("no_of_attendees = %q, want '12'", got)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Values().Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"type": `))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err == nil {
		t.Fatal("Parse() should fail on truncated JSON")
	}
	// A second call returns the cached error.
	if err := parser.Parse(); err == nil {
		t.Fatal("second Parse() should fail too")
	}
}

func TestRequireMethod(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		allowed []string
		wantErr bool
	}{
		{"POST allowed", http.MethodPost, []string{http.MethodPost}, false},
		{"GET allowed with multiple", http.MethodGet, []string{http.MethodGet, http.MethodPost}, false},
		{"GET not allowed", http.MethodGet, []string{http.MethodPost}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			result := RequireMethod(req, tt.allowed...)

			if tt.wantErr && result == nil {
				t.Error("Expected error response but got nil")
			}
			if !tt.wantErr && result != nil {
				t.Error("Expected nil but got error response")
			}
		})
	}
}

func TestRequirePOST(t *testing.T) {
	postReq := httptest.NewRequest(http.MethodPost, "/test", nil)
	if result := RequirePOST(postReq); result != nil {
		t.Error("RequirePOST should allow POST requests")
	}

	getReq := httptest.NewRequest(http.MethodGet, "/test", nil)
	if result := RequirePOST(getReq); result == nil {
		t.Error("RequirePOST should reject GET requests")
	}
}

func TestRequireGET(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		if result := RequireGET(httptest.NewRequest(method, "/test", nil)); result != nil {
			t.Errorf("RequireGET should allow %s", method)
		}
	}
	w := httptest.NewRecorder()
	RequireGET(httptest.NewRequest(http.MethodDelete, "/test", nil)).Write(w)
	if w.Header().Get("Allow") != "GET, HEAD" {
		t.Errorf("Allow = %q", w.Header().Get("Allow"))
	}
}
