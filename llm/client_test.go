package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"auction-crawler/config"
	"auction-crawler/utils"
)

// chatServer answers every completion request with content and records the
// last request body.
func chatServer(t *testing.T, status int, content string, last *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization header = %q; want %q", got, "Bearer test-key")
		}
		if last != nil {
			_ = json.NewDecoder(r.Body).Decode(last)
		}
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":"boom"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
		})
	}))
}

func newTestClient(url string) *Client {
	return NewClient("test-key", "deepseek-chat", url, 5*time.Second, utils.Discard())
}

func TestNewWarnsWithoutKey(t *testing.T) {
	tests := []struct {
		key  string
		warn bool
	}{
		{"", true},
		{"test-key", false},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		c := New(&config.Config{DeepSeekAPIKey: tt.key}, utils.NewLoggerTo(&buf, utils.LevelWarn))
		if c.Configured() == tt.warn {
			t.Errorf("New(key=%q).Configured() = %t", tt.key, c.Configured())
		}
		if got := strings.Contains(buf.String(), "API key not provided"); got != tt.warn {
			t.Errorf("New(key=%q) warned = %t; want %t (log %q)", tt.key, got, tt.warn, buf.String())
		}
	}
}

func TestAnalyzeUnconfigured(t *testing.T) {
	c := NewClient("", "deepseek-chat", "http://127.0.0.1:0", time.Second, utils.Discard())
	if c.Configured() {
		t.Fatal("client without key should not be configured")
	}

	a := c.Analyze(context.Background(), "content", "itapiruba", "SC")
	if a.IsRelevant != nil {
		t.Errorf("IsRelevant = %v; want nil", *a.IsRelevant)
	}
	if a.Error == "" {
		t.Error("expected an error note on unconfigured analysis")
	}
	if got := c.Extract(context.Background(), "<html></html>", "itapiruba"); len(got) != 0 {
		t.Errorf("Extract = %v; want empty", got)
	}
}

func TestAnalyzeParsesVerdict(t *testing.T) {
	var body map[string]any
	srv := chatServer(t, http.StatusOK, `{"is_relevant": true, "confidence": 0.85, "reason": "Laguna/SC"}`, &body)
	defer srv.Close()

	a := newTestClient(srv.URL).Analyze(context.Background(), "Terreno em Itapirubá", "itapiruba", "SC")
	if a.IsRelevant == nil || !*a.IsRelevant {
		t.Fatalf("IsRelevant = %v; want true", a.IsRelevant)
	}
	if a.Confidence != 0.85 {
		t.Errorf("Confidence = %v; want 0.85", a.Confidence)
	}
	if a.Reason != "Laguna/SC" {
		t.Errorf("Reason = %q", a.Reason)
	}

	format, _ := body["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("response_format = %v; want json_object", body["response_format"])
	}
	if body["model"] != "deepseek-chat" {
		t.Errorf("model = %v", body["model"])
	}
}

func TestAnalyzeDegradesOnBadJSON(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "not json at all", nil)
	defer srv.Close()

	a := newTestClient(srv.URL).Analyze(context.Background(), "x", "q", "l")
	if a.IsRelevant != nil || a.Error == "" {
		t.Errorf("Analyze = %+v; want neutral result with error", a)
	}
}

func TestAnalyzeDegradesOnHTTPError(t *testing.T) {
	srv := chatServer(t, http.StatusInternalServerError, "", nil)
	defer srv.Close()

	a := newTestClient(srv.URL).Analyze(context.Background(), "x", "q", "l")
	if a.IsRelevant != nil || !strings.Contains(a.Error, "500") {
		t.Errorf("Analyze = %+v; want neutral result mentioning status 500", a)
	}
}

func TestParseAnalysisCoercion(t *testing.T) {
	tests := []struct {
		raw      string
		relevant *bool
		conf     float64
	}{
		{`{"is_relevant": "true", "confidence": "0.9"}`, ptr(true), 0.9},
		{`{"is_relevant": false, "confidence": 1.7}`, ptr(false), 1},
		{`{"confidence": -2}`, nil, 0},
	}
	for _, tt := range tests {
		a, err := parseAnalysis(tt.raw)
		if err != nil {
			t.Fatalf("parseAnalysis(%q) error: %v", tt.raw, err)
		}
		if (a.IsRelevant == nil) != (tt.relevant == nil) ||
			(a.IsRelevant != nil && *a.IsRelevant != *tt.relevant) {
			t.Errorf("parseAnalysis(%q).IsRelevant = %v; want %v", tt.raw, a.IsRelevant, tt.relevant)
		}
		if a.Confidence != tt.conf {
			t.Errorf("parseAnalysis(%q).Confidence = %v; want %v", tt.raw, a.Confidence, tt.conf)
		}
	}
}

func TestExtractReturnsFields(t *testing.T) {
	srv := chatServer(t, http.StatusOK, `{"title": "Casa", "evaluation": "R$ 100.000,00"}`, nil)
	defer srv.Close()

	got := newTestClient(srv.URL).Extract(context.Background(), "<html></html>", "itapiruba")
	if got["title"] != "Casa" || got["evaluation"] != "R$ 100.000,00" {
		t.Errorf("Extract = %v", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	s := strings.Repeat("á", 10)
	if got := truncate(s, 4); got != "áááá" {
		t.Errorf("truncate = %q; want 4 runes", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Errorf("truncate short = %q", got)
	}
}

func ptr(b bool) *bool { return &b }
