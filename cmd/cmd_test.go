package cmd

import (
	"strings"
	"testing"

	"auction-crawler/handler"
)

func TestRootCommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"search", "generate", "serve"} {
		c, _, err := root.Find([]string{name})
		if err != nil || c.Name() != name {
			t.Errorf("Find(%q) = %v, %v; want the %s command", name, c, err, name)
		}
	}
}

func TestSearchFlagDefaults(t *testing.T) {
	c := newSearchCmd()

	tests := []struct {
		flag string
		want string
	}{
		{"fetch-descriptions", "true"},
		{"use-llm", "false"},
		{"llm-filter", "false"},
		{"csv", ""},
	}
	for _, tt := range tests {
		f := c.Flags().Lookup(tt.flag)
		if f == nil {
			t.Errorf("flag --%s missing", tt.flag)
			continue
		}
		if f.DefValue != tt.want {
			t.Errorf("--%s default = %q; want %q", tt.flag, f.DefValue, tt.want)
		}
	}
}

func TestDecodeAuctions(t *testing.T) {
	resp := handler.Response{
		StatusCode: 200,
		Body:       `{"auctions":[{"url":"https://x/lote/1","title":"Casa","image_url":"https://x/1.jpg"}],"count":1,"query":"q","location":"l"}`,
	}

	auctions, err := decodeAuctions(resp)
	if err != nil {
		t.Fatalf("decodeAuctions: %v", err)
	}
	if len(auctions) != 1 {
		t.Fatalf("len = %d; want 1", len(auctions))
	}
	if auctions[0].URL != "https://x/lote/1" {
		t.Errorf("url = %q", auctions[0].URL)
	}
	if len(auctions[0].Images) != 1 || auctions[0].Images[0] != "https://x/1.jpg" {
		t.Errorf("images = %v; want [https://x/1.jpg]", auctions[0].Images)
	}
}

func TestDecodeAuctionsError(t *testing.T) {
	resp := handler.Response{StatusCode: 500, Body: `{"error":"could not acquire browser session"}`}

	_, err := decodeAuctions(resp)
	if err == nil || !strings.Contains(err.Error(), "browser session") {
		t.Errorf("decodeAuctions error = %v; want the body error", err)
	}
}
