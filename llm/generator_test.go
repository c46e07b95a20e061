package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"auction-crawler/models"
	"auction-crawler/utils"
)

type fakeCompleter struct {
	content string
	err     error
	prompt  []Message
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, messages []Message) (string, error) {
	f.prompt = messages
	return f.content, f.err
}

func TestGenerateFillsDefaults(t *testing.T) {
	fake := &fakeCompleter{content: `{"auctions": [
		{"title": "Terreno em Itapirubá", "evaluation": "R$ 300.000,00", "images": null},
		{"title": "Casa", "url": "https://www.centralsuldeleiloes.com.br/lote/casa", "images": ["https://img/1.jpg"]}
	]}`}
	g := NewGenerator(fake, nil, utils.Discard())

	got, err := g.Generate(context.Background(), "itapiruba", "Santa Catarina, Brasil")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d auctions; want 2", len(got))
	}

	first := got[0]
	if !strings.HasPrefix(first.URL, exampleURL) {
		t.Errorf("default url = %q; want prefix %q", first.URL, exampleURL)
	}
	if len(first.Images) != 1 || first.Images[0] != genericImage {
		t.Errorf("default images = %v", first.Images)
	}
	if got[1].URL != "https://www.centralsuldeleiloes.com.br/lote/casa" {
		t.Errorf("explicit url overwritten: %q", got[1].URL)
	}
	for _, a := range got {
		if a.Source != SourceGenerated {
			t.Errorf("source = %q; want %q", a.Source, SourceGenerated)
		}
		if a.Metadata[models.MetaGenerated] != true {
			t.Errorf("generated flag missing on %q", a.Title)
		}
	}

	if !strings.Contains(fake.prompt[0].Content, "Itapiruba, SC") {
		t.Errorf("system prompt should name the resolved location, got %q", fake.prompt[0].Content)
	}
}

func TestGenerateURLIsStableForTitle(t *testing.T) {
	fake := &fakeCompleter{content: `[{"title": "Apartamento"}]`}
	g := NewGenerator(fake, nil, utils.Discard())

	a, _ := g.Generate(context.Background(), "floripa", "SC")
	b, _ := g.Generate(context.Background(), "floripa", "SC")
	if len(a) != 1 || len(b) != 1 || a[0].URL != b[0].URL {
		t.Errorf("urls differ across runs: %v vs %v", a, b)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeCompleter
	}{
		{"transport", &fakeCompleter{err: errors.New("down")}},
		{"not json", &fakeCompleter{content: "sorry"}},
		{"no array", &fakeCompleter{content: `{"foo": 1}`}},
	}
	for _, tt := range tests {
		g := NewGenerator(tt.fake, nil, utils.Discard())
		if _, err := g.Generate(context.Background(), "itapiruba", "SC"); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
