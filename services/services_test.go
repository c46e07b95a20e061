package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"auction-crawler/llm"
	"auction-crawler/models"
	"auction-crawler/utils"
)

func newTestLogger() *utils.Logger { return utils.Discard() }

func auction(url, title string) *models.Auction {
	return models.NewAuction(url, title)
}

func urls(auctions []*models.Auction) []string {
	out := make([]string, len(auctions))
	for i, a := range auctions {
		out[i] = a.URL
	}
	return out
}

func TestDedupFirstSeenWins(t *testing.T) {
	d := NewDeduplicator(newTestLogger())
	first := auction("https://x/lote/1", "first")
	in := []*models.Auction{
		first,
		auction("https://x/lote/2", "second"),
		auction("https://x/lote/1", "duplicate"),
		auction("", "no url"),
		auction("   ", "blank url"),
		nil,
	}

	got := d.Dedup(in)
	if strings.Join(urls(got), ",") != "https://x/lote/1,https://x/lote/2" {
		t.Fatalf("Dedup urls = %v", urls(got))
	}
	if got[0] != first {
		t.Errorf("first occurrence should survive, got %q", got[0].Title)
	}
}

func TestDedupLogsUniqueCount(t *testing.T) {
	var buf bytes.Buffer
	d := NewDeduplicator(utils.NewLoggerTo(&buf, utils.LevelInfo))

	d.Dedup([]*models.Auction{
		auction("https://x/lote/1", "a"),
		auction("https://x/lote/1", "b"),
		auction("https://x/lote/2", "c"),
	})
	if !strings.Contains(buf.String(), "from 3 to 2 unique") {
		t.Errorf("dedup log = %q; want the unique count", buf.String())
	}
}

func TestDedupIdempotent(t *testing.T) {
	d := NewDeduplicator(newTestLogger())
	in := []*models.Auction{
		auction("a", "1"), auction("b", "2"), auction("a", "3"), auction("c", "4"), auction("b", "5"),
	}
	once := d.Dedup(in)
	twice := d.Dedup(once)

	if len(once) > len(in) {
		t.Errorf("dedup grew the input: %d > %d", len(once), len(in))
	}
	if strings.Join(urls(once), ",") != strings.Join(urls(twice), ",") {
		t.Errorf("dedup not idempotent: %v vs %v", urls(once), urls(twice))
	}
}

func TestVariationsKnownLocation(t *testing.T) {
	e := NewQueryExpander(nil)

	for _, q := range []string{"itapiruba", "Itapirubá", "ITAPIRUBA/SC"} {
		got := e.Variations(q)
		for _, want := range []string{"itapiruba", "itapirubá", "itapiruba/sc", "itapirubá/sc"} {
			if !contains(got, want) {
				t.Errorf("Variations(%q) = %v; missing %q", q, got, want)
			}
		}
		assertNoDuplicates(t, q, got)
	}
}

func TestVariationsUnknownLocation(t *testing.T) {
	e := NewQueryExpander(nil)

	tests := []struct {
		query string
		want  []string
	}{
		{"Garopaba", []string{"garopaba"}},
		{"Imbituba/SC", []string{"imbituba/sc", "imbitubasc"}},
		{"Laguná", []string{"laguná", "laguna"}},
		{"itapi", []string{"itapi", "itapi/sc"}},
	}
	for _, tt := range tests {
		got := e.Variations(tt.query)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("Variations(%q) = %v; want %v", tt.query, got, tt.want)
		}
	}
}

func TestStripAccents(t *testing.T) {
	tests := []struct{ in, want string }{
		{"itapirubá", "itapiruba"},
		{"florianópolis", "florianopolis"},
		{"são paulo", "sao paulo"},
		{"garopaba", "garopaba"},
	}
	for _, tt := range tests {
		if got := StripAccents(tt.in); got != tt.want {
			t.Errorf("StripAccents(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeywordFilter(t *testing.T) {
	f := NewKeywordFilter(NewQueryExpander(nil), newTestLogger())

	inTitle := auction("1", "Terreno no Balneário Itapirubá")
	inAuction := auction("2", "Casa")
	inAuction.AuctionTitle = "Leilão Itapiruba/SC"
	unrelated := auction("3", "Apartamento em Curitiba")
	unrelated.Description = "Centro"

	got := f.Filter([]*models.Auction{inTitle, inAuction, unrelated}, "itapiruba")
	if strings.Join(urls(got), ",") != "1,2" {
		t.Fatalf("Filter urls = %v; want [1 2]", urls(got))
	}
	if reason := inTitle.MetaString(models.MetaMatchReason); reason != "Matched term: itapirubá" {
		t.Errorf("match_reason = %q", reason)
	}
	if reason := inAuction.MetaString(models.MetaMatchReason); reason != "Matched term: itapiruba" {
		t.Errorf("match_reason = %q", reason)
	}
	if _, ok := unrelated.Metadata[models.MetaMatchReason]; ok {
		t.Error("excluded record should not carry a match_reason")
	}
}

type fakeAnalyzer struct {
	configured bool
	verdicts   map[string]llm.Analysis
	seen       []string
}

func (f *fakeAnalyzer) Configured() bool { return f.configured }

func (f *fakeAnalyzer) Analyze(_ context.Context, content, _, _ string) llm.Analysis {
	f.seen = append(f.seen, content)
	for key, a := range f.verdicts {
		if strings.Contains(content, key) {
			return a
		}
	}
	return llm.Analysis{Error: "no verdict"}
}

func verdict(relevant bool, confidence float64) llm.Analysis {
	return llm.Analysis{IsRelevant: &relevant, Confidence: confidence, Reason: "test"}
}

func TestRelevanceFilterUnconfigured(t *testing.T) {
	var logs bytes.Buffer
	f := NewRelevanceFilter(&fakeAnalyzer{}, 0.7, utils.NewLoggerTo(&logs, utils.LevelInfo))

	in := []*models.Auction{auction("1", "a"), auction("2", "b")}
	got := f.Filter(context.Background(), in, "q", "l")

	if len(got) != 2 {
		t.Fatalf("got %d; want input unchanged", len(got))
	}
	for _, a := range got {
		if a.Relevance != nil {
			t.Errorf("relevance populated without analyzer: %+v", a.Relevance)
		}
	}
	if !strings.Contains(logs.String(), "No LLM client configured") {
		t.Errorf("expected a warning, logs = %q", logs.String())
	}

	if got := NewRelevanceFilter(nil, 0.7, newTestLogger()).Filter(context.Background(), in, "q", "l"); len(got) != 2 {
		t.Errorf("nil analyzer: got %d; want 2", len(got))
	}
}

func TestRelevanceFilterThreshold(t *testing.T) {
	analyzer := &fakeAnalyzer{
		configured: true,
		verdicts: map[string]llm.Analysis{
			"keep":   verdict(true, 0.9),
			"edge":   verdict(true, 0.7),
			"unsure": verdict(true, 0.5),
			"reject": verdict(false, 0.95),
		},
	}
	f := NewRelevanceFilter(analyzer, 0.7, newTestLogger())

	raw := auction("4", "reject")
	raw.RawContent = "<div>raw markup keep</div>"

	in := []*models.Auction{
		auction("1", "keep"), auction("2", "edge"), auction("3", "unsure"), raw, auction("5", "failure"),
	}
	got := f.Filter(context.Background(), in, "q", "l")

	if strings.Join(urls(got), ",") != "1,2,4" {
		t.Errorf("Filter urls = %v; want [1 2 4]", urls(got))
	}
	for _, a := range in {
		if a.Relevance == nil {
			t.Errorf("record %s has no relevance annotation", a.URL)
		}
	}
	if in[4].Relevance.IsRelevant != nil {
		t.Error("degraded analysis should leave the verdict unknown")
	}
	if analyzer.seen[3] != raw.RawContent {
		t.Errorf("analyzer should see raw content, got %q", analyzer.seen[3])
	}
}

func TestAuctionToTextFlattens(t *testing.T) {
	a := auction("https://x/lote/1", "Casa")
	a.Evaluation = "R$ 1,00"
	text := auctionToText(a)

	for _, want := range []string{"title: Casa", "url: https://x/lote/1", "evaluation: R$ 1,00"} {
		if !strings.Contains(text, want) {
			t.Errorf("auctionToText missing %q in %q", want, text)
		}
	}
}

type fakeFetcher struct {
	details map[string]*models.Auction
	calls   []string
}

func (f *fakeFetcher) Details(_ context.Context, url string) (*models.Auction, error) {
	f.calls = append(f.calls, url)
	d, ok := f.details[url]
	if !ok {
		return nil, errors.New("page did not load")
	}
	return d, nil
}

func TestDescriptionEnricher(t *testing.T) {
	detail := func(desc string) *models.Auction {
		d := auction("", "")
		d.Description = desc
		return d
	}
	fetcher := &fakeFetcher{details: map[string]*models.Auction{
		"empty":       detail("Imóvel com área de 375,00m² no loteamento Balneário Itapirubá"),
		"placeholder": detail("Terreno plano próximo ao mar"),
		"nothing":     detail(models.NoDescription),
	}}

	empty := auction("empty", "a")
	placeholder := auction("placeholder", "b")
	placeholder.Description = models.PlaceholderDescription
	filled := auction("filled", "c")
	filled.Description = "Already described"
	failing := auction("failing", "d")
	nothing := auction("nothing", "e")

	e := NewDescriptionEnricher(fetcher, newTestLogger())
	n := e.Enrich(context.Background(), []*models.Auction{empty, failing, placeholder, filled, nothing})

	if n != 2 {
		t.Errorf("updated = %d; want 2", n)
	}
	if !strings.HasPrefix(empty.Description, "Imóvel com área") {
		t.Errorf("empty description not filled: %q", empty.Description)
	}
	if placeholder.Description != "Terreno plano próximo ao mar" {
		t.Errorf("placeholder not replaced: %q", placeholder.Description)
	}
	if nothing.Description != "" {
		t.Errorf("sentinel should not overwrite, got %q", nothing.Description)
	}
	if contains(fetcher.calls, "filled") {
		t.Error("record with a description should not be fetched")
	}
	if len(fetcher.calls) != 4 {
		t.Errorf("fetch calls = %v; want 4", fetcher.calls)
	}
}

func TestParseBRL(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"R$ 1.234.567,89", 1234567.89},
		{"R$ 300.000,00", 300000},
		{"R$150,5", 150.5},
		{"", 0},
		{"Consulte", 0},
	}
	for _, tt := range tests {
		if got := ParseBRL(tt.raw); got != tt.want {
			t.Errorf("ParseBRL(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestSummary(t *testing.T) {
	mk := func(url, source, status, eval, bid string) *models.Auction {
		a := auction(url, url)
		a.Source, a.Status, a.Evaluation, a.MinimumBid = source, status, eval, bid
		return a
	}
	in := []*models.Auction{
		mk("1", "central_sul", "Aberto", "R$ 100.000,00", "R$ 50.000,00"),
		mk("2", "central_sul", "Aberto", "R$ 300.000,00", "R$ 120.000,00"),
		mk("3", "llm_generated", "", "", "R$ 10.000,00"),
	}
	in[0].Description = "ok"
	in[1].Images = []string{"img"}

	svc := NewSummaryService(newTestLogger())
	r := svc.Generate(in)

	if r.Total != 3 || r.BySource["central_sul"] != 2 || r.ByStatus["unknown"] != 1 {
		t.Errorf("counts = %+v", r)
	}
	if r.AverageEvaluation != 200000 || r.MinEvaluation != 100000 || r.MaxEvaluation != 300000 {
		t.Errorf("evaluation stats = %.2f / %.2f / %.2f", r.AverageEvaluation, r.MinEvaluation, r.MaxEvaluation)
	}
	if r.MostValuable != in[1] {
		t.Errorf("MostValuable = %v", r.MostValuable)
	}
	if len(r.LowestBids) != 3 || r.LowestBids[0] != in[2] {
		t.Errorf("LowestBids order = %v", urls(r.LowestBids))
	}
	if r.WithDescription != 1 || r.WithImages != 1 {
		t.Errorf("WithDescription=%d WithImages=%d", r.WithDescription, r.WithImages)
	}

	var out bytes.Buffer
	svc.Print(&out, r)
	if !strings.Contains(out.String(), "R$ 300.000,00") {
		t.Errorf("printed summary missing max evaluation:\n%s", out.String())
	}
}

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1234567.891, "1.234.567,89"},
		{300000, "300.000,00"},
		{12.5, "12,50"},
	}
	for _, tt := range tests {
		if got := formatBRL(tt.in); got != tt.want {
			t.Errorf("formatBRL(%v) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func assertNoDuplicates(t *testing.T, query string, xs []string) {
	t.Helper()
	seen := map[string]bool{}
	for _, x := range xs {
		k := strings.ToLower(x)
		if seen[k] {
			t.Errorf("Variations(%q) has duplicate %q", query, x)
		}
		seen[k] = true
	}
}
