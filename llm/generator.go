package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"auction-crawler/config"
	"auction-crawler/models"
	"auction-crawler/utils"
)

const (
	// SourceGenerated tags listings produced without scraping.
	SourceGenerated = "llm_generated"

	genericImage = "https://centralsuldeleiloes.blob.core.windows.net/imagens/FOTOS_DIVERSAS/GENERICAS/generica-imovel.jpg"
	exampleURL   = "https://www.example.com/auction/"
)

// Completer is the part of Client the generator needs.
type Completer interface {
	Complete(ctx context.Context, operation string, messages []Message) (string, error)
}

// Generator asks the LLM for realistic listings instead of scraping.
type Generator struct {
	llm      Completer
	registry *config.Registry
	logger   *utils.Logger
}

func NewGenerator(llm Completer, registry *config.Registry, logger *utils.Logger) *Generator {
	if registry == nil {
		registry = config.DefaultRegistry()
	}
	return &Generator{llm: llm, registry: registry, logger: logger}
}

// Generate returns normalized listings for query. Every listing is tagged
// as generated and carries a url and at least one image.
func (g *Generator) Generate(ctx context.Context, query, location string) ([]*models.Auction, error) {
	g.logger.Info("[generator] Generating auctions for query: %s in %s", query, location)

	name, state := query, ""
	if loc, ok := g.registry.Lookup(query); ok {
		name, state = loc.Name, loc.State
	}

	raw, err := g.llm.Complete(ctx, "generate", generationPrompt(query, name, state))
	if err != nil {
		return nil, fmt.Errorf("generating auctions: %w", err)
	}

	items, err := parseGenerated(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing generated auctions: %w", err)
	}

	auctions := make([]*models.Auction, 0, len(items))
	for _, item := range items {
		a := models.FromMap(item)
		a.Source = SourceGenerated
		a.SetMeta(models.MetaGenerated, true)
		if a.URL == "" {
			a.URL = exampleURL + uuid.NewSHA1(uuid.NameSpaceURL, []byte(a.Title)).String()
		}
		if len(a.Images) == 0 {
			a.Images = []string{genericImage}
		}
		if a.Location == "" {
			a.Location = location
		}
		auctions = append(auctions, a)
	}

	g.logger.Info("[generator] Generated %d auctions for %s", len(auctions), query)
	return auctions, nil
}

// parseGenerated accepts a bare JSON array or an object wrapping one under
// "auctions".
func parseGenerated(raw string) ([]map[string]any, error) {
	raw = strings.TrimSpace(raw)

	var items []map[string]any
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &wrapper); err != nil {
		return nil, err
	}
	for _, key := range []string{"auctions", "listings", "data"} {
		if list, ok := wrapper[key]; ok {
			if err := json.Unmarshal(list, &items); err != nil {
				return nil, err
			}
			return items, nil
		}
	}
	return nil, fmt.Errorf("no auctions array in response")
}
