package pipeline

import (
	"context"
	"fmt"

	"auction-crawler/config"
	"auction-crawler/metrics"
	"auction-crawler/models"
	"auction-crawler/services"
	"auction-crawler/utils"
)

// Source is one auction site.
type Source interface {
	Name() string
	// Search returns raw candidates for query. An error means the site could
	// not be searched at all.
	Search(ctx context.Context, query, location string) ([]*models.Auction, error)
	// Details loads the single lot behind url.
	Details(ctx context.Context, url string) (*models.Auction, error)
}

// Options are the feature switches of one run.
type Options struct {
	UseLLM              bool
	FetchDescriptions   bool
	Deduplicate         bool
	LLMFilter           bool
	ConfidenceThreshold float64
}

// OptionsFromConfig copies the configured defaults.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		UseLLM:              cfg.UseLLM,
		FetchDescriptions:   cfg.FetchDescriptions,
		Deduplicate:         cfg.Deduplicate,
		LLMFilter:           cfg.LLMFilter,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	}
}

// Orchestrator runs search, dedup, filtering and enrichment per source and
// merges the results.
type Orchestrator struct {
	registry *config.Registry
	dedup    *services.Deduplicator
	keywords *services.KeywordFilter
	analyzer services.RelevanceAnalyzer
	logger   *utils.Logger
}

// New creates an Orchestrator. analyzer may be nil when no LLM is available.
func New(registry *config.Registry, analyzer services.RelevanceAnalyzer, logger *utils.Logger) *Orchestrator {
	if registry == nil {
		registry = config.DefaultRegistry()
	}
	return &Orchestrator{
		registry: registry,
		dedup:    services.NewDeduplicator(logger),
		keywords: services.NewKeywordFilter(services.NewQueryExpander(registry), logger),
		analyzer: analyzer,
		logger:   logger,
	}
}

// Run searches every source in turn. A failing source is logged and
// contributes nothing. The merged result is deduplicated once more and is
// never nil.
func (o *Orchestrator) Run(ctx context.Context, sources []Source, query, location string, opts Options) []*models.Auction {
	all := make([]*models.Auction, 0)

	for _, src := range sources {
		o.logger.Info("[pipeline] Searching %s for '%s'", src.Name(), query)

		auctions, err := o.safeRunSource(ctx, src, query, location, opts)
		if err != nil {
			metrics.SourceFailures.WithLabelValues(src.Name()).Inc()
			o.logger.Error("[pipeline] Error searching %s: %v", src.Name(), err)
			continue
		}

		o.logger.Info("[pipeline] Found %d relevant auctions from %s", len(auctions), src.Name())
		all = append(all, auctions...)
	}

	merged := o.dedup.Dedup(all)
	if len(merged) != len(all) {
		o.logger.Info("[pipeline] Final deduplication: %d -> %d", len(all), len(merged))
	}
	return merged
}

func (o *Orchestrator) safeRunSource(ctx context.Context, src Source, query, location string, opts Options) (auctions []*models.Auction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s pipeline: %v", src.Name(), r)
		}
	}()
	return o.RunSource(ctx, src, query, location, opts)
}

// RunSource is the pipeline of one site: search, dedup, keyword filter,
// optional LLM filter and optional description enrichment. When the search
// finds nothing and the query names a location with a fallback lot, that
// lot alone is the result.
func (o *Orchestrator) RunSource(ctx context.Context, src Source, query, location string, opts Options) ([]*models.Auction, error) {
	raw, err := src.Search(ctx, query, location)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", src.Name(), err)
	}
	o.count(src, "search", raw)

	if len(raw) == 0 {
		return o.fallback(ctx, src, query), nil
	}

	auctions := raw
	if opts.Deduplicate {
		auctions = o.dedup.Dedup(auctions)
		o.count(src, "dedup", auctions)
	}

	auctions = o.keywords.Filter(auctions, query)
	o.count(src, "keyword_filter", auctions)

	if opts.LLMFilter {
		relevance := services.NewRelevanceFilter(o.analyzer, opts.ConfidenceThreshold, o.logger)
		auctions = relevance.Filter(ctx, auctions, query, location)
		o.count(src, "llm_filter", auctions)
	}

	if opts.FetchDescriptions && len(auctions) > 0 {
		services.NewDescriptionEnricher(src, o.logger).Enrich(ctx, auctions)
	}

	tag(src, auctions)
	return auctions, nil
}

// fallback fetches the known lot for query, if the registry has one.
func (o *Orchestrator) fallback(ctx context.Context, src Source, query string) []*models.Auction {
	loc, ok := o.registry.Lookup(query)
	if !ok || loc.FallbackURL == "" {
		o.logger.Info("[pipeline] No auctions found for %s and no fallback configured", query)
		return []*models.Auction{}
	}

	o.logger.Info("[pipeline] No auctions found, trying direct navigation to known auction for %s", query)
	details, err := src.Details(ctx, loc.FallbackURL)
	if err != nil || details == nil {
		o.logger.Error("[pipeline] Error getting fallback auction: %v", err)
		return []*models.Auction{}
	}

	if details.URL == "" {
		details.URL = loc.FallbackURL
	}
	details.SetMeta(models.MetaMatchReason, "Fallback URL for "+loc.Name)
	result := []*models.Auction{details}
	tag(src, result)
	o.count(src, "fallback", result)
	return result
}

func (o *Orchestrator) count(src Source, stage string, auctions []*models.Auction) {
	metrics.StageRecords.WithLabelValues(src.Name(), stage).Add(float64(len(auctions)))
}

func tag(src Source, auctions []*models.Auction) {
	for _, a := range auctions {
		a.Source = src.Name()
	}
}
