package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"auction-crawler/browser"
	"auction-crawler/config"
	"auction-crawler/handler"
	"auction-crawler/llm"
	"auction-crawler/metrics"
	"auction-crawler/models"
	"auction-crawler/pipeline"
	"auction-crawler/scraper/centralsul"
	"auction-crawler/utils"
)

const serviceName = "auction-crawler"

// Version is reported by --version and the application_info metric.
var Version = "dev"

// app holds everything one process needs, built once from configuration.
type app struct {
	cfg     *config.Config
	logger  *utils.Logger
	handler *handler.Handler
}

func newApp() (*app, error) {
	cfg := config.Load()
	logger := utils.NewLogger(utils.ParseLevel(cfg.LogLevel))

	registry, err := config.LoadRegistry(cfg.LocationsFile)
	if err != nil {
		return nil, err
	}

	client := llm.New(cfg, logger)
	orchestrator := pipeline.New(registry, client, logger)
	generator := llm.NewGenerator(client, registry, logger)

	metrics.Init(serviceName, Version)

	return &app{
		cfg:     cfg,
		logger:  logger,
		handler: handler.New(cfg, sourceFactory(cfg, client, logger), orchestrator, generator, logger),
	}, nil
}

// sourceFactory opens one browser session per invocation and hands it to
// the Central Sul adapter. The session is closed by release.
func sourceFactory(cfg *config.Config, client *llm.Client, logger *utils.Logger) handler.SourceFactory {
	return func(ctx context.Context, opts pipeline.Options) ([]pipeline.Source, func(), error) {
		session, err := browser.Open(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}

		adapter := centralsul.New(session, client, centralsul.Options{
			UseAPI:        cfg.UseSiteAPI,
			UseLLM:        opts.UseLLM,
			ScreenshotDir: cfg.ScreenshotDir,
			SearchSettle:  cfg.PageSettle,
		}, logger)
		return []pipeline.Source{adapter}, session.Close, nil
	}
}

// decodeAuctions pulls the auctions back out of a handler response body.
func decodeAuctions(resp handler.Response) ([]*models.Auction, error) {
	var body struct {
		Auctions []*models.Auction `json:"auctions"`
		Error    string            `json:"error"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		return nil, fmt.Errorf("decode response body: %w", err)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("%s", body.Error)
	}
	return body.Auctions, nil
}

func boolFlag(v bool) *bool { return &v }

func stringFlag(v string) *string { return &v }
