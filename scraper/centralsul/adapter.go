package centralsul

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"auction-crawler/models"
	"auction-crawler/utils"
)

const (
	// SourceName tags every record this adapter produces.
	SourceName = "central_sul"

	siteURL   = "https://www.centralsuldeleiloes.com.br"
	baseURL   = siteURL + "/leiloes"
	lotAPIURL = siteURL + "/api/v2/web/search/lot"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"
)

// Page is the browser tab the adapter drives. *browser.Session satisfies it.
type Page interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	Evaluate(ctx context.Context, script string, res any) error
	SendKeys(ctx context.Context, selector, text string) error
	PressEnter(ctx context.Context) error
	Cookies(ctx context.Context) (map[string]string, error)
	Screenshot(ctx context.Context, path string) error
}

// FieldExtractor asks an LLM for structured fields of a page. *llm.Client
// satisfies it.
type FieldExtractor interface {
	Configured() bool
	Extract(ctx context.Context, html, query string) map[string]any
}

// Options tune one adapter instance.
type Options struct {
	// UseAPI tries the lot search endpoint before the rendered page.
	UseAPI bool
	// UseLLM merges LLM-extracted fields into detail records.
	UseLLM bool
	// ScreenshotDir enables debug screenshots when set.
	ScreenshotDir string
	// SearchSettle is how long to wait for results after submitting a search.
	SearchSettle time.Duration

	// APIURL and HTTPClient override the lot search endpoint, for tests.
	APIURL     string
	HTTPClient *http.Client
}

// Adapter searches centralsuldeleiloes.com.br.
type Adapter struct {
	page   Page
	llm    FieldExtractor
	opts   Options
	apiURL string
	http   *http.Client
	logger *utils.Logger

	token    string
	ioCookie string
}

// New creates an Adapter on page. extractor may be nil.
func New(page Page, extractor FieldExtractor, opts Options, logger *utils.Logger) *Adapter {
	a := &Adapter{
		page:   page,
		llm:    extractor,
		opts:   opts,
		apiURL: opts.APIURL,
		http:   opts.HTTPClient,
		logger: logger,
	}
	if a.apiURL == "" {
		a.apiURL = lotAPIURL
	}
	if a.http == nil {
		a.http = &http.Client{Timeout: 30 * time.Second}
	}
	return a
}

func (a *Adapter) Name() string { return SourceName }

// Search returns the raw candidates for query. The lot search endpoint is
// tried first when enabled; an error or an empty answer falls through to
// the rendered results page, whose outcome is final.
func (a *Adapter) Search(ctx context.Context, query, location string) ([]*models.Auction, error) {
	if a.opts.UseAPI {
		auctions, err := a.apiSearch(ctx, query)
		switch {
		case err != nil:
			a.logger.Warn("[centralsul] API search failed, using rendered page: %v", err)
		case len(auctions) > 0:
			return auctions, nil
		default:
			a.logger.Info("[centralsul] API returned no results, using rendered page")
		}
	}

	a.logger.Info("[centralsul] Using browser approach for search...")
	return a.renderedSearch(ctx, query)
}

func (a *Adapter) renderedSearch(ctx context.Context, query string) ([]*models.Auction, error) {
	a.logger.Info("[centralsul] Navigating to %s", baseURL)
	if err := a.page.Navigate(ctx, baseURL); err != nil {
		return nil, fmt.Errorf("load listing page: %w", err)
	}
	a.screenshot(ctx, "before_search_"+fileSafe(query))

	a.submitSearch(ctx, query)
	a.screenshot(ctx, "after_search_"+fileSafe(query))

	current, err := a.page.CurrentURL(ctx)
	if err != nil || current == "" {
		current = baseURL
	}
	a.logger.Info("[centralsul] Current URL after search: %s", current)

	page, err := a.page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read results page: %w", err)
	}

	auctions, err := Extract(Content{Kind: KindListing, URL: current, Body: page})
	if err != nil {
		return nil, err
	}
	a.logger.Info("[centralsul] Found %d total auctions for query: %s", len(auctions), query)
	return auctions, nil
}

// Details loads one lot page. A page with nothing recognizable still yields
// a record with the requested url and the no-description sentinel.
func (a *Adapter) Details(ctx context.Context, detailURL string) (*models.Auction, error) {
	a.logger.Info("[centralsul] Getting details for auction: %s", detailURL)
	if err := a.page.Navigate(ctx, detailURL); err != nil {
		return nil, fmt.Errorf("load detail page: %w", err)
	}
	a.screenshot(ctx, "auction_details_"+fileSafe(path.Base(strings.TrimRight(detailURL, "/"))))

	page, err := a.page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read detail page: %w", err)
	}

	records, err := Extract(Content{Kind: KindDetail, URL: detailURL, Body: page})
	if err != nil {
		return nil, err
	}
	details := records[0]
	details.URL = detailURL

	if a.opts.UseLLM && a.llm != nil && a.llm.Configured() {
		a.logger.Info("[centralsul] Using LLM to enhance auction details")
		a.mergeLLMFields(ctx, details)
	}
	return details, nil
}

// mergeLLMFields fills fields the page left empty. Scraped values win.
func (a *Adapter) mergeLLMFields(ctx context.Context, details *models.Auction) {
	fields := a.llm.Extract(ctx, details.RawContent, "")
	if len(fields) == 0 {
		return
	}
	delete(fields, "url")

	sentinel := details.Description == models.NoDescription
	if sentinel {
		details.Description = ""
	}
	details.MergeMissing(fields)
	if details.Description == "" {
		details.Description = models.NoDescription
	}
}

func (a *Adapter) screenshot(ctx context.Context, name string) {
	if a.opts.ScreenshotDir == "" {
		return
	}
	file := filepath.Join(a.opts.ScreenshotDir, name+".png")
	if err := a.page.Screenshot(ctx, file); err != nil {
		a.logger.Warn("[centralsul] Could not save screenshot %s: %v", file, err)
		return
	}
	a.logger.Info("[centralsul] Saved screenshot to %s", file)
}

// fileSafe keeps letters, digits, dash and underscore.
func fileSafe(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == '_':
			return r
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			return r
		}
		return -1
	}, s)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
