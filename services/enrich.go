package services

import (
	"context"

	"auction-crawler/metrics"
	"auction-crawler/models"
	"auction-crawler/utils"
)

// DetailFetcher loads the full record behind a detail URL.
type DetailFetcher interface {
	Details(ctx context.Context, url string) (*models.Auction, error)
}

// DescriptionEnricher backfills missing descriptions from detail pages.
type DescriptionEnricher struct {
	fetcher DetailFetcher
	logger  *utils.Logger
}

func NewDescriptionEnricher(fetcher DetailFetcher, logger *utils.Logger) *DescriptionEnricher {
	return &DescriptionEnricher{fetcher: fetcher, logger: logger}
}

// Enrich fetches the detail page of every record whose description is empty
// or the site placeholder, and returns how many records were updated.
// A failed fetch only skips that record.
func (e *DescriptionEnricher) Enrich(ctx context.Context, auctions []*models.Auction) int {
	e.logger.Info("[enrich] Fetching detailed descriptions for %d auctions", len(auctions))

	updated := 0
	for _, a := range auctions {
		if a.HasDescription() || a.URL == "" {
			continue
		}
		if ctx.Err() != nil {
			e.logger.Warn("[enrich] Stopping early: %v", ctx.Err())
			break
		}

		details, err := e.fetcher.Details(ctx, a.URL)
		if err != nil {
			metrics.DetailFetches.WithLabelValues("error").Inc()
			e.logger.Error("[enrich] Error fetching detailed description for %s: %v", a.URL, err)
			continue
		}
		metrics.DetailFetches.WithLabelValues("ok").Inc()

		if details != nil && details.HasDescription() {
			a.Description = details.Description
			updated++
			e.logger.Info("[enrich] Updated description for auction: %s", a.Title)
		}
	}
	return updated
}
