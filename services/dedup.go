package services

import (
	"strings"

	"auction-crawler/models"
	"auction-crawler/utils"
)

// Deduplicator keeps one record per detail URL.
type Deduplicator struct {
	logger *utils.Logger
}

// NewDeduplicator creates a Deduplicator with the given logger.
func NewDeduplicator(logger *utils.Logger) *Deduplicator {
	return &Deduplicator{logger: logger}
}

// Dedup drops records without a url and every later record whose url was
// already seen. Order of first occurrence is preserved.
func (d *Deduplicator) Dedup(auctions []*models.Auction) []*models.Auction {
	seen := utils.NewURLSet()
	result := make([]*models.Auction, 0, len(auctions))

	for _, a := range auctions {
		if a == nil {
			continue
		}
		url := strings.TrimSpace(a.URL)
		if url == "" {
			d.logger.Warn("[dedup] Dropping auction with empty URL: %s", a.Title)
			continue
		}
		if !seen.Add(url) {
			d.logger.Debug("[dedup] Duplicate URL skipped: %s", url)
			continue
		}
		a.URL = url
		result = append(result, a)
	}

	d.logger.Info("[dedup] Deduplicated from %d to %d unique auctions", len(auctions), seen.Size())
	return result
}
