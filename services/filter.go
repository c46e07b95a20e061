package services

import (
	"strings"

	"auction-crawler/models"
	"auction-crawler/utils"
)

// KeywordFilter keeps records whose text mentions a variant of the query.
type KeywordFilter struct {
	expander *QueryExpander
	logger   *utils.Logger
}

func NewKeywordFilter(expander *QueryExpander, logger *utils.Logger) *KeywordFilter {
	return &KeywordFilter{expander: expander, logger: logger}
}

// Filter matches against title, description and auction title. The first
// variant found is stored as the record's match_reason.
func (f *KeywordFilter) Filter(auctions []*models.Auction, query string) []*models.Auction {
	variations := f.expander.Variations(query)
	f.logger.Info("[filter] Applying keyword filtering for query: %s", query)
	f.logger.Debug("[filter] Using query variations: %v", variations)

	result := make([]*models.Auction, 0, len(auctions))
	for _, a := range auctions {
		text := strings.ToLower(a.Title + " " + a.Description + " " + a.AuctionTitle)

		for _, v := range variations {
			if strings.Contains(text, v) {
				a.SetMeta(models.MetaMatchReason, "Matched term: "+v)
				result = append(result, a)
				break
			}
		}
	}

	f.logger.Info("[filter] Filtered to %d relevant auctions for query: %s", len(result), query)
	return result
}
