package storage

import "auction-crawler/models"

// AuctionWriter is the interface any export target must satisfy.
type AuctionWriter interface {
	Write(auctions []*models.Auction) error
	Close() error
}
