package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"auction-crawler/models"
)

var csvHeader = []string{
	"source", "title", "url", "auction_title", "auction_url", "evaluation", "minimum_bid",
	"current_bid", "next_session", "closing_at", "status", "location", "match_reason",
	"images", "description", "created_at",
}

// CSVWriter exports result sets to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends one row per auction. Images are joined with a space.
func (c *CSVWriter) Write(auctions []*models.Auction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, a := range auctions {
		row := []string{
			a.Source,
			a.Title,
			a.URL,
			a.AuctionTitle,
			a.AuctionURL,
			a.Evaluation,
			a.MinimumBid,
			a.CurrentBid,
			a.NextSession,
			a.ClosingAt,
			a.Status,
			a.Location,
			a.MetaString(models.MetaMatchReason),
			strings.Join(a.Images, " "),
			a.Description,
			a.CreatedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
