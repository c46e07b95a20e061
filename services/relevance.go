package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"auction-crawler/llm"
	"auction-crawler/models"
	"auction-crawler/utils"
)

// RelevanceAnalyzer judges a record's text against a query. *llm.Client
// satisfies it.
type RelevanceAnalyzer interface {
	Configured() bool
	Analyze(ctx context.Context, content, query, location string) llm.Analysis
}

// RelevanceFilter narrows records by LLM verdict and confidence.
type RelevanceFilter struct {
	analyzer  RelevanceAnalyzer
	threshold float64
	logger    *utils.Logger
}

func NewRelevanceFilter(analyzer RelevanceAnalyzer, threshold float64, logger *utils.Logger) *RelevanceFilter {
	return &RelevanceFilter{analyzer: analyzer, threshold: threshold, logger: logger}
}

// Filter annotates every record with its verdict and keeps those judged
// relevant at or above the threshold. Without a configured analyzer the
// input is returned untouched.
func (f *RelevanceFilter) Filter(ctx context.Context, auctions []*models.Auction, query, location string) []*models.Auction {
	if f.analyzer == nil || !f.analyzer.Configured() {
		f.logger.Warn("[relevance] No LLM client configured, returning unfiltered auctions")
		return auctions
	}

	result := make([]*models.Auction, 0, len(auctions))
	for _, a := range auctions {
		analysis := f.analyzer.Analyze(ctx, auctionToText(a), query, location)

		reason := analysis.Reason
		if reason == "" {
			reason = "No reason provided"
		}
		a.Relevance = &models.Relevance{
			IsRelevant: analysis.IsRelevant,
			Confidence: analysis.Confidence,
			Reason:     reason,
		}

		if analysis.IsRelevant != nil && *analysis.IsRelevant && analysis.Confidence >= f.threshold {
			f.logger.Info("[relevance] Auction deemed relevant: %s (confidence: %.2f)", a.Title, analysis.Confidence)
			result = append(result, a)
		} else {
			f.logger.Info("[relevance] Auction filtered out: %s (confidence: %.2f)", a.Title, analysis.Confidence)
		}
	}
	return result
}

// auctionToText prefers the captured markup; otherwise it flattens the
// record into sorted "key: value" lines.
func auctionToText(a *models.Auction) string {
	if a.RawContent != "" {
		return a.RawContent
	}

	m := a.ToMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %v", k, m[k]))
	}
	return strings.Join(lines, "\n")
}
