package services

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"auction-crawler/models"
	"auction-crawler/utils"
)

// brlRegexp captures the numeric part of a "R$ 1.234,56" amount.
var brlRegexp = regexp.MustCompile(`[\d.]+(?:,\d+)?`)

// Summary is an overview of one result set.
type Summary struct {
	Total           int
	BySource        map[string]int
	ByStatus        map[string]int
	WithDescription int
	WithImages      int

	AverageEvaluation float64
	MinEvaluation     float64
	MaxEvaluation     float64
	MostValuable      *models.Auction
	LowestBids        []*models.Auction
}

type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

func (s *SummaryService) Generate(auctions []*models.Auction) *Summary {
	report := &Summary{
		BySource: make(map[string]int),
		ByStatus: make(map[string]int),
	}
	if len(auctions) == 0 {
		return report
	}
	report.Total = len(auctions)

	var valued, bids []*models.Auction
	var total float64

	for _, a := range auctions {
		if a.Source != "" {
			report.BySource[a.Source]++
		}
		status := a.Status
		if status == "" {
			status = "unknown"
		}
		report.ByStatus[status]++
		if a.HasDescription() {
			report.WithDescription++
		}
		if len(a.Images) > 0 {
			report.WithImages++
		}

		if v := ParseBRL(a.Evaluation); v > 0 {
			valued = append(valued, a)
			total += v
			if report.MostValuable == nil || v > report.MaxEvaluation {
				report.MaxEvaluation = v
				report.MostValuable = a
			}
			if report.MinEvaluation == 0 || v < report.MinEvaluation {
				report.MinEvaluation = v
			}
		}
		if ParseBRL(a.MinimumBid) > 0 {
			bids = append(bids, a)
		}
	}

	if len(valued) > 0 {
		report.AverageEvaluation = round2(total / float64(len(valued)))
	}

	sort.SliceStable(bids, func(i, j int) bool {
		return ParseBRL(bids[i].MinimumBid) < ParseBRL(bids[j].MinimumBid)
	})
	if len(bids) > 5 {
		bids = bids[:5]
	}
	report.LowestBids = bids

	s.logger.Debug("[summary] %d auctions, %d with evaluation", report.Total, len(valued))
	return report
}

// ParseBRL reads a Brazilian-formatted currency string such as
// "R$ 1.234.567,89". Unparseable input yields 0.
func ParseBRL(raw string) float64 {
	match := brlRegexp.FindString(raw)
	if match == "" {
		return 0
	}
	match = strings.ReplaceAll(match, ".", "")
	match = strings.ReplaceAll(match, ",", ".")
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return v
}

func (s *SummaryService) Print(w io.Writer, r *Summary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  AUCTION SEARCH SUMMARY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total auctions      : \033[1m%d\033[0m\n", r.Total)
	fmt.Fprintf(w, "  With description    : \033[1m%d\033[0m\n", r.WithDescription)
	fmt.Fprintf(w, "  With images         : \033[1m%d\033[0m\n", r.WithImages)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Evaluation\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AverageEvaluation > 0 {
		fmt.Fprintf(w, "  Average : \033[1;32mR$ %s\033[0m\n", formatBRL(r.AverageEvaluation))
		fmt.Fprintf(w, "  Minimum : \033[1;32mR$ %s\033[0m\n", formatBRL(r.MinEvaluation))
		fmt.Fprintf(w, "  Maximum : \033[1;32mR$ %s\033[0m\n", formatBRL(r.MaxEvaluation))
	} else {
		fmt.Fprintf(w, "  No evaluation data available\n")
	}
	fmt.Fprintln(w)

	if r.MostValuable != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Valuable Lot\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostValuable.Title, 50))
		fmt.Fprintf(w, "  Evaluation : \033[1;31m%s\033[0m\n", r.MostValuable.Evaluation)
		fmt.Fprintf(w, "  URL        : %s\n", r.MostValuable.URL)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Lowest Minimum Bids\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.LowestBids) == 0 {
		fmt.Fprintf(w, "  No bid data found\n")
	} else {
		for i, a := range r.LowestBids {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%s\033[0m\n", i+1, truncate(a.Title, 38), a.MinimumBid)
		}
	}
	fmt.Fprintln(w)

	printCounts(w, "By Source", r.BySource, thin)
	printCounts(w, "By Status", r.ByStatus, thin)

	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)
}

func printCounts(w io.Writer, heading string, counts map[string]int, thin string) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", heading)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(counts) == 0 {
		fmt.Fprintf(w, "  No data\n\n")
		return
	}

	type keyCount struct {
		key   string
		count int
	}
	var rows []keyCount
	for k, c := range counts {
		rows = append(rows, keyCount{k, c})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].key < rows[j].key
	})
	for _, row := range rows {
		bar := strings.Repeat("█", row.count)
		fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(row.key, 28), bar, row.count)
	}
	fmt.Fprintln(w)
}

// formatBRL renders 1234567.891 as "1.234.567,89".
func formatBRL(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String() + "," + frac
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
