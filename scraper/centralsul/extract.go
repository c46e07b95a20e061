package centralsul

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"auction-crawler/metrics"
	"auction-crawler/models"
)

// Kind is the shape of content an extraction runs over.
type Kind int

const (
	// KindAPI is the JSON body of the lot search endpoint.
	KindAPI Kind = iota
	// KindListing is a rendered search-results page.
	KindListing
	// KindDetail is a rendered single-lot page.
	KindDetail
)

func (k Kind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindListing:
		return "listing"
	case KindDetail:
		return "detail"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Content is one captured page or response.
type Content struct {
	Kind Kind
	// URL is where the content came from; relative links resolve against it.
	URL  string
	Body string
	// OnSkip, when set, is told about each item that was left out.
	OnSkip func(error)
}

// Extract turns content into candidate records. Every returned record has a
// non-empty url. Only undecodable content is an error; a page with nothing
// recognizable yields no records.
func Extract(c Content) ([]*models.Auction, error) {
	var (
		auctions []*models.Auction
		err      error
	)

	switch c.Kind {
	case KindAPI:
		auctions, err = extractAPI([]byte(c.Body), c.OnSkip)
	case KindListing:
		auctions, err = withDocument(c, extractListing)
	case KindDetail:
		auctions, err = withDocument(c, func(doc *goquery.Document, base *url.URL) []*models.Auction {
			return []*models.Auction{extractDetail(doc, base, c.Body)}
		})
	default:
		return nil, fmt.Errorf("unsupported content kind %v", c.Kind)
	}
	if err != nil {
		return nil, err
	}

	metrics.CandidatesExtracted.WithLabelValues(SourceName, c.Kind.String()).Add(float64(len(auctions)))
	return auctions, nil
}

func withDocument(c Content, fn func(*goquery.Document, *url.URL) []*models.Auction) ([]*models.Auction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(c.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s page: %w", c.Kind, err)
	}
	base, err := url.Parse(c.URL)
	if err != nil || c.URL == "" {
		base, _ = url.Parse(siteURL)
	}
	return fn(doc, base), nil
}

// fieldStep is one attempt at resolving a field; "" means no result.
type fieldStep func(*goquery.Selection) string

// firstOf evaluates steps in order and returns the first non-empty result.
func firstOf(sel *goquery.Selection, steps ...fieldStep) string {
	for _, step := range steps {
		if v := step(sel); v != "" {
			return v
		}
	}
	return ""
}

// firstText returns the first non-empty text among elements matching css.
func firstText(css string) fieldStep {
	return func(sel *goquery.Selection) string {
		var out string
		sel.Find(css).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			out = cleanText(s.Text())
			return out == ""
		})
		return out
	}
}

// currencyRegexp finds "R$ 1.234,56" amounts, tolerating a non-breaking
// space after the symbol in raw markup.
var currencyRegexp = regexp.MustCompile(`R\$(?:\s|&nbsp;|&#160;|\x{00a0})*([\d.,]*\d)`)

// currencies returns every amount in raw, normalized as "R$ n".
func currencies(raw string) []string {
	matches := currencyRegexp.FindAllStringSubmatch(raw, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, "R$ "+m[1])
	}
	return out
}

// ownText is the text of n's direct text children, without descendants.
func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
	}
	return cleanText(b.String())
}

// labelled returns body elements whose own text contains any of labels.
func labelled(root *goquery.Selection, labels ...string) *goquery.Selection {
	return root.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		switch goquery.NodeName(s) {
		case "script", "style", "noscript", "head", "title":
			return false
		}
		text := ownText(s.Get(0))
		for _, label := range labels {
			if strings.Contains(text, label) {
				return true
			}
		}
		return false
	})
}

// resolve makes href absolute against base.
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// cleanText strips leading/trailing whitespace and collapses internal whitespace.
func cleanText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
