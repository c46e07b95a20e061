package centralsul

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"auction-crawler/models"
)

// cardSelectors run from the site's stable class names to any link that
// looks like a lot page. Elements matched by an earlier selector are not
// visited again.
var cardSelectors = []string{
	".lot-list-item",
	"div[class*='lot-']",
	"div[class*='auction-item']",
	"a[href*='/lote/']",
	"div.csdl-panel",
}

const lotPathMarker = "/lote/"

func extractListing(doc *goquery.Document, base *url.URL) []*models.Auction {
	seen := make(map[*html.Node]struct{})
	var auctions []*models.Auction

	for _, css := range cardSelectors {
		doc.Find(css).Each(func(_ int, card *goquery.Selection) {
			node := card.Get(0)
			if _, dup := seen[node]; dup {
				return
			}
			seen[node] = struct{}{}

			// a wrapper around several lots would mix their text
			if lotLinkCount(card) > 1 {
				return
			}
			if a := extractCard(card, base); a != nil {
				auctions = append(auctions, a)
			}
		})
	}
	return auctions
}

// extractCard builds a record from one listing element, or returns nil when
// the element has no link to a lot page.
func extractCard(card *goquery.Selection, base *url.URL) *models.Auction {
	href, linkTitle := cardLink(card)
	if href == "" {
		return nil
	}

	title := linkTitle
	if title == "" {
		title = firstOf(card,
			firstText("a.lot-list-item-value"),
			firstText("h2, h3, .title, div[class*='title'], div[class*='heading']"),
		)
	}
	if title == "" {
		title = "Unknown"
	}

	a := models.NewAuction(resolve(base, href), title)
	a.AddImage(cardImage(card, base))
	a.Evaluation, a.MinimumBid = cardPrices(card)
	a.Status = cardStatus(card)
	a.Description = cardSnippet(card)

	if container := auctionContainer(card); container != nil {
		a.AuctionURL = resolve(base, container.Find("div.auction-header a").First().AttrOr("href", ""))
		a.AuctionTitle = firstOf(container,
			firstText("h2.lot-list-item-value"),
			firstText("div.auction-header a"),
		)
		a.NextSession = firstText("div.lot-list-item-auction-heading span.lot-list-item-value")(container)
	}

	a.SetMeta(models.MetaSearchKeywords,
		strings.ToLower(a.Title+" "+a.Description+" "+a.AuctionTitle))
	if raw, err := goquery.OuterHtml(card); err == nil {
		a.RawContent = raw
	}
	return a
}

// cardLink finds the lot URL: the element itself when it is a lot link,
// else the first lot link inside it. The title is the first non-empty lot
// link text.
func cardLink(card *goquery.Selection) (href, title string) {
	links := card.Find("a[href]")
	if goquery.NodeName(card) == "a" {
		links = card.AddSelection(links)
	}

	links.EachWithBreak(func(_ int, link *goquery.Selection) bool {
		h := link.AttrOr("href", "")
		if !strings.Contains(h, lotPathMarker) {
			return true
		}
		if href == "" {
			href = h
		}
		if h == href {
			title = cleanText(link.Text())
		}
		return title == ""
	})
	return href, title
}

// lotLinkCount is the number of distinct lot URLs inside card, the card
// itself included.
func lotLinkCount(card *goquery.Selection) int {
	links := card.Find("a[href]")
	if goquery.NodeName(card) == "a" {
		links = card.AddSelection(links)
	}

	hrefs := make(map[string]struct{})
	links.Each(func(_ int, link *goquery.Selection) {
		if h := strings.TrimSpace(link.AttrOr("href", "")); strings.Contains(h, lotPathMarker) {
			hrefs[h] = struct{}{}
		}
	})
	return len(hrefs)
}

func cardImage(card *goquery.Selection, base *url.URL) string {
	for _, css := range []string{"div.lot-list-item-photo img", "img.ng-star-inserted", "img"} {
		if src := card.Find(css).First().AttrOr("src", ""); src != "" {
			return resolve(base, src)
		}
	}
	if goquery.NodeName(card) == "img" {
		return resolve(base, card.AttrOr("src", ""))
	}
	return ""
}

// cardPrices reads evaluation and minimum bid. Value blocks are positional:
// with three or more the first is a header; with two they are
// (evaluation, minimum bid). Without them, labelled siblings are tried, and
// finally every currency amount in the markup is assigned in order.
func cardPrices(card *goquery.Selection) (evaluation, minimumBid string) {
	values := card.Find("div.lot-list-item-value")
	text := func(i int) string { return cleanText(values.Eq(i).Text()) }

	switch {
	case values.Length() >= 3:
		return text(1), text(2)
	case values.Length() >= 2:
		return text(0), text(1)
	}

	evaluation = labelledValue(card, "Avalia")
	minimumBid = labelledValue(card, "Lance")
	if evaluation != "" || minimumBid != "" {
		return evaluation, minimumBid
	}

	raw, err := goquery.OuterHtml(card)
	if err != nil {
		return "", ""
	}
	amounts := currencies(raw)
	switch {
	case len(amounts) >= 2:
		return amounts[0], amounts[1]
	case len(amounts) == 1:
		return "", amounts[0]
	}
	return "", ""
}

// labelledValue reads the div following the parent of a label element.
func labelledValue(card *goquery.Selection, label string) string {
	var out string
	labelled(card, label).EachWithBreak(func(_ int, l *goquery.Selection) bool {
		out = cleanText(l.Parent().NextAllFiltered("div").First().Text())
		return out == ""
	})
	return out
}

func cardStatus(card *goquery.Selection) string {
	return firstOf(card,
		firstText("div[class*='lot-status']"),
		func(s *goquery.Selection) string { return firstText("div[class*='lot-status']")(s.Parent()) },
		firstText("div.auction-directsale, div.auction-active, div.auction-sold"),
	)
}

// cardSnippet joins item labels that are not field captions.
func cardSnippet(card *goquery.Selection) string {
	var parts []string
	card.Find("span.lot-list-item-label").Each(func(_ int, s *goquery.Selection) {
		text := cleanText(s.Text())
		if text == "" || strings.HasPrefix(text, "Título") ||
			strings.HasPrefix(text, "Lance") || strings.HasPrefix(text, "Avaliação") {
			return
		}
		parts = append(parts, text)
	})
	return strings.Join(parts, " ")
}

// auctionContainer is the nearest ancestor holding a parent auction header.
func auctionContainer(card *goquery.Selection) *goquery.Selection {
	for p := card.Parent(); p.Length() > 0; p = p.Parent() {
		if goquery.NodeName(p) == "body" {
			break
		}
		if p.Find("div.auction-header a").Length() > 0 {
			return p
		}
	}
	return nil
}
