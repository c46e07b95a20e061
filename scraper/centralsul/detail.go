package centralsul

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"auction-crawler/models"
)

// Length gates keep captions and badges out of the description.
const (
	minDescriptionLen = 20
	minParagraphLen   = 50
)

var descriptionLabels = []string{"Descrição", "Detalhes", "Informações"}

// labelledPriceRegexp is the last-resort price pattern over raw markup.
var labelledPriceRegexp = regexp.MustCompile(
	`(Avaliação|Lance Mínimo|Lance Atual|Valor)[\s:]*R\$(?:\s|&nbsp;|&#160;|\x{00a0})*([\d.,]*\d)`)

// extractDetail reads a single lot page. url is the page URL; raw is kept
// for LLM analysis.
func extractDetail(doc *goquery.Document, base *url.URL, raw string) *models.Auction {
	root := doc.Selection

	title := firstOf(root,
		firstText("h1.lot-page-title"),
		firstText("h1, .lot-title, .auction-title, .csdl-panel-title"),
	)
	if title == "" {
		title = "Unknown"
	}

	a := models.NewAuction(base.String(), title)
	a.Description = firstOf(root,
		firstText("div.lot-description"),
		joinedText(".description, .lot-info, p.detail-text, .auction-description", minDescriptionLen),
		labelledDescription,
		joinedText(".lot-page-content p, .content p, .details p", minParagraphLen),
	)
	if a.Description == "" {
		a.Description = models.NoDescription
	}

	root.Find("div.lot-page-gallery img, .carousel img, .auction-images img").Each(func(_ int, img *goquery.Selection) {
		if src := img.AttrOr("src", ""); src != "" {
			a.AddImage(resolve(base, src))
		}
	})

	prices := detailPrices(root, raw)
	a.Evaluation = prices["evaluation"]
	a.MinimumBid = prices["minimum_bid"]
	a.CurrentBid = prices["current_bid"]

	a.ClosingAt = firstText("div.lot-page-date, .auction-date, .closing-date, .end-date")(root)
	a.RawContent = raw
	return a
}

// joinedText joins the text of every match longer than min characters.
func joinedText(css string, min int) fieldStep {
	return func(sel *goquery.Selection) string {
		var parts []string
		sel.Find(css).Each(func(_ int, s *goquery.Selection) {
			if text := cleanText(s.Text()); utf8.RuneCountInString(text) > min {
				parts = append(parts, text)
			}
		})
		return strings.Join(parts, "\n\n")
	}
}

// labelledDescription finds a caption such as "Descrição" and reads the
// text next to it: the next sibling element when it is long enough, else
// the parent's text without the caption, but only when the parent holds
// nothing besides the caption and its value.
func labelledDescription(root *goquery.Selection) string {
	var parts []string
	seen := make(map[string]struct{})
	add := func(text string) {
		if _, dup := seen[text]; dup || text == "" {
			return
		}
		seen[text] = struct{}{}
		parts = append(parts, text)
	}

	labelled(root, descriptionLabels...).Each(func(_ int, label *goquery.Selection) {
		sibling := cleanText(label.Next().Text())
		if utf8.RuneCountInString(sibling) > minDescriptionLen {
			add(sibling)
			return
		}

		parent := label.Parent()
		if goquery.NodeName(parent) == "body" || parent.Children().Length() > 2 {
			return
		}
		labelText := cleanText(label.Text())
		rest := cleanText(strings.Replace(cleanText(parent.Text()), labelText, "", 1))
		if utf8.RuneCountInString(rest) > minDescriptionLen {
			add(rest)
		}
	})
	return strings.Join(parts, "\n\n")
}

// detailPrices resolves evaluation, minimum and current bid. Each strategy
// only runs when the previous one found nothing at all.
func detailPrices(root *goquery.Selection, raw string) map[string]string {
	prices := make(map[string]string)

	root.Find("div.lot-page-value, .price-info, .auction-value").Each(func(_ int, block *goquery.Selection) {
		label := strings.ToLower(firstText("div.lot-page-value-label, .value-label, .price-label")(block))
		value := firstText("div.lot-page-value-text, .value-text, .price-value")(block)
		if label == "" || value == "" {
			return
		}
		assignPrice(prices, label, value, true)
	})
	if len(prices) > 0 {
		return prices
	}

	labelled(root, "Avaliação", "Lance Mínimo", "Lance Atual").Each(func(_ int, label *goquery.Selection) {
		value := cleanText(label.Next().Text())
		if value == "" {
			return
		}
		assignPrice(prices, strings.ToLower(cleanText(label.Text())), value, false)
	})
	if len(prices) > 0 {
		return prices
	}

	for _, m := range labelledPriceRegexp.FindAllStringSubmatch(raw, -1) {
		assignPrice(prices, strings.ToLower(m[1]), "R$ "+m[2], false)
	}
	return prices
}

// assignPrice maps a lowercased caption to its field. strict requires
// "lance" alongside mínimo/atual, as the value-block captions always have it.
func assignPrice(prices map[string]string, label, value string, strict bool) {
	hasLance := !strict || strings.Contains(label, "lance")
	switch {
	case strings.Contains(label, "avalia"):
		prices["evaluation"] = value
	case hasLance && strings.Contains(label, "mínimo"):
		prices["minimum_bid"] = value
	case hasLance && strings.Contains(label, "atual"):
		prices["current_bid"] = value
	}
}
