package centralsul

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"auction-crawler/models"
)

// apiLot is one element of the search endpoint's data array.
type apiLot struct {
	Title       flexString `json:"title"`
	Slug        flexString `json:"slug"`
	Description flexString `json:"description"`
	Evaluation  flexString `json:"evaluation_formated"`
	MinimumBid  flexString `json:"minimum_bid_formated"`
	Bid         flexString `json:"bid_formated"`
	ClosingAt   flexString `json:"closing_at"`
	Status      flexString `json:"status"`
	Auction     struct {
		Title flexString `json:"title"`
		Slug  flexString `json:"slug"`
	} `json:"auction"`
	Images []struct {
		URL flexString `json:"url"`
	} `json:"images"`
}

// flexString decodes strings, numbers and booleans as text and null as "".
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*f = ""
	case string:
		*f = flexString(strings.TrimSpace(t))
	case float64:
		*f = flexString(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*f = flexString(strconv.FormatBool(t))
	default:
		return fmt.Errorf("unexpected JSON value %s", string(b))
	}
	return nil
}

type apiResponse struct {
	Data []json.RawMessage `json:"data"`
}

// extractAPI decodes the lot search response. Lots that cannot be decoded
// or have no slug are reported to skip, when set, and left out.
func extractAPI(body []byte, skip func(error)) ([]*models.Auction, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode lot search response: %w", err)
	}

	auctions := make([]*models.Auction, 0, len(resp.Data))
	for i, raw := range resp.Data {
		var lot apiLot
		if err := json.Unmarshal(raw, &lot); err != nil {
			report(skip, fmt.Errorf("lot %d: %w", i, err))
			continue
		}
		if lot.Slug == "" {
			report(skip, fmt.Errorf("lot %d (%q): no slug", i, string(lot.Title)))
			continue
		}

		title := string(lot.Title)
		if title == "" {
			title = "Unknown Title"
		}
		a := models.NewAuction(lotURL(string(lot.Slug)), title)
		a.Description = string(lot.Description)
		a.Evaluation = string(lot.Evaluation)
		a.MinimumBid = string(lot.MinimumBid)
		a.CurrentBid = string(lot.Bid)
		a.ClosingAt = string(lot.ClosingAt)
		a.Status = string(lot.Status)
		a.AuctionTitle = string(lot.Auction.Title)
		if lot.Auction.Slug != "" {
			a.AuctionURL = auctionURL(string(lot.Auction.Slug))
		}
		for _, img := range lot.Images {
			a.AddImage(string(img.URL))
		}

		var data map[string]any
		if err := json.Unmarshal(raw, &data); err == nil {
			a.SetMeta(models.MetaAPIData, data)
		}
		a.RawContent = string(raw)
		auctions = append(auctions, a)
	}
	return auctions, nil
}

func report(skip func(error), err error) {
	if skip != nil {
		skip(err)
	}
}

func lotURL(slug string) string     { return siteURL + "/lote/" + slug }
func auctionURL(slug string) string { return siteURL + "/leilao/" + slug }

// bearerRegexp finds a token embedded in inline scripts.
var bearerRegexp = regexp.MustCompile(`Bearer\s+([A-Za-z0-9|]+)`)

const localStorageTokenScript = `(function() {
	try {
		var user = JSON.parse(window.localStorage.getItem('user') || 'null');
		return user && user.token ? String(user.token) : '';
	} catch (e) {
		return '';
	}
})()`

// recoverCredentials reads the bearer token and io session cookie left by
// the site's own scripts. Missing credentials are not an error; the request
// is simply sent without them.
func (a *Adapter) recoverCredentials(ctx context.Context) {
	var token string
	if err := a.page.Evaluate(ctx, localStorageTokenScript, &token); err != nil {
		a.logger.Warn("[centralsul] Error reading localStorage token: %v", err)
	}
	if token != "" {
		a.logger.Info("[centralsul] Extracted auth token from localStorage")
	} else if page, err := a.page.HTML(ctx); err == nil {
		token = tokenFromScripts(page)
		if token != "" {
			a.logger.Info("[centralsul] Extracted auth token from script tag")
		}
	}
	a.token = token

	cookies, err := a.page.Cookies(ctx)
	if err != nil {
		a.logger.Warn("[centralsul] Error extracting cookies: %v", err)
		return
	}
	if v, ok := cookies["io"]; ok {
		a.ioCookie = v
		a.logger.Info("[centralsul] Extracted io cookie")
	}
}

func tokenFromScripts(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}
	var token string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := bearerRegexp.FindStringSubmatch(s.Text()); m != nil {
			token = m[1]
		}
		return token == ""
	})
	return token
}

// apiSearch loads the listing page for credentials, then queries the lot
// search endpoint directly.
func (a *Adapter) apiSearch(ctx context.Context, query string) ([]*models.Auction, error) {
	a.logger.Info("[centralsul] Navigating to %s to extract authentication tokens...", baseURL)
	if err := a.page.Navigate(ctx, baseURL); err != nil {
		return nil, err
	}
	a.recoverCredentials(ctx)
	if a.token == "" {
		a.logger.Warn("[centralsul] Failed to extract authorization token, API search will likely fail")
	}

	payload, err := json.Marshal(map[string]any{
		"query":         query,
		"city_slug":     nil,
		"category_slug": nil,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build API request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.7")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", siteURL)
	req.Header.Set("Referer", baseURL)
	req.Header.Set("User-Agent", userAgent)
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	if a.ioCookie != "" {
		req.AddCookie(&http.Cookie{Name: "io", Value: a.ioCookie})
	}

	a.logger.Info("[centralsul] Making API request with query: %s", query)
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read API response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed: %d - %s", resp.StatusCode, truncate(string(body), 100))
	}

	auctions, err := Extract(Content{
		Kind: KindAPI,
		URL:  a.apiURL,
		Body: string(body),
		OnSkip: func(err error) {
			a.logger.Warn("[centralsul] Skipping API result: %v", err)
		},
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("[centralsul] API returned %d results", len(auctions))
	return auctions, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
