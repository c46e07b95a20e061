package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Relevance is the LLM's verdict on whether a record matches the query.
// IsRelevant is nil when the verdict is unknown.
type Relevance struct {
	IsRelevant *bool   `json:"is_relevant"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Auction is one normalized property-auction listing.
//
// Commercial fields hold the currency strings exactly as the site displays them.
// Metadata carries any field an extraction strategy produced that has no named
// field here; it is flattened into the top level of the serialized record.
type Auction struct {
	Title        string
	URL          string
	AuctionTitle string
	AuctionURL   string
	Description  string
	Evaluation   string
	MinimumBid   string
	CurrentBid   string
	NextSession  string
	ClosingAt    string
	Status       string
	Images       []string
	Source       string
	Location     string
	Relevance    *Relevance
	Metadata     map[string]any
	CreatedAt    time.Time

	// RawContent is the captured markup or JSON the record was extracted from.
	// It feeds LLM analysis and is never serialized.
	RawContent string
}

// Metadata keys with meaning to the pipeline.
const (
	MetaMatchReason    = "match_reason"
	MetaSearchKeywords = "search_keywords"
	MetaAPIData        = "api_data"
	MetaGenerated      = "generated"
)

// Description sentinels. Neither carries listing information.
const (
	// PlaceholderDescription is what the site shows before a lot is expanded.
	PlaceholderDescription = "Clique para ver a descrição completa do lote"
	// NoDescription marks a detail page where no description could be found.
	NoDescription = "No description available"
)

// HasDescription reports whether Description holds real text.
func (a *Auction) HasDescription() bool {
	d := strings.TrimSpace(a.Description)
	return d != "" && d != PlaceholderDescription && d != NoDescription
}

// NewAuction creates a record for a resolved detail URL.
func NewAuction(url, title string) *Auction {
	return &Auction{
		URL:       url,
		Title:     title,
		Images:    []string{},
		Metadata:  map[string]any{},
		CreatedAt: time.Now(),
	}
}

// SetMeta stores an extra field.
func (a *Auction) SetMeta(key string, value any) {
	if a.Metadata == nil {
		a.Metadata = map[string]any{}
	}
	a.Metadata[key] = value
}

// MetaString returns a metadata value as a string, or "" when absent.
func (a *Auction) MetaString(key string) string {
	v, ok := a.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// AddImage appends a non-empty image URL.
func (a *Auction) AddImage(src string) {
	if src = strings.TrimSpace(src); src != "" {
		a.Images = append(a.Images, src)
	}
}

// String is a one-line summary for logs.
func (a *Auction) String() string {
	return fmt.Sprintf("%s (%s) - %s", a.Title, a.Evaluation, a.URL)
}

var schemaKeys = map[string]struct{}{
	"title": {}, "url": {}, "auction_title": {}, "auction_url": {}, "description": {},
	"evaluation": {}, "minimum_bid": {}, "current_bid": {}, "next_session": {},
	"closing_at": {}, "status": {}, "images": {}, "source": {}, "location": {},
	"relevance": {}, "metadata": {}, "created_at": {}, "image_url": {}, "html_content": {},
}

// FromMap builds an Auction from a loosely typed mapping such as LLM output.
//
// images is always normalized to a slice: null becomes empty and a bare string
// becomes a one-element slice. A non-empty image_url is folded into images and
// dropped. Unknown keys land in Metadata.
func FromMap(data map[string]any) *Auction {
	a := NewAuction(str(data["url"]), str(data["title"]))
	a.AuctionTitle = str(data["auction_title"])
	a.AuctionURL = str(data["auction_url"])
	a.Description = str(data["description"])
	a.Evaluation = str(data["evaluation"])
	a.MinimumBid = str(data["minimum_bid"])
	a.CurrentBid = str(data["current_bid"])
	a.NextSession = str(data["next_session"])
	a.ClosingAt = str(data["closing_at"])
	a.Status = str(data["status"])
	a.Source = str(data["source"])
	a.Location = str(data["location"])
	a.RawContent = str(data["html_content"])

	a.Images = imageList(data["images"])
	if u := str(data["image_url"]); u != "" {
		a.Images = append(a.Images, u)
	}

	if rel, ok := data["relevance"].(map[string]any); ok && len(rel) > 0 {
		a.Relevance = relevanceFromMap(rel)
	}

	if ts := str(data["created_at"]); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			a.CreatedAt = t
		}
	}

	if meta, ok := data["metadata"].(map[string]any); ok {
		for k, v := range meta {
			a.Metadata[k] = v
		}
	}
	for k, v := range data {
		if _, known := schemaKeys[k]; !known {
			a.Metadata[k] = v
		}
	}
	return a
}

// ToMap converts the record into its normalized dictionary form.
func (a *Auction) ToMap() map[string]any {
	images := a.Images
	if images == nil {
		images = []string{}
	}

	relevance := map[string]any{}
	if a.Relevance != nil {
		var verdict any
		if a.Relevance.IsRelevant != nil {
			verdict = *a.Relevance.IsRelevant
		}
		relevance["is_relevant"] = verdict
		relevance["confidence"] = a.Relevance.Confidence
		relevance["reason"] = a.Relevance.Reason
	}

	out := map[string]any{
		"title":         a.Title,
		"url":           a.URL,
		"auction_title": a.AuctionTitle,
		"auction_url":   a.AuctionURL,
		"description":   a.Description,
		"evaluation":    optional(a.Evaluation),
		"minimum_bid":   optional(a.MinimumBid),
		"current_bid":   optional(a.CurrentBid),
		"next_session":  optional(a.NextSession),
		"closing_at":    optional(a.ClosingAt),
		"status":        optional(a.Status),
		"images":        images,
		"source":        a.Source,
		"location":      optional(a.Location),
		"relevance":     relevance,
		"created_at":    a.CreatedAt.Format(time.RFC3339Nano),
	}

	for k, v := range a.Metadata {
		if _, taken := out[k]; !taken {
			out[k] = v
		}
	}
	return out
}

// MarshalJSON serializes the normalized dictionary form.
func (a Auction) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(a.ToMap()); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON accepts any mapping FromMap accepts.
func (a *Auction) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*a = *FromMap(m)
	return nil
}

// MergeMissing fills fields that are still empty from another mapping,
// typically an LLM extraction. Values already present always win.
func (a *Auction) MergeMissing(fields map[string]any) {
	if len(fields) == 0 {
		return
	}
	other := FromMap(fields)

	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" && src != "" {
			*dst = src
		}
	}
	fill(&a.Title, other.Title)
	fill(&a.URL, other.URL)
	fill(&a.AuctionTitle, other.AuctionTitle)
	fill(&a.AuctionURL, other.AuctionURL)
	fill(&a.Description, other.Description)
	fill(&a.Evaluation, other.Evaluation)
	fill(&a.MinimumBid, other.MinimumBid)
	fill(&a.CurrentBid, other.CurrentBid)
	fill(&a.NextSession, other.NextSession)
	fill(&a.ClosingAt, other.ClosingAt)
	fill(&a.Status, other.Status)
	fill(&a.Location, other.Location)
	if len(a.Images) == 0 && len(other.Images) > 0 {
		a.Images = other.Images
	}

	for k, v := range other.Metadata {
		if _, exists := a.Metadata[k]; !exists {
			a.SetMeta(k, v)
		}
	}
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return fmt.Sprint(t)
	}
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func imageList(v any) []string {
	images := []string{}
	switch t := v.(type) {
	case nil:
	case string:
		if t != "" {
			images = append(images, t)
		}
	case []string:
		for _, s := range t {
			if s != "" {
				images = append(images, s)
			}
		}
	case []any:
		for _, item := range t {
			if s := str(item); s != "" {
				images = append(images, s)
			}
		}
	default:
		images = append(images, fmt.Sprint(t))
	}
	return images
}

func relevanceFromMap(m map[string]any) *Relevance {
	r := &Relevance{Reason: str(m["reason"])}
	if b, ok := m["is_relevant"].(bool); ok {
		r.IsRelevant = &b
	}
	switch c := m["confidence"].(type) {
	case float64:
		r.Confidence = c
	case int:
		r.Confidence = float64(c)
	}
	return r
}
