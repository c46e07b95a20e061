package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"auction-crawler/config"
)

// QueryExpander turns a location query into the lowercase variants a listing
// may spell it with.
type QueryExpander struct {
	registry *config.Registry
}

// NewQueryExpander uses registry for known locations; nil means the
// built-in table.
func NewQueryExpander(registry *config.Registry) *QueryExpander {
	if registry == nil {
		registry = config.DefaultRegistry()
	}
	return &QueryExpander{registry: registry}
}

// Variations returns the query itself followed by its known spellings,
// lowercased and without case-insensitive duplicates.
func (e *QueryExpander) Variations(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	variations := []string{q}

	if loc, ok := e.registry.Match(q); ok {
		variations = append(variations, loc.Name)
		variations = append(variations, loc.Aliases...)
		if loc.State != "" {
			variations = append(variations, loc.Name+"/"+loc.State)
		}
		return uniqueLower(variations)
	}

	if stripped := StripAccents(q); stripped != q {
		variations = append(variations, stripped)
	}

	if strings.Contains(q, "/") {
		variations = append(variations, strings.ReplaceAll(q, "/", ""))
	} else {
	search:
		for _, loc := range e.registry.All() {
			if strings.Contains(strings.ToLower(loc.ID), q) {
				variations = append(variations, q+"/"+loc.State)
				break
			}
			for _, alias := range loc.Aliases {
				if strings.ToLower(alias) == q {
					variations = append(variations, q+"/"+loc.State)
					break search
				}
			}
		}
	}

	return uniqueLower(variations)
}

// StripAccents removes combining marks, so "itapirubá" becomes "itapiruba".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func uniqueLower(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
