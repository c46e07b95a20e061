package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Location is one entry of the known-location registry.
type Location struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	State       string   `yaml:"state"`
	Aliases     []string `yaml:"aliases"`
	FallbackURL string   `yaml:"fallback_url,omitempty"`
}

// Registry is an ordered table of known locations. Order matters: the first
// entry that matches a query wins.
type Registry struct {
	locations []Location
}

// DefaultLocations is the built-in registry.
var DefaultLocations = []Location{
	{
		ID:          "itapiruba",
		Name:        "Itapiruba",
		State:       "SC",
		Aliases:     []string{"itapirubá", "itapiruba/sc", "itapirubá/sc"},
		FallbackURL: "https://www.centralsuldeleiloes.com.br/leilao/9867/lote/235407/imovel-com-area-de-375-00m2-no-loteamento-balneario-itapiruba-no-municipio-de-laguna-sc",
	},
	{
		ID:      "florianopolis",
		Name:    "Florianópolis",
		State:   "SC",
		Aliases: []string{"floripa", "florianopolis/sc", "florianópolis/sc"},
	},
	{
		ID:      "balneario-camboriu",
		Name:    "Balneário Camboriú",
		State:   "SC",
		Aliases: []string{"balneario camboriu", "bc", "balneario", "camboriú", "camboriu"},
	},
	{
		ID:      "sao-paulo",
		Name:    "São Paulo",
		State:   "SP",
		Aliases: []string{"sao paulo", "sp", "sao paulo/sp", "são paulo/sp"},
	},
	{
		ID:      "rio-de-janeiro",
		Name:    "Rio de Janeiro",
		State:   "RJ",
		Aliases: []string{"rio", "rj", "rio de janeiro", "rio de janeiro/rj"},
	},
}

// NewRegistry builds a Registry from the given entries.
func NewRegistry(locations []Location) *Registry {
	cp := make([]Location, len(locations))
	copy(cp, locations)
	return &Registry{locations: cp}
}

// DefaultRegistry returns the built-in registry.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultLocations)
}

type registryFile struct {
	Locations []Location `yaml:"locations"`
}

// LoadRegistry reads a YAML registry file. An empty path yields the default registry.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("locations: read %q: %w", path, err)
	}

	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("locations: parse %q: %w", path, err)
	}

	for i, loc := range f.Locations {
		if loc.ID == "" || loc.Name == "" {
			return nil, fmt.Errorf("locations: entry %d needs both id and name", i)
		}
	}
	return NewRegistry(f.Locations), nil
}

// All returns the registry entries in order.
func (r *Registry) All() []Location {
	out := make([]Location, len(r.locations))
	copy(out, r.locations)
	return out
}

// Match finds a location whose id, name or one of its aliases equals the
// query, case-insensitively.
func (r *Registry) Match(query string) (Location, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Location{}, false
	}

	for _, loc := range r.locations {
		if q == strings.ToLower(loc.ID) || q == strings.ToLower(loc.Name) {
			return loc, true
		}
	}
	for _, loc := range r.locations {
		for _, alias := range loc.Aliases {
			if q == strings.ToLower(alias) {
				return loc, true
			}
		}
	}
	return Location{}, false
}

// Lookup is Match followed by a loose pass: an id or alias contained in the
// query, or the query contained in an id or alias.
func (r *Registry) Lookup(query string) (Location, bool) {
	if loc, ok := r.Match(query); ok {
		return loc, true
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Location{}, false
	}

	for _, loc := range r.locations {
		id := strings.ToLower(loc.ID)
		if strings.Contains(q, id) || strings.Contains(id, q) {
			return loc, true
		}
		for _, alias := range loc.Aliases {
			a := strings.ToLower(alias)
			if strings.Contains(q, a) || strings.Contains(a, q) {
				return loc, true
			}
		}
	}
	return Location{}, false
}
