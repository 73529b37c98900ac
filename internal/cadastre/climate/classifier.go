// Package climate maps provinces (or, as a last resort, coordinates) to the
// CTE DB-HE climate zone used by energy-renovation certificates.
package climate

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"catastro/internal/cadastre/models"
	pstrings "catastro/pkg/platform/strings"
)

// NotAvailable is returned when neither province nor coordinates classify.
const NotAvailable = "N/A"

// minReverseMatch is the shortest input that may match as a substring of a
// table key; shorter fragments ("A", "LA") would match almost anything.
const minReverseMatch = 4

//go:embed provinces.yaml
var provincesYAML []byte

var validZones = map[string]struct{}{
	"A3": {}, "A4": {}, "B3": {}, "B4": {}, "C1": {}, "C2": {},
	"C3": {}, "C4": {}, "D1": {}, "D2": {}, "D3": {}, "E1": {},
}

type provinceEntry struct {
	Name    string   `yaml:"name"`
	Zone    string   `yaml:"zone"`
	Aliases []string `yaml:"aliases"`
}

type tableFile struct {
	Provinces []provinceEntry `yaml:"provinces"`
}

// Table is the immutable province → zone mapping. Keys are folded names and
// aliases; values point at the canonical entry.
type Table struct {
	byKey map[string]provinceEntry
	keys  []string // folded keys, longest first
}

// ParseTable decodes a YAML province table and validates every zone code.
func ParseTable(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode province table: %w", err)
	}
	if len(file.Provinces) == 0 {
		return nil, fmt.Errorf("province table is empty")
	}

	t := &Table{byKey: make(map[string]provinceEntry)}
	for _, p := range file.Provinces {
		if _, ok := validZones[p.Zone]; !ok {
			return nil, fmt.Errorf("province %q: invalid climate zone %q", p.Name, p.Zone)
		}
		for _, name := range append([]string{p.Name}, p.Aliases...) {
			key := pstrings.UpperASCIIFolding(name)
			if prev, dup := t.byKey[key]; dup && prev.Name != p.Name {
				return nil, fmt.Errorf("province key %q claimed by %q and %q", key, prev.Name, p.Name)
			}
			t.byKey[key] = p
		}
	}

	t.keys = make([]string, 0, len(t.byKey))
	for k := range t.byKey {
		t.keys = append(t.keys, k)
	}
	sort.Slice(t.keys, func(i, j int) bool {
		if len(t.keys[i]) != len(t.keys[j]) {
			return len(t.keys[i]) > len(t.keys[j])
		}
		return t.keys[i] < t.keys[j]
	})
	return t, nil
}

func mustParseTable(data []byte) *Table {
	t, err := ParseTable(data)
	if err != nil {
		panic(err)
	}
	return t
}

var defaultTable = mustParseTable(provincesYAML)

// DefaultTable returns the embedded province table.
func DefaultTable() *Table {
	return defaultTable
}

// Len returns the number of canonical provinces.
func (t *Table) Len() int {
	seen := make(map[string]struct{})
	for _, e := range t.byKey {
		seen[e.Name] = struct{}{}
	}
	return len(seen)
}

// lookup finds the entry for a province string: exact folded match first,
// then substring match in either direction.
func (t *Table) lookup(province string) (provinceEntry, bool) {
	key := pstrings.UpperASCIIFolding(province)
	if key == "" {
		return provinceEntry{}, false
	}
	if e, ok := t.byKey[key]; ok {
		return e, true
	}
	for _, k := range t.keys {
		if strings.Contains(key, k) {
			return t.byKey[k], true
		}
	}
	if len(key) < minReverseMatch {
		return provinceEntry{}, false
	}
	for _, k := range t.keys {
		if strings.Contains(k, key) {
			return t.byKey[k], true
		}
	}
	return provinceEntry{}, false
}

// Classifier resolves climate zones.
type Classifier struct {
	table *Table
}

// New returns a classifier over t, or over the embedded table when t is nil.
func New(t *Table) *Classifier {
	if t == nil {
		t = defaultTable
	}
	return &Classifier{table: t}
}

// Classify returns the zone for province or NotAvailable.
func (c *Classifier) Classify(province string) string {
	if e, ok := c.table.lookup(province); ok {
		return e.Zone
	}
	return NotAvailable
}

// ClassifyAt classifies by province and falls back to the coordinate
// heuristic when the province is unknown and coords are present.
func (c *Classifier) ClassifyAt(province string, coords *models.GeoCoordinates) string {
	if zone := c.Classify(province); zone != NotAvailable {
		return zone
	}
	if coords == nil || coords.IsZero() {
		return NotAvailable
	}
	return ByRegion(*coords)
}

// Canonical returns the registry's canonical name for a province or alias.
func (c *Classifier) Canonical(province string) (string, bool) {
	key := pstrings.UpperASCIIFolding(province)
	e, ok := c.table.byKey[key]
	if !ok {
		return "", false
	}
	return e.Name, true
}

// ByRegion approximates a zone from coarse bounding regions of the
// peninsula and the Balearic Islands. Coordinates outside Spain's bounding
// box yield NotAvailable.
func ByRegion(coords models.GeoCoordinates) string {
	if coords.Validate() != nil {
		return NotAvailable
	}
	lat, lng := coords.Lat, coords.Lng

	switch {
	case lng > 1.1 && lat > 38.5 && lat < 40.2:
		return "B3" // Balearics
	case lat > 42.0:
		if lng < 0 {
			return "C1"
		}
		return "C2"
	case lat > 40.0:
		switch {
		case lng < -6.5:
			return "D2"
		case lng < -0.5:
			return "D3"
		default:
			return "B3"
		}
	case lat > 38.5:
		switch {
		case lng < -5.0:
			return "C4"
		case lng < -1.5:
			return "D3"
		default:
			return "B3"
		}
	case lat > 37.0:
		switch {
		case lng < -6.0:
			return "A4"
		case lng < -2.5:
			return "B4"
		default:
			return "B3"
		}
	default:
		if lng < -4.0 {
			return "A3"
		}
		return "A4"
	}
}
