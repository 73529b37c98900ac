// Package address turns free-text Spanish addresses into the structured
// fields the registry's street lookup expects.
package address

import (
	"regexp"
	"sort"
	"strings"

	"catastro/internal/cadastre/climate"
	"catastro/internal/cadastre/models"
	pstrings "catastro/pkg/platform/strings"
)

// DefaultCity is used for province and municipality when the input does not
// identify a locality.
const DefaultCity = "MADRID"

var roadTypePrefixes = map[string]models.RoadType{
	"CALLE": models.RoadCalle, "CALL": models.RoadCalle, "CL": models.RoadCalle,
	"C/": models.RoadCalle, "C": models.RoadCalle, "CARRER": models.RoadCalle,
	"AVENIDA": models.RoadAvenida, "AVINGUDA": models.RoadAvenida, "AVDA": models.RoadAvenida,
	"AVD": models.RoadAvenida, "AV": models.RoadAvenida,
	"PLAZA": models.RoadPlaza, "PLACA": models.RoadPlaza, "PZA": models.RoadPlaza,
	"PL": models.RoadPlaza, "PZ": models.RoadPlaza,
	"PASEO": models.RoadPaseo, "PASSEIG": models.RoadPaseo, "PS": models.RoadPaseo,
	"RONDA": models.RoadRonda, "RDA": models.RoadRonda, "RD": models.RoadRonda,
	"CARRETERA": models.RoadCarretera, "CTRA": models.RoadCarretera, "CR": models.RoadCarretera,
	"TRAVESIA": models.RoadTravesia, "TRAV": models.RoadTravesia, "TR": models.RoadTravesia,
	"CUESTA": models.RoadCuesta, "CU": models.RoadCuesta,
	"PASAJE": models.RoadPasaje, "PSJE": models.RoadPasaje, "PJ": models.RoadPasaje,
	"CAMINO": models.RoadCamino, "CMNO": models.RoadCamino, "CM": models.RoadCamino,
}

// prefixesByLength lists road-type prefixes longest first so "AVENIDA"
// wins over "AV".
var prefixesByLength = func() []string {
	out := make([]string, 0, len(roadTypePrefixes))
	for p := range roadTypePrefixes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

var (
	postalCodePattern  = regexp.MustCompile(`\b(\d{5})\b`)
	houseNumberPattern = regexp.MustCompile(`^\d+[A-Z]?$`)
	parenthesized      = regexp.MustCompile(`\(([^)]*)\)`)
)

// numberMarkers precede a house number and are dropped from the road name.
var numberMarkers = map[string]struct{}{
	"N": {}, "NO": {}, "NO.": {}, "Nº": {}, "N.": {}, "NUM": {}, "NUM.": {}, "NUMERO": {},
}

// Parser parses addresses. The zero value is not usable; use NewParser.
type Parser struct {
	defaultCity string
	classifier  *climate.Classifier
}

// Option configures a Parser.
type Option func(*Parser)

// WithDefaultCity sets the locality assumed for ambiguous input.
func WithDefaultCity(city string) Option {
	return func(p *Parser) {
		if folded := pstrings.UpperASCIIFolding(city); folded != "" {
			p.defaultCity = folded
		}
	}
}

// WithClassifier sets the classifier used to canonicalize province names.
func WithClassifier(c *climate.Classifier) Option {
	return func(p *Parser) {
		if c != nil {
			p.classifier = c
		}
	}
}

// NewParser builds a parser with the embedded province table.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		defaultCity: DefaultCity,
		classifier:  climate.New(nil),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse never fails. Input that does not name a locality is attributed to
// the default city; callers that need certainty should geocode first and
// resolve by coordinates.
func (p *Parser) Parse(address string) models.ParsedAddress {
	segments := splitSegments(address)
	out := models.ParsedAddress{RoadType: models.RoadCalle}
	if len(segments) == 0 {
		out.Province = p.canonicalProvince(p.defaultCity)
		out.Municipality = p.defaultCity
		return out
	}

	out.RoadType, out.RoadName, out.Number = parseStreet(segments[0])
	rest := segments[1:]

	var province string
	if len(rest) >= 2 {
		last := rest[len(rest)-1]
		if !postalCodePattern.MatchString(last) {
			if canonical, ok := p.classifier.Canonical(last); ok {
				province = canonical
				rest = rest[:len(rest)-1]
			}
		}
	}

	var locality string
	if len(rest) > 0 {
		locality = rest[len(rest)-1]
		for _, middle := range rest[:len(rest)-1] {
			if out.Number == "" {
				out.Number = houseNumber(pstrings.UpperASCIIFolding(middle))
			}
		}
	}

	postal, municipality, explicitProvince := parseLocality(locality)
	out.PostalCode = postal
	if province == "" {
		province = explicitProvince
	}

	if municipality == "" {
		municipality = p.defaultCity
	}
	if province == "" {
		province = municipality
	}
	out.Municipality = municipality
	out.Province = p.canonicalProvince(province)
	return out
}

func (p *Parser) canonicalProvince(name string) string {
	if canonical, ok := p.classifier.Canonical(name); ok {
		return canonical
	}
	return pstrings.UpperASCIIFolding(name)
}

func splitSegments(address string) []string {
	parts := strings.Split(address, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseStreet splits the street line into road type, road name and number.
func parseStreet(line string) (models.RoadType, string, string) {
	street := pstrings.UpperASCIIFolding(line)
	roadType := models.RoadCalle

	for _, prefix := range prefixesByLength {
		if !strings.HasPrefix(street, prefix) {
			continue
		}
		remainder := street[len(prefix):]
		if !strings.HasSuffix(prefix, "/") && remainder != "" && !isBoundary(remainder[0]) {
			continue
		}
		roadType = roadTypePrefixes[prefix]
		street = strings.TrimLeft(remainder, " ./")
		break
	}

	tokens := strings.Fields(street)
	number := ""
	if n := len(tokens); n > 1 {
		last := tokens[n-1]
		switch {
		case houseNumberPattern.MatchString(last):
			number = last
			tokens = tokens[:n-1]
		case last == "S/N" || last == "SN":
			tokens = tokens[:n-1]
		}
		if n := len(tokens); number != "" && n > 1 {
			if _, marker := numberMarkers[tokens[n-1]]; marker {
				tokens = tokens[:n-1]
			}
		}
	}
	return roadType, strings.Join(tokens, " "), number
}

func isBoundary(b byte) bool {
	return b == ' ' || b == '.' || b == '/'
}

func houseNumber(segment string) string {
	tokens := strings.Fields(segment)
	for len(tokens) > 0 {
		if _, marker := numberMarkers[tokens[0]]; !marker {
			break
		}
		tokens = tokens[1:]
	}
	if len(tokens) == 1 && houseNumberPattern.MatchString(tokens[0]) {
		return tokens[0]
	}
	return ""
}

// parseLocality extracts postal code, municipality and an explicit
// "(PROVINCE)" suffix from the trailing address segment.
func parseLocality(segment string) (postal, municipality, province string) {
	if segment == "" {
		return "", "", ""
	}
	if m := parenthesized.FindStringSubmatch(segment); m != nil {
		province = strings.TrimSpace(m[1])
		segment = parenthesized.ReplaceAllString(segment, " ")
	}
	if loc := postalCodePattern.FindStringSubmatchIndex(segment); loc != nil {
		postal = segment[loc[2]:loc[3]]
		segment = segment[:loc[0]] + " " + segment[loc[1]:]
	}
	return postal, pstrings.UpperASCIIFolding(segment), province
}
