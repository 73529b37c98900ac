// Package models holds the value types shared by every stage of cadastral
// resolution. CadastralResult is the only type that leaves the engine.
package models

import (
	"errors"
	"fmt"
	"math"
)

// Spain's bounding box. Coordinates outside it are rejected before any
// registry call.
const (
	MinLat = 35.0
	MaxLat = 45.0
	MinLng = -10.0
	MaxLng = 5.0
)

// ErrOutOfTerritory indicates coordinates outside the national bounding box.
var ErrOutOfTerritory = errors.New("coordinates outside Spanish territory")

// ErrInvalidCoordinates indicates NaN or infinite coordinates.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// GeoCoordinates is a WGS84 latitude/longitude pair.
type GeoCoordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks the pair is finite and inside Spain's bounding box.
func (c GeoCoordinates) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return ErrInvalidCoordinates
	}
	if c.Lat < MinLat || c.Lat > MaxLat || c.Lng < MinLng || c.Lng > MaxLng {
		return fmt.Errorf("%w: lat=%.6f lng=%.6f", ErrOutOfTerritory, c.Lat, c.Lng)
	}
	return nil
}

// IsZero reports whether both components are zero (an unset pair).
func (c GeoCoordinates) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

func (c GeoCoordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// RoadType is the registry's street-type abbreviation ("sigla").
type RoadType string

const (
	RoadCalle     RoadType = "CL"
	RoadAvenida   RoadType = "AV"
	RoadPlaza     RoadType = "PZ"
	RoadPaseo     RoadType = "PS"
	RoadRonda     RoadType = "RD"
	RoadCarretera RoadType = "CR"
	RoadTravesia  RoadType = "TR"
	RoadCuesta    RoadType = "CU"
	RoadPasaje    RoadType = "PJ"
	RoadCamino    RoadType = "CM"
)

// IsValid reports whether t is one of the registry's known road types.
func (t RoadType) IsValid() bool {
	switch t {
	case RoadCalle, RoadAvenida, RoadPlaza, RoadPaseo, RoadRonda,
		RoadCarretera, RoadTravesia, RoadCuesta, RoadPasaje, RoadCamino:
		return true
	}
	return false
}

// ParsedAddress is the structured form of a free-text address. Municipality
// is upper-cased and accent-stripped. Province is the canonical registry name
// when the province is known, accents included ("ALMERÍA", "ARABA/ÁLAVA"),
// and the folded input otherwise.
type ParsedAddress struct {
	Province     string   `json:"province"`
	Municipality string   `json:"municipality"`
	PostalCode   string   `json:"postalCode,omitempty"`
	RoadType     RoadType `json:"roadType"`
	RoadName     string   `json:"roadName"`
	Number       string   `json:"number"`
}

// Source identifies which path produced a CadastralResult.
type Source int

const (
	SourceREST Source = iota + 1
	SourceSOAP
	SourceProximity
	SourceFallback
	SourceRESTSOAPFailed
)

var sourceNames = map[Source]string{
	SourceREST:           "REST",
	SourceSOAP:           "SOAP",
	SourceProximity:      "PROXIMITY",
	SourceFallback:       "FALLBACK",
	SourceRESTSOAPFailed: "REST+SOAP_FAILED",
}

// ErrUnknownSource is returned when decoding an unrecognized source tag.
var ErrUnknownSource = errors.New("unknown api source")

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// ParseSource converts a wire tag back into a Source.
func ParseSource(tag string) (Source, error) {
	for s, name := range sourceNames {
		if name == tag {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSource, tag)
}

// MarshalText encodes the source as its wire tag.
func (s Source) MarshalText() ([]byte, error) {
	name, ok := sourceNames[s]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSource, int(s))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a wire tag.
func (s *Source) UnmarshalText(text []byte) error {
	parsed, err := ParseSource(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ErrorKind separates local validation rejections from exhausted tiers.
type ErrorKind string

const (
	ErrorKindNone       ErrorKind = ""
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindTerminal   ErrorKind = "terminal"
)

// CadastralResult is what every resolution path converges on. A non-nil
// Error implies an empty CadastralReference.
type CadastralResult struct {
	CadastralReference string    `json:"cadastralReference"`
	UTMCoordinates     string    `json:"utmCoordinates"`
	ClimateZone        string    `json:"climateZone"`
	APISource          Source    `json:"apiSource"`
	Error              *string   `json:"error"`
	ErrorKind          ErrorKind `json:"errorKind,omitempty"`
	Address            string    `json:"address,omitempty"`
	Province           string    `json:"province,omitempty"`
}

// HasReference reports whether the registry supplied a cadastral reference.
func (r CadastralResult) HasReference() bool {
	return r.CadastralReference != ""
}

// Failed reports whether the result carries an error.
func (r CadastralResult) Failed() bool {
	return r.Error != nil
}

// ErrorMessage returns the error text or "".
func (r CadastralResult) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// Success builds a result for a registry hit.
func Success(source Source, reference string) CadastralResult {
	return CadastralResult{CadastralReference: reference, APISource: source}
}

// Failure builds an error result. The reference is always empty.
func Failure(source Source, kind ErrorKind, message string) CadastralResult {
	msg := message
	return CadastralResult{APISource: source, Error: &msg, ErrorKind: kind}
}

// Candidate is one entry of a distance-ranked proximity lookup.
type Candidate struct {
	Rank               int     `json:"rank"`
	DistanceMeters     float64 `json:"distanceMeters"`
	CadastralReference string  `json:"cadastralReference"`
	Address            string  `json:"address,omitempty"`
	Province           string  `json:"province,omitempty"`
}
