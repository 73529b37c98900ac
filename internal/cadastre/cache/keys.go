package cache

import (
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"catastro/internal/cadastre/models"
	pstrings "catastro/pkg/platform/strings"
)

// Namespace prefixes every key the cache writes so the namespace can be
// swept or cleared without touching other application state.
const Namespace = "catastro_cache_"

// CoordinatePrecision is the number of decimals coordinates are rounded to
// before hashing (about 11 m at Spanish latitudes).
const CoordinatePrecision = 4

// CoordinateKey derives the cache key for a coordinate query. Queries that
// round to the same grid cell share a key.
func CoordinateKey(c models.GeoCoordinates) string {
	return hashed("coords:" + round(c.Lat) + "," + round(c.Lng))
}

// AddressKey derives the cache key for an address query. Case, accents and
// spacing do not affect the key.
func AddressKey(address string) string {
	return hashed("address:" + pstrings.UpperASCIIFolding(address))
}

// CandidatesKey derives the cache key for a ranked candidate query.
func CandidatesKey(c models.GeoCoordinates, limit int) string {
	return hashed("candidates:" + round(c.Lat) + "," + round(c.Lng) + ":" + strconv.Itoa(limit))
}

func round(v float64) string {
	scale := math.Pow10(CoordinatePrecision)
	r := math.Round(v*scale) / scale
	if r == 0 {
		r = 0 // normalize -0
	}
	return strconv.FormatFloat(r, 'f', CoordinatePrecision, 64)
}

func hashed(canonical string) string {
	return Namespace + strconv.FormatUint(xxhash.Sum64String(canonical), 16)
}
