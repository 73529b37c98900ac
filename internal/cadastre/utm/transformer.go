// Package utm projects WGS84 coordinates onto ETRS89 / UTM zone 30N
// (EPSG:25830), the grid the registry publishes.
package utm

import (
	"fmt"
	"math"

	"github.com/wroge/wgs84"

	"catastro/internal/cadastre/models"
)

// Zone is the UTM zone covering peninsular Spain.
const Zone = 30

var toETRS89UTM30 = wgs84.LonLat().To(wgs84.ETRS89UTM(Zone))

// Point is a projected position in metres.
type Point struct {
	Easting  float64
	Northing float64
}

// String formats p the way results carry it.
func (p Point) String() string {
	return fmt.Sprintf("UTM %dN E: %.3f N: %.3f", Zone, p.Easting, p.Northing)
}

// Project converts coords to UTM 30N. ok is false for NaN, infinite or zero
// input.
func Project(coords models.GeoCoordinates) (Point, bool) {
	if !usable(coords.Lat) || !usable(coords.Lng) {
		return Point{}, false
	}
	east, north, _ := toETRS89UTM30(coords.Lng, coords.Lat, 0)
	if math.IsNaN(east) || math.IsNaN(north) {
		return Point{}, false
	}
	return Point{Easting: east, Northing: north}, true
}

// ToUTM30N returns the formatted projection of coords, or "" when the input
// cannot be projected. Callers treat the empty string as "not available".
func ToUTM30N(coords *models.GeoCoordinates) string {
	if coords == nil {
		return ""
	}
	p, ok := Project(*coords)
	if !ok {
		return ""
	}
	return p.String()
}

func usable(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
