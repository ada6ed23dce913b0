// Package geo resolves addresses to coordinates inside a service region and
// provides the distance and postal-code helpers that go with it.
package geo

import (
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/solar-engine/internal/model"
)

// Region is a service area: a lng/lat bounding box, a fallback location used
// whenever geocoding cannot produce an in-region coordinate, and the postal
// prefixes that belong to it.
type Region struct {
	Code           string
	Name           string
	Bounds         *geom.Bounds
	Default        model.GeocodedLocation
	PostalPrefixes []string
}

// PEI is Prince Edward Island, the engine's home region.
var PEI = Region{
	Code:   "PE",
	Name:   "Prince Edward Island",
	Bounds: geom.NewBounds(geom.XY).Set(-64.50, 45.90, -61.90, 47.10),
	Default: model.GeocodedLocation{
		Latitude:         46.2382,
		Longitude:        -63.1311,
		FormattedAddress: "Charlottetown, PE, Canada",
	},
	PostalPrefixes: []string{"C0A", "C0B", "C1A", "C1B", "C1C", "C1E", "C1N"},
}

// Contains reports whether the coordinate lies inside the bounding box.
// Edges count as inside.
func (r Region) Contains(lat, lng float64) bool {
	return r.Bounds.OverlapsPoint(geom.XY, geom.Coord{lng, lat})
}

// DefaultLocation returns the region fallback tagged with reason.
func (r Region) DefaultLocation(reason string) model.GeocodedLocation {
	loc := r.Default
	loc.IsDefault = true
	loc.Reason = reason
	return loc
}

// RegionByCode looks up a supported region by its province code.
func RegionByCode(code string) (Region, bool) {
	if strings.EqualFold(strings.TrimSpace(code), PEI.Code) {
		return PEI, true
	}
	return Region{}, false
}
