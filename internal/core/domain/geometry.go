package domain

import (
	"fmt"
	"strings"
)

// DefaultSRS is the projected coordinate system of the boundary files
// (HTRS96/TM). Reprojection is out of scope; coordinates pass through.
const DefaultSRS = "EPSG:3765"

// Coordinate is a 2D point in the projected system, easting and northing
// in meters.
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%g, %g)", c.X, c.Y)
}

// ParcelGeometry is one parcel boundary parsed from a GIS file. The
// graphical area comes from the GIS layer and may differ from the
// registry's integer area; that divergence is expected. The boundary ring
// is stored exactly as published and is not guaranteed closed.
type ParcelGeometry struct {
	CesticaID          string       `json:"cestica_id"`
	ParcelNumber       string       `json:"parcel_number"`
	GraphicArea        float64      `json:"graphic_area"`
	MunicipalityRegNum string       `json:"municipality_reg_num"`
	Coordinates        []Coordinate `json:"coordinates"`
	SRSName            string       `json:"srs_name"`
}

func (g *ParcelGeometry) CoordinateCount() int {
	return len(g.Coordinates)
}

// Bounds returns the bounding box (minX, minY, maxX, maxY), zeros for an
// empty boundary.
func (g *ParcelGeometry) Bounds() (float64, float64, float64, float64) {
	if len(g.Coordinates) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY := g.Coordinates[0].X, g.Coordinates[0].Y
	maxX, maxY := minX, minY
	for _, c := range g.Coordinates[1:] {
		if c.X < minX {
			minX = c.X
		}
		if c.X > maxX {
			maxX = c.X
		}
		if c.Y < minY {
			minY = c.Y
		}
		if c.Y > maxY {
			maxY = c.Y
		}
	}
	return minX, minY, maxX, maxY
}

// Center returns the midpoint of the bounding box.
func (g *ParcelGeometry) Center() Coordinate {
	if len(g.Coordinates) == 0 {
		return Coordinate{}
	}
	minX, minY, maxX, maxY := g.Bounds()
	return Coordinate{X: (minX + maxX) / 2, Y: (minY + maxY) / 2}
}

// ToWKT renders the boundary as a WKT POLYGON. The ring is closed here
// when the source leaves it open, since WKT consumers require closure.
func (g *ParcelGeometry) ToWKT() string {
	coords := g.closedRing()
	parts := make([]string, 0, len(coords))
	for _, c := range coords {
		parts = append(parts, fmt.Sprintf("%g %g", c.X, c.Y))
	}
	return "POLYGON((" + strings.Join(parts, ", ") + "))"
}

// GeoJSONCoordinates returns the closed outer ring as nested arrays ready
// for a GeoJSON Polygon "coordinates" member. Values stay in the projected
// system; no reprojection happens here.
func (g *ParcelGeometry) GeoJSONCoordinates() [][][2]float64 {
	coords := g.closedRing()
	ring := make([][2]float64, 0, len(coords))
	for _, c := range coords {
		ring = append(ring, [2]float64{c.X, c.Y})
	}
	return [][][2]float64{ring}
}

func (g *ParcelGeometry) closedRing() []Coordinate {
	if len(g.Coordinates) < 3 {
		return g.Coordinates
	}
	first, last := g.Coordinates[0], g.Coordinates[len(g.Coordinates)-1]
	if first == last {
		return g.Coordinates
	}
	return append(append([]Coordinate(nil), g.Coordinates...), first)
}
