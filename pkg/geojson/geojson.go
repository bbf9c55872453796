// Package geojson provides the small set of GeoJSON geometry helpers needed to
// describe archive files and collections by their bounding boxes.
package geojson

import (
	"encoding/json"
	"fmt"
	"math"
)

// Geometry type names.
const (
	TypePoint   = "Point"
	TypePolygon = "Polygon"
)

// GlobalBBox is the whole-earth bounding box [west, south, east, north].
var GlobalBBox = [4]float64{-180, -90, 180, 90}

// Geometry represents a GeoJSON geometry object.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Point returns the coordinates as a Point [lon, lat].
// Returns error if geometry is not a Point.
func (g *Geometry) Point() ([]float64, error) {
	if g.Type != TypePoint {
		return nil, fmt.Errorf("geometry is not a Point, got %s", g.Type)
	}
	var coords []float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Point coordinates: %w", err)
	}
	if len(coords) < 2 {
		return nil, fmt.Errorf("invalid Point coordinates: expected at least 2 values, got %d", len(coords))
	}
	return coords, nil
}

// Polygon returns the coordinates as a Polygon [][][lon, lat].
// Returns error if geometry is not a Polygon.
func (g *Geometry) Polygon() ([][][]float64, error) {
	if g.Type != TypePolygon {
		return nil, fmt.Errorf("geometry is not a Polygon, got %s", g.Type)
	}
	var coords [][][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Polygon coordinates: %w", err)
	}
	return coords, nil
}

// ComputeBBox returns [west, south, east, north] for a Point or Polygon.
func ComputeBBox(g *Geometry) ([]float64, error) {
	if g == nil {
		return nil, fmt.Errorf("geometry is nil")
	}

	switch g.Type {
	case TypePoint:
		p, err := g.Point()
		if err != nil {
			return nil, err
		}
		return []float64{p[0], p[1], p[0], p[1]}, nil

	case TypePolygon:
		rings, err := g.Polygon()
		if err != nil {
			return nil, err
		}
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, ring := range rings {
			for _, c := range ring {
				if len(c) < 2 {
					continue
				}
				minX = math.Min(minX, c[0])
				maxX = math.Max(maxX, c[0])
				minY = math.Min(minY, c[1])
				maxY = math.Max(maxY, c[1])
			}
		}
		if math.IsInf(minX, 1) {
			return nil, fmt.Errorf("polygon has no coordinates")
		}
		return []float64{minX, minY, maxX, maxY}, nil

	default:
		return nil, fmt.Errorf("unsupported geometry type: %s", g.Type)
	}
}

// NewPoint creates a Point geometry.
func NewPoint(lon, lat float64) *Geometry {
	coords, _ := json.Marshal([]float64{lon, lat})
	return &Geometry{Type: TypePoint, Coordinates: coords}
}

// NewPolygonFromBBox creates a Polygon geometry from a bounding box.
// The bbox should be [west, south, east, north].
func NewPolygonFromBBox(bbox []float64) (*Geometry, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values [west, south, east, north], got %d", len(bbox))
	}

	west, south, east, north := bbox[0], bbox[1], bbox[2], bbox[3]

	coords := [][][]float64{
		{
			{west, south},
			{east, south},
			{east, north},
			{west, north},
			{west, south},
		},
	}

	coordsJSON, err := json.Marshal(coords)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal polygon coordinates: %w", err)
	}

	return &Geometry{
		Type:        TypePolygon,
		Coordinates: coordsJSON,
	}, nil
}

// IsDegenerate reports whether a bbox collapses to a single point.
func IsDegenerate(bbox [4]float64) bool {
	return bbox[0] == bbox[2] && bbox[1] == bbox[3]
}

// FromBBox returns the geometry describing bbox: a Point when the box is
// degenerate, otherwise a closed five-vertex Polygon.
func FromBBox(bbox [4]float64) *Geometry {
	if IsDegenerate(bbox) {
		return NewPoint(bbox[0], bbox[1])
	}
	// Four values always produce a polygon.
	g, _ := NewPolygonFromBBox(bbox[:])
	return g
}

// ValidBBox reports whether bbox satisfies -180<=w<=e<=180 and -90<=s<=n<=90.
func ValidBBox(bbox [4]float64) bool {
	w, s, e, n := bbox[0], bbox[1], bbox[2], bbox[3]
	return -180 <= w && w <= e && e <= 180 && -90 <= s && s <= n && n <= 90
}
