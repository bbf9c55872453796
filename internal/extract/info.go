// Package extract turns heterogeneous archive metadata (search index hits,
// GeoTIFF tags, aggregation endpoints and file names) into a canonical Info
// value from which STAC Items are built.
package extract

import (
	"github.com/robert-malhotra/cci-stac-tools/pkg/geojson"
)

// SentinelTime replaces timestamps that could not be determined.
const SentinelTime = "0001-01-01T00:00:00Z"

// Unknown is used for version and platform values that are absent.
const Unknown = "Unknown"

// Info is the canonical metadata extracted from one source record.
type Info struct {
	StartDatetime string
	EndDatetime   string
	BBox          [4]float64
	Version       any
	Platforms     any
	// DRS is empty when the source carries no DRS identifier.
	DRS         string
	Format      string
	Properties  map[string]any
	Incomplete  bool
	Aggregation bool
}

// GeoType returns "Point" for a degenerate bbox and "Polygon" otherwise.
func (i *Info) GeoType() string {
	if geojson.IsDegenerate(i.BBox) {
		return geojson.TypePoint
	}
	return geojson.TypePolygon
}

// Geometry returns the GeoJSON geometry of the bbox.
func (i *Info) Geometry() *geojson.Geometry {
	return geojson.FromBBox(i.BBox)
}

// markIncomplete flags the record and records it in the properties.
func (i *Info) markIncomplete() {
	i.Incomplete = true
	if i.Properties == nil {
		i.Properties = make(map[string]any)
	}
	i.Properties["incomplete"] = true
}

func newInfo() *Info {
	return &Info{Properties: make(map[string]any)}
}

// unwrap returns the only element of a single-element list, or v unchanged.
func unwrap(v any) any {
	switch t := v.(type) {
	case []any:
		if len(t) == 1 {
			return t[0]
		}
	case []string:
		if len(t) == 1 {
			return t[0]
		}
	}
	return v
}
