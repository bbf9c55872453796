package extract

import (
	"encoding/json"
	"strings"

	"github.com/robert-malhotra/cci-stac-tools/internal/search"
	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
	"github.com/robert-malhotra/cci-stac-tools/pkg/geojson"
)

// openSearchExts lists the extensions whose metadata comes solely from the
// search index record.
var openSearchExts = map[string]bool{
	".cpg": true, ".csv": true, ".dat": true, ".dbf": true, ".dsr": true,
	".geojson": true, ".gz": true, ".jpg": true, ".kml": true, ".lyr": true,
	".nc": true, ".png": true, ".prj": true, ".qpf": true, ".qml": true,
	".qpj": true, ".sbn": true, ".sbx": true, ".shp": true, ".shx": true,
	".tar": true, ".xml": true, ".zip": true,
}

// IsOpenSearchExt reports whether ext is handled by FromOpenSearch.
func IsOpenSearchExt(ext string) bool {
	return openSearchExts[ext]
}

// IsRasterExt reports whether ext is a GeoTIFF handled by FromRaster.
func IsRasterExt(ext string) bool {
	return ext == ".tif" || ext == ".TIF"
}

// spatialEnvelope is the indexed envelope: coordinates [[w, n], [e, s]].
type spatialEnvelope struct {
	Coordinates *struct {
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"coordinates"`
}

type temporalRange struct {
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

// FromOpenSearch extracts Info from a search index file record. It never
// fails: missing spatial or temporal data is replaced by the global bbox or
// the sentinel timestamp and the record is flagged incomplete. An envelope
// outside the valid coordinate ranges is kept but flagged incomplete.
func FromOpenSearch(rec *search.FileRecord) *Info {
	info := newInfo()

	if bbox, ok := parseEnvelope(rec.Info.Spatial); ok {
		info.BBox = bbox
	} else {
		info.BBox = geojson.GlobalBBox
		info.Incomplete = true
	}

	if start, end, ok := parseTemporal(rec.Info.Temporal); ok {
		info.StartDatetime = start
		info.EndDatetime = end
	} else {
		info.StartDatetime = SentinelTime
		info.EndDatetime = SentinelTime
		info.Incomplete = true
	}

	facets := rec.Projects.Opensearch
	if facets == nil {
		info.Version = Unknown
		info.Platforms = Unknown
		info.Incomplete = true
	} else {
		info.Version = facets["productVersion"]
		info.Platforms = facets["platform"]
		info.DRS = rec.Facet("drsId")
		for k, v := range facets {
			info.Properties[k] = unwrap(v)
		}
	}

	info.Format = rec.Info.Format
	if info.Format == "" {
		info.Format = strings.ToUpper(strings.TrimPrefix(rec.Ext(), "."))
	}
	info.Format = strings.ReplaceAll(info.Format, " ", "_")

	if !geojson.ValidBBox(info.BBox) {
		info.Incomplete = true
	}
	if info.Incomplete {
		info.markIncomplete()
	}
	return info
}

func parseEnvelope(raw json.RawMessage) ([4]float64, bool) {
	var bbox [4]float64
	if len(raw) == 0 {
		return bbox, false
	}
	var env spatialEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Coordinates == nil {
		return bbox, false
	}
	c := env.Coordinates.Coordinates
	if len(c) < 2 || len(c[0]) < 2 || len(c[1]) < 2 {
		return bbox, false
	}
	w, n := c[0][0], c[0][1]
	e, s := c[1][0], c[1][1]
	return [4]float64{w, s, e, n}, true
}

func parseTemporal(raw json.RawMessage) (string, string, bool) {
	if len(raw) == 0 {
		return "", "", false
	}
	var tr temporalRange
	if err := json.Unmarshal(raw, &tr); err != nil || tr.StartTime == nil || tr.EndTime == nil {
		return "", "", false
	}
	return stac.NormalizeTimestamp(*tr.StartTime), stac.NormalizeTimestamp(*tr.EndTime), true
}
