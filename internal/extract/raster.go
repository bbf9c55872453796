package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
	"github.com/robert-malhotra/cci-stac-tools/pkg/geojson"
)

// tagTimeLayout is the layout of time_coverage_* tags in CCI GeoTIFFs.
const tagTimeLayout = "20060102T150405Z"

// FormatGeoTIFF is the file_type of raster-derived items.
const FormatGeoTIFF = "GeoTIFF"

// RasterMetadata is what a RasterReader reports about one raster file.
type RasterMetadata struct {
	// Tags are the dataset-level metadata tags.
	Tags map[string]string
	// Transform is the six-term affine geotransform, nil when unknown.
	Transform []float64
	// EPSG is the native CRS code, 0 when unknown.
	EPSG int
	// Shape is [height, width], nil when unknown.
	Shape []int
	// Bounds is the raster footprint in EPSG:4326, nil when unknown.
	Bounds *[4]float64
}

// RasterReader opens a raster file and returns its metadata.
type RasterReader interface {
	ReadRaster(ctx context.Context, path string) (*RasterMetadata, error)
}

// RasterOptions tune FromRaster fallbacks.
type RasterOptions struct {
	// StartTime and EndTime replace absent time_coverage tags. Same layout
	// as the tags.
	StartTime string
	EndTime   string
	// Interval is passed to filename inference.
	Interval string
	// AssumeGlobal uses the global bbox when no spatial information exists.
	AssumeGlobal bool
	// FillIncomplete substitutes sentinels instead of failing.
	FillIncomplete bool
	// OpenEO requires projection metadata unless FillIncomplete is set.
	OpenEO bool
}

// Extractor dispatches records to the raster and dataset readers.
type Extractor struct {
	raster   RasterReader
	datasets DatasetReader
	logger   *slog.Logger
}

// NewExtractor creates an Extractor. Either reader may be nil when the
// corresponding formats are not processed.
func NewExtractor(raster RasterReader, datasets DatasetReader) *Extractor {
	return &Extractor{
		raster:   raster,
		datasets: datasets,
		logger:   slog.Default(),
	}
}

// WithLogger sets a custom logger for the extractor.
func (e *Extractor) WithLogger(logger *slog.Logger) *Extractor {
	e.logger = logger
	return e
}

// FromRaster extracts Info from a GeoTIFF.
func (e *Extractor) FromRaster(ctx context.Context, path string, opts RasterOptions) (*Info, error) {
	if e.raster == nil {
		return nil, fmt.Errorf("%w: no raster reader configured", ErrUnsupportedFormat)
	}

	md, err := e.raster.ReadRaster(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read raster %s: %w", path, err)
	}
	if md.Tags == nil {
		md.Tags = map[string]string{}
	}

	info := newInfo()
	info.Format = FormatGeoTIFF

	start, end, ok := rasterTimes(md.Tags, opts)
	if !ok {
		start, end, ok = InferTimesFromFilename(path, opts.Interval)
	}
	if !ok {
		if !opts.FillIncomplete {
			return nil, fmt.Errorf("%w: temporal", ErrInsufficientMetadata)
		}
		e.logger.Debug("no temporal information, using sentinel", slog.String("path", path))
		start, end = SentinelTime, SentinelTime
		info.Incomplete = true
	}
	info.StartDatetime = start
	info.EndDatetime = end

	if v, ok := md.Tags["product_version"]; ok {
		info.Version = v
	} else {
		info.Version = ExtractVersion(path)
	}
	if p, ok := md.Tags["platform"]; ok {
		info.Platforms = p
	} else {
		info.Platforms = Unknown
	}

	switch bbox, ok := tagBBox(md.Tags); {
	case ok:
		info.BBox = bbox
	case md.Bounds != nil:
		info.BBox = *md.Bounds
	case opts.AssumeGlobal || opts.FillIncomplete:
		info.BBox = geojson.GlobalBBox
	default:
		return nil, fmt.Errorf("%w: spatial", ErrInsufficientMetadata)
	}
	if !geojson.ValidBBox(info.BBox) {
		e.logger.Warn("bbox outside valid ranges", slog.String("path", path), slog.Any("bbox", info.BBox))
		info.Incomplete = true
	}

	if len(md.Transform) == 6 && md.EPSG != 0 && len(md.Shape) == 2 {
		info.Properties["proj:transform"] = md.Transform
		info.Properties["proj:epsg"] = md.EPSG
		info.Properties["proj:shape"] = md.Shape
	} else {
		if opts.OpenEO && !opts.FillIncomplete {
			return nil, fmt.Errorf("%w: projection (transform, epsg, shape)", ErrInsufficientMetadata)
		}
		info.Incomplete = true
		info.Properties["proj:transform"] = nil
		info.Properties["proj:epsg"] = nil
		info.Properties["proj:shape"] = nil
	}

	if info.Incomplete {
		info.markIncomplete()
	}
	return info, nil
}

// rasterTimes reads the time_coverage tags, substituting the overrides for
// absent tags. Both ends must parse.
func rasterTimes(tags map[string]string, opts RasterOptions) (string, string, bool) {
	startRaw, ok := tags["time_coverage_start"]
	if !ok {
		startRaw = opts.StartTime
	}
	endRaw, ok := tags["time_coverage_end"]
	if !ok {
		endRaw = opts.EndTime
	}
	s, err := time.Parse(tagTimeLayout, startRaw)
	if err != nil {
		return "", "", false
	}
	en, err := time.Parse(tagTimeLayout, endRaw)
	if err != nil {
		return "", "", false
	}
	return s.Format(stac.TimestampLayout), en.Format(stac.TimestampLayout), true
}

// tagBBox reads the geospatial_lon/lat_min/max attributes.
func tagBBox(attrs map[string]string) ([4]float64, bool) {
	var bbox [4]float64
	for i, key := range []string{
		"geospatial_lon_min", "geospatial_lat_min",
		"geospatial_lon_max", "geospatial_lat_max",
	} {
		raw, ok := attrs[key]
		if !ok {
			return bbox, false
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return bbox, false
		}
		bbox[i] = v
	}
	return bbox, true
}
