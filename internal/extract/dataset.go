package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
	"github.com/robert-malhotra/cci-stac-tools/pkg/geojson"
)

// Engine names the reader used to open an aggregation endpoint.
type Engine string

const (
	EngineKerchunk Engine = "kerchunk"
	EngineZarr     Engine = "zarr"
	EngineCFA      Engine = "CFA"
)

// EngineForEndpoint picks the engine from the endpoint extension.
func EngineForEndpoint(endpoint string) (Engine, error) {
	switch {
	case strings.Contains(endpoint, ".json"):
		return EngineKerchunk, nil
	case strings.Contains(endpoint, ".nca"):
		return EngineCFA, nil
	case strings.Contains(endpoint, ".zarr"):
		return EngineZarr, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedEngine, endpoint)
}

// Variable is one array of an opened dataset.
type Variable struct {
	Name  string
	Dims  []string
	Shape []int
	Attrs map[string]any
}

// Rank returns the number of dimensions of the variable.
func (v Variable) Rank() int {
	return len(v.Shape)
}

// DatasetMetadata is what a DatasetReader reports about an aggregation.
type DatasetMetadata struct {
	// Attrs are the global attributes.
	Attrs map[string]any
	// TimeMin and TimeMax are the time coordinate extrema, empty when the
	// reader cannot decode the coordinate.
	TimeMin string
	TimeMax string
	// Variables are sorted by name.
	Variables []Variable
	// Dims maps dimension names to sizes.
	Dims map[string]int
}

// Attr returns a global attribute as a string.
func (m *DatasetMetadata) Attr(key string) (string, bool) {
	v, ok := m.Attrs[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return fmt.Sprint(t), true
	}
}

// DatasetReader opens an aggregation endpoint with the given engine.
type DatasetReader interface {
	ReadDataset(ctx context.Context, endpoint string, engine Engine) (*DatasetMetadata, error)
}

// EngineReaders routes each engine to its own reader.
type EngineReaders map[Engine]DatasetReader

// ReadDataset implements DatasetReader.
func (r EngineReaders) ReadDataset(ctx context.Context, endpoint string, engine Engine) (*DatasetMetadata, error) {
	reader, ok := r[engine]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEngine, engine)
	}
	return reader.ReadDataset(ctx, endpoint, engine)
}

// FromDataset extracts Info from an aggregation endpoint.
func (e *Extractor) FromDataset(ctx context.Context, endpoint string, engine Engine) (*Info, *DatasetMetadata, error) {
	if e.datasets == nil {
		return nil, nil, fmt.Errorf("%w: no dataset reader configured", ErrUnsupportedEngine)
	}

	md, err := e.datasets.ReadDataset(ctx, endpoint, engine)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s with %s: %w", endpoint, engine, err)
	}

	info := newInfo()
	info.Aggregation = true
	info.Format = string(engine)

	start, end := md.TimeMin, md.TimeMax
	if start == "" {
		start, _ = md.Attr("time_coverage_start")
	}
	if end == "" {
		end, _ = md.Attr("time_coverage_end")
	}
	if start, err = parseDatasetTime(start); err != nil {
		return nil, nil, fmt.Errorf("%w: temporal: %v", ErrInsufficientMetadata, err)
	}
	if end, err = parseDatasetTime(end); err != nil {
		return nil, nil, fmt.Errorf("%w: temporal: %v", ErrInsufficientMetadata, err)
	}
	info.StartDatetime = start
	info.EndDatetime = end

	attrs := make(map[string]string, 4)
	for _, key := range []string{"geospatial_lon_min", "geospatial_lat_min", "geospatial_lon_max", "geospatial_lat_max"} {
		if v, ok := md.Attr(key); ok {
			attrs[key] = v
		}
	}
	bbox, ok := tagBBox(attrs)
	if !ok {
		return nil, nil, fmt.Errorf("%w: spatial", ErrInsufficientMetadata)
	}
	info.BBox = bbox
	if !geojson.ValidBBox(bbox) {
		e.logger.WarnContext(ctx, "bbox outside valid ranges", slog.String("endpoint", endpoint), slog.Any("bbox", bbox))
		info.markIncomplete()
	}

	if v, ok := md.Attr("product_version"); ok {
		info.Version = v
	} else {
		info.Version = Unknown
	}
	if p, ok := md.Attr("platform"); ok {
		info.Platforms = []string{p}
	} else {
		info.Platforms = []string{Unknown}
	}

	info.Properties["proj:transform"] = nil
	info.Properties["proj:epsg"] = 4326
	info.Properties["proj:shape"] = []int{md.Dims["time"], md.Dims["lat"], md.Dims["lon"]}

	return info, md, nil
}

// datasetTimeLayouts are accepted for time_coverage attributes.
var datasetTimeLayouts = []string{
	time.RFC3339,
	stac.TimestampLayout,
	tagTimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
}

func parseDatasetTime(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("no time information")
	}
	for _, layout := range datasetTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(stac.TimestampLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognised time %q", raw)
}
