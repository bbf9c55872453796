package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/robert-malhotra/cci-stac-tools/pkg/geojson"
)

// CommandRunner executes an external program and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

var epsgIDPattern = regexp.MustCompile(`ID\["EPSG",([0-9]+)\]`)

// netCDF global attributes are reported with this prefix by GDAL.
const ncGlobalPrefix = "NC_GLOBAL#"

// GDALReader introspects rasters and CFA aggregations through
// `gdalinfo -json`.
type GDALReader struct {
	binary string
	run    CommandRunner
	logger *slog.Logger
}

// NewGDALReader creates a reader using the gdalinfo found on PATH.
func NewGDALReader() *GDALReader {
	return &GDALReader{
		binary: "gdalinfo",
		run:    ExecRunner,
		logger: slog.Default(),
	}
}

// WithRunner replaces the command runner.
func (g *GDALReader) WithRunner(run CommandRunner) *GDALReader {
	g.run = run
	return g
}

// WithBinary sets the gdalinfo executable.
func (g *GDALReader) WithBinary(path string) *GDALReader {
	g.binary = path
	return g
}

// WithLogger sets a custom logger for the reader.
func (g *GDALReader) WithLogger(logger *slog.Logger) *GDALReader {
	g.logger = logger
	return g
}

type gdalInfo struct {
	Size             []int                        `json:"size"`
	GeoTransform     []float64                    `json:"geoTransform"`
	CoordinateSystem *gdalCRS                     `json:"coordinateSystem"`
	Metadata         map[string]map[string]string `json:"metadata"`
	WGS84Extent      *geojson.Geometry            `json:"wgs84Extent"`
	STAC             *gdalSTAC                    `json:"stac"`
	Bands            []gdalBand                   `json:"bands"`
}

type gdalCRS struct {
	WKT string `json:"wkt"`
}

type gdalSTAC struct {
	EPSG *int `json:"proj:epsg"`
}

type gdalBand struct {
	Band        int    `json:"band"`
	Description string `json:"description"`
}

func (g *GDALReader) info(ctx context.Context, path string) (*gdalInfo, error) {
	out, err := g.run(ctx, g.binary, "-json", path)
	if err != nil {
		return nil, fmt.Errorf("%s failed for %s: %w", g.binary, path, err)
	}
	var info gdalInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("failed to decode %s output: %w", g.binary, err)
	}
	g.logger.Debug("gdalinfo", slog.String("path", path), slog.Any("size", info.Size))
	return &info, nil
}

// ReadRaster implements RasterReader.
func (g *GDALReader) ReadRaster(ctx context.Context, path string) (*RasterMetadata, error) {
	info, err := g.info(ctx, path)
	if err != nil {
		return nil, err
	}

	md := &RasterMetadata{Tags: info.Metadata[""]}

	// GDAL order is [x0, dx, rx, y0, ry, dy]; the affine order is
	// [dx, rx, x0, ry, dy, y0].
	if gt := info.GeoTransform; len(gt) == 6 {
		md.Transform = []float64{gt[1], gt[2], gt[0], gt[4], gt[5], gt[3]}
	}

	switch {
	case info.STAC != nil && info.STAC.EPSG != nil:
		md.EPSG = *info.STAC.EPSG
	case info.CoordinateSystem != nil:
		md.EPSG = epsgFromWKT(info.CoordinateSystem.WKT)
	}

	if len(info.Size) == 2 {
		md.Shape = []int{info.Size[1], info.Size[0]}
	}

	if info.WGS84Extent != nil {
		if b, err := geojson.ComputeBBox(info.WGS84Extent); err == nil && len(b) == 4 {
			md.Bounds = &[4]float64{b[0], b[1], b[2], b[3]}
		}
	}
	return md, nil
}

// ReadDataset implements DatasetReader for CFA aggregations opened through
// the netCDF driver.
func (g *GDALReader) ReadDataset(ctx context.Context, endpoint string, engine Engine) (*DatasetMetadata, error) {
	if engine != EngineCFA {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEngine, engine)
	}
	info, err := g.info(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	md := &DatasetMetadata{
		Attrs: map[string]any{},
		Dims:  map[string]int{},
	}

	vars := map[string]*Variable{}
	for key, value := range info.Metadata[""] {
		if attr, ok := strings.CutPrefix(key, ncGlobalPrefix); ok {
			md.Attrs[attr] = value
			continue
		}
		name, attr, ok := strings.Cut(key, "#")
		if !ok {
			continue
		}
		v, ok := vars[name]
		if !ok {
			v = &Variable{Name: name, Attrs: map[string]any{}}
			vars[name] = v
		}
		v.Attrs[attr] = value
	}

	for key, value := range info.Metadata[""] {
		dim, ok := strings.CutPrefix(key, "NETCDF_DIM_")
		if !ok || strings.HasSuffix(dim, "_DEF") || strings.HasSuffix(dim, "_VALUES") {
			continue
		}
		if n, err := strconv.Atoi(value); err == nil {
			md.Dims[strings.ToLower(dim)] = n
		}
	}
	if len(info.Size) == 2 {
		md.Dims["lon"] = info.Size[0]
		md.Dims["lat"] = info.Size[1]
	}
	if _, ok := md.Dims["time"]; !ok && len(info.Bands) > 0 {
		md.Dims["time"] = len(info.Bands)
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := vars[name]
		if n, ok := md.Dims[name]; ok {
			v.Dims = []string{name}
			v.Shape = []int{n}
		} else {
			v.Dims = []string{"time", "lat", "lon"}
			v.Shape = []int{md.Dims["time"], md.Dims["lat"], md.Dims["lon"]}
		}
		md.Variables = append(md.Variables, *v)
	}
	return md, nil
}

// epsgFromWKT returns the last EPSG identifier of a WKT2 string, which is
// the one of the outermost CRS.
func epsgFromWKT(wkt string) int {
	matches := epsgIDPattern.FindAllStringSubmatch(wkt, -1)
	if len(matches) == 0 {
		return 0
	}
	n, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return 0
	}
	return n
}
