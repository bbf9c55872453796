package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zmetadata = `{
  "zarr_consolidated_format": 1,
  "metadata": {
    ".zattrs": {
      "time_coverage_start": "19970901T000000Z",
      "time_coverage_end": "20201231T000000Z",
      "geospatial_lon_min": -180.0,
      "geospatial_lon_max": 180.0,
      "geospatial_lat_min": -90.0,
      "geospatial_lat_max": 90.0,
      "product_version": "6.0",
      "platform": "SeaWiFS",
      "title": "Ocean colour",
      "summary": "Chlorophyll-a",
      "keywords": "EARTH SCIENCE > OCEANS > OCEAN CHEMISTRY"
    },
    "chlor_a/.zarray": {"shape": [280, 180, 360]},
    "chlor_a/.zattrs": {"_ARRAY_DIMENSIONS": ["time", "lat", "lon"], "long_name": "Chlorophyll-a concentration"},
    "lat/.zarray": {"shape": [180]},
    "lat/.zattrs": {"_ARRAY_DIMENSIONS": ["lat"]},
    "lon/.zarray": {"shape": [360]},
    "lon/.zattrs": {"_ARRAY_DIMENSIONS": ["lon"]},
    "time/.zarray": {"shape": [280]},
    "time/.zattrs": {"_ARRAY_DIMENSIONS": ["time"]}
  }
}`

func TestZarrDatasetReader_Consolidated(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/oc.zarr/.zmetadata", []byte(zmetadata), 0o644))

	e := NewExtractor(nil, NewZarrDatasetReader(nil, fs))

	info, md, err := e.FromDataset(context.Background(), "/data/oc.zarr", EngineZarr)
	require.NoError(t, err)

	assert.True(t, info.Aggregation)
	assert.Equal(t, "1997-09-01T00:00:00Z", info.StartDatetime)
	assert.Equal(t, "2020-12-31T00:00:00Z", info.EndDatetime)
	assert.Equal(t, [4]float64{-180, -90, 180, 90}, info.BBox)
	assert.Equal(t, "6.0", info.Version)
	assert.Equal(t, []string{"SeaWiFS"}, info.Platforms)
	assert.Equal(t, "zarr", info.Format)
	assert.Equal(t, 4326, info.Properties["proj:epsg"])
	assert.Equal(t, []int{280, 180, 360}, info.Properties["proj:shape"])

	require.Len(t, md.Variables, 4)
	assert.Equal(t, "chlor_a", md.Variables[0].Name)
	assert.Equal(t, 3, md.Variables[0].Rank())
	assert.Equal(t, []string{"time", "lat", "lon"}, md.Variables[0].Dims)
	assert.Equal(t, "Chlorophyll-a concentration", md.Variables[0].Attrs["long_name"])
	assert.NotContains(t, md.Variables[0].Attrs, "_ARRAY_DIMENSIONS")
}

func TestZarrDatasetReader_KerchunkOverHTTP(t *testing.T) {
	refs := `{
	  "version": 1,
	  "refs": {
	    ".zgroup": "{\"zarr_format\": 2}",
	    ".zattrs": "{\"time_coverage_start\": \"2000-01-01T00:00:00Z\", \"time_coverage_end\": \"2000-12-31T00:00:00Z\", \"geospatial_lon_min\": \"0\", \"geospatial_lon_max\": \"10\", \"geospatial_lat_min\": \"0\", \"geospatial_lat_max\": \"5\"}",
	    "sm/.zarray": "{\"shape\": [12, 5, 10]}",
	    "sm/.zattrs": "{\"_ARRAY_DIMENSIONS\": [\"time\", \"lat\", \"lon\"]}",
	    "sm/0.0.0": ["s3://bucket/file.nc", 100, 200]
	  }
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refs/sm.json", r.URL.Path)
		_, _ = w.Write([]byte(refs))
	}))
	defer server.Close()

	e := NewExtractor(nil, EngineReaders{EngineKerchunk: NewZarrDatasetReader(server.Client(), nil)})

	info, _, err := e.FromDataset(context.Background(), server.URL+"/refs/sm.json", EngineKerchunk)
	require.NoError(t, err)

	assert.Equal(t, [4]float64{0, 0, 10, 5}, info.BBox)
	assert.Equal(t, Unknown, info.Version)
	assert.Equal(t, []int{12, 5, 10}, info.Properties["proj:shape"])
}

func TestFromDataset_MissingAttributes(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/d.zarr/.zmetadata",
		[]byte(`{"metadata": {".zattrs": {"time_coverage_start": "2000-01-01", "time_coverage_end": "2000-02-01"}}}`), 0o644))

	e := NewExtractor(nil, NewZarrDatasetReader(nil, fs))
	_, _, err := e.FromDataset(context.Background(), "/d.zarr", EngineZarr)
	assert.ErrorIs(t, err, ErrInsufficientMetadata)
}

func TestFromDataset_OutOfRangeBBox(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/d.zarr/.zmetadata", []byte(`{"metadata": {".zattrs": {
		"time_coverage_start": "2000-01-01", "time_coverage_end": "2000-02-01",
		"geospatial_lon_min": 0, "geospatial_lon_max": 360,
		"geospatial_lat_min": -90, "geospatial_lat_max": 90
	}}}`), 0o644))

	e := NewExtractor(nil, NewZarrDatasetReader(nil, fs))
	info, _, err := e.FromDataset(context.Background(), "/d.zarr", EngineZarr)
	require.NoError(t, err)
	assert.Equal(t, [4]float64{0, -90, 360, 90}, info.BBox)
	assert.True(t, info.Incomplete)
	assert.Equal(t, true, info.Properties["incomplete"])
}

func TestEngineForEndpoint(t *testing.T) {
	for endpoint, want := range map[string]Engine{
		"https://x/refs/a.json": EngineKerchunk,
		"/badc/a.nca":           EngineCFA,
		"s3://bucket/a.zarr":    EngineZarr,
	} {
		got, err := EngineForEndpoint(endpoint)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := EngineForEndpoint("/x/a.nc")
	assert.ErrorIs(t, err, ErrUnsupportedEngine)

	_, _, err = NewExtractor(nil, EngineReaders{}).FromDataset(context.Background(), "/a.nca", EngineCFA)
	assert.ErrorIs(t, err, ErrUnsupportedEngine)
}

const gdalinfoCFA = `{
  "size": [360, 180],
  "metadata": {"": {
    "NC_GLOBAL#time_coverage_start": "20000101T000000Z",
    "NC_GLOBAL#time_coverage_end": "20001231T000000Z",
    "NC_GLOBAL#geospatial_lon_min": "-180",
    "NC_GLOBAL#geospatial_lon_max": "180",
    "NC_GLOBAL#geospatial_lat_min": "-90",
    "NC_GLOBAL#geospatial_lat_max": "90",
    "NC_GLOBAL#product_version": "3.1",
    "NETCDF_DIM_time": "12",
    "NETCDF_DIM_time_DEF": "{12,6}",
    "lwp#long_name": "liquid water path",
    "lat#units": "degrees_north"
  }},
  "bands": [{"band": 1}, {"band": 2}]
}`

func TestGDALReader_CFA(t *testing.T) {
	var gotArgs []string
	reader := NewGDALReader().WithRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(gdalinfoCFA), nil
	})
	e := NewExtractor(nil, EngineReaders{EngineCFA: reader})

	info, md, err := e.FromDataset(context.Background(), "/badc/cloud.nca", EngineCFA)
	require.NoError(t, err)

	assert.Equal(t, []string{"gdalinfo", "-json", "/badc/cloud.nca"}, gotArgs)
	assert.Equal(t, "2000-01-01T00:00:00Z", info.StartDatetime)
	assert.Equal(t, "3.1", info.Version)
	assert.Equal(t, []int{12, 180, 360}, info.Properties["proj:shape"])

	require.Len(t, md.Variables, 2)
	assert.Equal(t, "lat", md.Variables[0].Name)
	assert.Equal(t, 1, md.Variables[0].Rank())
	assert.Equal(t, "lwp", md.Variables[1].Name)
	assert.Equal(t, 3, md.Variables[1].Rank())
}

const gdalinfoTIF = `{
  "size": [3050, 3025],
  "geoTransform": [-10.5, 0.01, 0.0, 60.25, 0.0, -0.01],
  "coordinateSystem": {"wkt": "GEOGCRS[\"WGS 84\",DATUM[\"World Geodetic System 1984\",ELLIPSOID[\"WGS 84\",6378137,298.257223563,ID[\"EPSG\",7030]]],ID[\"EPSG\",4326]]"},
  "metadata": {"": {"product_version": "4.0"}},
  "wgs84Extent": {"type": "Polygon", "coordinates": [[[-10.5, 60.25], [-10.5, 30.0], [20.0, 30.0], [20.0, 60.25], [-10.5, 60.25]]]}
}`

func TestGDALReader_Raster(t *testing.T) {
	reader := NewGDALReader().WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte(gdalinfoTIF), nil
	})

	md, err := reader.ReadRaster(context.Background(), "/x/a.tif")
	require.NoError(t, err)

	assert.Equal(t, []float64{0.01, 0, -10.5, 0, -0.01, 60.25}, md.Transform)
	assert.Equal(t, 4326, md.EPSG)
	assert.Equal(t, []int{3025, 3050}, md.Shape)
	require.NotNil(t, md.Bounds)
	assert.Equal(t, [4]float64{-10.5, 30, 20, 60.25}, *md.Bounds)
	assert.Equal(t, "4.0", md.Tags["product_version"])
}
