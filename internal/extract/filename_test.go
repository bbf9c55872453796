package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferTimesFromFilename(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		interval  string
		wantStart string
		wantEnd   string
		wantOK    bool
	}{
		{
			name:      "date pair with dash",
			filename:  "ESACCI-SEAICE-L4-SICONC-19820101-20181231-fv3.0.tif",
			wantStart: "1982-01-01T00:00:00Z",
			wantEnd:   "2018-12-31T00:00:00Z",
			wantOK:    true,
		},
		{
			name:      "date pair with underscore",
			filename:  "/neodc/esacci/x/data_19820101_20181231_v1.tif",
			wantStart: "1982-01-01T00:00:00Z",
			wantEnd:   "2018-12-31T00:00:00Z",
			wantOK:    true,
		},
		{
			name:      "single date ends same day",
			filename:  "ESACCI-L3C_CLOUD-20030615-fv3.0.tif",
			wantStart: "2003-06-15T00:00:00Z",
			wantEnd:   "2003-06-15T23:59:59Z",
			wantOK:    true,
		},
		{
			name:      "single date with month interval",
			filename:  "ESACCI-L3C_CLOUD-20040210-fv3.0.tif",
			interval:  IntervalMonth,
			wantStart: "2004-02-10T00:00:00Z",
			wantEnd:   "2004-02-29T00:00:00Z",
			wantOK:    true,
		},
		{
			name:      "single date with monthly resolution",
			filename:  "ESACCI-LC-20150131-P1M-fv2.0.tif",
			wantStart: "2015-01-31T00:00:00Z",
			wantEnd:   "2015-02-27T23:59:59Z",
			wantOK:    true,
		},
		{
			name:      "single date with daily resolution",
			filename:  "ESACCI-LC-20150101-P5D-fv2.0.tif",
			wantStart: "2015-01-01T00:00:00Z",
			wantEnd:   "2015-01-05T23:59:59Z",
			wantOK:    true,
		},
		{
			name:      "year range",
			filename:  "ESACCI-BIOMASS-L4-AGB-CHANGE-2010-2018-fv4.0.tif",
			wantStart: "2010-01-01T00:00:00Z",
			wantEnd:   "2018-12-31T23:59:59Z",
			wantOK:    true,
		},
		{
			name:      "single year with yearly resolution",
			filename:  "ESACCI-BIOMASS-L4-AGB-MERGED-100m-2015-P1Y-fv4.0.tif",
			wantStart: "2015-01-01T00:00:00Z",
			wantEnd:   "2015-12-31T23:59:59Z",
			wantOK:    true,
		},
		{
			name:      "single year without resolution",
			filename:  "ESACCI-PERMAFROST_2003_fv3.0.tif",
			wantStart: "2003-01-01T00:00:00Z",
			wantEnd:   "2003-01-01T23:59:59Z",
			wantOK:    true,
		},
		{
			name:     "year at the start of the name is not delimited",
			filename: "2003_only.tif",
			wantOK:   false,
		},
		{
			name:     "no pattern",
			filename: "ESACCI-LANDCOVER-map.tif",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := InferTimesFromFilename(tt.filename, tt.interval)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestExtractVersion(t *testing.T) {
	assert.Equal(t, "fv4.0", ExtractVersion("ESACCI-BIOMASS-2015-fv4.0.tif"))
	assert.Equal(t, Unknown, ExtractVersion("ESACCI-BIOMASS-2015.tif"))
}
