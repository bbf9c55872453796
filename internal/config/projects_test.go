package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectReference = `{
  "facet_config": {"ignored": true},
  "ecv_labels": {"biomass": "Biomass"},
  "biomass": {
    "abstract": "Above-ground biomass maps",
    "ecv": {
      "slug": "above-ground-biomass",
      "temporal_coverage": {"min_date": "2007-01-01", "max_date": "2022-12-31"}
    }
  },
  "cloud": {
    "abstract": "Cloud properties",
    "ecv": {"slug": "cloud", "min_date": "1982-01-01", "max_date": "2016-12-31"}
  },
  "reccap2": {
    "abstract": "Regional carbon cycle assessment"
  }
}`

func TestLoadProjects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cci_ecv_config.json")
	require.NoError(t, os.WriteFile(path, []byte(projectReference), 0o644))

	registry, err := LoadProjects(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"biomass", "cloud", "reccap2"}, registry.Names())
	assert.Equal(t, 3, registry.Count())

	biomass := registry.Get("biomass")
	require.NotNil(t, biomass)
	assert.Equal(t, "biomass", biomass.Name)
	assert.Equal(t, "Above-ground biomass maps", biomass.Abstract)
	assert.Equal(t, "above_ground_biomass", biomass.CollectionID())

	start, end, ok := biomass.Interval()
	assert.True(t, ok)
	assert.Equal(t, "2007-01-01T00:00:00Z", start)
	assert.Equal(t, "2022-12-31T00:00:00Z", end)

	start, end, ok = registry.Get("cloud").Interval()
	assert.True(t, ok)
	assert.Equal(t, "1982-01-01T00:00:00Z", start)
	assert.Equal(t, "2016-12-31T00:00:00Z", end)

	reccap := registry.Get("reccap2")
	assert.Equal(t, "reccap2", reccap.CollectionID())
	_, _, ok = reccap.Interval()
	assert.False(t, ok)

	assert.Nil(t, registry.Get("facet_config"))
}

func TestLoadProjects_Missing(t *testing.T) {
	_, err := LoadProjects(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestProject_CollectionID(t *testing.T) {
	tests := []struct {
		name    string
		project Project
		want    string
	}{
		{"slug", Project{Name: "biomass", ECV: ECV{Slug: "above-ground-biomass"}}, "above_ground_biomass"},
		{"capitalised slug", Project{Name: "sst", ECV: ECV{Slug: "Sea-Surface-Temperature"}}, "sea_surface_temperature"},
		{"name fallback", Project{Name: "Sea-Ice"}, "sea_ice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.project.CollectionID())
		})
	}
}
