package config

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
)

const biomassCollection = `{
  "type": "Collection",
  "stac_version": "1.1.0",
  "id": "biomass",
  "title": "Biomass",
  "description": "Above-ground biomass",
  "license": "other",
  "links": [{"rel": "root", "href": "STAC_API", "type": "application/json"}],
  "extent": {
    "spatial": {"bbox": [[-180, -90, 180, 90]]},
    "temporal": {"interval": [["2007-01-01T00:00:00Z", "2022-12-31T23:59:59Z"]]}
  },
  "sci:doi": "10.5285/bf535053562141c6bb7ad831f5998d77"
}`

const landCoverYAML = `
type: Collection
stac_version: "1.1.0"
id: land_cover
description: Land cover maps
license: other
links:
  - rel: self
    href: STAC_API/collections/land_cover
extent:
  spatial:
    bbox: [[-180, -90, 180, 90]]
  temporal:
    interval: [["1992-01-01T00:00:00Z", "2020-12-31T23:59:59Z"]]
`

func TestLoadCollections(t *testing.T) {
	fs := afero.NewMemMapFs()
	mustWrite(t, fs, "/stage/biomass.json", biomassCollection)
	mustWrite(t, fs, "/stage/land_cover.yaml", landCoverYAML)
	mustWrite(t, fs, "/stage/notes.txt", "ignored")

	registry, err := LoadCollections(fs, "/stage", "https://api.example.com")
	if err != nil {
		t.Fatalf("LoadCollections() failed: %v", err)
	}

	if registry.Count() != 2 {
		t.Errorf("expected 2 collections, got %d", registry.Count())
	}

	ids := registry.IDs()
	if len(ids) != 2 || ids[0] != "biomass" || ids[1] != "land_cover" {
		t.Errorf("unexpected ids %v", ids)
	}

	col := registry.Get("biomass")
	if col == nil {
		t.Fatal("collection not found")
	}
	if col.Links[0].Href != "https://api.example.com" {
		t.Errorf("expected substituted root link, got %s", col.Links[0].Href)
	}
	if _, ok := col.Extra["sci:doi"]; !ok {
		t.Error("expected unknown member sci:doi to be preserved")
	}

	lc := registry.Get("land_cover")
	if lc.Links[0].Href != "https://api.example.com/collections/land_cover" {
		t.Errorf("expected substituted self link, got %s", lc.Links[0].Href)
	}
	if registry.Source("land_cover") != "/stage/land_cover.yaml" {
		t.Errorf("unexpected source %s", registry.Source("land_cover"))
	}
}

func TestLoadCollections_SingleFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	mustWrite(t, fs, "/c/biomass.json", biomassCollection)

	registry, err := LoadCollections(fs, "/c/biomass.json", "https://api")
	if err != nil {
		t.Fatalf("LoadCollections() failed: %v", err)
	}
	if registry.Get("biomass") == nil {
		t.Error("expected biomass collection")
	}
}

func TestLoadCollections_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "empty directory",
			files:   map[string]string{"/d/readme.md": "x"},
			wantErr: "no collection files",
		},
		{
			name:    "upper-case id",
			files:   map[string]string{"/d/a.json": strings.Replace(biomassCollection, `"biomass"`, `"Biomass"`, 1)},
			wantErr: "must be lower-case",
		},
		{
			name:    "missing description",
			files:   map[string]string{"/d/a.json": strings.Replace(biomassCollection, `"Above-ground biomass"`, `""`, 1)},
			wantErr: "description is required",
		},
		{
			name: "duplicate id",
			files: map[string]string{
				"/d/a.json": biomassCollection,
				"/d/b.json": biomassCollection,
			},
			wantErr: "already loaded",
		},
		{
			name:    "bad interval",
			files:   map[string]string{"/d/a.json": strings.Replace(biomassCollection, `, "2022-12-31T23:59:59Z"`, "", 1)},
			wantErr: "exactly 2 values",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			for path, content := range tt.files {
				mustWrite(t, fs, path, content)
			}
			_, err := LoadCollections(fs, "/d", "https://api")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadCollections() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func mustWrite(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
