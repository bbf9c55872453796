package search

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Index names in the archive search cluster.
const (
	FilesIndex       = "opensearch-files"
	CollectionsIndex = "opensearch-collections"
	itemsIndexPrefix = "items_"
)

// ItemsIndex returns the index mirroring the items of a STAC collection.
func ItemsIndex(collection string) string {
	return itemsIndexPrefix + collection
}

// FileRecord is the _source document of an opensearch-files hit.
type FileRecord struct {
	Info     FileInfo     `json:"info"`
	Projects FileProjects `json:"projects"`
}

// FileInfo describes one archived file. Spatial and Temporal are kept raw
// because their shape varies between indexing runs.
type FileInfo struct {
	Name      string          `json:"name"`
	Directory string          `json:"directory"`
	Format    string          `json:"format,omitempty"`
	Spatial   json.RawMessage `json:"spatial,omitempty"`
	Temporal  json.RawMessage `json:"temporal,omitempty"`
}

// FileProjects holds project-specific facets, keyed by project name.
type FileProjects struct {
	Opensearch map[string]any `json:"opensearch,omitempty"`
}

// Path returns the full archive path of the file.
func (r *FileRecord) Path() string {
	return path.Join(r.Info.Directory, r.Info.Name)
}

// Stem returns the file name without its extension.
func (r *FileRecord) Stem() string {
	return strings.TrimSuffix(r.Info.Name, path.Ext(r.Info.Name))
}

// Ext returns the file extension including the dot.
func (r *FileRecord) Ext() string {
	return path.Ext(r.Info.Name)
}

// Facet returns an opensearch facet as a string. Single-element lists are
// unwrapped; anything else that is not a string yields "".
func (r *FileRecord) Facet(key string) string {
	if r.Projects.Opensearch == nil {
		return ""
	}
	return scalarString(r.Projects.Opensearch[key])
}

// ECV returns the lower-cased ECV facet.
func (r *FileRecord) ECV() string {
	return strings.ToLower(r.Facet("ecv"))
}

// DatasetID returns the moles uuid of the dataset holding the file.
func (r *FileRecord) DatasetID() string {
	return r.Facet("datasetId")
}

// CollectionRecord is the _source document of an opensearch-collections hit.
type CollectionRecord struct {
	CollectionID string     `json:"collection_id"`
	Project      StringList `json:"project,omitempty"`
	DRSIDs       StringList `json:"drsId,omitempty"`
	Title        string     `json:"title"`
	StartDate    string     `json:"start_date,omitempty"`
	EndDate      string     `json:"end_date,omitempty"`
}

// StringList decodes either a JSON string or a list of strings.
type StringList []string

// UnmarshalJSON accepts "a" as well as ["a", "b"].
func (s *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringList{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*s = list
	return nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) == 1 {
			return scalarString(t[0])
		}
	case float64, bool:
		return fmt.Sprint(t)
	}
	return ""
}

// Hit is a single search hit with its sort cursor.
type Hit struct {
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
	Sort   []any           `json:"sort,omitempty"`
}

// Response is the subset of an Elasticsearch search response used here.
type Response struct {
	Hits struct {
		Total struct {
			Value    int    `json:"value"`
			Relation string `json:"relation"`
		} `json:"total"`
		Hits []Hit `json:"hits"`
	} `json:"hits"`
}

// ItemRecord is the _source of an items_{collection} hit: the parts of a
// posted STAC Item needed to confine collection extents.
type ItemRecord struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection,omitempty"`
	BBox       []float64      `json:"bbox,omitempty"`
	Properties ItemProperties `json:"properties"`
}

// ItemProperties is the temporal subset of an item's properties.
type ItemProperties struct {
	StartDatetime string `json:"start_datetime,omitempty"`
	EndDatetime   string `json:"end_datetime,omitempty"`
	Aggregation   bool   `json:"aggregation,omitempty"`
}
