// Package stac provides the typed STAC records used by the CCI tooling,
// wrapping planetlabs/go-stac for links, assets, providers and extents.
package stac

import (
	"encoding/json"
	"fmt"
	"sort"

	gostac "github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/cci-stac-tools/pkg/geojson"
)

// Version is the STAC version written into every generated document.
const Version = "1.1.0"

// Extension schema URIs.
const (
	ExtProjection     = "https://stac-extensions.github.io/projection/v1.1.0/schema.json"
	ExtClassification = "https://stac-extensions.github.io/classification/v1.0.0/schema.json"
	ExtEO             = "https://stac-extensions.github.io/eo/v1.1.0/schema.json"
)

// Media types used in links and assets.
const (
	MediaJSON    = "application/json"
	MediaGeoJSON = "application/geo+json"
	MediaHTML    = "text/html"
	MediaPDF     = "application/pdf"
	MediaZarr    = "application/vnd+zarr"
)

// Re-export go-stac types for convenience.
type (
	Link           = gostac.Link
	Asset          = gostac.Asset
	Provider       = gostac.Provider
	Extent         = gostac.Extent
	SpatialExtent  = gostac.SpatialExtent
	TemporalExtent = gostac.TemporalExtent
)

// Item is a STAC Item describing one archive file or aggregation.
type Item struct {
	Type       string            `json:"type"`
	Version    string            `json:"stac_version"`
	Extensions []string          `json:"stac_extensions,omitempty"`
	ID         string            `json:"id"`
	Collection string            `json:"collection"`
	Geometry   *geojson.Geometry `json:"geometry"`
	BBox       []float64         `json:"bbox,omitempty"`
	Properties map[string]any    `json:"properties"`
	Links      []*Link           `json:"links"`
	Assets     map[string]*Asset `json:"assets"`
}

// NewItem creates an empty Item with initialised maps.
func NewItem(id, collection string) *Item {
	return &Item{
		Type:       "Feature",
		Version:    Version,
		ID:         id,
		Collection: collection,
		Properties: make(map[string]any),
		Links:      make([]*Link, 0),
		Assets:     make(map[string]*Asset),
	}
}

// StartDatetime returns properties.start_datetime, or "" when absent.
func (i *Item) StartDatetime() string {
	s, _ := i.Properties["start_datetime"].(string)
	return s
}

// EndDatetime returns properties.end_datetime, or "" when absent.
func (i *Item) EndDatetime() string {
	s, _ := i.Properties["end_datetime"].(string)
	return s
}

// IsAggregation reports whether properties.aggregation is true.
func (i *Item) IsAggregation() bool {
	b, _ := i.Properties["aggregation"].(bool)
	return b
}

// Collection is a STAC Collection. Members the type does not model are kept
// in Extra and written back unchanged, so a fetched document can be mutated
// and persisted without losing fields added by other tools.
type Collection struct {
	Type        string            `json:"type"`
	Version     string            `json:"stac_version"`
	Extensions  []string          `json:"stac_extensions"`
	ID          string            `json:"id"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description"`
	Keywords    []string          `json:"keywords,omitempty"`
	License     string            `json:"license"`
	Providers   []*Provider       `json:"providers,omitempty"`
	Extent      *Extent           `json:"extent"`
	Summaries   map[string]any    `json:"summaries,omitempty"`
	Links       []*Link           `json:"links"`
	Assets      map[string]*Asset `json:"assets,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type collectionAlias Collection

// knownCollectionFields lists the JSON members modelled by Collection.
var knownCollectionFields = []string{
	"type", "stac_version", "stac_extensions", "id", "title", "description",
	"keywords", "license", "providers", "extent", "summaries", "links", "assets",
}

// UnmarshalJSON decodes the modelled members and stores the rest in Extra.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var alias collectionAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownCollectionFields {
		delete(raw, k)
	}

	*c = Collection(alias)
	if len(raw) > 0 {
		c.Extra = raw
	}
	return nil
}

// MarshalJSON encodes the modelled members plus any preserved extras.
func (c Collection) MarshalJSON() ([]byte, error) {
	alias := collectionAlias(c)
	if alias.Extensions == nil {
		alias.Extensions = []string{}
	}
	if alias.Links == nil {
		alias.Links = []*Link{}
	}
	data, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return data, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range c.Extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// DecodeCollection parses a collection document.
func DecodeCollection(data []byte) (*Collection, error) {
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode collection: %w", err)
	}
	return &c, nil
}

// Clone returns a deep copy of the collection.
func (c *Collection) Clone() *Collection {
	data, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	out, err := DecodeCollection(data)
	if err != nil {
		return nil
	}
	return out
}

// AddLink appends a link to the collection.
func (c *Collection) AddLink(rel, mediaType, href string) {
	c.Links = append(c.Links, &Link{Rel: rel, Type: mediaType, Href: href})
}

// ChildHrefs returns the hrefs of every child link in order.
func (c *Collection) ChildHrefs() []string {
	var hrefs []string
	for _, l := range c.Links {
		if l != nil && l.Rel == "child" {
			hrefs = append(hrefs, l.Href)
		}
	}
	return hrefs
}

// RemoveChildLinks drops child links for which match returns true and
// returns the removed hrefs.
func (c *Collection) RemoveChildLinks(match func(href string) bool) []string {
	var removed []string
	kept := c.Links[:0]
	for _, l := range c.Links {
		if l != nil && l.Rel == "child" && match(l.Href) {
			removed = append(removed, l.Href)
			continue
		}
		kept = append(kept, l)
	}
	c.Links = kept
	return removed
}

// Interval returns the first temporal interval as strings. Missing or
// open-ended values are returned as "".
func (c *Collection) Interval() (start, end string) {
	if c.Extent == nil || c.Extent.Temporal == nil || len(c.Extent.Temporal.Interval) == 0 {
		return "", ""
	}
	iv := c.Extent.Temporal.Interval[0]
	if len(iv) > 0 {
		start, _ = iv[0].(string)
	}
	if len(iv) > 1 {
		end, _ = iv[1].(string)
	}
	return start, end
}

// BBox returns the first spatial bbox, and false when there is none.
func (c *Collection) BBox() ([4]float64, bool) {
	if c.Extent == nil || c.Extent.Spatial == nil || len(c.Extent.Spatial.Bbox) == 0 {
		return [4]float64{}, false
	}
	return BBox2D(c.Extent.Spatial.Bbox[0])
}

// BBox2D returns the [w, s, e, n] part of a 2D or 3D box. A 3D box is laid
// out [w, s, zmin, e, n, zmax].
func BBox2D(b []float64) ([4]float64, bool) {
	switch {
	case len(b) == 6:
		return [4]float64{b[0], b[1], b[3], b[4]}, true
	case len(b) >= 4:
		return [4]float64{b[0], b[1], b[2], b[3]}, true
	default:
		return [4]float64{}, false
	}
}

// NewExtent builds a single-box, single-interval extent.
func NewExtent(bbox [4]float64, start, end string) *Extent {
	return &Extent{
		Spatial: &SpatialExtent{
			Bbox: [][]float64{{bbox[0], bbox[1], bbox[2], bbox[3]}},
		},
		Temporal: &TemporalExtent{
			Interval: [][]any{{start, end}},
		},
	}
}

// ItemCollection represents a GeoJSON FeatureCollection of STAC Items.
type ItemCollection struct {
	Type           string  `json:"type"`
	Features       []*Item `json:"features"`
	Links          []*Link `json:"links"`
	NumberMatched  *int    `json:"numberMatched,omitempty"`
	NumberReturned int     `json:"numberReturned"`
}

// NewItemCollection creates a FeatureCollection wrapping items.
func NewItemCollection(items []*Item) *ItemCollection {
	if items == nil {
		items = make([]*Item, 0)
	}
	return &ItemCollection{
		Type:           "FeatureCollection",
		Features:       items,
		Links:          make([]*Link, 0),
		NumberReturned: len(items),
	}
}

// AddLink adds a link to the ItemCollection.
func (ic *ItemCollection) AddLink(rel, href, mediaType string) {
	ic.Links = append(ic.Links, &Link{Rel: rel, Href: href, Type: mediaType})
}

// CollectionsList represents the response for the /collections endpoint.
type CollectionsList struct {
	Collections []*Collection `json:"collections"`
	Links       []*Link       `json:"links"`
}

// NewCollectionsList creates a collections list sorted by id.
func NewCollectionsList(collections []*Collection) *CollectionsList {
	sorted := append([]*Collection(nil), collections...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &CollectionsList{
		Collections: sorted,
		Links:       make([]*Link, 0),
	}
}

// LandingPage represents the STAC API landing page.
type LandingPage struct {
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Version     string   `json:"stac_version"`
	ConformsTo  []string `json:"conformsTo"`
	Links       []*Link  `json:"links"`
}

// NewLandingPage creates a landing page.
func NewLandingPage(id, title, description string) *LandingPage {
	return &LandingPage{
		Type:        "Catalog",
		ID:          id,
		Title:       title,
		Description: description,
		Version:     Version,
		ConformsTo: []string{
			"https://api.stacspec.org/v1.0.0/core",
			"https://api.stacspec.org/v1.0.0/collections",
			"https://api.stacspec.org/v1.0.0/ogcapi-features",
			"http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/core",
			"http://www.opengis.net/spec/ogcapi-features-3/1.0/conf/filter",
		},
		Links: make([]*Link, 0),
	}
}

// AddLink adds a link to the landing page.
func (lp *LandingPage) AddLink(rel, href, mediaType string) {
	lp.Links = append(lp.Links, &Link{Rel: rel, Href: href, Type: mediaType})
}
