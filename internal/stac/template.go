package stac

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/cci-stac-tools/pkg/geojson"
)

// APIPlaceholder is substituted with the catalogue base URL in template
// documents read from disk.
const APIPlaceholder = "STAC_API"

// ThumbnailHref is the ESA logo used as every collection's thumbnail.
const ThumbnailHref = "https://brand.esa.int/files/2020/05/ESA_logo_2020_Deep-1024x643.jpg"

// Default interval for freshly templated collections, replaced during
// reconciliation.
const (
	templateStart = "2025-01-01T00:00:00Z"
	templateEnd   = "2025-01-01T00:00:01Z"
)

// NewCollectionTemplate returns the blank collection used when a node does
// not yet exist in the catalogue.
func NewCollectionTemplate(apiBase string) *Collection {
	return &Collection{
		Type:       "Collection",
		Version:    Version,
		Extensions: []string{},
		License:    "other",
		Links: []*Link{
			{Rel: "root", Type: MediaJSON, Href: apiBase},
		},
		Assets: map[string]*Asset{
			"thumbnail": {
				Href:  ThumbnailHref,
				Type:  "image/jpg",
				Roles: []string{"thumbnail"},
			},
		},
		Extent:    NewExtent(geojson.GlobalBBox, templateStart, templateEnd),
		Providers: []*Provider{},
	}
}

// DefaultProviders returns the hosting providers attached to DRS collections.
func DefaultProviders() []*Provider {
	return []*Provider{
		{
			Name:  "Centre for Environmental Data Analysis (CEDA)",
			Roles: []string{"host"},
			Url:   "https://catalogue.ceda.ac.uk",
		},
		{
			Name:  "ESA Open Data Portal (ODP)",
			Roles: []string{"host"},
			Url:   "https://climate.esa.int/data",
		},
	}
}

// SubstituteAPI replaces the STAC_API placeholder in a template document.
func SubstituteAPI(doc []byte, apiBase string) []byte {
	return []byte(strings.ReplaceAll(string(doc), APIPlaceholder, apiBase))
}

// CollectionHref returns {api}/collections/{id}.
func CollectionHref(apiBase, id string) string {
	return fmt.Sprintf("%s/collections/%s", apiBase, id)
}

// ItemHref returns {api}/collections/{collection}/items/{id}.
func ItemHref(apiBase, collection, id string) string {
	return fmt.Sprintf("%s/collections/%s/items/%s", apiBase, collection, id)
}
