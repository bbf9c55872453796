package translate

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/robert-malhotra/cci-stac-tools/internal/config"
	"github.com/robert-malhotra/cci-stac-tools/internal/extract"
	"github.com/robert-malhotra/cci-stac-tools/internal/search"
	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
)

// OpenEOSuffix is appended to the collection and item id of OpenEO items.
const OpenEOSuffix = ".openeo"

// UndeterminedLabel is the asset label of an OpenEO item whose file name
// matched no splitter rule.
const UndeterminedLabel = "undetermined"

// ItemContext carries the per-file parameters that are not part of the
// extracted metadata.
type ItemContext struct {
	FileName  string
	Directory string
	ECV       string
	DatasetID string

	// DRSOverride takes precedence over the DRS found in the metadata.
	DRSOverride string
	OpenEO      bool
	Splitter    *config.Splitter

	// FormatOverride replaces the extracted format in the id and file_type.
	FormatOverride string
	LicenseURL     string
}

// ContextFromRecord fills the file identity of an ItemContext from a search
// index record.
func ContextFromRecord(rec *search.FileRecord) ItemContext {
	return ItemContext{
		FileName:  rec.Info.Name,
		Directory: rec.Info.Directory,
		ECV:       rec.ECV(),
		DatasetID: rec.DatasetID(),
	}
}

// Build assembles the STAC Item for one file. The result depends only on
// its inputs, so building twice yields byte-identical JSON.
func (b *Builder) Build(info *extract.Info, ic ItemContext) (*stac.Item, error) {
	if info == nil {
		return nil, fmt.Errorf("extracted info is nil")
	}
	if ic.FileName == "" {
		return nil, ErrNoFileName
	}

	stem := strings.TrimSuffix(ic.FileName, path.Ext(ic.FileName))

	format := info.Format
	if ic.FormatOverride != "" {
		format = ic.FormatOverride
	}

	drs := resolveDRS(ic.DRSOverride, info.DRS, ic.DatasetID)
	if drs == "" {
		return nil, fmt.Errorf("%w: %s has no DRS and no dataset id", ErrUnresolvedCollection, ic.FileName)
	}

	id := stem + "-" + format
	label := format
	exts := []string{stac.ExtProjection, stac.ExtClassification}

	if ic.OpenEO {
		drs += OpenEOSuffix
		exts = append(exts, stac.ExtEO)

		newStem, l, ok := ic.Splitter.Match(stem)
		if !ok {
			b.logger.Warn("no splitter rule matched file",
				slog.String("file", ic.FileName),
				slog.String("label", UndeterminedLabel),
			)
			l = UndeterminedLabel
		}
		id = newStem + OpenEOSuffix
		label = l
	}

	collection := strings.ToLower(drs)

	item := stac.NewItem(id, collection)
	item.Extensions = exts
	item.Geometry = info.Geometry()
	item.BBox = []float64{info.BBox[0], info.BBox[1], info.BBox[2], info.BBox[3]}

	b.setProperties(item, info, ic, format, drs)
	b.addLinks(item, ic.LicenseURL)

	item.Assets[label] = &stac.Asset{
		Href:  b.dapBase + ic.Directory + "/" + ic.FileName,
		Type:  MediaTypeForFile(ic.FileName),
		Roles: []string{"data"},
	}

	return item, nil
}

// resolveDRS applies the precedence override > extracted > {uuid}-main.
func resolveDRS(override, extracted, datasetID string) string {
	switch {
	case override != "":
		return override
	case extracted != "":
		return extracted
	case datasetID != "":
		return datasetID + "-main"
	default:
		return ""
	}
}

func (b *Builder) setProperties(item *stac.Item, info *extract.Info, ic ItemContext, format, drs string) {
	props := item.Properties

	props["datetime"] = nil
	props["start_datetime"] = info.StartDatetime
	props["end_datetime"] = info.EndDatetime
	props["license"] = "other"
	props["version"] = info.Version
	props["file_type"] = format
	props["aggregation"] = info.Aggregation
	props["platforms"] = info.Platforms
	props["collections"] = []any{nullable(ic.ECV), nullable(ic.DatasetID), drs}

	if ic.DatasetID != "" {
		props["opensearch_url"] = fmt.Sprintf("%s/opensearch/description.xml?parentIdentifier=%s", b.opensearchBase, ic.DatasetID)
		props["esa_url"] = fmt.Sprintf("%s/%s/", b.esaBase, ic.DatasetID)
	}

	for k, v := range info.Properties {
		props[k] = v
	}

	// Lists of platforms go in "platforms"; the singular field is dropped.
	delete(props, "platform")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// addLinks adds the self, parent, collection, root and license links.
func (b *Builder) addLinks(item *stac.Item, licenseURL string) {
	collectionHref := stac.CollectionHref(b.apiBase, item.Collection)

	item.Links = append(item.Links,
		&stac.Link{
			Rel:  "self",
			Href: stac.ItemHref(b.apiBase, item.Collection, item.ID),
			Type: stac.MediaGeoJSON,
		},
		&stac.Link{Rel: "parent", Href: collectionHref, Type: stac.MediaJSON},
		&stac.Link{Rel: "collection", Href: collectionHref, Type: stac.MediaJSON},
		&stac.Link{Rel: "root", Href: b.apiBase, Type: stac.MediaJSON},
	)

	if licenseURL != "" {
		item.Links = append(item.Links, &stac.Link{
			Rel:  "license",
			Href: licenseURL,
			Type: stac.MediaPDF,
		})
	}
}

// CombineRecords merges the assets of b into a, b winning on equal labels,
// and returns a. It is used when several files map to the same item id.
func CombineRecords(a, b *stac.Item) *stac.Item {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Assets == nil {
		a.Assets = make(map[string]*stac.Asset, len(b.Assets))
	}
	for label, asset := range b.Assets {
		a.Assets[label] = asset
	}
	return a
}

// MediaTypeForFile guesses an asset media type from the file extension.
func MediaTypeForFile(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasSuffix(name, ".nc"), strings.HasSuffix(name, ".nc4"):
		return "application/netcdf"
	case strings.HasSuffix(name, ".tif"), strings.HasSuffix(name, ".tiff"):
		return "image/tiff; application=geotiff"
	case strings.HasSuffix(name, ".zip"):
		return "application/zip"
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"), strings.HasSuffix(name, ".gz"):
		return "application/gzip"
	case strings.HasSuffix(name, ".tar"):
		return "application/x-tar"
	case strings.HasSuffix(name, ".jpg"), strings.HasSuffix(name, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	case strings.HasSuffix(name, ".geojson"):
		return stac.MediaGeoJSON
	case strings.HasSuffix(name, ".json"):
		return stac.MediaJSON
	case strings.HasSuffix(name, ".csv"):
		return "text/csv"
	case strings.HasSuffix(name, ".xml"):
		return "application/xml"
	case strings.HasSuffix(name, ".kml"):
		return "application/vnd.google-earth.kml+xml"
	case strings.HasSuffix(name, ".zarr"):
		return stac.MediaZarr
	case strings.HasSuffix(name, ".h5"), strings.HasSuffix(name, ".hdf5"):
		return "application/x-hdf5"
	default:
		return "application/octet-stream"
	}
}
