// Package aggregate publishes a kerchunk, CFA or Zarr aggregation as an
// OpenEO collection holding a single aggregation item.
package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/robert-malhotra/cci-stac-tools/internal/catalogue"
	"github.com/robert-malhotra/cci-stac-tools/internal/config"
	"github.com/robert-malhotra/cci-stac-tools/internal/extract"
	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
	"github.com/robert-malhotra/cci-stac-tools/internal/translate"
)

var (
	// ErrNonConformingRank is returned when the data variables of an
	// aggregation do not share one rank.
	ErrNonConformingRank = errors.New("non-conforming dimensions for openeo")

	// ErrNoBands is returned when an aggregation has no data variables.
	ErrNoBands = errors.New("aggregation has no data variables")
)

// AssetLabel names the single asset of an aggregation item.
const AssetLabel = "aggregation"

// KnownProperties are global attributes copied onto the item.
var KnownProperties = []string{"product_version", "project", "sensor"}

// DatasetSource opens aggregation endpoints.
type DatasetSource interface {
	FromDataset(ctx context.Context, endpoint string, engine extract.Engine) (*extract.Info, *extract.DatasetMetadata, error)
}

// Catalogue is the part of the catalogue client an aggregation is published
// through.
type Catalogue interface {
	BaseURL() string
	UpsertCollection(ctx context.Context, coll *stac.Collection) (catalogue.Action, error)
	UpsertItem(ctx context.Context, item *stac.Item) (catalogue.Action, error)
}

// Options describe one aggregation.
type Options struct {
	Endpoint string
	// DatasetID names the collection; it defaults to the endpoint base name
	// without its extension.
	DatasetID string
	UUID      string
	ECV       string
}

// Record is a built aggregation collection and its item.
type Record struct {
	Collection *stac.Collection
	Item       *stac.Item
}

// Aggregator builds and publishes aggregation records.
type Aggregator struct {
	datasets      DatasetSource
	builder       *translate.Builder
	catalogue     Catalogue
	cedaURL       string
	opensearchURL string
	logger        *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(datasets DatasetSource, builder *translate.Builder, cat Catalogue, cfg *config.Config) *Aggregator {
	return &Aggregator{
		datasets:      datasets,
		builder:       builder,
		catalogue:     cat,
		cedaURL:       strings.TrimSuffix(cfg.CEDA.CatalogueURL, "/"),
		opensearchURL: strings.TrimSuffix(cfg.OpenSearch.BaseURL, "/"),
		logger:        slog.Default(),
	}
}

// WithLogger sets a custom logger for the aggregator.
func (a *Aggregator) WithLogger(logger *slog.Logger) *Aggregator {
	a.logger = logger
	return a
}

// DefaultDatasetID strips the directory and the last extension from an
// endpoint.
func DefaultDatasetID(endpoint string) string {
	base := path.Base(strings.TrimSuffix(endpoint, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// Build opens the endpoint and assembles the collection and item.
func (a *Aggregator) Build(ctx context.Context, opts Options) (*Record, error) {
	engine, err := extract.EngineForEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}
	did := opts.DatasetID
	if did == "" {
		did = DefaultDatasetID(opts.Endpoint)
	}

	info, md, err := a.datasets.FromDataset(ctx, opts.Endpoint, engine)
	if err != nil {
		return nil, err
	}

	bands, err := Bands(md)
	if err != nil {
		return nil, err
	}

	item, err := a.buildItem(info, md, did, engine, opts)
	if err != nil {
		return nil, err
	}

	coll := a.buildCollection(item, md, did, bands, opts.UUID)

	a.logger.InfoContext(ctx, "aggregation built",
		slog.String("endpoint", opts.Endpoint),
		slog.String("engine", string(engine)),
		slog.String("collection", coll.ID),
		slog.Int("bands", len(bands)),
	)
	return &Record{Collection: coll, Item: item}, nil
}

func (a *Aggregator) buildItem(info *extract.Info, md *extract.DatasetMetadata, did string, engine extract.Engine, opts Options) (*stac.Item, error) {
	endpoint := strings.TrimSuffix(opts.Endpoint, "/")
	ic := translate.ItemContext{
		FileName:       path.Base(endpoint),
		Directory:      path.Dir(endpoint),
		ECV:            strings.ToLower(opts.ECV),
		DatasetID:      opts.UUID,
		DRSOverride:    did,
		OpenEO:         true,
		Splitter:       &config.Splitter{Label: AssetLabel},
		FormatOverride: "xarray|" + string(engine),
	}

	item, err := a.builder.Build(info, ic)
	if err != nil {
		return nil, err
	}

	props := item.Properties
	props["license"] = "other"
	props["aggregation"] = true
	props["collections"] = []any{"cci_openeo", did}
	props["cube:dimensions"] = map[string]any{
		"lat": map[string]any{"reference_system": "EPSG:4326"},
		"lon": map[string]any{"reference_system": "EPSG:4326"},
	}
	props["proj:epsg"] = 4326
	for _, key := range KnownProperties {
		if v, ok := md.Attrs[key]; ok {
			props[key] = v
		}
	}

	// Archive paths are served through DAP; remote endpoints are linked as is.
	asset := item.Assets[AssetLabel]
	if !strings.HasPrefix(endpoint, "/") {
		asset.Href = endpoint
	}
	asset.Type = stac.MediaZarr
	return item, nil
}

func (a *Aggregator) buildCollection(item *stac.Item, md *extract.DatasetMetadata, did string, bands []translate.Band, uuid string) *stac.Collection {
	apiBase := a.catalogue.BaseURL()
	id := item.Collection

	c := stac.NewCollectionTemplate(apiBase)
	c.ID = id
	c.Title = id
	if title, ok := md.Attr("title"); ok && title != "" {
		c.Title = title
	}
	if summary, ok := md.Attr("summary"); ok {
		c.Description = summary
	} else {
		c.Description = c.Title
	}
	c.Extensions = []string{stac.ExtProjection, stac.ExtClassification, stac.ExtEO}
	c.Providers = stac.DefaultProviders()
	c.Extent = stac.NewExtent([4]float64(item.BBox), item.StartDatetime(), item.EndDatetime())

	keywords := strings.Split(did, "-")
	if kw, ok := md.Attr("keywords"); ok {
		for _, k := range strings.Split(kw, ">") {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
	}
	c.Keywords = keywords

	summaryBands := make([]any, 0, len(bands))
	for _, b := range bands {
		summaryBands = append(summaryBands, b)
	}
	c.Summaries = map[string]any{"eo:bands": summaryBands}

	self := stac.CollectionHref(apiBase, id)
	c.Links = nil
	c.AddLink("items", stac.MediaGeoJSON, self+"/items")
	c.AddLink("parent", stac.MediaJSON, apiBase+"/")
	c.AddLink("queryables", stac.MediaJSON, self+"/queryables")
	c.AddLink("root", stac.MediaJSON, apiBase+"/")
	c.AddLink("self", stac.MediaJSON, self)

	if uuid != "" {
		cedaHref := a.cedaURL + "/uuid/" + uuid
		c.AddLink("ceda_catalogue", stac.MediaHTML, cedaHref)
		c.AddLink("opensearch", stac.MediaHTML, a.opensearchURL+"/opensearch/description.xml?parentIdentifier="+uuid)
		c.Assets["CEDA Catalogue Record"] = &stac.Asset{
			Href:  cedaHref,
			Type:  "application/html",
			Roles: []string{"documentation"},
		}
	}
	return c
}

// Bands derives the eo:bands summary from the data variables. Coordinate
// variables of rank one are ignored; every other variable must share the
// rank of the first.
func Bands(md *extract.DatasetMetadata) ([]translate.Band, error) {
	var (
		bands []translate.Band
		rank  int
	)
	for _, v := range md.Variables {
		if v.Rank() <= 1 {
			continue
		}
		if rank == 0 {
			rank = v.Rank()
		}
		if v.Rank() != rank {
			return nil, fmt.Errorf("%w: %s has rank %d, expected %d", ErrNonConformingRank, v.Name, v.Rank(), rank)
		}

		longName, _ := v.Attrs["long_name"].(string)
		if longName == "" {
			longName = v.Name
		}
		bands = append(bands, translate.Band{Name: v.Name, CommonName: longName, Description: longName})
	}
	if len(bands) == 0 {
		return nil, ErrNoBands
	}
	return bands, nil
}

// Publish upserts the collection, then its item.
func (a *Aggregator) Publish(ctx context.Context, rec *Record) error {
	action, err := a.catalogue.UpsertCollection(ctx, rec.Collection)
	if err != nil {
		return fmt.Errorf("failed to publish collection %s: %w", rec.Collection.ID, err)
	}
	a.logger.InfoContext(ctx, "aggregation collection published", slog.String("collection", rec.Collection.ID), slog.String("action", string(action)))

	action, err = a.catalogue.UpsertItem(ctx, rec.Item)
	if err != nil {
		return fmt.Errorf("failed to publish item %s: %w", rec.Item.ID, err)
	}
	a.logger.InfoContext(ctx, "aggregation item published", slog.String("item", rec.Item.ID), slog.String("action", string(action)))
	return nil
}

// WriteDryRun writes item.json and collection.json into dir.
func WriteDryRun(fs afero.Fs, dir string, rec *Record) ([]string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	docs := []struct {
		name string
		v    any
	}{
		{"item.json", rec.Item},
		{"collection.json", rec.Collection},
	}

	var written []string
	for _, d := range docs {
		p := filepath.Join(dir, d.name)
		data, err := json.MarshalIndent(d.v, "", "  ")
		if err != nil {
			return written, fmt.Errorf("failed to encode %s: %w", d.name, err)
		}
		if err := afero.WriteFile(fs, p, data, 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", p, err)
		}
		written = append(written, p)
	}
	return written, nil
}
