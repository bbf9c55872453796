package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/robert-malhotra/cci-stac-tools/internal/catalogue"
	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
	"github.com/robert-malhotra/cci-stac-tools/internal/translate"
)

// Catalogue is the part of the catalogue client used to publish items.
type Catalogue interface {
	UpsertItem(ctx context.Context, item *stac.Item) (catalogue.Action, error)
	GetCollection(ctx context.Context, id string) (*stac.Collection, bool, error)
	UpdateCollection(ctx context.Context, coll *stac.Collection) error
}

// PostStats counts the items of a post run.
type PostStats struct {
	Created int
	Updated int
	Failed  int
	// Summarised lists the collections whose eo:bands summary was extended.
	Summarised []string
}

// Poster publishes the item files written by a create run.
type Poster struct {
	catalogue Catalogue
	fs        afero.Fs
	metrics   *Metrics
	logger    *slog.Logger
}

// NewPoster creates a Poster reading item files from fs.
func NewPoster(cat Catalogue, fs afero.Fs) *Poster {
	return &Poster{catalogue: cat, fs: fs, logger: slog.Default()}
}

// WithLogger sets a custom logger for the poster.
func (p *Poster) WithLogger(logger *slog.Logger) *Poster {
	p.logger = logger
	return p
}

// WithMetrics counts catalogue writes into m.
func (p *Poster) WithMetrics(m *Metrics) *Poster {
	p.metrics = m
	return p
}

// Post upserts every stac*.json file under dir. Collection ids are
// lowercased before posting. In OpenEO mode the asset labels of the posted
// items are merged into the eo:bands summary of their collections.
// Individual failures do not stop the run; they are returned together.
func (p *Poster) Post(ctx context.Context, dir string, openeo bool) (PostStats, error) {
	var (
		stats  PostStats
		errs   *multierror.Error
		bands  = translate.NewBandSummaries()
		loaded int
	)

	files, err := p.itemFiles(dir)
	if err != nil {
		return stats, err
	}
	p.logger.InfoContext(ctx, "posting items", slog.String("directory", dir), slog.Int("files", len(files)))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		item, err := readItem(p.fs, file)
		if err != nil {
			stats.Failed++
			errs = multierror.Append(errs, err)
			continue
		}
		loaded++
		item.Collection = strings.ToLower(item.Collection)

		action, err := p.catalogue.UpsertItem(ctx, item)
		if err != nil {
			stats.Failed++
			p.metrics.Write("failed")
			p.logger.ErrorContext(ctx, "failed to post item",
				slog.String("item", item.ID),
				slog.String("collection", item.Collection),
				slog.String("error", err.Error()),
			)
			errs = multierror.Append(errs, fmt.Errorf("item %s: %w", item.ID, err))
			continue
		}
		p.metrics.Write(string(action))
		switch action {
		case catalogue.Created:
			stats.Created++
		case catalogue.Updated:
			stats.Updated++
		}
		p.logger.DebugContext(ctx, "item posted", slog.String("item", item.ID), slog.String("action", string(action)))

		if openeo {
			bands.Add(item)
		}
	}

	if openeo {
		summarised, err := p.mergeBands(ctx, bands)
		stats.Summarised = summarised
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	p.logger.InfoContext(ctx, "items posted",
		slog.Int("read", loaded),
		slog.Int("created", stats.Created),
		slog.Int("updated", stats.Updated),
		slog.Int("failed", stats.Failed),
	)
	return stats, errs.ErrorOrNil()
}

// itemFiles returns every stac*.json file under dir in lexical order.
func (p *Poster) itemFiles(dir string) ([]string, error) {
	var files []string
	err := afero.Walk(p.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := info.Name()
		if !info.IsDir() && strings.HasPrefix(name, "stac") && strings.HasSuffix(name, ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list items under %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func (p *Poster) mergeBands(ctx context.Context, bands *translate.BandSummaries) ([]string, error) {
	var (
		merged []string
		errs   *multierror.Error
	)
	for _, id := range bands.Collections() {
		coll, found, err := p.catalogue.GetCollection(ctx, id)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if !found {
			p.logger.WarnContext(ctx, "collection for band summary not found", slog.String("collection", id))
			continue
		}
		if !bands.MergeInto(coll) {
			continue
		}
		if err := p.catalogue.UpdateCollection(ctx, coll); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("collection %s: %w", id, err))
			continue
		}
		p.metrics.Write(string(catalogue.Updated))
		p.logger.InfoContext(ctx, "band summary updated",
			slog.String("collection", id),
			slog.Int("bands", len(bands.Bands(id))),
		)
		merged = append(merged, id)
	}
	return merged, errs.ErrorOrNil()
}
