package extent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robert-malhotra/cci-stac-tools/internal/search"
	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
)

// ErrAnomalies is returned by Apply when the result has anomalies and the
// caller did not force it.
var ErrAnomalies = errors.New("extent has anomalies")

// ItemSource walks the items indexed for a collection.
type ItemSource interface {
	ItemsIn(ctx context.Context, collection string, fn func(*search.ItemRecord) error) error
}

// Catalogue reads and updates collections.
type Catalogue interface {
	GetCollection(ctx context.Context, id string) (*stac.Collection, bool, error)
	GetCollectionByHref(ctx context.Context, href string) (*stac.Collection, error)
	UpdateCollection(ctx context.Context, coll *stac.Collection) error
}

// Anomaly records an observation or a folded result outside the valid
// coordinate or time ranges.
type Anomaly struct {
	// Source is the item id or child href that produced the anomaly, or the
	// collection id for a problem with the folded result.
	Source string
	Reason string
}

func (a Anomaly) String() string {
	return a.Source + ": " + a.Reason
}

// Result is the outcome of confining one collection.
type Result struct {
	Collection string
	Extent     Extent
	Items      int
	Children   int
	Anomalies  []Anomaly
}

// Confiner computes collection extents from their items and children.
type Confiner struct {
	items     ItemSource
	catalogue Catalogue
	logger    *slog.Logger
}

// NewConfiner creates a Confiner.
func NewConfiner(items ItemSource, catalogue Catalogue, logger *slog.Logger) *Confiner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Confiner{items: items, catalogue: catalogue, logger: logger}
}

// Confine folds every item of the collection (unless childBased) and the
// extent of every child collection. Anomalies do not stop the walk.
func (c *Confiner) Confine(ctx context.Context, collectionID string, childBased bool) (*Result, error) {
	id := strings.ToLower(collectionID)

	coll, found, err := c.catalogue.GetCollection(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch collection %s: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("cannot confine %s: collection not found", id)
	}

	res := &Result{Collection: id, Extent: Seed()}

	if !childBased {
		err := c.items.ItemsIn(ctx, id, func(rec *search.ItemRecord) error {
			res.Items++
			obs, problem := fromItem(rec)
			if problem != "" {
				res.Anomalies = append(res.Anomalies, Anomaly{Source: rec.ID, Reason: problem})
				return nil
			}
			c.fold(res, rec.ID, obs)
			return nil
		})
		switch {
		case errors.Is(err, search.ErrNotFound):
			c.logger.InfoContext(ctx, "collection has no item index", slog.String("collection", id))
		case err != nil:
			return nil, fmt.Errorf("failed to walk items of %s: %w", id, err)
		}
	}

	for _, href := range coll.ChildHrefs() {
		child, err := c.catalogue.GetCollectionByHref(ctx, href)
		if err != nil {
			res.Anomalies = append(res.Anomalies, Anomaly{Source: href, Reason: err.Error()})
			continue
		}
		res.Children++

		obs, problem := fromCollection(child)
		if problem != "" {
			res.Anomalies = append(res.Anomalies, Anomaly{Source: href, Reason: problem})
			continue
		}
		c.fold(res, href, obs)
	}

	if res.Extent.IsEmpty() {
		res.Anomalies = append(res.Anomalies, Anomaly{Source: id, Reason: "no items or children to confine to"})
	} else {
		for _, p := range res.Extent.Unbounded() {
			res.Anomalies = append(res.Anomalies, Anomaly{Source: id, Reason: p})
		}
		for _, p := range res.Extent.Check() {
			res.Anomalies = append(res.Anomalies, Anomaly{Source: id, Reason: p})
		}
	}

	for _, a := range res.Anomalies {
		c.logger.WarnContext(ctx, "extent anomaly",
			slog.String("collection", id),
			slog.String("source", a.Source),
			slog.String("reason", a.Reason),
		)
	}

	return res, nil
}

// fold folds obs into the result. An observation outside the valid ranges
// is still folded, so the anomaly shows in the result it produced.
func (c *Confiner) fold(res *Result, source string, obs Extent) {
	for _, p := range obs.Check() {
		res.Anomalies = append(res.Anomalies, Anomaly{Source: source, Reason: p})
	}
	res.Extent = Fold(res.Extent, obs)
}

func fromItem(rec *search.ItemRecord) (Extent, string) {
	if len(rec.BBox) < 4 {
		return Extent{}, "item has no bbox"
	}
	return Extent{
		Start: rec.Properties.StartDatetime,
		End:   rec.Properties.EndDatetime,
		BBox:  bboxOf(rec.BBox),
	}, ""
}

func fromCollection(coll *stac.Collection) (Extent, string) {
	bbox, ok := coll.BBox()
	if !ok {
		return Extent{}, "child has no spatial extent"
	}
	start, end := coll.Interval()
	return Extent{Start: start, End: end, BBox: bbox}, ""
}

func bboxOf(b []float64) [4]float64 {
	out, _ := stac.BBox2D(b)
	return out
}

// Apply writes the confined extent into the collection. Results with
// anomalies are refused unless force is set.
func (c *Confiner) Apply(ctx context.Context, res *Result, force bool) error {
	if len(res.Anomalies) > 0 && !force {
		return fmt.Errorf("%w: %d in %s", ErrAnomalies, len(res.Anomalies), res.Collection)
	}
	if res.Extent.IsEmpty() {
		return fmt.Errorf("refusing to apply an empty extent to %s", res.Collection)
	}
	if p := res.Extent.Unbounded(); len(p) > 0 {
		return fmt.Errorf("refusing to apply an extent to %s: %s", res.Collection, strings.Join(p, "; "))
	}

	coll, found, err := c.catalogue.GetCollection(ctx, res.Collection)
	if err != nil {
		return fmt.Errorf("failed to fetch collection %s: %w", res.Collection, err)
	}
	if !found {
		return fmt.Errorf("collection %s disappeared before apply", res.Collection)
	}

	coll.Extent = stac.NewExtent(res.Extent.BBox, res.Extent.Start, res.Extent.End)
	if err := c.catalogue.UpdateCollection(ctx, coll); err != nil {
		return fmt.Errorf("failed to update extent of %s: %w", res.Collection, err)
	}

	c.logger.InfoContext(ctx, "applied confined extent",
		slog.String("collection", res.Collection),
		slog.String("start", res.Extent.Start),
		slog.String("end", res.Extent.End),
		slog.Any("bbox", res.Extent.BBox),
	)
	return nil
}
