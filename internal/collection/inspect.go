package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/robert-malhotra/cci-stac-tools/internal/catalogue"
	"github.com/robert-malhotra/cci-stac-tools/internal/search"
)

// ItemCounter counts the indexed items of a collection.
type ItemCounter interface {
	CountItems(ctx context.Context, collection string, includeAggregations bool) (search.ItemCount, error)
}

// Node is one collection reached by a tree walk.
type Node struct {
	ID    string
	Href  string
	Depth int
	// Missing is set when a child link points at no collection.
	Missing bool
	// Counted is set when Items holds a count.
	Counted bool
	Items   search.ItemCount
}

// WalkOptions control a tree walk.
type WalkOptions struct {
	// Count reads item counts from the search index.
	Count bool
	// Aggregations includes aggregation items in the counts.
	Aggregations bool
	// Depth counts only nodes at that level below the start; negative
	// counts every level.
	Depth int
	// MaxDepth stops the walk below that level; negative walks the whole
	// tree.
	MaxDepth int
}

// Inspector walks the collection tree without changing it.
type Inspector struct {
	catalogue Catalogue
	counter   ItemCounter
	logger    *slog.Logger
}

// NewInspector creates an Inspector. counter may be nil for walks that do
// not count items.
func NewInspector(cat Catalogue, counter ItemCounter, logger *slog.Logger) *Inspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inspector{catalogue: cat, counter: counter, logger: logger}
}

// Walk visits the tree below id depth first, in child link order.
func (i *Inspector) Walk(ctx context.Context, id string, opts WalkOptions) ([]Node, error) {
	if opts.Count && i.counter == nil {
		return nil, errors.New("item counts need a search index")
	}
	var nodes []Node
	err := i.walk(ctx, i.catalogue.CollectionURL(strings.ToLower(id)), 0, opts, &nodes)
	return nodes, err
}

func (i *Inspector) walk(ctx context.Context, href string, depth int, opts WalkOptions, nodes *[]Node) error {
	node := Node{ID: idFromHref(href), Href: href, Depth: depth}

	coll, err := i.catalogue.GetCollectionByHref(ctx, href)
	if errors.Is(err, catalogue.ErrNotFound) {
		node.Missing = true
		*nodes = append(*nodes, node)
		i.logger.WarnContext(ctx, "missing collection", slog.String("href", href), slog.Int("depth", depth))
		return nil
	}
	if err != nil {
		return err
	}
	node.ID = coll.ID

	if opts.Count && (opts.Depth < 0 || opts.Depth == depth) {
		n, err := i.counter.CountItems(ctx, coll.ID, opts.Aggregations)
		switch {
		case errors.Is(err, search.ErrNotFound):
			node.Counted = true
		case err != nil:
			return fmt.Errorf("failed to count items of %s: %w", coll.ID, err)
		default:
			node.Counted = true
			node.Items = n
		}
	}
	*nodes = append(*nodes, node)

	if opts.MaxDepth >= 0 && depth >= opts.MaxDepth {
		return nil
	}
	for _, child := range coll.ChildHrefs() {
		if err := i.walk(ctx, child, depth+1, opts, nodes); err != nil {
			return err
		}
	}
	return nil
}

// Holes returns the child links below id that point at no collection.
func (i *Inspector) Holes(ctx context.Context, id string) ([]Node, error) {
	nodes, err := i.Walk(ctx, id, WalkOptions{Depth: -1, MaxDepth: -1})
	if err != nil {
		return nil, err
	}
	var holes []Node
	for _, n := range nodes {
		if n.Missing {
			holes = append(holes, n)
		}
	}
	return holes, nil
}

// Summary splits the DRS-level collections below the root by whether they
// hold items. The -main collections are left out.
type Summary struct {
	Filled []string
	Empty  []string
}

// Summarize counts every DRS-level collection and writes empty.txt and
// filled.txt to dir.
func (i *Inspector) Summarize(ctx context.Context, fs afero.Fs, dir string) (*Summary, error) {
	drsDepth := len(DepthNames) - 1
	nodes, err := i.Walk(ctx, RootID, WalkOptions{Count: true, Depth: drsDepth, MaxDepth: drsDepth})
	if err != nil {
		return nil, err
	}

	s := &Summary{}
	for _, n := range nodes {
		if n.Depth != drsDepth || n.Missing || strings.HasSuffix(n.ID, "-main") {
			continue
		}
		if n.Items.Value == 0 {
			s.Empty = append(s.Empty, n.ID)
		} else {
			s.Filled = append(s.Filled, n.ID)
		}
	}

	for name, ids := range map[string][]string{"empty.txt": s.Empty, "filled.txt": s.Filled} {
		if err := afero.WriteFile(fs, filepath.Join(dir, name), []byte(strings.Join(ids, "\n")), 0o644); err != nil {
			return s, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return s, nil
}

func idFromHref(href string) string {
	href = strings.TrimSuffix(href, "/")
	return href[strings.LastIndex(href, "/")+1:]
}
