package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"

	"github.com/robert-malhotra/cci-stac-tools/internal/catalogue"
	"github.com/robert-malhotra/cci-stac-tools/internal/config"
	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
)

// DepthNames labels the levels of the hierarchy below the root.
var DepthNames = []string{"CCI", "Project", "Moles-Record", "DRS"}

// DepthName returns the label of a hierarchy level.
func DepthName(depth int) string {
	if depth >= 0 && depth < len(DepthNames) {
		return DepthNames[depth]
	}
	return fmt.Sprintf("level %d", depth)
}

// Manager performs maintenance on existing nodes: removal, moves and
// uploads of hand-written documents.
type Manager struct {
	catalogue Catalogue
	fs        afero.Fs
	logger    *slog.Logger
}

// NewManager creates a Manager.
func NewManager(cat Catalogue, fs afero.Fs, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{catalogue: cat, fs: fs, logger: logger}
}

// DeleteOptions select what Delete removes.
type DeleteOptions struct {
	// Parent loses its child link to the deleted collection.
	Parent string
	// TopOnly does not descend into children.
	TopOnly bool
	// LowestOnly removes only collections without children.
	LowestOnly bool
	// KeepCollections removes items but keeps the collections.
	KeepCollections bool
	// ItemAggregations also removes aggregation items.
	ItemAggregations bool
	// Depth restricts removal to one level below the named collection,
	// which is level 0. A negative depth removes every level.
	Depth int
	// Execute performs the removal. Without it Delete only reports.
	Execute bool
}

// DeleteReport lists what Delete removed, or would remove.
type DeleteReport struct {
	Items            []string
	Collections      []string
	Unlinked         string
	KeptAggregations int
}

// Delete removes a collection, its descendants and their items.
func (m *Manager) Delete(ctx context.Context, id string, opts DeleteOptions) (*DeleteReport, error) {
	if opts.Depth >= len(DepthNames) {
		return nil, fmt.Errorf("%w: deepest level is %s (%d)", ErrDepthExceeded, DepthNames[len(DepthNames)-1], len(DepthNames)-1)
	}

	id = strings.ToLower(id)
	report := &DeleteReport{}
	removed, err := m.remove(ctx, m.catalogue.CollectionURL(id), 0, opts, report)
	if err != nil {
		return report, err
	}

	if opts.Parent != "" && removed {
		if err := m.unlink(ctx, opts.Parent, id, opts.Execute); err != nil {
			return report, err
		}
		report.Unlinked = opts.Parent
	}
	return report, nil
}

// remove walks the tree at href and reports whether the collection itself
// was selected for removal.
func (m *Manager) remove(ctx context.Context, href string, depth int, opts DeleteOptions, report *DeleteReport) (bool, error) {
	coll, err := m.catalogue.GetCollectionByHref(ctx, href)
	if errors.Is(err, catalogue.ErrNotFound) {
		m.logger.WarnContext(ctx, "collection already absent", slog.String("href", href))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	children := coll.ChildHrefs()
	if !opts.TopOnly {
		for _, child := range children {
			if _, err := m.remove(ctx, child, depth+1, opts, report); err != nil {
				return false, err
			}
		}
	}

	if opts.Depth >= 0 && opts.Depth != depth {
		return false, nil
	}
	if opts.LowestOnly && len(children) > 0 {
		return false, nil
	}

	if err := m.removeItems(ctx, coll, href, opts, report); err != nil {
		return false, err
	}
	if opts.KeepCollections {
		return false, nil
	}

	report.Collections = append(report.Collections, coll.ID)
	m.logger.InfoContext(ctx, "removing collection",
		slog.String("collection", coll.ID),
		slog.Int("depth", depth),
		slog.Bool("execute", opts.Execute),
	)
	if opts.Execute {
		if err := m.catalogue.DeleteByHref(ctx, href); err != nil {
			return false, fmt.Errorf("failed to delete collection %s: %w", coll.ID, err)
		}
	}
	return true, nil
}

// removeItems deletes the items of a collection. After a page has been
// deleted the first page is read again, since the paging tokens no longer
// hold.
func (m *Manager) removeItems(ctx context.Context, coll *stac.Collection, href string, opts DeleteOptions, report *DeleteReport) error {
	deleted := make(map[string]bool)
	kept := make(map[string]bool)

	page, err := m.catalogue.ItemsPage(ctx, href)
	for {
		if err != nil {
			return fmt.Errorf("failed to list items of %s: %w", coll.ID, err)
		}

		removedAny := false
		for _, item := range page.Items {
			if item.IsAggregation() && !opts.ItemAggregations {
				if !kept[item.ID] {
					kept[item.ID] = true
					report.KeptAggregations++
				}
				continue
			}
			if deleted[item.ID] {
				if opts.Execute {
					return fmt.Errorf("item %s of %s is still listed after deletion", item.ID, coll.ID)
				}
				continue
			}
			deleted[item.ID] = true
			report.Items = append(report.Items, stac.ItemHref(m.catalogue.BaseURL(), coll.ID, item.ID))
			if opts.Execute {
				if err := m.catalogue.DeleteItem(ctx, coll.ID, item.ID); err != nil {
					return fmt.Errorf("failed to delete item %s: %w", item.ID, err)
				}
				removedAny = true
			}
		}

		switch {
		case removedAny:
			page, err = m.catalogue.ItemsPage(ctx, href)
		case page.Next != "":
			page, err = m.catalogue.ItemsPage(ctx, page.Next)
		default:
			if len(deleted) > 0 {
				m.logger.InfoContext(ctx, "items removed",
					slog.String("collection", coll.ID),
					slog.Int("count", len(deleted)),
					slog.Bool("execute", opts.Execute),
				)
			}
			return nil
		}
	}
}

func (m *Manager) unlink(ctx context.Context, parentID, id string, execute bool) error {
	parent, found, err := m.catalogue.GetCollection(ctx, parentID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrParentNotFound, parentID)
	}

	removed := parent.RemoveChildLinks(childMatcher(id))
	m.logger.InfoContext(ctx, "removing child link",
		slog.String("parent", parentID),
		slog.String("collection", id),
		slog.Int("links", len(removed)),
	)
	if !execute || len(removed) == 0 {
		return nil
	}
	parent.Links = stac.NormalizeLinks(parent.Links, true)
	return m.catalogue.UpdateCollection(ctx, parent)
}

// Migrate moves the child link of id from parent to newParent. A parent of
// "root" or "" has no link to remove; an empty newParent only unlinks.
func (m *Manager) Migrate(ctx context.Context, id, parent, newParent string) error {
	id = strings.ToLower(id)

	if parent != "" && parent != "root" {
		if err := m.unlink(ctx, parent, id, true); err != nil {
			return fmt.Errorf("failed to unlink %s from %s: %w", id, parent, err)
		}
	}
	if newParent == "" {
		return nil
	}

	np, found, err := m.catalogue.GetCollection(ctx, newParent)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrParentNotFound, newParent)
	}
	href := m.catalogue.CollectionURL(id)
	if !hasChild(np, href) {
		np.Links = append(np.Links, stac.ChildLink(href))
	}
	np.Links = stac.NormalizeLinks(np.Links, true)
	if err := m.catalogue.UpdateCollection(ctx, np); err != nil {
		return fmt.Errorf("failed to link %s to %s: %w", id, newParent, err)
	}

	m.logger.InfoContext(ctx, "collection migrated",
		slog.String("collection", id),
		slog.String("from", parent),
		slog.String("to", newParent),
	)
	return nil
}

// Upload writes the collection documents at path, a file or a directory, and
// links each to parent when one is given. Documents are created when absent
// and replaced otherwise.
func (m *Manager) Upload(ctx context.Context, path, parent string) ([]Outcome, error) {
	registry, err := config.LoadCollections(m.fs, path, m.catalogue.BaseURL())
	if err != nil {
		return nil, err
	}

	var p *stac.Collection
	if parent != "" {
		var found bool
		p, found, err = m.catalogue.GetCollection(ctx, parent)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrParentNotFound, parent)
		}
	}

	var outcomes []Outcome
	for _, coll := range registry.All() {
		_, found, err := m.catalogue.GetCollection(ctx, coll.ID)
		if err != nil {
			return outcomes, err
		}

		action := catalogue.Created
		if found {
			action = catalogue.Updated
			err = m.catalogue.UpdateCollection(ctx, coll)
		} else {
			err = m.catalogue.CreateCollection(ctx, coll)
		}
		if err != nil {
			return outcomes, fmt.Errorf("failed to upload %s from %s: %w", coll.ID, registry.Source(coll.ID), err)
		}
		outcomes = append(outcomes, Outcome{Node: coll.ID, Action: action})
		m.logger.InfoContext(ctx, "collection uploaded",
			slog.String("collection", coll.ID),
			slog.String("action", string(action)),
		)

		if p != nil {
			if href := m.catalogue.CollectionURL(coll.ID); !hasChild(p, href) {
				p.Links = append(p.Links, stac.ChildLink(href))
			}
		}
	}

	if p != nil {
		p.Links = stac.NormalizeLinks(p.Links, true)
		if err := m.catalogue.UpdateCollection(ctx, p); err != nil {
			return outcomes, fmt.Errorf("failed to update parent %s: %w", parent, err)
		}
	}
	return outcomes, nil
}

// childMatcher matches child hrefs that end in /collections/{id}.
func childMatcher(id string) func(string) bool {
	suffix := "/collections/" + strings.ToLower(id)
	return func(href string) bool {
		return strings.HasSuffix(strings.ToLower(strings.TrimSuffix(href, "/")), suffix)
	}
}
