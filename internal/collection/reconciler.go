// Package collection reconciles the CCI collection hierarchy (root, project,
// moles record, DRS) against the STAC catalogue, and provides the
// maintenance operations that move, upload, inspect and delete nodes of it.
package collection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/robert-malhotra/cci-stac-tools/internal/catalogue"
	"github.com/robert-malhotra/cci-stac-tools/internal/config"
	"github.com/robert-malhotra/cci-stac-tools/internal/search"
	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
)

// Staged is the outcome of a dryrun persist.
const Staged catalogue.Action = "staged"

// RootID is the id of the top of the hierarchy.
const RootID = "cci"

// Catalogue is the subset of the catalogue client used by this package.
type Catalogue interface {
	BaseURL() string
	CollectionURL(id string) string
	GetCollection(ctx context.Context, id string) (*stac.Collection, bool, error)
	GetCollectionByHref(ctx context.Context, href string) (*stac.Collection, error)
	CreateCollection(ctx context.Context, coll *stac.Collection) error
	UpdateCollection(ctx context.Context, coll *stac.Collection) error
	UpsertCollection(ctx context.Context, coll *stac.Collection) (catalogue.Action, error)
	DeleteByHref(ctx context.Context, href string) error
	DeleteItem(ctx context.Context, collection, id string) error
	ItemsPage(ctx context.Context, href string) (*catalogue.ItemPage, error)
}

// CollectionIndex looks up moles records.
type CollectionIndex interface {
	CollectionsForProject(ctx context.Context, project string) ([]search.CollectionRecord, error)
	CollectionByID(ctx context.Context, uuid string) (*search.CollectionRecord, error)
}

// Features reads OpenSearch feature dates for a DRS.
type Features interface {
	DescriptionURL(uuid, drs string) string
	FeatureDates(ctx context.Context, uuid, drs string) ([]string, error)
}

// Abstracts supplies the catalogue abstract of a moles record.
type Abstracts interface {
	Abstract(ctx context.Context, uuid string) (string, error)
}

// Options control how nodes are persisted.
type Options struct {
	// Overwrite PUTs nodes that already exist. Without it existing nodes
	// are left untouched, but their children are still reconciled.
	Overwrite bool
	// DryRun stages documents on disk instead of writing them.
	DryRun bool
	// Suffix is appended to every generated collection id.
	Suffix string
	// CEDACatalogueURL is the base of the catalogue record links.
	CEDACatalogueURL string
	// TemplateFile is the root document used when cci does not exist.
	TemplateFile string
}

// Failure is a node that could not be reconciled.
type Failure struct {
	Node   string
	Parent string
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s (parent %s): %v", f.Node, f.Parent, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Outcome is a persisted node.
type Outcome struct {
	Node   string
	Action catalogue.Action
}

// Result collects what a reconciliation run persisted and what it skipped.
type Result struct {
	Persisted []Outcome
	Skipped   []*Failure
}

func (r *Result) skip(node, parent string, err error) {
	r.Skipped = append(r.Skipped, &Failure{Node: node, Parent: parent, Err: err})
}

// Err aggregates every skipped node, or returns nil.
func (r *Result) Err() error {
	var merr *multierror.Error
	for _, f := range r.Skipped {
		merr = multierror.Append(merr, f)
	}
	return merr.ErrorOrNil()
}

// Count returns the number of persisted nodes with the given action.
func (r *Result) Count(action catalogue.Action) int {
	n := 0
	for _, o := range r.Persisted {
		if o.Action == action {
			n++
		}
	}
	return n
}

// Reconciler builds and persists the collection hierarchy.
type Reconciler struct {
	catalogue Catalogue
	index     CollectionIndex
	features  Features
	abstracts Abstracts
	projects  *config.ProjectRegistry
	stager    *Stager
	fs        afero.Fs
	opts      Options
	logger    *slog.Logger
}

// NewReconciler creates a Reconciler. projects may be nil when only single
// nodes are reconciled.
func NewReconciler(cat Catalogue, index CollectionIndex, features Features, abstracts Abstracts, projects *config.ProjectRegistry, opts Options) *Reconciler {
	opts.CEDACatalogueURL = strings.TrimSuffix(opts.CEDACatalogueURL, "/")
	return &Reconciler{
		catalogue: cat,
		index:     index,
		features:  features,
		abstracts: abstracts,
		projects:  projects,
		fs:        afero.NewOsFs(),
		opts:      opts,
		logger:    slog.Default(),
	}
}

// WithLogger sets a custom logger for the reconciler.
func (r *Reconciler) WithLogger(logger *slog.Logger) *Reconciler {
	r.logger = logger
	return r
}

// WithStager sets the writer used in dryrun mode.
func (r *Reconciler) WithStager(s *Stager) *Reconciler {
	r.stager = s
	return r
}

// WithFs sets the filesystem the root template is read from.
func (r *Reconciler) WithFs(fs afero.Fs) *Reconciler {
	r.fs = fs
	return r
}

// fetch returns the stored document for id, or a blank template. base is a
// copy of the stored document, kept to report dryrun changes.
func (r *Reconciler) fetch(ctx context.Context, id string) (doc, base *stac.Collection, found bool, err error) {
	doc, found, err = r.catalogue.GetCollection(ctx, id)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to fetch collection %s: %w", id, err)
	}
	if !found {
		return stac.NewCollectionTemplate(r.catalogue.BaseURL()), nil, false, nil
	}
	return doc, doc.Clone(), true, nil
}

// persist writes doc according to the options. always writes an existing
// document even without Overwrite, for parents whose child links changed.
func (r *Reconciler) persist(ctx context.Context, doc, base *stac.Collection, found, always bool, res *Result) error {
	var action catalogue.Action

	switch {
	case r.opts.DryRun:
		if err := r.stage(doc, base); err != nil {
			return err
		}
		action = Staged
	case found && !r.opts.Overwrite && !always:
		action = catalogue.Skipped
	case found:
		if err := r.catalogue.UpdateCollection(ctx, doc); err != nil {
			return err
		}
		action = catalogue.Updated
	default:
		a, err := r.catalogue.UpsertCollection(ctx, doc)
		if err != nil {
			return err
		}
		action = a
	}

	r.logger.InfoContext(ctx, "collection reconciled",
		slog.String("collection", doc.ID),
		slog.String("action", string(action)),
	)
	res.Persisted = append(res.Persisted, Outcome{Node: doc.ID, Action: action})
	return nil
}

func (r *Reconciler) stage(doc, base *stac.Collection) error {
	if r.stager == nil {
		return fmt.Errorf("dryrun of %s has no stage directory", doc.ID)
	}
	_, err := r.stager.Stage(doc.ID, doc, base)
	return err
}

// addChild links a persisted child to its parent.
func (r *Reconciler) addChild(parent *stac.Collection, id string) {
	parent.Links = append(parent.Links, stac.ChildLink(r.catalogue.CollectionURL(id)))
}

// setLink replaces every link of rel with a single link.
func setLink(doc *stac.Collection, rel, mediaType, href string) {
	kept := doc.Links[:0]
	for _, l := range doc.Links {
		if l != nil && l.Rel == rel {
			continue
		}
		kept = append(kept, l)
	}
	doc.Links = kept
	doc.AddLink(rel, mediaType, href)
}

// hasChild reports whether doc already links to href.
func hasChild(doc *stac.Collection, href string) bool {
	for _, h := range doc.ChildHrefs() {
		if strings.EqualFold(h, href) {
			return true
		}
	}
	return false
}
