package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robert-malhotra/cci-stac-tools/internal/config"
	"github.com/robert-malhotra/cci-stac-tools/internal/opensearch"
	"github.com/robert-malhotra/cci-stac-tools/internal/search"
	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
	"github.com/robert-malhotra/cci-stac-tools/pkg/geojson"
)

// ExtraProjects are attached to the root although the project reference
// document does not list them.
var ExtraProjects = []string{"reccap2", "sea-level-budget-closure"}

// OpenEOSuffix is appended to the id of openeo aggregation collections.
const OpenEOSuffix = ".openeo"

// Moles records without a start or end date span these days.
const (
	defaultMolesStart = "1970-01-01"
	defaultMolesEnd   = "2025-12-31"
)

// ProjectSpec describes a project node.
type ProjectSpec struct {
	Name        string
	ID          string
	Description string
	Start       string
	End         string
}

// ProjectSpecFor derives the node of a configured project. A project without
// temporal coverage cannot be reconciled.
func ProjectSpecFor(p *config.Project) (ProjectSpec, error) {
	start, end, ok := p.Interval()
	if !ok {
		return ProjectSpec{}, fmt.Errorf("%w: %s", ErrNoTemporalCoverage, p.Name)
	}
	return ProjectSpec{
		Name:        p.Name,
		ID:          p.CollectionID(),
		Description: p.Abstract,
		Start:       start,
		End:         end,
	}, nil
}

// AdHocProjectSpec describes a project that is not in the reference
// document. Missing fields fall back to the moles defaults.
func AdHocProjectSpec(name, description, start, end string) ProjectSpec {
	if description == "" {
		description = "ESA CCI " + name
	}
	if start == "" {
		start = defaultMolesStart
	}
	if end == "" {
		end = defaultMolesEnd
	}
	return ProjectSpec{
		Name:        name,
		ID:          strings.ToLower(strings.ReplaceAll(name, "-", "_")),
		Description: description,
		Start:       startOfDay(start),
		End:         endOfDay(end),
	}
}

// DRSRef describes a DRS node under a moles record.
type DRSRef struct {
	// ID is the DRS id, empty for the dataset as a whole.
	ID string
	// Description is the OpenSearch description document of the DRS.
	Description string
	// UUID is the moles record the DRS belongs to.
	UUID string
}

// BuildCCI reconciles the whole hierarchy below the root collection. Only a
// failure to read or write the root itself is returned as an error; every
// other failure is recorded in the result.
func (r *Reconciler) BuildCCI(ctx context.Context) (*Result, error) {
	res := &Result{}

	root, base, found, err := r.fetch(ctx, RootID)
	if err != nil {
		return res, err
	}
	if !found {
		root, err = config.LoadCollectionFile(r.fs, r.opts.TemplateFile, r.catalogue.BaseURL())
		if err != nil {
			return res, fmt.Errorf("failed to load root template: %w", err)
		}
		r.logger.InfoContext(ctx, "root collection created from template", slog.String("template", r.opts.TemplateFile))
	}

	var specs []ProjectSpec
	if r.projects != nil {
		for _, name := range r.projects.Names() {
			spec, err := ProjectSpecFor(r.projects.Get(name))
			if err != nil {
				res.skip(name, RootID, err)
				r.logger.WarnContext(ctx, "project skipped", slog.String("project", name), slog.String("error", err.Error()))
				continue
			}
			specs = append(specs, spec)
		}
	}
	for _, name := range ExtraProjects {
		if r.projects != nil && r.projects.Get(name) != nil {
			continue
		}
		specs = append(specs, AdHocProjectSpec(name, "", "", ""))
	}

	for _, spec := range specs {
		id, err := r.reconcileProject(ctx, spec, root, res)
		if err != nil {
			res.skip(spec.ID+r.opts.Suffix, RootID, err)
			r.logger.ErrorContext(ctx, "project failed", slog.String("project", spec.Name), slog.String("error", err.Error()))
			continue
		}
		r.addChild(root, id)
	}

	root.Links = stac.NormalizeLinks(root.Links, true)
	if err := r.persist(ctx, root, base, found, true, res); err != nil {
		return res, fmt.Errorf("failed to persist root collection: %w", err)
	}
	return res, nil
}

// ReconcileProject reconciles one project and its moles records, linking it
// to parent on success. The error is the project's own failure; failed
// moles records are in the result.
func (r *Reconciler) ReconcileProject(ctx context.Context, spec ProjectSpec, parent *stac.Collection) (*Result, error) {
	res := &Result{}
	id, err := r.reconcileProject(ctx, spec, parent, res)
	if err != nil {
		return res, err
	}
	r.addChild(parent, id)
	return res, nil
}

// ReconcileMoles reconciles one moles record and its DRS nodes.
func (r *Reconciler) ReconcileMoles(ctx context.Context, rec *search.CollectionRecord, parent *stac.Collection) (*Result, error) {
	res := &Result{}
	id, err := r.reconcileMoles(ctx, rec, parent, res)
	if err != nil {
		return res, err
	}
	r.addChild(parent, id)
	return res, nil
}

// ReconcileDRS reconciles one DRS node.
func (r *Reconciler) ReconcileDRS(ctx context.Context, ref DRSRef, parent *stac.Collection) (*Result, error) {
	res := &Result{}
	id, err := r.reconcileDRS(ctx, ref, parent, r.opts.Suffix, res)
	if err != nil {
		return res, err
	}
	r.addChild(parent, id)
	return res, nil
}

func (r *Reconciler) reconcileProject(ctx context.Context, spec ProjectSpec, parent *stac.Collection, res *Result) (string, error) {
	id := strings.ToLower(spec.ID + r.opts.Suffix)

	records, err := r.index.CollectionsForProject(ctx, spec.Name)
	if err != nil && !errors.Is(err, search.ErrNotFound) {
		return "", fmt.Errorf("failed to list moles records of %s: %w", spec.Name, err)
	}

	doc, base, found, err := r.fetch(ctx, id)
	if err != nil {
		return "", err
	}

	doc.ID = id
	doc.Title = spec.Name
	doc.Description = spec.Description
	if !found || doc.Extent == nil {
		doc.Extent = stac.NewExtent(geojson.GlobalBBox, spec.Start, spec.End)
	}

	keywords := stac.NewKeywordSet(doc.Keywords, []string{"ESACCI", spec.Name, id})
	keywords.AddDotted(id)
	doc.Keywords = keywords.Sorted()

	if doc.Summaries == nil {
		doc.Summaries = make(map[string]any)
	}
	doc.Summaries["project"] = []string{spec.Name}

	for i := range records {
		rec := &records[i]
		if rec.CollectionID == RootID {
			continue
		}
		childID, err := r.reconcileMoles(ctx, rec, doc, res)
		if err != nil {
			res.skip(rec.CollectionID+r.opts.Suffix, id, err)
			r.logger.ErrorContext(ctx, "moles record failed",
				slog.String("collection", rec.CollectionID),
				slog.String("project", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		r.addChild(doc, childID)
	}

	setLink(doc, "parent", stac.MediaJSON, r.catalogue.CollectionURL(parent.ID))
	setLink(doc, "self", stac.MediaJSON, r.catalogue.CollectionURL(id))
	setLink(doc, "root", stac.MediaJSON, r.catalogue.BaseURL())
	doc.Links = stac.NormalizeLinks(doc.Links, true)

	if err := r.persist(ctx, doc, base, found, false, res); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Reconciler) reconcileMoles(ctx context.Context, rec *search.CollectionRecord, parent *stac.Collection, res *Result) (string, error) {
	uuid := strings.ToLower(rec.CollectionID)
	id := uuid + r.opts.Suffix

	abstract, err := r.abstracts.Abstract(ctx, uuid)
	if err != nil {
		return "", fmt.Errorf("failed to read abstract: %w", err)
	}

	doc, base, found, err := r.fetch(ctx, id)
	if err != nil {
		return "", err
	}

	recordURL := r.opts.CEDACatalogueURL + "/uuid/" + uuid
	doc.ID = id
	doc.Title = rec.Title
	doc.Description = abstract + "\n\n" + recordURL

	keywords := stac.NewKeywordSet(parent.Keywords, doc.Keywords)
	keywords.AddDotted(id)
	doc.Keywords = keywords.Sorted()

	start := datePart(rec.StartDate, defaultMolesStart)
	end := datePart(rec.EndDate, defaultMolesEnd)
	doc.Extent = stac.NewExtent(geojson.GlobalBBox, startOfDay(start), endOfDay(end))

	setLink(doc, "items", stac.MediaGeoJSON, r.catalogue.CollectionURL(id)+"/items")
	setLink(doc, "parent", stac.MediaJSON, r.catalogue.CollectionURL(parent.ID))
	setLink(doc, "self", stac.MediaJSON, r.catalogue.CollectionURL(id))

	drsIDs := []string(rec.DRSIDs)
	if len(drsIDs) == 0 {
		drsIDs = []string{""}
	}
	for _, drs := range drsIDs {
		ref := DRSRef{ID: drs, Description: r.features.DescriptionURL(uuid, drs), UUID: uuid}
		childID, err := r.reconcileDRS(ctx, ref, doc, r.opts.Suffix, res)
		if err != nil {
			res.skip(drsNodeID(ref, doc, r.opts.Suffix), id, err)
			r.logger.ErrorContext(ctx, "drs failed",
				slog.String("drs", drs),
				slog.String("collection", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		r.addChild(doc, childID)
	}

	doc.Links = stac.NormalizeLinks(doc.Links, false)

	if err := r.persist(ctx, doc, base, found, false, res); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Reconciler) reconcileDRS(ctx context.Context, ref DRSRef, parent *stac.Collection, suffix string, res *Result) (string, error) {
	extent := parent.Clone().Extent
	if extent == nil {
		extent = stac.NewExtent(geojson.GlobalBBox, opensearch.DefaultStart, opensearch.DefaultEnd)
	}
	if ref.ID != "" {
		dates, err := r.features.FeatureDates(ctx, ref.UUID, ref.ID)
		if err != nil {
			return "", fmt.Errorf("failed to read feature dates: %w", err)
		}
		bbox, ok := parent.BBox()
		if !ok {
			bbox = geojson.GlobalBBox
		}
		start, end := opensearch.DatesInterval(dates)
		extent = stac.NewExtent(bbox, start, end)
	}

	title := ref.ID + suffix
	if ref.ID == "" {
		title = "(NonDRS) " + parent.Title
	}
	id := drsNodeID(ref, parent, suffix)

	doc, base, found, err := r.fetch(ctx, id)
	if err != nil {
		return "", err
	}

	doc.ID = id
	doc.Title = title
	doc.Description = ref.Description
	doc.Extent = extent
	doc.Providers = stac.DefaultProviders()

	keywords := stac.NewKeywordSet(doc.Keywords, parent.Keywords)
	if ref.ID != "" {
		keywords.AddDotted(ref.ID + suffix)
	}
	doc.Keywords = keywords.Sorted()

	setLink(doc, "items", stac.MediaGeoJSON, r.catalogue.CollectionURL(id)+"/items")
	setLink(doc, "parent", stac.MediaJSON, r.catalogue.CollectionURL(parent.ID))
	setLink(doc, "self", stac.MediaJSON, r.catalogue.CollectionURL(id))
	setLink(doc, "ceda_catalogue", stac.MediaHTML, r.opts.CEDACatalogueURL+"/uuid/"+ref.UUID)
	doc.Links = stac.NormalizeLinks(doc.Links, true)

	if err := r.persist(ctx, doc, base, found, false, res); err != nil {
		return "", err
	}
	return id, nil
}

// drsNodeID is the collection id of a DRS node. The dataset as a whole
// lives at {parent}-main.
func drsNodeID(ref DRSRef, parent *stac.Collection, suffix string) string {
	if ref.ID == "" {
		return parent.ID + "-main"
	}
	return strings.ToLower(ref.ID + suffix)
}

func datePart(s, fallback string) string {
	if s == "" {
		return fallback
	}
	d, _, _ := strings.Cut(s, "T")
	return d
}

func startOfDay(d string) string {
	if strings.Contains(d, "T") {
		return d
	}
	return d + "T00:00:00Z"
}

func endOfDay(d string) string {
	if strings.Contains(d, "T") {
		return d
	}
	return d + "T23:59:59Z"
}
