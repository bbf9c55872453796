package collection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robert-malhotra/cci-stac-tools/internal/stac"
)

// Kind is the level of a node added by AddChild.
type Kind string

const (
	KindProject Kind = "project"
	KindMoles   Kind = "moles"
	KindDRS     Kind = "drs"
	KindOpenEO  Kind = "openeo"
)

// ParseKind validates a node kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindProject, KindMoles, KindDRS, KindOpenEO:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// ChildSpec describes a single node to add below an existing parent.
type ChildSpec struct {
	Kind Kind
	// ID is the project name, moles uuid or DRS id.
	ID string
	// Description overrides the description of project and DRS nodes.
	Description string
	// Start and End bound a project that is not in the reference document.
	Start string
	End   string
	// UUID is the moles record of a DRS or openeo node. It defaults to the
	// parent id for DRS nodes.
	UUID string
}

// AddChild reconciles one node below parentID and writes the parent with the
// new child link.
func (r *Reconciler) AddChild(ctx context.Context, parentID string, spec ChildSpec) (*Result, error) {
	res := &Result{}

	parent, base, found, err := r.fetch(ctx, parentID)
	if err != nil {
		return res, err
	}
	if !found {
		return res, fmt.Errorf("%w: %s", ErrParentNotFound, parentID)
	}

	var id string
	switch spec.Kind {
	case KindProject:
		ps := AdHocProjectSpec(spec.ID, spec.Description, spec.Start, spec.End)
		if r.projects != nil {
			if p := r.projects.Get(spec.ID); p != nil {
				if ps, err = ProjectSpecFor(p); err != nil {
					return res, err
				}
				if spec.Description != "" {
					ps.Description = spec.Description
				}
			}
		}
		if err := stac.ValidateInterval(ps.Start, ps.End); err != nil {
			return res, fmt.Errorf("invalid temporal range for project %s: %w", spec.ID, err)
		}
		id, err = r.reconcileProject(ctx, ps, parent, res)

	case KindMoles:
		rec, lerr := r.index.CollectionByID(ctx, spec.ID)
		if lerr != nil {
			return res, fmt.Errorf("failed to look up moles record %s: %w", spec.ID, lerr)
		}
		id, err = r.reconcileMoles(ctx, rec, parent, res)

	case KindDRS:
		uuid := spec.UUID
		if uuid == "" {
			uuid = strings.TrimSuffix(parent.ID, r.opts.Suffix)
		}
		id, err = r.reconcileDRS(ctx, r.drsRef(spec, uuid), parent, r.opts.Suffix, res)

	case KindOpenEO:
		if spec.UUID == "" {
			return res, ErrMissingUUID
		}
		id, err = r.reconcileDRS(ctx, r.drsRef(spec, spec.UUID), parent, OpenEOSuffix, res)

	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
	if err != nil {
		return res, err
	}

	r.addChild(parent, id)
	parent.Links = stac.NormalizeLinks(parent.Links, true)
	if err := r.persist(ctx, parent, base, true, true, res); err != nil {
		return res, fmt.Errorf("failed to update parent %s: %w", parentID, err)
	}

	r.logger.InfoContext(ctx, "child collection added",
		slog.String("parent", parentID),
		slog.String("collection", id),
		slog.String("kind", string(spec.Kind)),
	)
	return res, nil
}

func (r *Reconciler) drsRef(spec ChildSpec, uuid string) DRSRef {
	desc := spec.Description
	if desc == "" {
		desc = r.features.DescriptionURL(uuid, spec.ID)
	}
	return DRSRef{ID: spec.ID, Description: desc, UUID: uuid}
}
