package collection

import "errors"

var (
	// ErrNoTemporalCoverage is returned for a project without a temporal
	// coverage in the reference document.
	ErrNoTemporalCoverage = errors.New("project has no temporal coverage")

	// ErrParentNotFound is returned when a node is attached to a parent
	// that is not in the catalogue.
	ErrParentNotFound = errors.New("parent collection not found")

	// ErrDepthExceeded is returned for a delete depth below the DRS level.
	ErrDepthExceeded = errors.New("delete depth exceeds the collection hierarchy")

	// ErrUnknownKind is returned for a node kind other than project, moles,
	// drs or openeo.
	ErrUnknownKind = errors.New("unknown collection kind")

	// ErrNoAbstract is returned when the catalogue API has no observation
	// for a moles uuid.
	ErrNoAbstract = errors.New("no catalogue observation")

	// ErrMissingUUID is returned when an openeo node is requested without
	// the moles uuid it aggregates.
	ErrMissingUUID = errors.New("openeo collections require a moles uuid")
)
