package translate

import "errors"

var (
	// ErrNoFileName is returned when an item context does not name a file.
	ErrNoFileName = errors.New("item context has no file name")

	// ErrUnresolvedCollection is returned when neither a DRS nor a dataset id
	// is available to name the item's collection.
	ErrUnresolvedCollection = errors.New("cannot resolve item collection")

	// ErrInvalidBBox is returned when a bbox parameter cannot be parsed.
	ErrInvalidBBox = errors.New("invalid bbox")

	// ErrInvalidDateTime is returned when datetime parsing fails.
	ErrInvalidDateTime = errors.New("invalid datetime format")

	// ErrUnsupportedFilter is returned when a filter expression cannot be evaluated.
	ErrUnsupportedFilter = errors.New("unsupported filter expression")
)
