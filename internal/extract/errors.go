package extract

import "errors"

var (
	// ErrMissingMetadata marks a record that lacked an optional field. It is
	// never returned from the extractors: the field is filled with a sentinel
	// and the record is flagged incomplete.
	ErrMissingMetadata = errors.New("missing metadata")

	// ErrInsufficientMetadata is returned when a required field cannot be
	// obtained after every fallback and strict mode was requested.
	ErrInsufficientMetadata = errors.New("insufficient metadata")

	// ErrUnsupportedFormat is returned for file extensions no extractor handles.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrUnsupportedEngine is returned for aggregation endpoints of unknown type.
	ErrUnsupportedEngine = errors.New("unsupported aggregation engine")
)
