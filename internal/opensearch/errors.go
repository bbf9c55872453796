package opensearch

import (
	"errors"
	"fmt"
)

// ErrNoResultsURL is returned when a description document has no GeoJSON
// results template.
var ErrNoResultsURL = errors.New("description has no geo+json results url")

// StatusError is returned for a non-200 response that was not retried, or
// whose retries were exhausted.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("opensearch GET %s returned status %d", e.URL, e.Status)
}
