package catalogue

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when a document read by href does not exist.
var ErrNotFound = errors.New("not found in catalogue")

// WriteError is returned when the catalogue rejects a POST, PUT or DELETE.
type WriteError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("catalogue %s %s returned status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// IsConflict reports whether err is a 409 write rejection.
func IsConflict(err error) bool {
	var we *WriteError
	return errors.As(err, &we) && we.Status == http.StatusConflict
}
