package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrBadJSON     = errors.New("bad JSON")
	ErrNoToken     = errors.New("response carries no token")
	ErrUnavailable = errors.New("backend unavailable")
)

// HTTPError is a non-2xx response.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == http.StatusUnauthorized
}
