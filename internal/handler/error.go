package handler

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when the backend answers 200 with a body that is not JSON.
var ErrMalformedResponse = errors.New("malformed response")

// BackendError is a non-200 answer from the backend.
type BackendError struct {
	Label      string
	Body       string
	StatusCode int
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s error: %d - %s", e.Label, e.StatusCode, e.Body)
}
