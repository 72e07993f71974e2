package transport

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidLength   = errors.New("invalid length")
	ErrAssetTooLarge   = errors.New("asset too large")
	ErrMissingAssetKey = errors.New("no asset key in response")
	ErrAssetNotFound   = errors.New("asset not found")
)

// TransportError is a failed asset backend response.
type TransportError struct {
	StatusCode int
	Label      string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("asset transport: status %d (%s): %v", e.StatusCode, e.Label, e.Err)
	}
	return fmt.Sprintf("asset transport: status %d: %v", e.StatusCode, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// classify maps a backend status and error label to a TransportError.
// Only 400 invalid-length and 413 client-error have dedicated kinds.
func classify(status int, label, message string) *TransportError {
	var err error
	switch {
	case status == http.StatusBadRequest && label == "invalid-length":
		err = ErrInvalidLength
	case status == http.StatusRequestEntityTooLarge && label == "client-error":
		err = ErrAssetTooLarge
	case status == http.StatusNotFound:
		err = ErrAssetNotFound
	case message != "":
		err = errors.New(message)
	default:
		err = errors.New(http.StatusText(status))
	}
	return &TransportError{StatusCode: status, Label: label, Err: err}
}
