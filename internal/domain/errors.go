package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPreprocessingFailed = errors.New("preprocessing failed")
	ErrSuperseded          = errors.New("superseded by a newer image update")
	ErrUploadFailed        = errors.New("upload failed")
	ErrUnknownImageSize    = errors.New("unknown image size")
	ErrProfileNotFound     = errors.New("profile not found")
)

// UploadFailedError carries the transport error that failed an upload.
type UploadFailedError struct {
	Cause error
}

func NewUploadFailedError(cause error) *UploadFailedError {
	return &UploadFailedError{Cause: cause}
}

func (e *UploadFailedError) Error() string {
	if e.Cause == nil {
		return ErrUploadFailed.Error()
	}
	return fmt.Sprintf("%s: %v", ErrUploadFailed, e.Cause)
}

func (e *UploadFailedError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrUploadFailed) hold for any UploadFailedError.
func (e *UploadFailedError) Is(target error) bool {
	return target == ErrUploadFailed
}

func sameError(a, b error) bool {
	if a == nil || b == nil {
		return a == b
	}
	return errors.Is(a, b) || errors.Is(b, a)
}
