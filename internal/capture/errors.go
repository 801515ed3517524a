package capture

import (
	"errors"
	"strings"
)

var (
	// ErrCaptureFailed wraps every failure to obtain a raster from the source.
	ErrCaptureFailed = errors.New("capture failed")
	// ErrEmptyCapture means the cropped area came out blank or degenerate.
	ErrEmptyCapture = errors.New("captured area is empty")
	// ErrPermissionDenied means the host refused screen capture.
	ErrPermissionDenied = errors.New("screen capture permission denied")
	// ErrTimeout means the source did not answer in time.
	ErrTimeout = errors.New("screen capture timed out")
)

type permissionError struct {
	message string
}

func (e *permissionError) Error() string {
	return e.message
}

func (e *permissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// NewPermissionError returns an error carrying the host's message that
// matches ErrPermissionDenied.
func NewPermissionError(message string) error {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		trimmed = ErrPermissionDenied.Error()
	}
	return &permissionError{message: trimmed}
}
