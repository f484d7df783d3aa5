package fieldplot

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by fieldplot operations.
var (
	// ErrFieldSize indicates the field length does not match the requested
	// width×height. This is a precondition violation: the caller and the
	// surface have desynchronized, so the render call is aborted with
	// buffer and grid state unchanged.
	ErrFieldSize = errors.New("fieldplot: field length does not match width*height")

	// ErrNoBuffer indicates a render was attempted while the surface has
	// no usable shared buffer (a previous allocation failed and has not
	// been retried).
	ErrNoBuffer = errors.New("fieldplot: no usable shared buffer")

	// ErrSurfaceClosed is returned when operations are attempted on a
	// closed surface.
	ErrSurfaceClosed = errors.New("fieldplot: surface is closed")

	// ErrNilDevice is returned when a Surface is constructed without a
	// device.
	ErrNilDevice = errors.New("fieldplot: device must not be nil")

	// ErrInvalidGrid is returned when grid dimensions are not positive.
	ErrInvalidGrid = errors.New("fieldplot: grid dimensions must be >= 1")

	// ErrInvalidFieldSize is returned when width or height is not positive.
	ErrInvalidFieldSize = errors.New("fieldplot: field dimensions must be >= 1")

	// ErrNoFrameAccess is returned by Snapshot when the device cannot read
	// back its output surface.
	ErrNoFrameAccess = errors.New("fieldplot: device does not support frame readback")
)

// ResourceError reports a failed shared-buffer allocation or cross-domain
// registration. The surface is left without a usable buffer; the next
// render call retries allocation from scratch.
type ResourceError struct {
	// Op is the failed operation: "allocate", "register", "unregister",
	// or "free".
	Op string

	// Err is the underlying device error.
	Err error
}

// Error returns the formatted error message.
func (e *ResourceError) Error() string {
	return fmt.Sprintf("fieldplot: %s shared buffer: %v", e.Op, e.Err)
}

// Unwrap returns the underlying device error.
func (e *ResourceError) Unwrap() error { return e.Err }
