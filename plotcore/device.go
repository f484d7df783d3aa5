// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package plotcore

import "image"

// BufferID is an opaque handle to a shared buffer.
// Each device implementation maintains the mapping between IDs and its
// actual backend resources.
type BufferID uint64

// BindingID is an opaque handle to a cross-domain registration of a
// shared buffer. Exactly one live binding exists per live buffer.
type BindingID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Rect is an axis-aligned rectangle in normalized device coordinates.
// All four edges lie in [-1, 1]; X0 < X1 and Y0 < Y1.
type Rect struct {
	X0, X1 float64
	Y0, Y1 float64
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Device is the rendering device fieldplot draws through.
//
// The compute-domain window (AcquireWrite…ReleaseWrite) and the
// display-domain window (Blit) must never overlap for the same buffer.
// fieldplot enforces this by call ordering; implementations should
// additionally fail fast when the protocol is violated.
//
// All methods are synchronous: they complete or fail before returning.
// Device implementations are not required to be safe for concurrent use.
type Device interface {
	// CreateBuffer allocates a shared buffer of size bytes, writable by
	// the compute domain and readable by the display domain.
	CreateBuffer(size int) (BufferID, error)

	// DestroyBuffer releases a shared buffer. The buffer must not have a
	// live binding. Destroying an unknown ID is an error.
	DestroyBuffer(id BufferID) error

	// Register binds the buffer into both domains as the backing store of
	// a width×height RGB image (3 bytes per cell, row-major, bottom row
	// first). At most one binding may exist per buffer.
	Register(id BufferID, width, height int) (BindingID, error)

	// Unregister releases a cross-domain binding. Must be called before
	// the underlying buffer is destroyed.
	Unregister(id BindingID) error

	// AcquireWrite opens the compute-domain write window and returns the
	// writable byte range covering the whole buffer. The display domain
	// must not read the buffer until ReleaseWrite.
	AcquireWrite(id BufferID) ([]byte, error)

	// ReleaseWrite closes the compute-domain write window, handing the
	// buffer contents back to the display domain.
	ReleaseWrite(id BufferID) error

	// Blit draws the bound width×height image into rect on the output
	// surface. Texture coordinates map (0,0) to the bottom-left of rect
	// and (1,1) to the top-right. Fails if the buffer's write window is
	// still open.
	Blit(binding BindingID, width, height int, rect Rect) error

	// Present makes all blits since the previous Present visible.
	Present() error

	// Close releases all device resources. Close is idempotent.
	Close() error
}

// FrameReader is an optional interface for devices that can read back the
// current output surface. Readback may be slow on GPU devices.
type FrameReader interface {
	ReadFrame() (*image.RGBA, error)
}

// TitleSetter is an optional interface for devices whose output surface
// carries a window title. fieldplot hands the accumulated tile titles to
// the device at present time.
type TitleSetter interface {
	SetTitle(title string)
}
