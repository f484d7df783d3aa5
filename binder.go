package fieldplot

import "github.com/gogpu/fieldplot/plotcore"

// channels is the number of color channels written per field cell.
const channels = 3

// Binder owns the shared buffer and its cross-domain registration on
// behalf of a Surface. It reallocates the pair whenever the requested
// field dimensions change and guarantees the teardown ordering the
// shared-memory model requires: the registration is always released
// before the buffer it binds, and a new buffer is never allocated while
// the old registration is live.
//
// Binder is not safe for concurrent use.
type Binder struct {
	dev plotcore.Device

	buffer  plotcore.BufferID
	binding plotcore.BindingID

	// Dimensions the buffer was last sized for. Zero when no usable
	// buffer exists.
	width  int
	height int
}

// NewBinder creates a binder for dev. No buffer is allocated until the
// first EnsureCapacity call.
func NewBinder(dev plotcore.Device) *Binder {
	return &Binder{dev: dev}
}

// Width returns the width the buffer was last sized for, or 0.
func (b *Binder) Width() int { return b.width }

// Height returns the height the buffer was last sized for, or 0.
func (b *Binder) Height() int { return b.height }

// Buffer returns the live shared buffer, or plotcore.InvalidID.
func (b *Binder) Buffer() plotcore.BufferID { return b.buffer }

// Binding returns the live cross-domain registration, or
// plotcore.InvalidID.
func (b *Binder) Binding() plotcore.BindingID { return b.binding }

// Bound reports whether a usable registered buffer exists.
func (b *Binder) Bound() bool { return b.buffer != plotcore.InvalidID }

// EnsureCapacity makes the shared buffer hold exactly 3×width×height
// bytes. Repeated calls with unchanged dimensions are no-ops. A changed
// pair destroys the old registration and buffer before the new one
// exists; there is no double-buffering, so access must be sequential
// across reallocations.
//
// On failure the binder is left with no usable buffer and the error is a
// *ResourceError; the next call retries allocation from scratch.
func (b *Binder) EnsureCapacity(width, height int) error {
	if width < 1 || height < 1 {
		return ErrInvalidFieldSize
	}
	if b.Bound() && width == b.width && height == b.height {
		return nil
	}

	b.release()

	size := channels * width * height
	buf, err := b.dev.CreateBuffer(size)
	if err != nil {
		return &ResourceError{Op: "allocate", Err: err}
	}

	binding, err := b.dev.Register(buf, width, height)
	if err != nil {
		// The fresh buffer is unusable without a registration; free it so
		// the binder holds no dangling allocation.
		if ferr := b.dev.DestroyBuffer(buf); ferr != nil {
			Logger().Warn("free unregistered buffer failed", "err", ferr)
		}
		return &ResourceError{Op: "register", Err: err}
	}

	b.buffer = buf
	b.binding = binding
	b.width = width
	b.height = height

	Logger().Debug("shared buffer reallocated",
		"width", width, "height", height, "bytes", size)
	return nil
}

// release tears down the current registration and buffer, in that order.
// Failures are logged, never returned: release runs on the teardown path
// where errors must not escalate.
func (b *Binder) release() {
	if b.binding != plotcore.InvalidID {
		if err := b.dev.Unregister(b.binding); err != nil {
			Logger().Warn("unregister shared buffer failed", "err", err)
		}
		b.binding = plotcore.InvalidID
	}
	if b.buffer != plotcore.InvalidID {
		if err := b.dev.DestroyBuffer(b.buffer); err != nil {
			Logger().Warn("free shared buffer failed", "err", err)
		}
		b.buffer = plotcore.InvalidID
	}
	b.width = 0
	b.height = 0
}

// Close releases the registration and buffer. If none was ever
// allocated, Close is a no-op. Close is idempotent and never fails.
func (b *Binder) Close() {
	b.release()
}
