// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/gogpu/fieldplot/internal/parallel"
	"github.com/gogpu/fieldplot/plotcore"
)

// SoftwareName is the registry name of the CPU device.
const SoftwareName = "software"

func init() {
	Register(SoftwareName, 10, func(opts Options) (plotcore.Device, error) {
		return NewSoftwareDevice(opts), nil
	}, nil)
}

// Software device errors.
var (
	// ErrDeviceClosed is returned when operating on a closed device.
	ErrDeviceClosed = errors.New("backend: device is closed")

	// ErrUnknownBuffer is returned when a buffer ID is not live.
	ErrUnknownBuffer = errors.New("backend: unknown buffer")

	// ErrUnknownBinding is returned when a binding ID is not live.
	ErrUnknownBinding = errors.New("backend: unknown binding")

	// ErrBufferBound is returned when registering a buffer that already
	// has a live binding, or destroying one whose binding is still live.
	ErrBufferBound = errors.New("backend: buffer already has a live binding")

	// ErrWriteWindowOpen is returned when the display domain touches a
	// buffer whose compute-domain write window is still open, or when a
	// second write window is opened on the same buffer.
	ErrWriteWindowOpen = errors.New("backend: compute-domain write window is open")

	// ErrWriteWindowClosed is returned by ReleaseWrite without a matching
	// AcquireWrite.
	ErrWriteWindowClosed = errors.New("backend: no open write window")

	// ErrBindingSize is returned when a blit's dimensions do not match
	// the registration.
	ErrBindingSize = errors.New("backend: blit dimensions do not match registration")

	// ErrBufferSize is returned when a registration does not fit the
	// buffer's capacity.
	ErrBufferSize = errors.New("backend: registration exceeds buffer capacity")
)

// softBuffer is a CPU emulation of one shared buffer.
type softBuffer struct {
	data   []byte
	mapped bool
	// binding is the live registration, or InvalidID.
	binding plotcore.BindingID
}

// softBinding records the image geometry a buffer is registered for.
type softBinding struct {
	buffer plotcore.BufferID
	width  int
	height int
}

// SoftwareDevice is a CPU implementation of plotcore.Device.
//
// It emulates the cross-domain hand-off protocol byte for byte: buffers
// are plain slices, the write window is a tracked map state, and blits
// rasterize into an RGBA frame with nearest-neighbor sampling. Protocol
// violations that would be undefined behavior on a real device (reading
// during an open write window, destroying a registered buffer) are
// reported as errors, which makes this device the reference for tests.
//
// SoftwareDevice is not safe for concurrent use, matching the
// single-threaded model of the Device contract.
type SoftwareDevice struct {
	frameW int
	frameH int
	frame  []byte // RGBA, row 0 at the top

	nextID   uint64
	buffers  map[plotcore.BufferID]*softBuffer
	bindings map[plotcore.BindingID]*softBinding

	presents int
	title    string
	closed   bool
}

// NewSoftwareDevice creates a CPU device with an opaque black frame of
// the configured size.
func NewSoftwareDevice(opts Options) *SoftwareDevice {
	opts = opts.withDefaults()
	frame := make([]byte, 4*opts.FrameWidth*opts.FrameHeight)
	for i := 3; i < len(frame); i += 4 {
		frame[i] = 0xFF
	}
	return &SoftwareDevice{
		frameW:   opts.FrameWidth,
		frameH:   opts.FrameHeight,
		frame:    frame,
		nextID:   1,
		buffers:  make(map[plotcore.BufferID]*softBuffer),
		bindings: make(map[plotcore.BindingID]*softBinding),
	}
}

// SetLogger wires the device into fieldplot's logger propagation.
func (d *SoftwareDevice) SetLogger(l *slog.Logger) { setLogger(l) }

// newID generates a unique resource ID.
func (d *SoftwareDevice) newID() uint64 {
	id := d.nextID
	d.nextID++
	return id
}

// CreateBuffer allocates a shared buffer of size bytes.
func (d *SoftwareDevice) CreateBuffer(size int) (plotcore.BufferID, error) {
	if d.closed {
		return plotcore.InvalidID, ErrDeviceClosed
	}
	if size <= 0 {
		return plotcore.InvalidID, fmt.Errorf("backend: buffer size must be positive, got %d", size)
	}
	id := plotcore.BufferID(d.newID())
	d.buffers[id] = &softBuffer{data: make([]byte, size)}
	return id, nil
}

// DestroyBuffer releases a shared buffer. The buffer must already be
// unregistered; destroying it under a live binding would leave the
// display domain with a dangling reference.
func (d *SoftwareDevice) DestroyBuffer(id plotcore.BufferID) error {
	if d.closed {
		return ErrDeviceClosed
	}
	buf, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBuffer, id)
	}
	if buf.binding != plotcore.InvalidID {
		return ErrBufferBound
	}
	delete(d.buffers, id)
	return nil
}

// Register binds a buffer into both domains for a width×height image.
func (d *SoftwareDevice) Register(id plotcore.BufferID, width, height int) (plotcore.BindingID, error) {
	if d.closed {
		return plotcore.InvalidID, ErrDeviceClosed
	}
	buf, ok := d.buffers[id]
	if !ok {
		return plotcore.InvalidID, fmt.Errorf("%w: %d", ErrUnknownBuffer, id)
	}
	if buf.binding != plotcore.InvalidID {
		return plotcore.InvalidID, ErrBufferBound
	}
	if width < 1 || height < 1 {
		return plotcore.InvalidID, fmt.Errorf("backend: registration size must be positive, got %dx%d", width, height)
	}
	if 3*width*height > len(buf.data) {
		return plotcore.InvalidID, fmt.Errorf("%w: %dx%d needs %d bytes, have %d",
			ErrBufferSize, width, height, 3*width*height, len(buf.data))
	}
	bid := plotcore.BindingID(d.newID())
	d.bindings[bid] = &softBinding{buffer: id, width: width, height: height}
	buf.binding = bid
	return bid, nil
}

// Unregister releases a cross-domain binding.
func (d *SoftwareDevice) Unregister(id plotcore.BindingID) error {
	if d.closed {
		return ErrDeviceClosed
	}
	bind, ok := d.bindings[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBinding, id)
	}
	delete(d.bindings, id)
	if buf, ok := d.buffers[bind.buffer]; ok {
		buf.binding = plotcore.InvalidID
	}
	return nil
}

// AcquireWrite opens the compute-domain write window.
func (d *SoftwareDevice) AcquireWrite(id plotcore.BufferID) ([]byte, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	buf, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBuffer, id)
	}
	if buf.mapped {
		return nil, ErrWriteWindowOpen
	}
	buf.mapped = true
	return buf.data, nil
}

// ReleaseWrite closes the compute-domain write window.
func (d *SoftwareDevice) ReleaseWrite(id plotcore.BufferID) error {
	if d.closed {
		return ErrDeviceClosed
	}
	buf, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBuffer, id)
	}
	if !buf.mapped {
		return ErrWriteWindowClosed
	}
	buf.mapped = false
	return nil
}

// Blit draws the bound image into rect with nearest-neighbor sampling.
// The source's first row is the bottom of the quad; the frame's first
// row is the top of the screen.
func (d *SoftwareDevice) Blit(binding plotcore.BindingID, width, height int, rect plotcore.Rect) error {
	if d.closed {
		return ErrDeviceClosed
	}
	bind, ok := d.bindings[binding]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBinding, binding)
	}
	if width != bind.width || height != bind.height {
		return fmt.Errorf("%w: blit %dx%d, registered %dx%d",
			ErrBindingSize, width, height, bind.width, bind.height)
	}
	buf, ok := d.buffers[bind.buffer]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBuffer, bind.buffer)
	}
	if buf.mapped {
		return ErrWriteWindowOpen
	}

	px0, px1 := ndcToPixels(rect.X0, rect.X1, d.frameW)
	// NDC y grows upward; frame rows grow downward.
	py0, py1 := ndcToPixels(-rect.Y1, -rect.Y0, d.frameH)
	if px1 <= px0 || py1 <= py0 {
		return nil
	}

	dstW := px1 - px0
	dstH := py1 - py0
	blitRows := func(y0, y1 int) {
		for py := py0 + y0; py < py0+y1; py++ {
			// v = 0 at the bottom edge of the quad.
			v := 1 - (float64(py-py0)+0.5)/float64(dstH)
			sy := sampleIndex(v, height)
			for px := px0; px < px1; px++ {
				u := (float64(px-px0) + 0.5) / float64(dstW)
				sx := sampleIndex(u, width)
				src := 3 * (sy*width + sx)
				dst := 4 * (py*d.frameW + px)
				d.frame[dst+0] = buf.data[src+0]
				d.frame[dst+1] = buf.data[src+1]
				d.frame[dst+2] = buf.data[src+2]
				d.frame[dst+3] = 0xFF
			}
		}
	}
	// Bands write disjoint frame rows, so large blits can fan out.
	if dstH >= parallel.MinBandRows {
		parallel.Rows(dstH, blitRows)
	} else {
		blitRows(0, dstH)
	}
	return nil
}

// ndcToPixels converts a [lo, hi] span in [-1, 1] to a clipped pixel
// range [p0, p1) on an axis of extent pixels.
func ndcToPixels(lo, hi float64, extent int) (p0, p1 int) {
	p0 = int((lo + 1) / 2 * float64(extent))
	p1 = int((hi+1)/2*float64(extent) + 0.5)
	if p0 < 0 {
		p0 = 0
	}
	if p1 > extent {
		p1 = extent
	}
	return p0, p1
}

// sampleIndex maps a [0, 1] texture coordinate to a source index in
// [0, n).
func sampleIndex(t float64, n int) int {
	i := int(t * float64(n))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Present makes the drawn frame visible. For the software device this
// only counts the presentation; the frame itself is always readable.
func (d *SoftwareDevice) Present() error {
	if d.closed {
		return ErrDeviceClosed
	}
	d.presents++
	slogger().Debug("software device presented", "presents", d.presents)
	return nil
}

// PresentCount returns how many times the device has presented.
func (d *SoftwareDevice) PresentCount() int { return d.presents }

// SetTitle records the output surface title.
func (d *SoftwareDevice) SetTitle(title string) { d.title = title }

// Title returns the most recently set surface title.
func (d *SoftwareDevice) Title() string { return d.title }

// ReadFrame returns a copy of the output surface.
func (d *SoftwareDevice) ReadFrame() (*image.RGBA, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	img := image.NewRGBA(image.Rect(0, 0, d.frameW, d.frameH))
	copy(img.Pix, d.frame)
	return img, nil
}

// Close releases all device resources. Close is idempotent.
func (d *SoftwareDevice) Close() error {
	if d.closed {
		return nil
	}
	if n := len(d.bindings); n > 0 {
		slogger().Warn("device closed with live bindings", "count", n)
	}
	d.closed = true
	d.buffers = nil
	d.bindings = nil
	d.frame = nil
	return nil
}

// Interface checks.
var (
	_ plotcore.Device      = (*SoftwareDevice)(nil)
	_ plotcore.FrameReader = (*SoftwareDevice)(nil)
	_ plotcore.TitleSetter = (*SoftwareDevice)(nil)
)
