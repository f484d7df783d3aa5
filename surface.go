package fieldplot

import (
	"fmt"
	"strings"

	"github.com/gogpu/fieldplot/plotcore"
)

// Surface is a multiplot render target for 2D scalar fields.
//
// A Surface owns one shared buffer (allocated lazily on the first render
// and resized on demand) and a rows×cols tile grid. Each Render call
// color-maps one field into the buffer and draws it into the next tile;
// when the grid is full, the device presents the output and the tiling
// restarts at the top-left.
//
// Surfaces are NOT safe for concurrent use: every call completes before
// returning, and the caller's compute pipeline must have finished
// producing the field before invoking Render.
type Surface struct {
	dev      plotcore.Device
	grid     Grid
	binder   *Binder
	mapper   *Mapper
	renderer *Renderer

	titles []string
	closed bool
}

// New creates a Surface drawing through dev with a rows×cols tile grid.
// No buffer is allocated until the first render call. The device's
// windowing and graphics context must already be initialized by the host
// application.
func New(dev plotcore.Device, rows, cols int) (*Surface, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGrid, rows, cols)
	}
	propagateLogger(dev)
	return &Surface{
		dev:      dev,
		grid:     NewGrid(rows, cols),
		binder:   NewBinder(dev),
		mapper:   NewMapper(dev),
		renderer: NewRenderer(dev),
	}, nil
}

// SetGrid reconfigures the tiling and resets the tile position to the
// top-left. In-flight tiling is discarded, not drained; accumulated tile
// titles are dropped with it. Dimensions below 1 are clamped to 1.
func (s *Surface) SetGrid(rows, cols int) {
	s.grid.Set(rows, cols)
	s.titles = s.titles[:0]
}

// Grid returns the current tiling state.
func (s *Surface) Grid() *Grid { return &s.grid }

// SetTitle records a title for the tile the next render draws into.
// Titles accumulate across one grid cycle, are handed to the device at
// present time if it supports window titles, and are cleared afterwards.
func (s *Surface) SetTitle(title string) {
	if s.closed || title == "" {
		return
	}
	s.titles = append(s.titles, title)
}

// Render color-maps a scalar slice and draws it into the next tile.
// It is the generic entry point; see [Surface.RenderField] for the
// contract.
func Render[T Scalar](s *Surface, samples []T, width, height int, cm ColorMap) error {
	return s.RenderField(Samples(samples), width, height, cm)
}

// RenderField color-maps field and draws it into the next tile:
//
//  1. The shared buffer is reallocated if (width, height) differs from
//     the previous render; dimension changes are transparent to the
//     caller.
//  2. The compute domain writes cm over the field into the buffer.
//  3. The buffer is drawn into the current tile rectangle.
//  4. The tile index advances; completing the grid presents the surface
//     and clears any pending title text.
//
// The field length must equal width×height; a mismatch returns
// ErrFieldSize and leaves buffer and grid state unchanged. Allocation or
// registration failures return a *ResourceError; the next call retries
// from scratch. No frame is ever skipped silently.
func (s *Surface) RenderField(field Field, width, height int, cm ColorMap) error {
	if s.closed {
		return ErrSurfaceClosed
	}
	if width < 1 || height < 1 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidFieldSize, width, height)
	}
	if field.Len() != width*height {
		return fmt.Errorf("%w: %d samples for %dx%d",
			ErrFieldSize, field.Len(), width, height)
	}

	if err := s.binder.EnsureCapacity(width, height); err != nil {
		return err
	}
	if err := s.mapper.Apply(field, cm, s.binder); err != nil {
		return err
	}

	rect := s.grid.CurrentRect()
	if err := s.renderer.DrawTile(s.binder, width, height, rect); err != nil {
		return err
	}

	if s.grid.Advance() {
		return s.present()
	}
	return nil
}

// present pushes the completed grid to the screen and resets title state.
func (s *Surface) present() error {
	if ts, ok := s.dev.(plotcore.TitleSetter); ok && len(s.titles) > 0 {
		ts.SetTitle(strings.Join(s.titles, "  "))
	}
	s.titles = s.titles[:0]

	if err := s.dev.Present(); err != nil {
		return fmt.Errorf("fieldplot: present: %w", err)
	}
	return nil
}

// Close unregisters any live binding and frees the shared buffer. If no
// buffer was ever allocated, Close is a no-op. Teardown failures are
// logged, never returned, and Close is idempotent. The device itself is
// owned by the host and is not closed.
func (s *Surface) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.binder.Close()
	s.titles = nil
	return nil
}
