package fieldplot

import (
	"fmt"

	"github.com/gogpu/fieldplot/plotcore"
)

// Mapper converts a scalar field to color values inside the shared
// buffer's compute-domain write window.
type Mapper struct {
	dev plotcore.Device
}

// NewMapper creates a mapper writing through dev.
func NewMapper(dev plotcore.Device) *Mapper {
	return &Mapper{dev: dev}
}

// Apply acquires exclusive compute-domain access to the binder's buffer,
// writes cm(field[i]) as one contiguous RGB triple per cell, and releases
// access back to the display domain. The write window is closed on every
// exit path, including a panicking colormap, so the buffer can never be
// left owned by the compute domain.
//
// The field length must equal the width×height pair the buffer was last
// sized for; a mismatch returns ErrFieldSize without touching the buffer.
func (m *Mapper) Apply(field Field, cm ColorMap, b *Binder) (err error) {
	if !b.Bound() {
		return ErrNoBuffer
	}
	if field.Len() != b.Width()*b.Height() {
		return fmt.Errorf("%w: %d samples for %dx%d",
			ErrFieldSize, field.Len(), b.Width(), b.Height())
	}

	dst, err := m.dev.AcquireWrite(b.Buffer())
	if err != nil {
		return fmt.Errorf("fieldplot: acquire write window: %w", err)
	}
	defer func() {
		if rerr := m.dev.ReleaseWrite(b.Buffer()); rerr != nil && err == nil {
			err = fmt.Errorf("fieldplot: release write window: %w", rerr)
		}
	}()

	n := field.Len()
	if len(dst) < channels*n {
		return fmt.Errorf("fieldplot: write window is %d bytes, need %d",
			len(dst), channels*n)
	}
	for i := 0; i < n; i++ {
		c := cm.Map(field.At(i))
		dst[channels*i+0] = c.R
		dst[channels*i+1] = c.G
		dst[channels*i+2] = c.B
	}
	return nil
}
