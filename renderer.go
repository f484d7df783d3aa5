package fieldplot

import (
	"fmt"

	"github.com/gogpu/fieldplot/plotcore"
)

// Renderer draws the registered shared buffer into tiles of the output
// surface. It is the display-domain half of the hand-off protocol and
// must only run after the Mapper has released the buffer.
type Renderer struct {
	dev plotcore.Device
}

// NewRenderer creates a renderer drawing through dev.
func NewRenderer(dev plotcore.Device) *Renderer {
	return &Renderer{dev: dev}
}

// DrawTile sources the binder's buffer as a width×height image and draws
// it into rect. Texture coordinates map (0,0) to the bottom-left of the
// quad and (1,1) to the top-right, consistent with the Field ordering.
func (r *Renderer) DrawTile(b *Binder, width, height int, rect plotcore.Rect) error {
	if !b.Bound() {
		return ErrNoBuffer
	}
	if err := r.dev.Blit(b.Binding(), width, height, rect); err != nil {
		return fmt.Errorf("fieldplot: draw tile: %w", err)
	}
	return nil
}
