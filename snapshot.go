package fieldplot

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/HugoSmits86/nativewebp"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/fieldplot/plotcore"
)

// Snapshot returns the current output surface as an RGBA image.
// The returned image is a copy; modifications do not affect the surface.
// This requires the device to support frame readback and may be slow for
// GPU devices.
func (s *Surface) Snapshot() (*image.RGBA, error) {
	if s.closed {
		return nil, ErrSurfaceClosed
	}
	fr, ok := s.dev.(plotcore.FrameReader)
	if !ok {
		return nil, ErrNoFrameAccess
	}
	img, err := fr.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("fieldplot: read frame: %w", err)
	}
	return img, nil
}

// SnapshotScaled returns the current output surface resampled to
// width×height with nearest-neighbor filtering, preserving the hard tile
// edges of the plot.
func (s *Surface) SnapshotScaled(width, height int) (*image.RGBA, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidFieldSize, width, height)
	}
	src, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		return src, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// SavePNG writes the current output surface to a PNG file.
func (s *Surface) SavePNG(path string) error {
	img, err := s.Snapshot()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fieldplot: save png: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("fieldplot: save png: %w", err)
	}
	return f.Close()
}

// SaveWebP writes the current output surface to a lossless WebP file.
func (s *Surface) SaveWebP(path string) error {
	img, err := s.Snapshot()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fieldplot: save webp: %w", err)
	}
	defer f.Close()
	if err := nativewebp.Encode(f, img, nil); err != nil {
		return fmt.Errorf("fieldplot: save webp: %w", err)
	}
	return f.Close()
}
