// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"errors"
	"image/color"
	"testing"

	"github.com/gogpu/fieldplot/plotcore"
)

func newTestDevice(t *testing.T, w, h int) *SoftwareDevice {
	t.Helper()
	dev := NewSoftwareDevice(Options{FrameWidth: w, FrameHeight: h})
	t.Cleanup(func() { dev.Close() })
	return dev
}

// register allocates and registers a width×height RGB buffer filled
// with the given bytes.
func register(t *testing.T, dev *SoftwareDevice, width, height int, rgb []byte) (plotcore.BufferID, plotcore.BindingID) {
	t.Helper()
	buf, err := dev.CreateBuffer(3 * width * height)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	bind, err := dev.Register(buf, width, height)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	dst, err := dev.AcquireWrite(buf)
	if err != nil {
		t.Fatalf("AcquireWrite: %v", err)
	}
	copy(dst, rgb)
	if err := dev.ReleaseWrite(buf); err != nil {
		t.Fatalf("ReleaseWrite: %v", err)
	}
	return buf, bind
}

func framePixel(t *testing.T, dev *SoftwareDevice, x, y int) color.RGBA {
	t.Helper()
	img, err := dev.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	return img.RGBAAt(x, y)
}

// A full-surface blit of a 2x2 source must land the source's top row on
// the top of the frame: source rows are ordered bottom-up, frame rows
// top-down.
func TestSoftwareBlitOrientation(t *testing.T) {
	dev := newTestDevice(t, 4, 4)
	// Row 0 (bottom): red, green. Row 1 (top): blue, white.
	_, bind := register(t, dev, 2, 2, []byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 255, 255, 255,
	})

	full := plotcore.Rect{X0: -1, X1: 1, Y0: -1, Y1: 1}
	if err := dev.Blit(bind, 2, 2, full); err != nil {
		t.Fatalf("Blit: %v", err)
	}

	tests := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"top-left is blue", 0, 0, color.RGBA{0, 0, 255, 255}},
		{"top-right is white", 3, 0, color.RGBA{255, 255, 255, 255}},
		{"bottom-left is red", 0, 3, color.RGBA{255, 0, 0, 255}},
		{"bottom-right is green", 3, 3, color.RGBA{0, 255, 0, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := framePixel(t, dev, tt.x, tt.y); got != tt.want {
				t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

// A blit into the left half leaves the right half untouched.
func TestSoftwareBlitPartialRect(t *testing.T) {
	dev := newTestDevice(t, 4, 4)
	_, bind := register(t, dev, 1, 1, []byte{255, 0, 0})

	left := plotcore.Rect{X0: -1, X1: 0, Y0: -1, Y1: 1}
	if err := dev.Blit(bind, 1, 1, left); err != nil {
		t.Fatalf("Blit: %v", err)
	}

	red := color.RGBA{255, 0, 0, 255}
	black := color.RGBA{0, 0, 0, 255}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := black
			if x < 2 {
				want = red
			}
			if got := framePixel(t, dev, x, y); got != want {
				t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

// An off-surface rect clips instead of faulting.
func TestSoftwareBlitClips(t *testing.T) {
	dev := newTestDevice(t, 4, 4)
	_, bind := register(t, dev, 1, 1, []byte{0, 255, 0})

	wide := plotcore.Rect{X0: -3, X1: 3, Y0: -3, Y1: 3}
	if err := dev.Blit(bind, 1, 1, wide); err != nil {
		t.Fatalf("Blit with oversized rect: %v", err)
	}
	if got := framePixel(t, dev, 0, 0); got != (color.RGBA{0, 255, 0, 255}) {
		t.Errorf("pixel (0,0) = %v, want green", got)
	}
}

func TestSoftwareProtocolViolations(t *testing.T) {
	t.Run("double acquire", func(t *testing.T) {
		dev := newTestDevice(t, 2, 2)
		buf, _ := register(t, dev, 1, 1, []byte{0, 0, 0})
		if _, err := dev.AcquireWrite(buf); err != nil {
			t.Fatalf("AcquireWrite: %v", err)
		}
		if _, err := dev.AcquireWrite(buf); !errors.Is(err, ErrWriteWindowOpen) {
			t.Errorf("second AcquireWrite = %v, want ErrWriteWindowOpen", err)
		}
	})

	t.Run("release without acquire", func(t *testing.T) {
		dev := newTestDevice(t, 2, 2)
		buf, _ := register(t, dev, 1, 1, []byte{0, 0, 0})
		if err := dev.ReleaseWrite(buf); !errors.Is(err, ErrWriteWindowClosed) {
			t.Errorf("ReleaseWrite = %v, want ErrWriteWindowClosed", err)
		}
	})

	t.Run("blit during open write window", func(t *testing.T) {
		dev := newTestDevice(t, 2, 2)
		buf, bind := register(t, dev, 1, 1, []byte{0, 0, 0})
		if _, err := dev.AcquireWrite(buf); err != nil {
			t.Fatalf("AcquireWrite: %v", err)
		}
		full := plotcore.Rect{X0: -1, X1: 1, Y0: -1, Y1: 1}
		if err := dev.Blit(bind, 1, 1, full); !errors.Is(err, ErrWriteWindowOpen) {
			t.Errorf("Blit = %v, want ErrWriteWindowOpen", err)
		}
	})

	t.Run("destroy registered buffer", func(t *testing.T) {
		dev := newTestDevice(t, 2, 2)
		buf, _ := register(t, dev, 1, 1, []byte{0, 0, 0})
		if err := dev.DestroyBuffer(buf); !errors.Is(err, ErrBufferBound) {
			t.Errorf("DestroyBuffer = %v, want ErrBufferBound", err)
		}
	})

	t.Run("register twice", func(t *testing.T) {
		dev := newTestDevice(t, 2, 2)
		buf, _ := register(t, dev, 1, 1, []byte{0, 0, 0})
		if _, err := dev.Register(buf, 1, 1); !errors.Is(err, ErrBufferBound) {
			t.Errorf("second Register = %v, want ErrBufferBound", err)
		}
	})

	t.Run("register undersized buffer", func(t *testing.T) {
		dev := newTestDevice(t, 2, 2)
		buf, err := dev.CreateBuffer(3)
		if err != nil {
			t.Fatalf("CreateBuffer: %v", err)
		}
		if _, err := dev.Register(buf, 2, 2); !errors.Is(err, ErrBufferSize) {
			t.Errorf("Register = %v, want ErrBufferSize", err)
		}
	})

	t.Run("blit dimension mismatch", func(t *testing.T) {
		dev := newTestDevice(t, 2, 2)
		_, bind := register(t, dev, 2, 2, make([]byte, 12))
		full := plotcore.Rect{X0: -1, X1: 1, Y0: -1, Y1: 1}
		if err := dev.Blit(bind, 2, 3, full); !errors.Is(err, ErrBindingSize) {
			t.Errorf("Blit = %v, want ErrBindingSize", err)
		}
	})

	t.Run("unknown ids", func(t *testing.T) {
		dev := newTestDevice(t, 2, 2)
		if err := dev.DestroyBuffer(99); !errors.Is(err, ErrUnknownBuffer) {
			t.Errorf("DestroyBuffer(99) = %v, want ErrUnknownBuffer", err)
		}
		if err := dev.Unregister(99); !errors.Is(err, ErrUnknownBinding) {
			t.Errorf("Unregister(99) = %v, want ErrUnknownBinding", err)
		}
		if _, err := dev.AcquireWrite(99); !errors.Is(err, ErrUnknownBuffer) {
			t.Errorf("AcquireWrite(99) = %v, want ErrUnknownBuffer", err)
		}
	})
}

func TestSoftwareUnregisterThenDestroy(t *testing.T) {
	dev := newTestDevice(t, 2, 2)
	buf, bind := register(t, dev, 1, 1, []byte{0, 0, 0})

	if err := dev.Unregister(bind); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if err := dev.DestroyBuffer(buf); err != nil {
		t.Fatalf("DestroyBuffer after Unregister: %v", err)
	}
	// The buffer can be registered again while live.
	buf2, err := dev.CreateBuffer(3)
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if _, err := dev.Register(buf2, 1, 1); err != nil {
		t.Fatalf("Register fresh buffer: %v", err)
	}
}

func TestSoftwarePresentAndTitle(t *testing.T) {
	dev := newTestDevice(t, 2, 2)
	if dev.PresentCount() != 0 {
		t.Fatalf("PresentCount = %d, want 0", dev.PresentCount())
	}
	if err := dev.Present(); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if err := dev.Present(); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if dev.PresentCount() != 2 {
		t.Errorf("PresentCount = %d, want 2", dev.PresentCount())
	}

	dev.SetTitle("run 42")
	if dev.Title() != "run 42" {
		t.Errorf("Title = %q, want %q", dev.Title(), "run 42")
	}
}

func TestSoftwareReadFrameIsCopy(t *testing.T) {
	dev := newTestDevice(t, 2, 2)
	img, err := dev.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	img.SetRGBA(0, 0, color.RGBA{1, 2, 3, 4})
	if got := framePixel(t, dev, 0, 0); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("mutating the snapshot changed the device frame: %v", got)
	}
}

func TestSoftwareClose(t *testing.T) {
	dev := NewSoftwareDevice(Options{FrameWidth: 2, FrameHeight: 2})
	if err := dev.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := dev.CreateBuffer(3); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("CreateBuffer after Close = %v, want ErrDeviceClosed", err)
	}
	if err := dev.Present(); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("Present after Close = %v, want ErrDeviceClosed", err)
	}
	if _, err := dev.ReadFrame(); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("ReadFrame after Close = %v, want ErrDeviceClosed", err)
	}
}

func TestNDCToPixels(t *testing.T) {
	tests := []struct {
		name     string
		lo, hi   float64
		extent   int
		p0, p1   int
	}{
		{"full span", -1, 1, 10, 0, 10},
		{"left half", -1, 0, 10, 0, 5},
		{"right half", 0, 1, 10, 5, 10},
		{"clips low", -3, 0, 10, 0, 5},
		{"clips high", 0, 3, 10, 5, 10},
		{"degenerate span rounds to one pixel", 0.5, 0.5, 10, 7, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p0, p1 := ndcToPixels(tt.lo, tt.hi, tt.extent)
			if p0 != tt.p0 || p1 != tt.p1 {
				t.Errorf("ndcToPixels(%g, %g, %d) = (%d, %d), want (%d, %d)",
					tt.lo, tt.hi, tt.extent, p0, p1, tt.p0, tt.p1)
			}
		})
	}
}

func TestSampleIndex(t *testing.T) {
	tests := []struct {
		t    float64
		n    int
		want int
	}{
		{0, 4, 0},
		{0.99, 4, 3},
		{1, 4, 3},
		{0.5, 4, 2},
		{-0.1, 4, 0},
		{1.5, 4, 3},
	}
	for _, tt := range tests {
		if got := sampleIndex(tt.t, tt.n); got != tt.want {
			t.Errorf("sampleIndex(%g, %d) = %d, want %d", tt.t, tt.n, got, tt.want)
		}
	}
}
