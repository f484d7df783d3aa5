package fieldplot

import "math"

// RGB is a single color-mapped cell value, 8 bits per channel.
type RGB struct {
	R, G, B uint8
}

// ColorMap maps one scalar field value to an RGB triple.
//
// A ColorMap must be a pure function of its input: Map may be called once
// per field cell on every render and must not retain state between calls.
// The built-in maps expect values in [0, 1] and clamp anything outside;
// use Normalized to rescale an arbitrary data range first.
type ColorMap interface {
	Map(v float64) RGB
}

// ColorMapFunc adapts an ordinary function to the ColorMap interface.
type ColorMapFunc func(v float64) RGB

// Map calls f(v).
func (f ColorMapFunc) Map(v float64) RGB { return f(v) }

// clamp01 clamps v to [0, 1]. NaN maps to 0.
func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// channel converts a [0, 1] intensity to an 8-bit channel value.
func channel(v float64) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}

// Grayscale returns a colormap rendering [0, 1] as black through white.
func Grayscale() ColorMap {
	return ColorMapFunc(func(v float64) RGB {
		c := channel(v)
		return RGB{R: c, G: c, B: c}
	})
}

// Rainbow returns the classic blue→cyan→green→yellow→red colormap over
// [0, 1]. 0 maps to pure blue, 1 to pure red.
func Rainbow() ColorMap {
	return ColorMapFunc(func(v float64) RGB {
		v = clamp01(v)
		switch {
		case v < 0.25:
			// blue → cyan
			return RGB{G: channel(v / 0.25), B: 255}
		case v < 0.5:
			// cyan → green
			return RGB{G: 255, B: channel(1 - (v-0.25)/0.25)}
		case v < 0.75:
			// green → yellow
			return RGB{R: channel((v - 0.5) / 0.25), G: 255}
		default:
			// yellow → red
			return RGB{R: 255, G: channel(1 - (v-0.75)/0.25)}
		}
	})
}

// Heat returns a black→red→yellow→white colormap over [0, 1].
func Heat() ColorMap {
	return ColorMapFunc(func(v float64) RGB {
		v = clamp01(v)
		return RGB{
			R: channel(v * 3),
			G: channel(v*3 - 1),
			B: channel(v*3 - 2),
		}
	})
}

// Normalized rescales [min, max] to [0, 1] before applying cm. Values are
// clamped to the range. If min == max the midpoint 0.5 is used for every
// value, keeping the output well defined for constant fields.
func Normalized(cm ColorMap, min, max float64) ColorMap {
	return ColorMapFunc(func(v float64) RGB {
		if min == max {
			return cm.Map(0.5)
		}
		return cm.Map(clamp01((v - min) / (max - min)))
	})
}
