package fieldplot

// Scalar is the set of numeric element types a field may hold.
type Scalar interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Field is a read-only sequence of scalar values of length width×height,
// row-major, first element at the bottom-left of the plotted rectangle,
// ordered left-to-right then bottom-to-top.
//
// Most callers should not implement Field directly; wrap a slice with
// Samples or use the generic Render entry point.
type Field interface {
	// Len returns the number of samples.
	Len() int

	// At returns sample i as a float64.
	At(i int) float64
}

// sliceField adapts a numeric slice to the Field interface.
type sliceField[T Scalar] struct {
	s []T
}

func (f sliceField[T]) Len() int         { return len(f.s) }
func (f sliceField[T]) At(i int) float64 { return float64(f.s[i]) }

// Samples wraps a numeric slice as a Field without copying.
// The slice must not be mutated while a render call is in progress.
func Samples[T Scalar](s []T) Field {
	return sliceField[T]{s: s}
}
