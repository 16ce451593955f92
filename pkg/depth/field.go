// Package depth defines the normalized depth field produced by the
// inference collaborator and consumed by the mesh builder.
package depth

import "fmt"

// Field is a 2D grid of normalized depth values in [0,1], row-major.
// A Field is produced once per inference call and never mutated after
// construction, so it can feed any number of rebuilds.
type Field struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Values []float64 `json:"values"` // row-major, len == Width*Height
}

// New creates a Field from row-major values. The value slice is adopted,
// not copied; callers must not retain it.
func New(width, height int, values []float64) (*Field, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("depth field dimensions %dx%d must be positive", width, height)
	}
	if len(values) != width*height {
		return nil, fmt.Errorf("depth field has %d values, want %d (%dx%d)", len(values), width*height, width, height)
	}
	return &Field{Width: width, Height: height, Values: values}, nil
}

// Constant creates a uniform Field where every cell holds v.
func Constant(width, height int, v float64) (*Field, error) {
	values := make([]float64, width*height)
	for i := range values {
		values[i] = v
	}
	return New(width, height, values)
}

// At returns the depth value at column x, row y. No bounds checking
// beyond the slice's own; callers index within Width/Height.
func (f *Field) At(x, y int) float64 {
	return f.Values[y*f.Width+x]
}

// Len returns the number of cells in the grid.
func (f *Field) Len() int {
	return f.Width * f.Height
}
