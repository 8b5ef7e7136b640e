// Package geometry holds the pixel math used while windows are dragged and
// resized: clamping, rectangle extraction from CSS placement, and centering.
package geometry

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Unit is the CSS unit every placement field is expressed in.
const Unit = "px"

// Unbounded marks a max width/height with no upper limit.
const Unbounded = -1

var (
	// ErrMalformedGeometry is returned when a placement field is not "<int>px".
	ErrMalformedGeometry = errors.New("malformed geometry")

	// ErrNegativeSize is returned for a rect with negative width or height.
	ErrNegativeSize = errors.New("negative rect size")
)

// Clamp returns min if value < min, max if value > max, else value.
// Callers must supply min <= max; otherwise the result follows the
// comparisons literally (min wins for small values, max for large ones).
func Clamp[T cmp.Ordered](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Point is a top-left coordinate relative to the viewport origin.
type Point struct {
	X int `json:"x" yaml:"x" mapstructure:"x"`
	Y int `json:"y" yaml:"y" mapstructure:"y"`
}

// Size is a width/height pair.
type Size struct {
	Width  int `json:"width" yaml:"width" mapstructure:"width"`
	Height int `json:"height" yaml:"height" mapstructure:"height"`
}

// Rect is a pixel rectangle relative to the viewport's top-left corner.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Validate rejects negative sizes. They come from a bad parse upstream and
// are never silently clamped.
func (r Rect) Validate() error {
	if r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("%w: %dx%d", ErrNegativeSize, r.Width, r.Height)
	}
	return nil
}

// Size returns the rect's dimensions.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Contains checks if a point is within the rect.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Placement is a surface's current CSS placement, e.g. Left: "120px".
type Placement struct {
	Left   string `json:"left"`
	Top    string `json:"top"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// Placement formats the rect as CSS pixel strings.
func (r Rect) Placement() Placement {
	return Placement{
		Left:   strconv.Itoa(r.X) + Unit,
		Top:    strconv.Itoa(r.Y) + Unit,
		Width:  strconv.Itoa(r.Width) + Unit,
		Height: strconv.Itoa(r.Height) + Unit,
	}
}

// ElementRect parses a placement into a Rect. Each field must carry the
// two-character "px" suffix; the caller guarantees unit consistency and a
// field in any other unit is reported as ErrMalformedGeometry.
func ElementRect(p Placement) (Rect, error) {
	var r Rect
	fields := []struct {
		name string
		val  string
		dst  *int
	}{
		{"left", p.Left, &r.X},
		{"top", p.Top, &r.Y},
		{"width", p.Width, &r.Width},
		{"height", p.Height, &r.Height},
	}

	for _, f := range fields {
		n, err := parsePixels(f.val)
		if err != nil {
			return Rect{}, fmt.Errorf("%s %q: %w", f.name, f.val, err)
		}
		*f.dst = n
	}

	if err := r.Validate(); err != nil {
		return Rect{}, err
	}
	return r, nil
}

func parsePixels(s string) (int, error) {
	if !strings.HasSuffix(s, Unit) {
		return 0, ErrMalformedGeometry
	}
	n, err := strconv.Atoi(s[:len(s)-len(Unit)])
	if err != nil {
		return 0, ErrMalformedGeometry
	}
	return n, nil
}

// Center returns the top-left point that centers size inside viewport.
// A window larger than the viewport is pinned to the origin on that axis.
func Center(size, viewport Size) Point {
	return Point{
		X: max(0, (viewport.Width-size.Width)/2),
		Y: max(0, (viewport.Height-size.Height)/2),
	}
}
