package geometry

// Bounds are the resize limits of a window. A max of Unbounded (-1) means
// no upper limit on that axis.
type Bounds struct {
	MinWidth  int
	MinHeight int
	MaxWidth  int
	MaxHeight int
}

// ClampSize applies the bounds to a candidate size.
func (b Bounds) ClampSize(s Size) Size {
	return Size{
		Width:  clampAxis(s.Width, b.MinWidth, b.MaxWidth),
		Height: clampAxis(s.Height, b.MinHeight, b.MaxHeight),
	}
}

func clampAxis(v, lo, hi int) int {
	if hi == Unbounded {
		return max(v, lo)
	}
	return Clamp(v, lo, hi)
}

// Drag moves r by (dx, dy) and keeps it inside the viewport. When the window
// is larger than the viewport its top-left corner sticks to the origin.
// A zero viewport leaves the position unconstrained.
func Drag(r Rect, dx, dy int, viewport Size) Rect {
	r.X += dx
	r.Y += dy
	if viewport.Width > 0 {
		r.X = Clamp(r.X, 0, max(0, viewport.Width-r.Width))
	}
	if viewport.Height > 0 {
		r.Y = Clamp(r.Y, 0, max(0, viewport.Height-r.Height))
	}
	return r
}

// Resize grows r by (dw, dh) from its bottom-right corner within b.
func Resize(r Rect, dw, dh int, b Bounds) Rect {
	s := b.ClampSize(Size{Width: r.Width + dw, Height: r.Height + dh})
	r.Width = s.Width
	r.Height = s.Height
	return r
}
