package geometry

import (
	"errors"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		value, min, max, want int
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
	}

	for _, tt := range tests {
		if got := Clamp(tt.value, tt.min, tt.max); got != tt.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tt.value, tt.min, tt.max, got, tt.want)
		}
	}
}

func TestClampInvertedRangeFollowsComparisons(t *testing.T) {
	// min > max: value below min returns min, value above max returns max.
	if got := Clamp(1, 10, 0); got != 10 {
		t.Errorf("expected 10, got %d", got)
	}
	if got := Clamp(20, 10, 0); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestClampFloat(t *testing.T) {
	if got := Clamp(1.5, 0.0, 1.0); got != 1.0 {
		t.Errorf("expected 1.0, got %v", got)
	}
}

func TestElementRect(t *testing.T) {
	r, err := ElementRect(Placement{Left: "120px", Top: "-4px", Width: "600px", Height: "500px"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Rect{X: 120, Y: -4, Width: 600, Height: 500}
	if r != want {
		t.Errorf("expected %+v, got %+v", want, r)
	}
}

func TestElementRectRoundTrip(t *testing.T) {
	in := Rect{X: 120, Y: 80, Width: 300, Height: 200}
	out, err := ElementRect(in.Placement())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != in {
		t.Errorf("expected %+v, got %+v", in, out)
	}
}

func TestElementRectErrors(t *testing.T) {
	tests := []struct {
		name string
		p    Placement
		want error
	}{
		{"em unit", Placement{Left: "12em", Top: "0px", Width: "1px", Height: "1px"}, ErrMalformedGeometry},
		{"percent", Placement{Left: "0px", Top: "50%", Width: "1px", Height: "1px"}, ErrMalformedGeometry},
		{"empty", Placement{}, ErrMalformedGeometry},
		{"bare px", Placement{Left: "px", Top: "0px", Width: "1px", Height: "1px"}, ErrMalformedGeometry},
		{"negative width", Placement{Left: "0px", Top: "0px", Width: "-10px", Height: "1px"}, ErrNegativeSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ElementRect(tt.p)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCenter(t *testing.T) {
	got := Center(Size{Width: 600, Height: 500}, Size{Width: 1920, Height: 1080})
	if got != (Point{X: 660, Y: 290}) {
		t.Errorf("unexpected center %+v", got)
	}

	got = Center(Size{Width: 800, Height: 600}, Size{Width: 400, Height: 300})
	if got != (Point{}) {
		t.Errorf("expected oversize window pinned to origin, got %+v", got)
	}
}

func TestResizeRespectsBounds(t *testing.T) {
	b := Bounds{MinWidth: 300, MinHeight: 200, MaxWidth: Unbounded, MaxHeight: 400}
	r := Rect{Width: 600, Height: 300}

	got := Resize(r, -1000, 500, b)
	if got.Width != 300 || got.Height != 400 {
		t.Errorf("expected 300x400, got %dx%d", got.Width, got.Height)
	}

	got = Resize(r, 5000, 0, b)
	if got.Width != 5600 {
		t.Errorf("expected unbounded width 5600, got %d", got.Width)
	}
}

func TestDragKeepsWindowInViewport(t *testing.T) {
	vp := Size{Width: 1000, Height: 800}
	r := Rect{X: 100, Y: 100, Width: 300, Height: 200}

	tests := []struct {
		dx, dy int
		want   Point
	}{
		{50, 50, Point{150, 150}},
		{-500, 0, Point{0, 100}},
		{2000, 2000, Point{700, 600}},
	}

	for _, tt := range tests {
		got := Drag(r, tt.dx, tt.dy, vp)
		if got.X != tt.want.X || got.Y != tt.want.Y {
			t.Errorf("Drag(%d, %d) = (%d, %d), want %+v", tt.dx, tt.dy, got.X, got.Y, tt.want)
		}
		if got.Width != r.Width || got.Height != r.Height {
			t.Errorf("drag changed size to %dx%d", got.Width, got.Height)
		}
	}

	if got := Drag(r, -500, -500, Size{}); got.X != -400 || got.Y != -400 {
		t.Errorf("expected unconstrained drag without viewport, got (%d, %d)", got.X, got.Y)
	}
}
