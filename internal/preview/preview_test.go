package preview

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/bryanchriswhite/deskpane/internal/geometry"
)

func TestRenderScalesCanvas(t *testing.T) {
	img := Render(nil, Options{Viewport: geometry.Size{Width: 1000, Height: 800}, Scale: 0.5})
	if b := img.Bounds(); b.Dx() != 500 || b.Dy() != 400 {
		t.Errorf("expected 500x400, got %dx%d", b.Dx(), b.Dy())
	}

	img = Render(nil, Options{Viewport: geometry.Size{Width: 1000, Height: 800}, Scale: 4})
	if b := img.Bounds(); b.Dx() != 1000 {
		t.Errorf("expected scale clamped to 1, got width %d", b.Dx())
	}
}

func TestRenderTopFrameWins(t *testing.T) {
	vp := geometry.Size{Width: 200, Height: 200}
	frames := []Frame{
		{Rect: geometry.Rect{X: 0, Y: 0, Width: 200, Height: 200}, Title: "bottom"},
		{Rect: geometry.Rect{X: 50, Y: 50, Width: 100, Height: 100}, Title: "top", Active: true},
	}

	img := Render(frames, Options{Viewport: vp, Scale: 1, BodyOpacity: 1})

	// inside the top window's titlebar
	if got := img.RGBAAt(100, 55); got != activeTitleColor {
		t.Errorf("expected active titlebar color at (100,55), got %v", got)
	}
	// inside the bottom window's body, outside the top window
	if got := img.RGBAAt(20, 150); got != bodyColor {
		t.Errorf("expected body color at (20,150), got %v", got)
	}
	// inactive titlebar of the bottom window, right of the title text
	if got := img.RGBAAt(190, 5); got != inactiveTitleColor {
		t.Errorf("expected inactive titlebar color at (190,5), got %v", got)
	}
}

func TestRenderOffscreenFrameIsClipped(t *testing.T) {
	vp := geometry.Size{Width: 100, Height: 100}
	frames := []Frame{{Rect: geometry.Rect{X: -50, Y: 80, Width: 400, Height: 400}, Title: "wide"}}

	img := Render(frames, Options{Viewport: vp, Scale: 1})
	if got := img.RGBAAt(10, 10); got != (color.RGBA{R: 32, G: 36, B: 44, A: 255}) {
		t.Errorf("expected background above the frame, got %v", got)
	}
}

func TestEncodePNG(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, []Frame{{Rect: geometry.Rect{Width: 50, Height: 50}, Title: "x"}},
		Options{Viewport: geometry.Size{Width: 100, Height: 100}, Scale: 1})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 100 {
		t.Errorf("unexpected width %d", img.Bounds().Dx())
	}
}
