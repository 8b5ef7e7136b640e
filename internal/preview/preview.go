// Package preview draws a thumbnail of the desktop: every open window as a
// framed rectangle with its title, in stacking order.
package preview

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/bryanchriswhite/deskpane/internal/geometry"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const titlebarHeight = 18

var (
	backgroundColor     = color.RGBA{R: 32, G: 36, B: 44, A: 255}
	bodyColor           = color.RGBA{R: 236, G: 239, B: 244, A: 255}
	activeTitleColor    = color.RGBA{R: 59, G: 130, B: 246, A: 255}
	inactiveTitleColor  = color.RGBA{R: 120, G: 128, B: 140, A: 255}
	titleTextColor      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	borderColor         = color.RGBA{R: 15, G: 17, B: 21, A: 255}
	defaultBodyOpacity  = 0.92
	minimumPreviewScale = 0.05
)

// Frame is one window to draw.
type Frame struct {
	Rect   geometry.Rect
	Title  string
	Active bool
}

// Options control the rendered image.
type Options struct {
	Viewport geometry.Size
	// Scale shrinks the viewport; values are clamped to [0.05, 1].
	Scale float64
	// BodyOpacity of window bodies in [0, 1]; 0 selects the default.
	BodyOpacity float64
}

// Render draws frames bottom to top onto a viewport-sized canvas.
func Render(frames []Frame, opts Options) *image.RGBA {
	scale := geometry.Clamp(opts.Scale, minimumPreviewScale, 1.0)
	opacity := opts.BodyOpacity
	if opacity <= 0 {
		opacity = defaultBodyOpacity
	}
	opacity = geometry.Clamp(opacity, 0.0, 1.0)

	w := max(1, int(float64(opts.Viewport.Width)*scale))
	h := max(1, int(float64(opts.Viewport.Height)*scale))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	for _, f := range frames {
		drawFrame(img, scaleRect(f.Rect, scale), f, opacity)
	}
	return img
}

// Encode writes the rendered preview as PNG.
func Encode(w io.Writer, frames []Frame, opts Options) error {
	return png.Encode(w, Render(frames, opts))
}

func scaleRect(r geometry.Rect, scale float64) image.Rectangle {
	x0 := int(float64(r.X) * scale)
	y0 := int(float64(r.Y) * scale)
	return image.Rect(x0, y0,
		x0+max(1, int(float64(r.Width)*scale)),
		y0+max(1, int(float64(r.Height)*scale)))
}

func drawFrame(dst *image.RGBA, r image.Rectangle, f Frame, opacity float64) {
	fillRect(dst, r, borderColor, 1.0)
	inner := r.Inset(1)
	if inner.Empty() {
		return
	}
	fillRect(dst, inner, bodyColor, opacity)

	bar := inner
	bar.Max.Y = min(inner.Max.Y, inner.Min.Y+titlebarHeight)
	titleColor := inactiveTitleColor
	if f.Active {
		titleColor = activeTitleColor
	}
	fillRect(dst, bar, titleColor, 1.0)
	drawTitle(dst, bar, f.Title)
}

// fillRect blends a solid color into dst, clipped to its bounds.
func fillRect(dst *image.RGBA, r image.Rectangle, c color.RGBA, opacity float64) {
	src := image.NewUniform(color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
	mask := image.NewUniform(color.Alpha{A: uint8(opacity * 255)})
	draw.DrawMask(dst, r.Intersect(dst.Bounds()), src, image.Point{}, mask, image.Point{}, draw.Over)
}

// drawTitle writes the title into the bar, cut to fit.
func drawTitle(dst *image.RGBA, bar image.Rectangle, title string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(titleTextColor),
		Face: face,
	}

	avail := fixed.I(bar.Dx() - 8)
	for len(title) > 0 && d.MeasureString(title) > avail {
		title = title[:len(title)-1]
	}
	if title == "" {
		return
	}

	// baseline sits 4px above the bar's bottom edge for the 13px face
	d.Dot = fixed.P(bar.Min.X+4, bar.Min.Y+face.Ascent+2)
	d.DrawString(title)
}
