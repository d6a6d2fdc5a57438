package artifact

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/mj1618/list-import/internal/model"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// basicfont.Face7x13 glyph cell.
const (
	glyphWidth  = 7
	glyphHeight = 13
)

var (
	boxColor     = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	textColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor = color.RGBA{R: 0, G: 0, B: 0, A: 200}
	bannerColor  = color.RGBA{R: 0, G: 0, B: 0, A: 180}
)

// Annotate copies img and draws caption in a banner across the top plus a
// labelled box around each mark. viewportWidth is the width the element
// bounds are measured in; it scales boxes onto high-density captures.
func Annotate(img image.Image, caption string, marks []model.Element, viewportWidth int) *image.RGBA {
	rgba := toRGBA(img)
	scale := 1.0
	if viewportWidth > 0 {
		scale = float64(img.Bounds().Dx()) / float64(viewportWidth)
	}

	for _, el := range marks {
		x := int(float64(el.Bounds[0]) * scale)
		y := int(float64(el.Bounds[1]) * scale)
		w := int(float64(el.Bounds[2]) * scale)
		h := int(float64(el.Bounds[3]) * scale)
		drawRectangle(rgba, x, y, x+w, y+h, boxColor)
		drawText(rgba, el.Tag, x+2, y+glyphHeight+1)
	}

	if caption != "" {
		b := rgba.Bounds()
		banner := image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+glyphHeight+8).Intersect(b)
		draw.Draw(rgba, banner, image.NewUniform(bannerColor), image.Point{}, draw.Over)
		drawText(rgba, fitText(caption, b.Dx()-8), b.Min.X+4, b.Min.Y+glyphHeight+2)
	}
	return rgba
}

func toRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

// fitText truncates text to the glyphs that fit in width pixels.
func fitText(text string, width int) string {
	n := width / glyphWidth
	r := []rune(text)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return text
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// drawRectangle draws a two-pixel outline clipped to the image.
func drawRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	r := image.Rect(x1, y1, x2, y2).Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	src := image.NewUniform(c)
	for _, edge := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+2),
		image.Rect(r.Min.X, r.Max.Y-2, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+2, r.Max.Y),
		image.Rect(r.Max.X-2, r.Min.Y, r.Max.X, r.Max.Y),
	} {
		draw.Draw(img, edge.Intersect(r), src, image.Point{}, draw.Src)
	}
}

// drawText draws text with its baseline at (x, y) and a one-pixel outline.
func drawText(img *image.RGBA, text string, x, y int) {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			drawString(img, text, x+dx, y+dy, outlineColor)
		}
	}
	drawString(img, text, x, y, textColor)
}

func drawString(img *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
