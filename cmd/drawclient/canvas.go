package main

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/zlnvch/sketchroom/draw"
	"github.com/zlnvch/sketchroom/models"
)

var (
	backgroundColor = color.RGBA{0, 0, 0, 255}
	strokeColor     = color.RGBA{255, 255, 255, 255}
)

// ebitenCanvas draws onto target. The engine's own canvas has no target and
// drops event driven redraws, every frame repaints through a fresh canvas.
type ebitenCanvas struct {
	target    *ebiten.Image
	viewport  draw.Viewport
	lineWidth float64
}

func newEbitenCanvas(target *ebiten.Image) *ebitenCanvas {
	return &ebitenCanvas{target: target, viewport: draw.NewViewport(), lineWidth: 1}
}

func (c *ebitenCanvas) ResetTransform() {
	c.viewport = draw.NewViewport()
}

func (c *ebitenCanvas) Clear() {
	if c.target == nil {
		return
	}
	c.target.Fill(backgroundColor)
}

func (c *ebitenCanvas) SetTransform(v draw.Viewport) {
	c.viewport = v
}

func (c *ebitenCanvas) SetLineWidth(width float64) {
	c.lineWidth = width
}

func (c *ebitenCanvas) screenWidth() float32 {
	return float32(c.lineWidth * c.viewport.Scale)
}

func (c *ebitenCanvas) StrokeRect(x, y, width, height float64) {
	if c.target == nil {
		return
	}
	if width < 0 {
		x, width = x+width, -width
	}
	if height < 0 {
		y, height = y+height, -height
	}
	p := c.viewport.ToScreen(models.Point{X: x, Y: y})
	scale := c.viewport.Scale
	vector.StrokeRect(c.target, float32(p.X), float32(p.Y), float32(width*scale), float32(height*scale), c.screenWidth(), strokeColor, true)
}

func (c *ebitenCanvas) StrokeCircle(centerX, centerY, radius float64) {
	if c.target == nil {
		return
	}
	p := c.viewport.ToScreen(models.Point{X: centerX, Y: centerY})
	vector.StrokeCircle(c.target, float32(p.X), float32(p.Y), float32(radius*c.viewport.Scale), c.screenWidth(), strokeColor, true)
}

func (c *ebitenCanvas) StrokePath(points []models.Point) {
	if c.target == nil || len(points) < 2 {
		return
	}
	prev := c.viewport.ToScreen(points[0])
	for _, point := range points[1:] {
		next := c.viewport.ToScreen(point)
		vector.StrokeLine(c.target, float32(prev.X), float32(prev.Y), float32(next.X), float32(next.Y), c.screenWidth(), strokeColor, true)
		prev = next
	}
}
