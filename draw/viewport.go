package draw

import (
	"math"

	"github.com/zlnvch/sketchroom/models"
)

const (
	MinScale = 0.1
	MaxScale = 5.0

	zoomSensitivity = 0.001
	baseStrokeWidth = 2.0
)

// ScreenPoint is a pixel position on the canvas. Shapes never carry screen
// points, they are converted with Viewport.ToWorld first.
type ScreenPoint struct {
	X float64
	Y float64
}

// Viewport maps world space to screen space: screen = world*Scale + Translate.
type Viewport struct {
	TranslateX float64
	TranslateY float64
	Scale      float64
}

func NewViewport() Viewport {
	return Viewport{Scale: 1}
}

func (v Viewport) ToWorld(p ScreenPoint) models.Point {
	return models.Point{
		X: (p.X - v.TranslateX) / v.Scale,
		Y: (p.Y - v.TranslateY) / v.Scale,
	}
}

func (v Viewport) ToScreen(p models.Point) ScreenPoint {
	return ScreenPoint{
		X: p.X*v.Scale + v.TranslateX,
		Y: p.Y*v.Scale + v.TranslateY,
	}
}

// Pan moves the view by a screen space delta.
func (v Viewport) Pan(dx float64, dy float64) Viewport {
	v.TranslateX += dx
	v.TranslateY += dy
	return v
}

// ZoomAt scales by exp(-delta*0.001), clamped to [MinScale, MaxScale], keeping
// the world point under cursor at the same pixel.
func (v Viewport) ZoomAt(cursor ScreenPoint, delta float64) Viewport {
	anchor := v.ToWorld(cursor)
	scale := clamp(v.Scale*math.Exp(-delta*zoomSensitivity), MinScale, MaxScale)
	return Viewport{
		TranslateX: cursor.X - anchor.X*scale,
		TranslateY: cursor.Y - anchor.Y*scale,
		Scale:      scale,
	}
}

// StrokeWidth is the world space line width that renders as a constant
// number of pixels at any zoom level.
func (v Viewport) StrokeWidth() float64 {
	return baseStrokeWidth / v.Scale
}

func clamp(value float64, low float64, high float64) float64 {
	return math.Max(low, math.Min(high, value))
}
