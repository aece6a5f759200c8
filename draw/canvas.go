package draw

import "github.com/zlnvch/sketchroom/models"

// Canvas is the drawing surface the Engine renders to. Coordinates passed to
// the Stroke methods are in world space, the canvas applies the transform set
// by SetTransform. Line width is in world units as well.
type Canvas interface {
	ResetTransform()
	Clear()
	SetTransform(v Viewport)
	SetLineWidth(width float64)
	StrokeRect(x, y, width, height float64)
	StrokeCircle(centerX, centerY, radius float64)
	StrokePath(points []models.Point)
}

func strokeShape(canvas Canvas, shape models.Shape) {
	switch s := shape.(type) {
	case models.Rect:
		canvas.StrokeRect(s.X, s.Y, s.Width, s.Height)
	case models.Circle:
		radius := s.Radius
		if radius < 0 {
			radius = -radius
		}
		canvas.StrokeCircle(s.CenterX, s.CenterY, radius)
	case models.Pencil:
		if len(s.Points) > 1 {
			canvas.StrokePath(s.Points)
		}
	}
}
