package service

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/zlnvch/sketchroom/models"
)

var (
	ErrInvalidShape    = errors.New("invalid shape")
	ErrInvalidRoomName = errors.New("invalid room name")
)

const (
	minPencilPoints = 2
	maxPencilPoints = 10000
	// Coordinates beyond this are almost certainly garbage and would blow up rendering
	maxCoordinate = 1e9
	maxRoomName   = 64
)

// ValidateShapeMessage decodes the chat message text of a shape event and
// checks the shape is drawable. maxBytes <= 0 disables the size check.
func ValidateShapeMessage(message string, maxBytes int) (models.Shape, error) {
	if maxBytes > 0 && len(message) > maxBytes {
		return nil, fmt.Errorf("%w: message is %d bytes, limit %d", ErrInvalidShape, len(message), maxBytes)
	}

	shape, err := models.DecodeShapeMessage(message)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShape, err)
	}

	if err := ValidateShape(shape); err != nil {
		return nil, err
	}
	return shape, nil
}

func ValidateShape(shape models.Shape) error {
	switch s := shape.(type) {
	case models.Rect:
		// Negative width and height are valid, they mark the drag direction
		if !allFinite(s.X, s.Y, s.Width, s.Height) {
			return fmt.Errorf("%w: rect has non-finite coordinates", ErrInvalidShape)
		}
	case models.Circle:
		if !allFinite(s.CenterX, s.CenterY, s.Radius) {
			return fmt.Errorf("%w: circle has non-finite coordinates", ErrInvalidShape)
		}
		if s.Radius < 0 {
			return fmt.Errorf("%w: circle radius is negative", ErrInvalidShape)
		}
	case models.Pencil:
		if len(s.Points) < minPencilPoints {
			return fmt.Errorf("%w: pencil needs at least %d points", ErrInvalidShape, minPencilPoints)
		}
		if len(s.Points) > maxPencilPoints {
			return fmt.Errorf("%w: pencil has more than %d points", ErrInvalidShape, maxPencilPoints)
		}
		for _, p := range s.Points {
			if !allFinite(p.X, p.Y) {
				return fmt.Errorf("%w: pencil has non-finite points", ErrInvalidShape)
			}
		}
	default:
		return fmt.Errorf("%w: %w", ErrInvalidShape, models.ErrUnknownShapeType)
	}
	return nil
}

func allFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > maxCoordinate {
			return false
		}
	}
	return true
}

func ValidateRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxRoomName {
		return "", fmt.Errorf("%w: must be 1 to %d characters", ErrInvalidRoomName, maxRoomName)
	}
	return name, nil
}
