package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

type ShapeType string

const (
	ShapeRect   ShapeType = "rect"
	ShapeCircle ShapeType = "circle"
	ShapePencil ShapeType = "pencil"
)

var (
	ErrUnknownShapeType = errors.New("unknown shape type")
	ErrMalformedShape   = errors.New("malformed shape")
)

// Point is a position in world space. Screen positions never use this type.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is one of Rect, Circle or Pencil. Shapes are immutable once created.
type Shape interface {
	Type() ShapeType
}

// Rect keeps signed Width and Height, a rectangle dragged up or left has
// negative dimensions.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

type Circle struct {
	CenterX float64
	CenterY float64
	Radius  float64
}

type Pencil struct {
	Points []Point
}

func (Rect) Type() ShapeType   { return ShapeRect }
func (Circle) Type() ShapeType { return ShapeCircle }
func (Pencil) Type() ShapeType { return ShapePencil }

type rectJSON struct {
	Type   ShapeType `json:"type"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
}

type circleJSON struct {
	Type    ShapeType `json:"type"`
	CenterX float64   `json:"centerX"`
	CenterY float64   `json:"centerY"`
	Radius  float64   `json:"radius"`
}

type pencilJSON struct {
	Type   ShapeType `json:"type"`
	Points []Point   `json:"points"`
}

func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal(rectJSON{Type: ShapeRect, X: r.X, Y: r.Y, Width: r.Width, Height: r.Height})
}

func (c Circle) MarshalJSON() ([]byte, error) {
	return json.Marshal(circleJSON{Type: ShapeCircle, CenterX: c.CenterX, CenterY: c.CenterY, Radius: c.Radius})
}

func (p Pencil) MarshalJSON() ([]byte, error) {
	points := p.Points
	if points == nil {
		points = []Point{}
	}
	return json.Marshal(pencilJSON{Type: ShapePencil, Points: points})
}

// rawShape accepts every variant's fields, pointers tell a missing field apart
// from a zero one.
type rawShape struct {
	Type    ShapeType `json:"type"`
	X       *float64  `json:"x"`
	Y       *float64  `json:"y"`
	Width   *float64  `json:"width"`
	Height  *float64  `json:"height"`
	CenterX *float64  `json:"centerX"`
	CenterY *float64  `json:"centerY"`
	Radius  *float64  `json:"radius"`
	Points  []Point   `json:"points"`
}

// UnmarshalShape decodes a single tagged shape object.
func UnmarshalShape(data []byte) (Shape, error) {
	var raw rawShape
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedShape, err)
	}

	switch raw.Type {
	case ShapeRect:
		if raw.X == nil || raw.Y == nil || raw.Width == nil || raw.Height == nil {
			return nil, fmt.Errorf("%w: rect requires x, y, width and height", ErrMalformedShape)
		}
		return Rect{X: *raw.X, Y: *raw.Y, Width: *raw.Width, Height: *raw.Height}, nil
	case ShapeCircle:
		if raw.CenterX == nil || raw.CenterY == nil || raw.Radius == nil {
			return nil, fmt.Errorf("%w: circle requires centerX, centerY and radius", ErrMalformedShape)
		}
		return Circle{CenterX: *raw.CenterX, CenterY: *raw.CenterY, Radius: *raw.Radius}, nil
	case ShapePencil:
		if raw.Points == nil {
			return nil, fmt.Errorf("%w: pencil requires points", ErrMalformedShape)
		}
		return Pencil{Points: raw.Points}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShapeType, raw.Type)
	}
}

type shapeMessageJSON struct {
	Shape json.RawMessage `json:"shape"`
}

// EncodeShapeMessage builds the chat message text {"shape": ...} carried by
// a chat frame and stored in ChatRecord.Message.
func EncodeShapeMessage(shape Shape) (string, error) {
	shapeBytes, err := json.Marshal(shape)
	if err != nil {
		return "", err
	}
	msgBytes, err := json.Marshal(shapeMessageJSON{Shape: shapeBytes})
	if err != nil {
		return "", err
	}
	return string(msgBytes), nil
}

// DecodeShapeMessage is the inverse of EncodeShapeMessage.
func DecodeShapeMessage(message string) (Shape, error) {
	var msg shapeMessageJSON
	if err := json.Unmarshal([]byte(message), &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedShape, err)
	}
	if len(msg.Shape) == 0 {
		return nil, fmt.Errorf("%w: missing shape", ErrMalformedShape)
	}
	return UnmarshalShape(msg.Shape)
}
