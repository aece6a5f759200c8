package draw

import "fmt"

type Tool int

const (
	ToolRect Tool = iota
	ToolCircle
	ToolPencil
)

func (t Tool) String() string {
	switch t {
	case ToolRect:
		return "rect"
	case ToolCircle:
		return "circle"
	case ToolPencil:
		return "pencil"
	default:
		return fmt.Sprintf("Tool(%d)", int(t))
	}
}

type pointerState int

const (
	stateIdle pointerState = iota
	stateDrawing
	statePanning
)

type Key int

const (
	KeySpace Key = iota
	KeyOther
)
