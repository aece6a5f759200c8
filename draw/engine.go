package draw

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"slices"
	"sync"

	"github.com/zlnvch/sketchroom/models"
)

// HistoryLimit is the number of records fetched to seed a room.
const HistoryLimit = 1000

// Transport carries outbound frames to the server.
type Transport interface {
	Ready() bool
	Send(frame []byte) error
}

// HistoryFetcher returns the most recent records of a room, newest first.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, roomId string, limit int) ([]models.ChatRecord, error)
}

type chatFrame struct {
	Type    string `json:"type"`
	RoomId  string `json:"roomId"`
	Message string `json:"message"`
}

// Engine holds the local shape list of one room and turns pointer input into
// shapes. It is safe for concurrent use, history and remote frames arrive on
// other goroutines than input.
type Engine struct {
	mu        sync.Mutex
	canvas    Canvas
	transport Transport
	roomId    string

	shapes   []models.Shape
	viewport Viewport
	tool     Tool
	state    pointerState
	panMode  bool

	anchor    models.Point
	panAnchor ScreenPoint
	path      []models.Point
	preview   models.Shape
}

func NewEngine(canvas Canvas, transport Transport, roomId string) *Engine {
	return &Engine{
		canvas:    canvas,
		transport: transport,
		roomId:    roomId,
		viewport:  NewViewport(),
		tool:      ToolPencil,
	}
}

// Start seeds the shape list from history in the background. History goes
// before any shape already received. The returned channel is closed once the
// fetch has been applied or failed.
func (e *Engine) Start(ctx context.Context, fetcher HistoryFetcher) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		records, err := fetcher.FetchHistory(ctx, e.roomId, HistoryLimit)
		if err != nil {
			log.Printf("Failed to fetch history for room %s: %v", e.roomId, err)
			return
		}

		history := make([]models.Shape, 0, len(records))
		for _, record := range slices.Backward(records) {
			shape, err := models.DecodeShapeMessage(record.Message)
			if err != nil {
				log.Printf("Skipping history record %d: %v", record.Id, err)
				continue
			}
			history = append(history, shape)
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		e.shapes = append(history, e.shapes...)
		e.redraw()
	}()
	return done
}

func (e *Engine) SetTool(tool Tool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tool = tool
}

func (e *Engine) Tool() Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool
}

func (e *Engine) Viewport() Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewport
}

// Shapes returns a copy of the shape list in insertion order.
func (e *Engine) Shapes() []models.Shape {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.shapes)
}

func (e *Engine) KeyDown(key Key) {
	if key != KeySpace {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.panMode = true
}

func (e *Engine) KeyUp(key Key) {
	if key != KeySpace {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.panMode = false
}

func (e *Engine) PointerDown(p ScreenPoint) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.panMode {
		e.state = statePanning
		e.panAnchor = p
		return
	}

	e.state = stateDrawing
	e.anchor = e.viewport.ToWorld(p)
	e.preview = nil
	e.path = nil
	if e.tool == ToolPencil {
		e.path = []models.Point{e.anchor}
	}
}

func (e *Engine) PointerMove(p ScreenPoint) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case statePanning:
		e.viewport = e.viewport.Pan(p.X-e.panAnchor.X, p.Y-e.panAnchor.Y)
		e.panAnchor = p
		e.render()

	case stateDrawing:
		world := e.viewport.ToWorld(p)
		if e.tool == ToolPencil {
			e.path = append(e.path, world)
			e.preview = models.Pencil{Points: e.path}
		} else {
			e.preview = e.shapeTo(world)
		}
		e.render()
	}
}

func (e *Engine) PointerUp(p ScreenPoint) {
	frame := e.finishStroke(p)
	if frame == nil {
		return
	}

	if !e.transport.Ready() {
		log.Printf("Transport not ready, shape kept locally only")
		return
	}
	if err := e.transport.Send(frame); err != nil {
		log.Printf("Failed to send shape to room %s: %v", e.roomId, err)
	}
}

// finishStroke ends the current gesture and returns the chat frame to send,
// or nil when nothing was drawn.
func (e *Engine) finishStroke(p ScreenPoint) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := e.state
	e.state = stateIdle
	if state != stateDrawing {
		return nil
	}

	var shape models.Shape
	if e.tool == ToolPencil {
		// A click without drag is not a stroke
		if len(e.path) >= 2 {
			shape = models.Pencil{Points: e.path}
		}
	} else {
		shape = e.shapeTo(e.viewport.ToWorld(p))
	}
	e.path = nil
	e.preview = nil

	if shape == nil {
		e.redraw()
		return nil
	}

	e.shapes = append(e.shapes, shape)
	e.redraw()

	message, err := models.EncodeShapeMessage(shape)
	if err != nil {
		log.Printf("Failed to encode shape: %v", err)
		return nil
	}
	frame, err := json.Marshal(chatFrame{Type: "chat", RoomId: e.roomId, Message: message})
	if err != nil {
		log.Printf("Failed to encode chat frame: %v", err)
		return nil
	}
	return frame
}

// shapeTo builds the rect or circle spanning from the anchor to world.
func (e *Engine) shapeTo(world models.Point) models.Shape {
	switch e.tool {
	case ToolCircle:
		dx := world.X - e.anchor.X
		dy := world.Y - e.anchor.Y
		return models.Circle{CenterX: e.anchor.X, CenterY: e.anchor.Y, Radius: math.Hypot(dx, dy)}
	default:
		return models.Rect{X: e.anchor.X, Y: e.anchor.Y, Width: world.X - e.anchor.X, Height: world.Y - e.anchor.Y}
	}
}

func (e *Engine) Wheel(p ScreenPoint, delta float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.viewport = e.viewport.ZoomAt(p, delta)
	e.render()
}

// HandleMessage applies one inbound frame. Anything but a chat frame with a
// valid shape is ignored.
func (e *Engine) HandleMessage(data []byte) {
	var frame chatFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("Invalid frame: %v", err)
		return
	}
	if frame.Type != "chat" {
		return
	}

	shape, err := models.DecodeShapeMessage(frame.Message)
	if err != nil {
		log.Printf("Invalid shape in room %s: %v", frame.RoomId, err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.shapes = append(e.shapes, shape)
	e.render()
}

// Redraw clears the canvas and strokes every shape under the current
// viewport.
func (e *Engine) Redraw() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.redraw()
}

// Render is Redraw plus the in-progress preview, if any.
func (e *Engine) Render() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.render()
}

// RenderTo renders onto canvas instead of the engine's own canvas, for
// surfaces that only accept drawing inside a frame callback.
func (e *Engine) RenderTo(canvas Canvas) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderOn(canvas)
}

func (e *Engine) redraw() {
	e.redrawOn(e.canvas)
}

func (e *Engine) render() {
	e.renderOn(e.canvas)
}

func (e *Engine) redrawOn(canvas Canvas) {
	canvas.ResetTransform()
	canvas.Clear()
	canvas.SetTransform(e.viewport)
	canvas.SetLineWidth(e.viewport.StrokeWidth())
	for _, shape := range e.shapes {
		strokeShape(canvas, shape)
	}
}

func (e *Engine) renderOn(canvas Canvas) {
	e.redrawOn(canvas)
	if e.preview != nil {
		strokeShape(canvas, e.preview)
	}
}
