package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/zlnvch/sketchroom/draw"
	"github.com/zlnvch/sketchroom/draw/wsclient"
)

const (
	screenWidth  = 1024
	screenHeight = 768

	// Browser wheel events report about 100 units per notch
	wheelUnitsPerNotch = 100
)

// Game adapts ebiten's input and frame loop to the draw engine.
type Game struct {
	engine     *draw.Engine
	roomName   string
	connected  atomic.Bool
	lastCursor draw.ScreenPoint
}

var toolKeys = map[ebiten.Key]draw.Tool{
	ebiten.Key1: draw.ToolRect,
	ebiten.Key2: draw.ToolCircle,
	ebiten.Key3: draw.ToolPencil,
}

func (g *Game) Update() error {
	for key, tool := range toolKeys {
		if inpututil.IsKeyJustPressed(key) {
			g.engine.SetTool(tool)
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.engine.KeyDown(draw.KeySpace)
	}
	if inpututil.IsKeyJustReleased(ebiten.KeySpace) {
		g.engine.KeyUp(draw.KeySpace)
	}

	x, y := ebiten.CursorPosition()
	cursor := draw.ScreenPoint{X: float64(x), Y: float64(y)}

	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		g.engine.PointerDown(cursor)
	case inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft):
		g.engine.PointerUp(cursor)
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) && cursor != g.lastCursor:
		g.engine.PointerMove(cursor)
	}
	g.lastCursor = cursor

	if _, dy := ebiten.Wheel(); dy != 0 {
		// ebiten reports scrolling up as positive
		g.engine.Wheel(cursor, -dy*wheelUnitsPerNotch)
	}

	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.engine.RenderTo(newEbitenCanvas(screen))

	status := "offline"
	if g.connected.Load() {
		status = "online"
	}
	viewport := g.engine.Viewport()
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"%s [%s]  tool: %s  zoom: %.2f\n1 rect  2 circle  3 pencil  space+drag pan  wheel zoom",
		g.roomName, status, g.engine.Tool(), viewport.Scale,
	))
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

func main() {
	server := flag.String("server", "http://localhost:8080", "sketchroom server base url")
	token := flag.String("token", os.Getenv("SKETCHROOM_TOKEN"), "auth token")
	username := flag.String("username", "", "sign in with this username when no token is given")
	password := flag.String("password", "", "password for -username")
	roomSlug := flag.String("room", "", "room slug")
	flag.Parse()

	if *roomSlug == "" {
		log.Fatal("-room is required")
	}

	ctx := context.Background()
	api := wsclient.NewAPI(*server, *token)
	if api.Token == "" {
		if *username == "" {
			log.Fatal("either -token or -username is required")
		}
		if _, err := api.Signin(ctx, *username, *password); err != nil {
			log.Fatalf("Sign in failed: %v", err)
		}
	}

	room, err := api.Room(ctx, *roomSlug)
	if err != nil {
		log.Fatalf("Failed to load room %s: %v", *roomSlug, err)
	}
	// Every client uses the numeric id so they share one membership key
	roomId := strconv.FormatInt(room.Id, 10)

	wsURL, err := api.WebSocketURL()
	if err != nil {
		log.Fatalf("Invalid server url: %v", err)
	}
	conn, err := wsclient.Dial(ctx, wsURL, api.Token)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	game := &Game{
		engine:   draw.NewEngine(newEbitenCanvas(nil), conn, roomId),
		roomName: room.Name,
	}

	if err := conn.JoinRoom(roomId); err != nil {
		log.Fatalf("Failed to join room: %v", err)
	}
	game.connected.Store(true)

	go func() {
		err := conn.Listen(game.engine.HandleMessage)
		game.connected.Store(false)
		log.Printf("Connection closed: %v", err)
	}()
	game.engine.Start(ctx, api)

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Sketchroom - " + room.Name)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
