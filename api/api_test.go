package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zlnvch/sketchroom/api/ws"
	cachemocks "github.com/zlnvch/sketchroom/cache/mocks"
	"github.com/zlnvch/sketchroom/config"
	"github.com/zlnvch/sketchroom/draw"
	"github.com/zlnvch/sketchroom/draw/wsclient"
	"github.com/zlnvch/sketchroom/models"
	"github.com/zlnvch/sketchroom/store/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:    []byte("secret"),
		HistoryLimit: 1000,
		WebSocket: config.WebSocketConfig{
			SendBuffer:        16,
			OverflowPolicy:    config.OverflowDisconnect,
			MessagesPerSecond: 20,
			Burst:             30,
			MaxMessageBytes:   65536,
		},
		Activity: config.ActivityConfig{FlushInterval: time.Hour},
	}
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	mockCache := new(cachemocks.MockCache)
	mockCache.On("Subscribe", mock.Anything, "user-deleted", mock.Anything).Return(nil)
	mockCache.On("AddChat", mock.Anything, mock.Anything).Return(nil).Maybe()
	mockCache.On("InvalidateRooms", mock.Anything, mock.Anything).Return(nil).Maybe()
	mockCache.On("IsRoomComplete", mock.Anything, mock.Anything).Return(false, nil).Maybe()
	mockCache.On("AddChatsBatch", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	mockCache.On("SetRoomComplete", mock.Anything, mock.Anything).Return(nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sketchroomAPI, err := NewSketchroomAPI(memory.NewMemoryDrawStore(), nil, mockCache, nil, testConfig(), ctx)
	require.NoError(t, err)

	mux := http.NewServeMux()
	sketchroomAPI.RegisterRoutes(mux, "")
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, token string, body string, out any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func signup(t *testing.T, server *httptest.Server, username string) string {
	t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	postJSON(t, server.URL+"/signup", "", `{"username":"`+username+`","password":"secret123"}`, &resp)
	return resp.Token
}

func dial(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHealth(t *testing.T) {
	server := startServer(t)
	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRectangleReachesMemberAndHistory(t *testing.T) {
	server := startServer(t)
	tokenA := signup(t, server, "alice")
	tokenB := signup(t, server, "bob")

	var created struct {
		RoomId string      `json:"roomId"`
		Room   models.Room `json:"room"`
	}
	postJSON(t, server.URL+"/room", tokenA, `{"name":"Board"}`, &created)
	roomId := created.RoomId

	a := dial(t, server, tokenA)
	b := dial(t, server, tokenB)
	require.NoError(t, b.WriteJSON(map[string]string{"type": "join_room", "roomId": roomId}))
	require.NoError(t, a.WriteJSON(map[string]string{"type": "join_room", "roomId": roomId}))

	waitForMemberships(t, server, 2)

	rect := models.Rect{X: 10, Y: 10, Width: 50, Height: 30}
	message, err := models.EncodeShapeMessage(rect)
	require.NoError(t, err)
	require.NoError(t, a.WriteJSON(map[string]string{"type": "chat", "roomId": roomId, "message": message}))

	b.SetReadDeadline(time.Now().Add(time.Second))
	var frame struct {
		Type    string `json:"type"`
		RoomId  string `json:"roomId"`
		Message string `json:"message"`
	}
	require.NoError(t, b.ReadJSON(&frame))
	assert.Equal(t, "chat", frame.Type)
	assert.Equal(t, roomId, frame.RoomId)
	shape, err := models.DecodeShapeMessage(frame.Message)
	require.NoError(t, err)
	assert.Equal(t, rect, shape)

	// A late joiner sees the rectangle as the oldest history entry
	var history struct {
		Messages []models.ChatRecord `json:"messages"`
	}
	getJSON(t, server.URL+"/chats/"+roomId, &history)
	require.NotEmpty(t, history.Messages)
	oldest, err := models.DecodeShapeMessage(history.Messages[len(history.Messages)-1].Message)
	require.NoError(t, err)
	assert.Equal(t, rect, oldest)

	var room struct {
		Room models.Room `json:"room"`
	}
	getJSON(t, server.URL+"/room/"+roomId, &room)
	assert.Equal(t, "Board", room.Room.Name)
}

type discardCanvas struct{}

func (discardCanvas) ResetTransform()                  {}
func (discardCanvas) Clear()                           {}
func (discardCanvas) SetTransform(draw.Viewport)       {}
func (discardCanvas) SetLineWidth(float64)             {}
func (discardCanvas) StrokeRect(_, _, _, _ float64)    {}
func (discardCanvas) StrokeCircle(_, _, _ float64)     {}
func (discardCanvas) StrokePath(points []models.Point) {}

type offlineTransport struct{}

func (offlineTransport) Ready() bool       { return false }
func (offlineTransport) Send([]byte) error { return nil }

func waitForMemberships(t *testing.T, server *httptest.Server, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		resp, err := http.Get(server.URL + "/stats")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var stats ws.RegistryStats
		return json.NewDecoder(resp.Body).Decode(&stats) == nil && stats.Memberships == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDrawClientsShareShapes(t *testing.T) {
	server := startServer(t)
	ctx := context.Background()

	clientA := wsclient.NewAPI(server.URL, signup(t, server, "alice"))
	clientB := wsclient.NewAPI(server.URL, signup(t, server, "bob"))
	clientC := wsclient.NewAPI(server.URL, signup(t, server, "carol"))

	created, err := clientA.CreateRoom(ctx, "Board")
	require.NoError(t, err)
	room, err := clientB.Room(ctx, created.Slug)
	require.NoError(t, err)
	roomId := strconv.FormatInt(room.Id, 10)

	wsURL, err := clientA.WebSocketURL()
	require.NoError(t, err)

	connA, err := wsclient.Dial(ctx, wsURL, clientA.Token)
	require.NoError(t, err)
	defer connA.Close()
	connB, err := wsclient.Dial(ctx, wsURL, clientB.Token)
	require.NoError(t, err)
	defer connB.Close()

	engineA := draw.NewEngine(discardCanvas{}, connA, roomId)
	engineB := draw.NewEngine(discardCanvas{}, connB, roomId)

	received := make(chan struct{}, 1)
	go connA.Listen(engineA.HandleMessage)
	go connB.Listen(func(frame []byte) {
		engineB.HandleMessage(frame)
		received <- struct{}{}
	})

	require.NoError(t, connA.JoinRoom(roomId))
	require.NoError(t, connB.JoinRoom(roomId))
	waitForMemberships(t, server, 2)

	engineA.SetTool(draw.ToolRect)
	engineA.PointerDown(draw.ScreenPoint{X: 10, Y: 10})
	engineA.PointerMove(draw.ScreenPoint{X: 30, Y: 30})
	engineA.PointerUp(draw.ScreenPoint{X: 60, Y: 40})

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("bob never received the rectangle")
	}

	rect := models.Rect{X: 10, Y: 10, Width: 50, Height: 30}
	assert.Equal(t, []models.Shape{rect}, engineA.Shapes())
	assert.Equal(t, []models.Shape{rect}, engineB.Shapes())

	// Carol joins late and sees it through history
	engineC := draw.NewEngine(discardCanvas{}, offlineTransport{}, roomId)
	select {
	case <-engineC.Start(ctx, clientC):
	case <-time.After(2 * time.Second):
		t.Fatal("history seed did not finish")
	}
	shapes := engineC.Shapes()
	require.NotEmpty(t, shapes)
	assert.Equal(t, rect, shapes[0])
}
