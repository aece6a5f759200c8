package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/oauth2"

	"github.com/zlnvch/sketchroom/api/rest"
	"github.com/zlnvch/sketchroom/api/ws"
	"github.com/zlnvch/sketchroom/cache"
	"github.com/zlnvch/sketchroom/config"
	"github.com/zlnvch/sketchroom/mq"
	"github.com/zlnvch/sketchroom/service"
	"github.com/zlnvch/sketchroom/store"
	"github.com/zlnvch/sketchroom/worker"
)

type SketchroomAPI struct {
	restHandler *rest.Handler
	wsHandler   *ws.Handler
	wsHub       *ws.Hub
	shutdownCtx context.Context
}

// NewSketchroomAPI starts the hub and the background workers, they stop when
// shutdownCtx is cancelled. deleteUserChatsQueue may be nil, account
// deletions are then not purged.
func NewSketchroomAPI(
	drawStore store.DrawStore,
	deleteUserChatsQueue mq.MessageQueue,
	drawCache cache.DrawCache,
	oauthConfigs map[string]*oauth2.Config,
	cfg *config.Config,
	shutdownCtx context.Context,
) (*SketchroomAPI, error) {
	wsHub := ws.NewHub(drawCache, ws.OverflowPolicy(cfg.WebSocket.OverflowPolicy))
	go wsHub.Run(shutdownCtx)

	err := wsHub.InitSubscriptions(shutdownCtx)
	if err != nil {
		log.Printf("Failed to start WS Hub subscriptions service: %v", err)
		return &SketchroomAPI{}, err
	}

	activityBatcher := worker.NewActivityBatcher(drawStore, cfg.Activity.FlushInterval)
	go activityBatcher.Run(shutdownCtx)

	if deleteUserChatsQueue != nil {
		mqConsumer := worker.NewMQConsumer(deleteUserChatsQueue, drawStore, drawCache)
		go mqConsumer.Run(shutdownCtx)
	}

	svc, err := service.NewService(
		drawStore,
		drawCache,
		deleteUserChatsQueue,
		activityBatcher,
		oauthConfigs,
		cfg.JWTSecret,
	)
	if err != nil {
		log.Printf("Failed to create service: %v", err)
		return &SketchroomAPI{}, err
	}
	svc.HistoryLimit = cfg.HistoryLimit
	svc.MaxMessageBytes = int(cfg.WebSocket.MaxMessageBytes)

	restHandler := rest.NewHandler(svc)
	wsHandler := ws.NewHandler(svc, wsHub, ws.ClientOptions{
		SendBuffer:        cfg.WebSocket.SendBuffer,
		MessagesPerSecond: cfg.WebSocket.MessagesPerSecond,
		Burst:             cfg.WebSocket.Burst,
		MaxMessageBytes:   cfg.WebSocket.MaxMessageBytes,
	})

	return &SketchroomAPI{
		restHandler: restHandler,
		wsHandler:   wsHandler,
		wsHub:       wsHub,
		shutdownCtx: shutdownCtx,
	}, nil
}

func (sketchroomAPI *SketchroomAPI) RegisterRoutes(mux *http.ServeMux, allowedOrigin string) {
	// Health check endpoint (no auth required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /stats", sketchroomAPI.handleStats)

	mux.HandleFunc("/signup", sketchroomAPI.restHandler.HandleSignup)
	mux.HandleFunc("/signin", sketchroomAPI.restHandler.HandleSignin)
	mux.HandleFunc("/login", sketchroomAPI.restHandler.HandleLogin)
	mux.HandleFunc("/me", sketchroomAPI.restHandler.HandleMe)
	mux.HandleFunc("POST /room", sketchroomAPI.restHandler.HandleCreateRoom)
	mux.HandleFunc("GET /room/{slug}", sketchroomAPI.restHandler.HandleGetRoom)
	mux.HandleFunc("GET /chats/{roomId}", sketchroomAPI.restHandler.HandleGetChats)

	wsUpgrader := sketchroomAPI.wsHandler.NewWsUpgrader(allowedOrigin)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		sketchroomAPI.wsHandler.ServeWS(wsUpgrader, w, r, sketchroomAPI.shutdownCtx)
	})
}

func (sketchroomAPI *SketchroomAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := sketchroomAPI.wsHub.Stats(r.Context())
	if err != nil {
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
