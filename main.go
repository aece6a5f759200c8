package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"github.com/zlnvch/sketchroom/api"
	"github.com/zlnvch/sketchroom/cache/redis"
	"github.com/zlnvch/sketchroom/config"
	"github.com/zlnvch/sketchroom/mq"
	"github.com/zlnvch/sketchroom/mq/sqsmq"
	"github.com/zlnvch/sketchroom/store"
	"github.com/zlnvch/sketchroom/store/dynamo"
	"github.com/zlnvch/sketchroom/store/memory"
	"github.com/zlnvch/sketchroom/store/postgres"
)

const shutdownTimeout = 10 * time.Second

func newDrawStore(ctx context.Context, cfg *config.Config) (store.DrawStore, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreBackendDynamo:
		dynamoStore, err := dynamo.NewDynamoDrawStore(ctx, cfg.DevMode, cfg.Store.DynamoDBEndpoint, cfg.Store.DynamoDBTable)
		return dynamoStore, func() {}, err
	case config.StoreBackendMemory:
		return memory.NewMemoryDrawStore(), func() {}, nil
	default:
		pgStore, err := postgres.NewPostgresDrawStore(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pgStore, func() { pgStore.Close() }, nil
	}
}

func oauthConfigs(cfg *config.Config) map[string]*oauth2.Config {
	configs := map[string]*oauth2.Config{}
	if cfg.OAuth.GithubClientID != "" {
		configs["github"] = &oauth2.Config{
			ClientID:     cfg.OAuth.GithubClientID,
			ClientSecret: cfg.OAuth.GithubClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURL,
		}
	}
	if cfg.OAuth.GoogleClientID != "" {
		configs["google"] = &oauth2.Config{
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURL,
		}
	}
	return configs
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	drawStore, closeStore, err := newDrawStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create %s store: %v", cfg.Store.Backend, err)
	}
	defer closeStore()

	var deleteUserChatsQueue mq.MessageQueue
	sqsQueue, err := sqsmq.NewSQSMessageQueue(ctx, cfg.DevMode, cfg.SQS.Endpoint, cfg.SQS.DeleteUserChatsQueue)
	switch {
	case err == nil:
		deleteUserChatsQueue = sqsQueue
	case cfg.DevMode:
		log.Printf("SQS unavailable, account deletions will not purge chats: %v", err)
	default:
		log.Fatalf("Failed to create SQS MQ: %v", err)
	}

	drawCache, err := redis.NewRedisDrawCache(ctx, cfg.DevMode, cfg.Redis.Endpoint)
	if err != nil {
		log.Fatalf("Failed to create redis cache: %v", err)
	}
	defer drawCache.Close()
	drawCache.SetRoomCapacity(cfg.HistoryLimit)

	shutdownCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	sketchroomAPI, err := api.NewSketchroomAPI(drawStore, deleteUserChatsQueue, drawCache, oauthConfigs(cfg), cfg, shutdownCtx)
	if err != nil {
		log.Fatalf("Failed to create sketchroom api: %v", err)
	}

	mux := http.NewServeMux()
	sketchroomAPI.RegisterRoutes(mux, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:    ":" + cfg.HostPort,
		Handler: mux,
	}

	go func() {
		log.Printf("Starting server on host port: %s\n", cfg.HostPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-shutdownCtx.Done()
	log.Printf("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}
