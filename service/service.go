package service

import (
	"golang.org/x/oauth2"

	"github.com/zlnvch/sketchroom/cache"
	"github.com/zlnvch/sketchroom/mq"
	"github.com/zlnvch/sketchroom/store"
	"github.com/zlnvch/sketchroom/worker"
)

const (
	DefaultHistoryLimit    = 1000
	DefaultMaxMessageBytes = 64 * 1024
)

type Service struct {
	Store           store.DrawStore
	Cache           cache.DrawCache
	MQ              mq.MessageQueue
	ActivityBatcher *worker.ActivityBatcher
	OAuthConfigs    map[string]*oauth2.Config
	JWTSecret       []byte

	// HistoryLimit bounds every recent-history read.
	HistoryLimit int
	// MaxMessageBytes bounds the chat message text of a single shape.
	MaxMessageBytes int
}

func NewService(
	store store.DrawStore,
	cache cache.DrawCache,
	mq mq.MessageQueue,
	activityBatcher *worker.ActivityBatcher,
	oauthConfigs map[string]*oauth2.Config,
	jwtSecret []byte,
) (*Service, error) {
	oauthConfigs, err := addOauthEndpointsAndScopes(oauthConfigs)
	if err != nil {
		return nil, err
	}

	return &Service{
		Store:           store,
		Cache:           cache,
		MQ:              mq,
		ActivityBatcher: activityBatcher,
		OAuthConfigs:    oauthConfigs,
		JWTSecret:       jwtSecret,
		HistoryLimit:    DefaultHistoryLimit,
		MaxMessageBytes: DefaultMaxMessageBytes,
	}, nil
}
