package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	cachemocks "github.com/zlnvch/sketchroom/cache/mocks"
	mqmocks "github.com/zlnvch/sketchroom/mq/mocks"
	"github.com/zlnvch/sketchroom/service"
	storemocks "github.com/zlnvch/sketchroom/store/mocks"
	"github.com/zlnvch/sketchroom/worker"
)

func setupService(t *testing.T) (*service.Service, *storemocks.MockStore, *cachemocks.MockCache, *mqmocks.MockMQ, *worker.ActivityBatcher) {
	mockStore := new(storemocks.MockStore)
	mockCache := new(cachemocks.MockCache)
	mockMQ := new(mqmocks.MockMQ)

	// Real batcher that is never run; tests inspect its channel
	activityBatcher := worker.NewActivityBatcher(mockStore, time.Hour)

	svc, err := service.NewService(
		mockStore,
		mockCache,
		mockMQ,
		activityBatcher,
		nil,
		[]byte("secret"),
	)
	assert.NoError(t, err)

	return svc, mockStore, mockCache, mockMQ, activityBatcher
}

// Helper that creates a channel and wraps a mock call to signal when it's called
func wrapMockWithSignal(call *mock.Call) chan struct{} {
	done := make(chan struct{})
	call.Run(func(args mock.Arguments) {
		close(done)
	})
	return done
}

func waitFor(t *testing.T, done chan struct{}, what string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		assert.Fail(t, "timed out waiting for "+what)
	}
}
