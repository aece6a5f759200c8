package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/zlnvch/sketchroom/mq"
)

var _ mq.MessageQueue = (*MockMQ)(nil)

type MockMQ struct {
	mock.Mock
}

func (m *MockMQ) Send(ctx context.Context, body string) error {
	return m.Called(ctx, body).Error(0)
}

func (m *MockMQ) Receive(ctx context.Context, visibilityTimeout int32) (*mq.Message, error) {
	args := m.Called(ctx, visibilityTimeout)
	msg, _ := args.Get(0).(*mq.Message)
	return msg, args.Error(1)
}

func (m *MockMQ) Delete(ctx context.Context, msg *mq.Message) error {
	return m.Called(ctx, msg).Error(0)
}

// ExpectPurge expects one Send carrying a chat purge request for userId.
func (m *MockMQ) ExpectPurge(userId string) *mock.Call {
	return m.On("Send", mock.Anything, mock.MatchedBy(func(body string) bool {
		msg, err := mq.DecodeDeleteUserChats(body)
		return err == nil && msg.UserId == userId
	}))
}
