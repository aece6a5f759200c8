package mq

import (
	"context"
	"encoding/json"
	"errors"
)

type MessageQueue interface {
	Send(ctx context.Context, body string) error
	// Receive long-polls for one message. A nil message with a nil error
	// means the poll ended empty.
	Receive(ctx context.Context, visibilityTimeout int32) (*Message, error)
	Delete(ctx context.Context, msg *Message) error
}

type Message struct {
	Id           string
	Body         string
	ReceiveCount int
}

// DeleteUserChatsMessage asks a worker to purge every shape record a deleted
// account authored.
type DeleteUserChatsMessage struct {
	UserId         string `json:"userId"`
	UserProvider   string `json:"userProvider"`
	UserProviderId string `json:"userProviderId"`
}

var ErrInvalidMessage = errors.New("invalid queue message")

func EncodeDeleteUserChats(msg DeleteUserChatsMessage) (string, error) {
	if msg.UserId == "" {
		return "", ErrInvalidMessage
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func DecodeDeleteUserChats(body string) (DeleteUserChatsMessage, error) {
	var msg DeleteUserChatsMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return DeleteUserChatsMessage{}, errors.Join(ErrInvalidMessage, err)
	}
	if msg.UserId == "" {
		return DeleteUserChatsMessage{}, ErrInvalidMessage
	}
	return msg, nil
}
