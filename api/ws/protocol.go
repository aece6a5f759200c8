package ws

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

type MessageType string

const (
	MessageJoinRoom  MessageType = "join_room"
	MessageLeaveRoom MessageType = "leave_room"
	MessageChat      MessageType = "chat"
)

var (
	ErrMalformedMessage   = errors.New("malformed message")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrMissingRoomId      = errors.New("missing roomId")
)

// Message is a decoded inbound frame. Message is only set for chat frames.
type Message struct {
	Type    MessageType
	RoomId  string
	Message string
}

type inboundMessage struct {
	Type    MessageType     `json:"type"`
	RoomId  json.RawMessage `json:"roomId"`
	Message json.RawMessage `json:"message"`
}

type chatFrame struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
	RoomId  string      `json:"roomId"`
}

// DecodeMessage parses an inbound frame. roomId may be a JSON string or a
// number, numbers keep their literal text.
func DecodeMessage(data []byte) (Message, error) {
	var raw inboundMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch raw.Type {
	case MessageJoinRoom, MessageLeaveRoom, MessageChat:
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, raw.Type)
	}

	roomId, err := decodeRoomId(raw.RoomId)
	if err != nil {
		return Message{}, err
	}

	msg := Message{Type: raw.Type, RoomId: roomId}
	if raw.Type == MessageChat {
		if len(raw.Message) == 0 {
			return Message{}, fmt.Errorf("%w: chat requires message", ErrMalformedMessage)
		}
		if err := json.Unmarshal(raw.Message, &msg.Message); err != nil {
			return Message{}, fmt.Errorf("%w: message must be a string", ErrMalformedMessage)
		}
	}
	return msg, nil
}

func decodeRoomId(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", ErrMissingRoomId
	}

	var roomId string
	if err := json.Unmarshal(raw, &roomId); err == nil {
		if roomId == "" {
			return "", ErrMissingRoomId
		}
		return roomId, nil
	}

	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		return "", fmt.Errorf("%w: roomId must be a string or number", ErrMalformedMessage)
	}
	return number.String(), nil
}

// EncodeChat builds the outbound chat frame relayed to room members.
func EncodeChat(roomId string, message string) ([]byte, error) {
	return json.Marshal(chatFrame{Type: MessageChat, Message: message, RoomId: roomId})
}
