package ws

import (
	"context"
	"fmt"

	"github.com/zlnvch/sketchroom/service"
)

// HandleChat persists a chat frame and, only once the store accepted it,
// relays it to the other members of the room. The sender does not have to be
// a member.
func (h *Handler) HandleChat(ctx context.Context, origin *Client, msg Message) error {
	_, err := h.Service.AppendShape(ctx, service.AppendShapeParams{
		User:    origin.user,
		RoomId:  msg.RoomId,
		Message: msg.Message,
	})
	if err != nil {
		return err
	}

	payload, err := EncodeChat(msg.RoomId, msg.Message)
	if err != nil {
		return fmt.Errorf("encode chat frame: %w", err)
	}
	h.Hub.Broadcast(origin, msg.RoomId, payload)
	return nil
}
