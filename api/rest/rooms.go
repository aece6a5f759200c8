package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/zlnvch/sketchroom/models"
	"github.com/zlnvch/sketchroom/service"
)

type createRoomRequest struct {
	Name string `json:"name"`
}

type createRoomResponse struct {
	RoomId string      `json:"roomId"`
	Room   models.Room `json:"room"`
}

type roomResponse struct {
	Room models.Room `json:"room"`
}

type chatsResponse struct {
	Messages []models.ChatRecord `json:"messages"`
}

// HandleCreateRoom answers with the new room's slug in roomId.
func (h *Handler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Incorrect inputs")
		return
	}

	room, err := h.Service.CreateRoom(r.Context(), user, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRoomName) {
			h.sendError(w, http.StatusBadRequest, "Incorrect inputs")
			return
		}
		log.Printf("Create room for user %s failed: %v", user.Id, err)
		h.sendError(w, http.StatusInternalServerError, "Room could not be created")
		return
	}

	h.sendResponse(w, createRoomResponse{RoomId: room.Slug, Room: room})
}

func (h *Handler) HandleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.Service.GetRoomBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			h.sendError(w, http.StatusNotFound, "room not found")
			return
		}
		log.Printf("Get room %s failed: %v", r.PathValue("slug"), err)
		h.sendError(w, http.StatusInternalServerError, "room lookup failed")
		return
	}

	h.sendResponse(w, roomResponse{Room: room})
}

// HandleGetChats returns the most recent records of a room, newest first.
// roomId may be a slug or a numeric id, limit is optional.
func (h *Handler) HandleGetChats(w http.ResponseWriter, r *http.Request) {
	roomId := r.PathValue("roomId")
	room, err := h.Service.ResolveRoom(r.Context(), roomId)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			h.sendError(w, http.StatusNotFound, "room not found")
			return
		}
		log.Printf("Resolve room %s failed: %v", roomId, err)
		h.sendError(w, http.StatusInternalServerError, "history lookup failed")
		return
	}

	limit := 0
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit <= 0 {
			h.sendError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	records, err := h.Service.RecentShapes(r.Context(), room.Id, limit)
	if err != nil {
		log.Printf("Read history of room %d failed: %v", room.Id, err)
		h.sendError(w, http.StatusInternalServerError, "history lookup failed")
		return
	}
	if records == nil {
		records = []models.ChatRecord{}
	}

	h.sendResponse(w, chatsResponse{Messages: records})
}
