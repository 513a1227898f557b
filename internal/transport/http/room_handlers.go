package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/voxroom-server/internal/core"
)

// RoomHandlers provides HTTP handlers for room listings.
type RoomHandlers struct {
	coord Coordinator
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(coord Coordinator, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		coord: coord,
		log:   logger,
	}
}

// OccupantResponse represents a room member in API responses.
type OccupantResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
	Color       string `json:"color,omitempty"`
	Role        string `json:"role"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	Name      string             `json:"name"`
	Occupants []OccupantResponse `json:"occupants"`
}

// RoomConfigResponse is the admin view of a room configuration.
type RoomConfigResponse struct {
	Name    string `json:"name"`
	Locked  bool   `json:"locked"`
	Hidden  bool   `json:"hidden"`
	Default bool   `json:"default"`
}

// ListRooms returns the public room state, default rooms first.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	state := h.coord.ListPublicState()

	response := make([]RoomResponse, 0, len(state))
	for _, room := range state {
		response = append(response, RoomResponse{
			Name:      room.Name,
			Occupants: occupantResponses(room.Occupants),
		})
	}

	h.log.Debug().Int("room_count", len(response)).Msg("rooms listed")
	c.JSON(http.StatusOK, response)
}

// ListRoomConfigs returns every room configuration, hidden rooms included.
// GET /api/admin/rooms
func (h *RoomHandlers) ListRoomConfigs(c *gin.Context) {
	configs := h.coord.RoomConfigs(true)

	response := make([]RoomConfigResponse, 0, len(configs))
	for _, cfg := range configs {
		response = append(response, RoomConfigResponse{
			Name:    cfg.Name,
			Locked:  cfg.Locked,
			Hidden:  cfg.Hidden,
			Default: cfg.Default,
		})
	}
	c.JSON(http.StatusOK, response)
}

func occupantResponses(in []core.Occupant) []OccupantResponse {
	out := make([]OccupantResponse, 0, len(in))
	for _, o := range in {
		out = append(out, OccupantResponse{
			ID:          string(o.ID),
			DisplayName: o.DisplayName,
			Avatar:      o.Avatar,
			Color:       o.Color,
			Role:        string(o.Role),
		})
	}
	return out
}
