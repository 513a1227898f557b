package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/voxroom-server/internal/core"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// BanHandlers provides HTTP handlers for ban list management.
type BanHandlers struct {
	coord Coordinator
	log   *zerolog.Logger
}

// NewBanHandlers creates a new ban handlers instance.
func NewBanHandlers(coord Coordinator, logger *zerolog.Logger) *BanHandlers {
	return &BanHandlers{
		coord: coord,
		log:   logger,
	}
}

// BanRequest represents the create ban request body.
type BanRequest struct {
	DisplayName string `json:"displayName" binding:"required,min=1,max=64"`
}

// BanListResponse represents the ban list.
type BanListResponse struct {
	Names []string `json:"names"`
}

// BanResponse reports how many live connections a ban ejected.
type BanResponse struct {
	DisplayName string `json:"displayName"`
	Ejected     int    `json:"ejected"`
}

// ListBans returns the banned display names.
// GET /api/admin/bans
func (h *BanHandlers) ListBans(c *gin.Context) {
	c.JSON(http.StatusOK, BanListResponse{Names: h.coord.Bans()})
}

// CreateBan bans a display name and ejects every session using it.
// POST /api/admin/bans
func (h *BanHandlers) CreateBan(c *gin.Context) {
	var req BanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid ban request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ejected, err := h.coord.BanDisplayName(req.DisplayName)
	if err != nil {
		if errors.Is(err, core.ErrBadRequest) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Str("name", req.DisplayName).Msg("failed to ban")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("name", req.DisplayName).Str("by", c.GetString(ContextKeySubject)).Int("ejected", ejected).Msg("display name banned")
	c.JSON(http.StatusCreated, BanResponse{DisplayName: strings.TrimSpace(req.DisplayName), Ejected: ejected})
}

// DeleteBan lifts a ban.
// DELETE /api/admin/bans/:name
func (h *BanHandlers) DeleteBan(c *gin.Context) {
	name := c.Param("name")
	if !h.coord.UnbanDisplayName(name) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not banned"})
		return
	}

	h.log.Info().Str("name", name).Str("by", c.GetString(ContextKeySubject)).Msg("display name unbanned")
	c.Status(http.StatusNoContent)
}
