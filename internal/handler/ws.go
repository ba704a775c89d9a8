package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"orbix/internal/service"
	"orbix/internal/ws"
)

// WSHandler upgrades presence connections onto the hub.
type WSHandler struct {
	hub *ws.Hub
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *ws.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Connect handles GET /v1/ws?role=rider|driver&id=...
// Joining again for the same account replaces the previous connection.
func (h *WSHandler) Connect(c *gin.Context) {
	role := c.Query("role")
	id := c.Query("id")
	if id == "" || (role != "rider" && role != "driver") {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "role and id are required", Kind: "invalid_request"})
		return
	}

	var handle string
	if role == "rider" {
		handle = service.RiderHandle(id)
	} else {
		handle = service.DriverHandle(id)
	}

	if err := h.hub.Serve(c.Writer, c.Request, handle); err != nil {
		// Upgrade failures already wrote a response.
		return
	}
}
