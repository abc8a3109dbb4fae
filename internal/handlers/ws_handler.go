package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// StreamServer upgrades a request into a recipient's event stream.
type StreamServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID uint) error
}

// WSHandler serves the real-time notification stream
type WSHandler struct {
	hub StreamServer
}

func NewWSHandler(hub StreamServer) *WSHandler {
	return &WSHandler{hub: hub}
}

func (h *WSHandler) RegisterWSRoutes(g *echo.Group) {
	g.GET("/ws", h.Stream)
}

// Stream blocks for the lifetime of the websocket connection
func (h *WSHandler) Stream(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if err := h.hub.Serve(c.Response(), c.Request(), currentUserID); err != nil {
		c.Logger().Warnf("websocket for user %d: %v", currentUserID, err)
	}
	return nil
}
