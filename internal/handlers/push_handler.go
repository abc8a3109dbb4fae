package handlers

import (
	"context"
	"net/http"

	"github.com/atlas-fitness/atlas-api/internal/push"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PushSweeper runs delivery passes and records opened pushes.
type PushSweeper interface {
	Sweep(ctx context.Context) (push.SweepReport, error)
	MarkClicked(ctx context.Context, id uuid.UUID, recipientID uint) error
}

// PushHandler handles device registration and push delivery triggers
type PushHandler struct {
	userRepository repositories.UserRepository
	sweeper        PushSweeper
}

// NewPushHandler creates a new PushHandler
func NewPushHandler(userRepo repositories.UserRepository, sweeper PushSweeper) *PushHandler {
	return &PushHandler{userRepository: userRepo, sweeper: sweeper}
}

// RegisterPushRoutes registers push-related routes
func (h *PushHandler) RegisterPushRoutes(g *echo.Group) {
	g.POST("/push/token", h.RegisterToken)
	g.DELETE("/push/token", h.UnregisterToken)
	g.POST("/push/process", h.ProcessNow)
	g.POST("/push/:id/clicked", h.MarkClicked)
}

// RegisterTokenRequest carries the device's FCM registration token
type RegisterTokenRequest struct {
	Token string `json:"token" validate:"required,max=512"`
}

// RegisterToken stores the caller's device token. A token moves to the
// last user that registered it.
func (h *PushHandler) RegisterToken(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req RegisterTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.userRepository.SetPushToken(c.Request().Context(), currentUserID, req.Token); err != nil {
		return lookupError(err, "User profile not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"registered": true}})
}

// UnregisterToken clears the caller's device token, e.g. on sign out
func (h *PushHandler) UnregisterToken(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.userRepository.SetPushToken(c.Request().Context(), currentUserID, ""); err != nil {
		return lookupError(err, "User profile not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"registered": false}})
}

// ProcessNow runs a delivery pass immediately. It may overlap the scheduled
// sweep; each batch is still delivered once.
func (h *PushHandler) ProcessNow(c echo.Context) error {
	if getUserIDFromContext(c) == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	report, err := h.sweeper.Sweep(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": report})
}

// MarkClicked records that the caller opened a delivered push
func (h *PushHandler) MarkClicked(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid push ID")
	}

	if err := h.sweeper.MarkClicked(c.Request().Context(), batchID, currentUserID); err != nil {
		return lookupError(err, "Push not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"clicked": true}})
}
