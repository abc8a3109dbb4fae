package handlers

import (
	"errors"
	"net/http"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/internal/notify"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
	notifier         Notifier
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository, notifier Notifier) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		userRepository:   userRepo,
		notifier:         notifier,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
	g.GET("/users/:id/followers", h.GetFollowers)
	g.GET("/users/:id/following", h.GetFollowing)
}

// FollowUser follows a user. Following someone already followed is a no-op.
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := parseUintParam(c, "id", "user")
	if err != nil {
		return err
	}
	if currentUserID == targetID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}

	ctx := c.Request().Context()
	if _, err := h.userRepository.GetUserByID(ctx, targetID); err != nil {
		return lookupError(err, "User not found")
	}

	if err := h.followRepository.Follow(ctx, currentUserID, targetID); err != nil {
		if errors.Is(err, repositories.ErrAlreadyExists) {
			return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": true}})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	sendNotification(c, h.notifier, notify.Input{
		RecipientID: targetID,
		ActorID:     currentUserID,
		Type:        domain.TypeFollow,
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": true}})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := parseUintParam(c, "id", "user")
	if err != nil {
		return err
	}

	err = h.followRepository.Unfollow(c.Request().Context(), currentUserID, targetID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": false}})
}

// GetFollowers lists the users following :id
func (h *FollowHandler) GetFollowers(c echo.Context) error {
	userID, err := parseUintParam(c, "id", "user")
	if err != nil {
		return err
	}
	users, err := h.followRepository.GetFollowers(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": compactUsers(users)})
}

// GetFollowing lists the users :id follows
func (h *FollowHandler) GetFollowing(c echo.Context) error {
	userID, err := parseUintParam(c, "id", "user")
	if err != nil {
		return err
	}
	users, err := h.followRepository.GetFollowing(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": compactUsers(users)})
}

func compactUsers(users []models.User) []models.UserCompact {
	out := make([]models.UserCompact, len(users))
	for i := range users {
		out[i] = users[i].ToCompact()
	}
	return out
}
