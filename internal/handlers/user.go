package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/labstack/echo/v4"
)

const (
	updateProfileFailed = "We couldn't update your profile. Please try again, or contact support if the problem continues."
	deleteAccountFailed = "We couldn't delete your account. Please try again, or contact support if the problem continues."
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository   repositories.UserRepository
	followRepository repositories.FollowRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, followRepo repositories.FollowRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo, followRepository: followRepo}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)    // Get own profile
	g.PUT("/profile", h.UpdateProfile) // Update own profile
	g.DELETE("/profile", h.DeleteUser) // Delete own user profile
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id", h.GetUser) // Get other user's profile by ID
}

// GetUser returns another user's profile and whether the caller follows them
func (h *UserHandler) GetUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := parseUintParam(c, "id", "user")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByID(ctx, id)
	if err != nil {
		return lookupError(err, "User profile not found")
	}

	isFollowing := false
	if id != currentUserID {
		isFollowing, err = h.followRepository.IsFollowing(ctx, currentUserID, id)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"user": user, "isFollowing": isFollowing},
	})
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), currentUserID)
	if err != nil {
		return lookupError(err, "User profile not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": user})
}

// UpdateProfile updates the authenticated user's profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
		}
		c.Logger().Errorf("load profile %d: %v", currentUserID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, updateProfileFailed)
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}

	if err := h.userRepository.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrAlreadyExists) {
			return echo.NewHTTPError(http.StatusConflict, "Username is already taken")
		}
		c.Logger().Errorf("update profile %d: %v", currentUserID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, updateProfileFailed)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": user})
}

// DeleteUser deletes the authenticated user's profile
func (h *UserHandler) DeleteUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.userRepository.DeleteUser(c.Request().Context(), currentUserID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
		}
		c.Logger().Errorf("delete account %d: %v", currentUserID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, deleteAccountFailed)
	}

	return c.NoContent(http.StatusNoContent)
}

// SearchUsers searches for users by username or name
func (h *UserHandler) SearchUsers(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query 'q' is required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 50 {
		limit = 20
	}

	users, err := h.userRepository.SearchUsers(c.Request().Context(), query, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": compactUsers(users)})
}
