package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/internal/notify"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/labstack/echo/v4"
)

// RoutineHandler handles workout routines and their likes and saves
type RoutineHandler struct {
	routineRepository repositories.RoutineRepository
	likeRepository    repositories.LikeRepository
	notifier          Notifier
}

// NewRoutineHandler creates a new RoutineHandler
func NewRoutineHandler(routineRepo repositories.RoutineRepository, likeRepo repositories.LikeRepository, notifier Notifier) *RoutineHandler {
	return &RoutineHandler{
		routineRepository: routineRepo,
		likeRepository:    likeRepo,
		notifier:          notifier,
	}
}

// RegisterRoutineRoutes registers routine-related routes
func (h *RoutineHandler) RegisterRoutineRoutes(g *echo.Group) {
	g.POST("/routines", h.CreateRoutine)
	g.GET("/routines/saved", h.GetSavedRoutines)
	g.GET("/routines/:id", h.GetRoutine)
	g.POST("/routines/:id/like", h.LikeRoutine)
	g.DELETE("/routines/:id/like", h.UnlikeRoutine)
	g.POST("/routines/:id/save", h.SaveRoutine)
	g.DELETE("/routines/:id/save", h.UnsaveRoutine)
}

// CreateRoutine creates a routine owned by the caller
func (h *RoutineHandler) CreateRoutine(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateRoutineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	now := time.Now().UTC()
	routine := &models.Routine{
		UserID:      currentUserID,
		Name:        req.Name,
		Description: req.Description,
		Exercises:   req.Exercises,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.routineRepository.CreateRoutine(c.Request().Context(), routine); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": routine})
}

// GetRoutine returns a routine with the caller's like and save state
func (h *RoutineHandler) GetRoutine(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()
	routineID := c.Param("id")
	routine, err := h.routineRepository.GetRoutineByID(ctx, routineID)
	if err != nil {
		return lookupError(err, "Routine not found")
	}

	liked, err := h.likeRepository.HasLikedRoutine(ctx, routineID, currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	saved, err := h.likeRepository.HasSavedRoutine(ctx, routineID, currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"routine": routine, "liked": liked, "saved": saved},
	})
}

// GetSavedRoutines lists the ids of routines the caller saved
func (h *RoutineHandler) GetSavedRoutines(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ids, err := h.likeRepository.GetSavedRoutineIDs(c.Request().Context(), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"routine_ids": ids}})
}

// LikeRoutine likes a routine and notifies its owner
func (h *RoutineHandler) LikeRoutine(c echo.Context) error {
	return h.toggle(c, true, routineToggle{
		field:  "liked",
		notify: domain.TypeRoutineLike,
		add:    h.likeRepository.LikeRoutine,
		count:  h.routineRepository.IncrementLikesCount,
	})
}

// UnlikeRoutine removes the caller's like
func (h *RoutineHandler) UnlikeRoutine(c echo.Context) error {
	return h.toggle(c, false, routineToggle{
		field:  "liked",
		remove: h.likeRepository.UnlikeRoutine,
		count:  h.routineRepository.IncrementLikesCount,
	})
}

// SaveRoutine bookmarks a routine and notifies its owner
func (h *RoutineHandler) SaveRoutine(c echo.Context) error {
	return h.toggle(c, true, routineToggle{
		field:  "saved",
		notify: domain.TypeRoutineSave,
		add:    h.likeRepository.SaveRoutine,
		count:  h.routineRepository.IncrementSavesCount,
	})
}

// UnsaveRoutine removes the caller's bookmark
func (h *RoutineHandler) UnsaveRoutine(c echo.Context) error {
	return h.toggle(c, false, routineToggle{
		field:  "saved",
		remove: h.likeRepository.UnsaveRoutine,
		count:  h.routineRepository.IncrementSavesCount,
	})
}

type routineToggle struct {
	field  string
	notify domain.NotificationType
	add    func(ctx context.Context, routineID string, userID uint) error
	remove func(ctx context.Context, routineID string, userID uint) error
	count  func(ctx context.Context, routineID string, delta int) error
}

// toggle applies a like or save. Repeating the current state is a no-op
// that still reports it.
func (h *RoutineHandler) toggle(c echo.Context, on bool, t routineToggle) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()
	routineID := c.Param("id")
	routine, err := h.routineRepository.GetRoutineByID(ctx, routineID)
	if err != nil {
		return lookupError(err, "Routine not found")
	}

	state := echo.Map{"success": true, "data": echo.Map{t.field: on}}
	if on {
		if err := t.add(ctx, routineID, currentUserID); err != nil {
			if errors.Is(err, repositories.ErrAlreadyExists) {
				return c.JSON(http.StatusOK, state)
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if err := t.count(ctx, routineID, 1); err != nil {
			c.Logger().Warnf("increment %s on routine %s: %v", t.field, routineID, err)
		}
		sendNotification(c, h.notifier, notify.Input{
			RecipientID: routine.UserID,
			ActorID:     currentUserID,
			Type:        t.notify,
			RoutineID:   strPtr(routineID),
			TargetName:  routine.Name,
		})
		return c.JSON(http.StatusOK, state)
	}

	if err := t.remove(ctx, routineID, currentUserID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(http.StatusOK, state)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := t.count(ctx, routineID, -1); err != nil {
		c.Logger().Warnf("decrement %s on routine %s: %v", t.field, routineID, err)
	}
	return c.JSON(http.StatusOK, state)
}
