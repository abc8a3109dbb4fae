package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/atlas-fitness/atlas-api/pkg/feed"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	defaultFeedLimit = 100
	maxFeedLimit     = 200
)

// NotificationUpdater applies changes that are also streamed to the recipient.
type NotificationUpdater interface {
	MarkRead(ctx context.Context, id uuid.UUID, recipientID uint) (*domain.Notification, error)
	Delete(ctx context.Context, id uuid.UUID, recipientID uint) error
}

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	settingsRepository     repositories.SettingsRepository
	updater                NotificationUpdater
	now                    func() time.Time
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifRepo repositories.NotificationRepository, settingsRepo repositories.SettingsRepository, updater NotificationUpdater) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notifRepo,
		settingsRepository:     settingsRepo,
		updater:                updater,
		now:                    time.Now,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/feed", h.GetFeed)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.GET("/notifications/settings", h.GetSettings)
	g.PUT("/notifications/settings", h.UpdateSettings)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.DELETE("/notifications/:id", h.DeleteNotification)
}

// GetNotifications returns paginated notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	notifications, total, err := h.notificationRepository.GetByRecipientID(c.Request().Context(), currentUserID, page, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"notifications": models.NotificationsToDomain(notifications),
		},
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      total,
			"itemsPerPage":    limit,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}

// GetFeed returns the most recent notifications as period headers and
// grouped rows. Ids listed in ?exclude= are hidden, which lets a client
// keep its pending deletes out of a refreshed feed.
func (h *NotificationHandler) GetFeed(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > maxFeedLimit {
		limit = defaultFeedLimit
	}

	ctx := c.Request().Context()
	notifications, err := h.notificationRepository.GetRecent(ctx, currentUserID, time.Time{}, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	unreadCount, err := h.notificationRepository.GetUnreadCount(ctx, currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	rows := feed.Group(models.NotificationsToDomain(notifications), excludeSet(c.QueryParam("exclude")), h.now())

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"rows":        rows,
			"unreadCount": unreadCount,
		},
	})
}

func excludeSet(raw string) feed.DeleteSet {
	if raw == "" {
		return nil
	}
	set := feed.DeleteSet{}
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	count, err := h.notificationRepository.GetUnreadCount(c.Request().Context(), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"count": count}})
}

// MarkAsRead marks one of the caller's notifications as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	notifID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification ID")
	}

	n, err := h.updater.MarkRead(c.Request().Context(), notifID, currentUserID)
	if err != nil {
		return lookupError(err, "Notification not found")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": n})
}

// MarkAllAsRead marks all notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	updated, err := h.notificationRepository.MarkAllAsRead(c.Request().Context(), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"updated": updated}})
}

// DeleteNotification permanently removes one of the caller's notifications
func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	notifID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification ID")
	}

	if err := h.updater.Delete(c.Request().Context(), notifID, currentUserID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

// GetSettings returns the caller's push preferences
func (h *NotificationHandler) GetSettings(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	settings, err := h.settingsRepository.GetSettings(c.Request().Context(), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": settings})
}

// UpdateSettings replaces the caller's push preferences and echoes the stored value
func (h *NotificationHandler) UpdateSettings(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.settingsRepository.SaveSettings(ctx, currentUserID, req.ToDomain()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	settings, err := h.settingsRepository.GetSettings(ctx, currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": settings})
}
