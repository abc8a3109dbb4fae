package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/atlas-fitness/atlas-api/internal/middleware"
	"github.com/atlas-fitness/atlas-api/internal/notify"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/labstack/echo/v4"
)

// Notifier records a notification for a social action.
type Notifier interface {
	Notify(ctx context.Context, in notify.Input) (*domain.Notification, error)
}

// getUserIDFromContext returns the id set by the auth middleware, or 0.
func getUserIDFromContext(c echo.Context) uint {
	id, _ := c.Get(middleware.UserIDKey).(uint)
	return id
}

func parseUintParam(c echo.Context, name, label string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || v == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+label+" ID")
	}
	return uint(v), nil
}

// lookupError maps a repository read error to an HTTP error.
func lookupError(err error, notFound string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// sendNotification fires the notification for an action that already
// succeeded. Failures are logged and never reach the caller.
func sendNotification(c echo.Context, n Notifier, in notify.Input) {
	if n == nil {
		return
	}
	if _, err := n.Notify(c.Request().Context(), in); err != nil {
		c.Logger().Warnf("notify %s to user %d: %v", in.Type, in.RecipientID, err)
	}
}

func strPtr(s string) *string { return &s }

func uintPtr(u uint) *uint { return &u }
