package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// UserIDKey is the context key holding the authenticated user's id.
const UserIDKey = "userID"

// bearerToken reads "Authorization: Bearer <token>". Websocket handshakes
// cannot set headers from browsers, so they may pass ?access_token= instead.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if c.IsWebSocket() {
			if token := c.QueryParam("access_token"); token != "" {
				return token, nil
			}
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
	}

	// Expecting "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
	}
	return parts[1], nil
}
