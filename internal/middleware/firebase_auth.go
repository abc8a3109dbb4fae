package middleware

import (
	"context"
	"errors"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/labstack/echo/v4"
)

// IDTokenVerifier verifies Firebase ID tokens. *auth.Client satisfies it.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// UserByFirebaseUID resolves the local account linked to a Firebase user.
type UserByFirebaseUID interface {
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
}

// FirebaseAuthMiddleware creates an Echo middleware to verify Firebase ID tokens.
// The Firebase user must already be linked through /auth/firebase-login.
func FirebaseAuthMiddleware(authClient IDTokenVerifier, users UserByFirebaseUID) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idToken, err := bearerToken(c)
			if err != nil {
				return err
			}

			ctx := c.Request().Context()
			token, err := authClient.VerifyIDToken(ctx, idToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
			}

			user, err := users.GetUserByFirebaseUID(ctx, token.UID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Account not registered, sign in through /auth/firebase-login first")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to resolve user")
			}

			// Store the Firebase UID in the context for later use
			c.Set("firebaseUID", token.UID)
			c.Set("firebaseToken", token)
			c.Set(UserIDKey, user.ID)

			return next(c)
		}
	}
}
