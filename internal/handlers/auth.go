package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/atlas-fitness/atlas-api/internal/middleware"
	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is how long locally issued JWTs stay valid.
const TokenTTL = 72 * time.Hour

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	firebaseAuth   middleware.IDTokenVerifier
	jwtSecret      string
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil, in which
// case Firebase login is unavailable.
func NewAuthHandler(userRepo repositories.UserRepository, firebaseAuth middleware.IDTokenVerifier, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		firebaseAuth:   firebaseAuth,
		jwtSecret:      jwtSecret,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/signin", h.SignIn)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// Signup handles local user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.CreateLocalUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Check if user with this email already exists
	if _, err := h.userRepository.GetUserByEmail(ctx, email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		Username: req.Username,
		Name:     req.Name,
		Email:    email,
		Password: string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrAlreadyExists) {
			return echo.NewHTTPError(http.StatusConflict, "Username is already taken")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token after signup")
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"token": token, "user": user}})
}

// SignIn handles local user authentication with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SignInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByEmail(c.Request().Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Firebase-only accounts have no password
	if user.Password == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"token": token, "user": user}})
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin verifies a Firebase ID token, links or creates the local
// account and issues a local JWT.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase login is not configured")
	}

	var req FirebaseLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	token, err := h.firebaseAuth.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	firebaseUID := token.UID
	email, _ := token.Claims["email"].(string)
	email = strings.ToLower(email)
	name, _ := token.Claims["name"].(string)
	picture, _ := token.Claims["picture"].(string)
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Firebase account has no email address")
	}

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, firebaseUID)
	switch {
	case err == nil:
		// Known Firebase user, refresh details
		user.Email = email
		if name != "" {
			user.Name = name
		}
		if err := h.userRepository.UpdateUser(ctx, user); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update user details")
		}
	case errors.Is(err, repositories.ErrNotFound):
		user, err = h.linkOrCreate(ctx, firebaseUID, email, name, picture)
		if err != nil {
			return err
		}
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Database error")
	}

	localJWT, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate local JWT")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"token": localJWT, "user": user}})
}

// linkOrCreate attaches the Firebase UID to the account with the same email,
// or creates a new account with a username derived from the email.
func (h *AuthHandler) linkOrCreate(ctx context.Context, firebaseUID, email, name, picture string) (*models.User, error) {
	user, err := h.userRepository.GetUserByEmail(ctx, email)
	if err == nil {
		user.FirebaseUID = &firebaseUID
		if err := h.userRepository.UpdateUser(ctx, user); err != nil {
			return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to update user with Firebase UID")
		}
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Database error")
	}

	base := usernameFromEmail(email)
	if name == "" {
		name = base
	}
	const attempts = 5
	for i := 0; i < attempts; i++ {
		username := base
		if i > 0 {
			username = fmt.Sprintf("%s%d", base, i+1)
		}
		newUser := &models.User{
			Username:    username,
			Name:        name,
			Email:       email,
			AvatarURL:   picture,
			FirebaseUID: &firebaseUID,
		}
		err := h.userRepository.CreateUser(ctx, newUser)
		if err == nil {
			return newUser, nil
		}
		if !errors.Is(err, repositories.ErrAlreadyExists) {
			return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user")
		}
	}
	return nil, echo.NewHTTPError(http.StatusConflict, "Could not pick a free username, sign up with email instead")
}

// usernameFromEmail keeps the alphanumeric part of the local part.
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range local {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) > 40 {
		s = s[:40]
	}
	for len(s) < 3 {
		s += "0"
	}
	return s
}

// generateJWT generates a JWT token for a given user
func (h *AuthHandler) generateJWT(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
