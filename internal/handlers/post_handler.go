package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/labstack/echo/v4"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository repositories.PostRepository
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository) *PostHandler {
	return &PostHandler{postRepository: postRepo}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:id", h.GetPost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.GET("/users/:id/posts", h.GetUserPosts)
}

// CreatePost creates a new post
func (h *PostHandler) CreatePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	now := time.Now().UTC()
	post := &models.Post{
		UserID:    currentUserID,
		Content:   req.Content,
		ImageURLs: req.ImageURLs,
		RoutineID: req.RoutineID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": post})
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return lookupError(err, "Post not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": post})
}

// GetUserPosts lists a user's posts, newest first
func (h *PostHandler) GetUserPosts(c echo.Context) error {
	userID, err := parseUintParam(c, "id", "user")
	if err != nil {
		return err
	}
	skip, _ := strconv.ParseInt(c.QueryParam("skip"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if skip < 0 {
		skip = 0
	}
	if limit < 1 || limit > 50 {
		limit = 10 // Default limit
	}

	posts, err := h.postRepository.GetPostsByUserID(c.Request().Context(), userID, skip, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": posts})
}

// DeletePost deletes one of the caller's posts
func (h *PostHandler) DeletePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()
	postID := c.Param("id")
	post, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		return lookupError(err, "Post not found")
	}

	// Ensure the user deleting the post is the owner
	if post.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this post")
	}

	if err := h.postRepository.DeletePost(ctx, postID); err != nil {
		return lookupError(err, "Post not found")
	}
	return c.NoContent(http.StatusNoContent)
}
