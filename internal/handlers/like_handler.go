package handlers

import (
	"errors"
	"net/http"

	"github.com/atlas-fitness/atlas-api/internal/notify"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles likes on posts and comments
type LikeHandler struct {
	likeRepository    repositories.LikeRepository
	postRepository    repositories.PostRepository
	commentRepository repositories.CommentRepository
	notifier          Notifier
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likeRepo repositories.LikeRepository, postRepo repositories.PostRepository, commentRepo repositories.CommentRepository, notifier Notifier) *LikeHandler {
	return &LikeHandler{
		likeRepository:    likeRepo,
		postRepository:    postRepo,
		commentRepository: commentRepo,
		notifier:          notifier,
	}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:id/likes", h.LikePost)
	g.DELETE("/posts/:id/likes", h.UnlikePost)
	g.GET("/posts/:id/likes/status", h.GetUserLikeStatusForPost)
	g.POST("/comments/:id/likes", h.LikeComment)
	g.DELETE("/comments/:id/likes", h.UnlikeComment)
}

// LikePost likes a post and notifies its author. Liking twice is a no-op.
func (h *LikeHandler) LikePost(c echo.Context) error {
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

	if err := h.likeRepository.LikePost(ctx, postID, currentUserID); err != nil {
		if errors.Is(err, repositories.ErrAlreadyExists) {
			return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"liked": true}})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.postRepository.IncrementLikesCount(ctx, postID, 1); err != nil {
		c.Logger().Warnf("increment likes on post %s: %v", postID, err)
	}

	sendNotification(c, h.notifier, notify.Input{
		RecipientID: post.UserID,
		ActorID:     currentUserID,
		Type:        domain.TypePostLike,
		PostID:      strPtr(postID),
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"liked": true}})
}

// UnlikePost removes the caller's like from a post
func (h *LikeHandler) UnlikePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()
	postID := c.Param("id")
	if _, err := h.postRepository.GetPostByID(ctx, postID); err != nil {
		return lookupError(err, "Post not found")
	}

	err := h.likeRepository.UnlikePost(ctx, postID, currentUserID)
	switch {
	case err == nil:
		if err := h.postRepository.IncrementLikesCount(ctx, postID, -1); err != nil {
			c.Logger().Warnf("decrement likes on post %s: %v", postID, err)
		}
	case errors.Is(err, repositories.ErrNotFound):
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"liked": false}})
}

// GetUserLikeStatusForPost checks if the authenticated user has liked a specific post
func (h *LikeHandler) GetUserLikeStatusForPost(c echo.Context) error {
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

	hasLiked, err := h.likeRepository.HasLikedPost(ctx, postID, currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"liked": hasLiked, "likes_count": post.LikesCount}})
}

// LikeComment likes a comment and notifies its author
func (h *LikeHandler) LikeComment(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	commentID, err := parseUintParam(c, "id", "comment")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	comment, err := h.commentRepository.GetCommentByID(ctx, commentID)
	if err != nil {
		return lookupError(err, "Comment not found")
	}

	created := true
	if err := h.likeRepository.LikeComment(ctx, commentID, currentUserID); err != nil {
		if !errors.Is(err, repositories.ErrAlreadyExists) {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		created = false
	}

	if created {
		sendNotification(c, h.notifier, notify.Input{
			RecipientID: comment.UserID,
			ActorID:     currentUserID,
			Type:        domain.TypeCommentLike,
			CommentID:   uintPtr(commentID),
		})
	}

	return h.commentLikeState(c, commentID, true)
}

// UnlikeComment removes the caller's like from a comment
func (h *LikeHandler) UnlikeComment(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	commentID, err := parseUintParam(c, "id", "comment")
	if err != nil {
		return err
	}

	err = h.likeRepository.UnlikeComment(c.Request().Context(), commentID, currentUserID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return h.commentLikeState(c, commentID, false)
}

func (h *LikeHandler) commentLikeState(c echo.Context, commentID uint, liked bool) error {
	count, err := h.likeRepository.CountCommentLikes(c.Request().Context(), commentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"liked": liked, "likes_count": count}})
}
