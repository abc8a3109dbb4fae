package handlers

import (
	"net/http"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/internal/notify"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	postRepository    repositories.PostRepository // To update comment counts in posts
	userRepository    repositories.UserRepository // To fetch user details for comments
	notifier          Notifier
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository, userRepo repositories.UserRepository, notifier Notifier) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		postRepository:    postRepo,
		userRepository:    userRepo,
		notifier:          notifier,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:id/comments", h.CreateComment)
	g.GET("/posts/:id/comments", h.GetCommentsByPostID)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// CommentResponse is a comment with its author's public card
type CommentResponse struct {
	ID        uint               `json:"id"`
	PostID    string             `json:"post_id"`
	ParentID  *uint              `json:"parent_id,omitempty"`
	Content   string             `json:"content"`
	Author    models.UserCompact `json:"author"`
	CreatedAt time.Time          `json:"created_at"`
}

// CreateComment comments on a post, or replies to a comment when parent_id is set.
// Top-level comments notify the post author; replies notify the parent's author.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	postID := c.Param("id")
	post, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		return lookupError(err, "Post not found")
	}

	var parent *models.Comment
	if req.ParentID != nil {
		parent, err = h.commentRepository.GetCommentByID(ctx, *req.ParentID)
		if err != nil {
			return lookupError(err, "Parent comment not found")
		}
		if parent.PostID != postID {
			return echo.NewHTTPError(http.StatusBadRequest, "Parent comment belongs to another post")
		}
	}

	comment := &models.Comment{
		PostID:   postID,
		UserID:   currentUserID,
		ParentID: req.ParentID,
		Content:  req.Content,
	}
	if err := h.commentRepository.CreateComment(ctx, comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.postRepository.IncrementCommentsCount(ctx, postID, 1); err != nil {
		c.Logger().Warnf("increment comments on post %s: %v", postID, err)
	}

	if parent != nil {
		sendNotification(c, h.notifier, notify.Input{
			RecipientID: parent.UserID,
			ActorID:     currentUserID,
			Type:        domain.TypeCommentReply,
			CommentID:   uintPtr(parent.ID),
		})
	} else {
		sendNotification(c, h.notifier, notify.Input{
			RecipientID: post.UserID,
			ActorID:     currentUserID,
			Type:        domain.TypePostComment,
			PostID:      strPtr(postID),
		})
	}

	author := models.UnknownUser(currentUserID)
	if u, err := h.userRepository.GetUserByID(ctx, currentUserID); err == nil {
		author = u.ToCompact()
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": toCommentResponse(comment, author)})
}

// GetCommentsByPostID retrieves all comments for a specific post, oldest first
func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	ctx := c.Request().Context()
	postID := c.Param("id")

	if _, err := h.postRepository.GetPostByID(ctx, postID); err != nil {
		return lookupError(err, "Post not found")
	}

	comments, err := h.commentRepository.GetCommentsByPostID(ctx, postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	ids := make([]uint, 0, len(comments))
	for _, cm := range comments {
		ids = append(ids, cm.UserID)
	}
	authors, err := h.userRepository.GetUsersByIDs(ctx, ids)
	if err != nil {
		c.Logger().Warnf("load comment authors for post %s: %v", postID, err)
		authors = nil
	}

	out := make([]CommentResponse, len(comments))
	for i := range comments {
		author := models.UnknownUser(comments[i].UserID)
		if u, ok := authors[comments[i].UserID]; ok {
			author = u.ToCompact()
		}
		out[i] = toCommentResponse(&comments[i], author)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": out})
}

// DeleteComment deletes one of the caller's comments together with its replies
func (h *CommentHandler) DeleteComment(c echo.Context) error {
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

	// Ensure the user deleting the comment is the owner
	if comment.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this comment")
	}

	removed := 1
	if siblings, err := h.commentRepository.GetCommentsByPostID(ctx, comment.PostID); err == nil {
		for _, s := range siblings {
			if s.ParentID != nil && *s.ParentID == commentID {
				removed++
			}
		}
	}

	if err := h.commentRepository.DeleteComment(ctx, commentID); err != nil {
		return lookupError(err, "Comment not found")
	}

	if err := h.postRepository.IncrementCommentsCount(ctx, comment.PostID, -removed); err != nil {
		c.Logger().Warnf("decrement comments on post %s: %v", comment.PostID, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func toCommentResponse(cm *models.Comment, author models.UserCompact) CommentResponse {
	return CommentResponse{
		ID:        cm.ID,
		PostID:    cm.PostID,
		ParentID:  cm.ParentID,
		Content:   cm.Content,
		Author:    author,
		CreatedAt: cm.CreatedAt,
	}
}
