package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment represents a comment on a post. Replies point at their parent.
type Comment struct {
	gorm.Model
	PostID   string `json:"post_id" gorm:"size:64;index"` // MongoDB ObjectID hex
	UserID   uint   `json:"user_id" gorm:"index"`
	ParentID *uint  `json:"parent_id,omitempty" gorm:"index"`
	Content  string `json:"content"`
}

// CreateCommentRequest defines the request body for creating a comment or reply
type CreateCommentRequest struct {
	Content  string `json:"content" validate:"required,min=1,max=500"`
	ParentID *uint  `json:"parent_id,omitempty"`
}

// CommentLike represents a like on a comment
type CommentLike struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CommentID uint      `json:"comment_id" gorm:"not null;index;uniqueIndex:idx_comment_user_like"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_comment_user_like"`
	CreatedAt time.Time `json:"created_at"`
}
