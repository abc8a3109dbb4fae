package models

import "time"

// PostLike represents a like on a post
type PostLike struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    string    `json:"post_id" gorm:"size:64;index;uniqueIndex:idx_post_user_like"` // MongoDB ObjectID hex
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_post_user_like"`
	CreatedAt time.Time `json:"created_at"`
}
