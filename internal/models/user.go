package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// UnknownUserName is shown for profiles that could not be loaded.
const UnknownUserName = "Unknown User"

type User struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	Username       string         `json:"username" gorm:"size:50;uniqueIndex"`
	Name           string         `json:"name"`
	Email          string         `json:"email" gorm:"uniqueIndex"`
	AvatarURL      string         `json:"avatar_url"`
	Password       string         `json:"-"`                                         // bcrypt hash
	FirebaseUID    *string        `json:"firebase_uid,omitempty" gorm:"uniqueIndex"` // nil for local accounts
	PushToken      string         `json:"-" gorm:"size:512"`
	FollowersCount int64          `json:"followers_count"`
	FollowingCount int64          `json:"following_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// UserCompact is the public card embedded in other resources.
type UserCompact struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Username: u.Username, Name: u.Name, AvatarURL: u.AvatarURL}
}

// UnknownUser is the placeholder card for a missing profile.
func UnknownUser(id uint) UserCompact {
	return UserCompact{ID: id, Username: UnknownUserName, Name: UnknownUserName}
}

type CreateLocalUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateUserRequest struct {
	Username  string `json:"username,omitempty" validate:"omitempty,min=3,max=50,alphanum"`
	Name      string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	AvatarURL string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Follow is a one-way follower -> following relationship
type Follow struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FollowerID  uint      `json:"follower_id" gorm:"not null;uniqueIndex:idx_follower_following"`
	FollowingID uint      `json:"following_id" gorm:"not null;index;uniqueIndex:idx_follower_following"`
	CreatedAt   time.Time `json:"created_at"`
}
