package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Routine is a workout routine document stored in MongoDB
type Routine struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID      uint               `json:"user_id" bson:"user_id"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Exercises   []Exercise         `json:"exercises" bson:"exercises"`
	LikesCount  int                `json:"likes_count" bson:"likes_count"`
	SavesCount  int                `json:"saves_count" bson:"saves_count"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

type Exercise struct {
	Name        string `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Sets        int    `json:"sets" bson:"sets" validate:"min=0,max=100"`
	Reps        int    `json:"reps" bson:"reps" validate:"min=0,max=1000"`
	RestSeconds int    `json:"rest_seconds" bson:"rest_seconds" validate:"min=0,max=3600"`
}

type CreateRoutineRequest struct {
	Name        string     `json:"name" validate:"required,min=1,max=100"`
	Description string     `json:"description,omitempty" validate:"max=1000"`
	Exercises   []Exercise `json:"exercises" validate:"required,min=1,dive"`
}

// RoutineLike represents a like on a routine
type RoutineLike struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	RoutineID string    `json:"routine_id" gorm:"size:64;index;uniqueIndex:idx_routine_user_like"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_routine_user_like"`
	CreatedAt time.Time `json:"created_at"`
}

// RoutineSave represents a routine bookmarked by a user
type RoutineSave struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	RoutineID string    `json:"routine_id" gorm:"size:64;index;uniqueIndex:idx_routine_user_save"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_routine_user_save"`
	CreatedAt time.Time `json:"created_at"`
}
