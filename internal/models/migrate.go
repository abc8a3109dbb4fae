package models

import "gorm.io/gorm"

// AutoMigrate creates or updates every relational table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Follow{},
		&PostLike{},
		&Comment{},
		&CommentLike{},
		&RoutineLike{},
		&RoutineSave{},
		&Notification{},
		&NotificationSettings{},
		&PushBatch{},
		&PushBatchActor{},
	)
}
