package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContentRenderer renders a batch's payload from its current actor list.
type ContentRenderer func(batch *models.PushBatch) models.PushContent

// PushBatchRepository stores push batches and their actor contributions.
type PushBatchRepository interface {
	Upsert(ctx context.Context, batch *models.PushBatch, actor models.PushBatchActor, render ContentRenderer) (*models.PushBatch, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PushBatch, error)
	ListDue(ctx context.Context, cutoff time.Time, limit int) ([]models.PushBatch, error)
	Claim(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkSent(ctx context.Context, id uuid.UUID, content models.PushContent, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
	MarkClicked(ctx context.Context, id uuid.UUID, recipientID uint, at time.Time) error
}

type postgresPushBatchRepository struct {
	db *gorm.DB
}

func NewPostgresPushBatchRepository(db *gorm.DB) PushBatchRepository {
	return &postgresPushBatchRepository{db: db}
}

// Upsert adds actor to the open batch for batch.BatchKey, creating the batch
// when none is open, and rewrites the content from the resulting actor list.
// It reports whether a new batch was created. Two writers racing to create
// the same key collide on the partial unique index; the loser retries once
// and joins the winner's batch.
func (r *postgresPushBatchRepository) Upsert(ctx context.Context, batch *models.PushBatch, actor models.PushBatchActor, render ContentRenderer) (*models.PushBatch, bool, error) {
	result, created, err := r.upsertOnce(ctx, batch, actor, render)
	if isDuplicate(err) {
		result, created, err = r.upsertOnce(ctx, batch, actor, render)
	}
	if err != nil {
		return nil, false, fmt.Errorf("upsert push batch %s: %w", batch.BatchKey, err)
	}
	return result, created, nil
}

func (r *postgresPushBatchRepository) upsertOnce(ctx context.Context, batch *models.PushBatch, actor models.PushBatchActor, render ContentRenderer) (*models.PushBatch, bool, error) {
	var open models.PushBatch
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("batch_key = ? AND claimed_at IS NULL", batch.BatchKey)
		if tx.Dialector.Name() == "postgres" {
			// Hold the row so a concurrent claim waits for this append.
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		err := q.First(&open).Error
		switch {
		case err == nil:
		case errors.Is(err, gorm.ErrRecordNotFound):
			open = *batch
			open.ID = uuid.Nil
			open.Actors = nil
			if err := tx.Create(&open).Error; err != nil {
				return err
			}
			created = true
		default:
			return err
		}

		contribution := actor
		contribution.ID = 0
		contribution.BatchID = open.ID
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&contribution).Error; err != nil {
			return err
		}

		if err := tx.Where("batch_id = ?", open.ID).Order("id").Find(&open.Actors).Error; err != nil {
			return err
		}
		open.Content = datatypes.NewJSONType(render(&open))
		return tx.Model(&models.PushBatch{}).Where("id = ?", open.ID).Update("content", open.Content).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &open, created, nil
}

func (r *postgresPushBatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PushBatch, error) {
	var batch models.PushBatch
	err := r.db.WithContext(ctx).
		Preload("Actors", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&batch, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &batch, nil
}

// ListDue returns open batches created at or before cutoff, oldest first.
func (r *postgresPushBatchRepository) ListDue(ctx context.Context, cutoff time.Time, limit int) ([]models.PushBatch, error) {
	var batches []models.PushBatch
	err := r.db.WithContext(ctx).
		Where("claimed_at IS NULL AND created_at <= ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&batches).Error
	return batches, err
}

// Claim marks an open batch as taken. Only one caller ever gets true.
func (r *postgresPushBatchRepository) Claim(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PushBatch{}).
		Where("id = ? AND claimed_at IS NULL", id).
		Update("claimed_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *postgresPushBatchRepository) MarkSent(ctx context.Context, id uuid.UUID, content models.PushContent, at time.Time) error {
	return r.finish(ctx, id, map[string]interface{}{
		"sent_at": at,
		"content": datatypes.NewJSONType(content),
	})
}

func (r *postgresPushBatchRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	return r.finish(ctx, id, map[string]interface{}{
		"failed_at":      at,
		"failure_reason": reason,
	})
}

// finish applies a terminal transition to a claimed batch.
func (r *postgresPushBatchRepository) finish(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.PushBatch{}).
		Where("id = ? AND claimed_at IS NOT NULL AND sent_at IS NULL AND failed_at IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresPushBatchRepository) MarkClicked(ctx context.Context, id uuid.UUID, recipientID uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.PushBatch{}).
		Where("id = ? AND recipient_id = ? AND sent_at IS NOT NULL AND clicked_at IS NULL", id, recipientID).
		Update("clicked_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.PushBatch{}).
			Where("id = ? AND recipient_id = ? AND sent_at IS NOT NULL", id, recipientID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}
