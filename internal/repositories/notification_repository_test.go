package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNotificationRepository_CreateValidates(t *testing.T) {
	repo := NewPostgresNotificationRepository(newTestDB(t))
	ctx := context.Background()

	bad := &models.Notification{RecipientID: 1, ActorID: 2, Type: domain.TypePostLike}
	assert.ErrorIs(t, repo.CreateNotification(ctx, bad), models.ErrInvalidNotification)

	ok := &models.Notification{RecipientID: 1, ActorID: 2, Type: domain.TypePostLike, PostID: strPtr("p1")}
	require.NoError(t, repo.CreateNotification(ctx, ok))
	assert.NotEqual(t, uuid.Nil, ok.ID)
}

func TestNotificationRepository_ListAndCounts(t *testing.T) {
	repo := NewPostgresNotificationRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 5; i++ {
		n := &models.Notification{
			RecipientID: 1,
			ActorID:     uint(10 + i),
			Type:        domain.TypeFollow,
			CreatedAt:   now.Add(-time.Duration(i) * 24 * time.Hour),
		}
		require.NoError(t, repo.CreateNotification(ctx, n))
	}
	require.NoError(t, repo.CreateNotification(ctx, &models.Notification{RecipientID: 2, ActorID: 1, Type: domain.TypeFollow}))

	page, total, err := repo.GetByRecipientID(ctx, 1, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page, 2)
	assert.EqualValues(t, 10, page[0].ActorID)

	recent, err := repo.GetRecent(ctx, 1, now.Add(-50*time.Hour), 100)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	unread, err := repo.GetUnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 5, unread)

	marked, err := repo.MarkAllAsRead(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 5, marked)

	unread, err = repo.GetUnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, unread)

	unread, err = repo.GetUnreadCount(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestNotificationRepository_OwnerScopedMutations(t *testing.T) {
	repo := NewPostgresNotificationRepository(newTestDB(t))
	ctx := context.Background()

	n := &models.Notification{RecipientID: 1, ActorID: 2, Type: domain.TypeRoutineSave, RoutineID: strPtr("r1")}
	require.NoError(t, repo.CreateNotification(ctx, n))

	_, err := repo.MarkAsRead(ctx, n.ID, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	read, err := repo.MarkAsRead(ctx, n.ID, 1)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	_, err = repo.DeleteNotification(ctx, n.ID, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err := repo.DeleteNotification(ctx, n.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, n.ID, deleted.ID)

	_, err = repo.DeleteNotification(ctx, n.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
