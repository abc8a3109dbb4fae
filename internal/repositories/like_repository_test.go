package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeRepository_PostLikes(t *testing.T) {
	repo := NewPostgresLikeRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.LikePost(ctx, "p1", 1))
	assert.ErrorIs(t, repo.LikePost(ctx, "p1", 1), ErrAlreadyExists)
	require.NoError(t, repo.LikePost(ctx, "p1", 2))

	liked, err := repo.HasLikedPost(ctx, "p1", 1)
	require.NoError(t, err)
	assert.True(t, liked)

	require.NoError(t, repo.UnlikePost(ctx, "p1", 1))
	assert.ErrorIs(t, repo.UnlikePost(ctx, "p1", 1), ErrNotFound)
}

func TestLikeRepository_RoutineLikesAndSaves(t *testing.T) {
	repo := NewPostgresLikeRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.LikeRoutine(ctx, "r1", 7))
	require.NoError(t, repo.SaveRoutine(ctx, "r1", 7))
	require.NoError(t, repo.SaveRoutine(ctx, "r2", 7))
	assert.ErrorIs(t, repo.SaveRoutine(ctx, "r2", 7), ErrAlreadyExists)

	liked, err := repo.HasLikedRoutine(ctx, "r1", 7)
	require.NoError(t, err)
	assert.True(t, liked)

	saved, err := repo.HasSavedRoutine(ctx, "r2", 8)
	require.NoError(t, err)
	assert.False(t, saved)

	ids, err := repo.GetSavedRoutineIDs(ctx, 7)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1", "r2"}, ids)

	require.NoError(t, repo.UnsaveRoutine(ctx, "r1", 7))
	require.NoError(t, repo.UnlikeRoutine(ctx, "r1", 7))
	assert.ErrorIs(t, repo.UnlikeRoutine(ctx, "r1", 7), ErrNotFound)
}

func TestLikeRepository_CommentLikes(t *testing.T) {
	repo := NewPostgresLikeRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.LikeComment(ctx, 10, 1))
	require.NoError(t, repo.LikeComment(ctx, 10, 2))
	assert.ErrorIs(t, repo.LikeComment(ctx, 10, 2), ErrAlreadyExists)

	count, err := repo.CountCommentLikes(ctx, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, repo.UnlikeComment(ctx, 10, 2))
	count, err = repo.CountCommentLikes(ctx, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
