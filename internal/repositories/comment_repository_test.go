package repositories

import (
	"context"
	"testing"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_RepliesDeletedWithParent(t *testing.T) {
	repo := NewPostgresCommentRepository(newTestDB(t))
	ctx := context.Background()

	parent := &models.Comment{PostID: "p1", UserID: 1, Content: "nice"}
	require.NoError(t, repo.CreateComment(ctx, parent))
	reply := &models.Comment{PostID: "p1", UserID: 2, ParentID: &parent.ID, Content: "thanks"}
	require.NoError(t, repo.CreateComment(ctx, reply))
	require.NoError(t, repo.CreateComment(ctx, &models.Comment{PostID: "p2", UserID: 1, Content: "other"}))

	comments, err := repo.GetCommentsByPostID(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, parent.ID, comments[0].ID)

	require.NoError(t, repo.DeleteComment(ctx, parent.ID))
	_, err = repo.GetCommentByID(ctx, reply.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteComment(ctx, parent.ID), ErrNotFound)
}
