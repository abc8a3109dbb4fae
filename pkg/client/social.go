package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/atlas-fitness/atlas-api/pkg/optimistic"
)

type followState struct {
	Following bool `json:"following"`
}

type likeState struct {
	Liked bool `json:"liked"`
}

type saveState struct {
	Saved bool `json:"saved"`
}

// CommentLikeState is the caller's like on a comment plus its total.
type CommentLikeState struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

func userPath(userID uint, suffix string) string {
	return apiPrefix + "/users/" + strconv.FormatUint(uint64(userID), 10) + suffix
}

// Follow follows userID and returns the resulting state.
func (c *Client) Follow(ctx context.Context, userID uint) (bool, error) {
	var out followState
	if err := c.post(ctx, userPath(userID, "/follow"), nil, &out); err != nil {
		return false, fmt.Errorf("client.Follow: %w", err)
	}
	return out.Following, nil
}

// Unfollow stops following userID and returns the resulting state.
func (c *Client) Unfollow(ctx context.Context, userID uint) (bool, error) {
	var out followState
	if err := c.delete(ctx, userPath(userID, "/follow"), &out); err != nil {
		return false, fmt.Errorf("client.Unfollow: %w", err)
	}
	return out.Following, nil
}

// LikePost likes a post.
func (c *Client) LikePost(ctx context.Context, postID string) (bool, error) {
	var out likeState
	if err := c.post(ctx, apiPrefix+"/posts/"+url.PathEscape(postID)+"/likes", nil, &out); err != nil {
		return false, fmt.Errorf("client.LikePost: %w", err)
	}
	return out.Liked, nil
}

// UnlikePost removes the caller's like from a post.
func (c *Client) UnlikePost(ctx context.Context, postID string) (bool, error) {
	var out likeState
	if err := c.delete(ctx, apiPrefix+"/posts/"+url.PathEscape(postID)+"/likes", &out); err != nil {
		return false, fmt.Errorf("client.UnlikePost: %w", err)
	}
	return out.Liked, nil
}

// LikeComment likes a comment.
func (c *Client) LikeComment(ctx context.Context, commentID uint) (*CommentLikeState, error) {
	var out CommentLikeState
	path := apiPrefix + "/comments/" + strconv.FormatUint(uint64(commentID), 10) + "/likes"
	if err := c.post(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("client.LikeComment: %w", err)
	}
	return &out, nil
}

// UnlikeComment removes the caller's like from a comment.
func (c *Client) UnlikeComment(ctx context.Context, commentID uint) (*CommentLikeState, error) {
	var out CommentLikeState
	path := apiPrefix + "/comments/" + strconv.FormatUint(uint64(commentID), 10) + "/likes"
	if err := c.delete(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("client.UnlikeComment: %w", err)
	}
	return &out, nil
}

// LikeRoutine likes a routine.
func (c *Client) LikeRoutine(ctx context.Context, routineID string) (bool, error) {
	var out likeState
	if err := c.post(ctx, apiPrefix+"/routines/"+url.PathEscape(routineID)+"/like", nil, &out); err != nil {
		return false, fmt.Errorf("client.LikeRoutine: %w", err)
	}
	return out.Liked, nil
}

// UnlikeRoutine removes the caller's like from a routine.
func (c *Client) UnlikeRoutine(ctx context.Context, routineID string) (bool, error) {
	var out likeState
	if err := c.delete(ctx, apiPrefix+"/routines/"+url.PathEscape(routineID)+"/like", &out); err != nil {
		return false, fmt.Errorf("client.UnlikeRoutine: %w", err)
	}
	return out.Liked, nil
}

// SaveRoutine bookmarks a routine.
func (c *Client) SaveRoutine(ctx context.Context, routineID string) (bool, error) {
	var out saveState
	if err := c.post(ctx, apiPrefix+"/routines/"+url.PathEscape(routineID)+"/save", nil, &out); err != nil {
		return false, fmt.Errorf("client.SaveRoutine: %w", err)
	}
	return out.Saved, nil
}

// UnsaveRoutine removes the caller's bookmark.
func (c *Client) UnsaveRoutine(ctx context.Context, routineID string) (bool, error) {
	var out saveState
	if err := c.delete(ctx, apiPrefix+"/routines/"+url.PathEscape(routineID)+"/save", &out); err != nil {
		return false, fmt.Errorf("client.UnsaveRoutine: %w", err)
	}
	return out.Saved, nil
}

func toggleRemote(on, off func(ctx context.Context) (bool, error)) optimistic.Remote[bool] {
	return func(ctx context.Context, next bool) (bool, error) {
		if next {
			return on(ctx)
		}
		return off(ctx)
	}
}

// FollowRemote confirms a follow toggle for userID.
func (c *Client) FollowRemote(userID uint) optimistic.Remote[bool] {
	return toggleRemote(
		func(ctx context.Context) (bool, error) { return c.Follow(ctx, userID) },
		func(ctx context.Context) (bool, error) { return c.Unfollow(ctx, userID) },
	)
}

// PostLikeRemote confirms a like toggle for postID.
func (c *Client) PostLikeRemote(postID string) optimistic.Remote[bool] {
	return toggleRemote(
		func(ctx context.Context) (bool, error) { return c.LikePost(ctx, postID) },
		func(ctx context.Context) (bool, error) { return c.UnlikePost(ctx, postID) },
	)
}

// RoutineLikeRemote confirms a like toggle for routineID.
func (c *Client) RoutineLikeRemote(routineID string) optimistic.Remote[bool] {
	return toggleRemote(
		func(ctx context.Context) (bool, error) { return c.LikeRoutine(ctx, routineID) },
		func(ctx context.Context) (bool, error) { return c.UnlikeRoutine(ctx, routineID) },
	)
}

// RoutineSaveRemote confirms a save toggle for routineID.
func (c *Client) RoutineSaveRemote(routineID string) optimistic.Remote[bool] {
	return toggleRemote(
		func(ctx context.Context) (bool, error) { return c.SaveRoutine(ctx, routineID) },
		func(ctx context.Context) (bool, error) { return c.UnsaveRoutine(ctx, routineID) },
	)
}
