package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/atlas-fitness/atlas-api/pkg/feed"
	"github.com/atlas-fitness/atlas-api/pkg/optimistic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data}) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message}) //nolint:errcheck
}

func TestFollow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/users/7/follow", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		writeData(w, http.StatusOK, map[string]bool{"following": true})
	}))
	defer srv.Close()

	following, err := New(srv.URL, "test-token").Follow(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, following)
}

func TestHTTPErrorCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Routine not found")
	}))
	defer srv.Close()

	_, err := New(srv.URL, "t").SaveRoutine(context.Background(), "r1")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.False(t, IsStatus(err, http.StatusInternalServerError))
	assert.Contains(t, err.Error(), "HTTP 404: Routine not found")
}

func TestFollowRemote_RollsBackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		writeError(w, http.StatusInternalServerError, "boom")
	}))
	defer srv.Close()

	toggle := optimistic.NewToggle(true, nil)
	out := <-toggle.Flip(context.Background(), New(srv.URL, "t").FollowRemote(3))

	assert.True(t, out.RolledBack)
	assert.True(t, IsStatus(out.Err, http.StatusInternalServerError))
	assert.True(t, toggle.Get())
}

func TestRoutineLikeRemote_AdoptsServerState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/routines/r1/like", r.URL.Path)
		// Already unliked elsewhere; the server reports the real state.
		writeData(w, http.StatusOK, map[string]bool{"liked": false})
	}))
	defer srv.Close()

	toggle := optimistic.NewToggle(false, nil)
	out := <-toggle.Flip(context.Background(), New(srv.URL, "t").RoutineLikeRemote("r1"))

	require.NoError(t, out.Err)
	assert.False(t, out.Value)
	assert.False(t, toggle.Get())
}

func TestListNotifications_DecodesMeta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"success": true,
			"data": map[string]any{"notifications": []domain.Notification{
				{ID: "n1", Type: domain.TypeFollow},
			}},
			"meta": map[string]any{"currentPage": 2, "totalPages": 3, "totalItems": 25, "itemsPerPage": 10, "hasNextPage": true, "hasPreviousPage": true},
		})
	}))
	defer srv.Close()

	page, err := New(srv.URL, "t").ListNotifications(context.Background(), 2, 10)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, "n1", page.Notifications[0].ID)
	assert.Equal(t, int64(25), page.Meta.TotalItems)
	assert.True(t, page.Meta.HasNextPage)
}

func TestNotificationFeed_SendsExcludedIDs(t *testing.T) {
	now := time.Now().UTC()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/notifications/feed", r.URL.Path)
		assert.Equal(t, "a,b", r.URL.Query().Get("exclude"))
		rows := feed.Group([]domain.Notification{
			{ID: "c", Type: domain.TypeFollow, Actor: domain.Actor{Username: "cara"}, CreatedAt: now},
		}, nil, now)
		writeData(w, http.StatusOK, map[string]any{"rows": rows, "unreadCount": 1})
	}))
	defer srv.Close()

	got, err := New(srv.URL, "t").NotificationFeed(context.Background(), feed.DeleteSet{"b": {}, "a": {}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UnreadCount)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, feed.RowHeader, got.Rows[0].Kind)
	require.NotNil(t, got.Rows[1].Item)
	assert.Equal(t, "cara started following you", got.Rows[1].Item.Message)
}

type deleteRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (d *deleteRecorder) handler(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.ids = append(d.ids, r.URL.Path)
	d.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (d *deleteRecorder) calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ids...)
}

func TestDeleteNotification_ThroughUndoQueue(t *testing.T) {
	rec := &deleteRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	q := feed.NewDeleteQueue(New(srv.URL, "t"), feed.WithWindow(30*time.Millisecond))
	q.Delete("n1")
	q.Delete("n2")
	assert.True(t, q.Undo("n2"))

	require.Eventually(t, func() bool { return len(rec.calls()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []string{"/api/v1/notifications/n1"}, rec.calls())
}

func TestSettingsRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body domain.NotificationSettings
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.False(t, body.Likes)
		writeData(w, http.StatusOK, body)
	}))
	defer srv.Close()

	settings := optimistic.New(domain.DefaultSettings(), nil)
	next := domain.DefaultSettings()
	next.Likes = false
	out := <-settings.Apply(context.Background(), next, New(srv.URL, "t").SettingsRemote())

	require.NoError(t, out.Err)
	assert.False(t, settings.Get().Likes)
	assert.True(t, settings.Get().Follows)
}

func TestProcessPushNow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/push/process", r.URL.Path)
		writeData(w, http.StatusOK, SweepReport{Claimed: 2, Sent: 1, Failed: 1})
	}))
	defer srv.Close()

	report, err := New(srv.URL, "t").ProcessPushNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Claimed: 2, Sent: 1, Failed: 1}, *report)
}
