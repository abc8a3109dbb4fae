package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/atlas-fitness/atlas-api/pkg/feed"
	"github.com/atlas-fitness/atlas-api/pkg/optimistic"
)

var _ feed.Deleter = (*Client)(nil)

// PageMeta describes one page of a paginated listing.
type PageMeta struct {
	CurrentPage     int   `json:"currentPage"`
	TotalPages      int   `json:"totalPages"`
	TotalItems      int64 `json:"totalItems"`
	ItemsPerPage    int   `json:"itemsPerPage"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// NotificationPage is one page of the caller's notifications, newest first.
type NotificationPage struct {
	Notifications []domain.Notification `json:"notifications"`
	Meta          PageMeta              `json:"-"`
}

// Feed is the grouped notification feed.
type Feed struct {
	Rows        []feed.Row `json:"rows"`
	UnreadCount int64      `json:"unreadCount"`
}

// SweepReport summarizes a push delivery pass.
type SweepReport struct {
	Skipped bool `json:"skipped"`
	Claimed int  `json:"claimed"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
}

func notificationPath(id string, suffix string) string {
	return apiPrefix + "/notifications/" + url.PathEscape(id) + suffix
}

// ListNotifications returns one page of notifications. Zero page or limit
// uses the server defaults.
func (c *Client) ListNotifications(ctx context.Context, page, limit int) (*NotificationPage, error) {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := apiPrefix + "/notifications"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("client.ListNotifications: %w", err)
	}
	var out NotificationPage
	if env == nil {
		return &out, nil
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("client.ListNotifications: decode data: %w", err)
	}
	if len(env.Meta) > 0 {
		if err := json.Unmarshal(env.Meta, &out.Meta); err != nil {
			return nil, fmt.Errorf("client.ListNotifications: decode meta: %w", err)
		}
	}
	return &out, nil
}

// NotificationFeed returns the grouped feed. Ids in exclude are left out,
// typically the pending deletes of a feed.DeleteQueue.
func (c *Client) NotificationFeed(ctx context.Context, exclude feed.DeleteSet) (*Feed, error) {
	path := apiPrefix + "/notifications/feed"
	if len(exclude) > 0 {
		ids := make([]string, 0, len(exclude))
		for id := range exclude {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		path += "?" + url.Values{"exclude": {strings.Join(ids, ",")}}.Encode()
	}

	var out Feed
	if err := c.get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("client.NotificationFeed: %w", err)
	}
	return &out, nil
}

// UnreadCount returns how many notifications are unread.
func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	if err := c.get(ctx, apiPrefix+"/notifications/unread-count", &out); err != nil {
		return 0, fmt.Errorf("client.UnreadCount: %w", err)
	}
	return out.Count, nil
}

// MarkRead marks one notification as read and returns it.
func (c *Client) MarkRead(ctx context.Context, id string) (*domain.Notification, error) {
	var out domain.Notification
	if err := c.put(ctx, notificationPath(id, "/read"), nil, &out); err != nil {
		return nil, fmt.Errorf("client.MarkRead: %w", err)
	}
	return &out, nil
}

// MarkAllRead marks every notification as read and returns how many changed.
func (c *Client) MarkAllRead(ctx context.Context) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := c.put(ctx, apiPrefix+"/notifications/read-all", nil, &out); err != nil {
		return 0, fmt.Errorf("client.MarkAllRead: %w", err)
	}
	return out.Updated, nil
}

// DeleteNotification permanently deletes a notification. It satisfies
// feed.Deleter.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	if err := c.delete(ctx, notificationPath(id, ""), nil); err != nil {
		return fmt.Errorf("client.DeleteNotification: %w", err)
	}
	return nil
}

// Settings returns the caller's push preferences.
func (c *Client) Settings(ctx context.Context) (domain.NotificationSettings, error) {
	var out domain.NotificationSettings
	if err := c.get(ctx, apiPrefix+"/notifications/settings", &out); err != nil {
		return domain.NotificationSettings{}, fmt.Errorf("client.Settings: %w", err)
	}
	return out, nil
}

// UpdateSettings replaces the caller's push preferences and returns the stored value.
func (c *Client) UpdateSettings(ctx context.Context, s domain.NotificationSettings) (domain.NotificationSettings, error) {
	var out domain.NotificationSettings
	if err := c.put(ctx, apiPrefix+"/notifications/settings", s, &out); err != nil {
		return domain.NotificationSettings{}, fmt.Errorf("client.UpdateSettings: %w", err)
	}
	return out, nil
}

// SettingsRemote saves settings through UpdateSettings for an optimistic.Value.
func (c *Client) SettingsRemote() optimistic.Remote[domain.NotificationSettings] {
	return c.UpdateSettings
}

// RegisterPushToken stores this device's push token for the caller.
func (c *Client) RegisterPushToken(ctx context.Context, token string) error {
	if err := c.post(ctx, apiPrefix+"/push/token", map[string]string{"token": token}, nil); err != nil {
		return fmt.Errorf("client.RegisterPushToken: %w", err)
	}
	return nil
}

// UnregisterPushToken clears the caller's push token.
func (c *Client) UnregisterPushToken(ctx context.Context) error {
	if err := c.delete(ctx, apiPrefix+"/push/token", nil); err != nil {
		return fmt.Errorf("client.UnregisterPushToken: %w", err)
	}
	return nil
}

// ProcessPushNow runs a push delivery pass on the server.
func (c *Client) ProcessPushNow(ctx context.Context) (*SweepReport, error) {
	var out SweepReport
	if err := c.post(ctx, apiPrefix+"/push/process", nil, &out); err != nil {
		return nil, fmt.Errorf("client.ProcessPushNow: %w", err)
	}
	return &out, nil
}

// MarkPushClicked records that a delivered push was opened.
func (c *Client) MarkPushClicked(ctx context.Context, batchID string) error {
	if err := c.post(ctx, apiPrefix+"/push/"+url.PathEscape(batchID)+"/clicked", nil, nil); err != nil {
		return fmt.Errorf("client.MarkPushClicked: %w", err)
	}
	return nil
}
