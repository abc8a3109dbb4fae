// Package feed turns a flat notification list into display rows: period
// headers interleaved with individual or grouped notifications.
package feed

import (
	"fmt"
	"sort"
	"time"

	"github.com/atlas-fitness/atlas-api/pkg/domain"
)

// Period is a relative-age bucket used to section the feed.
type Period string

const (
	PeriodToday     Period = "Today"
	PeriodLastWeek  Period = "Last 7 days"
	PeriodLastMonth Period = "Last 30 days"
	PeriodOlder     Period = "Older"
)

// Periods lists the buckets in display order.
var Periods = []Period{PeriodToday, PeriodLastWeek, PeriodLastMonth, PeriodOlder}

const (
	todayLimit     = 24 * time.Hour
	lastWeekLimit  = 168 * time.Hour
	lastMonthLimit = 720 * time.Hour
)

// PeriodOf buckets createdAt relative to now. Timestamps in the future count as today.
func PeriodOf(createdAt, now time.Time) Period {
	age := now.Sub(createdAt)
	switch {
	case age < todayLimit:
		return PeriodToday
	case age < lastWeekLimit:
		return PeriodLastWeek
	case age < lastMonthLimit:
		return PeriodLastMonth
	default:
		return PeriodOlder
	}
}

// RowKind distinguishes headers from notification rows.
type RowKind string

const (
	RowHeader       RowKind = "header"
	RowNotification RowKind = "notification"
)

// Row is one entry of the rendered feed.
type Row struct {
	Kind   RowKind `json:"kind"`
	Period Period  `json:"period"`
	Item   *Item   `json:"item,omitempty"`
}

// Item is a notification row. Grouped items carry the fields of their first
// member plus every member that was merged into them.
type Item struct {
	ID           string                `json:"id"`
	Grouped      bool                  `json:"is_grouped"`
	Notification domain.Notification   `json:"notification"`
	Members      []domain.Notification `json:"members,omitempty"`
	OtherCount   int                   `json:"other_count"`
	Timestamp    time.Time             `json:"timestamp"`
	Message      string                `json:"message"`
}

// DeleteSet holds notification ids hidden by a pending or committed local delete.
type DeleteSet map[string]struct{}

// Has reports whether id is in the set. A nil set is empty.
func (s DeleteSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Group renders notifications (newest first) into feed rows. It is a pure
// function of its arguments; callers read now once per render.
func Group(notifications []domain.Notification, deleted DeleteSet, now time.Time) []Row {
	buckets := make(map[Period][]domain.Notification, len(Periods))
	for _, n := range notifications {
		if deleted.Has(n.ID) {
			continue
		}
		p := PeriodOf(n.CreatedAt, now)
		buckets[p] = append(buckets[p], n)
	}

	var rows []Row
	for _, p := range Periods {
		items := groupBucket(p, buckets[p])
		if len(items) == 0 {
			continue
		}
		rows = append(rows, Row{Kind: RowHeader, Period: p})
		for _, item := range items {
			rows = append(rows, Row{Kind: RowNotification, Period: p, Item: item})
		}
	}
	return rows
}

func groupBucket(p Period, notifications []domain.Notification) []*Item {
	var order []string
	groups := make(map[string][]domain.Notification)
	for _, n := range notifications {
		key := similarityKey(n)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], n)
	}

	items := make([]*Item, 0, len(order))
	for _, key := range order {
		members := groups[key]
		if len(members) == 1 {
			items = append(items, single(members[0]))
			continue
		}
		items = append(items, merged(p, key, members))
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return items
}

// similarityKey decides which notifications merge. Types that are never
// grouped, and groupable ones missing their target, key on their own id.
func similarityKey(n domain.Notification) string {
	switch n.Type {
	case domain.TypeFollow:
		return string(n.Type)
	case domain.TypePostLike:
		if n.PostID != nil {
			return string(n.Type) + ":" + *n.PostID
		}
	case domain.TypeRoutineLike, domain.TypeRoutineSave:
		if n.RoutineID != nil {
			return string(n.Type) + ":" + *n.RoutineID
		}
	}
	return "id:" + n.ID
}

func single(n domain.Notification) *Item {
	return &Item{
		ID:           n.ID,
		Notification: n,
		Timestamp:    n.CreatedAt,
		Message:      IndividualMessage(n.Actor.DisplayName(), n.Type),
	}
}

func merged(p Period, key string, members []domain.Notification) *Item {
	first := members[0]
	latest := first.CreatedAt
	for _, m := range members[1:] {
		if m.CreatedAt.After(latest) {
			latest = m.CreatedAt
		}
	}
	others := len(members) - 1
	return &Item{
		ID:           fmt.Sprintf("grouped:%s:%s", p, key),
		Grouped:      true,
		Notification: first,
		Members:      members,
		OtherCount:   others,
		Timestamp:    latest,
		Message:      GroupedMessage(first.Actor.DisplayName(), others, first.Type),
	}
}
