package github

import (
	"context"
	"strconv"

	"github.com/mygh/mygh/internal/core"
	"github.com/mygh/mygh/internal/core/engine"
)

// NotificationOptions filters the inbox.
type NotificationOptions struct {
	// All includes notifications already marked read.
	All           bool
	Participating bool
	Limit         int
}

// Notifications lists the authenticated user's notifications.
func (s *Service) Notifications(ctx context.Context, opts NotificationOptions) ([]core.Notification, error) {
	q := query()
	if opts.All {
		q.Set("all", strconv.FormatBool(true))
	}
	if opts.Participating {
		q.Set("participating", strconv.FormatBool(true))
	}
	return list[core.Notification](ctx, s, engine.Get("/notifications", q), opts.Limit, "")
}

// MarkNotificationsRead marks every notification read, or only those of
// ref when it is non-nil.
func (s *Service) MarkNotificationsRead(ctx context.Context, ref *RepoRef) error {
	path := "/notifications"
	if ref != nil {
		path = ref.path("notifications")
	}
	_, err := s.client.Put(ctx, path, map[string]any{})
	return err
}
