package memory

import (
	"context"
	"sync"

	domain "github.com/Zhima-Mochi/coffee-register/internal/domain/notification"
)

const defaultNotificationLimit = 50

// NotificationRepository keeps the most recent notifications per session.
type NotificationRepository struct {
	mu    sync.RWMutex
	limit int
	feed  map[string][]domain.Notification
}

func NewNotificationRepository(limit int) *NotificationRepository {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	return &NotificationRepository{
		limit: limit,
		feed:  make(map[string][]domain.Notification),
	}
}

func (r *NotificationRepository) Append(ctx context.Context, n domain.Notification) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	list := append(r.feed[n.SessionID], n)
	if len(list) > r.limit {
		list = append([]domain.Notification(nil), list[len(list)-r.limit:]...)
	}
	r.feed[n.SessionID] = list
	return nil
}

// List returns the session's notifications, oldest first.
func (r *NotificationRepository) List(ctx context.Context, sessionID string) ([]domain.Notification, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.Notification(nil), r.feed[sessionID]...), nil
}
