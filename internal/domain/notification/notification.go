package notification

import (
	"context"
	"time"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is what the cashier sees after a checkout: an alert on success or an error banner with a retry hint.
type Notification struct {
	ID        string
	SessionID string
	Kind      Kind
	Message   string
	OrderID   int64
	Retryable bool
	CreatedAt time.Time
}

type Repository interface {
	Append(ctx context.Context, n Notification) error
	List(ctx context.Context, sessionID string) ([]Notification, error)
}
