package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutCompletedEvent is emitted once a register session has paid its order.
type CheckoutCompletedEvent struct {
	SessionID    string
	OrderID      int64
	Total        decimal.Decimal
	PointsEarned int64
	MemberCardNo string
	OccurredAt   time.Time
}

func (CheckoutCompletedEvent) EventName() string { return "checkout.completed" }

// CheckoutFailedEvent is emitted when a checkout aborts on a mandatory step.
type CheckoutFailedEvent struct {
	SessionID  string
	OrderID    int64
	Step       string
	Reason     string
	OccurredAt time.Time
}

func (CheckoutFailedEvent) EventName() string { return "checkout.failed" }
