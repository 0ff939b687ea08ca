package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderPort is the order service as seen by the saga.
type OrderPort interface {
	AddItem(ctx context.Context, orderID, productID int64, quantity int) error
	Confirm(ctx context.Context, orderID int64) (*ConfirmResult, error)
	Pay(ctx context.Context, orderID int64, req PayRequest) (*PayResult, error)
}

// StockPort is optional; a nil port skips both stock steps.
type StockPort interface {
	CheckAvailability(ctx context.Context, items []StockItem) (*Availability, error)
	Consume(ctx context.Context, orderID int64, items []StockItem) (*Consumption, error)
}

// PointPort is optional; a nil port skips point accrual.
type PointPort interface {
	Accrue(ctx context.Context, req AccrualRequest) (*AccrualResult, error)
}

type ConfirmResult struct {
	OrderID     int64
	Status      string
	Total       decimal.NullDecimal
	Confirmed   bool
	ConfirmedAt time.Time
}

type PayRequest struct {
	PaymentMethod string
	MemberCardNo  string // empty means no member
}

type PayResult struct {
	OrderID       int64
	Status        string
	Total         decimal.NullDecimal
	PaymentMethod string
	PointsEarned  *int64
	Paid          bool
	PaidAt        time.Time
}

type StockItem struct {
	ProductID int64
	Quantity  int
}

type StockDetail struct {
	ProductID         int64
	Available         bool
	AvailableQuantity int
}

type Availability struct {
	Available bool
	Details   []StockDetail
}

type Consumption struct {
	Success bool
	OrderID int64
}

type AccrualRequest struct {
	MemberCardNo string
	Points       int64
	OrderID      int64
	Reason       string
	BaseAmount   decimal.Decimal
}

type AccrualResult struct {
	Success       bool
	TransactionID string
	PointsAdded   int64
	NewBalance    int64
}
