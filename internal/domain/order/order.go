package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("order: not found")
	ErrInvalidQuantity        = errors.New("order: quantity must be greater than zero")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
	ErrEmpty                  = errors.New("order: no items")
)

type Status string

const (
	StatusInOrder   Status = "IN_ORDER"
	StatusConfirmed Status = "CONFIRMED"
	StatusPaid      Status = "PAID"
)

type PaymentMethod string

const (
	PaymentMethodPoint PaymentMethod = "POINT"
	PaymentMethodOther PaymentMethod = "OTHER"
)

type Item struct {
	ProductID    int64
	ProductName  string
	ProductPrice decimal.Decimal
	UnitPrice    decimal.Decimal
	Quantity     int
}

// Order is the upstream order record. Status only moves forward: IN_ORDER → CONFIRMED → PAID.
type Order struct {
	ID            int64
	MemberCardNo  string
	Items         []Item
	Total         decimal.Decimal
	PaymentMethod PaymentMethod
	CreatedAt     time.Time
	ConfirmedAt   time.Time
	PaidAt        time.Time

	state orderState
}

func New(id int64, memberCardNo string) *Order {
	return &Order{
		ID:           id,
		MemberCardNo: memberCardNo,
		Total:        decimal.Zero,
		CreatedAt:    time.Now().UTC(),
		state:        inOrderState{},
	}
}

func (o *Order) Status() Status {
	return o.current().Status()
}

// SetItem sets the quantity for a product, replacing any earlier quantity, and recomputes the total.
func (o *Order) SetItem(item Item) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	next, err := o.current().OnItemSet(o)
	if err != nil {
		return err
	}
	replaced := false
	for i := range o.Items {
		if o.Items[i].ProductID == item.ProductID {
			o.Items[i].Quantity = item.Quantity
			replaced = true
			break
		}
	}
	if !replaced {
		o.Items = append(o.Items, item)
	}
	o.recalculate()
	o.state = next
	return nil
}

func (o *Order) Confirm() error {
	next, err := o.current().OnConfirm(o)
	if err != nil {
		return err
	}
	o.state = next
	o.ConfirmedAt = time.Now().UTC()
	return nil
}

func (o *Order) Pay(method PaymentMethod, memberCardNo string) error {
	next, err := o.current().OnPay(o)
	if err != nil {
		return err
	}
	o.state = next
	o.PaymentMethod = method
	if memberCardNo != "" {
		o.MemberCardNo = memberCardNo
	}
	o.PaidAt = time.Now().UTC()
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	return &clone
}

func (o *Order) current() orderState {
	if o.state == nil {
		o.state = inOrderState{}
	}
	return o.state
}

func (o *Order) recalculate() {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	o.Total = total
}
