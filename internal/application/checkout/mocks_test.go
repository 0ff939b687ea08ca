package checkout

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var errUnreachable = errors.New("dial tcp 127.0.0.1:5000: connect: connection refused")

// apiErr mimics an upstream error that carries a server response.
type apiErr struct{ msg string }

func (e *apiErr) Error() string  { return e.msg }
func (e *apiErr) Rejected() bool { return true }

type addItemCall struct {
	OrderID   int64
	ProductID int64
	Quantity  int
}

// MockOrderPort implements OrderPort for testing
type MockOrderPort struct {
	AddItemErrAt int // 1-based line number that fails; 0 means never
	AddItemErr   error
	ConfirmRes   *ConfirmResult
	ConfirmErr   error
	PayRes       *PayResult
	PayErr       error

	AddItemCalls []addItemCall
	ConfirmCalls int
	PayCalls     []PayRequest
}

func (m *MockOrderPort) AddItem(_ context.Context, orderID, productID int64, quantity int) error {
	m.AddItemCalls = append(m.AddItemCalls, addItemCall{orderID, productID, quantity})
	if m.AddItemErrAt != 0 && len(m.AddItemCalls) == m.AddItemErrAt {
		return m.AddItemErr
	}
	return nil
}

func (m *MockOrderPort) Confirm(_ context.Context, orderID int64) (*ConfirmResult, error) {
	m.ConfirmCalls++
	if m.ConfirmErr != nil {
		return nil, m.ConfirmErr
	}
	if m.ConfirmRes != nil {
		return m.ConfirmRes, nil
	}
	return &ConfirmResult{OrderID: orderID, Status: "CONFIRMED", Confirmed: true}, nil
}

func (m *MockOrderPort) Pay(_ context.Context, orderID int64, req PayRequest) (*PayResult, error) {
	m.PayCalls = append(m.PayCalls, req)
	if m.PayErr != nil {
		return nil, m.PayErr
	}
	if m.PayRes != nil {
		return m.PayRes, nil
	}
	return &PayResult{OrderID: orderID, Status: "PAID", PaymentMethod: req.PaymentMethod, Paid: true}, nil
}

// MockStockPort implements StockPort for testing
type MockStockPort struct {
	Availability *Availability
	CheckErr     error
	ConsumeRes   *Consumption
	ConsumeErr   error

	CheckCalls   int
	ConsumeCalls int
	CheckedItems []StockItem
}

func (m *MockStockPort) CheckAvailability(_ context.Context, items []StockItem) (*Availability, error) {
	m.CheckCalls++
	m.CheckedItems = items
	if m.CheckErr != nil {
		return nil, m.CheckErr
	}
	if m.Availability != nil {
		return m.Availability, nil
	}
	return &Availability{Available: true}, nil
}

func (m *MockStockPort) Consume(_ context.Context, orderID int64, _ []StockItem) (*Consumption, error) {
	m.ConsumeCalls++
	if m.ConsumeErr != nil {
		return nil, m.ConsumeErr
	}
	if m.ConsumeRes != nil {
		return m.ConsumeRes, nil
	}
	return &Consumption{Success: true, OrderID: orderID}, nil
}

// MockPointPort implements PointPort for testing
type MockPointPort struct {
	Res *AccrualResult
	Err error

	Calls []AccrualRequest
}

func (m *MockPointPort) Accrue(_ context.Context, req AccrualRequest) (*AccrualResult, error) {
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Res != nil {
		return m.Res, nil
	}
	return &AccrualResult{Success: true, PointsAdded: req.Points, NewBalance: 1500 + req.Points}, nil
}

func nullDecimal(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}
