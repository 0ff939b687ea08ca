package checkout

import (
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/coffee-register/internal/domain/cart"
)

var (
	ErrMissingOrder      = errors.New("checkout: order id is required")
	ErrEmptyCart         = errors.New("checkout: cart is empty")
	ErrItemAddFailed     = errors.New("checkout: add item failed")
	ErrInsufficientStock = errors.New("checkout: insufficient stock")
	ErrConfirmFailed     = errors.New("checkout: confirm failed")
	ErrPaymentFailed     = errors.New("checkout: payment failed")

	errNotSuccessful = errors.New("upstream reported success=false")
)

// StepError reports the step that aborted a checkout. It matches the step's sentinel
// (ErrItemAddFailed, ErrInsufficientStock, ErrConfirmFailed, ErrPaymentFailed) and the upstream cause.
type StepError struct {
	Step      Step
	OrderID   int64
	LineIndex int        // add_items only
	Line      *cart.Line // add_items only
	Stock     []StockDetail
	Err       error
}

var stepSentinels = map[Step]error{
	StepAddItems:   ErrItemAddFailed,
	StepStockCheck: ErrInsufficientStock,
	StepConfirm:    ErrConfirmFailed,
	StepPay:        ErrPaymentFailed,
}

// Kind returns the sentinel for the failed step, nil for steps that never abort.
func (e *StepError) Kind() error {
	return stepSentinels[e.Step]
}

func (e *StepError) Error() string {
	msg := "checkout: " + string(e.Step) + " failed"
	if kind := e.Kind(); kind != nil {
		msg = kind.Error()
	}
	if e.Line != nil {
		msg = fmt.Sprintf("%s: line %d (product %d x%d)", msg, e.LineIndex+1, e.Line.Product.ID, e.Line.Quantity)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *StepError) Unwrap() []error {
	var errs []error
	if kind := e.Kind(); kind != nil {
		errs = append(errs, kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// rejected is implemented by upstream errors that carry a server response,
// as opposed to errors where the call never completed.
type rejected interface {
	Rejected() bool
}

func classify(err error) Outcome {
	var r rejected
	if errors.As(err, &r) && r.Rejected() {
		return OutcomeLogicalFailure
	}
	return OutcomeTransportFailed
}
