package checkout_test

import (
	"errors"
	"testing"

	"github.com/Zhima-Mochi/coffee-register/internal/application/checkout"
	"github.com/stretchr/testify/assert"
)

func TestStepError_SentinelFollowsStep(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		step checkout.Step
		want error
	}{
		{checkout.StepAddItems, checkout.ErrItemAddFailed},
		{checkout.StepStockCheck, checkout.ErrInsufficientStock},
		{checkout.StepConfirm, checkout.ErrConfirmFailed},
		{checkout.StepPay, checkout.ErrPaymentFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.step), func(t *testing.T) {
			err := &checkout.StepError{Step: tt.step, OrderID: 1000, Err: cause}

			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, cause)
			assert.Equal(t, tt.want.Error()+": boom", err.Error())
		})
	}
}

func TestStepError_UnknownStepWithoutCause(t *testing.T) {
	err := &checkout.StepError{Step: checkout.StepStockConsume}

	assert.NotPanics(t, func() { _ = err.Error() })
	assert.Equal(t, "checkout: stock_consume failed", err.Error())
	assert.Empty(t, err.Unwrap())
	assert.NotErrorIs(t, err, checkout.ErrConfirmFailed)
}
