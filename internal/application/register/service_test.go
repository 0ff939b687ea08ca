package register

import (
	"context"
	"errors"
	"testing"

	"github.com/Zhima-Mochi/coffee-register/internal/application/checkout"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/catalog"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/member"
	domorder "github.com/Zhima-Mochi/coffee-register/internal/domain/order"
	"github.com/Zhima-Mochi/coffee-register/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hotCoffee = catalog.Product{ID: 1, Name: "Hot coffee (M)", Price: decimal.NewFromInt(300)}
	sandwich  = catalog.Product{ID: 7, Name: "Sandwich", Price: decimal.NewFromInt(450)}
	taro      = &member.Member{ID: "M001", CardNo: "1234567890", FirstName: "Taro", LastName: "Yamada", PointBalance: 1500}
)

type fixture struct {
	orders    *MockOrderCreator
	members   *MockMemberFinder
	checkout  *MockCheckout
	publisher *MockPublisher
	svc       *Service
}

func newFixture() *fixture {
	f := &fixture{
		orders:    &MockOrderCreator{},
		members:   &MockMemberFinder{Members: map[string]*member.Member{taro.CardNo: taro}},
		checkout:  &MockCheckout{},
		publisher: &MockPublisher{},
	}
	f.svc = NewService(Deps{
		Sessions: memory.NewSessionRepository(),
		Orders:   f.orders,
		Members:  f.members,
		Products: &MockProductFinder{Products: map[int64]catalog.Product{
			hotCoffee.ID: hotCoffee,
			sandwich.ID:  sandwich,
		}},
		Checkout:  f.checkout,
		Publisher: f.publisher,
		IDs:       &seqIDs{},
	}, nil)
	return f
}

func TestOpen(t *testing.T) {
	f := newFixture()

	sess, err := f.svc.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "session-1", sess.ID)
	require.NotNil(t, sess.OrderID)
	assert.Equal(t, int64(1000), *sess.OrderID)
	assert.True(t, sess.Cart.IsEmpty())

	stored, err := f.svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.OrderID, stored.OrderID)
}

func TestOpen_OrderCreateFails(t *testing.T) {
	f := newFixture()
	f.orders.FailAt, f.orders.Err = 1, errors.New("upstream down")

	_, err := f.svc.Open(context.Background())
	assert.ErrorIs(t, err, ErrOrderCreateFailed)
}

func TestGet_Unknown(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAddProductAndSetQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	sess, err := f.svc.Open(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddProduct(ctx, sess.ID, hotCoffee.ID)
	require.NoError(t, err)
	sess, err = f.svc.AddProduct(ctx, sess.ID, hotCoffee.ID)
	require.NoError(t, err)
	sess, err = f.svc.AddProduct(ctx, sess.ID, sandwich.ID)
	require.NoError(t, err)

	lines := sess.Cart.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, decimal.NewFromInt(1050).Equal(sess.Cart.Total()))

	sess, err = f.svc.SetQuantity(ctx, sess.ID, hotCoffee.ID, 0)
	require.NoError(t, err)
	require.Len(t, sess.Cart.Lines(), 1)
	assert.Equal(t, sandwich.ID, sess.Cart.Lines()[0].Product.ID)

	_, err = f.svc.SetQuantity(ctx, sess.ID, hotCoffee.ID, 3)
	assert.ErrorIs(t, err, ErrLineNotFound)

	_, err = f.svc.AddProduct(ctx, sess.ID, 99)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = f.svc.AddProduct(ctx, sess.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestAttachMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	sess, err := f.svc.Open(ctx)
	require.NoError(t, err)

	sess, err = f.svc.AttachMember(ctx, sess.ID, taro.CardNo)
	require.NoError(t, err)
	require.NotNil(t, sess.Member)
	assert.Equal(t, "Yamada", sess.Member.LastName)

	// an unknown card drops the previously attached member
	sess, err = f.svc.AttachMember(ctx, sess.ID, "0000000000")
	assert.ErrorIs(t, err, ErrMemberNotFound)
	require.NotNil(t, sess)
	assert.Nil(t, sess.Member)

	stored, err := f.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Member)

	_, err = f.svc.AttachMember(ctx, sess.ID, "")
	assert.ErrorIs(t, err, ErrInvalidCardNo)
}

func TestAttachMember_LookupFailureClearsMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	sess, err := f.svc.Open(ctx)
	require.NoError(t, err)
	_, err = f.svc.AttachMember(ctx, sess.ID, taro.CardNo)
	require.NoError(t, err)

	f.members.Err = errors.New("timeout")
	sess, err = f.svc.AttachMember(ctx, sess.ID, taro.CardNo)
	require.Error(t, err)
	assert.Nil(t, sess.Member)
}

func TestDetachMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	sess, err := f.svc.Open(ctx)
	require.NoError(t, err)
	_, err = f.svc.AttachMember(ctx, sess.ID, taro.CardNo)
	require.NoError(t, err)

	sess, err = f.svc.DetachMember(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, sess.Member)
}

func TestCheckout_SuccessStartsNextOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.checkout.Result = &checkout.Result{Status: domorder.StatusPaid, Total: decimal.NewFromInt(600), PointsEarned: 60}

	sess, err := f.svc.Open(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddProduct(ctx, sess.ID, hotCoffee.ID)
	require.NoError(t, err)
	_, err = f.svc.SetQuantity(ctx, sess.ID, hotCoffee.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.AttachMember(ctx, sess.ID, taro.CardNo)
	require.NoError(t, err)

	out, err := f.svc.Checkout(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, int64(1000), out.Result.OrderID)
	assert.NoError(t, out.NextOrderError)

	require.Len(t, f.checkout.Inputs, 1)
	in := f.checkout.Inputs[0]
	assert.Equal(t, sess.ID, in.SessionID)
	require.Len(t, in.Lines, 1)
	assert.Equal(t, 2, in.Lines[0].Quantity)
	require.NotNil(t, in.Member)
	assert.Equal(t, taro.CardNo, in.Member.CardNo)

	// the session moved on to a fresh, empty order without a member
	require.NotNil(t, out.Session.OrderID)
	assert.Equal(t, int64(1001), *out.Session.OrderID)
	assert.True(t, out.Session.Cart.IsEmpty())
	assert.Nil(t, out.Session.Member)
	assert.False(t, out.Session.InCheckout)

	require.Len(t, f.publisher.Events, 1)
	ev, ok := f.publisher.Events[0].(domorder.CheckoutCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(1000), ev.OrderID)
	assert.Equal(t, int64(60), ev.PointsEarned)
	assert.Equal(t, taro.CardNo, ev.MemberCardNo)
}

func TestCheckout_NextOrderFailureDropsOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.orders.FailAt, f.orders.Err = 2, errors.New("upstream down")

	sess, err := f.svc.Open(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddProduct(ctx, sess.ID, sandwich.ID)
	require.NoError(t, err)

	out, err := f.svc.Checkout(ctx, sess.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, out.NextOrderError, ErrOrderCreateFailed)
	assert.Nil(t, out.Session.OrderID)
	assert.True(t, out.Session.Cart.IsEmpty())

	// Reset recovers with a new order
	sess, err = f.svc.Reset(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, sess.OrderID)
	assert.Equal(t, int64(1001), *sess.OrderID)
}

func TestCheckout_MandatoryFailureMarksUnreconciled(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.checkout.Err = &checkout.StepError{Step: checkout.StepConfirm, OrderID: 1000, Err: errors.New("boom")}

	sess, err := f.svc.Open(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddProduct(ctx, sess.ID, hotCoffee.ID)
	require.NoError(t, err)

	out, err := f.svc.Checkout(ctx, sess.ID)
	require.ErrorIs(t, err, checkout.ErrConfirmFailed)
	assert.EqualError(t, err, "checkout: confirm failed: boom")
	require.NotNil(t, out.Session.Unreconciled)
	assert.Equal(t, int64(1000), out.Session.Unreconciled.OrderID)
	assert.Equal(t, string(checkout.StepConfirm), out.Session.Unreconciled.Step)
	// the cart is kept so the cashier can see what was rung up
	assert.False(t, out.Session.Cart.IsEmpty())

	require.Len(t, f.publisher.Events, 1)
	_, ok := f.publisher.Events[0].(domorder.CheckoutFailedEvent)
	assert.True(t, ok)

	_, err = f.svc.Checkout(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrOrderUnreconciled)
	assert.Len(t, f.checkout.Inputs, 1)

	sess, err = f.svc.Reset(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, sess.Unreconciled)
	assert.True(t, sess.Cart.IsEmpty())
	assert.Equal(t, int64(1001), *sess.OrderID)
}

func TestCheckout_PanicReleasesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.checkout.Panic = "nil map write"

	sess, err := f.svc.Open(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddProduct(ctx, sess.ID, hotCoffee.ID)
	require.NoError(t, err)

	out, err := f.svc.Checkout(ctx, sess.ID)
	require.ErrorIs(t, err, ErrCheckoutPanicked)
	require.NotNil(t, out.Session)
	assert.False(t, out.Session.InCheckout)
	require.NotNil(t, out.Session.Unreconciled)
	assert.Equal(t, int64(1000), out.Session.Unreconciled.OrderID)

	// the session is not stuck in checkout: a reset brings it back
	_, err = f.svc.Checkout(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrOrderUnreconciled)

	f.checkout.Panic = nil
	sess, err = f.svc.Reset(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, sess.InCheckout)
	assert.Nil(t, sess.Unreconciled)
	assert.Equal(t, int64(1001), *sess.OrderID)
}

func TestCheckout_PreconditionFailureKeepsSessionUsable(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.checkout.Err = checkout.ErrEmptyCart

	sess, err := f.svc.Open(ctx)
	require.NoError(t, err)

	out, err := f.svc.Checkout(ctx, sess.ID)
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	assert.Nil(t, out.Session.Unreconciled)
	assert.False(t, out.Session.InCheckout)
	assert.Empty(t, f.publisher.Events)
}

func TestCheckout_InProgressRejectsConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.checkout.Block = make(chan struct{})
	f.checkout.Started = make(chan struct{})

	sess, err := f.svc.Open(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddProduct(ctx, sess.ID, hotCoffee.ID)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Checkout(ctx, sess.ID)
		done <- err
	}()
	<-f.checkout.Started

	_, err = f.svc.Checkout(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
	_, err = f.svc.AddProduct(ctx, sess.ID, sandwich.ID)
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	close(f.checkout.Block)
	require.NoError(t, <-done)
}

func TestCheckout_PublishFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.publisher.Err = errors.New("bus closed")

	sess, err := f.svc.Open(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddProduct(ctx, sess.ID, hotCoffee.ID)
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, sess.ID)
	assert.NoError(t, err)
}
