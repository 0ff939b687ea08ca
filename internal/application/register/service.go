package register

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Zhima-Mochi/coffee-register/internal/application/checkout"
	domorder "github.com/Zhima-Mochi/coffee-register/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/coffee-register/internal/domain/outbox"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/session"
	"github.com/Zhima-Mochi/coffee-register/internal/observability"
	"github.com/Zhima-Mochi/coffee-register/internal/observability/logctx"
)

const (
	registerService = "register-service"
	publishTimeout  = 300 * time.Millisecond
)

// Service owns the register sessions. Each session is the explicit context handed to the checkout saga;
// mutations of one session are serialised and at most one checkout runs per session.
type Service struct {
	sessions  session.Repository
	orders    OrderCreator
	members   MemberFinder
	products  ProductFinder
	checkout  Checkout
	publisher domoutbox.Publisher
	ids       IDGenerator

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}

	locks sync.Map // session id -> *sync.Mutex
}

type Deps struct {
	Sessions  session.Repository
	Orders    OrderCreator
	Members   MemberFinder
	Products  ProductFinder
	Checkout  Checkout
	Publisher domoutbox.Publisher
	IDs       IDGenerator
}

func NewService(deps Deps, tel observability.Observability) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return &Service{
		sessions:     deps.Sessions,
		orders:       deps.Orders,
		members:      deps.Members,
		products:     deps.Products,
		checkout:     deps.Checkout,
		publisher:    deps.Publisher,
		ids:          deps.IDs,
		log:          tel.Logger().With(observability.F("service", registerService)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
	}
}

// CheckoutOutcome is returned by Checkout. Result is always set once the session was found.
type CheckoutOutcome struct {
	Result  *checkout.Result
	Session *session.Session
	// NextOrderError is set when the sale succeeded but no replacement order could be opened.
	NextOrderError error
}

// Open creates a session with a fresh upstream order.
func (s *Service) Open(ctx context.Context) (_ *session.Session, err error) {
	defer s.observe(ctx, "register.open", time.Now(), &err)

	orderID, err := s.orders.Create(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOrderCreateFailed, err)
	}

	sess := session.New(s.ids.NewID())
	sess.StartOrder(orderID)
	if err := s.sessions.Insert(ctx, sess); err != nil {
		return nil, fmt.Errorf("register: save session: %w", err)
	}
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (*session.Session, error) {
	return s.sessions.Get(ctx, id)
}

// AddProduct puts one more unit of the product in the cart.
func (s *Service) AddProduct(ctx context.Context, id string, productID int64) (_ *session.Session, err error) {
	defer s.observe(ctx, "register.add_product", time.Now(), &err)

	if productID <= 0 {
		return nil, ErrInvalidProduct
	}
	return s.mutate(ctx, id, func(sess *session.Session) error {
		p, err := s.products.Product(ctx, productID)
		if err != nil {
			return err
		}
		sess.Cart.Add(*p)
		return nil
	})
}

// SetQuantity changes a line's quantity; zero or less removes the line.
func (s *Service) SetQuantity(ctx context.Context, id string, productID int64, quantity int) (_ *session.Session, err error) {
	defer s.observe(ctx, "register.set_quantity", time.Now(), &err)

	return s.mutate(ctx, id, func(sess *session.Session) error {
		return sess.Cart.SetQuantity(productID, quantity)
	})
}

// AttachMember looks the member up by card number. Any lookup failure leaves the session without a member.
func (s *Service) AttachMember(ctx context.Context, id, cardNo string) (_ *session.Session, err error) {
	defer s.observe(ctx, "register.attach_member", time.Now(), &err)

	if cardNo == "" {
		return nil, ErrInvalidCardNo
	}
	var lookupErr error
	sess, err := s.mutate(ctx, id, func(sess *session.Session) error {
		m, err := s.members.FindByCardNo(ctx, cardNo)
		if err != nil {
			sess.Member = nil
			lookupErr = err
			return nil
		}
		sess.Member = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	if lookupErr != nil {
		return sess, fmt.Errorf("register: find member: %w", lookupErr)
	}
	return sess, nil
}

func (s *Service) DetachMember(ctx context.Context, id string) (*session.Session, error) {
	return s.mutate(ctx, id, func(sess *session.Session) error {
		sess.Member = nil
		return nil
	})
}

// Reset abandons the current order and opens a new one, clearing the cart, member and any unreconciled failure.
func (s *Service) Reset(ctx context.Context, id string) (_ *session.Session, err error) {
	defer s.observe(ctx, "register.reset", time.Now(), &err)

	return s.mutate(ctx, id, func(sess *session.Session) error {
		orderID, err := s.orders.Create(ctx, "")
		if err != nil {
			return fmt.Errorf("%w: %w", ErrOrderCreateFailed, err)
		}
		if sess.Unreconciled != nil {
			logctx.FromOr(ctx, s.log).Warn("order_abandoned_unreconciled",
				observability.F("session_id", sess.ID),
				observability.F("order_id", sess.Unreconciled.OrderID),
				observability.F("step", sess.Unreconciled.Step),
			)
		}
		sess.StartOrder(orderID)
		return nil
	})
}

// Checkout runs the saga with the session's order, cart and member. On success the session moves on to a
// fresh order. On a mandatory-step failure the session refuses further checkouts until Reset, since
// the upstream order may already hold items or be confirmed.
func (s *Service) Checkout(ctx context.Context, id string) (_ *CheckoutOutcome, err error) {
	defer s.observe(ctx, "register.checkout", time.Now(), &err)

	sess, err := s.beginCheckout(ctx, id)
	if err != nil {
		return nil, err
	}

	// The saga is not cancellable once started; only per-call timeouts apply.
	result, sagaErr := s.execute(context.WithoutCancel(ctx), checkout.Input{
		SessionID: sess.ID,
		OrderID:   sess.OrderID,
		Lines:     sess.Cart.Lines(),
		Member:    sess.Member,
	})

	outcome := &CheckoutOutcome{Result: result}
	unlock := s.lock(id)
	defer unlock()

	sess, err = s.sessions.Get(ctx, id)
	if err != nil {
		return outcome, err
	}
	sess.InCheckout = false

	if sagaErr != nil {
		var stepErr *checkout.StepError
		switch {
		case errors.Is(sagaErr, ErrCheckoutPanicked) && sess.OrderID != nil:
			sess.Unreconciled = &session.Failure{
				OrderID:    *sess.OrderID,
				Step:       "unknown",
				Reason:     sagaErr.Error(),
				OccurredAt: time.Now().UTC(),
			}
		case errors.As(sagaErr, &stepErr):
			sess.Unreconciled = &session.Failure{
				OrderID:    stepErr.OrderID,
				Step:       string(stepErr.Step),
				Reason:     sagaErr.Error(),
				OccurredAt: time.Now().UTC(),
			}
			s.publish(ctx, domorder.CheckoutFailedEvent{
				SessionID:  sess.ID,
				OrderID:    stepErr.OrderID,
				Step:       string(stepErr.Step),
				Reason:     sagaErr.Error(),
				OccurredAt: time.Now().UTC(),
			})
		}
		sess.Touch()
		if err := s.sessions.Update(ctx, sess); err != nil {
			return outcome, fmt.Errorf("register: save session: %w", err)
		}
		outcome.Session = sess
		return outcome, sagaErr
	}

	var memberCardNo string
	if sess.Member != nil {
		memberCardNo = sess.Member.CardNo
	}
	s.publish(ctx, domorder.CheckoutCompletedEvent{
		SessionID:    sess.ID,
		OrderID:      result.OrderID,
		Total:        result.Total,
		PointsEarned: result.PointsEarned,
		MemberCardNo: memberCardNo,
		OccurredAt:   time.Now().UTC(),
	})

	if nextID, err := s.orders.Create(ctx, ""); err != nil {
		outcome.NextOrderError = fmt.Errorf("%w: %w", ErrOrderCreateFailed, err)
		sess.DropOrder()
	} else {
		sess.StartOrder(nextID)
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		return outcome, fmt.Errorf("register: save session: %w", err)
	}
	outcome.Session = sess
	return outcome, nil
}

// execute turns a panic inside the saga into ErrCheckoutPanicked so the session is released.
func (s *Service) execute(ctx context.Context, in checkout.Input) (_ *checkout.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			logctx.FromOr(ctx, s.log).Error("checkout_panic",
				observability.F("session_id", in.SessionID),
				observability.F("panic", fmt.Sprint(p)),
			)
			err = fmt.Errorf("%w: %v", ErrCheckoutPanicked, p)
		}
	}()
	return s.checkout.Execute(ctx, in)
}

func (s *Service) beginCheckout(ctx context.Context, id string) (*session.Session, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.InCheckout {
		return nil, ErrCheckoutInProgress
	}
	if sess.Unreconciled != nil {
		return nil, ErrOrderUnreconciled
	}
	sess.InCheckout = true
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("register: save session: %w", err)
	}
	return sess, nil
}

// mutate applies fn to the stored session under the session lock and saves it.
func (s *Service) mutate(ctx context.Context, id string, fn func(*session.Session) error) (*session.Session, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.InCheckout {
		return nil, ErrCheckoutInProgress
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.Touch()
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("register: save session: %w", err)
	}
	return sess, nil
}

func (s *Service) lock(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// publish is best-effort; a dropped event only costs the cashier notification.
func (s *Service) publish(ctx context.Context, e domoutbox.Event) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, e); err != nil {
		logctx.FromOr(ctx, s.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
}

func (s *Service) observe(ctx context.Context, useCase string, start time.Time, errp *error) {
	outcome := "success"
	if *errp != nil {
		outcome = "error"
		logctx.FromOr(ctx, s.log).Info("use_case_done",
			observability.F("use_case", useCase),
			observability.F("outcome", outcome),
			observability.F("error", (*errp).Error()),
		)
	}
	s.reqCounter.Add(1,
		observability.L("use_case", useCase),
		observability.L("outcome", outcome),
	)
	s.durHistogram.Observe(time.Since(start).Seconds(),
		observability.L("use_case", useCase),
	)
}
