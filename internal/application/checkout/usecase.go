package checkout

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/coffee-register/internal/application"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/cart"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/member"
	domorder "github.com/Zhima-Mochi/coffee-register/internal/domain/order"
	"github.com/Zhima-Mochi/coffee-register/internal/observability"
	"github.com/Zhima-Mochi/coffee-register/internal/observability/logctx"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	checkoutService    = "register-service"
	useCaseCheckout    = "register.checkout"
	spanPrefix         = "UC."
	accrualReason      = "ORDER_PAYMENT"
	paymentMethodOther = string(domorder.PaymentMethodOther)
)

var _ application.UseCase[Input, *Result] = (*UseCase)(nil)

// Options toggles the optional steps. Disabled steps are reported as skipped.
type Options struct {
	StockCheck   bool
	StockConsume bool
	PointAccrual bool
	PointRate    decimal.Decimal
}

func DefaultOptions() Options {
	return Options{
		StockCheck:   true,
		StockConsume: true,
		PointAccrual: true,
		PointRate:    decimal.New(1, -1),
	}
}

type Input struct {
	SessionID string
	OrderID   *int64
	Lines     []cart.Line
	Member    *member.Member
}

type Result struct {
	OrderID       int64
	Status        domorder.Status
	Total         decimal.Decimal // server-reported when available
	ClientTotal   decimal.Decimal
	TotalMismatch bool
	PointsEarned  int64
	PaidAt        time.Time
	Steps         []StepReport
}

// UseCase runs the order confirmation saga:
// add items → stock check → confirm → stock consume → point accrual → pay.
// Steps run strictly one after another; there is no compensation for steps already applied upstream.
type UseCase struct {
	orders OrderPort
	stock  StockPort
	points PointPort
	opts   Options
	tel    observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	stepCounter  observability.Counter   // checkout_step_total{step,outcome}
}

func NewUseCase(orders OrderPort, stock StockPort, points PointPort, opts Options, tel observability.Observability) *UseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	if opts.PointRate.IsZero() {
		opts.PointRate = DefaultOptions().PointRate
	}
	metrics := tel.Metrics()
	return &UseCase{
		orders:       orders,
		stock:        stock,
		points:       points,
		opts:         opts,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", checkoutService)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		stepCounter:  metrics.Counter(observability.MCheckoutSteps),
	}
}

// run carries the per-invocation state of one saga.
type run struct {
	uc      *UseCase
	ctx     context.Context
	span    trace.Span
	logger  observability.Logger
	orderID int64
	items   []StockItem
	result  *Result
}

// Execute drives the order to PAID. The returned Result is never nil and always carries the step reports,
// including on abort.
func (uc *UseCase) Execute(ctx context.Context, in Input) (_ *Result, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseCheckout),
		observability.F("session_id", in.SessionID),
	)

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"Checkout",
		attribute.String("use_case", useCaseCheckout),
		attribute.String("session.id", in.SessionID),
		attribute.Int("cart.lines", len(in.Lines)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	result := &Result{ClientTotal: cart.Total(in.Lines)}

	defer func() {
		lat := time.Since(start).Seconds()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseCheckout),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat,
			observability.L("use_case", useCaseCheckout),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
			observability.F("client_total", result.ClientTotal.String()),
		}
		if result.OrderID != 0 {
			fields = append(fields, observability.F("order_id", result.OrderID))
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if in.OrderID == nil {
		outcome, statusText = "error", "ORDER_ID_REQUIRED"
		return result, ErrMissingOrder
	}
	if len(in.Lines) == 0 {
		outcome, statusText = "error", "CART_EMPTY"
		return result, ErrEmptyCart
	}

	result.OrderID = *in.OrderID
	span.SetAttributes(attribute.Int64("order.id", result.OrderID))

	r := &run{
		uc:      uc,
		ctx:     ctx,
		span:    span,
		logger:  logger.With(observability.F("order_id", result.OrderID)),
		orderID: result.OrderID,
		items:   stockItems(in.Lines),
		result:  result,
	}

	if err := r.addItems(in.Lines); err != nil {
		outcome, statusText = "error", "ITEM_ADD_FAILED"
		return result, err
	}
	if err := r.checkStock(); err != nil {
		outcome, statusText = "error", "INSUFFICIENT_STOCK"
		return result, err
	}
	confirmed, err := r.confirm()
	if err != nil {
		outcome, statusText = "error", "CONFIRM_FAILED"
		return result, err
	}
	r.consumeStock()

	base := result.ClientTotal
	if confirmed.Total.Valid {
		base = confirmed.Total.Decimal
	}
	accrued := r.accruePoints(in.Member, base)

	paid, err := r.pay(in.Member)
	if err != nil {
		outcome, statusText = "error", "PAYMENT_FAILED"
		return result, err
	}

	result.Status = domorder.StatusPaid
	result.PaidAt = paid.PaidAt
	switch {
	case paid.Total.Valid:
		result.Total = paid.Total.Decimal
	case confirmed.Total.Valid:
		result.Total = confirmed.Total.Decimal
	default:
		result.Total = result.ClientTotal
	}
	if !result.Total.Equal(result.ClientTotal) {
		result.TotalMismatch = true
		statusText = "TOTAL_MISMATCH"
		logger.Warn("checkout_total_mismatch",
			observability.F("order_id", result.OrderID),
			observability.F("server_total", result.Total.String()),
			observability.F("client_total", result.ClientTotal.String()),
		)
	}
	if in.Member != nil {
		if paid.PointsEarned != nil {
			result.PointsEarned = *paid.PointsEarned
		} else {
			result.PointsEarned = accrued
		}
	}

	span.SetAttributes(
		attribute.String("order.status", string(result.Status)),
		attribute.String("order.total", result.Total.String()),
	)
	return result, nil
}

// EarnedPoints is floor(total × rate).
func EarnedPoints(total, rate decimal.Decimal) int64 {
	return total.Mul(rate).Floor().IntPart()
}

func (r *run) addItems(lines []cart.Line) error {
	start := time.Now()
	for i := range lines {
		line := lines[i]
		if err := r.uc.orders.AddItem(r.ctx, r.orderID, line.Product.ID, line.Quantity); err != nil {
			r.record(StepAddItems, classify(err), err, start)
			return &StepError{
				Step:      StepAddItems,
				OrderID:   r.orderID,
				LineIndex: i,
				Line:      &line,
				Err:       err,
			}
		}
	}
	r.record(StepAddItems, OutcomeOK, nil, start)
	return nil
}

// checkStock only aborts when the stock service answers that items are unavailable.
// A failed call is treated as unknown and the saga continues.
func (r *run) checkStock() error {
	if !r.uc.opts.StockCheck || r.uc.stock == nil {
		r.record(StepStockCheck, OutcomeSkipped, nil, time.Now())
		return nil
	}
	start := time.Now()
	availability, err := r.uc.stock.CheckAvailability(r.ctx, r.items)
	if err != nil {
		r.record(StepStockCheck, classify(err), err, start)
		return nil
	}
	if !availability.Available {
		r.record(StepStockCheck, OutcomeLogicalFailure, ErrInsufficientStock, start)
		return &StepError{
			Step:    StepStockCheck,
			OrderID: r.orderID,
			Stock:   availability.Details,
		}
	}
	r.record(StepStockCheck, OutcomeOK, nil, start)
	return nil
}

func (r *run) confirm() (*ConfirmResult, error) {
	start := time.Now()
	res, err := r.uc.orders.Confirm(r.ctx, r.orderID)
	if err != nil {
		r.record(StepConfirm, classify(err), err, start)
		return nil, &StepError{Step: StepConfirm, OrderID: r.orderID, Err: err}
	}
	r.record(StepConfirm, OutcomeOK, nil, start)
	return res, nil
}

func (r *run) consumeStock() {
	if !r.uc.opts.StockConsume || r.uc.stock == nil {
		r.record(StepStockConsume, OutcomeSkipped, nil, time.Now())
		return
	}
	start := time.Now()
	res, err := r.uc.stock.Consume(r.ctx, r.orderID, r.items)
	switch {
	case err != nil:
		r.record(StepStockConsume, classify(err), err, start)
	case !res.Success:
		r.record(StepStockConsume, OutcomeLogicalFailure, errNotSuccessful, start)
	default:
		r.record(StepStockConsume, OutcomeOK, nil, start)
	}
}

// accruePoints returns the points credited, zero when skipped or failed.
func (r *run) accruePoints(m *member.Member, base decimal.Decimal) int64 {
	if m == nil || !r.uc.opts.PointAccrual || r.uc.points == nil {
		r.record(StepPointAccrual, OutcomeSkipped, nil, time.Now())
		return 0
	}
	start := time.Now()
	points := EarnedPoints(base, r.uc.opts.PointRate)
	res, err := r.uc.points.Accrue(r.ctx, AccrualRequest{
		MemberCardNo: m.CardNo,
		Points:       points,
		OrderID:      r.orderID,
		Reason:       accrualReason,
		BaseAmount:   base,
	})
	switch {
	case err != nil:
		r.record(StepPointAccrual, classify(err), err, start)
		return 0
	case !res.Success:
		r.record(StepPointAccrual, OutcomeLogicalFailure, errNotSuccessful, start)
		return 0
	}
	r.record(StepPointAccrual, OutcomeOK, nil, start)
	return points
}

func (r *run) pay(m *member.Member) (*PayResult, error) {
	req := PayRequest{PaymentMethod: paymentMethodOther}
	if m != nil {
		req.MemberCardNo = m.CardNo
	}
	start := time.Now()
	res, err := r.uc.orders.Pay(r.ctx, r.orderID, req)
	if err != nil {
		r.record(StepPay, classify(err), err, start)
		return nil, &StepError{Step: StepPay, OrderID: r.orderID, Err: err}
	}
	r.record(StepPay, OutcomeOK, nil, start)
	return res, nil
}

func (r *run) record(step Step, outcome Outcome, err error, start time.Time) {
	report := StepReport{Step: step, Outcome: outcome, Latency: time.Since(start)}
	if err != nil {
		report.Error = err.Error()
	}
	r.result.Steps = append(r.result.Steps, report)

	r.uc.stepCounter.Add(1,
		observability.L("step", string(step)),
		observability.L("outcome", string(outcome)),
	)
	r.span.AddEvent("checkout.step", trace.WithAttributes(
		attribute.String("step", string(step)),
		attribute.String("outcome", string(outcome)),
	))
	if report.Failed() {
		r.logger.Warn("checkout_step_failed",
			observability.F("step", string(step)),
			observability.F("outcome", string(outcome)),
			observability.F("error", report.Error),
		)
	}
}

func stockItems(lines []cart.Line) []StockItem {
	items := make([]StockItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, StockItem{ProductID: l.Product.ID, Quantity: l.Quantity})
	}
	return items
}
