package worker

import (
	"context"
	"fmt"
	"time"

	domnotification "github.com/Zhima-Mochi/coffee-register/internal/domain/notification"
	domorder "github.com/Zhima-Mochi/coffee-register/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/coffee-register/internal/domain/outbox"
	"github.com/Zhima-Mochi/coffee-register/internal/observability"
	"github.com/Zhima-Mochi/coffee-register/internal/observability/logctx"
	workerpresentation "github.com/Zhima-Mochi/coffee-register/internal/presentation/worker"
)

const workerName = "notification-worker"

type IDGenerator interface {
	NewID() string
}

// Worker turns checkout events into the cashier's notification feed:
// one alert per paid order and one error banner per aborted checkout.
type Worker struct {
	repo       domnotification.Repository
	subscriber domoutbox.Subscriber
	ids        IDGenerator
	log        observability.Logger
	counter    observability.Counter // notifications_total{kind}
}

func New(repo domnotification.Repository, subscriber domoutbox.Subscriber, ids IDGenerator, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		repo:       repo,
		subscriber: subscriber,
		ids:        ids,
		log:        tel.Logger().With(observability.F("component", workerName)),
		counter:    tel.Metrics().Counter(observability.MNotifications),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.repo == nil {
		return
	}
	attrs := map[string]string{"worker": workerName}
	w.subscriber.Subscribe(domorder.CheckoutCompletedEvent{}.EventName(), workerpresentation.Handle(w.log, attrs, w.handleCompleted))
	w.subscriber.Subscribe(domorder.CheckoutFailedEvent{}.EventName(), workerpresentation.Handle(w.log, attrs, w.handleFailed))
}

func (w *Worker) handleCompleted(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.CheckoutCompletedEvent)
	if !ok {
		return nil
	}

	msg := fmt.Sprintf("Order confirmed. Order ID: %d, Total: ¥%s", evt.OrderID, evt.Total.StringFixed(0))
	if evt.MemberCardNo != "" {
		msg = fmt.Sprintf("%s, Points earned: %d", msg, evt.PointsEarned)
	}
	return w.append(ctx, domnotification.Notification{
		SessionID: evt.SessionID,
		Kind:      domnotification.KindSuccess,
		Message:   msg,
		OrderID:   evt.OrderID,
		CreatedAt: evt.OccurredAt,
	})
}

func (w *Worker) handleFailed(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.CheckoutFailedEvent)
	if !ok {
		return nil
	}

	return w.append(ctx, domnotification.Notification{
		SessionID: evt.SessionID,
		Kind:      domnotification.KindError,
		Message:   fmt.Sprintf("Order confirmation failed: %s. Reset the order before retrying.", evt.Reason),
		OrderID:   evt.OrderID,
		Retryable: true,
		CreatedAt: evt.OccurredAt,
	})
}

func (w *Worker) append(ctx context.Context, n domnotification.Notification) error {
	n.ID = w.ids.NewID()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("session_id", n.SessionID),
		observability.F("order_id", n.OrderID),
	)
	if err := w.repo.Append(ctx, n); err != nil {
		logger.Error("notification_store_failed", observability.F("error", err))
		return fmt.Errorf("notification worker: append: %w", err)
	}

	w.counter.Add(1, observability.L("kind", string(n.Kind)))
	logger.Info("notification_recorded", observability.F("kind", string(n.Kind)))
	return nil
}
