package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	domnotification "github.com/Zhima-Mochi/coffee-register/internal/domain/notification"
	domorder "github.com/Zhima-Mochi/coffee-register/internal/domain/order"
	"github.com/Zhima-Mochi/coffee-register/internal/infrastructure/id"
	"github.com/Zhima-Mochi/coffee-register/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/coffee-register/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/coffee-register/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/coffee-register/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kindCounter struct {
	mu     sync.Mutex
	byKind map[string]float64
}

func (c *kindCounter) Add(d float64, labels ...observability.Label) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range labels {
		if l.Key == "kind" {
			c.byKind[l.Value] += d
		}
	}
}

func (c *kindCounter) Bind(...observability.Label) observability.BoundCounter { return nil }

func TestWorker_RecordsCheckoutNotifications(t *testing.T) {
	repo := memory.NewNotificationRepository(0)
	bus := outbox.NewBus(nil)
	counter := &kindCounter{byKind: map[string]float64{}}
	tel := infraobs.New(nil, nil, map[observability.MetricKey]observability.Counter{
		observability.MNotifications: counter,
	}, nil)

	New(repo, bus, id.NewUUIDGenerator(), tel).Start()
	bus.Start(context.Background())

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, domorder.CheckoutCompletedEvent{
		SessionID:    "s1",
		OrderID:      1000,
		Total:        decimal.NewFromInt(960),
		PointsEarned: 96,
		MemberCardNo: "1234567890",
		OccurredAt:   time.Now().UTC(),
	}))
	require.NoError(t, bus.Publish(ctx, domorder.CheckoutFailedEvent{
		SessionID: "s1",
		OrderID:   1001,
		Step:      "confirm",
		Reason:    "checkout: confirm failed: 409 ORDER_EMPTY",
	}))
	require.NoError(t, bus.Publish(ctx, domorder.CheckoutCompletedEvent{
		SessionID: "s2",
		OrderID:   1002,
		Total:     decimal.NewFromInt(300),
	}))
	require.NoError(t, bus.Stop(ctx))

	feed, err := repo.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, feed, 2)

	assert.Equal(t, domnotification.KindSuccess, feed[0].Kind)
	assert.Equal(t, "Order confirmed. Order ID: 1000, Total: ¥960, Points earned: 96", feed[0].Message)
	assert.NotEmpty(t, feed[0].ID)
	assert.False(t, feed[0].Retryable)

	assert.Equal(t, domnotification.KindError, feed[1].Kind)
	assert.Contains(t, feed[1].Message, "ORDER_EMPTY")
	assert.True(t, feed[1].Retryable)
	assert.False(t, feed[1].CreatedAt.IsZero())

	other, err := repo.List(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "Order confirmed. Order ID: 1002, Total: ¥300", other[0].Message)

	assert.Equal(t, float64(2), counter.byKind["success"])
	assert.Equal(t, float64(1), counter.byKind["error"])
}
