package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/Zhima-Mochi/coffee-register/internal/domain/catalog"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/notification"
	domorder "github.com/Zhima-Mochi/coffee-register/internal/domain/order"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_ClonesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	s := session.New("s-1")
	s.StartOrder(1000)
	require.NoError(t, repo.Insert(ctx, s))
	assert.ErrorIs(t, repo.Insert(ctx, s), session.ErrConflict)

	s.Cart.Add(catalog.Product{ID: 1, Price: decimal.NewFromInt(300)})

	got, err := repo.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, got.Cart.IsEmpty())
	require.NotNil(t, got.OrderID)
	assert.Equal(t, int64(1000), *got.OrderID)

	got.Cart.Add(catalog.Product{ID: 2, Price: decimal.NewFromInt(500)})
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, again.Cart.Lines(), 1)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, session.New("missing")), session.ErrNotFound)
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()

	o := domorder.New(1000, "")
	require.NoError(t, repo.Insert(ctx, o))
	assert.Error(t, repo.Insert(ctx, o))

	got, err := repo.Get(ctx, 1000)
	require.NoError(t, err)
	require.NoError(t, got.SetItem(domorder.Item{ProductID: 1, UnitPrice: decimal.NewFromInt(300), Quantity: 1}))
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.Get(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, "300", again.Total.String())

	_, err = repo.Get(ctx, 1)
	assert.ErrorIs(t, err, domorder.ErrNotFound)
}

func TestNotificationRepository_KeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(2)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Append(ctx, notification.Notification{
			SessionID: "s-1",
			Message:   fmt.Sprintf("n%d", i),
		}))
	}

	list, err := repo.List(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n1", list[0].Message)
	assert.Equal(t, "n2", list[1].Message)

	empty, err := repo.List(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
