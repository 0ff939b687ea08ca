package cart

import (
	"testing"

	"github.com/Zhima-Mochi/coffee-register/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	coffee = catalog.Product{ID: 1, Name: "Hot coffee (M)", Price: decimal.NewFromInt(300)}
	latte  = catalog.Product{ID: 4, Name: "Cafe latte (L)", Price: decimal.NewFromInt(400), IsCampaign: true, CampaignDiscountPercent: decimal.NewFromInt(10)}
)

func TestCart_AddIncrementsExistingLine(t *testing.T) {
	c := New()
	c.Add(coffee)
	c.Add(latte)
	c.Add(coffee)

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, int64(1), lines[0].Product.ID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 1, lines[1].Quantity)
}

func TestCart_Total(t *testing.T) {
	c := New(Line{Product: coffee, Quantity: 2}, Line{Product: latte, Quantity: 1})

	assert.Equal(t, "960", c.Total().String())
}

func TestCart_SetQuantity(t *testing.T) {
	c := New(Line{Product: coffee, Quantity: 2}, Line{Product: latte, Quantity: 1})

	require.NoError(t, c.SetQuantity(latte.ID, 3))
	assert.Equal(t, 3, c.Lines()[1].Quantity)

	require.NoError(t, c.SetQuantity(coffee.ID, 0))
	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, latte.ID, lines[0].Product.ID)

	assert.ErrorIs(t, c.SetQuantity(99, 1), ErrLineNotFound)
}

func TestCart_NewDropsNonPositiveLines(t *testing.T) {
	c := New(Line{Product: coffee, Quantity: 0}, Line{Product: latte, Quantity: -1})
	assert.True(t, c.IsEmpty())
}

func TestCart_CloneIsIndependent(t *testing.T) {
	c := New(Line{Product: coffee, Quantity: 1})
	clone := c.Clone()
	clone.Add(coffee)
	clone.Add(latte)

	assert.Equal(t, 1, c.Lines()[0].Quantity)
	assert.Len(t, c.Lines(), 1)
}
