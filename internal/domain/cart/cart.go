package cart

import (
	"errors"

	"github.com/Zhima-Mochi/coffee-register/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

var ErrLineNotFound = errors.New("cart: product not in cart")

type Line struct {
	Product  catalog.Product
	Quantity int
}

// Subtotal is the discounted unit price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.DiscountedPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart keeps lines in the order products were first added. Quantities are always positive.
type Cart struct {
	lines []Line
}

func New(lines ...Line) *Cart {
	c := &Cart{}
	for _, l := range lines {
		if l.Quantity > 0 {
			c.lines = append(c.lines, l)
		}
	}
	return c
}

// Add puts one more unit of p in the cart.
func (c *Cart) Add(p catalog.Product) {
	for i := range c.lines {
		if c.lines[i].Product.ID == p.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, Line{Product: p, Quantity: 1})
}

// SetQuantity replaces the quantity of a line; zero or less removes it.
func (c *Cart) SetQuantity(productID int64, quantity int) error {
	for i := range c.lines {
		if c.lines[i].Product.ID != productID {
			continue
		}
		if quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}
		c.lines[i].Quantity = quantity
		return nil
	}
	return ErrLineNotFound
}

func (c *Cart) Clear() { c.lines = nil }

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []Line {
	return append([]Line(nil), c.lines...)
}

func (c *Cart) Total() decimal.Decimal {
	return Total(c.lines)
}

func (c *Cart) Clone() *Cart {
	return &Cart{lines: c.Lines()}
}

// Total sums discounted unit price × quantity. Display and point accrual both use it.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
