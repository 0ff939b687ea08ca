package catalog

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("catalog: product not found")

var hundred = decimal.NewFromInt(100)

type Category struct {
	ID           int64
	Name         string
	DisplayOrder int
}

type Product struct {
	ID                      int64
	Name                    string
	Price                   decimal.Decimal
	IsCampaign              bool
	CampaignDiscountPercent decimal.Decimal
	CategoryID              int64
	CategoryName            string
	Active                  bool
}

// DiscountedPrice is price × (1 − discount/100) for campaign products and the list price otherwise.
func (p Product) DiscountedPrice() decimal.Decimal {
	if !p.IsCampaign || p.CampaignDiscountPercent.IsZero() {
		return p.Price
	}
	factor := decimal.NewFromInt(1).Sub(p.CampaignDiscountPercent.Div(hundred))
	return p.Price.Mul(factor)
}
