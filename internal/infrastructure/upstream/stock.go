package upstream

import (
	"context"
	"net/http"

	"github.com/Zhima-Mochi/coffee-register/internal/application/checkout"
)

const peerStock = "stock-service"

type StockClient struct {
	c *Client
}

func NewStockClient(c *Client) *StockClient { return &StockClient{c: c} }

type stockItemDTO struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type stockDetailDTO struct {
	ProductID         int64 `json:"productId"`
	Available         bool  `json:"available"`
	AvailableQuantity int   `json:"availableQuantity"`
}

type availabilityRequest struct {
	Items []stockItemDTO `json:"items"`
}

// availabilityResponse accepts the per-product breakdown under either "details" or "items".
type availabilityResponse struct {
	Available bool             `json:"available"`
	Details   []stockDetailDTO `json:"details"`
	Items     []stockDetailDTO `json:"items"`
}

type consumptionRequest struct {
	OrderID int64          `json:"orderId"`
	Items   []stockItemDTO `json:"items"`
}

type consumptionResponse struct {
	Success bool  `json:"success"`
	OrderID int64 `json:"orderId"`
}

func (s *StockClient) CheckAvailability(ctx context.Context, items []checkout.StockItem) (*checkout.Availability, error) {
	var out availabilityResponse
	err := s.c.do(ctx, call{
		peer:     peerStock,
		endpoint: "POST /api/v1/stocks/availability-check",
		method:   http.MethodPost,
		path:     "/api/v1/stocks/availability-check",
		body:     availabilityRequest{Items: toStockItems(items)},
		out:      &out,
	})
	if err != nil {
		return nil, err
	}

	details := out.Details
	if len(details) == 0 {
		details = out.Items
	}
	res := &checkout.Availability{Available: out.Available}
	for _, d := range details {
		res.Details = append(res.Details, checkout.StockDetail{
			ProductID:         d.ProductID,
			Available:         d.Available,
			AvailableQuantity: d.AvailableQuantity,
		})
	}
	return res, nil
}

func (s *StockClient) Consume(ctx context.Context, orderID int64, items []checkout.StockItem) (*checkout.Consumption, error) {
	var out consumptionResponse
	err := s.c.do(ctx, call{
		peer:     peerStock,
		endpoint: "POST /api/v1/stocks/consumption",
		method:   http.MethodPost,
		path:     "/api/v1/stocks/consumption",
		body:     consumptionRequest{OrderID: orderID, Items: toStockItems(items)},
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &checkout.Consumption{Success: out.Success, OrderID: out.OrderID}, nil
}

func toStockItems(items []checkout.StockItem) []stockItemDTO {
	out := make([]stockItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, stockItemDTO{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}
