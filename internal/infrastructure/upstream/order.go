package upstream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Zhima-Mochi/coffee-register/internal/application/checkout"
	"github.com/shopspring/decimal"
)

const peerOrder = "order-service"

// OrderClient talks to the order service. It serves both the register (order creation) and the checkout saga.
type OrderClient struct {
	c *Client
}

func NewOrderClient(c *Client) *OrderClient { return &OrderClient{c: c} }

type createOrderRequest struct {
	MemberCardNo *string `json:"memberCardNo"`
}

type orderItemDTO struct {
	ProductID    int64               `json:"productId"`
	ProductName  string              `json:"productName"`
	ProductPrice decimal.NullDecimal `json:"productPrice"`
	Quantity     int                 `json:"quantity"`
}

type orderResponse struct {
	OrderID int64               `json:"orderId"`
	Status  string              `json:"status"`
	Total   decimal.NullDecimal `json:"total"`
	Items   []orderItemDTO      `json:"items"`
}

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type confirmResponse struct {
	OrderID     int64               `json:"orderId"`
	Status      string              `json:"status"`
	Total       decimal.NullDecimal `json:"total"`
	Confirmed   bool                `json:"confirmed"`
	ConfirmedAt time.Time           `json:"confirmedAt"`
}

type payRequest struct {
	PaymentMethod string  `json:"paymentMethod"`
	MemberCardNo  *string `json:"memberCardNo"`
}

type payResponse struct {
	OrderID       int64               `json:"orderId"`
	Status        string              `json:"status"`
	Total         decimal.NullDecimal `json:"total"`
	PaymentMethod string              `json:"paymentMethod"`
	PointsEarned  *int64              `json:"pointsEarned,omitempty"`
	Paid          bool                `json:"paid"`
	PaidAt        time.Time           `json:"paidAt"`
}

// Create opens an empty IN_ORDER order. An empty card number is sent as null.
func (o *OrderClient) Create(ctx context.Context, memberCardNo string) (int64, error) {
	var out orderResponse
	err := o.c.do(ctx, call{
		peer:     peerOrder,
		endpoint: "POST /api/v1/orders",
		method:   http.MethodPost,
		path:     "/api/v1/orders",
		body:     createOrderRequest{MemberCardNo: nullable(memberCardNo)},
		out:      &out,
	})
	if err != nil {
		return 0, err
	}
	if out.OrderID == 0 {
		return 0, fmt.Errorf("upstream: create order: response carried no order id")
	}
	return out.OrderID, nil
}

// AddItem sets the quantity of one product on the order.
func (o *OrderClient) AddItem(ctx context.Context, orderID, productID int64, quantity int) error {
	return o.c.do(ctx, call{
		peer:     peerOrder,
		endpoint: "POST /api/v1/orders/{id}/items",
		method:   http.MethodPost,
		path:     fmt.Sprintf("/api/v1/orders/%d/items", orderID),
		body:     addItemRequest{ProductID: productID, Quantity: quantity},
		out:      &orderResponse{},
	})
}

func (o *OrderClient) Confirm(ctx context.Context, orderID int64) (*checkout.ConfirmResult, error) {
	var out confirmResponse
	err := o.c.do(ctx, call{
		peer:     peerOrder,
		endpoint: "PUT /api/v1/orders/{id}/confirm",
		method:   http.MethodPut,
		path:     fmt.Sprintf("/api/v1/orders/%d/confirm", orderID),
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &checkout.ConfirmResult{
		OrderID:     out.OrderID,
		Status:      out.Status,
		Total:       out.Total,
		Confirmed:   out.Confirmed,
		ConfirmedAt: out.ConfirmedAt,
	}, nil
}

func (o *OrderClient) Pay(ctx context.Context, orderID int64, req checkout.PayRequest) (*checkout.PayResult, error) {
	var out payResponse
	err := o.c.do(ctx, call{
		peer:     peerOrder,
		endpoint: "PUT /api/v1/orders/{id}/pay",
		method:   http.MethodPut,
		path:     fmt.Sprintf("/api/v1/orders/%d/pay", orderID),
		body:     payRequest{PaymentMethod: req.PaymentMethod, MemberCardNo: nullable(req.MemberCardNo)},
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &checkout.PayResult{
		OrderID:       out.OrderID,
		Status:        out.Status,
		Total:         out.Total,
		PaymentMethod: out.PaymentMethod,
		PointsEarned:  out.PointsEarned,
		Paid:          out.Paid,
		PaidAt:        out.PaidAt,
	}, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
