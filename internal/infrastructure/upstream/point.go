package upstream

import (
	"context"
	"net/http"

	"github.com/Zhima-Mochi/coffee-register/internal/application/checkout"
)

const peerPoint = "point-service"

type PointClient struct {
	c *Client
}

func NewPointClient(c *Client) *PointClient { return &PointClient{c: c} }

type accrualRequest struct {
	MemberCardNo string  `json:"memberCardNo"`
	Points       int64   `json:"points"`
	OrderID      int64   `json:"orderId"`
	Reason       string  `json:"reason"`
	BaseAmount   float64 `json:"baseAmount"`
}

// accrualResponse tolerates both the pointsAdded/newBalance and pointsEarned/currentBalance shapes.
type accrualResponse struct {
	Success        bool   `json:"success"`
	TransactionID  string `json:"transactionId"`
	PointsAdded    *int64 `json:"pointsAdded"`
	PointsEarned   *int64 `json:"pointsEarned"`
	NewBalance     *int64 `json:"newBalance"`
	CurrentBalance *int64 `json:"currentBalance"`
}

func (p *PointClient) Accrue(ctx context.Context, req checkout.AccrualRequest) (*checkout.AccrualResult, error) {
	var out accrualResponse
	err := p.c.do(ctx, call{
		peer:     peerPoint,
		endpoint: "POST /api/v1/points/accrual",
		method:   http.MethodPost,
		path:     "/api/v1/points/accrual",
		body: accrualRequest{
			MemberCardNo: req.MemberCardNo,
			Points:       req.Points,
			OrderID:      req.OrderID,
			Reason:       req.Reason,
			BaseAmount:   req.BaseAmount.InexactFloat64(),
		},
		out: &out,
	})
	if err != nil {
		return nil, err
	}
	return &checkout.AccrualResult{
		Success:       out.Success,
		TransactionID: out.TransactionID,
		PointsAdded:   firstOf(out.PointsAdded, out.PointsEarned),
		NewBalance:    firstOf(out.NewBalance, out.CurrentBalance),
	}, nil
}

func firstOf(vs ...*int64) int64 {
	for _, v := range vs {
		if v != nil {
			return *v
		}
	}
	return 0
}
