package httppresentation

import (
	"time"

	"github.com/Zhima-Mochi/coffee-register/internal/application/checkout"
	"github.com/Zhima-Mochi/coffee-register/internal/application/register"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/catalog"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/notification"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/session"
)

type addItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=999"`
}

type attachMemberRequest struct {
	CardNo string `json:"cardNo" validate:"required,numeric,max=32"`
}

type categoryResponse struct {
	CategoryID   int64  `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	DisplayOrder int    `json:"displayOrder"`
}

type productResponse struct {
	ProductID               int64   `json:"productId"`
	ProductName             string  `json:"productName"`
	Price                   float64 `json:"price"`
	IsCampaign              bool    `json:"isCampaign"`
	CampaignDiscountPercent float64 `json:"campaignDiscountPercent"`
	DiscountedPrice         float64 `json:"discountedPrice"`
	CategoryID              int64   `json:"categoryId"`
	CategoryName            string  `json:"categoryName,omitempty"`
}

func toProductResponse(p catalog.Product) productResponse {
	return productResponse{
		ProductID:               p.ID,
		ProductName:             p.Name,
		Price:                   p.Price.InexactFloat64(),
		IsCampaign:              p.IsCampaign,
		CampaignDiscountPercent: p.CampaignDiscountPercent.InexactFloat64(),
		DiscountedPrice:         p.DiscountedPrice().InexactFloat64(),
		CategoryID:              p.CategoryID,
		CategoryName:            p.CategoryName,
	}
}

type lineResponse struct {
	Product  productResponse `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal float64         `json:"subtotal"`
}

type memberResponse struct {
	MemberID     string `json:"memberId"`
	MemberCardNo string `json:"memberCardNo"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	PointBalance int64  `json:"pointBalance"`
}

type failureResponse struct {
	OrderID    int64     `json:"orderId"`
	Step       string    `json:"step"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

type sessionResponse struct {
	SessionID    string           `json:"sessionId"`
	OrderID      *int64           `json:"orderId"`
	Lines        []lineResponse   `json:"lines"`
	Total        float64          `json:"total"`
	Member       *memberResponse  `json:"member"`
	InCheckout   bool             `json:"inCheckout"`
	Unreconciled *failureResponse `json:"unreconciled,omitempty"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

func toSessionResponse(s *session.Session) sessionResponse {
	out := sessionResponse{
		SessionID:  s.ID,
		OrderID:    s.OrderID,
		Lines:      []lineResponse{},
		InCheckout: s.InCheckout,
		UpdatedAt:  s.UpdatedAt,
	}
	if s.Cart != nil {
		for _, l := range s.Cart.Lines() {
			out.Lines = append(out.Lines, lineResponse{
				Product:  toProductResponse(l.Product),
				Quantity: l.Quantity,
				Subtotal: l.Subtotal().InexactFloat64(),
			})
		}
		out.Total = s.Cart.Total().InexactFloat64()
	}
	if m := s.Member; m != nil {
		out.Member = &memberResponse{
			MemberID:     m.ID,
			MemberCardNo: m.CardNo,
			FirstName:    m.FirstName,
			LastName:     m.LastName,
			PointBalance: m.PointBalance,
		}
	}
	if f := s.Unreconciled; f != nil {
		out.Unreconciled = &failureResponse{OrderID: f.OrderID, Step: f.Step, Reason: f.Reason, OccurredAt: f.OccurredAt}
	}
	return out
}

type stepResponse struct {
	Step      string `json:"step"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

func toStepResponses(steps []checkout.StepReport) []stepResponse {
	out := make([]stepResponse, 0, len(steps))
	for _, s := range steps {
		out = append(out, stepResponse{
			Step:      string(s.Step),
			Outcome:   string(s.Outcome),
			Error:     s.Error,
			LatencyMS: s.Latency.Milliseconds(),
		})
	}
	return out
}

type checkoutResponse struct {
	OrderID        int64            `json:"orderId"`
	Status         string           `json:"status"`
	Total          float64          `json:"total"`
	ClientTotal    float64          `json:"clientTotal"`
	TotalMismatch  bool             `json:"totalMismatch"`
	PointsEarned   int64            `json:"pointsEarned"`
	PaidAt         time.Time        `json:"paidAt"`
	Steps          []stepResponse   `json:"steps"`
	Session        *sessionResponse `json:"session,omitempty"`
	NextOrderError string           `json:"nextOrderError,omitempty"`
}

func toCheckoutResponse(out *register.CheckoutOutcome) checkoutResponse {
	res := out.Result
	resp := checkoutResponse{
		OrderID:       res.OrderID,
		Status:        string(res.Status),
		Total:         res.Total.InexactFloat64(),
		ClientTotal:   res.ClientTotal.InexactFloat64(),
		TotalMismatch: res.TotalMismatch,
		PointsEarned:  res.PointsEarned,
		PaidAt:        res.PaidAt,
		Steps:         toStepResponses(res.Steps),
	}
	if out.Session != nil {
		s := toSessionResponse(out.Session)
		resp.Session = &s
	}
	if out.NextOrderError != nil {
		resp.NextOrderError = out.NextOrderError.Error()
	}
	return resp
}

type notificationResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	OrderID   int64     `json:"orderId,omitempty"`
	Retryable bool      `json:"retryable"`
	CreatedAt time.Time `json:"createdAt"`
}

func toNotificationResponses(ns []notification.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, notificationResponse{
			ID:        n.ID,
			Kind:      string(n.Kind),
			Message:   n.Message,
			OrderID:   n.OrderID,
			Retryable: n.Retryable,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

// errorResponse carries the checkout context when a saga aborts.
type errorResponse struct {
	Error   string           `json:"error"`
	Message string           `json:"message"`
	Step    string           `json:"step,omitempty"`
	Line    *int             `json:"line,omitempty"`
	Stock   []stockResponse  `json:"stock,omitempty"`
	Steps   []stepResponse   `json:"steps,omitempty"`
	Session *sessionResponse `json:"session,omitempty"`
}

type stockResponse struct {
	ProductID         int64 `json:"productId"`
	Available         bool  `json:"available"`
	AvailableQuantity int   `json:"availableQuantity"`
}
