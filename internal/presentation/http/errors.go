package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Zhima-Mochi/coffee-register/internal/application/checkout"
	"github.com/Zhima-Mochi/coffee-register/internal/application/register"
	"github.com/go-playground/validator/v10"
)

var errInvalidBody = errors.New("invalid JSON body")

type errorMapping struct {
	target error
	status int
	code   string
}

// Checkout step sentinels come first: a StepError also wraps the upstream cause.
var errorMappings = []errorMapping{
	{checkout.ErrMissingOrder, http.StatusBadRequest, "ORDER_ID_REQUIRED"},
	{checkout.ErrEmptyCart, http.StatusBadRequest, "CART_EMPTY"},
	{checkout.ErrInsufficientStock, http.StatusConflict, "INSUFFICIENT_STOCK"},
	{checkout.ErrItemAddFailed, http.StatusBadGateway, "ITEM_ADD_FAILED"},
	{checkout.ErrConfirmFailed, http.StatusBadGateway, "CONFIRM_FAILED"},
	{checkout.ErrPaymentFailed, http.StatusBadGateway, "PAYMENT_FAILED"},
	{register.ErrCheckoutInProgress, http.StatusConflict, "CHECKOUT_IN_PROGRESS"},
	{register.ErrOrderUnreconciled, http.StatusConflict, "ORDER_UNRECONCILED"},
	{register.ErrOrderCreateFailed, http.StatusBadGateway, "ORDER_CREATE_FAILED"},
	{register.ErrCheckoutPanicked, http.StatusInternalServerError, "CHECKOUT_ABORTED"},
	{register.ErrInvalidProduct, http.StatusBadRequest, "VALIDATION_ERROR"},
	{register.ErrInvalidCardNo, http.StatusBadRequest, "VALIDATION_ERROR"},
	{register.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
	{register.ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
	{register.ErrMemberNotFound, http.StatusNotFound, "MEMBER_NOT_FOUND"},
	{register.ErrLineNotFound, http.StatusNotFound, "LINE_NOT_FOUND"},
	{errInvalidBody, http.StatusBadRequest, "VALIDATION_ERROR"},
}

func classifyError(err error) (int, string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, "VALIDATION_ERROR"
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorResponse{Error: code, Message: err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)
	writeError(w, status, code, err)
}

// writeCheckoutError reports an aborted checkout with the failing step, its detail and every step report.
func writeCheckoutError(w http.ResponseWriter, err error, out *register.CheckoutOutcome) {
	status, code := classifyError(err)
	resp := errorResponse{Error: code, Message: err.Error()}

	var stepErr *checkout.StepError
	if errors.As(err, &stepErr) {
		resp.Step = string(stepErr.Step)
		if stepErr.Line != nil {
			line := stepErr.LineIndex + 1
			resp.Line = &line
		}
		for _, d := range stepErr.Stock {
			resp.Stock = append(resp.Stock, stockResponse{
				ProductID:         d.ProductID,
				Available:         d.Available,
				AvailableQuantity: d.AvailableQuantity,
			})
		}
	}
	if out != nil {
		if out.Result != nil {
			resp.Steps = toStepResponses(out.Result.Steps)
		}
		if out.Session != nil {
			s := toSessionResponse(out.Session)
			resp.Session = &s
		}
	}
	writeJSON(w, status, resp)
}
