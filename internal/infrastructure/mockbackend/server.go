package mockbackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Zhima-Mochi/coffee-register/internal/domain/catalog"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/member"
	domorder "github.com/Zhima-Mochi/coffee-register/internal/domain/order"
	"github.com/Zhima-Mochi/coffee-register/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/coffee-register/internal/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

const headerAPIKey = "X-API-Key"

var pointRate = decimal.New(1, -1)

// Server is an in-process stand-in for the order, stock, point, user and product services.
type Server struct {
	apiKey string
	orders domorder.Repository
	log    observability.Logger

	mu         sync.Mutex
	nextOrder  int64
	nextTx     int64
	categories []catalog.Category
	products   map[int64]catalog.Product
	order      []int64 // product ids in fixture order
	members    map[string]*member.Member
	stock      map[int64]int
	failures   map[string]int // route pattern -> forced status
}

func New(apiKey string, tel observability.Observability) *Server {
	if tel == nil {
		tel = observability.Nop()
	}
	s := &Server{
		apiKey:     apiKey,
		orders:     memory.NewOrderRepository(),
		log:        tel.Logger().With(observability.F("component", "mock_backend")),
		nextOrder:  firstOrderID,
		categories: fixtureCategories(),
		products:   make(map[int64]catalog.Product),
		members:    make(map[string]*member.Member),
		stock:      make(map[int64]int),
		failures:   make(map[string]int),
	}
	for _, p := range fixtureProducts() {
		s.products[p.ID] = p
		s.order = append(s.order, p.ID)
		s.stock[p.ID] = initialStock
	}
	for _, m := range fixtureMembers() {
		m := m
		s.members[m.CardNo] = &m
	}
	return s
}

// SetStock overrides the remaining quantity of a product.
func (s *Server) SetStock(productID int64, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[productID] = qty
}

// Fail makes every request to the route pattern (e.g. "/api/v1/orders/{orderID}/pay") answer with
// status; status 0 clears it.
func (s *Server) Fail(pattern string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, pattern)
		return
	}
	s.failures[pattern] = status
}

// Member returns a copy of the member's current state.
func (s *Server) Member(cardNo string) (member.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[cardNo]
	if !ok {
		return member.Member{}, false
	}
	return *m, true
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requireAPIKey)

	const prefix = "/api/v1"
	routes := []struct {
		method, pattern string
		h               http.HandlerFunc
	}{
		{http.MethodGet, "/categories", s.handleCategories},
		{http.MethodGet, "/products", s.handleProducts},
		{http.MethodGet, "/products/{productID}", s.handleProduct},
		{http.MethodGet, "/users/{cardNo}", s.handleUser},
		{http.MethodPost, "/orders", s.handleCreateOrder},
		{http.MethodPost, "/orders/{orderID}/items", s.handleAddItem},
		{http.MethodPut, "/orders/{orderID}/confirm", s.handleConfirm},
		{http.MethodPut, "/orders/{orderID}/pay", s.handlePay},
		{http.MethodPost, "/stocks/availability-check", s.handleAvailability},
		{http.MethodPost, "/stocks/consumption", s.handleConsumption},
		{http.MethodPost, "/points/accrual", s.handleAccrual},
	}
	for _, rt := range routes {
		r.Method(rt.method, prefix+rt.pattern, s.withInjectedFailure(prefix+rt.pattern, rt.h))
	}
	return r
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get(headerAPIKey) != s.apiKey {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "invalid API key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withInjectedFailure answers with the status registered through Fail without running the handler.
func (s *Server) withInjectedFailure(pattern string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.failures[pattern]
		s.mu.Unlock()
		if ok {
			writeError(w, status, "InjectedFailure", "forced failure for "+pattern, nil)
			return
		}
		next(w, r)
	}
}

type categoryDTO struct {
	CategoryID   int64  `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	DisplayOrder int    `json:"displayOrder"`
}

type productDTO struct {
	ProductID               int64   `json:"productId"`
	ProductName             string  `json:"productName"`
	Price                   float64 `json:"price"`
	IsCampaign              bool    `json:"isCampaign"`
	CampaignDiscountPercent float64 `json:"campaignDiscountPercent"`
	DiscountedPrice         float64 `json:"discountedPrice"`
	CategoryID              int64   `json:"categoryId"`
	CategoryName            string  `json:"categoryName"`
	IsActive                bool    `json:"isActive"`
}

func toProductDTO(p catalog.Product) productDTO {
	return productDTO{
		ProductID:               p.ID,
		ProductName:             p.Name,
		Price:                   p.Price.InexactFloat64(),
		IsCampaign:              p.IsCampaign,
		CampaignDiscountPercent: p.CampaignDiscountPercent.InexactFloat64(),
		DiscountedPrice:         p.DiscountedPrice().InexactFloat64(),
		CategoryID:              p.CategoryID,
		CategoryName:            p.CategoryName,
		IsActive:                p.Active,
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	out := make([]categoryDTO, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, categoryDTO{CategoryID: c.ID, CategoryName: c.Name, DisplayOrder: c.DisplayOrder})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	var categoryID int64
	if v := r.URL.Query().Get("categoryId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "ValidationError", "categoryId must be a number", nil)
			return
		}
		categoryID = id
	}

	out := make([]productDTO, 0, len(s.order))
	for _, id := range s.order {
		p := s.products[id]
		if categoryID != 0 && p.CategoryID != categoryID {
			continue
		}
		out = append(out, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	p, found := s.products[id]
	if !found {
		writeError(w, http.StatusNotFound, "NotFound", fmt.Sprintf("product %d not found", id), nil)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	m, ok := s.Member(chi.URLParam(r, "cardNo"))
	if !ok {
		writeError(w, http.StatusNotFound, "NotFound", "user not found", nil)
		return
	}
	userID, _ := strconv.ParseInt(m.ID, 10, 64)
	writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{
		"userId":       userID,
		"lastName":     m.LastName,
		"firstName":    m.FirstName,
		"cardNo":       m.CardNo,
		"email":        "",
		"pointBalance": m.PointBalance,
		"isDeleted":    false,
	}})
}

type orderItemDTO struct {
	ProductID    int64   `json:"productId"`
	ProductName  string  `json:"productName"`
	ProductPrice float64 `json:"productPrice"`
	Quantity     int     `json:"quantity"`
}

type orderDTO struct {
	OrderID int64          `json:"orderId"`
	Status  string         `json:"status"`
	Total   float64        `json:"total"`
	Items   []orderItemDTO `json:"items"`
}

func toOrderDTO(o *domorder.Order) orderDTO {
	items := make([]orderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemDTO{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductPrice: it.ProductPrice.InexactFloat64(),
			Quantity:     it.Quantity,
		})
	}
	return orderDTO{OrderID: o.ID, Status: string(o.Status()), Total: o.Total.InexactFloat64(), Items: items}
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberCardNo *string `json:"memberCardNo"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	id := s.nextOrder
	s.nextOrder++
	s.mu.Unlock()

	var cardNo string
	if req.MemberCardNo != nil {
		cardNo = *req.MemberCardNo
	}
	o := domorder.New(id, cardNo)
	if err := s.orders.Insert(r.Context(), o); err != nil {
		writeError(w, http.StatusInternalServerError, "InternalError", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(o))
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	o, ok := s.loadOrder(w, r)
	if !ok {
		return
	}
	var req struct {
		ProductID int64 `json:"productId"`
		Quantity  int   `json:"quantity"`
	}
	if !decode(w, r, &req) {
		return
	}
	p, found := s.products[req.ProductID]
	if !found {
		writeError(w, http.StatusNotFound, "NotFound", fmt.Sprintf("product %d not found", req.ProductID), nil)
		return
	}

	err := o.SetItem(domorder.Item{
		ProductID:    p.ID,
		ProductName:  p.Name,
		ProductPrice: p.Price,
		UnitPrice:    p.DiscountedPrice(),
		Quantity:     req.Quantity,
	})
	if !s.saveOrder(w, r, o, err) {
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	o, ok := s.loadOrder(w, r)
	if !ok {
		return
	}
	if !s.saveOrder(w, r, o, o.Confirm()) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orderId":     o.ID,
		"status":      o.Status(),
		"total":       o.Total.InexactFloat64(),
		"confirmed":   true,
		"confirmedAt": o.ConfirmedAt.Format(time.RFC3339Nano),
	})
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	o, ok := s.loadOrder(w, r)
	if !ok {
		return
	}
	var req struct {
		PaymentMethod string  `json:"paymentMethod"`
		MemberCardNo  *string `json:"memberCardNo"`
	}
	if !decode(w, r, &req) {
		return
	}
	method := domorder.PaymentMethod(req.PaymentMethod)
	if method != domorder.PaymentMethodOther && method != domorder.PaymentMethodPoint {
		writeError(w, http.StatusBadRequest, "ValidationError", "unknown payment method",
			map[string]any{"paymentMethod": req.PaymentMethod})
		return
	}
	var cardNo string
	if req.MemberCardNo != nil {
		cardNo = *req.MemberCardNo
	}
	if !s.saveOrder(w, r, o, o.Pay(method, cardNo)) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orderId":       o.ID,
		"status":        o.Status(),
		"total":         o.Total.InexactFloat64(),
		"paymentMethod": o.PaymentMethod,
		"pointsUsed":    0,
		"pointsEarned":  o.Total.Mul(pointRate).Floor().IntPart(),
		"paid":          true,
		"paidAt":        o.PaidAt.Format(time.RFC3339Nano),
	})
}

type stockItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []stockItem `json:"items"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	available := true
	details := make([]map[string]any, 0, len(req.Items))
	for _, it := range req.Items {
		left := s.stock[it.ProductID]
		ok := left >= it.Quantity
		available = available && ok
		details = append(details, map[string]any{
			"productId":         it.ProductID,
			"available":         ok,
			"availableQuantity": left,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"available": available, "details": details})
}

func (s *Server) handleConsumption(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID int64       `json:"orderId"`
		Items   []stockItem `json:"items"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	for _, it := range req.Items {
		if s.stock[it.ProductID] < it.Quantity {
			s.mu.Unlock()
			writeError(w, http.StatusConflict, "InsufficientStock",
				fmt.Sprintf("product %d is out of stock", it.ProductID), nil)
			return
		}
	}
	for _, it := range req.Items {
		s.stock[it.ProductID] -= it.Quantity
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"orderId":           req.OrderID,
		"stockTransactions": []any{},
		"consumedMaterials": []any{},
		"processedAt":       time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleAccrual(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberCardNo string  `json:"memberCardNo"`
		Points       int64   `json:"points"`
		OrderID      int64   `json:"orderId"`
		Reason       string  `json:"reason"`
		BaseAmount   float64 `json:"baseAmount"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Points < 0 {
		writeError(w, http.StatusBadRequest, "ValidationError", "points must not be negative", nil)
		return
	}

	s.mu.Lock()
	m, ok := s.members[req.MemberCardNo]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "NotFound", "member not found", nil)
		return
	}
	m.PointBalance += req.Points
	balance := m.PointBalance
	s.nextTx++
	tx := fmt.Sprintf("PT%d", s.nextTx)
	s.mu.Unlock()

	s.log.Debug("mock_points_accrued",
		observability.F("member_card_no", req.MemberCardNo),
		observability.F("points", req.Points),
		observability.F("order_id", req.OrderID),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"transactionId": tx,
		"memberCardNo":  req.MemberCardNo,
		"pointsAdded":   req.Points,
		"newBalance":    balance,
	})
}

func (s *Server) loadOrder(w http.ResponseWriter, r *http.Request) (*domorder.Order, bool) {
	id, ok := pathID(w, r, "orderID")
	if !ok {
		return nil, false
	}
	o, err := s.orders.Get(r.Context(), id)
	if errors.Is(err, domorder.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NotFound", fmt.Sprintf("order %d not found", id), nil)
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "InternalError", err.Error(), nil)
		return nil, false
	}
	return o, true
}

// saveOrder maps a domain transition error to a response, or persists the order.
func (s *Server) saveOrder(w http.ResponseWriter, r *http.Request, o *domorder.Order, err error) bool {
	switch {
	case errors.Is(err, domorder.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error(), nil)
		return false
	case errors.Is(err, domorder.ErrEmpty), errors.Is(err, domorder.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, "InvalidOrderState", err.Error(),
			map[string]any{"orderId": o.ID, "status": o.Status()})
		return false
	case err != nil:
		writeError(w, http.StatusInternalServerError, "InternalError", err.Error(), nil)
		return false
	}
	if err := s.orders.Update(r.Context(), o); err != nil {
		writeError(w, http.StatusInternalServerError, "InternalError", err.Error(), nil)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "ValidationError", key+" must be a positive number", nil)
		return 0, false
	}
	return id, true
}

// decode accepts an empty body as the zero value.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "invalid JSON body", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	body := map[string]any{"error": code, "message": message}
	if details != nil {
		body["details"] = details
	}
	writeJSON(w, status, body)
}
