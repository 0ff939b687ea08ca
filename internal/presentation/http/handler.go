package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Zhima-Mochi/coffee-register/internal/application/register"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/catalog"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/notification"
	"github.com/Zhima-Mochi/coffee-register/internal/domain/session"
	"github.com/Zhima-Mochi/coffee-register/internal/observability"
	"github.com/Zhima-Mochi/coffee-register/internal/observability/logctx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentHTTPHandler = "http_server"
	tracerName           = "coffee-register.http"
	maxBodyBytes         = 1 << 20
)

type RegisterService interface {
	Open(ctx context.Context) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	AddProduct(ctx context.Context, id string, productID int64) (*session.Session, error)
	SetQuantity(ctx context.Context, id string, productID int64, quantity int) (*session.Session, error)
	AttachMember(ctx context.Context, id, cardNo string) (*session.Session, error)
	DetachMember(ctx context.Context, id string) (*session.Session, error)
	Reset(ctx context.Context, id string) (*session.Session, error)
	Checkout(ctx context.Context, id string) (*register.CheckoutOutcome, error)
}

type CatalogService interface {
	Categories(ctx context.Context) ([]catalog.Category, error)
	Products(ctx context.Context, categoryID int64) ([]catalog.Product, error)
}

type NotificationFeed interface {
	List(ctx context.Context, sessionID string) ([]notification.Notification, error)
}

type Handler struct {
	register      RegisterService
	catalog       CatalogService
	notifications NotificationFeed
	metricsHTTP   http.Handler

	log      observability.Logger
	metrics  observability.Metrics
	validate *validator.Validate
}

type Deps struct {
	Register      RegisterService
	Catalog       CatalogService
	Notifications NotificationFeed
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

func NewHandler(deps Deps, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		register:      deps.Register,
		catalog:       deps.Catalog,
		notifications: deps.Notifications,
		metricsHTTP:   deps.MetricsHandler,
		log:           tel.Logger().With(observability.F("component", componentHTTPHandler)),
		metrics:       tel.Metrics(),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Each route: Trace → request logger + RED metrics → access log → handler
	h.route(r, http.MethodGet, "/health", h.handleHealth)
	if h.metricsHTTP != nil {
		r.Method(http.MethodGet, "/metrics", h.metricsHTTP)
	}

	h.route(r, http.MethodGet, "/api/v1/catalog/categories", h.handleCategories)
	h.route(r, http.MethodGet, "/api/v1/catalog/products", h.handleProducts)

	h.route(r, http.MethodPost, "/api/v1/sessions", h.handleOpenSession)
	h.route(r, http.MethodGet, "/api/v1/sessions/{sessionID}", h.handleGetSession)
	h.route(r, http.MethodPost, "/api/v1/sessions/{sessionID}/items", h.handleAddItem)
	h.route(r, http.MethodPut, "/api/v1/sessions/{sessionID}/items/{productID}", h.handleSetQuantity)
	h.route(r, http.MethodPut, "/api/v1/sessions/{sessionID}/member", h.handleAttachMember)
	h.route(r, http.MethodDelete, "/api/v1/sessions/{sessionID}/member", h.handleDetachMember)
	h.route(r, http.MethodPost, "/api/v1/sessions/{sessionID}/reset", h.handleReset)
	h.route(r, http.MethodPost, "/api/v1/sessions/{sessionID}/checkout", h.handleCheckout)
	h.route(r, http.MethodGet, "/api/v1/sessions/{sessionID}/notifications", h.handleNotifications)

	return r
}

func (h *Handler) route(r chi.Router, method, pattern string, handler http.HandlerFunc) {
	wrapped := h.withTrace(
		ObservabilityMiddleware(h.log, h.metrics)(
			h.withAccessLog(handler),
		),
	)
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		wrapped.ServeHTTP(w, req.WithContext(contextWithRoute(req.Context(), pattern)))
	}))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "CATALOG_UNAVAILABLE", err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{CategoryID: c.ID, CategoryName: c.Name, DisplayOrder: c.DisplayOrder})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	var categoryID int64
	if v := r.URL.Query().Get("categoryId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 0 {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", errors.New("categoryId must be a non-negative number"))
			return
		}
		categoryID = id
	}
	products, err := h.catalog.Products(r.Context(), categoryID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "CATALOG_UNAVAILABLE", err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (h *Handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.register.Open(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h.respondSession(w, http.StatusOK)(h.register.Get(r.Context(), chi.URLParam(r, "sessionID")))
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := h.decode(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK)(h.register.AddProduct(r.Context(), chi.URLParam(r, "sessionID"), req.ProductID))
}

func (h *Handler) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", errors.New("productID must be a positive number"))
		return
	}
	var req setQuantityRequest
	if err := h.decode(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK)(h.register.SetQuantity(r.Context(), chi.URLParam(r, "sessionID"), productID, *req.Quantity))
}

func (h *Handler) handleAttachMember(w http.ResponseWriter, r *http.Request) {
	var req attachMemberRequest
	if err := h.decode(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	sess, err := h.register.AttachMember(r.Context(), chi.URLParam(r, "sessionID"), req.CardNo)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toSessionResponse(sess))
	case sess != nil && !errors.Is(err, register.ErrMemberNotFound):
		// the member service itself failed
		resp := errorResponse{Error: "MEMBER_LOOKUP_FAILED", Message: err.Error()}
		s := toSessionResponse(sess)
		resp.Session = &s
		writeJSON(w, http.StatusBadGateway, resp)
	case sess != nil:
		resp := errorResponse{Error: "MEMBER_NOT_FOUND", Message: err.Error()}
		s := toSessionResponse(sess)
		resp.Session = &s
		writeJSON(w, http.StatusNotFound, resp)
	default:
		writeDomainError(w, err)
	}
}

func (h *Handler) handleDetachMember(w http.ResponseWriter, r *http.Request) {
	h.respondSession(w, http.StatusOK)(h.register.DetachMember(r.Context(), chi.URLParam(r, "sessionID")))
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.respondSession(w, http.StatusOK)(h.register.Reset(r.Context(), chi.URLParam(r, "sessionID")))
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	out, err := h.register.Checkout(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeCheckoutError(w, err, out)
		return
	}
	writeJSON(w, http.StatusOK, toCheckoutResponse(out))
}

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if _, err := h.register.Get(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	ns, err := h.notifications.List(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": toNotificationResponses(ns)})
}

func (h *Handler) respondSession(w http.ResponseWriter, status int) func(*session.Session, error) {
	return func(sess *session.Session, err error) {
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, status, toSessionResponse(sess))
	}
}

func (h *Handler) decode(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", rec.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		route := routeFromContext(parentCtx)

		ctx, span := otel.Tracer(tracerName).Start(parentCtx,
			r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
	})
}
