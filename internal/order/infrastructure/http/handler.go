package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	authdomain "github.com/mvcruz/comanda/internal/auth/domain"
	authhttp "github.com/mvcruz/comanda/internal/auth/infrastructure/http"
	catalogdomain "github.com/mvcruz/comanda/internal/catalog/domain"
	"github.com/mvcruz/comanda/internal/order/application"
	"github.com/mvcruz/comanda/internal/order/domain"
	stockdomain "github.com/mvcruz/comanda/internal/stock/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	idem    func(http.Handler) http.Handler
	tracer  trace.Tracer
}

// NewHandler builds the order API. idem guards the mutating item and checkout
// routes against client retries; pass nil to serve without it.
func NewHandler(log *slog.Logger, service *application.Service, idem func(http.Handler) http.Handler) *Handler {
	if idem == nil {
		idem = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		log:     log,
		service: service,
		idem:    idem,
		tracer:  otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	takesOrders := authhttp.RequireRole(authdomain.RoleAdmin, authdomain.RoleCashier, authdomain.RoleWaiter)

	r := chi.NewRouter()
	r.Get("/open", h.listOpen)
	r.Get("/closed", h.listClosed)
	r.Get("/{id}", h.getOrder)
	r.Group(func(r chi.Router) {
		r.Use(takesOrders)
		r.Post("/", h.openTab)
		r.Delete("/{id}/items/{lineID}", h.removeItem)
		r.With(h.idem).Post("/{id}/items", h.addItem)
		r.With(h.idem).Post("/{id}/checkout", h.checkout)
	})
	return r
}

type openTabReq struct {
	CustomerRef string `json:"customer_ref"`
	Note        string `json:"note"`
}

func (h *Handler) openTab(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "OpenTab")
	defer span.End()

	id, ok := authhttp.Identity(ctx)
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	var req openTabReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CustomerRef == "" {
		http.Error(w, "customer_ref required", http.StatusBadRequest)
		return
	}

	o, err := h.service.OpenTab(ctx, id.StaffID, req.CustomerRef, req.Note)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(o))
}

type addItemReq struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddItem")
	defer span.End()

	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		http.Error(w, "product_id and quantity required", http.StatusBadRequest)
		return
	}
	if _, err := uuid.Parse(req.ProductID); err != nil {
		h.writeError(w, catalogdomain.ErrProductNotFound)
		return
	}

	line, err := h.service.AddItem(ctx, orderID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLineDTO(line))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveItem")
	defer span.End()

	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	lineID := chi.URLParam(r, "lineID")
	if _, err := uuid.Parse(lineID); err != nil {
		h.writeError(w, domain.ErrLineNotFound)
		return
	}

	if err := h.service.RemoveItem(ctx, orderID, lineID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type checkoutReq struct {
	PaymentMethod string `json:"payment_method"`
	Note          string `json:"note"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()

	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentMethod == "" {
		http.Error(w, "payment_method required", http.StatusBadRequest)
		return
	}

	summary, err := h.service.Checkout(ctx, orderID,
		domain.PaymentMethod(req.PaymentMethod), req.Note)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	o, err := h.service.Get(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

func (h *Handler) listOpen(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListOpen)
}

func (h *Handler) listClosed(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListClosed)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request,
	fetch func(ctx context.Context, limit, offset int) ([]domain.Order, error)) {

	const limit = 100
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, err := fetch(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	dtos := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, toOrderDTO(o))
	}
	resp := map[string]any{"orders": dtos, "has_next": len(orders) == limit}
	if len(orders) == limit {
		resp["next_page_offset"] = offset + limit
	}
	writeJSON(w, http.StatusOK, resp)
}

// orderID validates the path id before it reaches a UUID-typed query
// parameter; a malformed id reads the same as an unknown order.
func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		h.writeError(w, domain.ErrOrderNotFound)
		return "", false
	}
	return id, true
}

// writeError maps the engine's failure kinds onto stable status codes so
// clients can tell conflicts from validation from retryable contention.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrLineNotFound),
		errors.Is(err, catalogdomain.ErrProductNotFound),
		errors.Is(err, stockdomain.ErrStockNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrOrderNotOpen),
		errors.Is(err, domain.ErrTabAlreadyOpen),
		errors.Is(err, stockdomain.ErrInsufficientStock):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, domain.ErrInvalidOrder),
		errors.Is(err, stockdomain.ErrInvalidQuantity):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrContention),
		errors.Is(err, stockdomain.ErrContention):
		w.Header().Set("Retry-After", "1")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		h.log.Error("order request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
