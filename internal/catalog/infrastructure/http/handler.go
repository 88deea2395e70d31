package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	authdomain "github.com/mvcruz/comanda/internal/auth/domain"
	authhttp "github.com/mvcruz/comanda/internal/auth/infrastructure/http"
	"github.com/mvcruz/comanda/internal/catalog/application"
	"github.com/mvcruz/comanda/internal/catalog/domain"
	stockapp "github.com/mvcruz/comanda/internal/stock/application"
	stockdomain "github.com/mvcruz/comanda/internal/stock/domain"
)

// Handler serves the product catalog plus the restocking endpoint. Stock
// levels and products are separate contexts internally but one API surface
// for the people managing the menu.
type Handler struct {
	log     *slog.Logger
	catalog *application.Service
	stock   *stockapp.Service
}

func NewHandler(log *slog.Logger, catalog *application.Service, stock *stockapp.Service) *Handler {
	return &Handler{log: log, catalog: catalog, stock: stock}
}

func (h *Handler) Routes() http.Handler {
	admin := authhttp.RequireRole(authdomain.RoleAdmin)

	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/stock", h.stockLevel)
	r.With(admin).Post("/", h.create)
	r.With(admin).Put("/{id}", h.update)
	r.With(admin).Post("/{id}/replenish", h.replenish)
	return r
}

type productDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	UnitKind    string          `json:"unit_kind"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toProductDTO(p domain.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		UnitKind:    string(p.UnitKind),
		UnitPrice:   p.UnitPrice,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type createProductReq struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	UnitKind     string          `json:"unit_kind"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	InitialStock decimal.Decimal `json:"initial_stock"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	p, err := h.catalog.Create(r.Context(), application.CreateProductInput{
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		UnitKind:     domain.UnitKind(req.UnitKind),
		UnitPrice:    req.UnitPrice,
		InitialStock: req.InitialStock,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

type updateProductReq struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	UnitKind    *string          `json:"unit_kind"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Active      *bool            `json:"active"`
}

// productID validates the path id before it reaches a UUID-typed query
// parameter; a malformed id reads the same as an unknown product.
func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		h.writeError(w, domain.ErrProductNotFound)
		return "", false
	}
	return id, true
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	var req updateProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	in := application.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		UnitPrice:   req.UnitPrice,
		Active:      req.Active,
	}
	if req.UnitKind != nil {
		kind := domain.UnitKind(*req.UnitKind)
		in.UnitKind = &kind
	}
	p, err := h.catalog.Update(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	p, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	products, err := h.catalog.List(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	dtos := make([]productDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": dtos})
}

type replenishReq struct {
	Quantity decimal.Decimal `json:"quantity"`
}

func (h *Handler) replenish(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	var req replenishReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.stock.Replenish(r.Context(), id, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	qty, err := h.stock.Current(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": id, "quantity": qty})
}

func (h *Handler) stockLevel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	qty, err := h.stock.Current(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": id, "quantity": qty})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, stockdomain.ErrStockNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrUnitKindLocked):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidProduct), errors.Is(err, stockdomain.ErrInvalidQuantity):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, stockdomain.ErrContention):
		w.Header().Set("Retry-After", "1")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		h.log.Error("catalog request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
