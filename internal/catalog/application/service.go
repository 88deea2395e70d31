package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvcruz/comanda/internal/catalog/domain"
)

type Service struct {
	log  *slog.Logger
	repo Repository
}

func NewService(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo}
}

type CreateProductInput struct {
	Name         string
	Description  string
	Category     string
	UnitKind     domain.UnitKind
	UnitPrice    decimal.Decimal
	InitialStock decimal.Decimal
}

func (s *Service) Create(ctx context.Context, in CreateProductInput) (domain.Product, error) {
	now := time.Now().UTC()
	p := domain.Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		UnitKind:    in.UnitKind,
		UnitPrice:   in.UnitPrice,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	if in.InitialStock.IsNegative() {
		return domain.Product{}, domain.ErrInvalidProduct
	}
	if err := s.repo.Create(ctx, p, in.InitialStock); err != nil {
		return domain.Product{}, err
	}
	s.log.Info("product created", "product_id", p.ID, "name", p.Name, "unit_kind", string(p.UnitKind))
	return p, nil
}

type UpdateProductInput struct {
	Name        *string
	Description *string
	Category    *string
	UnitKind    *domain.UnitKind
	UnitPrice   *decimal.Decimal
	Active      *bool
}

// Update edits product metadata and pricing. The unit kind is frozen once any
// order line references the product: quantities recorded under the old kind
// would otherwise change meaning.
func (s *Service) Update(ctx context.Context, id string, in UpdateProductInput) (domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	if in.UnitKind != nil && *in.UnitKind != p.UnitKind {
		referenced, err := s.repo.HasOrderLines(ctx, id)
		if err != nil {
			return domain.Product{}, err
		}
		if referenced {
			return domain.Product{}, domain.ErrUnitKindLocked
		}
		p.UnitKind = *in.UnitKind
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.UnitPrice != nil {
		p.UnitPrice = *in.UnitPrice
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	p.UpdatedAt = time.Now().UTC()

	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return domain.Product{}, err
	}
	s.log.Info("product updated", "product_id", p.ID)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}
