package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// UnitKind tells how a product is sold and therefore how its quantities
// are counted: whole units or kilograms.
type UnitKind string

const (
	UnitKindEach     UnitKind = "per_unit"
	UnitKindKilogram UnitKind = "per_kilogram"
)

func (k UnitKind) Valid() bool {
	return k == UnitKindEach || k == UnitKindKilogram
}

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
	// ErrUnitKindLocked is returned when an update tries to change the unit
	// kind of a product that historical order lines already reference.
	ErrUnitKindLocked = errors.New("unit kind locked by existing order lines")
)

type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	UnitKind    UnitKind
	UnitPrice   decimal.Decimal
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p Product) Validate() error {
	if p.Name == "" {
		return ErrInvalidProduct
	}
	if !p.UnitKind.Valid() {
		return ErrInvalidProduct
	}
	if p.UnitPrice.IsNegative() {
		return ErrInvalidProduct
	}
	return nil
}
