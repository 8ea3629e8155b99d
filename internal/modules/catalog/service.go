package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
)

// Service defines catalog business logic. Reserve and Restore are consumed by
// the order ledger; the rest is the seller-facing product surface.
type Service interface {
	CreateProduct(ctx context.Context, sellerID uuid.UUID, req CreateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, category string) ([]*Product, error)
	ListSellerProducts(ctx context.Context, sellerID uuid.UUID) ([]*Product, error)
	UpdateProduct(ctx context.Context, sellerID, id uuid.UUID, req CreateProductRequest) (*Product, error)
	DeleteProduct(ctx context.Context, sellerID, id uuid.UUID) error
	SetStock(ctx context.Context, sellerID, id uuid.UUID, stock int) error

	Reserve(ctx context.Context, productID uuid.UUID, quantity int, selection []Selection) error
	Restore(ctx context.Context, productID uuid.UUID, quantity int, selection []Selection) error
}

type service struct{ repo Repository }

// NewService creates a new catalog service.
func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) CreateProduct(ctx context.Context, sellerID uuid.UUID, req CreateProductRequest) (*Product, error) {
	p, err := buildProduct(sellerID, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func buildProduct(sellerID uuid.UUID, req CreateProductRequest) (*Product, error) {
	if req.Name == "" || req.Description == "" {
		return nil, fmt.Errorf("%w: name and description are required", apperr.ErrValidation)
	}
	if len(req.Category) == 0 {
		return nil, fmt.Errorf("%w: at least one category is required", apperr.ErrValidation)
	}

	p := &Product{
		ID:          uuid.New(),
		SellerID:    sellerID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Images:      req.Images,
	}

	if len(req.Variations) > 0 {
		if req.BasePrice < 0 {
			return nil, fmt.Errorf("%w: base price cannot be negative", apperr.ErrValidation)
		}
		for _, v := range req.Variations {
			if v.Name == "" || len(v.Options) == 0 {
				return nil, fmt.Errorf("%w: each variation needs a name and at least one option", apperr.ErrValidation)
			}
			for _, o := range v.Options {
				if o.Name == "" || o.PriceDelta < 0 || o.Stock < 0 {
					return nil, fmt.Errorf("%w: each option needs a name, a non-negative price delta and non-negative stock", apperr.ErrValidation)
				}
			}
		}
		p.Mode = PricingVariable
		p.BasePrice = req.BasePrice
		p.Variations = req.Variations
		p.Stock = TotalOptionStock(req.Variations)
		return p, nil
	}

	if req.Price < 0 || req.Stock < 0 {
		return nil, fmt.Errorf("%w: price and stock cannot be negative", apperr.ErrValidation)
	}
	p.Mode = PricingFlat
	p.Price = req.Price
	p.Stock = req.Stock
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListProducts(ctx context.Context, category string) ([]*Product, error) {
	return s.repo.List(ctx, category)
}

func (s *service) ListSellerProducts(ctx context.Context, sellerID uuid.UUID) ([]*Product, error) {
	return s.repo.ListBySeller(ctx, sellerID)
}

func (s *service) UpdateProduct(ctx context.Context, sellerID, id uuid.UUID, req CreateProductRequest) (*Product, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.SellerID != sellerID {
		return nil, fmt.Errorf("%w: product belongs to another seller", apperr.ErrForbidden)
	}

	p, err := buildProduct(sellerID, req)
	if err != nil {
		return nil, err
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, sellerID, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.SellerID != sellerID {
		return fmt.Errorf("%w: product belongs to another seller", apperr.ErrForbidden)
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) SetStock(ctx context.Context, sellerID, id uuid.UUID, stock int) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.SellerID != sellerID {
		return fmt.Errorf("%w: product belongs to another seller", apperr.ErrForbidden)
	}
	if existing.Mode != PricingFlat {
		return fmt.Errorf("%w: stock of a variable product is edited through its options", apperr.ErrValidation)
	}
	return s.repo.SetFlatStock(ctx, id, stock)
}

func (s *service) Reserve(ctx context.Context, productID uuid.UUID, quantity int, selection []Selection) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", apperr.ErrValidation)
	}
	return s.repo.Reserve(ctx, productID, quantity, selection)
}

func (s *service) Restore(ctx context.Context, productID uuid.UUID, quantity int, selection []Selection) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", apperr.ErrValidation)
	}
	return s.repo.Restore(ctx, productID, quantity, selection)
}
