package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
	"github.com/Mr-oxm/E-Commerce/internal/modules/auth"
	"github.com/Mr-oxm/E-Commerce/internal/modules/catalog"
)

// Products is the slice of the catalog the review service needs.
type Products interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

type Service interface {
	CreateReview(ctx context.Context, actor auth.Principal, req CreateReviewRequest) (*Review, error)
	ListProductReviews(ctx context.Context, productID uuid.UUID) ([]*Review, error)
}

type service struct {
	repo     Repository
	products Products
}

// NewService creates a new review service.
func NewService(repo Repository, products Products) Service {
	return &service{repo: repo, products: products}
}

func (s *service) CreateReview(ctx context.Context, actor auth.Principal, req CreateReviewRequest) (*Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", apperr.ErrValidation)
	}
	if _, err := s.products.GetProduct(ctx, req.ProductID); err != nil {
		return nil, err
	}

	delivered, err := s.repo.HasDeliveredLine(ctx, actor.UserID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !delivered {
		return nil, fmt.Errorf("%w: only buyers with a delivered order may review this product", apperr.ErrForbidden)
	}

	already, err := s.repo.Exists(ctx, actor.UserID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, fmt.Errorf("%w: you already reviewed this product", apperr.ErrValidation)
	}

	rev := &Review{
		ID:        uuid.New(),
		ProductID: req.ProductID,
		UserID:    actor.UserID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, rev); err != nil {
		return nil, err
	}
	return rev, nil
}

func (s *service) ListProductReviews(ctx context.Context, productID uuid.UUID) ([]*Review, error) {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListByProduct(ctx, productID)
}
