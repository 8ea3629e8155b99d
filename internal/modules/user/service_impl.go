package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
)

type service struct {
	repo Repository
}

// NewService creates a new user service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) RegisterUser(ctx context.Context, email, password, username string, role Role) (*User, error) {
	if email == "" || password == "" || username == "" {
		return nil, fmt.Errorf("%w: email, password and username are required", apperr.ErrValidation)
	}
	if role == "" {
		role = RoleBuyer
	}
	if role != RoleBuyer && role != RoleSeller {
		return nil, fmt.Errorf("%w: unknown role %q", apperr.ErrValidation, role)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.New(),
		Email:        strings.ToLower(email),
		Username:     username,
		PasswordHash: string(hashedPassword),
		Role:         role,
	}

	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *service) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, id)
	}
	return u, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*User, error) {
	u, err := s.repo.GetUserByID(ctx, userID.String())
	if err != nil {
		return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, userID)
	}

	if req.FullName != nil {
		u.FullName = *req.FullName
	}
	if req.PhoneNumber != nil {
		u.PhoneNumber = *req.PhoneNumber
	}
	if req.ShippingAddress != nil {
		u.ShippingAddress = *req.ShippingAddress
	}
	if req.ProfilePhotoURL != nil {
		u.ProfilePhotoURL = *req.ProfilePhotoURL
	}

	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
