package user

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for user-related business logic.
type Service interface {
	RegisterUser(ctx context.Context, email, password, username string, role Role) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	// UpdateProfile applies the enumerated profile changes for the given user.
	// Profile fields are snapshots from the order's point of view: changing
	// them never touches already-placed orders.
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*User, error)
}
