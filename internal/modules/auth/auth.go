package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/Mr-oxm/E-Commerce/internal/modules/user"
)

// Principal identifies the verified actor behind a request. It is built once
// by the middleware and passed explicitly into every service call that needs
// authorization; nothing in the system reads the acting user from a global.
type Principal struct {
	UserID uuid.UUID
	Role   user.Role
}

// Service defines the interface for authentication-related business logic.
type Service interface {
	// Login verifies credentials and returns a signed token.
	Login(ctx context.Context, email, password string) (string, *user.User, error)
	// Verify parses a token and returns the principal it encodes.
	Verify(token string) (Principal, error)
}
