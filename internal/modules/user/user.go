package user

import (
	"time"

	"github.com/google/uuid"
)

// Role determines what a user may do on the marketplace. A seller can also
// buy; the role only gates seller-side operations.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// User represents a marketplace account.
type User struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	Username        string    `json:"username"`
	PasswordHash    string    `json:"-"`
	Role            Role      `json:"role"`
	FullName        string    `json:"full_name,omitempty"`
	PhoneNumber     string    `json:"phone_number,omitempty"`
	ShippingAddress string    `json:"shipping_address,omitempty"`
	ProfilePhotoURL string    `json:"profile_photo_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UpdateProfileRequest enumerates the profile fields a user may change.
// Anything not listed here cannot be touched through the profile endpoint.
type UpdateProfileRequest struct {
	FullName        *string `json:"full_name,omitempty"`
	PhoneNumber     *string `json:"phone_number,omitempty"`
	ShippingAddress *string `json:"shipping_address,omitempty"`
	ProfilePhotoURL *string `json:"profile_photo_url,omitempty"`
}
