package user

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL user repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateUser(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, role, full_name, phone_number, shipping_address, profile_photo_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Email, u.Username, u.PasswordHash, u.Role,
		u.FullName, u.PhoneNumber, u.ShippingAddress, u.ProfilePhotoURL)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: email or username already taken", apperr.ErrValidation)
	}
	return errors.Wrap(err, "insert user")
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *postgresRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *postgresRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return r.getBy(ctx, "id", parsedID)
}

func (r *postgresRepository) getBy(ctx context.Context, column string, value interface{}) (*User, error) {
	u := &User{}
	query := `
		SELECT id, email, username, password_hash, role, full_name, phone_number,
		       shipping_address, profile_photo_url, created_at, updated_at
		FROM users
		WHERE ` + column + ` = $1
	`
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Role,
		&u.FullName,
		&u.PhoneNumber,
		&u.ShippingAddress,
		&u.ProfilePhotoURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "select user")
	}
	return u, nil
}

func (r *postgresRepository) UpdateProfile(ctx context.Context, u *User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET full_name=$1, phone_number=$2, shipping_address=$3, profile_photo_url=$4, updated_at=$5
		WHERE id=$6`,
		u.FullName, u.PhoneNumber, u.ShippingAddress, u.ProfilePhotoURL, time.Now(), u.ID)
	return errors.Wrap(err, "update user profile")
}
