package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mr-oxm/E-Commerce/internal/apperr"
	"github.com/Mr-oxm/E-Commerce/internal/modules/user"
)

type claims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

type service struct {
	userRepo user.Repository
	secret   []byte
}

// NewService creates a new auth service.
func NewService(userRepo user.Repository, secret string) Service {
	return &service{userRepo: userRepo, secret: []byte(secret)}
}

func (s *service) Login(ctx context.Context, email, password string) (string, *user.User, error) {
	u, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", apperr.ErrForbidden)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", apperr.ErrForbidden)
	}

	expirationTime := time.Now().Add(24 * time.Hour)
	c := &claims{
		Role: string(u.Role),
		StandardClaims: jwt.StandardClaims{
			Subject:   u.ID.String(),
			ExpiresAt: expirationTime.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}

	return tokenString, u, nil
}

func (s *service) Verify(tokenString string) (Principal, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: invalid token", apperr.ErrForbidden)
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: invalid token subject", apperr.ErrForbidden)
	}

	return Principal{UserID: userID, Role: user.Role(c.Role)}, nil
}
