package review

import (
	"time"

	"github.com/google/uuid"
)

// Review is a buyer's verdict on a product they bought and received.
type Review struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product"`
	UserID    uuid.UUID `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateReviewRequest is the payload for posting a review.
type CreateReviewRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
}
