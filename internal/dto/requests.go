package dto

import (
	"github.com/google/uuid"
)

// RegisterRequest represents the request to register a new user
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to refresh a token pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateEscrowRequest represents the request to create an escrow deposit
type CreateEscrowRequest struct {
	FreelancerID    string `json:"freelancer_id" binding:"required"`
	Amount          int64  `json:"amount" binding:"required"`
	DurationSeconds int64  `json:"duration_seconds" binding:"required"`
}

// ParseFreelancerID converts the freelancer id string to uuid.UUID
func (r *CreateEscrowRequest) ParseFreelancerID() (uuid.UUID, error) {
	return uuid.Parse(r.FreelancerID)
}

// MilestoneRequest represents the request to release a milestone payment
type MilestoneRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// RefundRequest represents the request for a partial refund
type RefundRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// ExtendDeadlineRequest represents the request to extend an escrow deadline
type ExtendDeadlineRequest struct {
	AdditionalSeconds int64 `json:"additional_seconds" binding:"required"`
}

// OpenDisputeRequest represents the request to open a dispute
type OpenDisputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// VoteRequest represents the request to vote on a dispute
type VoteRequest struct {
	SupportsClient *bool `json:"supports_client" binding:"required"`
}

// SubmitReviewRequest represents the request to submit a review
type SubmitReviewRequest struct {
	ClientRating       int    `json:"client_rating" binding:"required"`
	FreelancerRating   int    `json:"freelancer_rating" binding:"required"`
	ClientFeedback     string `json:"client_feedback"`
	FreelancerFeedback string `json:"freelancer_feedback"`
}

// TopUpRequest represents the request to top up a ledger balance
type TopUpRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}
