package dto

import (
	"github.com/ignatzorin/escrow-backend/internal/models"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse returns the user together with issued tokens.
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

// EscrowResponse wraps a single escrow record.
type EscrowResponse struct {
	Escrow *models.Escrow `json:"escrow"`
}

// EscrowListResponse wraps a page of escrow records.
type EscrowListResponse struct {
	Escrows []models.Escrow `json:"escrows"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// DisputeResponse wraps a dispute together with its vote tally.
type DisputeResponse struct {
	Dispute *models.Dispute      `json:"dispute"`
	Tally   *models.DisputeTally `json:"tally,omitempty"`
}

// ReviewListResponse wraps the review history of an escrow.
type ReviewListResponse struct {
	Reviews []models.Review `json:"reviews"`
}

// BalanceResponse wraps a ledger balance.
type BalanceResponse struct {
	Balance *models.UserBalance `json:"balance"`
}

// TransactionListResponse wraps a page of ledger transactions.
type TransactionListResponse struct {
	Transactions []models.Transaction `json:"transactions"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}
