package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// LedgerRepository описывает взаимодействие сервиса с леджером токена.
type LedgerRepository interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount int64, description string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error)
}

// LedgerService содержит бизнес-логику счетов и движений токена.
type LedgerService struct {
	repo LedgerRepository
}

// NewLedgerService создаёт новый сервис леджера.
func NewLedgerService(repo LedgerRepository) *LedgerService {
	return &LedgerService{repo: repo}
}

// GetBalance возвращает баланс пользователя.
func (s *LedgerService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error) {
	return s.repo.GetBalance(ctx, userID)
}

// TopUp пополняет баланс пользователя.
func (s *LedgerService) TopUp(ctx context.Context, userID uuid.UUID, amount int64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount
	}
	return s.repo.Deposit(ctx, userID, amount, "Пополнение баланса")
}

// ListTransactions возвращает историю движений токена пользователя.
func (s *LedgerService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}
