package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository/common"
)

type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// GetBalance возвращает баланс пользователя, создаёт если не существует.
func (r *LedgerRepository) GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error) {
	var balance models.UserBalance
	query := `
		INSERT INTO user_balances (user_id, available)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING user_id, available, updated_at
	`
	if err := r.db.GetContext(ctx, &balance, query, userID); err != nil {
		return nil, fmt.Errorf("ledger repository: get balance %w", err)
	}
	return &balance, nil
}

// Deposit пополняет баланс пользователя извне (эмиссия токена в леджер).
func (r *LedgerRepository) Deposit(ctx context.Context, userID uuid.UUID, amount int64, description string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_balances (user_id, available)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET available = user_balances.available + $2, updated_at = NOW()
		`, userID, amount)
		if err != nil {
			return fmt.Errorf("ledger repository: deposit update balance %w", err)
		}

		err = tx.GetContext(ctx, &transaction, `
			INSERT INTO transactions (user_id, type, amount, description)
			VALUES ($1, $2, $3, $4)
			RETURNING id, user_id, escrow_id, type, amount, description, created_at
		`, userID, models.TransactionTypeDeposit, amount, description)
		if err != nil {
			return fmt.Errorf("ledger repository: deposit create transaction %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

// ListTransactions возвращает историю движений токена пользователя.
func (r *LedgerRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT id, user_id, escrow_id, type, amount, description, created_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return transactions, err
}

// moveFundsTx переводит средства между счетами внутри открытой транзакции.
// Счёт отправителя блокируется FOR UPDATE, счёт получателя создаётся при
// необходимости. Нехватка средств на счёте-хранилище означает нарушение
// инварианта леджера и отображается отдельной ошибкой.
func moveFundsTx(ctx context.Context, tx *sqlx.Tx, from, to uuid.UUID, amount int64) error {
	var available int64
	err := tx.GetContext(ctx, &available, `SELECT available FROM user_balances WHERE user_id = $1 FOR UPDATE`, from)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("ledger: lock balance %w", err)
		}
		available = 0
	}
	if available < amount {
		if from == models.VaultUserID {
			return apperror.ErrTransferFailed
		}
		return apperror.ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE user_balances SET available = available - $2, updated_at = NOW()
		WHERE user_id = $1
	`, from, amount)
	if err != nil {
		return fmt.Errorf("ledger: debit %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_balances (user_id, available)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET available = user_balances.available + $2, updated_at = NOW()
	`, to, amount)
	if err != nil {
		return fmt.Errorf("ledger: credit %w", err)
	}
	return nil
}

// recordTransactionTx записывает движение токена в журнал внутри открытой транзакции.
func recordTransactionTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, escrowID *int64, txType string, amount int64, description string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (user_id, escrow_id, type, amount, description)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, escrowID, txType, amount, description)
	if err != nil {
		return fmt.Errorf("ledger: record transaction %w", err)
	}
	return nil
}
