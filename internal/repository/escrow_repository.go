package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository/common"
)

// EscrowRepository выполняет переходы жизненного цикла сделки.
// Каждая мутация выполняется в одной транзакции БД: строка сделки
// блокируется FOR UPDATE, предусловия перепроверяются под блокировкой,
// затем не более одного перевода в леджере и одна смена состояния.
// Блокировка строки заменяет reentrancy guard исходной системы.
type EscrowRepository struct {
	db *sqlx.DB
}

func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

func getEscrowForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Escrow, error) {
	var escrow models.Escrow
	err := tx.GetContext(ctx, &escrow, `SELECT * FROM escrows WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, fmt.Errorf("escrow repository: lock escrow %w", err)
	}
	return &escrow, nil
}

func setEscrowStatusTx(ctx context.Context, tx *sqlx.Tx, escrow *models.Escrow, status string) error {
	if !models.IsValidEscrowTransition(escrow.Status, status) {
		return apperror.ErrEscrowNotActive
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE escrows SET status = $2, updated_at = NOW() WHERE id = $1
	`, escrow.ID, status)
	if err != nil {
		return fmt.Errorf("escrow repository: set status %w", err)
	}
	escrow.Status = status
	return nil
}

// Deposit создаёт сделку и переводит её сумму со счёта клиента на
// счёт-хранилище. Совпадение клиента и фрилансера не отклоняется,
// это поведение исходного контракта.
func (r *EscrowRepository) Deposit(ctx context.Context, clientID, freelancerID uuid.UUID, amount int64, deadline, now time.Time) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := moveFundsTx(ctx, tx, clientID, models.VaultUserID, amount); err != nil {
		return nil, err
	}

	var escrow models.Escrow
	err = tx.GetContext(ctx, &escrow, `
		INSERT INTO escrows (client_id, freelancer_id, amount, released_amount, status, is_disputed, deadline, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, FALSE, $5, $6, $6)
		RETURNING *
	`, clientID, freelancerID, amount, models.EscrowStatusCreated, deadline, now)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: create escrow %w", err)
	}

	if err := recordTransactionTx(ctx, tx, clientID, &escrow.ID, models.TransactionTypeEscrowDeposit, amount, "Внесение средств на сделку"); err != nil {
		return nil, err
	}

	return &escrow, tx.Commit()
}

// GetByID возвращает сделку по идентификатору.
func (r *EscrowRepository) GetByID(ctx context.Context, id int64) (*models.Escrow, error) {
	return common.GetByID[models.Escrow](ctx, r.db, "escrows", id, apperror.ErrEscrowNotFound)
}

// ListByParticipant возвращает сделки, где пользователь выступает
// клиентом или фрилансером.
func (r *EscrowRepository) ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Escrow, error) {
	var escrows []models.Escrow
	err := r.db.SelectContext(ctx, &escrows, `
		SELECT * FROM escrows
		WHERE client_id = $1 OR freelancer_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return escrows, err
}

// Sign отмечает подписание договора одним из участников.
func (r *EscrowRepository) Sign(ctx context.Context, id int64, caller uuid.UUID) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := getEscrowForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := escrow.EnsureSign(caller); err != nil {
		return nil, err
	}
	if err := setEscrowStatusTx(ctx, tx, escrow, models.EscrowStatusSigned); err != nil {
		return nil, err
	}
	return escrow, tx.Commit()
}

// SubmitWork отмечает сдачу работы фрилансером.
func (r *EscrowRepository) SubmitWork(ctx context.Context, id int64, caller uuid.UUID, now time.Time) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := getEscrowForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := escrow.EnsureSubmitWork(caller, now); err != nil {
		return nil, err
	}
	if err := setEscrowStatusTx(ctx, tx, escrow, models.EscrowStatusSubmitted); err != nil {
		return nil, err
	}
	return escrow, tx.Commit()
}

// ReleaseMilestone выплачивает фрилансеру часть суммы сделки.
// Сделка остаётся активной, операция повторяема.
func (r *EscrowRepository) ReleaseMilestone(ctx context.Context, id int64, caller uuid.UUID, amount int64) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := getEscrowForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := escrow.EnsureReleaseMilestone(caller, amount); err != nil {
		return nil, err
	}

	if err := moveFundsTx(ctx, tx, models.VaultUserID, escrow.FreelancerID, amount); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE escrows SET released_amount = released_amount + $2, updated_at = NOW() WHERE id = $1
	`, escrow.ID, amount)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: release milestone %w", err)
	}
	escrow.ReleasedAmount += amount

	if err := recordTransactionTx(ctx, tx, escrow.FreelancerID, &escrow.ID, models.TransactionTypeMilestoneRelease, amount, "Выплата за этап работы"); err != nil {
		return nil, err
	}

	return escrow, tx.Commit()
}

// PartialRefund возвращает клиенту часть оставшейся суммы после
// дедлайна. Сделка закрывается целиком: невозвращённый остаток
// остаётся на счёте-хранилище, это поведение исходного контракта.
func (r *EscrowRepository) PartialRefund(ctx context.Context, id int64, caller uuid.UUID, amount int64, now time.Time) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := getEscrowForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := escrow.EnsurePartialRefund(caller, amount, now); err != nil {
		return nil, err
	}

	if err := moveFundsTx(ctx, tx, models.VaultUserID, escrow.ClientID, amount); err != nil {
		return nil, err
	}
	if err := setEscrowStatusTx(ctx, tx, escrow, models.EscrowStatusRefunded); err != nil {
		return nil, err
	}
	if err := recordTransactionTx(ctx, tx, escrow.ClientID, &escrow.ID, models.TransactionTypePartialRefund, amount, "Частичный возврат по сделке"); err != nil {
		return nil, err
	}

	return escrow, tx.Commit()
}

// ApproveWork принимает работу и выплачивает фрилансеру остаток суммы.
func (r *EscrowRepository) ApproveWork(ctx context.Context, id int64, caller uuid.UUID) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := getEscrowForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := escrow.EnsureApproveWork(caller); err != nil {
		return nil, err
	}

	remaining := escrow.RemainingAmount()
	if err := moveFundsTx(ctx, tx, models.VaultUserID, escrow.FreelancerID, remaining); err != nil {
		return nil, err
	}
	if err := setEscrowStatusTx(ctx, tx, escrow, models.EscrowStatusApproved); err != nil {
		return nil, err
	}
	if err := recordTransactionTx(ctx, tx, escrow.FreelancerID, &escrow.ID, models.TransactionTypeEscrowRelease, remaining, "Оплата принятой работы"); err != nil {
		return nil, err
	}

	return escrow, tx.Commit()
}

// Withdraw возвращает клиенту полную сумму сделки после дедлайна,
// если работа не была сдана. Возвращается именно полная сумма, а не
// остаток: выплаченные этапы не вычитаются, это поведение исходного
// контракта. При нехватке средств на счёте-хранилище операция
// завершается ошибкой перевода и состояние не меняется.
func (r *EscrowRepository) Withdraw(ctx context.Context, id int64, caller uuid.UUID, now time.Time) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := getEscrowForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := escrow.EnsureWithdraw(caller, now); err != nil {
		return nil, err
	}

	payout := escrow.WithdrawPayout()
	if err := moveFundsTx(ctx, tx, models.VaultUserID, escrow.ClientID, payout); err != nil {
		return nil, err
	}
	if err := setEscrowStatusTx(ctx, tx, escrow, models.EscrowStatusWithdrawn); err != nil {
		return nil, err
	}
	if err := recordTransactionTx(ctx, tx, escrow.ClientID, &escrow.ID, models.TransactionTypeWithdraw, payout, "Возврат средств по сделке"); err != nil {
		return nil, err
	}

	return escrow, tx.Commit()
}

// AutoRelease выплачивает фрилансеру остаток суммы после дедлайна.
// Вызвать может любой пользователь.
func (r *EscrowRepository) AutoRelease(ctx context.Context, id int64, now time.Time) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := getEscrowForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := escrow.EnsureAutoRelease(now); err != nil {
		return nil, err
	}

	remaining := escrow.RemainingAmount()
	if err := moveFundsTx(ctx, tx, models.VaultUserID, escrow.FreelancerID, remaining); err != nil {
		return nil, err
	}
	if err := setEscrowStatusTx(ctx, tx, escrow, models.EscrowStatusAutoReleased); err != nil {
		return nil, err
	}
	if err := recordTransactionTx(ctx, tx, escrow.FreelancerID, &escrow.ID, models.TransactionTypeAutoRelease, remaining, "Автоматическая выплата по дедлайну"); err != nil {
		return nil, err
	}

	return escrow, tx.Commit()
}

// CheckExpiry закрывает давно созданную сделку и возвращает клиенту
// полную сумму независимо от выплаченных этапов, это поведение
// исходного контракта. Вызвать может любой пользователь.
func (r *EscrowRepository) CheckExpiry(ctx context.Context, id int64, now time.Time, expiryWindow time.Duration) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := getEscrowForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := escrow.EnsureCheckExpiry(now, expiryWindow); err != nil {
		return nil, err
	}

	payout := escrow.ExpiryPayout()
	if err := moveFundsTx(ctx, tx, models.VaultUserID, escrow.ClientID, payout); err != nil {
		return nil, err
	}
	if err := setEscrowStatusTx(ctx, tx, escrow, models.EscrowStatusExpired); err != nil {
		return nil, err
	}
	if err := recordTransactionTx(ctx, tx, escrow.ClientID, &escrow.ID, models.TransactionTypeExpiryRefund, payout, "Возврат по истечении срока сделки"); err != nil {
		return nil, err
	}

	return escrow, tx.Commit()
}

// ExtendDeadline сдвигает дедлайн вперёд. Верхняя граница не ограничена.
func (r *EscrowRepository) ExtendDeadline(ctx context.Context, id int64, caller uuid.UUID, extension time.Duration) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := getEscrowForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := escrow.EnsureExtendDeadline(caller, extension); err != nil {
		return nil, err
	}

	newDeadline := escrow.Deadline.Add(extension)
	_, err = tx.ExecContext(ctx, `
		UPDATE escrows SET deadline = $2, updated_at = NOW() WHERE id = $1
	`, escrow.ID, newDeadline)
	if err != nil {
		return nil, fmt.Errorf("escrow repository: extend deadline %w", err)
	}
	escrow.Deadline = newDeadline

	return escrow, tx.Commit()
}
