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

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Open открывает спор по сделке и списывает сбор со счёта инициатора
// на счёт-хранилище. Сбор не возвращается ни при каком исходе спора,
// это поведение исходного контракта.
func (r *DisputeRepository) Open(ctx context.Context, escrowID int64, initiatorID uuid.UUID, reason string, fee int64) (*models.Dispute, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := getEscrowForUpdateTx(ctx, tx, escrowID)
	if err != nil {
		return nil, err
	}
	if err := escrow.EnsureOpenDispute(initiatorID); err != nil {
		return nil, err
	}

	if err := moveFundsTx(ctx, tx, initiatorID, models.VaultUserID, fee); err != nil {
		return nil, err
	}

	var dispute models.Dispute
	err = tx.GetContext(ctx, &dispute, `
		INSERT INTO disputes (escrow_id, initiator_id, reason, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (escrow_id) DO NOTHING
		RETURNING *
	`, escrowID, initiatorID, reason, models.DisputeStatusOpen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrAlreadyDisputed
		}
		return nil, fmt.Errorf("dispute repository: create dispute %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dispute_tallies (escrow_id, votes_for_client, votes_for_freelancer)
		VALUES ($1, 0, 0)
		ON CONFLICT (escrow_id) DO NOTHING
	`, escrowID)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: create tally %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE escrows SET is_disputed = TRUE, updated_at = NOW() WHERE id = $1
	`, escrowID)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: flag escrow %w", err)
	}

	if err := recordTransactionTx(ctx, tx, initiatorID, &escrowID, models.TransactionTypeDisputeFee, fee, "Сбор за открытие спора"); err != nil {
		return nil, err
	}

	return &dispute, tx.Commit()
}

// Vote записывает голос по открытому спору. Голос принимается от
// любого пользователя, но только один раз: повторный голос той же
// личности отклоняется. Счётчики голосов только растут.
func (r *DisputeRepository) Vote(ctx context.Context, escrowID int64, voterID uuid.UUID, supportsClient bool) (*models.DisputeTally, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := getEscrowForUpdateTx(ctx, tx, escrowID)
	if err != nil {
		return nil, err
	}
	if !escrow.IsDisputed {
		return nil, apperror.ErrNotDisputed
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO dispute_votes (escrow_id, voter_id, supports_client)
		VALUES ($1, $2, $3)
		ON CONFLICT (escrow_id, voter_id) DO NOTHING
	`, escrowID, voterID, supportsClient)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: insert vote %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("dispute repository: vote result %w", err)
	} else if affected == 0 {
		return nil, apperror.ErrAlreadyVoted
	}

	column := "votes_for_freelancer"
	if supportsClient {
		column = "votes_for_client"
	}
	var tally models.DisputeTally
	err = tx.GetContext(ctx, &tally, fmt.Sprintf(`
		UPDATE dispute_tallies SET %s = %s + 1 WHERE escrow_id = $1
		RETURNING escrow_id, votes_for_client, votes_for_freelancer
	`, column, column), escrowID)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: update tally %w", err)
	}

	return &tally, tx.Commit()
}

// Resolve закрывает спор и выплачивает победителю остаток суммы
// сделки. Победителя определяет большинство голосов, при равенстве
// выигрывает клиент. Проверка личности арбитра выполняется на уровне
// сервиса.
func (r *DisputeRepository) Resolve(ctx context.Context, escrowID int64, minVotes int, now time.Time) (*models.Dispute, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	escrow, err := getEscrowForUpdateTx(ctx, tx, escrowID)
	if err != nil {
		return nil, err
	}
	if err := escrow.EnsureResolveDispute(); err != nil {
		return nil, err
	}

	var tally models.DisputeTally
	err = tx.GetContext(ctx, &tally, `
		SELECT escrow_id, votes_for_client, votes_for_freelancer
		FROM dispute_tallies WHERE escrow_id = $1
	`, escrowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get tally %w", err)
	}
	if tally.TotalVotes() < minVotes {
		return nil, apperror.ErrQuorumNotReached
	}

	winner := tally.WinnerSide()
	winnerID := escrow.ClientID
	if winner == models.DisputeSideFreelancer {
		winnerID = escrow.FreelancerID
	}

	payout := escrow.ResolvePayout()
	if err := moveFundsTx(ctx, tx, models.VaultUserID, winnerID, payout); err != nil {
		return nil, err
	}

	var dispute models.Dispute
	err = tx.GetContext(ctx, &dispute, `
		UPDATE disputes SET status = $2, winner = $3, resolved_at = $4
		WHERE escrow_id = $1
		RETURNING *
	`, escrowID, models.DisputeStatusResolved, winner, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: resolve dispute %w", err)
	}

	if !models.IsValidEscrowTransition(escrow.Status, models.EscrowStatusDisputeResolved) {
		return nil, apperror.ErrEscrowNotActive
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE escrows SET status = $2, is_disputed = FALSE, updated_at = NOW() WHERE id = $1
	`, escrowID, models.EscrowStatusDisputeResolved)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: close escrow %w", err)
	}

	if err := recordTransactionTx(ctx, tx, winnerID, &escrowID, models.TransactionTypeDisputePayout, payout, "Выплата по решению спора"); err != nil {
		return nil, err
	}

	return &dispute, tx.Commit()
}

// GetByEscrowID возвращает спор по идентификатору сделки.
func (r *DisputeRepository) GetByEscrowID(ctx context.Context, escrowID int64) (*models.Dispute, error) {
	return common.GetByField[models.Dispute](ctx, r.db, "disputes", "escrow_id", escrowID, apperror.ErrDisputeNotFound)
}

// GetTally возвращает счётчики голосов по сделке.
func (r *DisputeRepository) GetTally(ctx context.Context, escrowID int64) (*models.DisputeTally, error) {
	var tally models.DisputeTally
	err := r.db.GetContext(ctx, &tally, `
		SELECT escrow_id, votes_for_client, votes_for_freelancer
		FROM dispute_tallies WHERE escrow_id = $1
	`, escrowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get tally %w", err)
	}
	return &tally, nil
}

// SetEvidence прикрепляет к спору ссылку на загруженный файл с доказательствами.
func (r *DisputeRepository) SetEvidence(ctx context.Context, escrowID int64, url string) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.GetContext(ctx, &dispute, `
		UPDATE disputes SET evidence_url = $2 WHERE escrow_id = $1 AND status = $3
		RETURNING *
	`, escrowID, url, models.DisputeStatusOpen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: set evidence %w", err)
	}
	return &dispute, nil
}
