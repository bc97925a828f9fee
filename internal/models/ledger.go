package models

import (
	"time"

	"github.com/google/uuid"
)

// VaultUserID — служебный счёт-хранилище: на нём лежат средства всех
// активных сделок и собранные сборы за споры. Создаётся миграцией.
var VaultUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Типы транзакций леджера
const (
	TransactionTypeDeposit          = "deposit"
	TransactionTypeEscrowDeposit    = "escrow_deposit"
	TransactionTypeMilestoneRelease = "milestone_release"
	TransactionTypePartialRefund    = "partial_refund"
	TransactionTypeEscrowRelease    = "escrow_release"
	TransactionTypeWithdraw         = "withdraw"
	TransactionTypeAutoRelease      = "auto_release"
	TransactionTypeExpiryRefund     = "expiry_refund"
	TransactionTypeDisputeFee       = "dispute_fee"
	TransactionTypeDisputePayout    = "dispute_payout"
)

// UserBalance представляет баланс счёта во внутреннем токене.
// Суммы в минимальных единицах (int64), дробных значений нет.
type UserBalance struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Available int64     `db:"available" json:"available"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction представляет запись в журнале движений токена.
type Transaction struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	EscrowID    *int64    `db:"escrow_id" json:"escrow_id,omitempty"`
	Type        string    `db:"type" json:"type"`
	Amount      int64     `db:"amount" json:"amount"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
