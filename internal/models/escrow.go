package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// Статусы escrow-сделки. Активные статусы описывают стадию работы,
// терминальные — способ завершения сделки.
const (
	EscrowStatusCreated   = "created"
	EscrowStatusSigned    = "signed"
	EscrowStatusSubmitted = "submitted"

	EscrowStatusApproved        = "approved"
	EscrowStatusRefunded        = "refunded"
	EscrowStatusWithdrawn       = "withdrawn"
	EscrowStatusAutoReleased    = "auto_released"
	EscrowStatusDisputeResolved = "dispute_resolved"
	EscrowStatusExpired         = "expired"
)

// ValidEscrowTransitions описывает допустимые переходы статусов: from -> []to.
// Флаг спора (IsDisputed) не входит в статус: спор может открываться на любой
// активной стадии и не запрещает sign/submit.
var ValidEscrowTransitions = map[string][]string{
	EscrowStatusCreated: {
		EscrowStatusSigned,
		EscrowStatusRefunded,
		EscrowStatusWithdrawn,
		EscrowStatusAutoReleased,
		EscrowStatusDisputeResolved,
		EscrowStatusExpired,
	},
	EscrowStatusSigned: {
		EscrowStatusSubmitted,
		EscrowStatusRefunded,
		EscrowStatusWithdrawn,
		EscrowStatusAutoReleased,
		EscrowStatusDisputeResolved,
		EscrowStatusExpired,
	},
	EscrowStatusSubmitted: {
		EscrowStatusApproved,
		EscrowStatusRefunded,
		EscrowStatusAutoReleased,
		EscrowStatusDisputeResolved,
		EscrowStatusExpired,
	},
	EscrowStatusApproved:        {},
	EscrowStatusRefunded:        {},
	EscrowStatusWithdrawn:       {},
	EscrowStatusAutoReleased:    {},
	EscrowStatusDisputeResolved: {},
	EscrowStatusExpired:         {},
}

// IsValidEscrowTransition проверяет допустимость перехода статусов.
func IsValidEscrowTransition(from, to string) bool {
	allowed, ok := ValidEscrowTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Escrow представляет защищённую сделку между клиентом и фрилансером.
// Суммы хранятся в минимальных единицах внутреннего токена (int64).
// Равенство client == freelancer намеренно не запрещается — поведение
// унаследовано от исходного контракта и зафиксировано тестами.
type Escrow struct {
	ID             int64     `db:"id" json:"id"`
	ClientID       uuid.UUID `db:"client_id" json:"client_id"`
	FreelancerID   uuid.UUID `db:"freelancer_id" json:"freelancer_id"`
	Amount         int64     `db:"amount" json:"amount"`
	ReleasedAmount int64     `db:"released_amount" json:"released_amount"`
	Status         string    `db:"status" json:"status"`
	IsDisputed     bool      `db:"is_disputed" json:"is_disputed"`
	Deadline       time.Time `db:"deadline" json:"deadline"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// IsActive сообщает, находится ли сделка в активном (нетерминальном) статусе.
func (e *Escrow) IsActive() bool {
	switch e.Status {
	case EscrowStatusCreated, EscrowStatusSigned, EscrowStatusSubmitted:
		return true
	}
	return false
}

// IsParticipant проверяет, является ли пользователь стороной сделки.
func (e *Escrow) IsParticipant(userID uuid.UUID) bool {
	return userID == e.ClientID || userID == e.FreelancerID
}

// RemainingAmount возвращает остаток на сделке после milestone-выплат.
func (e *Escrow) RemainingAmount() int64 {
	return e.Amount - e.ReleasedAmount
}

// WithdrawPayout возвращает сумму возврата клиенту при отзыве сделки.
// Возвращается полная сумма, а не остаток: уже выплаченные этапы не
// вычитаются и фактически выплачиваются повторно, это поведение
// исходного контракта.
func (e *Escrow) WithdrawPayout() int64 {
	return e.Amount
}

// ExpiryPayout возвращает сумму возврата клиенту по истечении срока
// сделки. Как и при отзыве, возвращается полная сумма независимо от
// выплаченных этапов, это поведение исходного контракта.
func (e *Escrow) ExpiryPayout() int64 {
	return e.Amount
}

// ResolvePayout возвращает выплату победителю спора: остаток суммы
// сделки. Сбор за открытие спора в выплату не входит и остаётся на
// счёте-хранилище, это поведение исходного контракта.
func (e *Escrow) ResolvePayout() int64 {
	return e.RemainingAmount()
}

// EnsureSign проверяет предусловия подписания договора.
func (e *Escrow) EnsureSign(caller uuid.UUID) error {
	if !e.IsParticipant(caller) {
		return apperror.ErrNotParticipant
	}
	if !e.IsActive() {
		return apperror.ErrEscrowNotActive
	}
	if e.Status != EscrowStatusCreated {
		return apperror.ErrAlreadySigned
	}
	return nil
}

// EnsureSubmitWork проверяет предусловия сдачи работы фрилансером.
func (e *Escrow) EnsureSubmitWork(caller uuid.UUID, now time.Time) error {
	if caller != e.FreelancerID {
		return apperror.ErrNotFreelancer
	}
	if !e.IsActive() {
		return apperror.ErrEscrowNotActive
	}
	if e.Status == EscrowStatusSubmitted {
		return apperror.ErrAlreadySubmitted
	}
	if e.Status != EscrowStatusSigned {
		return apperror.ErrNotSigned
	}
	if now.After(e.Deadline) {
		return apperror.ErrDeadlinePassed
	}
	return nil
}

// EnsureReleaseMilestone проверяет предусловия частичной выплаты фрилансеру.
func (e *Escrow) EnsureReleaseMilestone(caller uuid.UUID, amount int64) error {
	if caller != e.ClientID {
		return apperror.ErrNotClient
	}
	if !e.IsActive() {
		return apperror.ErrEscrowNotActive
	}
	if amount <= 0 {
		return apperror.ErrInvalidAmount
	}
	if e.ReleasedAmount+amount > e.Amount {
		return apperror.ErrExceedsEscrowAmount
	}
	return nil
}

// EnsurePartialRefund проверяет предусловия частичного возврата клиенту.
// Возврат деактивирует сделку целиком: невозвращённый остаток остаётся
// на счёте-хранилище без владельца (поведение исходного контракта).
func (e *Escrow) EnsurePartialRefund(caller uuid.UUID, amount int64, now time.Time) error {
	if caller != e.ClientID {
		return apperror.ErrNotClient
	}
	if !e.IsActive() {
		return apperror.ErrEscrowNotActive
	}
	if !now.After(e.Deadline) {
		return apperror.ErrDeadlineNotReached
	}
	if amount <= 0 || amount > e.RemainingAmount() {
		return apperror.ErrInvalidAmount
	}
	return nil
}

// EnsureApproveWork проверяет предусловия приёма работы клиентом.
func (e *Escrow) EnsureApproveWork(caller uuid.UUID) error {
	if caller != e.ClientID {
		return apperror.ErrNotClient
	}
	if !e.IsActive() {
		return apperror.ErrEscrowNotActive
	}
	if e.IsDisputed {
		return apperror.ErrDisputed
	}
	if e.Status == EscrowStatusCreated {
		return apperror.ErrNotSigned
	}
	if e.Status != EscrowStatusSubmitted {
		return apperror.ErrNotSubmitted
	}
	return nil
}

// EnsureWithdraw проверяет предусловия отзыва средств клиентом после дедлайна.
// Выплачивается полная сумма сделки, а не остаток — milestone-выплаты при этом
// фактически возвращаются клиенту второй раз (поведение исходного контракта).
func (e *Escrow) EnsureWithdraw(caller uuid.UUID, now time.Time) error {
	if caller != e.ClientID {
		return apperror.ErrNotClient
	}
	if !e.IsActive() {
		return apperror.ErrEscrowNotActive
	}
	if e.Status == EscrowStatusSubmitted {
		return apperror.ErrAlreadySubmitted
	}
	if !now.After(e.Deadline) {
		return apperror.ErrDeadlineNotReached
	}
	return nil
}

// EnsureAutoRelease проверяет предусловия автоматической выплаты фрилансеру.
// Вызвать может кто угодно.
func (e *Escrow) EnsureAutoRelease(now time.Time) error {
	if !e.IsActive() {
		return apperror.ErrEscrowNotActive
	}
	if e.IsDisputed {
		return apperror.ErrDisputed
	}
	if now.Before(e.Deadline) {
		return apperror.ErrDeadlineNotReached
	}
	return nil
}

// EnsureCheckExpiry проверяет предусловия возврата по долгому окну истечения.
// Окно отсчитывается от создания сделки и не зависит от дедлайна.
func (e *Escrow) EnsureCheckExpiry(now time.Time, expiryWindow time.Duration) error {
	if !e.IsActive() {
		return apperror.ErrEscrowNotActive
	}
	if now.Before(e.CreatedAt.Add(expiryWindow)) {
		return apperror.ErrDeadlineNotReached
	}
	return nil
}

// EnsureExtendDeadline проверяет предусловия продления дедлайна.
// Дедлайн двигается только вперёд; верхней границы нет.
func (e *Escrow) EnsureExtendDeadline(caller uuid.UUID, additional time.Duration) error {
	if !e.IsParticipant(caller) {
		return apperror.ErrNotParticipant
	}
	if !e.IsActive() {
		return apperror.ErrEscrowNotActive
	}
	if additional <= 0 {
		return apperror.ErrInvalidDuration
	}
	return nil
}

// EnsureOpenDispute проверяет предусловия открытия спора.
func (e *Escrow) EnsureOpenDispute(caller uuid.UUID) error {
	if !e.IsParticipant(caller) {
		return apperror.ErrNotParticipant
	}
	if !e.IsActive() {
		return apperror.ErrEscrowNotActive
	}
	if e.IsDisputed {
		return apperror.ErrAlreadyDisputed
	}
	return nil
}

// EnsureResolveDispute проверяет предусловия разрешения спора.
// Права арбитра проверяются на уровне сервиса.
func (e *Escrow) EnsureResolveDispute() error {
	if !e.IsActive() {
		return apperror.ErrEscrowNotActive
	}
	if !e.IsDisputed {
		return apperror.ErrNotDisputed
	}
	return nil
}
