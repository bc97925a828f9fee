package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotActive          ErrorCode = "NOT_ACTIVE"
	ErrCodeWrongSubState      ErrorCode = "WRONG_SUBSTATE"
	ErrCodeDeadlineNotReached ErrorCode = "DEADLINE_NOT_REACHED"
	ErrCodeDeadlinePassed     ErrorCode = "DEADLINE_PASSED"
	ErrCodeDisputed           ErrorCode = "DISPUTED"
	ErrCodeNotDisputed        ErrorCode = "NOT_DISPUTED"
	ErrCodeAlreadyDisputed    ErrorCode = "ALREADY_DISPUTED"
	ErrCodeAlreadyVoted       ErrorCode = "ALREADY_VOTED"
	ErrCodeQuorumNotReached   ErrorCode = "QUORUM_NOT_REACHED"
	ErrCodeInsufficientFunds  ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeTransferFailed     ErrorCode = "TRANSFER_FAILED"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is позволяет сравнивать ошибки через errors.Is по коду и сообщению:
// обёрнутая через Wrap ошибка совпадает со своим сентинелом.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeValidation, ErrCodeInsufficientFunds:
		return http.StatusBadRequest
	case ErrCodeNotActive, ErrCodeWrongSubState, ErrCodeDeadlineNotReached,
		ErrCodeDeadlinePassed, ErrCodeDisputed, ErrCodeNotDisputed,
		ErrCodeAlreadyDisputed, ErrCodeAlreadyVoted, ErrCodeQuorumNotReached,
		ErrCodeTransferFailed, ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

// HTTPStatusOf возвращает HTTP статус для ошибки или 500 по умолчанию.
func HTTPStatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

var (
	ErrEscrowNotFound  = New(ErrCodeNotFound, "сделка не найдена")
	ErrDisputeNotFound = New(ErrCodeNotFound, "спор не найден")
	ErrUserNotFound    = New(ErrCodeNotFound, "пользователь не найден")

	ErrUnauthorized       = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrInvalidCredentials = New(ErrCodeUnauthorized, "неверные учетные данные")
	ErrNotParticipant     = New(ErrCodeForbidden, "вы не участник этой сделки")
	ErrNotClient          = New(ErrCodeForbidden, "действие доступно только клиенту")
	ErrNotFreelancer      = New(ErrCodeForbidden, "действие доступно только фрилансеру")
	ErrNotArbiter         = New(ErrCodeForbidden, "разрешать споры может только арбитр")

	ErrInvalidAmount       = New(ErrCodeValidation, "сумма должна быть положительной")
	ErrInvalidDuration     = New(ErrCodeValidation, "длительность должна быть положительной")
	ErrInvalidRating       = New(ErrCodeValidation, "рейтинг должен быть от 1 до 5")
	ErrExceedsEscrowAmount = New(ErrCodeValidation, "сумма выплат превышает сумму сделки")

	ErrEscrowNotActive = New(ErrCodeNotActive, "сделка уже завершена")
	ErrEscrowActive    = New(ErrCodeNotActive, "сделка ещё не завершена")

	ErrAlreadySigned    = New(ErrCodeWrongSubState, "договор уже подписан")
	ErrNotSigned        = New(ErrCodeWrongSubState, "договор ещё не подписан")
	ErrAlreadySubmitted = New(ErrCodeWrongSubState, "работа уже сдана")
	ErrNotSubmitted     = New(ErrCodeWrongSubState, "работа ещё не сдана")

	ErrDeadlineNotReached = New(ErrCodeDeadlineNotReached, "дедлайн ещё не наступил")
	ErrDeadlinePassed     = New(ErrCodeDeadlinePassed, "дедлайн уже прошёл")

	ErrDisputed        = New(ErrCodeDisputed, "по сделке открыт спор")
	ErrNotDisputed     = New(ErrCodeNotDisputed, "по сделке нет открытого спора")
	ErrAlreadyDisputed = New(ErrCodeAlreadyDisputed, "спор по сделке уже открыт")

	ErrAlreadyVoted     = New(ErrCodeAlreadyVoted, "вы уже голосовали по этому спору")
	ErrQuorumNotReached = New(ErrCodeQuorumNotReached, "недостаточно голосов для разрешения спора")

	ErrInsufficientFunds = New(ErrCodeInsufficientFunds, "недостаточно средств на балансе")
	ErrTransferFailed    = New(ErrCodeTransferFailed, "перевод отклонён леджером")
)
