package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/goroutine"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// EscrowRepository описывает взаимодействие сервиса с хранилищем сделок.
type EscrowRepository interface {
	Deposit(ctx context.Context, clientID, freelancerID uuid.UUID, amount int64, deadline, now time.Time) (*models.Escrow, error)
	GetByID(ctx context.Context, id int64) (*models.Escrow, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Escrow, error)
	Sign(ctx context.Context, id int64, caller uuid.UUID) (*models.Escrow, error)
	SubmitWork(ctx context.Context, id int64, caller uuid.UUID, now time.Time) (*models.Escrow, error)
	ReleaseMilestone(ctx context.Context, id int64, caller uuid.UUID, amount int64) (*models.Escrow, error)
	PartialRefund(ctx context.Context, id int64, caller uuid.UUID, amount int64, now time.Time) (*models.Escrow, error)
	ApproveWork(ctx context.Context, id int64, caller uuid.UUID) (*models.Escrow, error)
	Withdraw(ctx context.Context, id int64, caller uuid.UUID, now time.Time) (*models.Escrow, error)
	AutoRelease(ctx context.Context, id int64, now time.Time) (*models.Escrow, error)
	CheckExpiry(ctx context.Context, id int64, now time.Time, expiryWindow time.Duration) (*models.Escrow, error)
	ExtendDeadline(ctx context.Context, id int64, caller uuid.UUID, extension time.Duration) (*models.Escrow, error)
}

// WSNotifier интерфейс для отправки WebSocket уведомлений.
type WSNotifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{}) error
}

// EscrowService содержит бизнес-логику жизненного цикла сделок.
// Окно истечения срока передаётся при создании, глобальных настроек нет.
type EscrowService struct {
	repo         EscrowRepository
	hub          WSNotifier
	expiryWindow time.Duration
	now          func() time.Time
}

// NewEscrowService создаёт новый сервис сделок.
func NewEscrowService(repo EscrowRepository, expiryWindow time.Duration) *EscrowService {
	return &EscrowService{
		repo:         repo,
		expiryWindow: expiryWindow,
		now:          time.Now,
	}
}

// SetHub устанавливает WebSocket hub для отправки уведомлений.
func (s *EscrowService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// SetNowFunc подменяет источник времени. Используется в тестах.
func (s *EscrowService) SetNowFunc(now func() time.Time) {
	s.now = now
}

func (s *EscrowService) notify(userID uuid.UUID, event string, escrow *models.Escrow) {
	if s.hub == nil {
		return
	}
	goroutine.SafeGo(func() {
		if err := s.hub.BroadcastToUser(userID, event, map[string]interface{}{
			"escrow_id": escrow.ID,
			"status":    escrow.Status,
			"amount":    escrow.Amount,
		}); err != nil {
			logger.Log.WithError(err).WithField("escrow_id", escrow.ID).Warn("не удалось отправить уведомление")
		}
	})
}

// Deposit создаёт сделку: списывает сумму со счёта клиента и помещает
// её на счёт-хранилище до завершения работы.
func (s *EscrowService) Deposit(ctx context.Context, clientID, freelancerID uuid.UUID, amount int64, duration time.Duration) (*models.Escrow, error) {
	if freelancerID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "не указан исполнитель")
	}
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount
	}
	if duration <= 0 {
		return nil, apperror.ErrInvalidDuration
	}

	now := s.now()
	escrow, err := s.repo.Deposit(ctx, clientID, freelancerID, amount, now.Add(duration), now)
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"escrow_id": escrow.ID,
		"client":    clientID,
		"amount":    amount,
	}).Info("сделка создана")

	s.notify(freelancerID, models.NotificationTypeEscrowCreated, escrow)
	return escrow, nil
}

// GetEscrow возвращает сделку по идентификатору.
func (s *EscrowService) GetEscrow(ctx context.Context, id int64) (*models.Escrow, error) {
	return s.repo.GetByID(ctx, id)
}

// ListEscrows возвращает сделки пользователя.
func (s *EscrowService) ListEscrows(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Escrow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByParticipant(ctx, userID, limit, offset)
}

// Sign подписывает договор от имени участника сделки.
func (s *EscrowService) Sign(ctx context.Context, id int64, caller uuid.UUID) (*models.Escrow, error) {
	escrow, err := s.repo.Sign(ctx, id, caller)
	if err != nil {
		return nil, err
	}

	other := escrow.ClientID
	if caller == escrow.ClientID {
		other = escrow.FreelancerID
	}
	s.notify(other, models.NotificationTypeEscrowSigned, escrow)
	return escrow, nil
}

// SubmitWork отмечает сдачу работы. Доступно только фрилансеру и
// только до дедлайна.
func (s *EscrowService) SubmitWork(ctx context.Context, id int64, caller uuid.UUID) (*models.Escrow, error) {
	escrow, err := s.repo.SubmitWork(ctx, id, caller, s.now())
	if err != nil {
		return nil, err
	}

	s.notify(escrow.ClientID, models.NotificationTypeWorkSubmitted, escrow)
	return escrow, nil
}

// ReleaseMilestone выплачивает фрилансеру часть суммы сделки.
func (s *EscrowService) ReleaseMilestone(ctx context.Context, id int64, caller uuid.UUID, amount int64) (*models.Escrow, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount
	}

	escrow, err := s.repo.ReleaseMilestone(ctx, id, caller, amount)
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"escrow_id": escrow.ID,
		"amount":    amount,
		"released":  escrow.ReleasedAmount,
	}).Info("выплачен этап работы")

	s.notify(escrow.FreelancerID, models.NotificationTypeMilestonePaid, escrow)
	return escrow, nil
}

// PartialRefund возвращает клиенту часть оставшейся суммы после дедлайна.
func (s *EscrowService) PartialRefund(ctx context.Context, id int64, caller uuid.UUID, amount int64) (*models.Escrow, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount
	}

	escrow, err := s.repo.PartialRefund(ctx, id, caller, amount, s.now())
	if err != nil {
		return nil, err
	}

	s.notify(escrow.FreelancerID, models.NotificationTypeEscrowRefunded, escrow)
	return escrow, nil
}

// ApproveWork принимает работу и выплачивает фрилансеру остаток суммы.
func (s *EscrowService) ApproveWork(ctx context.Context, id int64, caller uuid.UUID) (*models.Escrow, error) {
	escrow, err := s.repo.ApproveWork(ctx, id, caller)
	if err != nil {
		return nil, err
	}

	logger.Log.WithField("escrow_id", escrow.ID).Info("работа принята")
	s.notify(escrow.FreelancerID, models.NotificationTypeEscrowApproved, escrow)
	return escrow, nil
}

// Withdraw возвращает клиенту полную сумму сделки после дедлайна,
// если работа не была сдана.
func (s *EscrowService) Withdraw(ctx context.Context, id int64, caller uuid.UUID) (*models.Escrow, error) {
	escrow, err := s.repo.Withdraw(ctx, id, caller, s.now())
	if err != nil {
		return nil, err
	}

	s.notify(escrow.FreelancerID, models.NotificationTypeEscrowWithdrawn, escrow)
	return escrow, nil
}

// AutoRelease выплачивает фрилансеру остаток суммы после дедлайна.
// Запустить может любой пользователь.
func (s *EscrowService) AutoRelease(ctx context.Context, id int64) (*models.Escrow, error) {
	escrow, err := s.repo.AutoRelease(ctx, id, s.now())
	if err != nil {
		return nil, err
	}

	s.notify(escrow.FreelancerID, models.NotificationTypeEscrowReleased, escrow)
	s.notify(escrow.ClientID, models.NotificationTypeEscrowReleased, escrow)
	return escrow, nil
}

// CheckExpiry закрывает давно созданную сделку с возвратом клиенту.
// Запустить может любой пользователь.
func (s *EscrowService) CheckExpiry(ctx context.Context, id int64) (*models.Escrow, error) {
	escrow, err := s.repo.CheckExpiry(ctx, id, s.now(), s.expiryWindow)
	if err != nil {
		return nil, err
	}

	s.notify(escrow.ClientID, models.NotificationTypeEscrowExpired, escrow)
	s.notify(escrow.FreelancerID, models.NotificationTypeEscrowExpired, escrow)
	return escrow, nil
}

// ExtendDeadline сдвигает дедлайн сделки вперёд.
func (s *EscrowService) ExtendDeadline(ctx context.Context, id int64, caller uuid.UUID, extension time.Duration) (*models.Escrow, error) {
	if extension <= 0 {
		return nil, apperror.ErrInvalidDuration
	}

	escrow, err := s.repo.ExtendDeadline(ctx, id, caller, extension)
	if err != nil {
		return nil, err
	}

	other := escrow.ClientID
	if caller == escrow.ClientID {
		other = escrow.FreelancerID
	}
	s.notify(other, models.NotificationTypeDeadlineMoved, escrow)
	return escrow, nil
}
