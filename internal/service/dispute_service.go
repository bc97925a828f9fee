package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/goroutine"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// DisputeRepository описывает взаимодействие сервиса с хранилищем споров.
type DisputeRepository interface {
	Open(ctx context.Context, escrowID int64, initiatorID uuid.UUID, reason string, fee int64) (*models.Dispute, error)
	Vote(ctx context.Context, escrowID int64, voterID uuid.UUID, supportsClient bool) (*models.DisputeTally, error)
	Resolve(ctx context.Context, escrowID int64, minVotes int, now time.Time) (*models.Dispute, error)
	GetByEscrowID(ctx context.Context, escrowID int64) (*models.Dispute, error)
	GetTally(ctx context.Context, escrowID int64) (*models.DisputeTally, error)
	SetEvidence(ctx context.Context, escrowID int64, url string) (*models.Dispute, error)
}

// EvidenceStorage описывает файловое хранилище доказательств.
type EvidenceStorage interface {
	Save(ctx context.Context, userID uuid.UUID, originalName string, r io.Reader) (string, int64, error)
	Delete(ctx context.Context, relativePath string) error
}

// DisputeService содержит бизнес-логику споров. Размер сбора, кворум и
// личность арбитра передаются при создании из конфигурации.
type DisputeService struct {
	repo      DisputeRepository
	escrows   EscrowRepository
	storage   EvidenceStorage
	hub       WSNotifier
	fee       int64
	minVotes  int
	arbiterID uuid.UUID
	now       func() time.Time
}

// NewDisputeService создаёт новый сервис споров.
func NewDisputeService(repo DisputeRepository, escrows EscrowRepository, fee int64, minVotes int, arbiterID uuid.UUID) *DisputeService {
	return &DisputeService{
		repo:      repo,
		escrows:   escrows,
		fee:       fee,
		minVotes:  minVotes,
		arbiterID: arbiterID,
		now:       time.Now,
	}
}

// SetHub устанавливает WebSocket hub для отправки уведомлений.
func (s *DisputeService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// SetStorage устанавливает хранилище файлов доказательств.
func (s *DisputeService) SetStorage(storage EvidenceStorage) {
	s.storage = storage
}

// SetNowFunc подменяет источник времени. Используется в тестах.
func (s *DisputeService) SetNowFunc(now func() time.Time) {
	s.now = now
}

func (s *DisputeService) notifyParties(escrow *models.Escrow, event string, data interface{}) {
	if s.hub == nil {
		return
	}
	goroutine.SafeGo(func() {
		_ = s.hub.BroadcastToUser(escrow.ClientID, event, data)
		_ = s.hub.BroadcastToUser(escrow.FreelancerID, event, data)
	})
}

// OpenDispute открывает спор по сделке от имени участника. Со счёта
// инициатора списывается фиксированный сбор.
func (s *DisputeService) OpenDispute(ctx context.Context, escrowID int64, initiatorID uuid.UUID, reason string) (*models.Dispute, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "не указана причина спора")
	}

	dispute, err := s.repo.Open(ctx, escrowID, initiatorID, reason, s.fee)
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"escrow_id": escrowID,
		"initiator": initiatorID,
	}).Info("открыт спор")

	if escrow, err := s.escrows.GetByID(ctx, escrowID); err == nil {
		s.notifyParties(escrow, models.NotificationTypeDisputeOpened, map[string]interface{}{
			"escrow_id": escrowID,
			"reason":    reason,
		})
	}

	return dispute, nil
}

// Vote записывает голос по открытому спору. Голосовать может любой
// пользователь, но только один раз.
func (s *DisputeService) Vote(ctx context.Context, escrowID int64, voterID uuid.UUID, supportsClient bool) (*models.DisputeTally, error) {
	return s.repo.Vote(ctx, escrowID, voterID, supportsClient)
}

// Resolve закрывает спор решением арбитра. Остаток суммы сделки
// выплачивается победителю голосования.
func (s *DisputeService) Resolve(ctx context.Context, escrowID int64, caller uuid.UUID) (*models.Dispute, error) {
	if caller != s.arbiterID {
		return nil, apperror.ErrNotArbiter
	}

	dispute, err := s.repo.Resolve(ctx, escrowID, s.minVotes, s.now())
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"escrow_id": escrowID,
		"winner":    dispute.Winner,
	}).Info("спор разрешён")

	if escrow, err := s.escrows.GetByID(ctx, escrowID); err == nil {
		s.notifyParties(escrow, models.NotificationTypeDisputeResolved, map[string]interface{}{
			"escrow_id": escrowID,
			"winner":    dispute.Winner,
		})
	}

	return dispute, nil
}

// GetDispute возвращает спор по идентификатору сделки.
func (s *DisputeService) GetDispute(ctx context.Context, escrowID int64) (*models.Dispute, error) {
	return s.repo.GetByEscrowID(ctx, escrowID)
}

// GetTally возвращает счётчики голосов по сделке.
func (s *DisputeService) GetTally(ctx context.Context, escrowID int64) (*models.DisputeTally, error) {
	return s.repo.GetTally(ctx, escrowID)
}

// AttachEvidence сохраняет файл с доказательствами и прикрепляет его
// к открытому спору. Доступно только участникам сделки.
func (s *DisputeService) AttachEvidence(ctx context.Context, escrowID int64, callerID uuid.UUID, fileName string, file io.Reader) (*models.Dispute, error) {
	if s.storage == nil {
		return nil, apperror.New(apperror.ErrCodeInternal, "хранилище файлов не настроено")
	}

	escrow, err := s.escrows.GetByID(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if !escrow.IsParticipant(callerID) {
		return nil, apperror.ErrNotParticipant
	}

	previous, err := s.repo.GetByEscrowID(ctx, escrowID)
	if err != nil {
		return nil, err
	}

	path, size, err := s.storage.Save(ctx, callerID, fileName, file)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сохранить файл")
	}

	dispute, err := s.repo.SetEvidence(ctx, escrowID, path)
	if err != nil {
		// Новый файл уже на диске, но в спор не записан — подчищаем.
		if delErr := s.storage.Delete(ctx, path); delErr != nil {
			logger.Log.WithField("path", path).Warnf("не удалось удалить файл доказательств: %v", delErr)
		}
		return nil, err
	}

	// Заменённый файл больше никем не используется.
	if previous.EvidenceURL != nil && *previous.EvidenceURL != "" {
		if delErr := s.storage.Delete(ctx, *previous.EvidenceURL); delErr != nil {
			logger.Log.WithField("path", *previous.EvidenceURL).Warnf("не удалось удалить прежний файл доказательств: %v", delErr)
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"escrow_id": escrowID,
		"path":      path,
		"size":      size,
	}).Info("прикреплены доказательства по спору")

	return dispute, nil
}
