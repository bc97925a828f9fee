package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/goroutine"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

// ReviewRepository описывает взаимодействие сервиса с хранилищем отзывов.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) (*models.Review, error)
	ListByEscrowID(ctx context.Context, escrowID int64) ([]models.Review, error)
	ListBySubmitter(ctx context.Context, submitterID uuid.UUID, limit, offset int) ([]models.Review, error)
}

// ReviewService содержит бизнес-логику журнала отзывов.
type ReviewService struct {
	repo    ReviewRepository
	escrows EscrowRepository
	hub     WSNotifier
}

// NewReviewService создаёт новый сервис отзывов.
func NewReviewService(repo ReviewRepository, escrows EscrowRepository) *ReviewService {
	return &ReviewService{repo: repo, escrows: escrows}
}

// SetHub устанавливает WebSocket hub для отправки уведомлений.
func (s *ReviewService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// SubmitReviewInput описывает входные данные отзыва.
type SubmitReviewInput struct {
	EscrowID           int64
	SubmitterID        uuid.UUID
	ClientRating       int
	FreelancerRating   int
	ClientFeedback     string
	FreelancerFeedback string
}

// SubmitReview добавляет отзыв по завершённой сделке. Автор не обязан
// быть участником сделки, повторная подача не ограничена, это
// поведение исходного контракта.
func (s *ReviewService) SubmitReview(ctx context.Context, input SubmitReviewInput) (*models.Review, error) {
	if !models.ValidRating(input.ClientRating) || !models.ValidRating(input.FreelancerRating) {
		return nil, apperror.ErrInvalidRating
	}

	escrow, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil {
		return nil, err
	}
	if escrow.IsActive() {
		return nil, apperror.ErrEscrowActive
	}

	review, err := s.repo.Create(ctx, &models.Review{
		EscrowID:           input.EscrowID,
		SubmitterID:        input.SubmitterID,
		ClientRating:       input.ClientRating,
		FreelancerRating:   input.FreelancerRating,
		ClientFeedback:     strings.TrimSpace(input.ClientFeedback),
		FreelancerFeedback: strings.TrimSpace(input.FreelancerFeedback),
	})
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		data := map[string]interface{}{"escrow_id": input.EscrowID, "review_id": review.ID}
		goroutine.SafeGo(func() {
			_ = s.hub.BroadcastToUser(escrow.ClientID, models.NotificationTypeReviewSubmitted, data)
			_ = s.hub.BroadcastToUser(escrow.FreelancerID, models.NotificationTypeReviewSubmitted, data)
		})
	}

	return review, nil
}

// GetReviewHistory возвращает отзывы по сделке в порядке добавления.
func (s *ReviewService) GetReviewHistory(ctx context.Context, escrowID int64) ([]models.Review, error) {
	if _, err := s.escrows.GetByID(ctx, escrowID); err != nil {
		return nil, err
	}
	return s.repo.ListByEscrowID(ctx, escrowID)
}

// ListBySubmitter возвращает отзывы, оставленные пользователем.
func (s *ReviewService) ListBySubmitter(ctx context.Context, submitterID uuid.UUID, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListBySubmitter(ctx, submitterID, limit, offset)
}
