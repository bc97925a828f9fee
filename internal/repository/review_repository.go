package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-backend/internal/models"
)

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create добавляет отзыв. Журнал только дополняется, ограничений на
// повторную подачу нет.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) (*models.Review, error) {
	var created models.Review
	err := r.db.GetContext(ctx, &created, `
		INSERT INTO reviews (escrow_id, submitter_id, client_rating, freelancer_rating, client_feedback, freelancer_feedback)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, review.EscrowID, review.SubmitterID, review.ClientRating, review.FreelancerRating, review.ClientFeedback, review.FreelancerFeedback)
	if err != nil {
		return nil, fmt.Errorf("review repository: create review %w", err)
	}
	return &created, nil
}

// ListByEscrowID возвращает отзывы по сделке строго в порядке
// добавления. Сортировка по монотонному id, а не по created_at:
// отметка времени имеет микросекундное разрешение и может совпасть
// у соседних записей.
func (r *ReviewRepository) ListByEscrowID(ctx context.Context, escrowID int64) ([]models.Review, error) {
	reviews := make([]models.Review, 0)
	err := r.db.SelectContext(ctx, &reviews, `
		SELECT * FROM reviews WHERE escrow_id = $1 ORDER BY id ASC
	`, escrowID)
	if err != nil {
		return nil, fmt.Errorf("review repository: list reviews %w", err)
	}
	return reviews, nil
}

// ListBySubmitter возвращает отзывы, оставленные пользователем.
func (r *ReviewRepository) ListBySubmitter(ctx context.Context, submitterID uuid.UUID, limit, offset int) ([]models.Review, error) {
	reviews := make([]models.Review, 0)
	err := r.db.SelectContext(ctx, &reviews, `
		SELECT * FROM reviews WHERE submitter_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3
	`, submitterID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("review repository: list by submitter %w", err)
	}
	return reviews, nil
}
