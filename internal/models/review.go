package models

import (
	"time"

	"github.com/google/uuid"
)

// Review представляет отзыв по завершённой сделке. Журнал отзывов
// только дополняется, записи не редактируются и не удаляются.
// Ограничения на автора и повторную подачу отсутствуют: любой
// пользователь может оставить отзыв по любой завершённой сделке,
// в том числе несколько раз.
type Review struct {
	ID                 int64     `db:"id" json:"id"`
	EscrowID           int64     `db:"escrow_id" json:"escrow_id"`
	SubmitterID        uuid.UUID `db:"submitter_id" json:"submitter_id"`
	ClientRating       int       `db:"client_rating" json:"client_rating"`
	FreelancerRating   int       `db:"freelancer_rating" json:"freelancer_rating"`
	ClientFeedback     string    `db:"client_feedback" json:"client_feedback"`
	FreelancerFeedback string    `db:"freelancer_feedback" json:"freelancer_feedback"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Границы оценки
const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating проверяет, что оценка входит в допустимый диапазон.
func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}
