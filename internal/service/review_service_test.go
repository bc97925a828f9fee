package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) (*models.Review, error) {
	args := m.Called(ctx, review)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) ListByEscrowID(ctx context.Context, escrowID int64) ([]models.Review, error) {
	args := m.Called(ctx, escrowID)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewRepo) ListBySubmitter(ctx context.Context, submitterID uuid.UUID, limit, offset int) ([]models.Review, error) {
	args := m.Called(ctx, submitterID, limit, offset)
	return args.Get(0).([]models.Review), args.Error(1)
}

func finishedEscrow() *models.Escrow {
	return &models.Escrow{
		ID:           1,
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
		Amount:       1000,
		Status:       models.EscrowStatusApproved,
	}
}

func TestReviewService_SubmitReview_Success(t *testing.T) {
	repo := new(mockReviewRepo)
	escrows := new(mockEscrowRepo)
	svc := NewReviewService(repo, escrows)
	ctx := context.Background()

	escrows.On("GetByID", ctx, int64(1)).Return(finishedEscrow(), nil)

	submitterID := uuid.New()
	stored := &models.Review{ID: 1, EscrowID: 1, SubmitterID: submitterID, ClientRating: 5, FreelancerRating: 4}
	repo.On("Create", ctx, mock.MatchedBy(func(r *models.Review) bool {
		return r.EscrowID == 1 && r.ClientRating == 5 && r.FreelancerRating == 4 && r.ClientFeedback == "отличный клиент"
	})).Return(stored, nil)

	review, err := svc.SubmitReview(ctx, SubmitReviewInput{
		EscrowID:         1,
		SubmitterID:      submitterID,
		ClientRating:     5,
		FreelancerRating: 4,
		ClientFeedback:   "  отличный клиент  ",
	})
	assert.NoError(t, err)
	assert.Equal(t, stored, review)
	repo.AssertExpectations(t)
}

func TestReviewService_SubmitReview_InvalidRating(t *testing.T) {
	repo := new(mockReviewRepo)
	escrows := new(mockEscrowRepo)
	svc := NewReviewService(repo, escrows)
	ctx := context.Background()

	for _, tc := range []struct{ client, freelancer int }{
		{0, 5}, {6, 5}, {5, 0}, {5, 6}, {-1, 3},
	} {
		_, err := svc.SubmitReview(ctx, SubmitReviewInput{
			EscrowID:         1,
			SubmitterID:      uuid.New(),
			ClientRating:     tc.client,
			FreelancerRating: tc.freelancer,
		})
		assert.ErrorIs(t, err, apperror.ErrInvalidRating)
	}
	repo.AssertNotCalled(t, "Create")
}

func TestReviewService_SubmitReview_ActiveEscrow(t *testing.T) {
	repo := new(mockReviewRepo)
	escrows := new(mockEscrowRepo)
	svc := NewReviewService(repo, escrows)
	ctx := context.Background()

	for _, status := range []string{models.EscrowStatusCreated, models.EscrowStatusSigned, models.EscrowStatusSubmitted} {
		escrow := finishedEscrow()
		escrow.Status = status
		escrows := new(mockEscrowRepo)
		escrows.On("GetByID", ctx, int64(1)).Return(escrow, nil)
		svc = NewReviewService(repo, escrows)

		_, err := svc.SubmitReview(ctx, SubmitReviewInput{
			EscrowID:         1,
			SubmitterID:      uuid.New(),
			ClientRating:     3,
			FreelancerRating: 3,
		})
		assert.ErrorIs(t, err, apperror.ErrEscrowActive, status)
	}
	repo.AssertNotCalled(t, "Create")
}

// Повторная подача отзыва тем же пользователем не ограничена: журнал
// отзывов только накапливается.
func TestReviewService_SubmitReview_DuplicatesAllowed(t *testing.T) {
	repo := new(mockReviewRepo)
	escrows := new(mockEscrowRepo)
	svc := NewReviewService(repo, escrows)
	ctx := context.Background()

	escrows.On("GetByID", ctx, int64(1)).Return(finishedEscrow(), nil)

	submitterID := uuid.New()
	repo.On("Create", ctx, mock.Anything).Return(&models.Review{EscrowID: 1, SubmitterID: submitterID}, nil).Times(2)

	in := SubmitReviewInput{EscrowID: 1, SubmitterID: submitterID, ClientRating: 4, FreelancerRating: 4}
	_, err := svc.SubmitReview(ctx, in)
	assert.NoError(t, err)
	_, err = svc.SubmitReview(ctx, in)
	assert.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestReviewService_GetReviewHistory(t *testing.T) {
	repo := new(mockReviewRepo)
	escrows := new(mockEscrowRepo)
	svc := NewReviewService(repo, escrows)
	ctx := context.Background()

	// Журнал возвращается в порядке добавления, который задаёт
	// монотонный id: совпадающие отметки времени порядок не меняют.
	createdAt := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	escrows.On("GetByID", ctx, int64(1)).Return(finishedEscrow(), nil)
	expected := []models.Review{
		{ID: 1, EscrowID: 1, CreatedAt: createdAt},
		{ID: 2, EscrowID: 1, CreatedAt: createdAt},
	}
	repo.On("ListByEscrowID", ctx, int64(1)).Return(expected, nil)

	reviews, err := svc.GetReviewHistory(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, expected, reviews)
	repo.AssertExpectations(t)
}

func TestReviewService_GetReviewHistory_EscrowNotFound(t *testing.T) {
	repo := new(mockReviewRepo)
	escrows := new(mockEscrowRepo)
	svc := NewReviewService(repo, escrows)
	ctx := context.Background()

	escrows.On("GetByID", ctx, int64(42)).Return(nil, apperror.ErrEscrowNotFound)

	_, err := svc.GetReviewHistory(ctx, 42)
	assert.ErrorIs(t, err, apperror.ErrEscrowNotFound)
	repo.AssertNotCalled(t, "ListByEscrowID")
}
