package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

type mockEscrowRepo struct {
	mock.Mock
}

func (m *mockEscrowRepo) Deposit(ctx context.Context, clientID, freelancerID uuid.UUID, amount int64, deadline, now time.Time) (*models.Escrow, error) {
	args := m.Called(ctx, clientID, freelancerID, amount, deadline, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) GetByID(ctx context.Context, id int64) (*models.Escrow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Escrow, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) Sign(ctx context.Context, id int64, caller uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, id, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) SubmitWork(ctx context.Context, id int64, caller uuid.UUID, now time.Time) (*models.Escrow, error) {
	args := m.Called(ctx, id, caller, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) ReleaseMilestone(ctx context.Context, id int64, caller uuid.UUID, amount int64) (*models.Escrow, error) {
	args := m.Called(ctx, id, caller, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) PartialRefund(ctx context.Context, id int64, caller uuid.UUID, amount int64, now time.Time) (*models.Escrow, error) {
	args := m.Called(ctx, id, caller, amount, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) ApproveWork(ctx context.Context, id int64, caller uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, id, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) Withdraw(ctx context.Context, id int64, caller uuid.UUID, now time.Time) (*models.Escrow, error) {
	args := m.Called(ctx, id, caller, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) AutoRelease(ctx context.Context, id int64, now time.Time) (*models.Escrow, error) {
	args := m.Called(ctx, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) CheckExpiry(ctx context.Context, id int64, now time.Time, expiryWindow time.Duration) (*models.Escrow, error) {
	args := m.Called(ctx, id, now, expiryWindow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) ExtendDeadline(ctx context.Context, id int64, caller uuid.UUID, extension time.Duration) (*models.Escrow, error) {
	args := m.Called(ctx, id, caller, extension)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newEscrowServiceForTest(repo *mockEscrowRepo) *EscrowService {
	svc := NewEscrowService(repo, 720*time.Hour)
	svc.SetNowFunc(func() time.Time { return testNow })
	return svc
}

func TestEscrowService_Deposit_Success(t *testing.T) {
	repo := new(mockEscrowRepo)
	svc := newEscrowServiceForTest(repo)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	deadline := testNow.Add(48 * time.Hour)

	expected := &models.Escrow{
		ID:           1,
		ClientID:     clientID,
		FreelancerID: freelancerID,
		Amount:       500,
		Status:       models.EscrowStatusCreated,
		Deadline:     deadline,
	}
	repo.On("Deposit", ctx, clientID, freelancerID, int64(500), deadline, testNow).Return(expected, nil)

	escrow, err := svc.Deposit(ctx, clientID, freelancerID, 500, 48*time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, expected, escrow)
	repo.AssertExpectations(t)
}

func TestEscrowService_Deposit_Validation(t *testing.T) {
	repo := new(mockEscrowRepo)
	svc := newEscrowServiceForTest(repo)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, uuid.New(), uuid.Nil, 500, time.Hour)
	assert.Error(t, err)

	_, err = svc.Deposit(ctx, uuid.New(), uuid.New(), 0, time.Hour)
	assert.ErrorIs(t, err, apperror.ErrInvalidAmount)

	_, err = svc.Deposit(ctx, uuid.New(), uuid.New(), -10, time.Hour)
	assert.ErrorIs(t, err, apperror.ErrInvalidAmount)

	_, err = svc.Deposit(ctx, uuid.New(), uuid.New(), 500, 0)
	assert.ErrorIs(t, err, apperror.ErrInvalidDuration)

	repo.AssertNotCalled(t, "Deposit")
}

// Клиент может назначить исполнителем самого себя: сервис это не запрещает.
func TestEscrowService_Deposit_SelfDeal(t *testing.T) {
	repo := new(mockEscrowRepo)
	svc := newEscrowServiceForTest(repo)
	ctx := context.Background()

	userID := uuid.New()
	deadline := testNow.Add(time.Hour)

	expected := &models.Escrow{ID: 2, ClientID: userID, FreelancerID: userID, Amount: 100}
	repo.On("Deposit", ctx, userID, userID, int64(100), deadline, testNow).Return(expected, nil)

	escrow, err := svc.Deposit(ctx, userID, userID, 100, time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, expected, escrow)
}

func TestEscrowService_ListEscrows_ClampsLimit(t *testing.T) {
	repo := new(mockEscrowRepo)
	svc := newEscrowServiceForTest(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("ListByParticipant", ctx, userID, 20, 0).Return([]models.Escrow{}, nil).Times(3)

	_, err := svc.ListEscrows(ctx, userID, 0, 0)
	assert.NoError(t, err)
	_, err = svc.ListEscrows(ctx, userID, 500, 0)
	assert.NoError(t, err)
	_, err = svc.ListEscrows(ctx, userID, 20, -5)
	assert.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestEscrowService_SubmitWork_PassesClock(t *testing.T) {
	repo := new(mockEscrowRepo)
	svc := newEscrowServiceForTest(repo)
	ctx := context.Background()

	freelancerID := uuid.New()
	expected := &models.Escrow{ID: 7, FreelancerID: freelancerID, Status: models.EscrowStatusSubmitted}
	repo.On("SubmitWork", ctx, int64(7), freelancerID, testNow).Return(expected, nil)

	escrow, err := svc.SubmitWork(ctx, 7, freelancerID)
	assert.NoError(t, err)
	assert.Equal(t, models.EscrowStatusSubmitted, escrow.Status)
	repo.AssertExpectations(t)
}

func TestEscrowService_ReleaseMilestone(t *testing.T) {
	repo := new(mockEscrowRepo)
	svc := newEscrowServiceForTest(repo)
	ctx := context.Background()

	clientID := uuid.New()
	expected := &models.Escrow{ID: 3, ClientID: clientID, Amount: 1000, ReleasedAmount: 300}
	repo.On("ReleaseMilestone", ctx, int64(3), clientID, int64(300)).Return(expected, nil)

	escrow, err := svc.ReleaseMilestone(ctx, 3, clientID, 300)
	assert.NoError(t, err)
	assert.Equal(t, int64(700), escrow.RemainingAmount())
	repo.AssertExpectations(t)
}

func TestEscrowService_ReleaseMilestone_RepoError(t *testing.T) {
	repo := new(mockEscrowRepo)
	svc := newEscrowServiceForTest(repo)
	ctx := context.Background()

	clientID := uuid.New()
	repo.On("ReleaseMilestone", ctx, int64(3), clientID, int64(9999)).Return(nil, apperror.ErrExceedsEscrowAmount)

	_, err := svc.ReleaseMilestone(ctx, 3, clientID, 9999)
	assert.ErrorIs(t, err, apperror.ErrExceedsEscrowAmount)
}

func TestEscrowService_AutoRelease_PassesClock(t *testing.T) {
	repo := new(mockEscrowRepo)
	svc := newEscrowServiceForTest(repo)
	ctx := context.Background()

	expected := &models.Escrow{ID: 5, Status: models.EscrowStatusAutoReleased}
	repo.On("AutoRelease", ctx, int64(5), testNow).Return(expected, nil)

	escrow, err := svc.AutoRelease(ctx, 5)
	assert.NoError(t, err)
	assert.Equal(t, models.EscrowStatusAutoReleased, escrow.Status)
	repo.AssertExpectations(t)
}

func TestEscrowService_CheckExpiry_PassesWindow(t *testing.T) {
	repo := new(mockEscrowRepo)
	svc := newEscrowServiceForTest(repo)
	ctx := context.Background()

	expected := &models.Escrow{ID: 6, Status: models.EscrowStatusExpired}
	repo.On("CheckExpiry", ctx, int64(6), testNow, 720*time.Hour).Return(expected, nil)

	escrow, err := svc.CheckExpiry(ctx, 6)
	assert.NoError(t, err)
	assert.Equal(t, models.EscrowStatusExpired, escrow.Status)
	repo.AssertExpectations(t)
}

func TestEscrowService_ExtendDeadline(t *testing.T) {
	repo := new(mockEscrowRepo)
	svc := newEscrowServiceForTest(repo)
	ctx := context.Background()

	clientID := uuid.New()
	expected := &models.Escrow{ID: 8, ClientID: clientID}
	repo.On("ExtendDeadline", ctx, int64(8), clientID, 24*time.Hour).Return(expected, nil)

	escrow, err := svc.ExtendDeadline(ctx, 8, clientID, 24*time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, expected, escrow)
	repo.AssertExpectations(t)
}
