package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

type mockDisputeRepo struct {
	mock.Mock
}

func (m *mockDisputeRepo) Open(ctx context.Context, escrowID int64, initiatorID uuid.UUID, reason string, fee int64) (*models.Dispute, error) {
	args := m.Called(ctx, escrowID, initiatorID, reason, fee)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) Vote(ctx context.Context, escrowID int64, voterID uuid.UUID, supportsClient bool) (*models.DisputeTally, error) {
	args := m.Called(ctx, escrowID, voterID, supportsClient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DisputeTally), args.Error(1)
}

func (m *mockDisputeRepo) Resolve(ctx context.Context, escrowID int64, minVotes int, now time.Time) (*models.Dispute, error) {
	args := m.Called(ctx, escrowID, minVotes, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) GetByEscrowID(ctx context.Context, escrowID int64) (*models.Dispute, error) {
	args := m.Called(ctx, escrowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) GetTally(ctx context.Context, escrowID int64) (*models.DisputeTally, error) {
	args := m.Called(ctx, escrowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DisputeTally), args.Error(1)
}

func (m *mockDisputeRepo) SetEvidence(ctx context.Context, escrowID int64, url string) (*models.Dispute, error) {
	args := m.Called(ctx, escrowID, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

type mockEvidenceStorage struct {
	mock.Mock
}

func (m *mockEvidenceStorage) Save(ctx context.Context, userID uuid.UUID, originalName string, r io.Reader) (string, int64, error) {
	args := m.Called(ctx, userID, originalName, r)
	return args.String(0), args.Get(1).(int64), args.Error(2)
}

func (m *mockEvidenceStorage) Delete(ctx context.Context, relativePath string) error {
	args := m.Called(ctx, relativePath)
	return args.Error(0)
}

func newDisputeServiceForTest(repo *mockDisputeRepo, escrows *mockEscrowRepo, arbiterID uuid.UUID) *DisputeService {
	svc := NewDisputeService(repo, escrows, 50, 3, arbiterID)
	svc.SetNowFunc(func() time.Time { return testNow })
	return svc
}

func TestDisputeService_OpenDispute_Success(t *testing.T) {
	repo := new(mockDisputeRepo)
	escrows := new(mockEscrowRepo)
	svc := newDisputeServiceForTest(repo, escrows, uuid.New())
	ctx := context.Background()

	initiatorID := uuid.New()
	expected := &models.Dispute{EscrowID: 1, InitiatorID: initiatorID, Status: models.DisputeStatusOpen}
	repo.On("Open", ctx, int64(1), initiatorID, "работа не сдана", int64(50)).Return(expected, nil)
	escrows.On("GetByID", ctx, int64(1)).Return(&models.Escrow{ID: 1}, nil).Maybe()

	dispute, err := svc.OpenDispute(ctx, 1, initiatorID, "  работа не сдана  ")
	assert.NoError(t, err)
	assert.Equal(t, expected, dispute)
	repo.AssertExpectations(t)
}

func TestDisputeService_OpenDispute_EmptyReason(t *testing.T) {
	repo := new(mockDisputeRepo)
	escrows := new(mockEscrowRepo)
	svc := newDisputeServiceForTest(repo, escrows, uuid.New())

	_, err := svc.OpenDispute(context.Background(), 1, uuid.New(), "   ")
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Open")
}

func TestDisputeService_Vote(t *testing.T) {
	repo := new(mockDisputeRepo)
	escrows := new(mockEscrowRepo)
	svc := newDisputeServiceForTest(repo, escrows, uuid.New())
	ctx := context.Background()

	voterID := uuid.New()
	expected := &models.DisputeTally{EscrowID: 1, VotesForClient: 1}
	repo.On("Vote", ctx, int64(1), voterID, true).Return(expected, nil)

	tally, err := svc.Vote(ctx, 1, voterID, true)
	assert.NoError(t, err)
	assert.Equal(t, 1, tally.VotesForClient)
	repo.AssertExpectations(t)
}

func TestDisputeService_Vote_AlreadyVoted(t *testing.T) {
	repo := new(mockDisputeRepo)
	escrows := new(mockEscrowRepo)
	svc := newDisputeServiceForTest(repo, escrows, uuid.New())
	ctx := context.Background()

	voterID := uuid.New()
	repo.On("Vote", ctx, int64(1), voterID, false).Return(nil, apperror.ErrAlreadyVoted)

	_, err := svc.Vote(ctx, 1, voterID, false)
	assert.ErrorIs(t, err, apperror.ErrAlreadyVoted)
}

func TestDisputeService_Resolve_OnlyArbiter(t *testing.T) {
	repo := new(mockDisputeRepo)
	escrows := new(mockEscrowRepo)
	arbiterID := uuid.New()
	svc := newDisputeServiceForTest(repo, escrows, arbiterID)

	_, err := svc.Resolve(context.Background(), 1, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotArbiter)
	repo.AssertNotCalled(t, "Resolve")
}

func TestDisputeService_Resolve_Success(t *testing.T) {
	repo := new(mockDisputeRepo)
	escrows := new(mockEscrowRepo)
	arbiterID := uuid.New()
	svc := newDisputeServiceForTest(repo, escrows, arbiterID)
	ctx := context.Background()

	winner := models.DisputeSideClient
	expected := &models.Dispute{EscrowID: 1, Status: models.DisputeStatusResolved, Winner: &winner}
	repo.On("Resolve", ctx, int64(1), 3, testNow).Return(expected, nil)
	escrows.On("GetByID", ctx, int64(1)).Return(&models.Escrow{ID: 1}, nil).Maybe()

	dispute, err := svc.Resolve(ctx, 1, arbiterID)
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolved, dispute.Status)
	repo.AssertExpectations(t)
}

func TestDisputeService_Resolve_QuorumNotReached(t *testing.T) {
	repo := new(mockDisputeRepo)
	escrows := new(mockEscrowRepo)
	arbiterID := uuid.New()
	svc := newDisputeServiceForTest(repo, escrows, arbiterID)
	ctx := context.Background()

	repo.On("Resolve", ctx, int64(1), 3, testNow).Return(nil, apperror.ErrQuorumNotReached)

	_, err := svc.Resolve(ctx, 1, arbiterID)
	assert.ErrorIs(t, err, apperror.ErrQuorumNotReached)
}

func TestDisputeService_AttachEvidence_OnlyParticipant(t *testing.T) {
	repo := new(mockDisputeRepo)
	escrows := new(mockEscrowRepo)
	svc := newDisputeServiceForTest(repo, escrows, uuid.New())
	svc.SetStorage(new(mockEvidenceStorage))
	ctx := context.Background()

	escrow := &models.Escrow{ID: 1, ClientID: uuid.New(), FreelancerID: uuid.New()}
	escrows.On("GetByID", ctx, int64(1)).Return(escrow, nil)

	_, err := svc.AttachEvidence(ctx, 1, uuid.New(), "file.png", strings.NewReader("data"))
	assert.ErrorIs(t, err, apperror.ErrNotParticipant)
	repo.AssertNotCalled(t, "SetEvidence")
}

func TestDisputeService_AttachEvidence_Success(t *testing.T) {
	repo := new(mockDisputeRepo)
	escrows := new(mockEscrowRepo)
	storage := new(mockEvidenceStorage)
	svc := newDisputeServiceForTest(repo, escrows, uuid.New())
	svc.SetStorage(storage)
	ctx := context.Background()

	escrow := &models.Escrow{ID: 1, ClientID: uuid.New(), FreelancerID: uuid.New()}
	escrows.On("GetByID", ctx, int64(1)).Return(escrow, nil)
	repo.On("GetByEscrowID", ctx, int64(1)).Return(&models.Dispute{EscrowID: 1}, nil)

	reader := strings.NewReader("data")
	storage.On("Save", ctx, escrow.ClientID, "file.png", reader).Return("evidence/file.png", int64(4), nil)

	url := "evidence/file.png"
	expected := &models.Dispute{EscrowID: 1, EvidenceURL: &url}
	repo.On("SetEvidence", ctx, int64(1), "evidence/file.png").Return(expected, nil)

	dispute, err := svc.AttachEvidence(ctx, 1, escrow.ClientID, "file.png", reader)
	assert.NoError(t, err)
	assert.Equal(t, "evidence/file.png", *dispute.EvidenceURL)
	repo.AssertExpectations(t)
	storage.AssertExpectations(t)
	storage.AssertNotCalled(t, "Delete")
}

func TestDisputeService_AttachEvidence_ReplacesPrevious(t *testing.T) {
	repo := new(mockDisputeRepo)
	escrows := new(mockEscrowRepo)
	storage := new(mockEvidenceStorage)
	svc := newDisputeServiceForTest(repo, escrows, uuid.New())
	svc.SetStorage(storage)
	ctx := context.Background()

	escrow := &models.Escrow{ID: 1, ClientID: uuid.New(), FreelancerID: uuid.New()}
	escrows.On("GetByID", ctx, int64(1)).Return(escrow, nil)

	oldURL := "evidence/old.png"
	repo.On("GetByEscrowID", ctx, int64(1)).Return(&models.Dispute{EscrowID: 1, EvidenceURL: &oldURL}, nil)

	reader := strings.NewReader("data")
	storage.On("Save", ctx, escrow.ClientID, "new.png", reader).Return("evidence/new.png", int64(4), nil)

	newURL := "evidence/new.png"
	repo.On("SetEvidence", ctx, int64(1), "evidence/new.png").Return(&models.Dispute{EscrowID: 1, EvidenceURL: &newURL}, nil)
	storage.On("Delete", ctx, "evidence/old.png").Return(nil)

	dispute, err := svc.AttachEvidence(ctx, 1, escrow.ClientID, "new.png", reader)
	assert.NoError(t, err)
	assert.Equal(t, "evidence/new.png", *dispute.EvidenceURL)
	repo.AssertExpectations(t)
	storage.AssertExpectations(t)
}
