package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/escrow-backend/internal/http/middleware"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Init("error")
	os.Exit(m.Run())
}

type stubEscrowRepo struct {
	mock.Mock
}

func (m *stubEscrowRepo) Deposit(ctx context.Context, clientID, freelancerID uuid.UUID, amount int64, deadline, now time.Time) (*models.Escrow, error) {
	args := m.Called(ctx, clientID, freelancerID, amount, deadline, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *stubEscrowRepo) GetByID(ctx context.Context, id int64) (*models.Escrow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *stubEscrowRepo) ListByParticipant(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Escrow, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Escrow), args.Error(1)
}

func (m *stubEscrowRepo) Sign(ctx context.Context, id int64, caller uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, id, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *stubEscrowRepo) SubmitWork(ctx context.Context, id int64, caller uuid.UUID, now time.Time) (*models.Escrow, error) {
	args := m.Called(ctx, id, caller, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *stubEscrowRepo) ReleaseMilestone(ctx context.Context, id int64, caller uuid.UUID, amount int64) (*models.Escrow, error) {
	args := m.Called(ctx, id, caller, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *stubEscrowRepo) PartialRefund(ctx context.Context, id int64, caller uuid.UUID, amount int64, now time.Time) (*models.Escrow, error) {
	args := m.Called(ctx, id, caller, amount, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *stubEscrowRepo) ApproveWork(ctx context.Context, id int64, caller uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, id, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *stubEscrowRepo) Withdraw(ctx context.Context, id int64, caller uuid.UUID, now time.Time) (*models.Escrow, error) {
	args := m.Called(ctx, id, caller, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *stubEscrowRepo) AutoRelease(ctx context.Context, id int64, now time.Time) (*models.Escrow, error) {
	args := m.Called(ctx, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *stubEscrowRepo) CheckExpiry(ctx context.Context, id int64, now time.Time, expiryWindow time.Duration) (*models.Escrow, error) {
	args := m.Called(ctx, id, now, expiryWindow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *stubEscrowRepo) ExtendDeadline(ctx context.Context, id int64, caller uuid.UUID, extension time.Duration) (*models.Escrow, error) {
	args := m.Called(ctx, id, caller, extension)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

// injectUser подставляет userID в контекст вместо AuthMiddleware.
func injectUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, userID)
		c.Next()
	}
}

func newEscrowTestRouter(repo *stubEscrowRepo, userID uuid.UUID) *gin.Engine {
	svc := service.NewEscrowService(repo, 720*time.Hour)
	handler := NewEscrowHandler(svc)

	r := gin.New()
	r.Use(injectUser(userID))
	r.POST("/escrows", handler.Deposit)
	r.GET("/escrows/:id", handler.GetEscrow)
	r.POST("/escrows/:id/sign", handler.Sign)
	r.POST("/escrows/:id/milestones", handler.ReleaseMilestone)
	return r
}

func TestEscrowHandler_Deposit(t *testing.T) {
	repo := new(stubEscrowRepo)
	clientID := uuid.New()
	freelancerID := uuid.New()
	router := newEscrowTestRouter(repo, clientID)

	expected := &models.Escrow{
		ID:           1,
		ClientID:     clientID,
		FreelancerID: freelancerID,
		Amount:       500,
		Status:       models.EscrowStatusCreated,
	}
	repo.On("Deposit", mock.Anything, clientID, freelancerID, int64(500), mock.Anything, mock.Anything).Return(expected, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"freelancer_id":    freelancerID.String(),
		"amount":           500,
		"duration_seconds": 86400,
	})
	req := httptest.NewRequest(http.MethodPost, "/escrows", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Escrow models.Escrow `json:"escrow"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Escrow.ID)
	assert.Equal(t, models.EscrowStatusCreated, resp.Escrow.Status)
	repo.AssertExpectations(t)
}

func TestEscrowHandler_Deposit_BadFreelancerID(t *testing.T) {
	repo := new(stubEscrowRepo)
	router := newEscrowTestRouter(repo, uuid.New())

	body, _ := json.Marshal(map[string]interface{}{
		"freelancer_id":    "not-a-uuid",
		"amount":           500,
		"duration_seconds": 86400,
	})
	req := httptest.NewRequest(http.MethodPost, "/escrows", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "Deposit")
}

func TestEscrowHandler_GetEscrow_NotFound(t *testing.T) {
	repo := new(stubEscrowRepo)
	router := newEscrowTestRouter(repo, uuid.New())

	repo.On("GetByID", mock.Anything, int64(99)).Return(nil, apperror.ErrEscrowNotFound)

	req := httptest.NewRequest(http.MethodGet, "/escrows/99", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp["code"])
}

func TestEscrowHandler_GetEscrow_BadID(t *testing.T) {
	repo := new(stubEscrowRepo)
	router := newEscrowTestRouter(repo, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/escrows/abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "GetByID")
}

func TestEscrowHandler_Sign_Forbidden(t *testing.T) {
	repo := new(stubEscrowRepo)
	userID := uuid.New()
	router := newEscrowTestRouter(repo, userID)

	repo.On("Sign", mock.Anything, int64(5), userID).Return(nil, apperror.ErrNotParticipant)

	req := httptest.NewRequest(http.MethodPost, "/escrows/5/sign", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEscrowHandler_ReleaseMilestone(t *testing.T) {
	repo := new(stubEscrowRepo)
	clientID := uuid.New()
	router := newEscrowTestRouter(repo, clientID)

	expected := &models.Escrow{ID: 3, ClientID: clientID, Amount: 1000, ReleasedAmount: 250, Status: models.EscrowStatusSigned}
	repo.On("ReleaseMilestone", mock.Anything, int64(3), clientID, int64(250)).Return(expected, nil)

	body, _ := json.Marshal(map[string]interface{}{"amount": 250})
	req := httptest.NewRequest(http.MethodPost, "/escrows/3/milestones", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Escrow models.Escrow `json:"escrow"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(250), resp.Escrow.ReleasedAmount)
	repo.AssertExpectations(t)
}
