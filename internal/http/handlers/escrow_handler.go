package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// EscrowHandler обслуживает маршруты эскроу-сделок.
type EscrowHandler struct {
	escrows *service.EscrowService
}

// NewEscrowHandler создаёт новый хэндлер.
func NewEscrowHandler(escrows *service.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrows: escrows}
}

// Deposit обрабатывает POST /escrows - создание сделки с депонированием средств.
func (h *EscrowHandler) Deposit(c *gin.Context) {
	clientID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateEscrowRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	freelancerID, err := req.ParseFreelancerID()
	if err != nil {
		common.RespondBadRequest(c, "неверный freelancer_id")
		return
	}

	escrow, err := h.escrows.Deposit(c.Request.Context(), clientID, freelancerID, req.Amount, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.EscrowResponse{Escrow: escrow})
}

// GetEscrow обрабатывает GET /escrows/:id.
func (h *EscrowHandler) GetEscrow(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.GetEscrow(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EscrowResponse{Escrow: escrow})
}

// ListEscrows обрабатывает GET /escrows - сделки текущего пользователя.
func (h *EscrowHandler) ListEscrows(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	escrows, err := h.escrows.ListEscrows(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EscrowListResponse{
		Escrows: escrows,
		Limit:   limit,
		Offset:  offset,
	})
}

// Sign обрабатывает POST /escrows/:id/sign - подпись сделки фрилансером.
func (h *EscrowHandler) Sign(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.Sign(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EscrowResponse{Escrow: escrow})
}

// SubmitWork обрабатывает POST /escrows/:id/submit - сдача работы фрилансером.
func (h *EscrowHandler) SubmitWork(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.SubmitWork(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EscrowResponse{Escrow: escrow})
}

// ReleaseMilestone обрабатывает POST /escrows/:id/milestones - частичная выплата фрилансеру.
func (h *EscrowHandler) ReleaseMilestone(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.MilestoneRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.ReleaseMilestone(c.Request.Context(), id, userID, req.Amount)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EscrowResponse{Escrow: escrow})
}

// PartialRefund обрабатывает POST /escrows/:id/refund - частичный возврат клиенту.
func (h *EscrowHandler) PartialRefund(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RefundRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.PartialRefund(c.Request.Context(), id, userID, req.Amount)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EscrowResponse{Escrow: escrow})
}

// ApproveWork обрабатывает POST /escrows/:id/approve - приёмка работы клиентом.
func (h *EscrowHandler) ApproveWork(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.ApproveWork(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EscrowResponse{Escrow: escrow})
}

// Withdraw обрабатывает POST /escrows/:id/withdraw - возврат депозита клиенту после дедлайна.
func (h *EscrowHandler) Withdraw(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.Withdraw(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EscrowResponse{Escrow: escrow})
}

// AutoRelease обрабатывает POST /escrows/:id/auto-release - выплата остатка фрилансеру
// после дедлайна. Вызвать может любой авторизованный пользователь.
func (h *EscrowHandler) AutoRelease(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.AutoRelease(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EscrowResponse{Escrow: escrow})
}

// CheckExpiry обрабатывает POST /escrows/:id/check-expiry - возврат всей суммы клиенту
// по истечении срока жизни сделки. Вызвать может любой авторизованный пользователь.
func (h *EscrowHandler) CheckExpiry(c *gin.Context) {
	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.CheckExpiry(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EscrowResponse{Escrow: escrow})
}

// ExtendDeadline обрабатывает POST /escrows/:id/extend - продление дедлайна клиентом.
func (h *EscrowHandler) ExtendDeadline(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseInt64Param(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ExtendDeadlineRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.ExtendDeadline(c.Request.Context(), id, userID, time.Duration(req.AdditionalSeconds)*time.Second)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EscrowResponse{Escrow: escrow})
}
