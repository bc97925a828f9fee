package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/dto"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers/common"
	"github.com/ignatzorin/escrow-backend/internal/service"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

// ReviewHandler обслуживает маршруты отзывов по завершённым сделкам.
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler создаёт новый хэндлер.
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// SubmitReview обрабатывает POST /escrows/:id/reviews.
func (h *ReviewHandler) SubmitReview(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	escrowID, err := common.ParseInt64Param(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SubmitReviewRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := validation.ValidateFeedback(req.ClientFeedback); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidateFeedback(req.FreelancerFeedback); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	review, err := h.reviews.SubmitReview(c.Request.Context(), service.SubmitReviewInput{
		EscrowID:           escrowID,
		SubmitterID:        userID,
		ClientRating:       req.ClientRating,
		FreelancerRating:   req.FreelancerRating,
		ClientFeedback:     req.ClientFeedback,
		FreelancerFeedback: req.FreelancerFeedback,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

// GetReviewHistory обрабатывает GET /escrows/:id/reviews - вся история отзывов по сделке.
func (h *ReviewHandler) GetReviewHistory(c *gin.Context) {
	escrowID, err := common.ParseInt64Param(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	reviews, err := h.reviews.GetReviewHistory(c.Request.Context(), escrowID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ReviewListResponse{Reviews: reviews})
}

// ListMyReviews обрабатывает GET /reviews - отзывы, оставленные текущим пользователем.
func (h *ReviewHandler) ListMyReviews(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	reviews, err := h.reviews.ListBySubmitter(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ReviewListResponse{Reviews: reviews})
}
