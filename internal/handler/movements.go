package handler

import (
	"net/http"

	"tillledger/internal/apierror"
	"tillledger/internal/dto"
	"tillledger/internal/middleware"
	"tillledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MovementHandler struct{ svc service.MovementService }

func NewMovementHandler(svc service.MovementService) *MovementHandler {
	return &MovementHandler{svc: svc}
}

// Record godoc
// @Summary Records a manual cash adjustment on a session
// @Tags movements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body dto.RecordMovementRequest true "Movement (CASH_IN or CASH_OUT)"
// @Success 201 {object} dto.MovementResponse
// @Failure 400 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/sessions/{id}/movements [post]
func (h *MovementHandler) Record(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session id"))
		return
	}
	var req dto.RecordMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	actorID, _ := uuid.Parse(claims.UserID)

	resp, err := h.svc.Record(c.Request.Context(), actorID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RecordTransaction godoc
// @Summary Ingests a cash transaction event from the order/payment flow
// @Tags movements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CashTransactionEvent true "Cash transaction (SALE or REFUND)"
// @Success 201 {object} dto.MovementResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/events/cash-transactions [post]
func (h *MovementHandler) RecordTransaction(c *gin.Context) {
	var ev dto.CashTransactionEvent
	if !bindAndValidate(c, &ev) {
		return
	}
	claims := middleware.GetClaims(c)
	actorID, _ := uuid.Parse(claims.UserID)

	resp, err := h.svc.RecordTransaction(c.Request.Context(), actorID, ev)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
