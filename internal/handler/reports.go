package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"tillledger/internal/apierror"
	"tillledger/internal/dto"
	"tillledger/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportHandler serves stored close reports and the audit trail.
// Reads only, so it sits directly on the repositories.
type ReportHandler struct {
	reports repository.ReportRepository
	audit   repository.AuditRepository
}

func NewReportHandler(reports repository.ReportRepository, audit repository.AuditRepository) *ReportHandler {
	return &ReportHandler{reports: reports, audit: audit}
}

// Download godoc
// @Summary Downloads the reconciliation report PDF for a closed session
// @Tags reports
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {file} file
// @Failure 404 {object} apierror.APIError
// @Router /v1/sessions/{id}/report [get]
func (h *ReportHandler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session id"))
		return
	}
	report, err := h.reports.FindBySessionID(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, apierror.New("no report exists for this session"))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if report.PDFPath == nil {
		c.JSON(http.StatusNotFound, apierror.New("report not generated yet, retry shortly"))
		return
	}
	c.FileAttachment(*report.PDFPath, fmt.Sprintf("session_%s.pdf", id.String()))
}

func (h *ReportHandler) AuditTrail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session id"))
		return
	}
	entries, err := h.audit.ListByEntity(c.Request.Context(), "cash_session", id.String(), 100)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, dto.AuditEntryResponse{
			ID:        e.ID.String(),
			ActorID:   e.ActorID.String(),
			Action:    e.Action,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
