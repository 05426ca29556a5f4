package repository

import (
	"context"
	"time"

	"tillledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportRepository persists close-report delivery state.
type ReportRepository interface {
	Create(ctx context.Context, r *model.CloseReport) error
	FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.CloseReport, error)
	Update(ctx context.Context, r *model.CloseReport) error
	// ListDueRetries returns pending reports whose NextRetryAt has passed.
	ListDueRetries(ctx context.Context, now time.Time, limit int) ([]model.CloseReport, error)
}

type reportRepo struct{ db *gorm.DB }

func NewReportRepository(db *gorm.DB) ReportRepository { return &reportRepo{db: db} }

func (r *reportRepo) Create(ctx context.Context, rep *model.CloseReport) error {
	return r.db.WithContext(ctx).Create(rep).Error
}

func (r *reportRepo) FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.CloseReport, error) {
	var rep model.CloseReport
	if err := r.db.WithContext(ctx).First(&rep, "session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *reportRepo) Update(ctx context.Context, rep *model.CloseReport) error {
	return r.db.WithContext(ctx).Save(rep).Error
}

func (r *reportRepo) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]model.CloseReport, error) {
	var reports []model.CloseReport
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", model.ReportPending, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}
