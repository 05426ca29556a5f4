package repository

import (
	"context"

	"tillledger/internal/dto"
	"tillledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SessionRepository persists cash sessions and their movement ledger.
type SessionRepository interface {
	CreateSession(ctx context.Context, s *model.CashSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error)
	FindOpenByCounterDate(ctx context.Context, counter, businessDate string) (*model.CashSession, error)
	FindOpenByCounter(ctx context.Context, counter string) (*model.CashSession, error)
	List(ctx context.Context, filter dto.SessionFilter) ([]model.CashSession, int64, error)
	// CloseSession applies the terminal transition with a conditional
	// update. Returns false when the session was not open anymore.
	CloseSession(ctx context.Context, s *model.CashSession) (bool, error)

	CreateMovement(ctx context.Context, m *model.CashMovement) error
	ListMovements(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error)
	SumMovementsByType(ctx context.Context, sessionID uuid.UUID) (map[string]decimal.Decimal, error)
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) CreateSession(ctx context.Context, s *model.CashSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) FindOpenByCounterDate(ctx context.Context, counter, businessDate string) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Where("counter = ? AND business_date = ? AND status = ?", counter, businessDate, model.SessionOpen).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) FindOpenByCounter(ctx context.Context, counter string) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Where("counter = ? AND status = ?", counter, model.SessionOpen).
		Order("opened_at DESC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) List(ctx context.Context, filter dto.SessionFilter) ([]model.CashSession, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.CashSession{})
	if filter.Counter != "" {
		q = q.Where("counter = ?", filter.Counter)
	}
	if filter.From != "" {
		q = q.Where("business_date >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("business_date <= ?", filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []model.CashSession
	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("opened_at DESC").Offset(offset).Limit(filter.Limit).Find(&sessions).Error
	return sessions, total, err
}

// CloseSession guards the terminal transition at the DB level: the update
// only lands while status is still open, so two concurrent closes cannot
// both succeed.
func (r *sessionRepo) CloseSession(ctx context.Context, s *model.CashSession) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.CashSession{}).
		Where("id = ? AND status = ?", s.ID, model.SessionOpen).
		Updates(map[string]interface{}{
			"status":           model.SessionClosed,
			"expected_balance": s.ExpectedBalance,
			"closing_balance":  s.ClosingBalance,
			"difference":       s.Difference,
			"notes":            s.Notes,
			"closed_by_id":     s.ClosedByID,
			"closed_at":        s.ClosedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *sessionRepo) CreateMovement(ctx context.Context, m *model.CashMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *sessionRepo) ListMovements(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	var movements []model.CashMovement
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&movements).Error
	return movements, err
}

func (r *sessionRepo) SumMovementsByType(ctx context.Context, sessionID uuid.UUID) (map[string]decimal.Decimal, error) {
	var rows []struct {
		Type  string
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&model.CashMovement{}).
		Select("type, COALESCE(SUM(amount), 0) AS total").
		Where("session_id = ?", sessionID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.Type] = row.Total
	}
	return sums, nil
}
