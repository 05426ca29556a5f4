package service

import (
	"context"
	"time"

	"tillledger/internal/dto"
	"tillledger/internal/model"
	"tillledger/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Locker serializes session state transitions across service instances.
// The infra package provides the Redis-backed implementation; tests plug
// in a pass-through.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func() error) error
}

// ReportEnqueuer hands closed sessions to the async report pipeline.
type ReportEnqueuer interface {
	EnqueueCloseReport(ctx context.Context, sessionID string) error
}

// businessDate is the calendar day a session belongs to, in UTC.
func businessDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// buildTotals derives the per-type breakdown and the expected balance.
// Missing types contribute zero.
func buildTotals(opening decimal.Decimal, sums map[string]decimal.Decimal) dto.SessionTotals {
	t := dto.SessionTotals{
		OpeningBalance: opening,
		CashSales:      sums[model.MovementSale],
		CashRefunds:    sums[model.MovementRefund],
		CashIn:         sums[model.MovementCashIn],
		CashOut:        sums[model.MovementCashOut],
	}
	t.ExpectedBalance = opening.
		Add(t.CashSales).
		Add(t.CashIn).
		Sub(t.CashRefunds).
		Sub(t.CashOut)
	return t
}

func sessionToResponse(s *model.CashSession) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		ID:              s.ID.String(),
		Counter:         s.Counter,
		BusinessDate:    s.BusinessDate,
		Status:          s.Status,
		OpeningBalance:  s.OpeningBalance,
		ExpectedBalance: s.ExpectedBalance,
		ClosingBalance:  s.ClosingBalance,
		Difference:      s.Difference,
		Notes:           s.Notes,
		OpenedBy:        s.OpenedByID.String(),
		OpenedAt:        s.OpenedAt.Format(time.RFC3339),
	}
	if s.ClosedByID != nil {
		cb := s.ClosedByID.String()
		resp.ClosedBy = &cb
	}
	if s.ClosedAt != nil {
		ca := s.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &ca
	}
	return resp
}

func movementToResponse(m model.CashMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:          m.ID.String(),
		Type:        m.Type,
		Amount:      m.Amount,
		Description: m.Description,
		Reference:   m.Reference,
		CreatedBy:   m.CreatedByID.String(),
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
}

// recordAudit appends an audit row. Best-effort: failures are logged,
// never propagated.
func recordAudit(ctx context.Context, repo repository.AuditRepository, actorID uuid.UUID, action, entityType, entityID, detail string) {
	if repo == nil {
		return
	}
	entry := &model.AuditLog{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
	}
	if err := repo.Create(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", action).Str("entity_id", entityID).Msg("audit write failed")
	}
}
