package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tillledger/internal/apierror"
	"tillledger/internal/dto"
	"tillledger/internal/model"
	"tillledger/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ReconciliationService computes session summaries and performs the
// terminal close against a blind cash count.
type ReconciliationService interface {
	Summary(ctx context.Context, id uuid.UUID) (*dto.SessionSummaryResponse, error)
	Close(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req dto.CloseSessionRequest) (*dto.CloseSessionResponse, error)
}

type reconciliationService struct {
	repo     repository.SessionRepository
	audit    repository.AuditRepository
	locker   Locker
	enqueuer ReportEnqueuer // nil disables async close reports
}

func NewReconciliationService(repo repository.SessionRepository, audit repository.AuditRepository, locker Locker, enqueuer ReportEnqueuer) ReconciliationService {
	return &reconciliationService{repo: repo, audit: audit, locker: locker, enqueuer: enqueuer}
}

// ── Summary ──────────────────────────────────────────────────────────────────

// Summary is a pure read: it derives totals from the ledger and never
// mutates the session, so it is safe on open and closed sessions alike.
func (s *reconciliationService) Summary(ctx context.Context, id uuid.UUID) (*dto.SessionSummaryResponse, error) {
	sess, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("session not found")
	}
	if err != nil {
		return nil, err
	}

	sums, err := s.repo.SumMovementsByType(ctx, id)
	if err != nil {
		return nil, err
	}
	movements, err := s.repo.ListMovements(ctx, id)
	if err != nil {
		return nil, err
	}

	transactions := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		transactions = append(transactions, movementToResponse(m))
	}

	return &dto.SessionSummaryResponse{
		SessionID:    sess.ID.String(),
		Counter:      sess.Counter,
		BusinessDate: sess.BusinessDate,
		Status:       sess.Status,
		Totals:       buildTotals(sess.OpeningBalance, sums),
		Transactions: transactions,
	}, nil
}

// ── Close ────────────────────────────────────────────────────────────────────

// Close freezes the session: expected balance is computed from the
// ledger, the difference against the counted cash is stored, and the
// status flips to closed exactly once. The session lock serializes
// against concurrent movements; the conditional update in the repo
// guarantees a single winner between concurrent closes.
func (s *reconciliationService) Close(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req dto.CloseSessionRequest) (*dto.CloseSessionResponse, error) {
	if req.CountedCash.IsNegative() {
		return nil, apierror.Validation("counted cash must not be negative")
	}

	var (
		sess   *model.CashSession
		totals dto.SessionTotals
	)
	err := s.locker.WithLock(ctx, lockKeySession(id), func() error {
		var err error
		sess, err = s.repo.FindByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("session not found")
		}
		if err != nil {
			return err
		}
		if sess.Status != model.SessionOpen {
			return apierror.InvalidState("session is already closed")
		}

		sums, err := s.repo.SumMovementsByType(ctx, id)
		if err != nil {
			return err
		}
		totals = buildTotals(sess.OpeningBalance, sums)

		expected := totals.ExpectedBalance
		counted := req.CountedCash
		difference := counted.Sub(expected)
		now := time.Now().UTC()

		sess.Status = model.SessionClosed
		sess.ExpectedBalance = &expected
		sess.ClosingBalance = &counted
		sess.Difference = &difference
		sess.Notes = req.Notes
		sess.ClosedByID = &actorID
		sess.ClosedAt = &now

		ok, err := s.repo.CloseSession(ctx, sess)
		if err != nil {
			return err
		}
		if !ok {
			return apierror.InvalidState("session is already closed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, actorID, "session.close", "cash_session", sess.ID.String(),
		fmt.Sprintf("expected=%s counted=%s difference=%s",
			sess.ExpectedBalance.StringFixed(2), sess.ClosingBalance.StringFixed(2), sess.Difference.StringFixed(2)))
	log.Info().
		Str("session_id", sess.ID.String()).
		Str("counter", sess.Counter).
		Str("difference", sess.Difference.StringFixed(2)).
		Msg("cash session closed")

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueCloseReport(ctx, sess.ID.String()); err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("failed to enqueue close report")
		}
	}

	return &dto.CloseSessionResponse{Session: *sessionToResponse(sess), Totals: totals}, nil
}
