package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tillledger/internal/apierror"
	"tillledger/internal/dto"
	"tillledger/internal/model"
	"tillledger/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovementService appends entries to the session ledger. Operator
// adjustments (CASH_IN/CASH_OUT) address a session directly; cash
// transaction events (SALE/REFUND) resolve the counter's active session.
type MovementService interface {
	Record(ctx context.Context, actorID uuid.UUID, sessionID uuid.UUID, req dto.RecordMovementRequest) (*dto.MovementResponse, error)
	RecordTransaction(ctx context.Context, actorID uuid.UUID, ev dto.CashTransactionEvent) (*dto.MovementResponse, error)
}

type movementService struct {
	repo   repository.SessionRepository
	audit  repository.AuditRepository
	locker Locker
}

func NewMovementService(repo repository.SessionRepository, audit repository.AuditRepository, locker Locker) MovementService {
	return &movementService{repo: repo, audit: audit, locker: locker}
}

func (s *movementService) Record(ctx context.Context, actorID uuid.UUID, sessionID uuid.UUID, req dto.RecordMovementRequest) (*dto.MovementResponse, error) {
	if req.Type != model.MovementCashIn && req.Type != model.MovementCashOut {
		return nil, apierror.Validationf("movement type %q is not operator-recordable", req.Type)
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, apierror.Validation("description is required for cash adjustments")
	}
	return s.append(ctx, actorID, sessionID, req.Type, req.Amount, req.Description, req.Reference)
}

func (s *movementService) RecordTransaction(ctx context.Context, actorID uuid.UUID, ev dto.CashTransactionEvent) (*dto.MovementResponse, error) {
	sess, err := s.repo.FindOpenByCounter(ctx, ev.Counter)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.InvalidState(fmt.Sprintf("counter %s has no open session to receive cash transactions", ev.Counter))
	}
	if err != nil {
		return nil, err
	}

	description := defaultTransactionDescription(ev)
	return s.append(ctx, actorID, sess.ID, ev.Type, ev.Amount, description, &ev.Reference)
}

// append runs the shared precondition checks and writes the movement
// under the session lock, so a concurrent close cannot slip a movement
// into an already-closed session.
func (s *movementService) append(ctx context.Context, actorID uuid.UUID, sessionID uuid.UUID, movType string, amount decimal.Decimal, description string, reference *string) (*dto.MovementResponse, error) {
	if !amount.IsPositive() {
		return nil, apierror.Validation("amount must be greater than zero")
	}

	var movement *model.CashMovement
	err := s.locker.WithLock(ctx, lockKeySession(sessionID), func() error {
		sess, err := s.repo.FindByID(ctx, sessionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("session not found")
		}
		if err != nil {
			return err
		}
		if sess.Status != model.SessionOpen {
			return apierror.InvalidState("movements cannot be recorded on a closed session")
		}

		movement = &model.CashMovement{
			SessionID:   sessionID,
			Type:        movType,
			Amount:      amount,
			Description: description,
			Reference:   reference,
			CreatedByID: actorID,
			CreatedAt:   time.Now().UTC(),
		}
		return s.repo.CreateMovement(ctx, movement)
	})
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, actorID, "movement.record", "cash_session", sessionID.String(),
		fmt.Sprintf("type=%s amount=%s", movType, amount.StringFixed(2)))
	log.Info().
		Str("session_id", sessionID.String()).
		Str("type", movType).
		Str("amount", amount.StringFixed(2)).
		Msg("movement recorded")

	resp := movementToResponse(*movement)
	return &resp, nil
}

func defaultTransactionDescription(ev dto.CashTransactionEvent) string {
	if ev.Description != nil && strings.TrimSpace(*ev.Description) != "" {
		return *ev.Description
	}
	if ev.Type == model.MovementRefund {
		return "Cash refund " + ev.Reference
	}
	return "Cash sale " + ev.Reference
}
