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

// SessionService owns the session lifecycle up to (but not including)
// the terminal close, plus the history queries.
type SessionService interface {
	Open(ctx context.Context, actorID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error)
	// GetActive returns (nil, nil) when the counter has no open session.
	GetActive(ctx context.Context, counter string) (*dto.SessionResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error)
	List(ctx context.Context, filter dto.SessionFilter) (*dto.SessionListResponse, error)
}

type sessionService struct {
	repo   repository.SessionRepository
	audit  repository.AuditRepository
	locker Locker
}

func NewSessionService(repo repository.SessionRepository, audit repository.AuditRepository, locker Locker) SessionService {
	return &sessionService{repo: repo, audit: audit, locker: locker}
}

// ── Open ─────────────────────────────────────────────────────────────────────

// Open starts a session for today's business date. The duplicate-open
// guard runs under a per-(counter,date) lock; the partial unique index on
// open sessions backstops it at the DB level.
func (s *sessionService) Open(ctx context.Context, actorID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	if req.OpeningBalance.IsNegative() {
		return nil, apierror.Validation("opening balance must not be negative")
	}

	date := businessDate(time.Now())
	var sess *model.CashSession

	err := s.locker.WithLock(ctx, lockKeyCounter(req.Counter, date), func() error {
		existing, err := s.repo.FindOpenByCounterDate(ctx, req.Counter, date)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil {
			return apierror.Conflict(fmt.Sprintf("counter %s already has an open session for %s", req.Counter, date))
		}

		sess = &model.CashSession{
			Counter:        req.Counter,
			BusinessDate:   date,
			Status:         model.SessionOpen,
			OpeningBalance: req.OpeningBalance,
			OpenedByID:     actorID,
			OpenedAt:       time.Now().UTC(),
		}
		return s.repo.CreateSession(ctx, sess)
	})
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, actorID, "session.open", "cash_session", sess.ID.String(),
		fmt.Sprintf("counter=%s opening_balance=%s", sess.Counter, sess.OpeningBalance.StringFixed(2)))
	log.Info().
		Str("session_id", sess.ID.String()).
		Str("counter", sess.Counter).
		Str("business_date", sess.BusinessDate).
		Msg("cash session opened")

	return sessionToResponse(sess), nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *sessionService) GetActive(ctx context.Context, counter string) (*dto.SessionResponse, error) {
	sess, err := s.repo.FindOpenByCounter(ctx, counter)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sessionToResponse(sess), nil
}

func (s *sessionService) Get(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	sess, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("session not found")
	}
	if err != nil {
		return nil, err
	}
	return sessionToResponse(sess), nil
}

func (s *sessionService) List(ctx context.Context, filter dto.SessionFilter) (*dto.SessionListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	data := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		data = append(data, *sessionToResponse(&sessions[i]))
	}
	return &dto.SessionListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Lock keys ────────────────────────────────────────────────────────────────

func lockKeyCounter(counter, date string) string {
	return "counter:" + counter + ":" + date
}

func lockKeySession(id uuid.UUID) string {
	return "session:" + id.String()
}
