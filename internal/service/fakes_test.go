package service_test

import (
	"context"
	"sync"
	"time"

	"tillledger/internal/dto"
	"tillledger/internal/model"
	"tillledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory SessionRepository ──────────────────────────────────────────────

type memSessionRepo struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*model.CashSession
	movements []model.CashMovement
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[uuid.UUID]*model.CashSession)}
}

func (r *memSessionRepo) CreateSession(_ context.Context, s *model.CashSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	clone := *s
	r.sessions[s.ID] = &clone
	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CashSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *memSessionRepo) FindOpenByCounterDate(_ context.Context, counter, businessDate string) (*model.CashSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.Counter == counter && s.BusinessDate == businessDate && s.Status == model.SessionOpen {
			clone := *s
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memSessionRepo) FindOpenByCounter(_ context.Context, counter string) (*model.CashSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.Counter == counter && s.Status == model.SessionOpen {
			clone := *s
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memSessionRepo) List(_ context.Context, filter dto.SessionFilter) ([]model.CashSession, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.CashSession
	for _, s := range r.sessions {
		if filter.Counter != "" && s.Counter != filter.Counter {
			continue
		}
		if filter.From != "" && s.BusinessDate < filter.From {
			continue
		}
		if filter.To != "" && s.BusinessDate > filter.To {
			continue
		}
		all = append(all, *s)
	}
	// newest first
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].OpenedAt.After(all[i].OpenedAt) {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	total := int64(len(all))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// CloseSession mirrors the conditional UPDATE: only an open row flips.
func (r *memSessionRepo) CloseSession(_ context.Context, s *model.CashSession) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[s.ID]
	if !ok || stored.Status != model.SessionOpen {
		return false, nil
	}
	stored.Status = model.SessionClosed
	stored.ExpectedBalance = s.ExpectedBalance
	stored.ClosingBalance = s.ClosingBalance
	stored.Difference = s.Difference
	stored.Notes = s.Notes
	stored.ClosedByID = s.ClosedByID
	stored.ClosedAt = s.ClosedAt
	return true, nil
}

func (r *memSessionRepo) CreateMovement(_ context.Context, m *model.CashMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.movements = append(r.movements, *m)
	return nil
}

func (r *memSessionRepo) ListMovements(_ context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.CashMovement
	for _, m := range r.movements {
		if m.SessionID == sessionID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *memSessionRepo) SumMovementsByType(_ context.Context, sessionID uuid.UUID) (map[string]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sums := make(map[string]decimal.Decimal)
	for _, m := range r.movements {
		if m.SessionID == sessionID {
			sums[m.Type] = sums[m.Type].Add(m.Amount)
		}
	}
	return sums, nil
}

var _ repository.SessionRepository = (*memSessionRepo)(nil)

// ── In-memory AuditRepository ────────────────────────────────────────────────

type memAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (r *memAuditRepo) Create(_ context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memAuditRepo) ListByEntity(_ context.Context, entityType, entityID string, limit int) ([]model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.AuditLog
	for _, e := range r.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			result = append(result, e)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

var _ repository.AuditRepository = (*memAuditRepo)(nil)

// ── Locker fakes ─────────────────────────────────────────────────────────────

// passLocker runs fn directly; lock behavior is covered by integration tests.
type passLocker struct {
	keys []string
}

func (l *passLocker) WithLock(_ context.Context, key string, fn func() error) error {
	l.keys = append(l.keys, key)
	return fn()
}

// ── Report enqueuer fake ─────────────────────────────────────────────────────

type captureEnqueuer struct {
	sessionIDs []string
}

func (e *captureEnqueuer) EnqueueCloseReport(_ context.Context, sessionID string) error {
	e.sessionIDs = append(e.sessionIDs, sessionID)
	return nil
}
