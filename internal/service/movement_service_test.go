package service_test

import (
	"context"
	"testing"

	"tillledger/internal/apierror"
	"tillledger/internal/dto"
	"tillledger/internal/model"
	"tillledger/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMovementSvc() (service.MovementService, *memSessionRepo, *memAuditRepo) {
	repo := newMemSessionRepo()
	audit := &memAuditRepo{}
	return service.NewMovementService(repo, audit, &passLocker{}), repo, audit
}

func openTestSession(t *testing.T, repo *memSessionRepo, counter string, opening float64) *model.CashSession {
	t.Helper()
	sess := &model.CashSession{
		Counter:        counter,
		BusinessDate:   "2026-08-31",
		Status:         model.SessionOpen,
		OpeningBalance: decimal.NewFromFloat(opening),
		OpenedByID:     uuid.New(),
	}
	require.NoError(t, repo.CreateSession(context.Background(), sess))
	return sess
}

func TestRecordCashIn(t *testing.T) {
	svc, repo, audit := newMovementSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 100)

	resp, err := svc.Record(context.Background(), uuid.New(), sess.ID, dto.RecordMovementRequest{
		Type:        model.MovementCashIn,
		Amount:      decimal.NewFromFloat(25.50),
		Description: "change float top-up",
	})

	require.NoError(t, err)
	assert.Equal(t, model.MovementCashIn, resp.Type)
	assert.Equal(t, "25.5", resp.Amount.String())

	stored, err := repo.ListMovements(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "movement.record", audit.entries[0].Action)
}

func TestRecordCashOut(t *testing.T) {
	svc, repo, _ := newMovementSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 100)

	resp, err := svc.Record(context.Background(), uuid.New(), sess.ID, dto.RecordMovementRequest{
		Type:        model.MovementCashOut,
		Amount:      decimal.NewFromFloat(40),
		Description: "bank deposit pickup",
	})
	require.NoError(t, err)
	assert.Equal(t, model.MovementCashOut, resp.Type)
	// stored positive, sign is derived from the type
	assert.True(t, resp.Amount.IsPositive())
}

func TestRecordRejectsSaleType(t *testing.T) {
	svc, repo, _ := newMovementSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 100)

	for _, typ := range []string{model.MovementSale, model.MovementRefund, "BOGUS"} {
		_, err := svc.Record(context.Background(), uuid.New(), sess.ID, dto.RecordMovementRequest{
			Type:        typ,
			Amount:      decimal.NewFromFloat(10),
			Description: "should not pass",
		})
		require.Error(t, err, typ)
		assert.True(t, apierror.IsKind(err, apierror.KindValidation), typ)
	}
}

func TestRecordRejectsNonPositiveAmount(t *testing.T) {
	svc, repo, _ := newMovementSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 100)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromFloat(-5)} {
		_, err := svc.Record(context.Background(), uuid.New(), sess.ID, dto.RecordMovementRequest{
			Type:        model.MovementCashIn,
			Amount:      amount,
			Description: "bad amount",
		})
		require.Error(t, err)
		assert.True(t, apierror.IsKind(err, apierror.KindValidation))
	}
}

func TestRecordRejectsBlankDescription(t *testing.T) {
	svc, repo, _ := newMovementSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 100)

	_, err := svc.Record(context.Background(), uuid.New(), sess.ID, dto.RecordMovementRequest{
		Type:        model.MovementCashOut,
		Amount:      decimal.NewFromFloat(10),
		Description: "   ",
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestRecordOnClosedSession(t *testing.T) {
	svc, repo, _ := newMovementSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 100)
	sess.Status = model.SessionClosed
	closing := decimal.NewFromFloat(100)
	sess.ClosingBalance = &closing
	_, err := repo.CloseSession(context.Background(), sess)
	require.NoError(t, err)
	// flip the stored row to closed via the conditional update path
	stored, err := repo.FindByID(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, model.SessionClosed, stored.Status)

	_, err = svc.Record(context.Background(), uuid.New(), sess.ID, dto.RecordMovementRequest{
		Type:        model.MovementCashIn,
		Amount:      decimal.NewFromFloat(10),
		Description: "too late",
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindInvalidState))
	assert.ErrorContains(t, err, "closed session")
}

func TestRecordSessionNotFound(t *testing.T) {
	svc, _, _ := newMovementSvc()

	_, err := svc.Record(context.Background(), uuid.New(), uuid.New(), dto.RecordMovementRequest{
		Type:        model.MovementCashIn,
		Amount:      decimal.NewFromFloat(10),
		Description: "ghost session",
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestRecordTransactionSale(t *testing.T) {
	svc, repo, _ := newMovementSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 100)

	resp, err := svc.RecordTransaction(context.Background(), uuid.New(), dto.CashTransactionEvent{
		Counter:   "COUNTER-1",
		Type:      model.MovementSale,
		Amount:    decimal.NewFromFloat(50),
		Reference: "TICKET-0001",
	})
	require.NoError(t, err)
	assert.Equal(t, model.MovementSale, resp.Type)
	assert.Equal(t, "Cash sale TICKET-0001", resp.Description)
	require.NotNil(t, resp.Reference)
	assert.Equal(t, "TICKET-0001", *resp.Reference)

	stored, err := repo.ListMovements(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestRecordTransactionRefund(t *testing.T) {
	svc, repo, _ := newMovementSvc()
	openTestSession(t, repo, "COUNTER-1", 100)

	resp, err := svc.RecordTransaction(context.Background(), uuid.New(), dto.CashTransactionEvent{
		Counter:   "COUNTER-1",
		Type:      model.MovementRefund,
		Amount:    decimal.NewFromFloat(20),
		Reference: "TICKET-0002",
	})
	require.NoError(t, err)
	assert.Equal(t, model.MovementRefund, resp.Type)
	assert.Equal(t, "Cash refund TICKET-0002", resp.Description)
}

func TestRecordTransactionCustomDescription(t *testing.T) {
	svc, repo, _ := newMovementSvc()
	openTestSession(t, repo, "COUNTER-1", 100)

	desc := "split-payment cash portion"
	resp, err := svc.RecordTransaction(context.Background(), uuid.New(), dto.CashTransactionEvent{
		Counter:     "COUNTER-1",
		Type:        model.MovementSale,
		Amount:      decimal.NewFromFloat(12.34),
		Reference:   "TICKET-0003",
		Description: &desc,
	})
	require.NoError(t, err)
	assert.Equal(t, desc, resp.Description)
}

func TestRecordTransactionNoOpenSession(t *testing.T) {
	svc, _, _ := newMovementSvc()

	_, err := svc.RecordTransaction(context.Background(), uuid.New(), dto.CashTransactionEvent{
		Counter:   "COUNTER-9",
		Type:      model.MovementSale,
		Amount:    decimal.NewFromFloat(50),
		Reference: "TICKET-0004",
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindInvalidState))
	assert.ErrorContains(t, err, "no open session")
}

func TestSignedAmounts(t *testing.T) {
	cases := []struct {
		typ  string
		want string
	}{
		{model.MovementSale, "10"},
		{model.MovementCashIn, "10"},
		{model.MovementRefund, "-10"},
		{model.MovementCashOut, "-10"},
	}
	for _, tc := range cases {
		m := model.CashMovement{Type: tc.typ, Amount: decimal.NewFromFloat(10)}
		assert.Equal(t, tc.want, m.Signed().String(), tc.typ)
	}
}
