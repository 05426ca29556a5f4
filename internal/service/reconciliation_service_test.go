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

func newReconSvc() (service.ReconciliationService, *memSessionRepo, *memAuditRepo, *captureEnqueuer) {
	repo := newMemSessionRepo()
	audit := &memAuditRepo{}
	enq := &captureEnqueuer{}
	return service.NewReconciliationService(repo, audit, &passLocker{}, enq), repo, audit, enq
}

func addMovement(t *testing.T, repo *memSessionRepo, sessionID uuid.UUID, typ string, amount float64) {
	t.Helper()
	require.NoError(t, repo.CreateMovement(context.Background(), &model.CashMovement{
		SessionID:   sessionID,
		Type:        typ,
		Amount:      decimal.NewFromFloat(amount),
		Description: typ,
		CreatedByID: uuid.New(),
	}))
}

func TestSummaryExpectedBalance(t *testing.T) {
	svc, repo, _, _ := newReconSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 100)
	addMovement(t, repo, sess.ID, model.MovementSale, 50)
	addMovement(t, repo, sess.ID, model.MovementSale, 30)
	addMovement(t, repo, sess.ID, model.MovementRefund, 20)

	summary, err := svc.Summary(context.Background(), sess.ID)
	require.NoError(t, err)

	assert.Equal(t, "100", summary.Totals.OpeningBalance.String())
	assert.Equal(t, "80", summary.Totals.CashSales.String())
	assert.Equal(t, "20", summary.Totals.CashRefunds.String())
	assert.Equal(t, "0", summary.Totals.CashIn.String())
	assert.Equal(t, "0", summary.Totals.CashOut.String())
	// 100 + 80 - 20
	assert.Equal(t, "160", summary.Totals.ExpectedBalance.String())
	assert.Len(t, summary.Transactions, 3)
}

func TestSummaryAllMovementTypes(t *testing.T) {
	svc, repo, _, _ := newReconSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 200)
	addMovement(t, repo, sess.ID, model.MovementSale, 120)
	addMovement(t, repo, sess.ID, model.MovementRefund, 15)
	addMovement(t, repo, sess.ID, model.MovementCashIn, 50)
	addMovement(t, repo, sess.ID, model.MovementCashOut, 80)

	summary, err := svc.Summary(context.Background(), sess.ID)
	require.NoError(t, err)

	// 200 + 120 + 50 - 15 - 80
	assert.Equal(t, "275", summary.Totals.ExpectedBalance.String())
}

func TestSummaryNotFound(t *testing.T) {
	svc, _, _, _ := newReconSvc()

	_, err := svc.Summary(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestCloseSessionShortage(t *testing.T) {
	svc, repo, audit, enq := newReconSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 100)
	addMovement(t, repo, sess.ID, model.MovementSale, 50)
	addMovement(t, repo, sess.ID, model.MovementSale, 30)
	addMovement(t, repo, sess.ID, model.MovementRefund, 20)

	actor := uuid.New()
	resp, err := svc.Close(context.Background(), actor, sess.ID, dto.CloseSessionRequest{
		CountedCash: decimal.NewFromFloat(155),
	})
	require.NoError(t, err)

	assert.Equal(t, model.SessionClosed, resp.Session.Status)
	require.NotNil(t, resp.Session.ExpectedBalance)
	assert.Equal(t, "160", resp.Session.ExpectedBalance.String())
	require.NotNil(t, resp.Session.ClosingBalance)
	assert.Equal(t, "155", resp.Session.ClosingBalance.String())
	require.NotNil(t, resp.Session.Difference)
	assert.Equal(t, "-5", resp.Session.Difference.String())
	require.NotNil(t, resp.Session.ClosedBy)
	assert.Equal(t, actor.String(), *resp.Session.ClosedBy)
	assert.NotNil(t, resp.Session.ClosedAt)

	// close report enqueued and audit written
	require.Len(t, enq.sessionIDs, 1)
	assert.Equal(t, sess.ID.String(), enq.sessionIDs[0])
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "session.close", audit.entries[0].Action)
}

func TestCloseAfterSaleAndSafeDrop(t *testing.T) {
	svc, repo, _, _ := newReconSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 100)
	addMovement(t, repo, sess.ID, model.MovementSale, 50)
	addMovement(t, repo, sess.ID, model.MovementCashOut, 20)

	summary, err := svc.Summary(context.Background(), sess.ID)
	require.NoError(t, err)
	// 100 + 50 - 20
	assert.Equal(t, "130", summary.Totals.ExpectedBalance.String())

	resp, err := svc.Close(context.Background(), uuid.New(), sess.ID, dto.CloseSessionRequest{
		CountedCash: decimal.NewFromFloat(125),
	})
	require.NoError(t, err)
	assert.Equal(t, "-5", resp.Session.Difference.String())
	assert.Equal(t, "125", resp.Session.ClosingBalance.String())
}

func TestCloseSessionOverage(t *testing.T) {
	svc, repo, _, _ := newReconSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 100)
	addMovement(t, repo, sess.ID, model.MovementSale, 40)

	resp, err := svc.Close(context.Background(), uuid.New(), sess.ID, dto.CloseSessionRequest{
		CountedCash: decimal.NewFromFloat(145),
	})
	require.NoError(t, err)
	assert.Equal(t, "5", resp.Session.Difference.String())
}

func TestCloseSessionNoMovements(t *testing.T) {
	svc, repo, _, _ := newReconSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 100)

	resp, err := svc.Close(context.Background(), uuid.New(), sess.ID, dto.CloseSessionRequest{
		CountedCash: decimal.NewFromFloat(100),
	})
	require.NoError(t, err)
	assert.Equal(t, "100", resp.Session.ExpectedBalance.String())
	assert.True(t, resp.Session.Difference.IsZero())
}

func TestCloseSessionNegativeCount(t *testing.T) {
	svc, repo, _, _ := newReconSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 100)

	_, err := svc.Close(context.Background(), uuid.New(), sess.ID, dto.CloseSessionRequest{
		CountedCash: decimal.NewFromFloat(-1),
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestCloseSessionTwice(t *testing.T) {
	svc, repo, _, enq := newReconSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 100)

	_, err := svc.Close(context.Background(), uuid.New(), sess.ID, dto.CloseSessionRequest{
		CountedCash: decimal.NewFromFloat(100),
	})
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), uuid.New(), sess.ID, dto.CloseSessionRequest{
		CountedCash: decimal.NewFromFloat(100),
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindInvalidState))
	assert.ErrorContains(t, err, "already closed")

	// only the first close produced a report job
	assert.Len(t, enq.sessionIDs, 1)
}

func TestCloseSessionNotFound(t *testing.T) {
	svc, _, _, _ := newReconSvc()

	_, err := svc.Close(context.Background(), uuid.New(), uuid.New(), dto.CloseSessionRequest{
		CountedCash: decimal.Zero,
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestSummaryAfterClose(t *testing.T) {
	svc, repo, _, _ := newReconSvc()
	sess := openTestSession(t, repo, "COUNTER-1", 100)
	addMovement(t, repo, sess.ID, model.MovementSale, 60)

	before, err := svc.Summary(context.Background(), sess.ID)
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), uuid.New(), sess.ID, dto.CloseSessionRequest{
		CountedCash: decimal.NewFromFloat(160),
	})
	require.NoError(t, err)

	after, err := svc.Summary(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionClosed, after.Status)
	assert.True(t, before.Totals.ExpectedBalance.Equal(after.Totals.ExpectedBalance))
}

func TestCloseWithoutEnqueuer(t *testing.T) {
	repo := newMemSessionRepo()
	svc := service.NewReconciliationService(repo, &memAuditRepo{}, &passLocker{}, nil)
	sess := openTestSession(t, repo, "COUNTER-1", 50)

	resp, err := svc.Close(context.Background(), uuid.New(), sess.ID, dto.CloseSessionRequest{
		CountedCash: decimal.NewFromFloat(50),
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionClosed, resp.Session.Status)
}
