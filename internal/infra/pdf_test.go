package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tillledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClosedSession() *model.CashSession {
	expected := decimal.NewFromFloat(160)
	counted := decimal.NewFromFloat(155)
	diff := decimal.NewFromFloat(-5)
	notes := "drawer was short, recount pending"
	closedAt := time.Now()
	return &model.CashSession{
		ID:              uuid.New(),
		Counter:         "COUNTER-1",
		BusinessDate:    "2026-08-31",
		Status:          model.SessionClosed,
		OpeningBalance:  decimal.NewFromFloat(100),
		ExpectedBalance: &expected,
		ClosingBalance:  &counted,
		Difference:      &diff,
		Notes:           &notes,
		OpenedByID:      uuid.New(),
		OpenedAt:        time.Now().Add(-8 * time.Hour),
		ClosedAt:        &closedAt,
	}
}

func TestGenerateSessionReportPDF(t *testing.T) {
	sess := testClosedSession()
	ref := "TICKET-0001"
	movements := []model.CashMovement{
		{ID: uuid.New(), SessionID: sess.ID, Type: model.MovementSale, Amount: decimal.NewFromFloat(50), Description: "Cash sale TICKET-0001", Reference: &ref, CreatedAt: time.Now()},
		{ID: uuid.New(), SessionID: sess.ID, Type: model.MovementRefund, Amount: decimal.NewFromFloat(20), Description: "Cash refund TICKET-0002", CreatedAt: time.Now()},
	}

	dir := t.TempDir()
	path, err := GenerateSessionReportPDF(sess, movements, dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "session_"+sess.ID.String()+".pdf"), path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(500))

	header := make([]byte, 5)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Read(header)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(header))
}

func TestGenerateSessionReportPDFNoMovements(t *testing.T) {
	sess := testClosedSession()

	path, err := GenerateSessionReportPDF(sess, nil, t.TempDir())
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestGenerateSessionReportPDFCreatesStorageDir(t *testing.T) {
	sess := testClosedSession()
	dir := filepath.Join(t.TempDir(), "reports", "nested")

	path, err := GenerateSessionReportPDF(sess, nil, dir)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path) || path != "")
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
