package infra

// pdf.go — Reconciliation report generation using go-pdf/fpdf.
// One A4 page per close: session header, movement table with signed
// amounts, expected vs counted balances and the resulting difference.
// The output file is saved to storagePath/session_{id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"tillledger/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GenerateSessionReportPDF renders the reconciliation report for a closed
// session. storagePath is created if needed. Returns the absolute path to
// the generated file.
func GenerateSessionReportPDF(sess *model.CashSession, movements []model.CashMovement, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("session_%s.pdf", sess.ID.String())
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "Cash Session Reconciliation", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Counter: %s    Business date: %s", sess.Counter, sess.BusinessDate), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Session: %s", sess.ID.String()), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 6, fmt.Sprintf("Opened: %s", sess.OpenedAt.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	if sess.ClosedAt != nil {
		pdf.CellFormat(contentW, 6, fmt.Sprintf("Closed: %s", sess.ClosedAt.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	// ── Movement table ───────────────────────────────────────────────────────
	col1 := contentW * 0.14 // time
	col2 := contentW * 0.14 // type
	col3 := contentW * 0.42 // description
	col4 := contentW * 0.14 // reference
	col5 := contentW * 0.16 // signed amount

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "Time", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Type", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "Description", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col4, 6, "Ref", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col5, 6, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, m := range movements {
		description := m.Description
		if len(description) > 44 {
			description = description[:43] + "…"
		}
		ref := ""
		if m.Reference != nil {
			ref = *m.Reference
		}
		pdf.CellFormat(col1, 5, m.CreatedAt.Format("15:04"), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, m.Type, "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, description, "", 0, "L", false, 0, "")
		pdf.CellFormat(col4, 5, ref, "", 0, "L", false, 0, "")
		pdf.CellFormat(col5, 5, "$"+m.Signed().StringFixed(2), "", 1, "R", false, 0, "")
	}
	if len(movements) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(contentW, 6, "No movements recorded", "", 1, "C", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// ── Balances ─────────────────────────────────────────────────────────────
	expected := sess.OpeningBalance
	for _, m := range movements {
		expected = expected.Add(m.Signed())
	}
	if sess.ExpectedBalance != nil {
		expected = *sess.ExpectedBalance
	}

	labelW := contentW * 0.70
	valueW := contentW * 0.30

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(labelW, 6, "Opening balance:", "", 0, "L", false, 0, "")
	pdf.CellFormat(valueW, 6, "$"+sess.OpeningBalance.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(labelW, 6, "Expected balance:", "", 0, "L", false, 0, "")
	pdf.CellFormat(valueW, 6, "$"+expected.StringFixed(2), "", 1, "R", false, 0, "")

	if sess.ClosingBalance != nil {
		pdf.CellFormat(labelW, 6, "Counted cash:", "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 6, "$"+sess.ClosingBalance.StringFixed(2), "", 1, "R", false, 0, "")
	}

	difference := decimal.Zero
	if sess.Difference != nil {
		difference = *sess.Difference
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(labelW, 7, "DIFFERENCE:", "", 0, "L", false, 0, "")
	pdf.CellFormat(valueW, 7, "$"+difference.StringFixed(2), "", 1, "R", false, 0, "")

	if sess.Notes != nil && *sess.Notes != "" {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(contentW, 5, "Notes: "+*sess.Notes, "", "L", false)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}
