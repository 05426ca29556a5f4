package worker

// report_worker.go
// Processes close-report jobs from QueueReports: renders the
// reconciliation PDF and emails it to the supervisor address.
// Delivery failures are handed to the retry cron via close_reports rows.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tillledger/internal/infra"
	"tillledger/internal/model"
	"tillledger/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ReportJobPayload is the job envelope sent to QueueReports.
type ReportJobPayload struct {
	SessionID string `json:"session_id"`
}

// ReportWorker renders and delivers one reconciliation report per closed
// session. Re-processing an already-sent report is a no-op, so redelivered
// jobs are harmless.
type ReportWorker struct {
	sessionRepo repository.SessionRepository
	reportRepo  repository.ReportRepository
	mailer      *infra.Mailer
	cb          *infra.CircuitBreaker
	storagePath string
	recipient   string
}

// NewReportWorker wires all dependencies for the report worker.
func NewReportWorker(
	sessionRepo repository.SessionRepository,
	reportRepo repository.ReportRepository,
	mailer *infra.Mailer,
	cb *infra.CircuitBreaker,
	storagePath string,
	recipient string,
) *ReportWorker {
	return &ReportWorker{
		sessionRepo: sessionRepo,
		reportRepo:  reportRepo,
		mailer:      mailer,
		cb:          cb,
		storagePath: storagePath,
		recipient:   recipient,
	}
}

// Process handles a single close-report job:
//  1. Parse ReportJobPayload from the job envelope
//  2. Fetch the closed session with its movements
//  3. Find or create the close_reports row (status "pending")
//  4. Render the reconciliation PDF
//  5. Email it through the circuit breaker with inline retries
//  6. Mark sent, or schedule a retry for the cron
func (w *ReportWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ReportJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("report_worker: invalid payload")
		return
	}

	sessionID, err := uuid.Parse(payload.SessionID)
	if err != nil {
		log.Error().Str("session_id", payload.SessionID).Msg("report_worker: invalid session_id")
		return
	}

	sess, err := w.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", payload.SessionID).Msg("report_worker: session not found")
		return
	}

	report, err := w.reportRepo.FindBySessionID(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		report = &model.CloseReport{
			SessionID: sessionID,
			Status:    model.ReportPending,
			Recipient: w.recipient,
		}
		if err := w.reportRepo.Create(ctx, report); err != nil {
			log.Error().Err(err).Str("session_id", payload.SessionID).Msg("report_worker: failed to create report row")
			return
		}
	} else if err != nil {
		log.Error().Err(err).Str("session_id", payload.SessionID).Msg("report_worker: report lookup failed")
		return
	}
	if report.Status == model.ReportSent {
		log.Debug().Str("session_id", payload.SessionID).Msg("report_worker: report already sent")
		return
	}

	movements, err := w.sessionRepo.ListMovements(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", payload.SessionID).Msg("report_worker: failed to load movements")
		return
	}

	pdfPath, err := infra.GenerateSessionReportPDF(sess, movements, w.storagePath)
	if err != nil {
		log.Error().Err(err).Str("session_id", payload.SessionID).Msg("report_worker: PDF generation failed")
		w.scheduleRetry(ctx, report, err)
		return
	}
	report.PDFPath = &pdfPath
	_ = w.reportRepo.Update(ctx, report)

	// Inline retries: attempt 1 immediate, then 1s, 2s. Anything beyond
	// that is the retry cron's job.
	subject, body := reportEmailContent(sess)
	sendErr := withRetry(ctx, 3, func(attempt int) error {
		err := w.cb.Execute(func() error {
			return w.mailer.SendReport(report.Recipient, subject, body, pdfPath)
		})
		if err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("session_id", payload.SessionID).
				Msg("report_worker: send attempt failed")
		}
		return err
	})
	if sendErr != nil {
		w.scheduleRetry(ctx, report, sendErr)
		return
	}

	report.Status = model.ReportSent
	report.NextRetryAt = nil
	report.LastError = nil
	if err := w.reportRepo.Update(ctx, report); err != nil {
		log.Error().Err(err).Str("session_id", payload.SessionID).Msg("report_worker: failed to mark report sent")
		return
	}
	log.Info().
		Str("session_id", payload.SessionID).
		Str("recipient", report.Recipient).
		Msg("report_worker: reconciliation report sent")
}

// scheduleRetry records the failure and hands the report to the retry
// cron. Max-retry enforcement and DLQ routing live in the cron.
func (w *ReportWorker) scheduleRetry(ctx context.Context, report *model.CloseReport, cause error) {
	report.RetryCount++
	errMsg := cause.Error()
	report.LastError = &errMsg

	nextRetry := time.Now().Add(computeRetryBackoff(report.RetryCount))
	report.NextRetryAt = &nextRetry
	_ = w.reportRepo.Update(ctx, report)
	log.Warn().
		Str("session_id", report.SessionID.String()).
		Int("retry_count", report.RetryCount).
		Time("next_retry_at", nextRetry).
		Msg("report_worker: delivery failed, scheduled retry")
}

func reportEmailContent(sess *model.CashSession) (subject, body string) {
	subject = fmt.Sprintf("Cash reconciliation - counter %s, %s", sess.Counter, sess.BusinessDate)
	difference := "0.00"
	if sess.Difference != nil {
		difference = sess.Difference.StringFixed(2)
	}
	body = fmt.Sprintf(
		"Session %s on counter %s was closed.\nDifference against expected balance: $%s\nThe full reconciliation report is attached.",
		sess.ID.String(), sess.Counter, difference)
	return subject, body
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			// 1s, 2s … (exponential backoff)
			wait := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
