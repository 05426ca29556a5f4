package worker

// retry_cron.go
// Background goroutine that periodically re-attempts delivery of close
// reports stuck in status='pending' with a next_retry_at in the past.
// Uses the Circuit Breaker to avoid hammering a downed SMTP relay.

import (
	"context"
	"fmt"
	"time"

	"tillledger/internal/infra"
	"tillledger/internal/model"
	"tillledger/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10

	// MaxReportRetries is the total delivery attempts before a report is
	// parked in status "error" and its job copied to the DLQ.
	MaxReportRetries = 5
)

// computeRetryBackoff doubles per attempt (1m, 2m, 4m …) capped at 30m.
func computeRetryBackoff(retryCount int) time.Duration {
	backoff := time.Duration(1<<uint(retryCount-1)) * time.Minute
	if backoff > 30*time.Minute {
		backoff = 30 * time.Minute
	}
	return backoff
}

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	SessionRepo repository.SessionRepository
	ReportRepo  repository.ReportRepository
	Mailer      *infra.Mailer
	CB          *infra.CircuitBreaker
	RDB         *redis.Client
	StoragePath string
}

// StartRetryCron launches a background goroutine that ticks every 30s,
// queries due close reports, and re-attempts delivery through the CB.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	// If CB is open, skip entirely — don't hammer a downed relay
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	now := time.Now()
	reports, err := cfg.ReportRepo.ListDueRetries(ctx, now, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query due reports")
		return
	}

	if len(reports) == 0 {
		return
	}

	log.Info().Int("count", len(reports)).Msg("retry_cron: processing due close reports")

	for i := range reports {
		report := &reports[i]

		// Check CB state before each call — it may have tripped mid-batch
		if cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return
		}

		sess, err := cfg.SessionRepo.FindByID(ctx, report.SessionID)
		if err != nil {
			log.Error().Err(err).Str("session_id", report.SessionID.String()).Msg("retry_cron: session lookup failed")
			continue
		}

		// Regenerate the PDF if a previous attempt never got that far.
		pdfPath := ""
		if report.PDFPath != nil {
			pdfPath = *report.PDFPath
		}
		if pdfPath == "" {
			movements, err := cfg.SessionRepo.ListMovements(ctx, report.SessionID)
			if err == nil {
				pdfPath, err = infra.GenerateSessionReportPDF(sess, movements, cfg.StoragePath)
			}
			if err != nil {
				failRetry(ctx, cfg, report, err)
				continue
			}
			report.PDFPath = &pdfPath
		}

		subject, body := reportEmailContent(sess)
		cbErr := cfg.CB.Execute(func() error {
			return cfg.Mailer.SendReport(report.Recipient, subject, body, pdfPath)
		})
		if cbErr != nil {
			failRetry(ctx, cfg, report, cbErr)
			continue
		}

		report.Status = model.ReportSent
		report.NextRetryAt = nil
		report.LastError = nil
		_ = cfg.ReportRepo.Update(ctx, report)
		log.Info().
			Str("session_id", report.SessionID.String()).
			Int("total_retries", report.RetryCount).
			Msg("retry_cron: report delivered after retry")
	}
}

// failRetry increments the retry count, schedules the next attempt, and
// parks the report in error/DLQ once MaxReportRetries is reached.
func failRetry(ctx context.Context, cfg RetryCronConfig, report *model.CloseReport, cause error) {
	report.RetryCount++
	errMsg := cause.Error()
	report.LastError = &errMsg

	if report.RetryCount >= MaxReportRetries {
		report.Status = model.ReportError
		report.NextRetryAt = nil
		_ = cfg.ReportRepo.Update(ctx, report)

		log.Error().
			Str("report_id", report.ID.String()).
			Str("session_id", report.SessionID.String()).
			Int("retries", report.RetryCount).
			Msg("retry_cron: max retries exceeded, moving to error/DLQ")

		payload := fmt.Sprintf(`{"session_id":"%s"}`, report.SessionID)
		SendToDLQ(ctx, cfg.RDB, QueueReports, jobTypeCloseReport, []byte(payload),
			fmt.Sprintf("max retries (%d) exceeded: %s", MaxReportRetries, errMsg),
			report.RetryCount)
		return
	}

	nextRetry := time.Now().Add(computeRetryBackoff(report.RetryCount))
	report.NextRetryAt = &nextRetry
	_ = cfg.ReportRepo.Update(ctx, report)
	log.Warn().
		Str("report_id", report.ID.String()).
		Int("retry_count", report.RetryCount).
		Time("next_retry_at", nextRetry).
		Msg("retry_cron: delivery failed, scheduled next attempt")
}
