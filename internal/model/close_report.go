package model

import (
	"time"

	"github.com/google/uuid"
)

// Close report delivery states.
const (
	ReportPending = "pending"
	ReportSent    = "sent"
	ReportError   = "error"
)

// CloseReport tracks the reconciliation report generated after a session
// closes: PDF rendering plus email delivery to the supervisor address.
// Rows in "pending" with a due NextRetryAt are picked up by the retry cron.
type CloseReport struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"session_id"`
	Status    string    `gorm:"type:varchar(10);not null;default:'pending'" json:"status"`
	Recipient string    `gorm:"type:varchar(254);not null" json:"recipient"`

	PDFPath     *string    `gorm:"type:text" json:"pdf_path,omitempty"`
	RetryCount  int        `gorm:"not null;default:0" json:"retry_count"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	LastError   *string    `gorm:"type:text" json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CloseReport) TableName() string { return "close_reports" }
