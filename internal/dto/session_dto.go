package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenSessionRequest struct {
	Counter        string          `json:"counter"         validate:"required,min=1,max=40"`
	OpeningBalance decimal.Decimal `json:"opening_balance" validate:"min=0"`
}

// RecordMovementRequest covers operator-initiated drawer adjustments.
// SALE and REFUND never come through here; they arrive as
// CashTransactionEvent from the order/payment flow.
type RecordMovementRequest struct {
	Type        string          `json:"type"        validate:"required,oneof=CASH_IN CASH_OUT"`
	Amount      decimal.Decimal `json:"amount"      validate:"required,gt=0"`
	Description string          `json:"description" validate:"required,min=1,max=500"`
	Reference   *string         `json:"reference"   validate:"omitempty,max=80"`
}

// CashTransactionEvent is emitted by the order/payment flow when cash
// changes hands. Resolved against the counter's active session.
type CashTransactionEvent struct {
	Counter     string          `json:"counter"     validate:"required,min=1,max=40"`
	Type        string          `json:"type"        validate:"required,oneof=SALE REFUND"`
	Amount      decimal.Decimal `json:"amount"      validate:"required,gt=0"`
	Reference   string          `json:"reference"   validate:"required,min=1,max=80"`
	Description *string         `json:"description" validate:"omitempty,max=500"`
}

type CloseSessionRequest struct {
	CountedCash decimal.Decimal `json:"counted_cash" validate:"min=0"`
	Notes       *string         `json:"notes"        validate:"omitempty,max=1000"`
}

// SessionFilter holds the parsed query params of the history listing.
type SessionFilter struct {
	Page    int
	Limit   int
	Counter string
	From    string // business date, inclusive, "2006-01-02"
	To      string
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MovementResponse struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Reference   *string         `json:"reference,omitempty"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   string          `json:"created_at"`
}

type SessionResponse struct {
	ID              string           `json:"id"`
	Counter         string           `json:"counter"`
	BusinessDate    string           `json:"business_date"`
	Status          string           `json:"status"`
	OpeningBalance  decimal.Decimal  `json:"opening_balance"`
	ExpectedBalance *decimal.Decimal `json:"expected_balance,omitempty"`
	ClosingBalance  *decimal.Decimal `json:"closing_balance,omitempty"`
	Difference      *decimal.Decimal `json:"difference,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	OpenedBy        string           `json:"opened_by"`
	OpenedAt        string           `json:"opened_at"`
	ClosedBy        *string          `json:"closed_by,omitempty"`
	ClosedAt        *string          `json:"closed_at,omitempty"`
}

type SessionListResponse struct {
	Data  []SessionResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// SessionTotals breaks down the expected balance by movement type.
// ExpectedBalance = opening + sales + cash_in - refunds - cash_out.
type SessionTotals struct {
	OpeningBalance  decimal.Decimal `json:"opening_balance"`
	CashSales       decimal.Decimal `json:"cash_sales"`
	CashRefunds     decimal.Decimal `json:"cash_refunds"`
	CashIn          decimal.Decimal `json:"cash_in"`
	CashOut         decimal.Decimal `json:"cash_out"`
	ExpectedBalance decimal.Decimal `json:"expected_balance"`
}

type SessionSummaryResponse struct {
	SessionID    string             `json:"session_id"`
	Counter      string             `json:"counter"`
	BusinessDate string             `json:"business_date"`
	Status       string             `json:"status"`
	Totals       SessionTotals      `json:"totals"`
	Transactions []MovementResponse `json:"transactions"`
}

type CloseSessionResponse struct {
	Session SessionResponse `json:"session"`
	Totals  SessionTotals   `json:"totals"`
}

type AuditEntryResponse struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Action    string `json:"action"`
	Detail    string `json:"detail"`
	CreatedAt string `json:"created_at"`
}
