package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session lifecycle states. A session is terminal once closed.
const (
	SessionOpen   = "open"
	SessionClosed = "closed"
)

// Movement types. Amounts are stored strictly positive; the direction
// of each movement is derived from its type (see CashMovement.Signed).
const (
	MovementSale    = "SALE"
	MovementRefund  = "REFUND"
	MovementCashIn  = "CASH_IN"
	MovementCashOut = "CASH_OUT"
)

// CashSession is one working period of a register drawer: opened with a
// counted float, accumulating movements, and closed exactly once against
// a blind cash count. At most one open session may exist per
// (counter, business_date); a partial unique index enforces this in the DB.
type CashSession struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Counter      string    `gorm:"type:varchar(40);not null;index" json:"counter"`
	BusinessDate string    `gorm:"type:date;not null;index" json:"business_date"`
	Status       string    `gorm:"type:varchar(10);not null;default:'open'" json:"status"`

	OpeningBalance decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"opening_balance"`

	// Closing fields are written exactly once, by the terminal close.
	// Difference = ClosingBalance - ExpectedBalance (positive = excess cash).
	ExpectedBalance *decimal.Decimal `gorm:"type:decimal(12,2)" json:"expected_balance,omitempty"`
	ClosingBalance  *decimal.Decimal `gorm:"type:decimal(12,2)" json:"closing_balance,omitempty"`
	Difference      *decimal.Decimal `gorm:"type:decimal(12,2)" json:"difference,omitempty"`
	Notes           *string          `gorm:"type:text" json:"notes,omitempty"`

	OpenedByID uuid.UUID  `gorm:"type:uuid;not null" json:"opened_by_id"`
	OpenedAt   time.Time  `gorm:"not null" json:"opened_at"`
	ClosedByID *uuid.UUID `gorm:"type:uuid" json:"closed_by_id,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`

	Movements []CashMovement `gorm:"foreignKey:SessionID" json:"movements,omitempty"`
}

func (CashSession) TableName() string { return "cash_sessions" }

// CashMovement is an append-only ledger entry inside a session.
// Movements are immutable: no update or delete paths exist.
type CashMovement struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	Type      string    `gorm:"type:varchar(10);not null" json:"type"`

	// Amount is always > 0 regardless of Type.
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Description string          `gorm:"type:text;not null" json:"description"`

	// Reference carries the originating order/payment id for SALE and REFUND.
	Reference *string `gorm:"type:varchar(80)" json:"reference,omitempty"`

	CreatedByID uuid.UUID `gorm:"type:uuid;not null" json:"created_by_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (CashMovement) TableName() string { return "cash_movements" }

// Signed returns the amount with the direction implied by the movement
// type: SALE and CASH_IN add to the drawer, REFUND and CASH_OUT subtract.
func (m CashMovement) Signed() decimal.Decimal {
	switch m.Type {
	case MovementRefund, MovementCashOut:
		return m.Amount.Neg()
	default:
		return m.Amount
	}
}

// ValidMovementType reports whether t is one of the four movement types.
func ValidMovementType(t string) bool {
	switch t {
	case MovementSale, MovementRefund, MovementCashIn, MovementCashOut:
		return true
	}
	return false
}
