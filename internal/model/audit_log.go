package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog is an append-only record of operator actions over sessions,
// movements and users. Best-effort: a failed audit write is logged and
// never fails the operation it describes.
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null;index" json:"actor_id"`
	Action     string    `gorm:"type:varchar(40);not null" json:"action"`
	EntityType string    `gorm:"type:varchar(30);not null" json:"entity_type"`
	EntityID   string    `gorm:"type:varchar(60);not null;index" json:"entity_id"`
	Detail     string    `gorm:"type:text" json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
