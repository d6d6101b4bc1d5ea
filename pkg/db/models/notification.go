package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
)

// Notification is a DB-backed message surfaced to an account.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.NotificationType `gorm:"column:type;type:text;not null"`
	Title     string                 `gorm:"column:title;type:text;not null"`
	Body      string                 `gorm:"column:body;type:text;not null;default:''"`
	Metadata  json.RawMessage        `gorm:"column:metadata;type:jsonb"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
