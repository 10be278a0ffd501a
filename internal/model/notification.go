package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification is an in-app notification record shown in the portal bell.
// Push and email delivery are best-effort side channels of the same event.
type Notification struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RecipientID uuid.UUID      `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Body        string         `gorm:"type:text" json:"body"`
	Link        string         `gorm:"type:text" json:"link"`
	Meta        datatypes.JSON `gorm:"type:jsonb" json:"meta,omitempty"`
	Read        bool           `gorm:"not null;default:false;index" json:"read"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
