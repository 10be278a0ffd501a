package model

import (
	"time"

	"github.com/google/uuid"
)

// Client is a couple managed by a planner. Quotes and invoices denormalize
// the name/email at creation time so sent documents keep their original
// recipient even if the client record changes later.
type Client struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PlannerID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"planner_id"`
	UserID      *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // portal account, nullable until invited
	Name        string     `gorm:"type:varchar(255);not null" json:"name"`
	Email       string     `gorm:"type:varchar(255);not null" json:"email"`
	Phone       string     `gorm:"type:varchar(20)" json:"phone"`
	WeddingDate *time.Time `json:"wedding_date"`
	DeviceToken string     `gorm:"type:text" json:"-"` // FCM token for push delivery
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
