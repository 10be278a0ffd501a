package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole enum constants
const (
	RolePlanner = "planner"
	RoleClient  = "client"
	RoleAdmin   = "admin"
)

// User is a login account: a planner operating the dashboard or a client
// invited to the portal.
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email       string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Password    string         `gorm:"type:varchar(255);not null" json:"-"` // Omit password from JSON requests/responses
	Role        string         `gorm:"type:varchar(50);not null" json:"role"`
	DeviceToken string         `gorm:"type:text" json:"-"` // FCM registration token, set by the mobile app
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}
