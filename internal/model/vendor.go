package model

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is a supplier (prestataire) a planner orders from: caterer,
// florist, photographer, venue.
type Vendor struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PlannerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"planner_id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Category    string    `gorm:"type:varchar(100)" json:"category"` // traiteur, fleuriste, photographe, lieu
	ContactName string    `gorm:"type:varchar(255)" json:"contact_name"`
	Email       string    `gorm:"type:varchar(255)" json:"email"`
	Phone       string    `gorm:"type:varchar(20)" json:"phone"`
	Address     string    `gorm:"type:text" json:"address"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
