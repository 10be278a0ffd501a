package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteStatus enum constants
const (
	QuoteDraft    = "draft"
	QuoteSent     = "sent"
	QuoteAccepted = "accepted"
	QuoteRejected = "rejected"
)

// DefaultVATRate is applied when a quote is created without an explicit rate.
var DefaultVATRate = decimal.NewFromInt(20)

// Quote (devis) is a priced proposal sent to a client before commitment.
// MontantHT/MontantTTC are always recomputed from the line items before
// persistence — they are never written independently.
type Quote struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Reference   string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"reference"`
	PlannerID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"planner_id"`
	ClientID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	Client      *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ClientName  string          `gorm:"type:varchar(255);not null" json:"client_name"` // denormalized at creation time
	ClientEmail string          `gorm:"type:varchar(255)" json:"client_email"`
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Items       []QuoteItem     `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"items"`
	MontantHT   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"montant_ht"`
	TVA         decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"tva"` // VAT rate, percent
	MontantTTC  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"montant_ttc"`
	ValidUntil  time.Time       `gorm:"not null" json:"valid_until"`
	Status      string          `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	PDFURL      string          `gorm:"type:text" json:"pdf_url"` // write-once after send
	SentAt      *time.Time      `json:"sent_at"`
	SentTo      string          `gorm:"type:varchar(255)" json:"sent_to"`
	SentMessage string          `gorm:"type:text" json:"sent_message"`
	DecidedAt   *time.Time      `json:"decided_at"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// QuoteItem is a single priced line on a quote. Total = Quantity × UnitPrice.
type QuoteItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	QuoteID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"quote_id"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	Total       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total"`
	Position    int             `gorm:"not null;default:0" json:"position"`
}
