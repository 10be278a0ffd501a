package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceType enum constants
const (
	InvoiceTypeStandard = "invoice"
	InvoiceTypeDeposit  = "deposit"
)

// InvoiceStatus enum constants
const (
	InvoicePending = "pending"
	InvoicePartial = "partial"
	InvoicePaid    = "paid"
	InvoiceOverdue = "overdue"
)

// Invoice (facture) is a billing document requesting payment, optionally
// derived from an accepted quote via DevisID.
type Invoice struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Reference  string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"reference"`
	Type       string          `gorm:"type:varchar(20);not null;default:'invoice'" json:"type"` // invoice, deposit
	PlannerID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"planner_id"`
	ClientID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	Client     *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ClientName string          `gorm:"type:varchar(255);not null" json:"client_name"`
	DevisID    *uuid.UUID      `gorm:"type:uuid;index" json:"devis_id"` // originating quote, nullable
	Notes      string          `gorm:"type:text" json:"notes"`
	Items      []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	MontantHT  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"montant_ht"`
	TVA        decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"tva"`
	MontantTTC decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"montant_ttc"`
	Paid       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"paid"` // cumulative amount paid
	DueDate    time.Time       `gorm:"not null;index" json:"due_date"`
	Status     string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PDFURL     string          `gorm:"type:text" json:"pdf_url"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// AmountDue is the outstanding balance, never negative.
func (i *Invoice) AmountDue() decimal.Decimal {
	due := i.MontantTTC.Sub(i.Paid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// InvoiceItem is a single priced line on an invoice, same shape as QuoteItem.
type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	Total       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total"`
	Position    int             `gorm:"not null;default:0" json:"position"`
}

// Payment records one verified payment against an invoice.
type Payment struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Method    string          `gorm:"type:varchar(50)" json:"method"` // card, transfer, cheque
	Reference string          `gorm:"type:varchar(100)" json:"reference"`
	PaidAt    time.Time       `gorm:"not null" json:"paid_at"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
