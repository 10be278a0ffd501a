package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DocumentType enum constants
const (
	DocTypeDevis         = "devis"
	DocTypeFacture       = "facture"
	DocTypeBonDeCommande = "bon_de_commande"
	DocTypeContrat       = "contrat"
	DocTypeAutre         = "autre"
)

// DocumentRegistryEntry is a denormalized pointer to a generated artifact.
// It gives the client portal a single place to list every document
// regardless of source table. It mirrors the quote/invoice status at
// creation time and is never the source of truth for it.
type DocumentRegistryEntry struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Type       string         `gorm:"type:varchar(30);not null;index" json:"type"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	FileURL    string         `gorm:"type:text;not null" json:"file_url"`
	FileType   string         `gorm:"type:varchar(100)" json:"file_type"`
	ClientID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"client_id"`
	DevisID    *uuid.UUID     `gorm:"type:uuid;index" json:"devis_id"`
	InvoiceID  *uuid.UUID     `gorm:"type:uuid;index" json:"invoice_id"`
	VendorID   *uuid.UUID     `gorm:"type:uuid;index" json:"vendor_id"`
	VendorName string         `gorm:"type:varchar(255)" json:"vendor_name"`
	Status     string         `gorm:"type:varchar(20)" json:"status"`
	Items      datatypes.JSON `gorm:"type:jsonb" json:"items,omitempty"` // line snapshot for bons de commande
	UploadedBy uuid.UUID      `gorm:"type:uuid;not null" json:"uploaded_by"`
	UploadedAt time.Time      `gorm:"not null" json:"uploaded_at"`
}

// TableName keeps the portal-facing registry under a single flat table.
func (DocumentRegistryEntry) TableName() string { return "documents" }
