package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"weddingplanner/internal/model"
	"weddingplanner/internal/pdf"
	"weddingplanner/internal/repository"
	"weddingplanner/internal/storage"
	"weddingplanner/pkg/apperrors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type GeneratePurchaseOrderRequest struct {
	VendorID string `json:"vendor_id" binding:"required"`
}

type PurchaseOrderResponse struct {
	Reference  string `json:"reference"`
	DevisID    string `json:"devis_id"`
	VendorID   string `json:"vendor_id"`
	VendorName string `json:"vendor_name"`
	FileURL    string `json:"file_url"`
	// Reused is true when a previously generated order was returned
	// instead of creating a new artifact.
	Reused bool `json:"reused"`
}

// --- Interface ---

// PurchaseOrderService derives a vendor-facing bon de commande from an
// accepted quote. Generation is idempotent per (quote, vendor): the registry
// is checked unconditionally before any rendering, and repeated calls
// resolve to the same artifact.
type PurchaseOrderService interface {
	Generate(ctx context.Context, plannerID uuid.UUID, quoteID string, req GeneratePurchaseOrderRequest) (PurchaseOrderResponse, error)
}

type purchaseOrderService struct {
	quoteRepo  repository.QuoteRepository
	vendorRepo repository.VendorRepository
	docRepo    repository.DocumentRepository
	uploader   storage.Uploader
	logger     *zap.Logger
	now        func() time.Time
}

func NewPurchaseOrderService(
	quoteRepo repository.QuoteRepository,
	vendorRepo repository.VendorRepository,
	docRepo repository.DocumentRepository,
	uploader storage.Uploader,
	logger *zap.Logger,
) PurchaseOrderService {
	return &purchaseOrderService{
		quoteRepo:  quoteRepo,
		vendorRepo: vendorRepo,
		docRepo:    docRepo,
		uploader:   uploader,
		logger:     logger,
		now:        time.Now,
	}
}

// --- Implementation ---

func (s *purchaseOrderService) Generate(ctx context.Context, plannerID uuid.UUID, quoteID string, req GeneratePurchaseOrderRequest) (PurchaseOrderResponse, error) {
	if req.VendorID == "" {
		return PurchaseOrderResponse{}, apperrors.Validation("a vendor must be selected")
	}
	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		return PurchaseOrderResponse{}, apperrors.Validation("invalid vendor id")
	}
	qID, err := uuid.Parse(quoteID)
	if err != nil {
		return PurchaseOrderResponse{}, apperrors.Validation("invalid quote id")
	}

	quote, err := s.quoteRepo.FindByID(ctx, qID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PurchaseOrderResponse{}, apperrors.NotFound("quote", quoteID)
		}
		return PurchaseOrderResponse{}, apperrors.Store("find quote", err)
	}
	if quote.Status != model.QuoteAccepted {
		return PurchaseOrderResponse{}, apperrors.Validation("purchase orders require an accepted quote, %s is %q", quote.Reference, quote.Status)
	}

	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PurchaseOrderResponse{}, apperrors.NotFound("vendor", req.VendorID)
		}
		return PurchaseOrderResponse{}, apperrors.Store("find vendor", err)
	}

	reference := "BC-" + quote.Reference

	// Idempotency lookup: not an optimization but a correctness requirement.
	// A repeated click must reopen the existing artifact, never fan out
	// duplicate vendor-facing paperwork.
	existing, err := s.docRepo.FindPurchaseOrder(ctx, quote.ID, vendor.ID)
	if err == nil {
		return PurchaseOrderResponse{
			Reference:  reference,
			DevisID:    quote.ID.String(),
			VendorID:   vendor.ID.String(),
			VendorName: existing.VendorName,
			FileURL:    existing.FileURL,
			Reused:     true,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return PurchaseOrderResponse{}, apperrors.Store("lookup purchase order", err)
	}

	// Copy the quote's line items verbatim into the vendor document.
	lines := make([]pdf.Line, 0, len(quote.Items))
	for _, item := range quote.Items {
		lines = append(lines, pdf.Line{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		})
	}

	vendorInfo := vendor.ContactName
	if vendor.Email != "" {
		if vendorInfo != "" {
			vendorInfo += " - "
		}
		vendorInfo += vendor.Email
	}

	doc := pdf.Document{
		Kind:          pdf.KindBonDeCommande,
		Reference:     reference,
		Title:         quote.Title,
		RecipientName: vendor.Name,
		RecipientInfo: vendorInfo,
		Lines:         lines,
		MontantHT:     quote.MontantHT,
		TVA:           quote.TVA,
		MontantTTC:    quote.MontantTTC,
		IssuedAt:      s.now(),
	}

	pdfBytes, err := pdf.Render(doc)
	if err != nil {
		return PurchaseOrderResponse{}, fmt.Errorf("render purchase order pdf: %w", err)
	}

	fileName := fmt.Sprintf("%s.pdf", reference)
	url, err := s.uploader.Upload(ctx, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), fileName, "application/pdf")
	if err != nil {
		// No registry write happened: retrying is safe.
		return PurchaseOrderResponse{}, apperrors.Upload(err)
	}

	snapshot, err := json.Marshal(quote.Items)
	if err != nil {
		return PurchaseOrderResponse{}, fmt.Errorf("snapshot line items: %w", err)
	}

	entry := model.DocumentRegistryEntry{
		Type:       model.DocTypeBonDeCommande,
		Name:       fileName,
		FileURL:    url,
		FileType:   "application/pdf",
		ClientID:   quote.ClientID,
		DevisID:    &quote.ID,
		VendorID:   &vendor.ID,
		VendorName: vendor.Name,
		Status:     model.QuoteAccepted,
		Items:      snapshot,
		UploadedBy: plannerID,
		UploadedAt: s.now(),
	}
	if err := s.docRepo.Create(ctx, &entry); err != nil {
		return PurchaseOrderResponse{}, apperrors.Store("create purchase order entry", err)
	}

	s.logger.Info("purchase order generated",
		zap.String("reference", reference),
		zap.String("vendor", vendor.Name))

	return PurchaseOrderResponse{
		Reference:  reference,
		DevisID:    quote.ID.String(),
		VendorID:   vendor.ID.String(),
		VendorName: vendor.Name,
		FileURL:    url,
		Reused:     false,
	}, nil
}
