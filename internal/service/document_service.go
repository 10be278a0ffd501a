package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
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

type DocumentFilter struct {
	ClientID uuid.UUID
	Type     string
	Page     int
	Limit    int
}

type DocumentResponse struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Name       string  `json:"name"`
	FileURL    string  `json:"file_url"`
	FileType   string  `json:"file_type"`
	ClientID   string  `json:"client_id"`
	DevisID    *string `json:"devis_id"`
	InvoiceID  *string `json:"invoice_id"`
	VendorName string  `json:"vendor_name,omitempty"`
	Status     string  `json:"status"`
	UploadedAt string  `json:"uploaded_at"`
}

// ImportPreviewRequest turns a tall, pre-laid-out preview surface into a
// paginated PDF artifact in the registry. This is the rasterize-slice
// entry point: the dashboard captures its styled preview as one image and
// lets the backend handle pagination.
type ImportPreviewRequest struct {
	ClientID       string
	Name           string
	Type           string // registry document type, defaults to "autre"
	Surface        image.Image
	PixelsPerPoint float64
}

// --- Interface ---

type DocumentService interface {
	List(ctx context.Context, filter DocumentFilter) ([]DocumentResponse, int64, error)
	ImportPreview(ctx context.Context, plannerID uuid.UUID, req ImportPreviewRequest) (DocumentResponse, error)
}

type documentService struct {
	docRepo    repository.DocumentRepository
	clientRepo repository.ClientRepository
	uploader   storage.Uploader
	logger     *zap.Logger
	now        func() time.Time
}

func NewDocumentService(
	docRepo repository.DocumentRepository,
	clientRepo repository.ClientRepository,
	uploader storage.Uploader,
	logger *zap.Logger,
) DocumentService {
	return &documentService{
		docRepo:    docRepo,
		clientRepo: clientRepo,
		uploader:   uploader,
		logger:     logger,
		now:        time.Now,
	}
}

// --- Implementation ---

func (s *documentService) List(ctx context.Context, filter DocumentFilter) ([]DocumentResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	entries, total, err := s.docRepo.List(ctx, repository.DocumentListFilter{
		ClientID: filter.ClientID,
		Type:     filter.Type,
		Page:     filter.Page,
		Limit:    filter.Limit,
	})
	if err != nil {
		return nil, 0, apperrors.Store("list documents", err)
	}

	result := make([]DocumentResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, toDocumentResponse(e))
	}
	return result, total, nil
}

func (s *documentService) ImportPreview(ctx context.Context, plannerID uuid.UUID, req ImportPreviewRequest) (DocumentResponse, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return DocumentResponse{}, apperrors.Validation("invalid client id")
	}
	if req.Surface == nil {
		return DocumentResponse{}, apperrors.Validation("a preview image is required")
	}
	if req.Name == "" {
		return DocumentResponse{}, apperrors.Validation("a document name is required")
	}

	client, err := s.clientRepo.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DocumentResponse{}, apperrors.NotFound("client", req.ClientID)
		}
		return DocumentResponse{}, apperrors.Store("find client", err)
	}

	ratio := req.PixelsPerPoint
	if ratio <= 0 {
		// 96dpi browser capture over 72pt-per-inch pages.
		ratio = 96.0 / 72.0
	}

	data, err := pdf.RasterizeSlices(req.Surface, ratio)
	if err != nil {
		return DocumentResponse{}, fmt.Errorf("rasterize preview: %w", err)
	}

	docType := req.Type
	if docType == "" {
		docType = model.DocTypeAutre
	}

	fileName := fmt.Sprintf("%s.pdf", req.Name)
	url, err := s.uploader.Upload(ctx, bytes.NewReader(data), int64(len(data)), fileName, "application/pdf")
	if err != nil {
		return DocumentResponse{}, apperrors.Upload(err)
	}

	entry := model.DocumentRegistryEntry{
		Type:       docType,
		Name:       fileName,
		FileURL:    url,
		FileType:   "application/pdf",
		ClientID:   client.ID,
		UploadedBy: plannerID,
		UploadedAt: s.now(),
	}
	if err := s.docRepo.Create(ctx, &entry); err != nil {
		return DocumentResponse{}, apperrors.Store("create document entry", err)
	}

	return toDocumentResponse(entry), nil
}

// --- Helpers ---

func toDocumentResponse(e model.DocumentRegistryEntry) DocumentResponse {
	var devisID, invoiceID *string
	if e.DevisID != nil {
		v := e.DevisID.String()
		devisID = &v
	}
	if e.InvoiceID != nil {
		v := e.InvoiceID.String()
		invoiceID = &v
	}
	return DocumentResponse{
		ID:         e.ID.String(),
		Type:       e.Type,
		Name:       e.Name,
		FileURL:    e.FileURL,
		FileType:   e.FileType,
		ClientID:   e.ClientID.String(),
		DevisID:    devisID,
		InvoiceID:  invoiceID,
		VendorName: e.VendorName,
		Status:     e.Status,
		UploadedAt: e.UploadedAt.Format(time.RFC3339),
	}
}
