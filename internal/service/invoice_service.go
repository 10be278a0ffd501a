package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"weddingplanner/internal/model"
	"weddingplanner/internal/notify"
	"weddingplanner/internal/pdf"
	"weddingplanner/internal/repository"
	"weddingplanner/internal/storage"
	"weddingplanner/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateInvoiceRequest struct {
	ClientID string           `json:"client_id" binding:"required"`
	Type     string           `json:"type" binding:"required,oneof=invoice deposit"`
	DueDate  string           `json:"due_date" binding:"required"` // YYYY-MM-DD
	TVA      string           `json:"tva"`
	Notes    string           `json:"notes"`
	DevisID  string           `json:"devis_id"` // optional originating quote
	Items    []QuoteItemInput `json:"items" binding:"required"`
	// ImportedPDF replaces the rendered document, same as on quotes.
	ImportedPDF []byte `json:"-"`
}

type RecordPaymentRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

type InvoiceFilter struct {
	PlannerID uuid.UUID
	ClientID  uuid.UUID
	Status    string
	Type      string
	Page      int
	Limit     int
}

type InvoiceResponse struct {
	ID         string              `json:"id"`
	Reference  string              `json:"reference"`
	Type       string              `json:"type"`
	ClientID   string              `json:"client_id"`
	ClientName string              `json:"client_name"`
	DevisID    *string             `json:"devis_id"`
	Items      []QuoteItemResponse `json:"items"`
	MontantHT  string              `json:"montant_ht"`
	TVA        string              `json:"tva"`
	MontantTTC string              `json:"montant_ttc"`
	Paid       string              `json:"paid"`
	AmountDue  string              `json:"amount_due"`
	DueDate    string              `json:"due_date"`
	Status     string              `json:"status"`
	PDFURL     string              `json:"pdf_url"`
	Notes      string              `json:"notes"`
	CreatedAt  string              `json:"created_at"`
}

// PaymentVerifier is the external reconciliation collaborator. The core
// records a payment only after the verifier confirms it.
type PaymentVerifier interface {
	Verify(ctx context.Context, invoiceID uuid.UUID, amount decimal.Decimal, reference string) error
}

// --- Interface ---

type InvoiceService interface {
	Create(ctx context.Context, plannerID uuid.UUID, req CreateInvoiceRequest) (InvoiceResponse, error)
	Get(ctx context.Context, id string) (InvoiceResponse, error)
	List(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error)
	RecordPayment(ctx context.Context, id string, req RecordPaymentRequest) (InvoiceResponse, error)
	// MarkOverdue flips pending/partial invoices past their due date to
	// overdue. Returns how many were flipped. Run periodically by the
	// scheduler in main.
	MarkOverdue(ctx context.Context) (int, error)
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	docRepo     repository.DocumentRepository
	clientRepo  repository.ClientRepository
	uploader    storage.Uploader
	notifier    notify.Notifier
	verifier    PaymentVerifier
	txManager   repository.TransactionManager
	logger      *zap.Logger
	now         func() time.Time
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	docRepo repository.DocumentRepository,
	clientRepo repository.ClientRepository,
	uploader storage.Uploader,
	notifier notify.Notifier,
	verifier PaymentVerifier,
	txManager repository.TransactionManager,
	logger *zap.Logger,
) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		docRepo:     docRepo,
		clientRepo:  clientRepo,
		uploader:    uploader,
		notifier:    notifier,
		verifier:    verifier,
		txManager:   txManager,
		logger:      logger,
		now:         time.Now,
	}
}

// --- Implementation ---

func (s *invoiceService) Create(ctx context.Context, plannerID uuid.UUID, req CreateInvoiceRequest) (InvoiceResponse, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return InvoiceResponse{}, apperrors.Validation("invalid client id")
	}
	if req.Type != model.InvoiceTypeStandard && req.Type != model.InvoiceTypeDeposit {
		return InvoiceResponse{}, apperrors.Validation("type must be invoice or deposit")
	}

	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return InvoiceResponse{}, apperrors.Validation("invalid due_date, expected YYYY-MM-DD")
	}

	quoteItems, montantHT, err := parseItems(req.Items)
	if err != nil {
		return InvoiceResponse{}, err
	}

	tva := model.DefaultVATRate
	if req.TVA != "" {
		tva, err = decimal.NewFromString(req.TVA)
		if err != nil || tva.IsNegative() {
			return InvoiceResponse{}, apperrors.Validation("invalid VAT rate")
		}
	}

	var devisID *uuid.UUID
	if req.DevisID != "" {
		parsed, parseErr := uuid.Parse(req.DevisID)
		if parseErr != nil {
			return InvoiceResponse{}, apperrors.Validation("invalid devis id")
		}
		devisID = &parsed
	}

	client, err := s.clientRepo.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResponse{}, apperrors.NotFound("client", req.ClientID)
		}
		return InvoiceResponse{}, apperrors.Store("find client", err)
	}

	items := make([]model.InvoiceItem, 0, len(quoteItems))
	for _, item := range quoteItems {
		items = append(items, model.InvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
			Position:    item.Position,
		})
	}

	reference, err := s.generateReference(ctx)
	if err != nil {
		return InvoiceResponse{}, apperrors.Store("generate reference", err)
	}

	invoice := model.Invoice{
		Reference:  reference,
		Type:       req.Type,
		PlannerID:  plannerID,
		ClientID:   client.ID,
		ClientName: client.Name,
		DevisID:    devisID,
		Notes:      req.Notes,
		Items:      items,
		MontantHT:  montantHT,
		TVA:        tva,
		MontantTTC: withVAT(montantHT, tva),
		Paid:       decimal.Zero,
		DueDate:    dueDate,
		Status:     model.InvoicePending,
	}

	pdfBytes := req.ImportedPDF
	if len(pdfBytes) == 0 {
		pdfBytes, err = pdf.Render(s.invoiceDocument(&invoice))
		if err != nil {
			return InvoiceResponse{}, fmt.Errorf("render invoice pdf: %w", err)
		}
	}

	fileName := fmt.Sprintf("%s.pdf", reference)
	url, err := s.uploader.Upload(ctx, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), fileName, "application/pdf")
	if err != nil {
		return InvoiceResponse{}, apperrors.Upload(err)
	}
	invoice.PDFURL = url

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.invoiceRepo.Create(txCtx, &invoice); createErr != nil {
			return apperrors.Store("create invoice", createErr)
		}
		entry := model.DocumentRegistryEntry{
			Type:       model.DocTypeFacture,
			Name:       fileName,
			FileURL:    url,
			FileType:   "application/pdf",
			ClientID:   client.ID,
			InvoiceID:  &invoice.ID,
			Status:     invoice.Status,
			UploadedBy: plannerID,
			UploadedAt: s.now(),
		}
		if mirrorErr := s.docRepo.Create(txCtx, &entry); mirrorErr != nil {
			return apperrors.Store("mirror invoice document", mirrorErr)
		}
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	recipient := client.ID
	if client.UserID != nil {
		recipient = *client.UserID
	}
	s.notifier.Notify(ctx, recipient, notify.Event{
		Title: "Nouvelle facture " + invoice.Reference,
		Body:  fmt.Sprintf("Une facture de %s est disponible, à régler avant le %s.", pdf.FormatMoney(invoice.MontantTTC), dueDate.Format("02/01/2006")),
		Link:  "/documents",
		Email: client.Email,
		Meta:  map[string]string{"invoice_id": invoice.ID.String()},
	})

	return toInvoiceResponse(invoice), nil
}

func (s *invoiceService) Get(ctx context.Context, id string) (InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, id)
	if err != nil {
		return InvoiceResponse{}, err
	}
	return toInvoiceResponse(*invoice), nil
}

func (s *invoiceService) List(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	invoices, total, err := s.invoiceRepo.List(ctx, repository.InvoiceListFilter{
		PlannerID: filter.PlannerID,
		ClientID:  filter.ClientID,
		Status:    filter.Status,
		Type:      filter.Type,
		Page:      filter.Page,
		Limit:     filter.Limit,
	})
	if err != nil {
		return nil, 0, apperrors.Store("list invoices", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, toInvoiceResponse(inv))
	}
	return result, total, nil
}

// RecordPayment runs the external verifier first, then records the payment
// and refreshes the cached paid/amount_due view.
func (s *invoiceService) RecordPayment(ctx context.Context, id string, req RecordPaymentRequest) (InvoiceResponse, error) {
	invoice, err := s.findInvoice(ctx, id)
	if err != nil {
		return InvoiceResponse{}, err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return InvoiceResponse{}, apperrors.Validation("payment amount must be greater than zero")
	}

	if s.verifier != nil {
		if verifyErr := s.verifier.Verify(ctx, invoice.ID, amount, req.Reference); verifyErr != nil {
			return InvoiceResponse{}, apperrors.Validation("payment could not be verified: %v", verifyErr)
		}
	}

	now := s.now()
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		payment := model.Payment{
			InvoiceID: invoice.ID,
			Amount:    amount,
			Method:    req.Method,
			Reference: req.Reference,
			PaidAt:    now,
		}
		if payErr := s.invoiceRepo.CreatePayment(txCtx, &payment); payErr != nil {
			return apperrors.Store("record payment", payErr)
		}

		invoice.Paid = invoice.Paid.Add(amount)
		switch {
		case invoice.Paid.GreaterThanOrEqual(invoice.MontantTTC):
			invoice.Status = model.InvoicePaid
		default:
			invoice.Status = model.InvoicePartial
		}
		if updErr := s.invoiceRepo.Update(txCtx, invoice); updErr != nil {
			return apperrors.Store("update invoice", updErr)
		}
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	s.notifier.Notify(ctx, invoice.PlannerID, notify.Event{
		Title: "Paiement reçu sur " + invoice.Reference,
		Body:  fmt.Sprintf("%s réglés, reste dû %s.", pdf.FormatMoney(amount), pdf.FormatMoney(invoice.AmountDue())),
		Link:  "/invoices/" + invoice.ID.String(),
		Meta:  map[string]string{"invoice_id": invoice.ID.String()},
	})

	return toInvoiceResponse(*invoice), nil
}

func (s *invoiceService) MarkOverdue(ctx context.Context) (int, error) {
	due, err := s.invoiceRepo.ListDueBefore(ctx, s.now(), []string{model.InvoicePending, model.InvoicePartial})
	if err != nil {
		return 0, apperrors.Store("list due invoices", err)
	}

	flipped := 0
	for i := range due {
		invoice := &due[i]
		invoice.Status = model.InvoiceOverdue
		if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
			s.logger.Warn("overdue flip failed",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Error(err))
			continue
		}
		flipped++
	}
	if flipped > 0 {
		s.logger.Info("overdue sweep complete", zap.Int("flipped", flipped))
	}
	return flipped, nil
}

// --- Helpers ---

func (s *invoiceService) findInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Validation("invalid invoice id")
	}
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("invoice", id)
		}
		return nil, apperrors.Store("find invoice", err)
	}
	return invoice, nil
}

func (s *invoiceService) invoiceDocument(invoice *model.Invoice) pdf.Document {
	lines := make([]pdf.Line, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		lines = append(lines, pdf.Line{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		})
	}
	dueDate := invoice.DueDate
	issuedAt := invoice.CreatedAt
	if issuedAt.IsZero() {
		issuedAt = s.now()
	}
	title := "Facture"
	if invoice.Type == model.InvoiceTypeDeposit {
		title = "Facture d'acompte"
	}
	return pdf.Document{
		Kind:          pdf.KindFacture,
		Reference:     invoice.Reference,
		Title:         title,
		RecipientName: invoice.ClientName,
		Description:   invoice.Notes,
		Lines:         lines,
		MontantHT:     invoice.MontantHT,
		TVA:           invoice.TVA,
		MontantTTC:    invoice.MontantTTC,
		DueDate:       &dueDate,
		IssuedAt:      issuedAt,
	}
}

func (s *invoiceService) generateReference(ctx context.Context) (string, error) {
	prefix := "FAC-" + s.now().Format("20060102") + "-"
	count, err := s.invoiceRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func toInvoiceResponse(inv model.Invoice) InvoiceResponse {
	items := make([]QuoteItemResponse, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, QuoteItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Total:       item.Total.StringFixed(2),
		})
	}

	var devisID *string
	if inv.DevisID != nil {
		v := inv.DevisID.String()
		devisID = &v
	}

	return InvoiceResponse{
		ID:         inv.ID.String(),
		Reference:  inv.Reference,
		Type:       inv.Type,
		ClientID:   inv.ClientID.String(),
		ClientName: inv.ClientName,
		DevisID:    devisID,
		Items:      items,
		MontantHT:  inv.MontantHT.StringFixed(2),
		TVA:        inv.TVA.String(),
		MontantTTC: inv.MontantTTC.StringFixed(2),
		Paid:       inv.Paid.StringFixed(2),
		AmountDue:  inv.AmountDue().StringFixed(2),
		DueDate:    inv.DueDate.Format("2006-01-02"),
		Status:     inv.Status,
		PDFURL:     inv.PDFURL,
		Notes:      inv.Notes,
		CreatedAt:  inv.CreatedAt.Format(time.RFC3339),
	}
}
