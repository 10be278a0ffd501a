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

type QuoteItemInput struct {
	Description string `json:"description" binding:"required"`
	Quantity    string `json:"quantity" binding:"required"`
	UnitPrice   string `json:"unit_price" binding:"required"`
}

type CreateQuoteRequest struct {
	ClientID    string           `json:"client_id" binding:"required"`
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description"`
	ValidUntil  string           `json:"valid_until" binding:"required"` // YYYY-MM-DD
	TVA         string           `json:"tva"`                            // VAT rate percent, defaults to 20
	Items       []QuoteItemInput `json:"items" binding:"required"`
	SendNow     bool             `json:"send_now"` // create directly in "sent" instead of "draft"
	// ImportedPDF replaces the rendered preview when the planner uploads an
	// externally produced document. Set by the handler, never bound from JSON.
	ImportedPDF []byte `json:"-"`
}

type SendQuoteRequest struct {
	Email   string `json:"email"`   // recipient override, defaults to the quote's client email
	Message string `json:"message"` // defaults to a canned message
}

type UpdateQuoteRequest struct {
	ValidUntil  *string `json:"valid_until"`
	Description *string `json:"description"`
}

type QuoteFilter struct {
	PlannerID uuid.UUID
	ClientID  uuid.UUID
	Status    string
	Page      int
	Limit     int
}

type QuoteItemResponse struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Total       string `json:"total"`
}

type QuoteResponse struct {
	ID          string              `json:"id"`
	Reference   string              `json:"reference"`
	ClientID    string              `json:"client_id"`
	ClientName  string              `json:"client_name"`
	ClientEmail string              `json:"client_email"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Items       []QuoteItemResponse `json:"items"`
	MontantHT   string              `json:"montant_ht"`
	TVA         string              `json:"tva"`
	MontantTTC  string              `json:"montant_ttc"`
	ValidUntil  string              `json:"valid_until"`
	Status      string              `json:"status"`
	PDFURL      string              `json:"pdf_url"`
	SentAt      *string             `json:"sent_at"`
	CreatedAt   string              `json:"created_at"`
}

// QuotePDFResult is what the download operation returns: either the durable
// URL of the generated artifact, or an on-the-fly snapshot when no PDF was
// ever generated.
type QuotePDFResult struct {
	URL      string
	Data     []byte
	FileName string
}

// defaultSendMessage is the canned client-facing message used when the
// planner sends a quote without writing one.
const defaultSendMessage = "Bonjour, veuillez trouver ci-joint votre devis. N'hésitez pas à nous contacter pour toute question."

// invoiceDueDelay is how long a client has to pay an invoice created from an
// accepted quote.
const invoiceDueDelay = 14 * 24 * time.Hour

// --- Interface ---

type QuoteService interface {
	Create(ctx context.Context, plannerID uuid.UUID, req CreateQuoteRequest) (QuoteResponse, error)
	Get(ctx context.Context, id string) (QuoteResponse, error)
	List(ctx context.Context, filter QuoteFilter) ([]QuoteResponse, int64, error)
	Send(ctx context.Context, id string, req SendQuoteRequest) (QuoteResponse, error)
	Accept(ctx context.Context, id string) (QuoteResponse, error)
	Reject(ctx context.Context, id string) (QuoteResponse, error)
	Update(ctx context.Context, id string, req UpdateQuoteRequest) (QuoteResponse, error)
	Delete(ctx context.Context, id string) error
	DownloadPDF(ctx context.Context, id string) (QuotePDFResult, error)
}

type quoteService struct {
	quoteRepo   repository.QuoteRepository
	invoiceRepo repository.InvoiceRepository
	docRepo     repository.DocumentRepository
	clientRepo  repository.ClientRepository
	uploader    storage.Uploader
	notifier    notify.Notifier
	txManager   repository.TransactionManager
	logger      *zap.Logger
	now         func() time.Time
}

func NewQuoteService(
	quoteRepo repository.QuoteRepository,
	invoiceRepo repository.InvoiceRepository,
	docRepo repository.DocumentRepository,
	clientRepo repository.ClientRepository,
	uploader storage.Uploader,
	notifier notify.Notifier,
	txManager repository.TransactionManager,
	logger *zap.Logger,
) QuoteService {
	return &quoteService{
		quoteRepo:   quoteRepo,
		invoiceRepo: invoiceRepo,
		docRepo:     docRepo,
		clientRepo:  clientRepo,
		uploader:    uploader,
		notifier:    notifier,
		txManager:   txManager,
		logger:      logger,
		now:         time.Now,
	}
}

// --- Implementation ---

func (s *quoteService) Create(ctx context.Context, plannerID uuid.UUID, req CreateQuoteRequest) (QuoteResponse, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return QuoteResponse{}, apperrors.Validation("invalid client id")
	}

	items, montantHT, err := parseItems(req.Items)
	if err != nil {
		return QuoteResponse{}, err
	}

	tva := model.DefaultVATRate
	if req.TVA != "" {
		tva, err = decimal.NewFromString(req.TVA)
		if err != nil || tva.IsNegative() {
			return QuoteResponse{}, apperrors.Validation("invalid VAT rate")
		}
	}

	validUntil, err := time.Parse("2006-01-02", req.ValidUntil)
	if err != nil {
		return QuoteResponse{}, apperrors.Validation("invalid valid_until date, expected YYYY-MM-DD")
	}

	client, err := s.clientRepo.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return QuoteResponse{}, apperrors.NotFound("client", req.ClientID)
		}
		return QuoteResponse{}, apperrors.Store("find client", err)
	}

	montantTTC := withVAT(montantHT, tva)

	reference, err := s.generateReference(ctx)
	if err != nil {
		return QuoteResponse{}, apperrors.Store("generate reference", err)
	}

	quote := model.Quote{
		Reference:   reference,
		PlannerID:   plannerID,
		ClientID:    client.ID,
		ClientName:  client.Name,
		ClientEmail: client.Email,
		Title:       req.Title,
		Description: req.Description,
		Items:       items,
		MontantHT:   montantHT,
		TVA:         tva,
		MontantTTC:  montantTTC,
		ValidUntil:  validUntil,
		Status:      model.QuoteDraft,
	}
	if req.SendNow {
		now := s.now()
		quote.Status = model.QuoteSent
		quote.SentAt = &now
		quote.SentTo = client.Email
		quote.SentMessage = defaultSendMessage
	}

	// PDF before any write: an upload failure must leave nothing behind.
	pdfBytes := req.ImportedPDF
	if len(pdfBytes) == 0 {
		pdfBytes, err = pdf.Render(s.quoteDocument(&quote))
		if err != nil {
			return QuoteResponse{}, fmt.Errorf("render quote pdf: %w", err)
		}
	}

	fileName := fmt.Sprintf("%s.pdf", reference)
	url, err := s.uploader.Upload(ctx, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), fileName, "application/pdf")
	if err != nil {
		return QuoteResponse{}, apperrors.Upload(err)
	}
	quote.PDFURL = url

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.quoteRepo.Create(txCtx, &quote); createErr != nil {
			return apperrors.Store("create quote", createErr)
		}
		entry := model.DocumentRegistryEntry{
			Type:       model.DocTypeDevis,
			Name:       fileName,
			FileURL:    url,
			FileType:   "application/pdf",
			ClientID:   client.ID,
			DevisID:    &quote.ID,
			Status:     quote.Status,
			UploadedBy: plannerID,
			UploadedAt: s.now(),
		}
		if mirrorErr := s.docRepo.Create(txCtx, &entry); mirrorErr != nil {
			return apperrors.Store("mirror quote document", mirrorErr)
		}
		return nil
	})
	if err != nil {
		return QuoteResponse{}, err
	}

	s.notifyClient(ctx, client, notify.Event{
		Title: "Nouveau devis " + quote.Reference,
		Body:  fmt.Sprintf("Un devis de %s vous a été envoyé.", pdf.FormatMoney(quote.MontantTTC)),
		Link:  "/documents",
		Email: quote.ClientEmail,
		Meta:  map[string]string{"devis_id": quote.ID.String()},
	})

	return toQuoteResponse(quote), nil
}

func (s *quoteService) Get(ctx context.Context, id string) (QuoteResponse, error) {
	quote, err := s.findQuote(ctx, id)
	if err != nil {
		return QuoteResponse{}, err
	}
	return toQuoteResponse(*quote), nil
}

func (s *quoteService) List(ctx context.Context, filter QuoteFilter) ([]QuoteResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	quotes, total, err := s.quoteRepo.List(ctx, repository.QuoteListFilter{
		PlannerID: filter.PlannerID,
		ClientID:  filter.ClientID,
		Status:    filter.Status,
		Page:      filter.Page,
		Limit:     filter.Limit,
	})
	if err != nil {
		return nil, 0, apperrors.Store("list quotes", err)
	}

	result := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		result = append(result, toQuoteResponse(q))
	}
	return result, total, nil
}

func (s *quoteService) Send(ctx context.Context, id string, req SendQuoteRequest) (QuoteResponse, error) {
	quote, err := s.findQuote(ctx, id)
	if err != nil {
		return QuoteResponse{}, err
	}

	if quote.Status != model.QuoteDraft {
		return QuoteResponse{}, apperrors.Validation("quote %s cannot be sent from status %q", quote.Reference, quote.Status)
	}

	recipient := req.Email
	if recipient == "" {
		recipient = quote.ClientEmail
	}
	message := req.Message
	if message == "" {
		message = defaultSendMessage
	}

	now := s.now()
	fields := map[string]interface{}{
		"status":       model.QuoteSent,
		"sent_at":      now,
		"sent_to":      recipient,
		"sent_message": message,
	}
	if err := s.quoteRepo.UpdateFields(ctx, quote.ID, fields); err != nil {
		return QuoteResponse{}, apperrors.Store("send quote", err)
	}
	quote.Status = model.QuoteSent
	quote.SentAt = &now
	quote.SentTo = recipient
	quote.SentMessage = message

	if client, clientErr := s.clientRepo.FindByID(ctx, quote.ClientID); clientErr == nil {
		s.notifyClient(ctx, client, notify.Event{
			Title: "Devis " + quote.Reference,
			Body:  message,
			Link:  "/documents",
			Email: recipient,
			Meta:  map[string]string{"devis_id": quote.ID.String()},
		})
	}

	return toQuoteResponse(*quote), nil
}

// Accept moves a sent quote to accepted and fans out a pending invoice for
// the full TTC amount, due in 14 days. Valid only from "sent": re-deciding
// an already accepted or rejected quote would mint a duplicate invoice.
func (s *quoteService) Accept(ctx context.Context, id string) (QuoteResponse, error) {
	quote, err := s.findQuote(ctx, id)
	if err != nil {
		return QuoteResponse{}, err
	}

	if quote.Status != model.QuoteSent {
		return QuoteResponse{}, apperrors.Validation("quote %s cannot be accepted from status %q", quote.Reference, quote.Status)
	}

	now := s.now()
	invoiceRef, err := s.generateInvoiceReference(ctx)
	if err != nil {
		return QuoteResponse{}, apperrors.Store("generate invoice reference", err)
	}

	invoiceItems := make([]model.InvoiceItem, 0, len(quote.Items))
	for _, item := range quote.Items {
		invoiceItems = append(invoiceItems, model.InvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
			Position:    item.Position,
		})
	}

	invoice := model.Invoice{
		Reference:  invoiceRef,
		Type:       model.InvoiceTypeStandard,
		PlannerID:  quote.PlannerID,
		ClientID:   quote.ClientID,
		ClientName: quote.ClientName,
		DevisID:    &quote.ID,
		Items:      invoiceItems,
		MontantHT:  quote.MontantHT,
		TVA:        quote.TVA,
		MontantTTC: quote.MontantTTC,
		Paid:       decimal.Zero,
		DueDate:    now.Add(invoiceDueDelay),
		Status:     model.InvoicePending,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updErr := s.quoteRepo.UpdateFields(txCtx, quote.ID, map[string]interface{}{
			"status":     model.QuoteAccepted,
			"decided_at": now,
		}); updErr != nil {
			return apperrors.Store("accept quote", updErr)
		}
		if invErr := s.invoiceRepo.Create(txCtx, &invoice); invErr != nil {
			return apperrors.Store("create invoice from quote", invErr)
		}
		return nil
	})
	if err != nil {
		return QuoteResponse{}, err
	}
	quote.Status = model.QuoteAccepted
	quote.DecidedAt = &now

	s.notifier.Notify(ctx, quote.PlannerID, notify.Event{
		Title: "Devis " + quote.Reference + " accepté",
		Body:  fmt.Sprintf("%s a accepté le devis. Facture %s créée.", quote.ClientName, invoice.Reference),
		Link:  "/invoices/" + invoice.ID.String(),
		Meta:  map[string]string{"devis_id": quote.ID.String(), "invoice_id": invoice.ID.String()},
	})

	return toQuoteResponse(*quote), nil
}

// Reject moves a sent quote to rejected. Terminal, like Accept.
func (s *quoteService) Reject(ctx context.Context, id string) (QuoteResponse, error) {
	quote, err := s.findQuote(ctx, id)
	if err != nil {
		return QuoteResponse{}, err
	}

	if quote.Status != model.QuoteSent {
		return QuoteResponse{}, apperrors.Validation("quote %s cannot be rejected from status %q", quote.Reference, quote.Status)
	}

	now := s.now()
	if err := s.quoteRepo.UpdateFields(ctx, quote.ID, map[string]interface{}{
		"status":     model.QuoteRejected,
		"decided_at": now,
	}); err != nil {
		return QuoteResponse{}, apperrors.Store("reject quote", err)
	}
	quote.Status = model.QuoteRejected
	quote.DecidedAt = &now

	s.notifier.Notify(ctx, quote.PlannerID, notify.Event{
		Title: "Devis " + quote.Reference + " refusé",
		Body:  fmt.Sprintf("%s a refusé le devis.", quote.ClientName),
		Link:  "/quotes/" + quote.ID.String(),
		Meta:  map[string]string{"devis_id": quote.ID.String()},
	})

	return toQuoteResponse(*quote), nil
}

// Update patches the mutable fields only. It never touches line items,
// totals or pdf_url: the generated PDF stays immutable after send.
func (s *quoteService) Update(ctx context.Context, id string, req UpdateQuoteRequest) (QuoteResponse, error) {
	quote, err := s.findQuote(ctx, id)
	if err != nil {
		return QuoteResponse{}, err
	}

	fields := map[string]interface{}{}
	if req.ValidUntil != nil {
		validUntil, parseErr := time.Parse("2006-01-02", *req.ValidUntil)
		if parseErr != nil {
			return QuoteResponse{}, apperrors.Validation("invalid valid_until date, expected YYYY-MM-DD")
		}
		fields["valid_until"] = validUntil
		quote.ValidUntil = validUntil
	}
	if req.Description != nil {
		fields["description"] = *req.Description
		quote.Description = *req.Description
	}
	if len(fields) == 0 {
		return toQuoteResponse(*quote), nil
	}

	if err := s.quoteRepo.UpdateFields(ctx, quote.ID, fields); err != nil {
		return QuoteResponse{}, apperrors.Store("update quote", err)
	}
	return toQuoteResponse(*quote), nil
}

// Delete hard-deletes the quote and its registry mirror in one transaction.
func (s *quoteService) Delete(ctx context.Context, id string) error {
	quote, err := s.findQuote(ctx, id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.docRepo.DeleteByDevisID(txCtx, quote.ID); delErr != nil {
			return apperrors.Store("delete quote documents", delErr)
		}
		if delErr := s.quoteRepo.Delete(txCtx, quote.ID); delErr != nil {
			return apperrors.Store("delete quote", delErr)
		}
		return nil
	})
}

// DownloadPDF returns the stored URL when one exists. Regenerating here
// would risk drift between the artifact the client received and the current
// record, so a fresh render happens only when no PDF was ever generated,
// and that snapshot is not persisted.
func (s *quoteService) DownloadPDF(ctx context.Context, id string) (QuotePDFResult, error) {
	quote, err := s.findQuote(ctx, id)
	if err != nil {
		return QuotePDFResult{}, err
	}

	if quote.PDFURL != "" {
		return QuotePDFResult{URL: quote.PDFURL}, nil
	}

	data, err := pdf.Render(s.quoteDocument(quote))
	if err != nil {
		return QuotePDFResult{}, fmt.Errorf("render quote pdf: %w", err)
	}
	return QuotePDFResult{
		Data:     data,
		FileName: quote.Reference + ".pdf",
	}, nil
}

// --- Helpers ---

func (s *quoteService) findQuote(ctx context.Context, id string) (*model.Quote, error) {
	quoteID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Validation("invalid quote id")
	}
	quote, err := s.quoteRepo.FindByID(ctx, quoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("quote", id)
		}
		return nil, apperrors.Store("find quote", err)
	}
	return quote, nil
}

func (s *quoteService) quoteDocument(quote *model.Quote) pdf.Document {
	lines := make([]pdf.Line, 0, len(quote.Items))
	for _, item := range quote.Items {
		lines = append(lines, pdf.Line{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		})
	}
	validUntil := quote.ValidUntil
	issuedAt := quote.CreatedAt
	if issuedAt.IsZero() {
		issuedAt = s.now()
	}
	return pdf.Document{
		Kind:          pdf.KindDevis,
		Reference:     quote.Reference,
		Title:         quote.Title,
		RecipientName: quote.ClientName,
		RecipientInfo: quote.ClientEmail,
		Description:   quote.Description,
		Lines:         lines,
		MontantHT:     quote.MontantHT,
		TVA:           quote.TVA,
		MontantTTC:    quote.MontantTTC,
		ValidUntil:    &validUntil,
		IssuedAt:      issuedAt,
	}
}

// notifyClient targets the client's portal account when one exists,
// otherwise keys the in-app record on the client id so the portal can
// surface it after the account is created.
func (s *quoteService) notifyClient(ctx context.Context, client *model.Client, ev notify.Event) {
	recipient := client.ID
	if client.UserID != nil {
		recipient = *client.UserID
	}
	s.notifier.Notify(ctx, recipient, ev)
}

func (s *quoteService) generateReference(ctx context.Context) (string, error) {
	prefix := "DEV-" + s.now().Format("20060102") + "-"
	count, err := s.quoteRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func (s *quoteService) generateInvoiceReference(ctx context.Context) (string, error) {
	prefix := "FAC-" + s.now().Format("20060102") + "-"
	count, err := s.invoiceRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

// parseItems validates and converts line-item inputs, returning the items
// and the summed montant HT. Raised errors are all ValidationError and no
// write has happened yet.
func parseItems(inputs []QuoteItemInput) ([]model.QuoteItem, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, apperrors.Validation("at least one line item is required")
	}

	items := make([]model.QuoteItem, 0, len(inputs))
	montantHT := decimal.Zero
	for i, in := range inputs {
		if in.Description == "" {
			return nil, decimal.Zero, apperrors.Validation("line %d: description is required", i+1)
		}
		qty, err := decimal.NewFromString(in.Quantity)
		if err != nil || !qty.IsPositive() {
			return nil, decimal.Zero, apperrors.Validation("line %d: quantity must be greater than zero", i+1)
		}
		unitPrice, err := decimal.NewFromString(in.UnitPrice)
		if err != nil || unitPrice.IsNegative() {
			return nil, decimal.Zero, apperrors.Validation("line %d: unit price must not be negative", i+1)
		}
		total := qty.Mul(unitPrice).Round(2)
		items = append(items, model.QuoteItem{
			Description: in.Description,
			Quantity:    qty,
			UnitPrice:   unitPrice,
			Total:       total,
			Position:    i,
		})
		montantHT = montantHT.Add(total)
	}
	return items, montantHT, nil
}

// withVAT applies a percent VAT rate: ht × (1 + tva/100), rounded to cents.
func withVAT(ht, tva decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	return ht.Mul(hundred.Add(tva)).Div(hundred).Round(2)
}

func toQuoteResponse(q model.Quote) QuoteResponse {
	items := make([]QuoteItemResponse, 0, len(q.Items))
	for _, item := range q.Items {
		items = append(items, QuoteItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Total:       item.Total.StringFixed(2),
		})
	}

	var sentAt *string
	if q.SentAt != nil {
		v := q.SentAt.Format(time.RFC3339)
		sentAt = &v
	}

	return QuoteResponse{
		ID:          q.ID.String(),
		Reference:   q.Reference,
		ClientID:    q.ClientID.String(),
		ClientName:  q.ClientName,
		ClientEmail: q.ClientEmail,
		Title:       q.Title,
		Description: q.Description,
		Items:       items,
		MontantHT:   q.MontantHT.StringFixed(2),
		TVA:         q.TVA.String(),
		MontantTTC:  q.MontantTTC.StringFixed(2),
		ValidUntil:  q.ValidUntil.Format("2006-01-02"),
		Status:      q.Status,
		PDFURL:      q.PDFURL,
		SentAt:      sentAt,
		CreatedAt:   q.CreatedAt.Format(time.RFC3339),
	}
}
