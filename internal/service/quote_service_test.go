package service

import (
	"context"
	"testing"
	"time"

	"weddingplanner/internal/model"
	"weddingplanner/internal/repository"
	"weddingplanner/pkg/apperrors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type quoteFixture struct {
	svc      QuoteService
	db       *gorm.DB
	uploader *fakeUploader
	notifier *fakeNotifier
}

func newQuoteFixture(t *testing.T) *quoteFixture {
	t.Helper()
	db := openTestDB(t)
	uploader := &fakeUploader{}
	notifier := &fakeNotifier{}
	svc := NewQuoteService(
		repository.NewQuoteRepository(db),
		repository.NewInvoiceRepository(db),
		repository.NewDocumentRepository(db),
		repository.NewClientRepository(db),
		uploader,
		notifier,
		repository.NewTransactionManager(db),
		zap.NewNop(),
	).(*quoteService)
	svc.now = func() time.Time { return testNow }
	return &quoteFixture{svc: svc, db: db, uploader: uploader, notifier: notifier}
}

func (f *quoteFixture) createQuote(t *testing.T, plannerID uuid.UUID, clientID string, items []QuoteItemInput) QuoteResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), plannerID, CreateQuoteRequest{
		ClientID:   clientID,
		Title:      "Organisation mariage château",
		ValidUntil: "2026-06-30",
		Items:      items,
	})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	return resp
}

func TestCreateQuoteComputesTotals(t *testing.T) {
	f := newQuoteFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)

	resp := f.createQuote(t, plannerID, client.ID.String(), []QuoteItemInput{
		{Description: "Organisation complète", Quantity: "1", UnitPrice: "2500"},
	})

	if resp.MontantHT != "2500.00" {
		t.Errorf("montant HT = %s, want 2500.00", resp.MontantHT)
	}
	if resp.MontantTTC != "3000.00" {
		t.Errorf("montant TTC = %s, want 3000.00", resp.MontantTTC)
	}
	if resp.TVA != "20" {
		t.Errorf("tva = %s, want 20", resp.TVA)
	}
	if resp.Status != model.QuoteDraft {
		t.Errorf("status = %s, want draft", resp.Status)
	}
	if resp.Reference != "DEV-20260512-0001" {
		t.Errorf("reference = %s, want DEV-20260512-0001", resp.Reference)
	}
	if resp.PDFURL == "" {
		t.Error("expected a stored PDF URL")
	}
	if resp.ClientName != client.Name || resp.ClientEmail != client.Email {
		t.Errorf("client snapshot = %s / %s", resp.ClientName, resp.ClientEmail)
	}

	// Registry mirror written atomically with the quote.
	if n := countRows(t, f.db, &model.DocumentRegistryEntry{}, "type = ?", model.DocTypeDevis); n != 1 {
		t.Errorf("registry entries = %d, want 1", n)
	}
}

func TestCreateQuoteMultiLineTotals(t *testing.T) {
	f := newQuoteFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)

	resp := f.createQuote(t, plannerID, client.ID.String(), []QuoteItemInput{
		{Description: "Location salle", Quantity: "1", UnitPrice: "1800"},
		{Description: "Menu dégustation", Quantity: "80", UnitPrice: "65.50"},
		{Description: "Coordination jour J", Quantity: "2", UnitPrice: "450"},
	})

	// 1800 + 5240 + 900 = 7940 HT, 9528 TTC at 20%
	if resp.MontantHT != "7940.00" {
		t.Errorf("montant HT = %s, want 7940.00", resp.MontantHT)
	}
	if resp.MontantTTC != "9528.00" {
		t.Errorf("montant TTC = %s, want 9528.00", resp.MontantTTC)
	}
	if len(resp.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(resp.Items))
	}
	if resp.Items[1].Total != "5240.00" {
		t.Errorf("second line total = %s, want 5240.00", resp.Items[1].Total)
	}
}

func TestCreateQuoteValidation(t *testing.T) {
	f := newQuoteFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)

	cases := []struct {
		name  string
		items []QuoteItemInput
	}{
		{"no items", nil},
		{"missing description", []QuoteItemInput{{Quantity: "1", UnitPrice: "100"}}},
		{"zero quantity", []QuoteItemInput{{Description: "x", Quantity: "0", UnitPrice: "100"}}},
		{"negative unit price", []QuoteItemInput{{Description: "x", Quantity: "1", UnitPrice: "-5"}}},
		{"garbage quantity", []QuoteItemInput{{Description: "x", Quantity: "beaucoup", UnitPrice: "100"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), plannerID, CreateQuoteRequest{
				ClientID:   client.ID.String(),
				Title:      "Devis invalide",
				ValidUntil: "2026-06-30",
				Items:      tc.items,
			})
			if !apperrors.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	// Rejected input leaves no partial state behind.
	if n := countRows(t, f.db, &model.Quote{}, ""); n != 0 {
		t.Errorf("quotes persisted = %d, want 0", n)
	}
	if f.uploader.calls != 0 {
		t.Errorf("uploads attempted = %d, want 0", f.uploader.calls)
	}
}

func TestCreateQuoteUnknownClient(t *testing.T) {
	f := newQuoteFixture(t)

	_, err := f.svc.Create(context.Background(), uuid.New(), CreateQuoteRequest{
		ClientID:   uuid.NewString(),
		Title:      "Devis orphelin",
		ValidUntil: "2026-06-30",
		Items:      []QuoteItemInput{{Description: "x", Quantity: "1", UnitPrice: "100"}},
	})
	if !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateQuoteUploadFailureLeavesNothing(t *testing.T) {
	f := newQuoteFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)
	f.uploader.fail = true

	_, err := f.svc.Create(context.Background(), plannerID, CreateQuoteRequest{
		ClientID:   client.ID.String(),
		Title:      "Devis perdu",
		ValidUntil: "2026-06-30",
		Items:      []QuoteItemInput{{Description: "x", Quantity: "1", UnitPrice: "100"}},
	})
	if !apperrors.IsUpload(err) {
		t.Fatalf("expected upload error, got %v", err)
	}
	if n := countRows(t, f.db, &model.Quote{}, ""); n != 0 {
		t.Errorf("quotes persisted = %d, want 0", n)
	}
	if n := countRows(t, f.db, &model.DocumentRegistryEntry{}, ""); n != 0 {
		t.Errorf("registry entries = %d, want 0", n)
	}
	if len(f.notifier.events) != 0 {
		t.Errorf("notifications sent = %d, want 0", len(f.notifier.events))
	}
}

func TestSendQuoteDefaults(t *testing.T) {
	f := newQuoteFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)
	created := f.createQuote(t, plannerID, client.ID.String(), []QuoteItemInput{
		{Description: "Organisation complète", Quantity: "1", UnitPrice: "2500"},
	})

	sent, err := f.svc.Send(context.Background(), created.ID, SendQuoteRequest{})
	if err != nil {
		t.Fatalf("send quote: %v", err)
	}
	if sent.Status != model.QuoteSent {
		t.Errorf("status = %s, want sent", sent.Status)
	}
	if sent.SentAt == nil {
		t.Fatal("sent_at not set")
	}

	var stored model.Quote
	if err := f.db.First(&stored, "id = ?", created.ID).Error; err != nil {
		t.Fatalf("reload quote: %v", err)
	}
	if stored.SentTo != client.Email {
		t.Errorf("sent_to = %s, want client email", stored.SentTo)
	}
	if stored.SentMessage != defaultSendMessage {
		t.Errorf("sent_message = %q, want canned default", stored.SentMessage)
	}
	if !stored.SentAt.Equal(testNow) {
		t.Errorf("sent_at = %v, want %v", stored.SentAt, testNow)
	}

	// sent is not re-sendable
	if _, err := f.svc.Send(context.Background(), created.ID, SendQuoteRequest{}); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error on double send, got %v", err)
	}
}

func TestSendQuoteOverrides(t *testing.T) {
	f := newQuoteFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)
	created := f.createQuote(t, plannerID, client.ID.String(), []QuoteItemInput{
		{Description: "Organisation complète", Quantity: "1", UnitPrice: "2500"},
	})

	_, err := f.svc.Send(context.Background(), created.ID, SendQuoteRequest{
		Email:   "autre@example.fr",
		Message: "Voici la proposition revue.",
	})
	if err != nil {
		t.Fatalf("send quote: %v", err)
	}

	var stored model.Quote
	f.db.First(&stored, "id = ?", created.ID)
	if stored.SentTo != "autre@example.fr" {
		t.Errorf("sent_to = %s", stored.SentTo)
	}
	if stored.SentMessage != "Voici la proposition revue." {
		t.Errorf("sent_message = %q", stored.SentMessage)
	}
}

func TestAcceptQuoteCreatesInvoice(t *testing.T) {
	f := newQuoteFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)
	created := f.createQuote(t, plannerID, client.ID.String(), []QuoteItemInput{
		{Description: "Organisation complète", Quantity: "1", UnitPrice: "2500"},
	})
	if _, err := f.svc.Send(context.Background(), created.ID, SendQuoteRequest{}); err != nil {
		t.Fatalf("send: %v", err)
	}

	accepted, err := f.svc.Accept(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != model.QuoteAccepted {
		t.Errorf("status = %s, want accepted", accepted.Status)
	}

	var invoice model.Invoice
	if err := f.db.Preload("Items").First(&invoice, "devis_id = ?", created.ID).Error; err != nil {
		t.Fatalf("expected invoice derived from quote: %v", err)
	}
	if invoice.MontantTTC.StringFixed(2) != "3000.00" {
		t.Errorf("invoice TTC = %s, want 3000.00", invoice.MontantTTC.StringFixed(2))
	}
	if !invoice.Paid.IsZero() {
		t.Errorf("invoice paid = %s, want 0", invoice.Paid)
	}
	wantDue := testNow.Add(14 * 24 * time.Hour)
	if !invoice.DueDate.Equal(wantDue) {
		t.Errorf("due date = %v, want %v", invoice.DueDate, wantDue)
	}
	if invoice.Status != model.InvoicePending {
		t.Errorf("invoice status = %s, want pending", invoice.Status)
	}
	if len(invoice.Items) != 1 || invoice.Items[0].Description != "Organisation complète" {
		t.Errorf("invoice items not copied from quote: %+v", invoice.Items)
	}

	// Re-deciding is rejected and must not mint a second invoice.
	if _, err := f.svc.Accept(context.Background(), created.ID); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error on double accept, got %v", err)
	}
	if n := countRows(t, f.db, &model.Invoice{}, ""); n != 1 {
		t.Errorf("invoices = %d, want 1", n)
	}

	// Planner is notified of the decision.
	found := false
	for _, r := range f.notifier.recipients {
		if r == plannerID {
			found = true
		}
	}
	if !found {
		t.Error("planner was not notified of acceptance")
	}
}

func TestDecisionRequiresSentStatus(t *testing.T) {
	f := newQuoteFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)
	created := f.createQuote(t, plannerID, client.ID.String(), []QuoteItemInput{
		{Description: "Organisation complète", Quantity: "1", UnitPrice: "2500"},
	})

	if _, err := f.svc.Accept(context.Background(), created.ID); !apperrors.IsValidation(err) {
		t.Fatalf("accept from draft: expected validation error, got %v", err)
	}
	if _, err := f.svc.Reject(context.Background(), created.ID); !apperrors.IsValidation(err) {
		t.Fatalf("reject from draft: expected validation error, got %v", err)
	}
	if n := countRows(t, f.db, &model.Invoice{}, ""); n != 0 {
		t.Errorf("invoices = %d, want 0", n)
	}
}

func TestRejectQuote(t *testing.T) {
	f := newQuoteFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)
	created := f.createQuote(t, plannerID, client.ID.String(), []QuoteItemInput{
		{Description: "Organisation complète", Quantity: "1", UnitPrice: "2500"},
	})
	if _, err := f.svc.Send(context.Background(), created.ID, SendQuoteRequest{}); err != nil {
		t.Fatalf("send: %v", err)
	}

	rejected, err := f.svc.Reject(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != model.QuoteRejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}
	// No invoice on rejection.
	if n := countRows(t, f.db, &model.Invoice{}, ""); n != 0 {
		t.Errorf("invoices = %d, want 0", n)
	}
	// Terminal: cannot re-accept.
	if _, err := f.svc.Accept(context.Background(), created.ID); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateQuotePatchesMutableFieldsOnly(t *testing.T) {
	f := newQuoteFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)
	created := f.createQuote(t, plannerID, client.ID.String(), []QuoteItemInput{
		{Description: "Organisation complète", Quantity: "1", UnitPrice: "2500"},
	})

	newDate := "2026-07-15"
	newDesc := "Option brunch ajoutée"
	updated, err := f.svc.Update(context.Background(), created.ID, UpdateQuoteRequest{
		ValidUntil:  &newDate,
		Description: &newDesc,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ValidUntil != newDate {
		t.Errorf("valid_until = %s, want %s", updated.ValidUntil, newDate)
	}
	if updated.Description != newDesc {
		t.Errorf("description = %s", updated.Description)
	}

	var stored model.Quote
	f.db.Preload("Items").First(&stored, "id = ?", created.ID)
	if stored.PDFURL != created.PDFURL {
		t.Errorf("pdf_url changed on edit: %s", stored.PDFURL)
	}
	if len(stored.Items) != 1 {
		t.Errorf("items = %d, want 1 untouched line", len(stored.Items))
	}
	if stored.MontantTTC.StringFixed(2) != "3000.00" {
		t.Errorf("montant TTC changed on edit: %s", stored.MontantTTC)
	}
}

func TestDeleteQuoteRemovesRegistryMirror(t *testing.T) {
	f := newQuoteFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)
	created := f.createQuote(t, plannerID, client.ID.String(), []QuoteItemInput{
		{Description: "Organisation complète", Quantity: "1", UnitPrice: "2500"},
	})

	if err := f.svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := countRows(t, f.db, &model.Quote{}, ""); n != 0 {
		t.Errorf("quotes = %d, want 0", n)
	}
	if n := countRows(t, f.db, &model.DocumentRegistryEntry{}, ""); n != 0 {
		t.Errorf("registry entries = %d, want 0", n)
	}

	if _, err := f.svc.Get(context.Background(), created.ID); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestDownloadPDF(t *testing.T) {
	f := newQuoteFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)
	created := f.createQuote(t, plannerID, client.ID.String(), []QuoteItemInput{
		{Description: "Organisation complète", Quantity: "1", UnitPrice: "2500"},
	})

	result, err := f.svc.DownloadPDF(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if result.URL != created.PDFURL {
		t.Errorf("url = %s, want stored artifact URL", result.URL)
	}
	if len(result.Data) != 0 {
		t.Error("expected no inline data when a stored URL exists")
	}

	// Strip the stored URL: the service renders on the fly without persisting.
	if err := f.db.Model(&model.Quote{}).Where("id = ?", created.ID).Update("pdf_url", "").Error; err != nil {
		t.Fatalf("clear pdf_url: %v", err)
	}
	result, err = f.svc.DownloadPDF(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if len(result.Data) == 0 {
		t.Fatal("expected an on-the-fly rendered PDF")
	}
	if result.FileName != created.Reference+".pdf" {
		t.Errorf("file name = %s", result.FileName)
	}

	var stored model.Quote
	f.db.First(&stored, "id = ?", created.ID)
	if stored.PDFURL != "" {
		t.Error("ephemeral render must not be persisted")
	}
}

func TestCreateQuoteNotifiesPortalAccountWhenLinked(t *testing.T) {
	f := newQuoteFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)

	portalID := uuid.New()
	if err := f.db.Model(&model.Client{}).Where("id = ?", client.ID).Update("user_id", portalID).Error; err != nil {
		t.Fatalf("link portal account: %v", err)
	}

	f.createQuote(t, plannerID, client.ID.String(), []QuoteItemInput{
		{Description: "Organisation complète", Quantity: "1", UnitPrice: "2500"},
	})

	if len(f.notifier.recipients) != 1 {
		t.Fatalf("notifications = %d, want 1", len(f.notifier.recipients))
	}
	if f.notifier.recipients[0] != portalID {
		t.Errorf("recipient = %s, want the portal account id", f.notifier.recipients[0])
	}
	if f.notifier.events[0].Email != client.Email {
		t.Errorf("email override = %s, want the denormalized client email", f.notifier.events[0].Email)
	}
}

func TestCreateQuoteSendNow(t *testing.T) {
	f := newQuoteFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)

	resp, err := f.svc.Create(context.Background(), plannerID, CreateQuoteRequest{
		ClientID:   client.ID.String(),
		Title:      "Devis express",
		ValidUntil: "2026-06-30",
		Items:      []QuoteItemInput{{Description: "Organisation complète", Quantity: "1", UnitPrice: "2500"}},
		SendNow:    true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Status != model.QuoteSent {
		t.Errorf("status = %s, want sent", resp.Status)
	}
	if resp.SentAt == nil {
		t.Error("sent_at not set with send_now")
	}
}

func TestQuoteReferenceSequence(t *testing.T) {
	f := newQuoteFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)

	first := f.createQuote(t, plannerID, client.ID.String(), []QuoteItemInput{
		{Description: "a", Quantity: "1", UnitPrice: "100"},
	})
	second := f.createQuote(t, plannerID, client.ID.String(), []QuoteItemInput{
		{Description: "b", Quantity: "1", UnitPrice: "100"},
	})
	if first.Reference != "DEV-20260512-0001" || second.Reference != "DEV-20260512-0002" {
		t.Errorf("references = %s, %s", first.Reference, second.Reference)
	}
}
