package service

import (
	"context"
	"testing"
	"time"

	"weddingplanner/internal/model"
	"weddingplanner/internal/repository"
	"weddingplanner/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type poFixture struct {
	svc      PurchaseOrderService
	db       *gorm.DB
	uploader *fakeUploader
}

func newPOFixture(t *testing.T) *poFixture {
	t.Helper()
	db := openTestDB(t)
	uploader := &fakeUploader{}
	svc := NewPurchaseOrderService(
		repository.NewQuoteRepository(db),
		repository.NewVendorRepository(db),
		repository.NewDocumentRepository(db),
		uploader,
		zap.NewNop(),
	).(*purchaseOrderService)
	svc.now = func() time.Time { return testNow }
	return &poFixture{svc: svc, db: db, uploader: uploader}
}

func seedQuote(t *testing.T, db *gorm.DB, plannerID uuid.UUID, clientID uuid.UUID, status string) model.Quote {
	t.Helper()
	quote := model.Quote{
		Reference:  "DEV-20260512-0001",
		Title:      "Organisation mariage château",
		PlannerID:  plannerID,
		ClientID:   clientID,
		ClientName: "Camille & Jordan",
		Items: []model.QuoteItem{
			{Description: "Organisation complète", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(2500), Total: decimal.NewFromInt(2500), Position: 1},
		},
		MontantHT:  decimal.NewFromInt(2500),
		TVA:        model.DefaultVATRate,
		MontantTTC: decimal.NewFromInt(3000),
		Status:     status,
		ValidUntil: testNow.Add(30 * 24 * time.Hour),
	}
	if err := db.Create(&quote).Error; err != nil {
		t.Fatalf("seed quote: %v", err)
	}
	return quote
}

func TestGeneratePurchaseOrder(t *testing.T) {
	f := newPOFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)
	quote := seedQuote(t, f.db, plannerID, client.ID, model.QuoteAccepted)
	vendor := seedVendor(t, f.db, plannerID)

	resp, err := f.svc.Generate(context.Background(), plannerID, quote.ID.String(), GeneratePurchaseOrderRequest{VendorID: vendor.ID.String()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Reference != "BC-DEV-20260512-0001" {
		t.Errorf("reference = %s", resp.Reference)
	}
	if resp.Reused {
		t.Error("first generation must not be flagged as reused")
	}
	if resp.VendorName != vendor.Name {
		t.Errorf("vendor name = %s, want %s", resp.VendorName, vendor.Name)
	}
	if resp.FileURL == "" {
		t.Error("expected an uploaded file URL")
	}

	var entry model.DocumentRegistryEntry
	if err := f.db.First(&entry, "type = ?", model.DocTypeBonDeCommande).Error; err != nil {
		t.Fatalf("registry entry: %v", err)
	}
	if entry.DevisID == nil || *entry.DevisID != quote.ID {
		t.Error("registry entry must point back at the quote")
	}
	if entry.VendorID == nil || *entry.VendorID != vendor.ID {
		t.Error("registry entry must point at the vendor")
	}
	if len(entry.Items) == 0 {
		t.Error("registry entry must snapshot the quote line items")
	}
}

func TestGeneratePurchaseOrderIsIdempotent(t *testing.T) {
	f := newPOFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)
	quote := seedQuote(t, f.db, plannerID, client.ID, model.QuoteAccepted)
	vendor := seedVendor(t, f.db, plannerID)

	first, err := f.svc.Generate(context.Background(), plannerID, quote.ID.String(), GeneratePurchaseOrderRequest{VendorID: vendor.ID.String()})
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	second, err := f.svc.Generate(context.Background(), plannerID, quote.ID.String(), GeneratePurchaseOrderRequest{VendorID: vendor.ID.String()})
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}

	if !second.Reused {
		t.Error("repeat generation must reuse the existing order")
	}
	if second.FileURL != first.FileURL {
		t.Errorf("file URL changed across calls: %s vs %s", first.FileURL, second.FileURL)
	}
	if f.uploader.calls != 1 {
		t.Errorf("uploads = %d, want 1", f.uploader.calls)
	}
	if n := countRows(t, f.db, &model.DocumentRegistryEntry{}, "type = ?", model.DocTypeBonDeCommande); n != 1 {
		t.Errorf("registry entries = %d, want 1", n)
	}
}

func TestGeneratePurchaseOrderPerVendor(t *testing.T) {
	f := newPOFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)
	quote := seedQuote(t, f.db, plannerID, client.ID, model.QuoteAccepted)
	caterer := seedVendor(t, f.db, plannerID)
	florist := model.Vendor{PlannerID: plannerID, Name: "Fleurs d'Élise", Category: "florist", Email: "contact@fleursdelise.fr"}
	if err := f.db.Create(&florist).Error; err != nil {
		t.Fatalf("seed florist: %v", err)
	}

	if _, err := f.svc.Generate(context.Background(), plannerID, quote.ID.String(), GeneratePurchaseOrderRequest{VendorID: caterer.ID.String()}); err != nil {
		t.Fatalf("caterer order: %v", err)
	}
	resp, err := f.svc.Generate(context.Background(), plannerID, quote.ID.String(), GeneratePurchaseOrderRequest{VendorID: florist.ID.String()})
	if err != nil {
		t.Fatalf("florist order: %v", err)
	}
	if resp.Reused {
		t.Error("a different vendor must get its own order")
	}
	if n := countRows(t, f.db, &model.DocumentRegistryEntry{}, "type = ?", model.DocTypeBonDeCommande); n != 2 {
		t.Errorf("registry entries = %d, want 2", n)
	}
}

func TestGeneratePurchaseOrderRequiresAcceptedQuote(t *testing.T) {
	f := newPOFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)
	vendor := seedVendor(t, f.db, plannerID)

	for _, status := range []string{model.QuoteDraft, model.QuoteSent, model.QuoteRejected} {
		quote := seedQuote(t, f.db, plannerID, client.ID, status)
		_, err := f.svc.Generate(context.Background(), plannerID, quote.ID.String(), GeneratePurchaseOrderRequest{VendorID: vendor.ID.String()})
		if !apperrors.IsValidation(err) {
			t.Errorf("status %s: expected validation error, got %v", status, err)
		}
		f.db.Delete(&model.Quote{}, "id = ?", quote.ID)
	}
}

func TestGeneratePurchaseOrderUnknownVendor(t *testing.T) {
	f := newPOFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)
	quote := seedQuote(t, f.db, plannerID, client.ID, model.QuoteAccepted)

	_, err := f.svc.Generate(context.Background(), plannerID, quote.ID.String(), GeneratePurchaseOrderRequest{VendorID: uuid.NewString()})
	if !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGeneratePurchaseOrderUploadFailureIsRetryable(t *testing.T) {
	f := newPOFixture(t)
	plannerID := uuid.New()
	client := seedClient(t, f.db, plannerID)
	quote := seedQuote(t, f.db, plannerID, client.ID, model.QuoteAccepted)
	vendor := seedVendor(t, f.db, plannerID)

	f.uploader.fail = true
	_, err := f.svc.Generate(context.Background(), plannerID, quote.ID.String(), GeneratePurchaseOrderRequest{VendorID: vendor.ID.String()})
	if !apperrors.IsUpload(err) {
		t.Fatalf("expected upload error, got %v", err)
	}
	if n := countRows(t, f.db, &model.DocumentRegistryEntry{}, ""); n != 0 {
		t.Errorf("registry entries after failed upload = %d, want 0", n)
	}

	f.uploader.fail = false
	resp, err := f.svc.Generate(context.Background(), plannerID, quote.ID.String(), GeneratePurchaseOrderRequest{VendorID: vendor.ID.String()})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if resp.Reused {
		t.Error("retry after failure must generate a fresh order")
	}
}
