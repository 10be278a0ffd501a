package service

import (
	"context"
	"testing"
	"time"

	"weddingplanner/internal/model"
	"weddingplanner/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func seedQuoteWithValue(t *testing.T, db *gorm.DB, plannerID, clientID uuid.UUID, reference, status string, ttc int64) {
	t.Helper()
	quote := model.Quote{
		Reference:  reference,
		Title:      "Prestation",
		PlannerID:  plannerID,
		ClientID:   clientID,
		ClientName: "Camille & Jordan",
		MontantHT:  decimal.NewFromInt(ttc * 100 / 120),
		TVA:        model.DefaultVATRate,
		MontantTTC: decimal.NewFromInt(ttc),
		Status:     status,
		ValidUntil: testNow.Add(30 * 24 * time.Hour),
		CreatedAt:  testNow,
	}
	if err := db.Create(&quote).Error; err != nil {
		t.Fatalf("seed quote: %v", err)
	}
}

func seedInvoiceWithValue(t *testing.T, db *gorm.DB, plannerID, clientID uuid.UUID, reference string, ttc, paid int64) {
	t.Helper()
	inv := model.Invoice{
		Reference:  reference,
		Type:       model.InvoiceTypeStandard,
		PlannerID:  plannerID,
		ClientID:   clientID,
		ClientName: "Camille & Jordan",
		MontantHT:  decimal.NewFromInt(ttc * 100 / 120),
		TVA:        model.DefaultVATRate,
		MontantTTC: decimal.NewFromInt(ttc),
		Paid:       decimal.NewFromInt(paid),
		DueDate:    testNow.Add(14 * 24 * time.Hour),
		Status:     model.InvoicePending,
		CreatedAt:  testNow,
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
}

func TestGetDashboard(t *testing.T) {
	db := openTestDB(t)
	plannerID := uuid.New()
	client := seedClient(t, db, plannerID)

	// monthly series needs postgres, skipped here by passing a nil repo
	svc := NewStatisticsService(repository.NewStatisticsRepository(db), nil, zap.NewNop())

	seedQuoteWithValue(t, db, plannerID, client.ID, "DEV-A", model.QuoteDraft, 1200)
	seedQuoteWithValue(t, db, plannerID, client.ID, "DEV-B", model.QuoteSent, 2400)
	seedQuoteWithValue(t, db, plannerID, client.ID, "DEV-C", model.QuoteAccepted, 3600)
	seedQuoteWithValue(t, db, plannerID, client.ID, "DEV-D", model.QuoteRejected, 600)
	seedInvoiceWithValue(t, db, plannerID, client.ID, "FAC-A", 3600, 1000)
	seedInvoiceWithValue(t, db, plannerID, client.ID, "FAC-B", 1200, 1200)

	start := testNow.Add(-24 * time.Hour)
	end := testNow.Add(24 * time.Hour)
	dash, err := svc.GetDashboard(context.Background(), plannerID, start, end)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	if dash.QuotesDraft != 1 || dash.QuotesSent != 1 || dash.QuotesAccepted != 1 || dash.QuotesRejected != 1 {
		t.Errorf("funnel = %d/%d/%d/%d, want 1/1/1/1",
			dash.QuotesDraft, dash.QuotesSent, dash.QuotesAccepted, dash.QuotesRejected)
	}
	if dash.TotalQuoted != 7800 {
		t.Errorf("total quoted = %.2f, want 7800", dash.TotalQuoted)
	}
	if dash.TotalAccepted != 3600 {
		t.Errorf("total accepted = %.2f, want 3600", dash.TotalAccepted)
	}
	if dash.TotalInvoiced != 4800 || dash.TotalCollected != 2200 {
		t.Errorf("invoiced/collected = %.2f/%.2f, want 4800/2200", dash.TotalInvoiced, dash.TotalCollected)
	}
	if dash.TotalOutstanding != 2600 {
		t.Errorf("outstanding = %.2f, want 2600", dash.TotalOutstanding)
	}

	if len(dash.TopClients) != 1 {
		t.Fatalf("top clients = %d, want 1", len(dash.TopClients))
	}
	top := dash.TopClients[0]
	if top.ClientName != client.Name || top.AcceptedValue != 3600 || top.QuoteCount != 1 {
		t.Errorf("top client = %+v", top)
	}
}

func TestGetDashboardScopedToPlanner(t *testing.T) {
	db := openTestDB(t)
	plannerID := uuid.New()
	otherPlanner := uuid.New()
	client := seedClient(t, db, plannerID)
	otherClient := seedClient(t, db, otherPlanner)

	svc := NewStatisticsService(repository.NewStatisticsRepository(db), nil, zap.NewNop())

	seedQuoteWithValue(t, db, plannerID, client.ID, "DEV-A", model.QuoteAccepted, 1200)
	seedQuoteWithValue(t, db, otherPlanner, otherClient.ID, "DEV-B", model.QuoteAccepted, 99999)
	seedInvoiceWithValue(t, db, otherPlanner, otherClient.ID, "FAC-X", 99999, 0)

	dash, err := svc.GetDashboard(context.Background(), plannerID,
		testNow.Add(-24*time.Hour), testNow.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.TotalAccepted != 1200 {
		t.Errorf("total accepted = %.2f, want 1200", dash.TotalAccepted)
	}
	if dash.TotalInvoiced != 0 {
		t.Errorf("invoiced = %.2f, want 0", dash.TotalInvoiced)
	}
}

func TestGetDashboardEmptyRange(t *testing.T) {
	db := openTestDB(t)
	svc := NewStatisticsService(repository.NewStatisticsRepository(db), nil, zap.NewNop())

	dash, err := svc.GetDashboard(context.Background(), uuid.New(),
		testNow, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.TotalQuoted != 0 || dash.TotalInvoiced != 0 || len(dash.TopClients) != 0 {
		t.Errorf("empty range produced data: %+v", dash)
	}
}
