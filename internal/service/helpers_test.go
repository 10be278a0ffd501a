package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"weddingplanner/internal/model"
	"weddingplanner/internal/notify"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testNow is the frozen clock used by every service fixture.
var testNow = time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = db.AutoMigrate(
		&model.User{},
		&model.Client{},
		&model.Vendor{},
		&model.Quote{},
		&model.QuoteItem{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.Payment{},
		&model.DocumentRegistryEntry{},
		&model.Notification{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// fakeUploader stands in for object storage. When fail is set every upload
// errors, which is how the tests exercise the nothing-persisted guarantee.
type fakeUploader struct {
	calls int
	fail  bool
}

func (f *fakeUploader) Upload(_ context.Context, r io.Reader, _ int64, suggestedName, _ string) (string, error) {
	f.calls++
	if f.fail {
		return "", fmt.Errorf("object store unreachable")
	}
	io.Copy(io.Discard, r)
	return "https://files.test/" + suggestedName, nil
}

// fakeNotifier records fan-out events without delivering anything.
type fakeNotifier struct {
	recipients []uuid.UUID
	events     []notify.Event
}

func (f *fakeNotifier) Notify(_ context.Context, recipientID uuid.UUID, ev notify.Event) {
	f.recipients = append(f.recipients, recipientID)
	f.events = append(f.events, ev)
}

func seedClient(t *testing.T, db *gorm.DB, plannerID uuid.UUID) *model.Client {
	t.Helper()
	client := &model.Client{
		PlannerID: plannerID,
		Name:      "Camille & Jordan",
		Email:     "camille.jordan@example.fr",
	}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client
}

func seedVendor(t *testing.T, db *gorm.DB, plannerID uuid.UUID) *model.Vendor {
	t.Helper()
	vendor := &model.Vendor{
		PlannerID:   plannerID,
		Name:        "Traiteur Lumière",
		Category:    "traiteur",
		ContactName: "P. Martin",
		Email:       "contact@traiteur-lumiere.fr",
	}
	if err := db.Create(vendor).Error; err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	return vendor
}

func countRows(t *testing.T, db *gorm.DB, value interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	tx := db.Model(value)
	if query != "" {
		tx = tx.Where(query, args...)
	}
	if err := tx.Count(&n).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}
