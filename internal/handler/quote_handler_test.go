package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"weddingplanner/internal/model"
	"weddingplanner/internal/notify"
	"weddingplanner/internal/repository"
	"weddingplanner/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubUploader struct{}

func (stubUploader) Upload(_ context.Context, r io.Reader, _ int64, suggestedName, _ string) (string, error) {
	io.Copy(io.Discard, r)
	return "https://files.test/" + suggestedName, nil
}

type stubNotifier struct{}

func (stubNotifier) Notify(context.Context, uuid.UUID, notify.Event) {}

type quoteAPI struct {
	router *gin.Engine
	db     *gorm.DB
}

func newQuoteAPI(t *testing.T) *quoteAPI {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&model.User{}, &model.Client{}, &model.Vendor{},
		&model.Quote{}, &model.QuoteItem{},
		&model.Invoice{}, &model.InvoiceItem{}, &model.Payment{},
		&model.DocumentRegistryEntry{}, &model.Notification{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	quoteRepo := repository.NewQuoteRepository(db)
	quoteService := service.NewQuoteService(
		quoteRepo,
		repository.NewInvoiceRepository(db),
		repository.NewDocumentRepository(db),
		repository.NewClientRepository(db),
		stubUploader{},
		stubNotifier{},
		repository.NewTransactionManager(db),
		zap.NewNop(),
	)
	poService := service.NewPurchaseOrderService(
		quoteRepo,
		repository.NewVendorRepository(db),
		repository.NewDocumentRepository(db),
		stubUploader{},
		zap.NewNop(),
	)

	router := gin.New()
	api := router.Group("/api")
	NewQuoteHandler(quoteService, poService).RegisterRoutes(api)
	return &quoteAPI{router: router, db: db}
}

func signToken(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func (a *quoteAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *quoteAPI) seedClient(t *testing.T, plannerID uuid.UUID) *model.Client {
	t.Helper()
	client := &model.Client{PlannerID: plannerID, Name: "Camille & Jordan", Email: "camille.jordan@example.fr"}
	if err := a.db.Create(client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client
}

func createBody(clientID string) map[string]interface{} {
	return map[string]interface{}{
		"client_id":   clientID,
		"title":       "Organisation mariage château",
		"valid_until": "2026-06-30",
		"items": []map[string]string{
			{"description": "Organisation complète", "quantity": "1", "unit_price": "2500"},
		},
	}
}

func TestQuoteEndpointsRequireAuth(t *testing.T) {
	api := newQuoteAPI(t)

	rec := api.do(t, http.MethodGet, "/api/quotes", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCreateQuoteEndpoint(t *testing.T) {
	api := newQuoteAPI(t)
	plannerID := uuid.New()
	client := api.seedClient(t, plannerID)
	token := signToken(t, plannerID, model.RolePlanner)

	rec := api.do(t, http.MethodPost, "/api/quotes", token, createBody(client.ID.String()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data service.QuoteResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.MontantTTC != "3000.00" {
		t.Errorf("montant TTC = %s, want 3000.00", envelope.Data.MontantTTC)
	}
	if envelope.Data.Status != model.QuoteDraft {
		t.Errorf("status = %s, want draft", envelope.Data.Status)
	}
}

func TestCreateQuoteEndpointValidation(t *testing.T) {
	api := newQuoteAPI(t)
	plannerID := uuid.New()
	token := signToken(t, plannerID, model.RolePlanner)

	body := createBody(uuid.NewString())
	body["items"] = []map[string]string{}
	rec := api.do(t, http.MethodPost, "/api/quotes", token, body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
	}
}

func TestCreateQuoteForbiddenForClients(t *testing.T) {
	api := newQuoteAPI(t)
	plannerID := uuid.New()
	client := api.seedClient(t, plannerID)
	token := signToken(t, uuid.New(), model.RoleClient)

	rec := api.do(t, http.MethodPost, "/api/quotes", token, createBody(client.ID.String()))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestQuoteLifecycleOverHTTP(t *testing.T) {
	api := newQuoteAPI(t)
	plannerID := uuid.New()
	client := api.seedClient(t, plannerID)
	plannerToken := signToken(t, plannerID, model.RolePlanner)
	clientToken := signToken(t, uuid.New(), model.RoleClient)

	rec := api.do(t, http.MethodPost, "/api/quotes", plannerToken, createBody(client.ID.String()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Data service.QuoteResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	quoteID := created.Data.ID

	// accept before send must be rejected
	rec = api.do(t, http.MethodPost, "/api/quotes/"+quoteID+"/accept", clientToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("accept draft: status = %d, want 400", rec.Code)
	}

	rec = api.do(t, http.MethodPost, "/api/quotes/"+quoteID+"/send", plannerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("send: %d %s", rec.Code, rec.Body.String())
	}

	rec = api.do(t, http.MethodPost, "/api/quotes/"+quoteID+"/accept", clientToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: %d %s", rec.Code, rec.Body.String())
	}

	// acceptance derives the invoice
	var invoices int64
	api.db.Model(&model.Invoice{}).Count(&invoices)
	if invoices != 1 {
		t.Errorf("invoices = %d, want 1", invoices)
	}
}

func TestGetQuoteNotFound(t *testing.T) {
	api := newQuoteAPI(t)
	token := signToken(t, uuid.New(), model.RolePlanner)

	rec := api.do(t, http.MethodGet, "/api/quotes/"+uuid.NewString(), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
