package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/podforge/podforge/pkg/adapters"
	"github.com/podforge/podforge/pkg/config"
	"github.com/podforge/podforge/pkg/integrations"
	"github.com/podforge/podforge/pkg/model"
	"github.com/podforge/podforge/pkg/pusher"
	"github.com/podforge/podforge/pkg/queue"
	"github.com/podforge/podforge/pkg/secrets"
	"github.com/podforge/podforge/pkg/storage"
	"github.com/podforge/podforge/pkg/store/postgres"
)

type failingShopify struct{}

func (f *failingShopify) CreateProduct(_ context.Context, _ string, _ string) (*adapters.PushResult, error) {
	return nil, adapters.NewServiceError("Shopify API error")
}

func (f *failingShopify) TestConnection(_ context.Context, _ string, _ string) error {
	return adapters.NewServiceError("Shopify API error")
}

func newTestServer(t *testing.T, shopify adapters.ShopifyAPI) (*Server, *postgres.Store) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	store := postgres.NewStoreWithDB(db)
	if err := store.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	cfg := &config.Config{}
	cfg.Integrations.SigningKey = "test-signing-key"
	cfg.Integrations.AppBaseURL = "http://localhost:5173"
	cfg.Queue.RetryLimit = 3
	cfg.Shopify.ClientID = "client-1"
	cfg.Shopify.ClientSecret = "hush"

	repo := postgres.NewIntegrationRepository(db)
	secretStore, err := secrets.NewStore(repo, cfg.Integrations.SigningKey)
	if err != nil {
		t.Fatalf("failed to create secret store: %v", err)
	}
	flow := integrations.NewShopifyFlow(&cfg.Shopify, integrations.NewMemoryStateCache())
	gelato := adapters.NewMockGelato()
	service := integrations.NewService(repo, secretStore, flow, shopify, gelato, zap.NewNop())

	pipeline := pusher.NewPipeline(store, shopify, nil, zap.NewNop())
	pushQueue := queue.NewEagerQueue(pipeline.Handle, cfg.Queue.RetryLimit)

	assetStore, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create asset store: %v", err)
	}

	return NewServer(store, cfg, zap.NewNop(), pushQueue, service, gelato, assetStore), store
}

func doJSON(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	return recorder
}

func decodeJSON(t *testing.T, recorder *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}

func uploadAsset(t *testing.T, server *Server, filename string, content []byte) string {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("files", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write file content: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/assets/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("upload failed with %d: %s", recorder.Code, recorder.Body.String())
	}

	var created []struct {
		ID string `json:"id"`
	}
	decodeJSON(t, recorder, &created)
	if len(created) != 1 {
		t.Fatalf("expected 1 asset, got %d", len(created))
	}
	return created[0].ID
}

func listTemplates(t *testing.T, server *Server) []struct {
	ID               string `json:"id"`
	GelatoTemplateID string `json:"gelato_template_id"`
} {
	t.Helper()

	recorder := doJSON(t, server, http.MethodGet, "/api/templates", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("listing templates failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	var templates []struct {
		ID               string `json:"id"`
		GelatoTemplateID string `json:"gelato_template_id"`
	}
	decodeJSON(t, recorder, &templates)
	return templates
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t, adapters.NewMockShopify())

	recorder := doJSON(t, server, http.MethodGet, "/health", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var response struct {
		Status string `json:"status"`
	}
	decodeJSON(t, recorder, &response)
	if response.Status != "ok" {
		t.Fatalf("expected status ok, got %q", response.Status)
	}
}

func TestTemplatesAreSeededOnFirstListing(t *testing.T) {
	server, _ := newTestServer(t, adapters.NewMockShopify())

	templates := listTemplates(t, server)
	if len(templates) != 2 {
		t.Fatalf("expected 2 seeded templates, got %d", len(templates))
	}

	// A second listing must not duplicate the catalog.
	templates = listTemplates(t, server)
	if len(templates) != 2 {
		t.Fatalf("expected a stable catalog, got %d templates", len(templates))
	}
}

func TestDraftLifecycle(t *testing.T) {
	server, store := newTestServer(t, adapters.NewMockShopify())

	templates := listTemplates(t, server)
	assetID := uploadAsset(t, server, "cat.png", []byte("png-bytes"))

	recorder := doJSON(t, server, http.MethodPost, "/api/drafts/bulk", map[string]interface{}{
		"drafts": []map[string]interface{}{
			{
				"template_id": templates[0].ID,
				"title":       "Cat Tee",
				"description": "A tee with a cat",
				"tags":        []string{"cats", "tees"},
				"price":       "24.99",
				"asset_ids":   []string{assetID},
			},
		},
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("draft creation failed with %d: %s", recorder.Code, recorder.Body.String())
	}

	var drafts []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Price  string `json:"price"`
	}
	decodeJSON(t, recorder, &drafts)
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(drafts))
	}
	if drafts[0].Status != "draft" {
		t.Fatalf("expected draft status, got %s", drafts[0].Status)
	}
	if drafts[0].Price != "24.99" {
		t.Fatalf("expected price 24.99, got %s", drafts[0].Price)
	}

	recorder = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/drafts/%s/push", drafts[0].ID), nil)
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("push failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	var accepted struct {
		TaskID  string `json:"task_id"`
		DraftID string `json:"draft_id"`
	}
	decodeJSON(t, recorder, &accepted)
	if accepted.TaskID == "" || accepted.DraftID != drafts[0].ID {
		t.Fatalf("unexpected push response: %+v", accepted)
	}

	// The eager queue ran the pipeline inline.
	recorder = doJSON(t, server, http.MethodGet, "/api/drafts/"+drafts[0].ID, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("get draft failed with %d", recorder.Code)
	}
	var pushed struct {
		Status string `json:"status"`
	}
	decodeJSON(t, recorder, &pushed)
	if pushed.Status != "pushed" {
		t.Fatalf("expected pushed, got %s", pushed.Status)
	}

	product, err := postgres.NewShopifyProductRepository(store.DB()).GetByDraft(context.Background(), drafts[0].ID)
	if err != nil {
		t.Fatalf("failed to load product: %v", err)
	}
	if !strings.HasPrefix(product.ShopifyProductID, "mock-shopify-") {
		t.Fatalf("unexpected external id: %s", product.ShopifyProductID)
	}
}

func TestDraftValidation(t *testing.T) {
	server, _ := newTestServer(t, adapters.NewMockShopify())

	templates := listTemplates(t, server)
	assetID := uploadAsset(t, server, "cat.png", []byte("png-bytes"))

	cases := []struct {
		name  string
		draft map[string]interface{}
	}{
		{
			name: "bad price",
			draft: map[string]interface{}{
				"template_id": templates[0].ID,
				"title":       "Cat Tee",
				"price":       "not-a-number",
				"asset_ids":   []string{assetID},
			},
		},
		{
			name: "too many decimal places",
			draft: map[string]interface{}{
				"template_id": templates[0].ID,
				"title":       "Cat Tee",
				"price":       "24.999",
				"asset_ids":   []string{assetID},
			},
		},
		{
			name: "no assets",
			draft: map[string]interface{}{
				"template_id": templates[0].ID,
				"title":       "Cat Tee",
				"price":       "24.99",
				"asset_ids":   []string{},
			},
		},
		{
			name: "unknown template",
			draft: map[string]interface{}{
				"template_id": "11111111-1111-1111-1111-111111111111",
				"title":       "Cat Tee",
				"price":       "24.99",
				"asset_ids":   []string{assetID},
			},
		},
		{
			name: "unknown asset",
			draft: map[string]interface{}{
				"template_id": templates[0].ID,
				"title":       "Cat Tee",
				"price":       "24.99",
				"asset_ids":   []string{"22222222-2222-2222-2222-222222222222"},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := doJSON(t, server, http.MethodPost, "/api/drafts/bulk", map[string]interface{}{
				"drafts": []map[string]interface{}{tc.draft},
			})
			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestBulkCreateIsAllOrNothing(t *testing.T) {
	server, store := newTestServer(t, adapters.NewMockShopify())

	templates := listTemplates(t, server)
	assetID := uploadAsset(t, server, "cat.png", []byte("png-bytes"))

	recorder := doJSON(t, server, http.MethodPost, "/api/drafts/bulk", map[string]interface{}{
		"drafts": []map[string]interface{}{
			{
				"template_id": templates[0].ID,
				"title":       "Cat Tee",
				"price":       "24.99",
				"asset_ids":   []string{assetID},
			},
			{
				"template_id": templates[0].ID,
				"title":       "Dog Tee",
				"price":       "19.99",
				"asset_ids":   []string{"22222222-2222-2222-2222-222222222222"},
			},
		},
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", recorder.Code, recorder.Body.String())
	}

	// The valid first item must not have been persisted.
	var count int64
	if err := store.DB().Model(&model.ProductDraft{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count drafts: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no drafts after a rejected bulk, got %d", count)
	}
}

func TestPushFailureMarksDraftFailed(t *testing.T) {
	server, store := newTestServer(t, &failingShopify{})

	templates := listTemplates(t, server)
	assetID := uploadAsset(t, server, "cat.png", []byte("png-bytes"))

	recorder := doJSON(t, server, http.MethodPost, "/api/drafts/bulk", map[string]interface{}{
		"drafts": []map[string]interface{}{
			{
				"template_id": templates[0].ID,
				"title":       "Cat Tee",
				"price":       "24.99",
				"asset_ids":   []string{assetID},
			},
		},
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("draft creation failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	var drafts []struct {
		ID string `json:"id"`
	}
	decodeJSON(t, recorder, &drafts)

	recorder = doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/drafts/%s/push", drafts[0].ID), nil)
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("push submission should still be accepted, got %d", recorder.Code)
	}

	recorder = doJSON(t, server, http.MethodGet, "/api/drafts/"+drafts[0].ID, nil)
	var failed struct {
		Status string `json:"status"`
	}
	decodeJSON(t, recorder, &failed)
	if failed.Status != "failed" {
		t.Fatalf("expected failed, got %s", failed.Status)
	}

	// Every attempt (initial plus retries) left an audit row.
	jobs, err := postgres.NewJobRunRepository(store.DB()).ListByReference(context.Background(), drafts[0].ID)
	if err != nil {
		t.Fatalf("failed to list jobs: %v", err)
	}
	if len(jobs) != 4 {
		t.Fatalf("expected 4 job runs, got %d", len(jobs))
	}
	for _, job := range jobs {
		if job.Status != model.JobStatusFailed {
			t.Fatalf("expected failed jobs, got %s", job.Status)
		}
	}
}

func TestGetUnknownDraft(t *testing.T) {
	server, _ := newTestServer(t, adapters.NewMockShopify())

	recorder := doJSON(t, server, http.MethodGet, "/api/drafts/11111111-1111-1111-1111-111111111111", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestIntegrationEndpoints(t *testing.T) {
	server, _ := newTestServer(t, adapters.NewMockShopify())

	recorder := doJSON(t, server, http.MethodGet, "/api/integrations", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("listing integrations failed with %d", recorder.Code)
	}
	var listing struct {
		Items []struct {
			Provider string `json:"provider"`
			Status   string `json:"status"`
		} `json:"items"`
	}
	decodeJSON(t, recorder, &listing)
	if len(listing.Items) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(listing.Items))
	}
	for _, item := range listing.Items {
		if item.Status != "disconnected" {
			t.Fatalf("expected disconnected, got %s for %s", item.Status, item.Provider)
		}
	}

	// errorMessage is part of every item, empty or not.
	var raw struct {
		Items []map[string]interface{} `json:"items"`
	}
	decodeJSON(t, recorder, &raw)
	for _, item := range raw.Items {
		if _, ok := item["errorMessage"]; !ok {
			t.Fatalf("expected errorMessage key on %v", item["provider"])
		}
	}

	recorder = doJSON(t, server, http.MethodPost, "/api/integrations/gelato", map[string]interface{}{
		"apiKey": "gk_valid",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("connecting gelato failed with %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = doJSON(t, server, http.MethodGet, "/api/integrations", nil)
	decodeJSON(t, recorder, &listing)
	for _, item := range listing.Items {
		if item.Provider == "gelato" && item.Status != "connected" {
			t.Fatalf("expected gelato connected, got %s", item.Status)
		}
	}

	recorder = doJSON(t, server, http.MethodDelete, "/api/integrations/gelato", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("disconnecting gelato failed with %d", recorder.Code)
	}
}

func TestShopifyStartValidatesDomain(t *testing.T) {
	server, _ := newTestServer(t, adapters.NewMockShopify())

	recorder := doJSON(t, server, http.MethodPost, "/api/integrations/shopify/start", map[string]interface{}{
		"shopDomain": "bad.example.com",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}

	recorder = doJSON(t, server, http.MethodPost, "/api/integrations/shopify/start", map[string]interface{}{
		"shopDomain": "demo",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var started struct {
		RedirectURL string `json:"redirectUrl"`
	}
	decodeJSON(t, recorder, &started)
	if !strings.HasPrefix(started.RedirectURL, "https://demo.myshopify.com/admin/oauth/authorize?") {
		t.Fatalf("unexpected redirect URL: %s", started.RedirectURL)
	}
}

func TestShopifyCallbackFailureRedirectsToApp(t *testing.T) {
	server, _ := newTestServer(t, adapters.NewMockShopify())

	req := httptest.NewRequest(http.MethodGet,
		"/api/integrations/shopify/callback?shop=demo.myshopify.com&state=never-issued&code=abc", nil)
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", recorder.Code)
	}
	location := recorder.Header().Get("Location")
	if !strings.Contains(location, "shopify=error") {
		t.Fatalf("expected error redirect, got %s", location)
	}
	if !strings.Contains(location, "reason=") {
		t.Fatalf("expected a reason parameter, got %s", location)
	}
}
