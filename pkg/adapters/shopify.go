package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/podforge/podforge/pkg/config"
	"github.com/podforge/podforge/pkg/model"
)

const shopifyActionTimeout = 15 * time.Second

// RealShopify talks to the Shopify Admin API using the stored connection
// credentials. It refuses to run when credentials are absent rather than
// degrading silently.
type RealShopify struct {
	cfg    *config.ShopifyConfig
	creds  ShopifyCredentialSource
	client *http.Client
}

func NewRealShopify(cfg *config.ShopifyConfig, creds ShopifyCredentialSource) *RealShopify {
	return &RealShopify{
		cfg:   cfg,
		creds: creds,
		client: &http.Client{
			Timeout: shopifyActionTimeout,
		},
	}
}

func (s *RealShopify) baseURL(shop string) string {
	if s.cfg.APIBaseURL != "" {
		return s.cfg.APIBaseURL
	}
	return "https://" + shop
}

func (s *RealShopify) CreateProduct(ctx context.Context, draftID string, title string) (*PushResult, error) {
	if s.creds == nil {
		return nil, NewServiceError("Shopify integration is not configured")
	}
	shop, accessToken, err := s.creds.ShopifyCredentials(ctx)
	if err != nil || shop == "" || accessToken == "" {
		return nil, NewServiceError("Shopify integration is not configured")
	}

	body, err := json.Marshal(map[string]interface{}{
		"product": map[string]interface{}{"title": title},
	})
	if err != nil {
		return nil, NewServiceError("Shopify request could not be built")
	}

	url := fmt.Sprintf("%s/admin/api/%s/products.json", s.baseURL(shop), s.cfg.APIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewServiceError("Shopify request could not be built")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewServiceError("Shopify product create failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewServiceError("Shopify product create failed")
	}

	var parsed struct {
		Product struct {
			ID    json.Number `json:"id"`
			Title string      `json:"title"`
		} `json:"product"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || parsed.Product.ID.String() == "" {
		return nil, NewServiceError("Shopify product create failed")
	}

	return &PushResult{
		ExternalID: parsed.Product.ID.String(),
		Payload:    model.JSONB{"title": parsed.Product.Title, "draft_id": draftID, "mode": "live"},
	}, nil
}

func (s *RealShopify) TestConnection(ctx context.Context, shop string, accessToken string) error {
	if shop == "" || accessToken == "" {
		return NewServiceError("Shopify integration is not configured")
	}

	body, _ := json.Marshal(map[string]string{
		"query": "{ shop { name myshopifyDomain } }",
	})
	url := fmt.Sprintf("%s/admin/api/%s/graphql.json", s.baseURL(shop), s.cfg.APIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return NewServiceError("Shop not reachable")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return NewServiceError("Shop not reachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return NewServiceError("Shop not reachable")
	}
	return nil
}
