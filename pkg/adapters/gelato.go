package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/podforge/podforge/pkg/config"
	"github.com/podforge/podforge/pkg/model"
)

const (
	gelatoValidateTimeout = 12 * time.Second
	gelatoCatalogTimeout  = 15 * time.Second
)

// RealGelato talks to the Gelato product API with the stored API key.
type RealGelato struct {
	cfg   *config.GelatoConfig
	creds GelatoCredentialSource
}

func NewRealGelato(cfg *config.GelatoConfig, creds GelatoCredentialSource) *RealGelato {
	return &RealGelato{cfg: cfg, creds: creds}
}

func (g *RealGelato) ValidateKey(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return NewServiceError("Invalid API key")
	}

	client := &http.Client{Timeout: gelatoValidateTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.APIBaseURL+"/v3/catalogs", nil)
	if err != nil {
		return NewServiceError("Invalid API key")
	}
	req.Header.Set("X-API-KEY", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return NewServiceError("Invalid API key")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return NewServiceError("Invalid API key")
	}
	return nil
}

func (g *RealGelato) ListTemplates(ctx context.Context) ([]TemplateInfo, error) {
	if g.creds == nil {
		return nil, NewServiceError("Gelato integration is not configured")
	}
	apiKey, err := g.creds.GelatoAPIKey(ctx)
	if err != nil || apiKey == "" {
		return nil, NewServiceError("Gelato integration is not configured")
	}

	client := &http.Client{Timeout: gelatoCatalogTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.APIBaseURL+"/v3/catalogs", nil)
	if err != nil {
		return nil, NewServiceError("Gelato catalog fetch failed")
	}
	req.Header.Set("X-API-KEY", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, NewServiceError("Gelato catalog fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, NewServiceError("Gelato catalog fetch failed")
	}

	var parsed []struct {
		CatalogUID string `json:"catalogUid"`
		Title      string `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, NewServiceError("Gelato catalog fetch failed")
	}

	templates := make([]TemplateInfo, 0, len(parsed))
	for _, entry := range parsed {
		if entry.CatalogUID == "" {
			continue
		}
		templates = append(templates, TemplateInfo{
			GelatoTemplateID: entry.CatalogUID,
			Name:             entry.Title,
			Metadata:         model.JSONB{"source": "gelato-catalog"},
		})
	}
	return templates, nil
}
