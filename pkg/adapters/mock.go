package adapters

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/podforge/podforge/pkg/model"
)

// MockShopify fabricates deterministic-shaped results for development and
// tests. No network calls are made.
type MockShopify struct{}

func NewMockShopify() *MockShopify {
	return &MockShopify{}
}

func (m *MockShopify) CreateProduct(_ context.Context, draftID string, title string) (*PushResult, error) {
	externalID := fmt.Sprintf("mock-shopify-%s-%d", draftID, 1000+rand.Intn(9000))
	return &PushResult{
		ExternalID: externalID,
		Payload:    model.JSONB{"title": title, "mode": "mock"},
	}, nil
}

func (m *MockShopify) TestConnection(_ context.Context, _ string, _ string) error {
	return nil
}

type MockGelato struct{}

func NewMockGelato() *MockGelato {
	return &MockGelato{}
}

func (m *MockGelato) ListTemplates(_ context.Context) ([]TemplateInfo, error) {
	return []TemplateInfo{
		{
			GelatoTemplateID: "gelato-tee-unisex",
			Name:             "Unisex Tee",
			Metadata:         model.JSONB{"category": "apparel"},
		},
		{
			GelatoTemplateID: "gelato-poster-a3",
			Name:             "Poster A3",
			Metadata:         model.JSONB{"category": "wall-art"},
		},
	}, nil
}

func (m *MockGelato) ValidateKey(_ context.Context, apiKey string) error {
	if apiKey == "" {
		return NewServiceError("Invalid API key")
	}
	return nil
}
