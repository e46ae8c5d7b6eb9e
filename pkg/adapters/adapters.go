package adapters

import (
	"context"
	"errors"

	"github.com/podforge/podforge/pkg/config"
	"github.com/podforge/podforge/pkg/model"
)

// ServiceError is the single opaque error type every adapter failure is
// translated into. Callers never see transport-level detail, and it is the
// only error category the push queue treats as transient.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func NewServiceError(message string) *ServiceError {
	return &ServiceError{Message: message}
}

func IsServiceError(err error) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr)
}

// PushResult is the outcome of creating a commerce product.
type PushResult struct {
	ExternalID string
	Payload    model.JSONB
}

// TemplateInfo is one entry of the provider's template catalog.
type TemplateInfo struct {
	GelatoTemplateID string
	Name             string
	Metadata         model.JSONB
}

type ShopifyAPI interface {
	CreateProduct(ctx context.Context, draftID string, title string) (*PushResult, error)
	TestConnection(ctx context.Context, shop string, accessToken string) error
}

type GelatoAPI interface {
	ListTemplates(ctx context.Context) ([]TemplateInfo, error)
	ValidateKey(ctx context.Context, apiKey string) error
}

// ShopifyCredentialSource supplies the stored shop/token pair to the real
// Shopify adapter at call time.
type ShopifyCredentialSource interface {
	ShopifyCredentials(ctx context.Context) (shop string, accessToken string, err error)
}

// GelatoCredentialSource supplies the stored Gelato API key.
type GelatoCredentialSource interface {
	GelatoAPIKey(ctx context.Context) (string, error)
}

// NewShopify selects the mock or real implementation from configuration.
func NewShopify(cfg *config.Config, creds ShopifyCredentialSource) ShopifyAPI {
	if cfg.Integrations.UseMockAPIs {
		return NewMockShopify()
	}
	return NewRealShopify(&cfg.Shopify, creds)
}

// NewGelato selects the mock or real implementation from configuration.
func NewGelato(cfg *config.Config, creds GelatoCredentialSource) GelatoAPI {
	if cfg.Integrations.UseMockAPIs {
		return NewMockGelato()
	}
	return NewRealGelato(&cfg.Gelato, creds)
}
