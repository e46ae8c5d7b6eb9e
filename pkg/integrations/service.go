package integrations

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/podforge/podforge/pkg/adapters"
	"github.com/podforge/podforge/pkg/model"
	"github.com/podforge/podforge/pkg/secrets"
	"github.com/podforge/podforge/pkg/store/postgres"
)

// Status is the derived read-side view of one provider connection.
type Status struct {
	Provider     model.Provider `json:"provider"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"errorMessage"`
	Metadata     model.JSONB    `json:"metadata"`
}

// Service orchestrates the connection lifecycle for both providers: OAuth
// callback handling, credential validation, status aggregation.
type Service struct {
	repo    *postgres.IntegrationRepository
	secrets *secrets.Store
	flow    *ShopifyFlow
	shopify adapters.ShopifyAPI
	gelato  adapters.GelatoAPI
	logger  *zap.Logger
}

func NewService(
	repo *postgres.IntegrationRepository,
	secretStore *secrets.Store,
	flow *ShopifyFlow,
	shopify adapters.ShopifyAPI,
	gelato adapters.GelatoAPI,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:    repo,
		secrets: secretStore,
		flow:    flow,
		shopify: shopify,
		gelato:  gelato,
		logger:  logger,
	}
}

func (s *Service) SetAdapters(shopify adapters.ShopifyAPI, gelato adapters.GelatoAPI) {
	s.shopify = shopify
	s.gelato = gelato
}

// Statuses derives the per-provider status: error wins over connected, a
// stored secret means connected, otherwise disconnected. Read-only.
func (s *Service) Statuses(ctx context.Context) ([]Status, error) {
	statuses := make([]Status, 0, len(model.KnownProviders()))
	for _, provider := range model.KnownProviders() {
		connection, err := s.repo.GetOrCreate(ctx, provider)
		if err != nil {
			return nil, err
		}

		status := "disconnected"
		if connection.EncryptedSecret != "" {
			status = "connected"
		}
		if connection.LastError != "" {
			status = "error"
		}

		metadata := connection.Metadata
		if metadata == nil {
			metadata = model.JSONB{}
		}
		statuses = append(statuses, Status{
			Provider:     provider,
			Status:       status,
			ErrorMessage: connection.LastError,
			Metadata:     metadata,
		})
	}
	return statuses, nil
}

// ConnectGelato validates the API key against the provider and stores it.
// Validation failures are recorded into last_error before returning.
func (s *Service) ConnectGelato(ctx context.Context, apiKey string) error {
	if err := s.gelato.ValidateKey(ctx, apiKey); err != nil {
		message := "Invalid API key"
		if recordErr := s.repo.SetLastError(ctx, model.ProviderGelato, message); recordErr != nil {
			s.logger.Error("failed to record gelato error", zap.Error(recordErr))
		}
		return NewError(message)
	}

	if err := s.secrets.Set(ctx, model.ProviderGelato, map[string]string{"apiKey": apiKey}); err != nil {
		return err
	}
	return s.markVerified(ctx, model.ProviderGelato)
}

func (s *Service) DisconnectGelato(ctx context.Context) error {
	return s.secrets.Clear(ctx, model.ProviderGelato)
}

func (s *Service) DisconnectShopify(ctx context.Context) error {
	return s.secrets.Clear(ctx, model.ProviderShopify)
}

// StartShopifyOAuth normalizes the shop and returns the authorization URL.
func (s *Service) StartShopifyOAuth(ctx context.Context, shopDomain string, redirectURI string) (string, error) {
	return s.flow.BeginOAuth(ctx, shopDomain, redirectURI)
}

// CompleteShopifyOAuth runs the callback orchestration in the mandatory
// order: state, then HMAC, then code exchange. The first failure records
// last_error and short-circuits the rest.
func (s *Service) CompleteShopifyOAuth(ctx context.Context, params map[string]string) error {
	shop := params["shop"]
	state := params["state"]
	code := params["code"]

	if err := s.flow.VerifyState(ctx, state, shop); err != nil {
		return s.failCallback(ctx, err)
	}
	if !VerifyHMAC(params, s.flow.cfg.ClientSecret) {
		return s.failCallback(ctx, NewError("HMAC validation failed"))
	}
	accessToken, err := s.flow.ExchangeCode(ctx, shop, code)
	if err != nil {
		return s.failCallback(ctx, err)
	}

	// Secret, metadata and error-clear land in a single update so the row
	// never holds a valid secret alongside a stale error.
	blob, err := s.secrets.Encode(map[string]string{"shop": shop, "accessToken": accessToken})
	if err != nil {
		return err
	}
	if _, err := s.repo.GetOrCreate(ctx, model.ProviderShopify); err != nil {
		return err
	}
	return s.repo.Update(ctx, model.ProviderShopify, map[string]interface{}{
		"encrypted_secret": blob,
		"metadata":         model.JSONB{"shopDomain": shop},
		"last_error":       "",
	})
}

func (s *Service) failCallback(ctx context.Context, err error) error {
	if recordErr := s.repo.SetLastError(ctx, model.ProviderShopify, err.Error()); recordErr != nil {
		s.logger.Error("failed to record shopify error", zap.Error(recordErr))
	}
	return err
}

// TestShopify re-validates the stored credential against the live API.
func (s *Service) TestShopify(ctx context.Context) error {
	secret, err := s.secrets.Get(ctx, model.ProviderShopify)
	if err != nil {
		return err
	}
	if secret == nil {
		return NewError("Shopify is not connected")
	}

	if err := s.shopify.TestConnection(ctx, secret["shop"], secret["accessToken"]); err != nil {
		message := "Shop not reachable"
		if recordErr := s.repo.SetLastError(ctx, model.ProviderShopify, message); recordErr != nil {
			s.logger.Error("failed to record shopify error", zap.Error(recordErr))
		}
		return NewError(message)
	}
	return s.markVerified(ctx, model.ProviderShopify)
}

func (s *Service) markVerified(ctx context.Context, provider model.Provider) error {
	connection, err := s.repo.GetOrCreate(ctx, provider)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"last_verified_at": &now,
		"last_error":       "",
	}
	if provider == model.ProviderGelato {
		metadata := model.JSONB{}
		for key, value := range connection.Metadata {
			metadata[key] = value
		}
		metadata["lastVerified"] = now.Format(time.RFC3339)
		updates["metadata"] = metadata
	}
	return s.repo.Update(ctx, provider, updates)
}

// ShopifyCredentials implements adapters.ShopifyCredentialSource.
func (s *Service) ShopifyCredentials(ctx context.Context) (string, string, error) {
	secret, err := s.secrets.Get(ctx, model.ProviderShopify)
	if err != nil {
		return "", "", err
	}
	if secret == nil {
		return "", "", NewError("Shopify is not connected")
	}
	return secret["shop"], secret["accessToken"], nil
}

// GelatoAPIKey implements adapters.GelatoCredentialSource.
func (s *Service) GelatoAPIKey(ctx context.Context) (string, error) {
	secret, err := s.secrets.Get(ctx, model.ProviderGelato)
	if err != nil {
		return "", err
	}
	if secret == nil {
		return "", NewError("Gelato is not connected")
	}
	return secret["apiKey"], nil
}
