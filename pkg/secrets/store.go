package secrets

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/podforge/podforge/pkg/model"
	"github.com/podforge/podforge/pkg/store/postgres"
)

var ErrSigningKeyRequired = errors.New("secret signing key is required")

// Store persists per-provider credential maps as HS256-signed blobs on the
// connection row. The signature is tamper-evidence, not confidentiality; a
// blob that fails verification is treated as "never connected".
type Store struct {
	repo       *postgres.IntegrationRepository
	signingKey []byte
}

func NewStore(repo *postgres.IntegrationRepository, signingKey string) (*Store, error) {
	if signingKey == "" {
		return nil, ErrSigningKeyRequired
	}
	return &Store{repo: repo, signingKey: []byte(signingKey)}, nil
}

// Encode signs a secret map into the blob stored on the connection row.
// Callers that need to write the blob together with other columns in one
// update use this directly.
func (s *Store) Encode(secret map[string]string) (string, error) {
	claims := jwt.MapClaims{"data": secret}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

func (s *Store) Set(ctx context.Context, provider model.Provider, secret map[string]string) error {
	signed, err := s.Encode(secret)
	if err != nil {
		return err
	}
	if _, err := s.repo.GetOrCreate(ctx, provider); err != nil {
		return err
	}
	return s.repo.Update(ctx, provider, map[string]interface{}{"encrypted_secret": signed})
}

// Get returns the stored secret map, or (nil, nil) when no secret is stored
// or the stored blob fails signature verification. Verification failures are
// never surfaced as errors.
func (s *Store) Get(ctx context.Context, provider model.Provider) (map[string]string, error) {
	connection, err := s.repo.GetOrCreate(ctx, provider)
	if err != nil {
		return nil, err
	}
	return s.Decode(connection.EncryptedSecret), nil
}

// Decode verifies and unpacks a stored blob. Empty or tampered blobs yield nil.
func (s *Store) Decode(blob string) map[string]string {
	if blob == "" {
		return nil
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	token, err := parser.Parse(blob, func(_ *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	data, ok := claims["data"].(map[string]interface{})
	if !ok {
		return nil
	}
	secret := make(map[string]string, len(data))
	for key, value := range data {
		text, ok := value.(string)
		if !ok {
			return nil
		}
		secret[key] = text
	}
	return secret
}

// Clear wipes secret, metadata, error and verification timestamp in one
// update; the connection row stays.
func (s *Store) Clear(ctx context.Context, provider model.Provider) error {
	return s.repo.Clear(ctx, provider)
}
