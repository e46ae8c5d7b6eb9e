package secrets

import (
	"context"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/podforge/podforge/pkg/model"
	"github.com/podforge/podforge/pkg/store/postgres"
)

func newTestRepo(t *testing.T) *postgres.IntegrationRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&model.IntegrationConnection{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return postgres.NewIntegrationRepository(db)
}

func TestNewStoreRequiresSigningKey(t *testing.T) {
	if _, err := NewStore(newTestRepo(t), ""); err != ErrSigningKeyRequired {
		t.Fatalf("expected ErrSigningKeyRequired, got %v", err)
	}
}

func TestSecretRoundTrip(t *testing.T) {
	store, err := NewStore(newTestRepo(t), "test-signing-key")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()

	secret := map[string]string{"shop": "demo.myshopify.com", "accessToken": "shpat_abc"}
	if err := store.Set(ctx, model.ProviderShopify, secret); err != nil {
		t.Fatalf("failed to set secret: %v", err)
	}

	got, err := store.Get(ctx, model.ProviderShopify)
	if err != nil {
		t.Fatalf("failed to get secret: %v", err)
	}
	if got == nil {
		t.Fatal("expected secret, got nil")
	}
	if got["shop"] != "demo.myshopify.com" || got["accessToken"] != "shpat_abc" {
		t.Fatalf("unexpected secret: %v", got)
	}
}

func TestGetReturnsNilWhenUnset(t *testing.T) {
	store, err := NewStore(newTestRepo(t), "test-signing-key")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	got, err := store.Get(context.Background(), model.ProviderGelato)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil secret, got %v", got)
	}
}

func TestTamperedBlobYieldsNil(t *testing.T) {
	repo := newTestRepo(t)
	store, err := NewStore(repo, "test-signing-key")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()

	if err := store.Set(ctx, model.ProviderGelato, map[string]string{"apiKey": "gk_123"}); err != nil {
		t.Fatalf("failed to set secret: %v", err)
	}

	connection, err := repo.GetOrCreate(ctx, model.ProviderGelato)
	if err != nil {
		t.Fatalf("failed to load connection: %v", err)
	}

	// Flip one character of the signature segment.
	blob := connection.EncryptedSecret
	last := blob[len(blob)-1]
	replacement := byte('A')
	if last == 'A' {
		replacement = 'B'
	}
	tampered := blob[:len(blob)-1] + string(replacement)
	if tampered == blob {
		t.Fatal("tampering produced an identical blob")
	}

	if got := store.Decode(tampered); got != nil {
		t.Fatalf("expected nil for tampered blob, got %v", got)
	}
	if got := store.Decode(strings.Repeat("x", 20)); got != nil {
		t.Fatalf("expected nil for garbage blob, got %v", got)
	}
}

func TestWrongKeyYieldsNil(t *testing.T) {
	repo := newTestRepo(t)
	store, err := NewStore(repo, "key-one")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()

	if err := store.Set(ctx, model.ProviderGelato, map[string]string{"apiKey": "gk_123"}); err != nil {
		t.Fatalf("failed to set secret: %v", err)
	}

	other, err := NewStore(repo, "key-two")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	got, err := other.Get(ctx, model.ProviderGelato)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil under a different key, got %v", got)
	}
}

func TestClearWipesConnection(t *testing.T) {
	repo := newTestRepo(t)
	store, err := NewStore(repo, "test-signing-key")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()

	if err := store.Set(ctx, model.ProviderShopify, map[string]string{"shop": "demo.myshopify.com"}); err != nil {
		t.Fatalf("failed to set secret: %v", err)
	}
	if err := repo.SetLastError(ctx, model.ProviderShopify, "Shop not reachable"); err != nil {
		t.Fatalf("failed to set error: %v", err)
	}

	if err := store.Clear(ctx, model.ProviderShopify); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}

	connection, err := repo.GetOrCreate(ctx, model.ProviderShopify)
	if err != nil {
		t.Fatalf("failed to load connection: %v", err)
	}
	if connection.EncryptedSecret != "" {
		t.Fatal("expected secret to be wiped")
	}
	if connection.LastError != "" {
		t.Fatal("expected last error to be wiped")
	}
	if connection.LastVerifiedAt != nil {
		t.Fatal("expected verification timestamp to be wiped")
	}
	if len(connection.Metadata) != 0 {
		t.Fatalf("expected empty metadata, got %v", connection.Metadata)
	}
}
