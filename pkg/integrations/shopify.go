package integrations

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/podforge/podforge/pkg/config"
)

const (
	shopDomainSuffix     = ".myshopify.com"
	tokenExchangeTimeout = 15 * time.Second
)

// NormalizeShopDomain trims and lower-cases the operator-entered shop
// identifier, appends the canonical suffix to bare names, and rejects
// anything that does not resolve to a myshopify.com domain.
func NormalizeShopDomain(shopDomain string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(shopDomain))
	if value == "" {
		return "", NewError("Shop domain is required")
	}
	if !strings.Contains(value, ".") {
		value += shopDomainSuffix
	}
	if !strings.HasSuffix(value, shopDomainSuffix) {
		return "", NewError("Shop must end with " + shopDomainSuffix)
	}
	return value, nil
}

// ShopifyFlow implements the OAuth handshake: state issue/verify, HMAC
// verification, and code-for-token exchange.
type ShopifyFlow struct {
	cfg    *config.ShopifyConfig
	states StateCache
	client *http.Client
}

func NewShopifyFlow(cfg *config.ShopifyConfig, states StateCache) *ShopifyFlow {
	return &ShopifyFlow{
		cfg:    cfg,
		states: states,
		client: &http.Client{Timeout: tokenExchangeTimeout},
	}
}

func (f *ShopifyFlow) baseURL(shop string) string {
	if f.cfg.APIBaseURL != "" {
		return f.cfg.APIBaseURL
	}
	return "https://" + shop
}

// BeginOAuth issues a single-use state token and returns the provider
// authorization URL to redirect the operator to.
func (f *ShopifyFlow) BeginOAuth(ctx context.Context, shopDomain string, redirectURI string) (string, error) {
	shop, err := NormalizeShopDomain(shopDomain)
	if err != nil {
		return "", err
	}

	state, err := randomState()
	if err != nil {
		return "", err
	}
	if err := f.states.Set(ctx, state, shop); err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("client_id", f.cfg.ClientID)
	query.Set("scope", f.cfg.Scopes)
	query.Set("redirect_uri", redirectURI)
	query.Set("state", state)

	return fmt.Sprintf("%s/admin/oauth/authorize?%s", f.baseURL(shop), query.Encode()), nil
}

// VerifyState consumes the state token. The token is deleted before the
// comparison, so it is usable exactly once even when verification fails.
func (f *ShopifyFlow) VerifyState(ctx context.Context, state string, shop string) error {
	cachedShop, err := f.states.GetDel(ctx, state)
	if err != nil {
		return err
	}
	if cachedShop == "" || cachedShop != shop {
		return NewError("State validation failed")
	}
	return nil
}

// VerifyHMAC recomputes the SHA-256 HMAC over all callback parameters except
// hmac/signature, serialized as sorted key=value pairs joined with "&".
// Values are used exactly as received. Comparison is constant-time.
func VerifyHMAC(params map[string]string, clientSecret string) bool {
	provided := params["hmac"]

	keys := make([]string, 0, len(params))
	for key := range params {
		if key == "hmac" || key == "signature" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}
	message := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(message))
	digest := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(digest), []byte(provided))
}

// ExchangeCode trades the authorization code for an access token at the
// provider's token endpoint.
func (f *ShopifyFlow) ExchangeCode(ctx context.Context, shop string, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", f.cfg.ClientID)
	form.Set("client_secret", f.cfg.ClientSecret)
	form.Set("code", code)

	endpoint := f.baseURL(shop) + "/admin/oauth/access_token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", NewError("Token exchange failed")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", NewError("Token exchange failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", NewError("Token exchange failed")
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.AccessToken == "" {
		return "", NewError("Token exchange failed")
	}
	return body.AccessToken, nil
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
