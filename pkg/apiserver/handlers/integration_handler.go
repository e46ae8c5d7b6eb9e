package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/podforge/podforge/pkg/config"
	"github.com/podforge/podforge/pkg/integrations"
	"github.com/podforge/podforge/pkg/metrics"
)

type IntegrationHandler struct {
	service *integrations.Service
	cfg     *config.Config
	logger  *zap.Logger
}

func NewIntegrationHandler(service *integrations.Service, cfg *config.Config, logger *zap.Logger) *IntegrationHandler {
	return &IntegrationHandler{service: service, cfg: cfg, logger: logger}
}

func (h *IntegrationHandler) List(c *gin.Context) {
	statuses, err := h.service.Statuses(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to derive integration statuses", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list integrations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": statuses})
}

type gelatoConnectRequest struct {
	APIKey string `json:"apiKey" binding:"required"`
}

func (h *IntegrationHandler) ConnectGelato(c *gin.Context) {
	var req gelatoConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "apiKey is required"})
		return
	}

	if err := h.service.ConnectGelato(c.Request.Context(), req.APIKey); err != nil {
		if integrations.IsIntegrationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to connect gelato", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to connect gelato"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "connected"})
}

func (h *IntegrationHandler) DisconnectGelato(c *gin.Context) {
	if err := h.service.DisconnectGelato(c.Request.Context()); err != nil {
		h.logger.Error("failed to disconnect gelato", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to disconnect gelato"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

type shopifyStartRequest struct {
	ShopDomain string `json:"shopDomain" binding:"required"`
}

// StartShopify begins the OAuth handshake and returns the authorization URL
// the frontend should redirect the operator to. The callback URI is derived
// from the incoming request so it matches the host the operator is using.
func (h *IntegrationHandler) StartShopify(c *gin.Context) {
	var req shopifyStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shopDomain is required"})
		return
	}

	redirectURI := callbackURI(c)
	authorizeURL, err := h.service.StartShopifyOAuth(c.Request.Context(), req.ShopDomain, redirectURI)
	if err != nil {
		if integrations.IsIntegrationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to start shopify oauth", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start shopify oauth"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirectUrl": authorizeURL})
}

// ShopifyCallback handles the provider redirect. It always answers with a
// 302 back to the app so the operator never lands on a bare API error page.
func (h *IntegrationHandler) ShopifyCallback(c *gin.Context) {
	params := map[string]string{}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	if err := h.service.CompleteShopifyOAuth(c.Request.Context(), params); err != nil {
		metrics.OAuthCallbacksTotal.WithLabelValues("shopify", "error").Inc()
		h.logger.Warn("shopify oauth callback failed", zap.Error(err))
		c.Redirect(http.StatusFound,
			h.cfg.Integrations.AppBaseURL+"?shopify=error&reason="+url.QueryEscape(err.Error()))
		return
	}

	metrics.OAuthCallbacksTotal.WithLabelValues("shopify", "connected").Inc()
	c.Redirect(http.StatusFound, h.cfg.Integrations.AppBaseURL+"?shopify=connected")
}

func (h *IntegrationHandler) DisconnectShopify(c *gin.Context) {
	if err := h.service.DisconnectShopify(c.Request.Context()); err != nil {
		h.logger.Error("failed to disconnect shopify", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to disconnect shopify"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

func (h *IntegrationHandler) TestShopify(c *gin.Context) {
	if err := h.service.TestShopify(c.Request.Context()); err != nil {
		if integrations.IsIntegrationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to test shopify connection", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to test shopify connection"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func callbackURI(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + "/api/integrations/shopify/callback"
}
