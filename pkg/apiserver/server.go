package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/podforge/podforge/pkg/adapters"
	"github.com/podforge/podforge/pkg/apiserver/handlers"
	"github.com/podforge/podforge/pkg/apiserver/middleware"
	"github.com/podforge/podforge/pkg/config"
	"github.com/podforge/podforge/pkg/integrations"
	"github.com/podforge/podforge/pkg/queue"
	"github.com/podforge/podforge/pkg/storage"
	"github.com/podforge/podforge/pkg/store/postgres"
)

type Server struct {
	router     *gin.Engine
	db         *postgres.Store
	cfg        *config.Config
	logger     *zap.Logger
	pushQueue  queue.Enqueuer
	service    *integrations.Service
	gelato     adapters.GelatoAPI
	assetStore *storage.LocalStore
}

func NewServer(
	db *postgres.Store,
	cfg *config.Config,
	logger *zap.Logger,
	pushQueue queue.Enqueuer,
	service *integrations.Service,
	gelato adapters.GelatoAPI,
	assetStore *storage.LocalStore,
) *Server {
	s := &Server{
		db:         db,
		cfg:        cfg,
		logger:     logger,
		pushQueue:  pushQueue,
		service:    service,
		gelato:     gelato,
		assetStore: assetStore,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		templateHandler := handlers.NewTemplateHandler(s.db, s.gelato, s.logger)
		api.GET("/templates", templateHandler.List)

		assetHandler := handlers.NewAssetHandler(s.db, s.assetStore, s.logger)
		api.POST("/assets/upload", assetHandler.Upload)

		draftHandler := handlers.NewDraftHandler(s.db, s.pushQueue, s.logger)
		api.POST("/drafts/bulk", draftHandler.BulkCreate)
		api.GET("/drafts", draftHandler.List)
		api.GET("/drafts/:id", draftHandler.Get)
		api.POST("/drafts/:id/push", draftHandler.Push)

		integrationHandler := handlers.NewIntegrationHandler(s.service, s.cfg, s.logger)
		api.GET("/integrations", integrationHandler.List)
		api.POST("/integrations/gelato", integrationHandler.ConnectGelato)
		api.DELETE("/integrations/gelato", integrationHandler.DisconnectGelato)
		api.POST("/integrations/shopify/start", integrationHandler.StartShopify)
		api.GET("/integrations/shopify/callback", integrationHandler.ShopifyCallback)
		api.DELETE("/integrations/shopify", integrationHandler.DisconnectShopify)
		api.POST("/integrations/shopify/test", integrationHandler.TestShopify)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
