package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/podforge/podforge/pkg/adapters"
	"github.com/podforge/podforge/pkg/model"
	"github.com/podforge/podforge/pkg/store/postgres"
)

type TemplateHandler struct {
	db     *postgres.Store
	gelato adapters.GelatoAPI
	logger *zap.Logger
}

func NewTemplateHandler(db *postgres.Store, gelato adapters.GelatoAPI, logger *zap.Logger) *TemplateHandler {
	return &TemplateHandler{db: db, gelato: gelato, logger: logger}
}

// List returns active templates, lazily seeding the table from the catalog
// adapter on first call when it is empty. A failed seed is logged and the
// (empty) listing still succeeds.
func (h *TemplateHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	repo := postgres.NewTemplateRepository(h.db.DB())

	total, err := repo.Count(ctx)
	if err != nil {
		h.logger.Error("failed to count templates", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list templates"})
		return
	}

	if total == 0 {
		if entries, err := h.gelato.ListTemplates(ctx); err != nil {
			h.logger.Warn("template catalog seed skipped", zap.Error(err))
		} else {
			for _, entry := range entries {
				_, err := repo.GetOrCreate(ctx, entry.GelatoTemplateID, model.Template{
					Name:     entry.Name,
					Metadata: entry.Metadata,
				})
				if err != nil {
					h.logger.Error("failed to seed template",
						zap.String("gelato_template_id", entry.GelatoTemplateID),
						zap.Error(err))
				}
			}
		}
	}

	templates, err := repo.ListActive(ctx)
	if err != nil {
		h.logger.Error("failed to list templates", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list templates"})
		return
	}

	response := make([]templateResponse, 0, len(templates))
	for i := range templates {
		response = append(response, mapTemplate(&templates[i]))
	}
	c.JSON(http.StatusOK, response)
}
