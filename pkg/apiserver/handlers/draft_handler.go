package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/podforge/podforge/pkg/model"
	"github.com/podforge/podforge/pkg/queue"
	"github.com/podforge/podforge/pkg/store/postgres"
)

type DraftHandler struct {
	db     *postgres.Store
	queue  queue.Enqueuer
	logger *zap.Logger
}

func NewDraftHandler(db *postgres.Store, pushQueue queue.Enqueuer, logger *zap.Logger) *DraftHandler {
	return &DraftHandler{db: db, queue: pushQueue, logger: logger}
}

type draftCreateItem struct {
	TemplateID  string                 `json:"template_id" binding:"required"`
	Title       string                 `json:"title" binding:"required"`
	Description string                 `json:"description"`
	Tags        []string               `json:"tags"`
	SEO         map[string]interface{} `json:"seo"`
	Price       string                 `json:"price" binding:"required"`
	AssetIDs    []string               `json:"asset_ids" binding:"required"`
}

type bulkDraftCreateRequest struct {
	Drafts []draftCreateItem `json:"drafts" binding:"required"`
}

type validatedDraft struct {
	draft    *model.ProductDraft
	template *model.Template
	assets   []model.DesignAsset
}

// BulkCreate validates every item before touching the database, then creates
// all drafts in one transaction. A bulk request is all-or-nothing: one bad
// item leaves nothing persisted.
func (h *DraftHandler) BulkCreate(c *gin.Context) {
	var req bulkDraftCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if len(req.Drafts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "drafts must not be empty"})
		return
	}

	ctx := c.Request.Context()
	templateRepo := postgres.NewTemplateRepository(h.db.DB())
	assetRepo := postgres.NewAssetRepository(h.db.DB())

	validated := make([]validatedDraft, 0, len(req.Drafts))
	for _, item := range req.Drafts {
		if len(item.AssetIDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "asset_ids must not be empty"})
			return
		}

		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}
		if price.Exponent() < -2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must have at most 2 decimal places"})
			return
		}

		templateID, err := uuid.Parse(item.TemplateID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template_id"})
			return
		}
		template, err := templateRepo.GetByID(ctx, templateID.String())
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown template_id"})
				return
			}
			h.logger.Error("failed to load template", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create drafts"})
			return
		}

		assets, err := assetRepo.GetByIDs(ctx, item.AssetIDs)
		if err != nil {
			h.logger.Error("failed to load assets", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create drafts"})
			return
		}
		if len(assets) != len(item.AssetIDs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown asset_ids"})
			return
		}

		validated = append(validated, validatedDraft{
			draft: &model.ProductDraft{
				Title:       item.Title,
				Description: item.Description,
				Tags:        model.StringList(item.Tags),
				SEO:         model.JSONB(item.SEO),
				Status:      model.DraftStatusDraft,
				Price:       price,
				TemplateID:  template.ID,
			},
			template: template,
			assets:   assets,
		})
	}

	err := h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := postgres.NewDraftRepository(tx)
		for _, entry := range validated {
			if err := repo.CreateWithAssets(ctx, entry.draft, entry.assets); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.logger.Error("failed to create drafts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create drafts"})
		return
	}

	created := make([]draftResponse, 0, len(validated))
	for _, entry := range validated {
		entry.draft.Template = entry.template
		entry.draft.Assets = entry.assets
		created = append(created, mapDraft(entry.draft))
	}
	c.JSON(http.StatusCreated, created)
}

func (h *DraftHandler) List(c *gin.Context) {
	drafts, err := postgres.NewDraftRepository(h.db.DB()).List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list drafts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list drafts"})
		return
	}

	response := make([]draftResponse, 0, len(drafts))
	for i := range drafts {
		response = append(response, mapDraft(&drafts[i]))
	}
	c.JSON(http.StatusOK, response)
}

func (h *DraftHandler) Get(c *gin.Context) {
	draftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid draft id"})
		return
	}

	draft, err := postgres.NewDraftRepository(h.db.DB()).GetByID(c.Request.Context(), draftID.String())
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
			return
		}
		h.logger.Error("failed to get draft", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get draft"})
		return
	}

	c.JSON(http.StatusOK, mapDraft(draft))
}

// Push queues the draft for asynchronous pushing and returns 202 with the
// task handle. The actual pipeline runs on a worker.
func (h *DraftHandler) Push(c *gin.Context) {
	draftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid draft id"})
		return
	}

	ctx := c.Request.Context()
	repo := postgres.NewDraftRepository(h.db.DB())
	draft, err := repo.GetByID(ctx, draftID.String())
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
			return
		}
		h.logger.Error("failed to get draft", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to push draft"})
		return
	}

	if err := repo.UpdateStatus(ctx, draft.ID.String(), model.DraftStatusQueued); err != nil {
		h.logger.Error("failed to queue draft", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to push draft"})
		return
	}

	task := &queue.PushTask{
		TaskID:  uuid.New().String(),
		DraftID: draft.ID.String(),
	}
	if err := h.queue.Enqueue(ctx, task); err != nil {
		h.logger.Error("failed to enqueue push task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to push draft"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id":  task.TaskID,
		"draft_id": draft.ID.String(),
	})
}
