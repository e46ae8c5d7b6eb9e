package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/podforge/podforge/pkg/model"
	"github.com/podforge/podforge/pkg/storage"
	"github.com/podforge/podforge/pkg/store/postgres"
)

type AssetHandler struct {
	db     *postgres.Store
	assets *storage.LocalStore
	logger *zap.Logger
}

func NewAssetHandler(db *postgres.Store, assets *storage.LocalStore, logger *zap.Logger) *AssetHandler {
	return &AssetHandler{db: db, assets: assets, logger: logger}
}

// Upload accepts one or more files under the multipart field "files" and
// creates one immutable asset record per file.
func (h *AssetHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart request"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files uploaded"})
		return
	}

	repo := postgres.NewAssetRepository(h.db.DB())
	created := make([]assetResponse, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return
		}

		key, err := h.assets.Save(header.Filename, file)
		file.Close()
		if err != nil {
			h.logger.Error("failed to store asset", zap.String("filename", header.Filename), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store asset"})
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		asset := &model.DesignAsset{
			StorageKey:       key,
			OriginalFilename: header.Filename,
			MimeType:         mimeType,
			SizeBytes:        header.Size,
		}
		if err := repo.Create(c.Request.Context(), asset); err != nil {
			h.logger.Error("failed to create asset record", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create asset"})
			return
		}
		created = append(created, mapAsset(asset))
	}

	c.JSON(http.StatusCreated, created)
}
