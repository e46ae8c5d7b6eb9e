package handlers

import (
	"time"

	"github.com/podforge/podforge/pkg/model"
)

const timeRFC3339Nano = time.RFC3339Nano

func formatTime(value time.Time) string {
	return value.UTC().Format(timeRFC3339Nano)
}

type templateResponse struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	GelatoTemplateID string      `json:"gelato_template_id"`
	Metadata         model.JSONB `json:"metadata"`
	IsActive         bool        `json:"is_active"`
}

type assetResponse struct {
	ID               string `json:"id"`
	File             string `json:"file"`
	OriginalFilename string `json:"original_filename"`
	MimeType         string `json:"mime_type"`
	SizeBytes        int64  `json:"size_bytes"`
	CreatedAt        string `json:"created_at"`
}

type draftResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Tags        []string          `json:"tags"`
	SEO         model.JSONB       `json:"seo"`
	Status      string            `json:"status"`
	Price       string            `json:"price"`
	Template    *templateResponse `json:"template"`
	Assets      []assetResponse   `json:"assets"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

func mapTemplate(template *model.Template) templateResponse {
	metadata := template.Metadata
	if metadata == nil {
		metadata = model.JSONB{}
	}
	return templateResponse{
		ID:               template.ID.String(),
		Name:             template.Name,
		GelatoTemplateID: template.GelatoTemplateID,
		Metadata:         metadata,
		IsActive:         template.IsActive,
	}
}

func mapAsset(asset *model.DesignAsset) assetResponse {
	return assetResponse{
		ID:               asset.ID.String(),
		File:             asset.StorageKey,
		OriginalFilename: asset.OriginalFilename,
		MimeType:         asset.MimeType,
		SizeBytes:        asset.SizeBytes,
		CreatedAt:        formatTime(asset.CreatedAt),
	}
}

func mapDraft(draft *model.ProductDraft) draftResponse {
	assets := make([]assetResponse, 0, len(draft.Assets))
	for i := range draft.Assets {
		assets = append(assets, mapAsset(&draft.Assets[i]))
	}

	var template *templateResponse
	if draft.Template != nil {
		mapped := mapTemplate(draft.Template)
		template = &mapped
	}

	tags := draft.Tags
	if tags == nil {
		tags = model.StringList{}
	}
	seo := draft.SEO
	if seo == nil {
		seo = model.JSONB{}
	}

	return draftResponse{
		ID:          draft.ID.String(),
		Title:       draft.Title,
		Description: draft.Description,
		Tags:        tags,
		SEO:         seo,
		Status:      string(draft.Status),
		Price:       draft.Price.StringFixed(2),
		Template:    template,
		Assets:      assets,
		CreatedAt:   formatTime(draft.CreatedAt),
		UpdatedAt:   formatTime(draft.UpdatedAt),
	}
}
