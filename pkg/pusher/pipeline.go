package pusher

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/podforge/podforge/pkg/adapters"
	"github.com/podforge/podforge/pkg/eventbus"
	"github.com/podforge/podforge/pkg/metrics"
	"github.com/podforge/podforge/pkg/model"
	"github.com/podforge/podforge/pkg/queue"
	"github.com/podforge/podforge/pkg/store/postgres"
)

const TaskName = "push_draft_to_shopify"

// Pipeline executes one push attempt: audit row, adapter call, atomic
// persistence of the outcome. Errors are returned so the queue's retry
// policy can act on the transient ones.
type Pipeline struct {
	db      *postgres.Store
	shopify adapters.ShopifyAPI
	bus     *eventbus.Bus
	logger  *zap.Logger
}

func NewPipeline(db *postgres.Store, shopify adapters.ShopifyAPI, bus *eventbus.Bus, logger *zap.Logger) *Pipeline {
	return &Pipeline{db: db, shopify: shopify, bus: bus, logger: logger}
}

// Handle adapts the pipeline to the queue handler signature.
func (p *Pipeline) Handle(ctx context.Context, task *queue.PushTask) error {
	return p.Run(ctx, task.DraftID)
}

// Run executes the full pipeline body for one attempt. Every invocation
// creates its own JobRun; prior runs for the same draft remain as history.
func (p *Pipeline) Run(ctx context.Context, draftID string) error {
	started := time.Now()

	jobRepo := postgres.NewJobRunRepository(p.db.DB())
	job := &model.JobRun{
		TaskName:    TaskName,
		ReferenceID: draftID,
		Status:      model.JobStatusRunning,
	}
	if err := jobRepo.Create(ctx, job); err != nil {
		return err
	}
	p.publishJobEvent(ctx, job, "")

	draftRepo := postgres.NewDraftRepository(p.db.DB())
	draft, err := draftRepo.GetByID(ctx, draftID)
	if err != nil {
		p.recordFailure(ctx, job, nil, err)
		metrics.PushesTotal.WithLabelValues("failed").Inc()
		return err
	}

	result, err := p.shopify.CreateProduct(ctx, draft.ID.String(), draft.Title)
	if err != nil {
		p.recordFailure(ctx, job, draft, err)
		metrics.PushesTotal.WithLabelValues("failed").Inc()
		return err
	}

	err = p.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := postgres.NewShopifyProductRepository(tx).UpsertByDraft(ctx, draft.ID, result.ExternalID, result.Payload); err != nil {
			return err
		}
		if err := postgres.NewDraftRepository(tx).UpdateStatus(ctx, draftID, model.DraftStatusPushed); err != nil {
			return err
		}
		return postgres.NewJobRunRepository(tx).Finalize(ctx, job.ID.String(), model.JobStatusSuccess, model.JSONB{
			"shopify_product_id": result.ExternalID,
		})
	})
	if err != nil {
		p.recordFailure(ctx, job, draft, err)
		metrics.PushesTotal.WithLabelValues("failed").Inc()
		return err
	}

	metrics.PushesTotal.WithLabelValues("success").Inc()
	metrics.PushDuration.Observe(time.Since(started).Seconds())

	job.Status = model.JobStatusSuccess
	p.publishJobEvent(ctx, job, "")
	p.publishDraftEvent(ctx, draftID, model.DraftStatusPushed)

	p.logger.Info("draft pushed",
		zap.String("draft_id", draftID),
		zap.String("shopify_product_id", result.ExternalID))
	return nil
}

// recordFailure marks the draft failed and finalizes the job in one
// transaction, so the audit row never disagrees with the draft.
func (p *Pipeline) recordFailure(ctx context.Context, job *model.JobRun, draft *model.ProductDraft, cause error) {
	err := p.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if draft != nil {
			if err := postgres.NewDraftRepository(tx).UpdateStatus(ctx, draft.ID.String(), model.DraftStatusFailed); err != nil {
				return err
			}
		}
		return postgres.NewJobRunRepository(tx).Finalize(ctx, job.ID.String(), model.JobStatusFailed, model.JSONB{
			"error": cause.Error(),
		})
	})
	if err != nil {
		p.logger.Error("failed to record push failure",
			zap.String("job_id", job.ID.String()),
			zap.Error(err))
	}

	job.Status = model.JobStatusFailed
	p.publishJobEvent(ctx, job, cause.Error())
	if draft != nil {
		p.publishDraftEvent(ctx, draft.ID.String(), model.DraftStatusFailed)
	}
}

func (p *Pipeline) publishJobEvent(ctx context.Context, job *model.JobRun, message string) {
	if p.bus == nil {
		return
	}
	event, err := eventbus.NewEvent("job_status", eventbus.JobEvent{
		JobID:       job.ID.String(),
		ReferenceID: job.ReferenceID,
		Status:      string(job.Status),
		Message:     message,
	})
	if err == nil {
		_ = p.bus.Publish(ctx, eventbus.ChannelJob, event)
	}
}

func (p *Pipeline) publishDraftEvent(ctx context.Context, draftID string, status model.DraftStatus) {
	if p.bus == nil {
		return
	}
	event, err := eventbus.NewEvent("draft_status", eventbus.DraftEvent{
		DraftID: draftID,
		Status:  string(status),
	})
	if err == nil {
		_ = p.bus.Publish(ctx, eventbus.ChannelDraft, event)
	}
}
