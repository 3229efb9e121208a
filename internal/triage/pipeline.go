// Package triage runs the orchestration state machine: validate → classify →
// route → workflow → finalize. Each run executes on its own goroutine, holds
// no state shared with other runs, and ends with exactly one terminal event.
package triage

import (
	"context"
	"time"

	"email-triage/internal/common/errors"
	"email-triage/internal/common/logger"
	"email-triage/internal/common/metrics"
	"email-triage/internal/common/observability"
	"email-triage/internal/events"
	"email-triage/internal/guardrails"
	"email-triage/internal/llm"
	"email-triage/internal/models"
	"email-triage/internal/schema"
	"email-triage/internal/store"
)

// RawEmail is the unvalidated submission as received from the HTTP surface.
type RawEmail struct {
	Subject     string
	Body        string
	Attachments []models.AttachmentInfo
}

// ProductSearcher is the slice of the product store the sales workflow needs.
type ProductSearcher interface {
	SearchByMention(ctx context.Context, mentions []string) ([]models.Product, error)
	SearchByKeywords(ctx context.Context, keywords []string, limit int) ([]models.Product, error)
}

// TicketWriter persists tickets for the sales and support workflows.
type TicketWriter interface {
	CreateSalesTicket(ctx context.Context, email *models.EmailInput, cls *models.ClassificationResult) (string, error)
	CreateSupportTicket(ctx context.Context, email *models.EmailInput, cls *models.ClassificationResult) (string, error)
}

// Pipeline wires the collaborators of a triage run.
type Pipeline struct {
	kb       llm.KnowledgeBase
	model    llm.Client
	tickets  TicketWriter
	products ProductSearcher
	catalog  store.ActiveLister
	registry *events.Registry
	obs      *observability.Observability
	logger   logger.Logger
}

func NewPipeline(
	model llm.Client,
	tickets TicketWriter,
	products ProductSearcher,
	catalog store.ActiveLister,
	registry *events.Registry,
	obs *observability.Observability,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		kb:       llm.DefaultKnowledgeBase(),
		model:    model,
		tickets:  tickets,
		products: products,
		catalog:  catalog,
		registry: registry,
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"component": "triage"}),
	}
}

// Run executes one triage run to completion. It is the per-run worker body:
// callers spawn it on its own goroutine. Every outcome ends in exactly one
// terminal event on the run's channel; errors are never re-raised past here.
func (p *Pipeline) Run(ctx context.Context, runID string, raw RawEmail) {
	start := time.Now()
	metrics.RunsStarted.Inc()
	log := p.logger.WithFields(map[string]interface{}{"runId": runID})

	p.emit(runID, events.Status("start", "Workflow started...", 1))

	final, err := p.execute(ctx, runID, raw)
	if err != nil {
		code := string(errors.CodeOf(err))
		if code == "" {
			code = "INTERNAL_ERROR"
		}
		metrics.RunsFailed.WithLabelValues(code).Inc()
		p.obs.RecordRunProcessed(ctx, "error")
		p.obs.RecordRunDuration(ctx, time.Since(start), "error")
		log.WithError(err).Error("run failed", map[string]interface{}{"errorCode": code})
		p.emit(runID, events.Error(errors.UserMessage(err)))
		return
	}

	metrics.RunsCompleted.WithLabelValues(string(final.Category)).Inc()
	p.obs.RecordRunProcessed(ctx, "success")
	p.obs.RecordRunDuration(ctx, time.Since(start), "success")
	log.Info("run completed", map[string]interface{}{
		"category": final.Category,
		"duration": time.Since(start).String(),
	})
	p.emit(runID, events.Final(final))
}

func (p *Pipeline) execute(ctx context.Context, runID string, raw RawEmail) (*models.FinalAgentResponse, error) {
	email, err := p.validate(runID, raw)
	if err != nil {
		return nil, err
	}

	cls, err := p.classify(ctx, runID, email)
	if err != nil {
		return nil, err
	}

	var final *models.FinalAgentResponse
	switch Route(cls) {
	case BranchSales:
		final, err = p.runSales(ctx, runID, email, cls)
	case BranchSupport:
		final, err = p.runSupport(ctx, runID, email, cls)
	default:
		final, err = p.runUnknown(runID, cls)
	}
	if err != nil {
		return nil, err
	}

	return p.finalize(runID, final)
}

// validate constructs the immutable EmailInput and applies the injection
// guardrails. No model call happens before this stage passes.
func (p *Pipeline) validate(runID string, raw RawEmail) (*models.EmailInput, error) {
	defer stageTimer("validate")()
	p.emit(runID, events.Status("validate", "Validating input and attachments...", 5))

	email, err := guardrails.ValidateEmail(raw.Subject, raw.Body, raw.Attachments)
	if err != nil {
		return nil, err
	}
	if err := guardrails.CheckBody(email.Body); err != nil {
		return nil, err
	}

	p.emit(runID, events.Status("validate", "Input validated.", 10))
	return email, nil
}

// classify performs the single classification call and enforces the shape of
// the answer. Its semantic correctness is the model's responsibility.
func (p *Pipeline) classify(ctx context.Context, runID string, email *models.EmailInput) (*models.ClassificationResult, error) {
	defer stageTimer("classify")()
	p.emit(runID, events.Status("classify", "Classifying email (sales vs support) and intent...", 20))

	raw, err := p.model.Complete(ctx, llm.ClassifyPrompt(p.kb, email.Subject, email.Body))
	if err != nil {
		return nil, errors.NewModelCallFailedError("classify", err)
	}

	cls, err := schema.ParseClassification(raw)
	if err != nil {
		return nil, err
	}

	p.emit(runID, events.Status("classify",
		"Classified as "+string(cls.Category)+" ("+string(cls.Intent)+").", 35))
	return cls, nil
}

// finalize re-validates the assembled response. This is the single point
// guaranteeing the externally observed contract regardless of branch.
func (p *Pipeline) finalize(runID string, final *models.FinalAgentResponse) (*models.FinalAgentResponse, error) {
	defer stageTimer("finalize")()
	p.emit(runID, events.Status("finalize", "Finalizing response...", 99))

	if err := schema.ValidateFinalResponse(final); err != nil {
		return nil, err
	}

	p.emit(runID, events.Status("finalize", "Completed.", 100))
	return final, nil
}

func (p *Pipeline) emit(runID string, ev events.Event) {
	p.registry.Publish(runID, ev)
}

func stageTimer(stage string) func() {
	start := time.Now()
	return func() {
		metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
