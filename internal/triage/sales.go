package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"email-triage/internal/common/errors"
	"email-triage/internal/events"
	"email-triage/internal/llm"
	"email-triage/internal/models"
	"email-triage/internal/schema"
)

var defaultSalesQuestions = []string{
	"Which product category are you most interested in (CRM, Support Desk, Analytics, etc.)?",
	"How many users/seats do you need and what is your target budget range?",
	"Are there must-have features (SLA, automation, dashboards, integrations)?",
}

// runSales is the sales branch. The ticket is written first and is never
// rolled back: a later model failure still leaves the request logged.
func (p *Pipeline) runSales(ctx context.Context, runID string, email *models.EmailInput, cls *models.ClassificationResult) (*models.FinalAgentResponse, error) {
	defer stageTimer("sales")()
	p.emit(runID, events.Status("sales", "Starting sales workflow: logging ticket...", 45))

	ticketID, err := p.tickets.CreateSalesTicket(ctx, email, cls)
	if err != nil {
		return nil, err
	}
	p.emit(runID, events.Status("sales", fmt.Sprintf("Sales ticket created: %s", ticketID), 55))

	p.emit(runID, events.Status("sales", "Extracting intent details from email...", 60))
	details, err := p.extractIntentDetails(ctx, email, cls)
	if err != nil {
		return nil, err
	}

	var (
		recs       []models.ProductRecommendation
		bundles    []models.BundleOption
		repMessage string
	)
	needsMoreInfo := details.NeedsMoreInfo

	switch {
	case cls.Intent == models.IntentSpecificProductQuery:
		p.emit(runID, events.Status("sales", "Searching product database for mentioned products...", 70))
		recs, repMessage, err = p.handleSpecificQuery(ctx, ticketID, details.Mentions)

	case cls.Intent == models.IntentRequirementToSuggestion:
		p.emit(runID, events.Status("sales", "Interpreting requirements and finding suitable products...", 70))
		recs, repMessage, err = p.handleRequirements(ctx, ticketID, email.Subject, details.NeedKeywords)

	case cls.Intent == models.IntentBestPriceOrBundling || details.WantsBundles:
		p.emit(runID, events.Status("sales", "Creating bundle options and best price offers...", 70))
		bundles, repMessage, err = p.handleBundling(ctx, ticketID, details)

	default:
		needsMoreInfo = true
	}
	if err != nil {
		return nil, err
	}

	followUps := details.FollowUpQuestions
	if needsMoreInfo {
		p.emit(runID, events.Status("sales", "Need more information to proceed accurately.", 78))
		if len(followUps) == 0 {
			followUps = defaultSalesQuestions
		}
		repMessage = fmt.Sprintf("Ticket %s logged, but more information is required to proceed.", ticketID)
	}

	// Nil slices would serialize as null; the API always returns arrays.
	if recs == nil {
		recs = []models.ProductRecommendation{}
	}
	if bundles == nil {
		bundles = []models.BundleOption{}
	}
	if followUps == nil {
		followUps = []string{}
	}

	result := &models.SalesWorkflowResult{
		TicketID:          ticketID,
		MessageToRep:      repMessage,
		Recommendations:   recs,
		Bundles:           bundles,
		FollowUpQuestions: followUps,
	}

	p.emit(runID, events.Status("sales", "Validating output against guardrails...", 88))
	if err := schema.ValidateSalesResult(result); err != nil {
		return nil, err
	}

	p.emit(runID, events.Status("sales", "Sales workflow complete.", 95))
	return &models.FinalAgentResponse{
		Category:       models.CategorySales,
		Classification: *cls,
		Sales:          result,
	}, nil
}

func (p *Pipeline) extractIntentDetails(ctx context.Context, email *models.EmailInput, cls *models.ClassificationResult) (*models.IntentDetails, error) {
	raw, err := p.model.Complete(ctx, llm.IntentDetailsPrompt(email.Subject, email.Body, cls))
	if err != nil {
		return nil, errors.NewModelCallFailedError("intent_details", err)
	}
	return schema.ParseIntentDetails(raw)
}

// handleSpecificQuery looks the mentioned product up by name or SKU. Inactive
// matches get an alternatives hint instead of a recommendation call.
func (p *Pipeline) handleSpecificQuery(ctx context.Context, ticketID string, mentions []string) ([]models.ProductRecommendation, string, error) {
	found, err := p.products.SearchByMention(ctx, mentions)
	if err != nil {
		return nil, "", err
	}
	if len(found) == 0 {
		msg := fmt.Sprintf(
			"Ticket %s logged. The mentioned product was not found in the product database. "+
				"It may be discontinued or named differently.", ticketID)
		return nil, msg, nil
	}

	var active, inactive []models.Product
	for _, prod := range found {
		if prod.IsActive {
			active = append(active, prod)
		} else {
			inactive = append(inactive, prod)
		}
	}

	if len(active) == 0 {
		msg := fmt.Sprintf("Ticket %s logged. The mentioned product appears to be no longer available.", ticketID)
		if len(inactive) > 0 {
			msg += " Consider proposing active alternatives."
		}
		return nil, msg, nil
	}

	recs, err := p.recommend(ctx,
		"Customer asked for specific product(s). Recommend the closest match from the list.", active)
	if err != nil {
		return nil, "", err
	}
	return recs, fmt.Sprintf("Ticket %s logged. Found matching product(s) for the customer.", ticketID), nil
}

func (p *Pipeline) handleRequirements(ctx context.Context, ticketID, subject string, needKeywords []string) ([]models.ProductRecommendation, string, error) {
	candidates, err := p.products.SearchByKeywords(ctx, needKeywords, 10)
	if err != nil {
		return nil, "", err
	}
	var active []models.Product
	for _, prod := range candidates {
		if prod.IsActive {
			active = append(active, prod)
		}
	}
	if len(active) == 0 {
		active, err = p.catalog.ListActive(ctx)
		if err != nil {
			return nil, "", err
		}
	}

	needs, err := json.Marshal(map[string]interface{}{
		"need_keywords": needKeywords,
		"subject":       subject,
	})
	if err != nil {
		return nil, "", errors.NewModelResponseError("recommend", err)
	}

	recs, err := p.recommend(ctx, string(needs), active)
	if err != nil {
		return nil, "", err
	}
	msg := fmt.Sprintf("Ticket %s logged. Suggested multiple product options at different price points.", ticketID)
	return recs, msg, nil
}

func (p *Pipeline) handleBundling(ctx context.Context, ticketID string, details *models.IntentDetails) ([]models.BundleOption, string, error) {
	active, err := p.catalog.ListActive(ctx)
	if err != nil {
		return nil, "", err
	}

	bundleCtx, err := json.Marshal(map[string]interface{}{
		"need_keywords": details.NeedKeywords,
		"mentions":      details.Mentions,
	})
	if err != nil {
		return nil, "", errors.NewModelResponseError("bundle", err)
	}

	raw, err := p.model.Complete(ctx, llm.BundlePrompt(string(bundleCtx), active))
	if err != nil {
		return nil, "", errors.NewModelCallFailedError("bundle", err)
	}
	bundles, err := schema.ParseBundles(raw)
	if err != nil {
		return nil, "", err
	}

	sort.SliceStable(bundles, func(i, j int) bool {
		return bundles[i].TotalPriceUSD < bundles[j].TotalPriceUSD
	})
	msg := fmt.Sprintf("Ticket %s logged. Generated 5 bundle options sorted by price.", ticketID)
	return bundles, msg, nil
}

func (p *Pipeline) recommend(ctx context.Context, needs string, products []models.Product) ([]models.ProductRecommendation, error) {
	raw, err := p.model.Complete(ctx, llm.RecommendPrompt(needs, products))
	if err != nil {
		return nil, errors.NewModelCallFailedError("recommend", err)
	}
	return schema.ParseRecommendations(raw)
}
