package triage

import (
	"context"
	"fmt"
	"strings"

	"email-triage/internal/events"
	"email-triage/internal/models"
	"email-triage/internal/schema"
)

var defaultSupportQuestions = []string{
	"What exact error message(s) do you see (copy/paste if possible)?",
	"When did the issue start and is it intermittent or constant?",
	"How many users are affected and what is the business impact?",
	"What environment is impacted (prod/stage), and what region?",
	"Steps to reproduce (if known) and screenshots/log snippets?",
}

// runSupport logs a support ticket and extracts troubleshooting context for
// the rep. As with sales, the ticket write precedes any further model call.
func (p *Pipeline) runSupport(ctx context.Context, runID string, email *models.EmailInput, cls *models.ClassificationResult) (*models.FinalAgentResponse, error) {
	defer stageTimer("support")()
	p.emit(runID, events.Status("support", "Starting support workflow: logging ticket...", 45))

	ticketID, err := p.tickets.CreateSupportTicket(ctx, email, cls)
	if err != nil {
		return nil, err
	}
	p.emit(runID, events.Status("support", fmt.Sprintf("Support ticket created: %s", ticketID), 55))

	p.emit(runID, events.Status("support", "Extracting troubleshooting context and follow-up questions...", 65))
	details, err := p.extractIntentDetails(ctx, email, cls)
	if err != nil {
		return nil, err
	}

	followUps := details.FollowUpQuestions
	if len(followUps) == 0 {
		followUps = defaultSupportQuestions
	}

	result := &models.SupportWorkflowResult{
		TicketID:          ticketID,
		MessageToRep:      supportRepMessage(ticketID, details),
		FollowUpQuestions: followUps,
	}

	p.emit(runID, events.Status("support", "Validating output against guardrails...", 88))
	if err := schema.ValidateSupportResult(result); err != nil {
		return nil, err
	}

	p.emit(runID, events.Status("support", "Support workflow complete.", 95))
	return &models.FinalAgentResponse{
		Category:       models.CategorySupport,
		Classification: *cls,
		Support:        result,
	}, nil
}

func supportRepMessage(ticketID string, details *models.IntentDetails) string {
	msg := fmt.Sprintf(
		"Ticket %s logged. Support request detected (urgency: %s). "+
			"Collect the details below and route to the support team/runbook.",
		ticketID, details.Urgency)
	if len(details.SupportSymptoms) > 0 {
		msg += "\n\nObserved symptoms (extracted): " + strings.Join(details.SupportSymptoms, ", ")
	}
	if len(details.EnvironmentHints) > 0 {
		msg += "\nEnvironment hints (extracted): " + strings.Join(details.EnvironmentHints, ", ")
	}
	return msg
}
