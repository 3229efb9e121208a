package triage

import (
	"email-triage/internal/events"
	"email-triage/internal/models"
)

// runUnknown answers without logging a ticket. The support payload carries an
// empty ticket id, which the response schema allows only on this branch.
func (p *Pipeline) runUnknown(runID string, cls *models.ClassificationResult) (*models.FinalAgentResponse, error) {
	defer stageTimer("unknown")()
	p.emit(runID, events.Status("unknown", "Unable to confidently classify. Asking for more information...", 60))

	if cls == nil {
		cls = &models.ClassificationResult{
			Category:   models.CategoryUnknown,
			Intent:     models.IntentNeedMoreInformation,
			Confidence: 0.2,
			Reasoning:  "Insufficient signal.",
		}
	}

	final := &models.FinalAgentResponse{
		Category:       models.CategoryUnknown,
		Classification: *cls,
		Support: &models.SupportWorkflowResult{
			TicketID:     "",
			MessageToRep: "I couldn't confidently determine if this is sales or support. Please clarify.",
			FollowUpQuestions: []string{
				"Is the customer asking about pricing/purchase (sales) or a problem/bug (support)?",
				"What outcome does the customer want from this email?",
			},
		},
	}

	p.emit(runID, events.Status("unknown", "Done.", 95))
	return final, nil
}
