// internal/models/response.go
package models

// SalesWorkflowResult is the rep-facing outcome of the sales branch.
type SalesWorkflowResult struct {
	TicketID          string                  `json:"ticket_id"`
	MessageToRep      string                  `json:"message_to_rep"`
	Recommendations   []ProductRecommendation `json:"recommendations"`
	Bundles           []BundleOption          `json:"bundles"`
	FollowUpQuestions []string                `json:"follow_up_questions"`
}

// SupportWorkflowResult is the rep-facing outcome of the support branch. The
// unknown branch reuses it with an empty ticket id.
type SupportWorkflowResult struct {
	TicketID          string   `json:"ticket_id"`
	MessageToRep      string   `json:"message_to_rep"`
	FollowUpQuestions []string `json:"follow_up_questions"`
}

// FinalAgentResponse is the single aggregated response record handed to the
// caller. Exactly one of Sales/Support is populated matching Category; for
// the unknown category Support carries the clarification request.
type FinalAgentResponse struct {
	Category       Category               `json:"category"`
	Classification ClassificationResult   `json:"classification"`
	Sales          *SalesWorkflowResult   `json:"sales,omitempty"`
	Support        *SupportWorkflowResult `json:"support,omitempty"`
}
