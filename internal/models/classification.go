// internal/models/classification.go
package models

// Category is the top-level triage outcome of the classifier.
type Category string

const (
	CategorySales   Category = "sales"
	CategorySupport Category = "support"
	CategoryUnknown Category = "unknown"
)

// Intent is the classified purpose of a sales email. The set is closed; the
// sales workflow dispatches exhaustively over it.
type Intent string

const (
	IntentSpecificProductQuery    Intent = "specific_product_query"
	IntentRequirementToSuggestion Intent = "requirement_to_product_suggestion"
	IntentBestPriceOrBundling     Intent = "best_price_offer_or_bundling"
	IntentNeedMoreInformation     Intent = "need_more_information"
	IntentOther                   Intent = "other"
)

// ClassificationResult is produced once per run by the classifier call and
// read-only afterward. Confidence is clamped to [0,1] before validation.
type ClassificationResult struct {
	Category   Category `json:"category"`
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// IntentDetails is the second model call's extraction over the email body.
// All lists are truncated to fixed maximums before use.
type IntentDetails struct {
	Mentions          []string `json:"mentions"`
	NeedKeywords      []string `json:"need_keywords"`
	WantsBundles      bool     `json:"wants_bundles"`
	NeedsMoreInfo     bool     `json:"needs_more_info"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	SupportSymptoms   []string `json:"support_symptoms"`
	EnvironmentHints  []string `json:"environment_hints"`
	Urgency           string   `json:"urgency"`
}
