// Package schema parses and validates external model output. Every parse
// function returns an explicit result or error; nothing panics across stage
// boundaries.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"email-triage/internal/common/errors"
	"email-triage/internal/guardrails"
	"email-triage/internal/models"
)

const (
	MaxMentions     = 8
	MaxNeedKeywords = 8
	MaxFollowUps    = 6
	MaxSymptoms     = 8
	MaxEnvHints     = 8
	MaxItems        = 5
)

func validateAgainst(schemaJSON string, doc interface{}) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// ParseClassification decodes the classifier output, clamps confidence into
// [0,1] before validation, and checks the result against the classification
// schema.
func ParseClassification(raw []byte) (*models.ClassificationResult, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.NewModelResponseError("classify", err)
	}

	if c, ok := doc["confidence"].(float64); ok {
		doc["confidence"] = guardrails.ClampConfidence(c)
	} else {
		doc["confidence"] = 0.0
	}

	if err := validateAgainst(classificationSchema, doc); err != nil {
		return nil, errors.NewOutputValidationError("classification", err.Error())
	}

	normalized, _ := json.Marshal(doc)
	var cls models.ClassificationResult
	if err := json.Unmarshal(normalized, &cls); err != nil {
		return nil, errors.NewModelResponseError("classify", err)
	}
	return &cls, nil
}

// ParseIntentDetails decodes the intent-detail extraction. Every field is
// optional; lists are truncated to their fixed maximums and urgency defaults
// to medium.
func ParseIntentDetails(raw []byte) (*models.IntentDetails, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.NewModelResponseError("intent-details", err)
	}

	// Drop an out-of-enum urgency rather than failing the run over a hint.
	if u, ok := doc["urgency"].(string); ok {
		switch u {
		case "low", "medium", "high":
		default:
			delete(doc, "urgency")
		}
	}

	if err := validateAgainst(intentDetailsSchema, doc); err != nil {
		return nil, errors.NewOutputValidationError("intent_details", err.Error())
	}

	normalized, _ := json.Marshal(doc)
	var details models.IntentDetails
	if err := json.Unmarshal(normalized, &details); err != nil {
		return nil, errors.NewModelResponseError("intent-details", err)
	}

	details.Mentions = truncate(details.Mentions, MaxMentions)
	details.NeedKeywords = truncate(details.NeedKeywords, MaxNeedKeywords)
	details.FollowUpQuestions = truncate(details.FollowUpQuestions, MaxFollowUps)
	details.SupportSymptoms = truncate(details.SupportSymptoms, MaxSymptoms)
	details.EnvironmentHints = truncate(details.EnvironmentHints, MaxEnvHints)
	if details.Urgency == "" {
		details.Urgency = "medium"
	}
	return &details, nil
}

// ParseRecommendations decodes a recommendation array. Scores are clamped
// before validation, items failing the item schema are skipped, and the
// result is capped at MaxItems. A non-array payload is a hard failure.
func ParseRecommendations(raw []byte) ([]models.ProductRecommendation, error) {
	items, err := parseItemArray(raw, "recommend", recommendationItemSchema)
	if err != nil {
		return nil, err
	}

	recs := make([]models.ProductRecommendation, 0, len(items))
	for _, item := range items {
		normalized, _ := json.Marshal(item)
		var rec models.ProductRecommendation
		if err := json.Unmarshal(normalized, &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
		if len(recs) == MaxItems {
			break
		}
	}
	return recs, nil
}

// ParseBundles decodes a bundle array with the same skip-invalid semantics as
// ParseRecommendations. Sorting is the caller's concern.
func ParseBundles(raw []byte) ([]models.BundleOption, error) {
	items, err := parseItemArray(raw, "bundle", bundleItemSchema)
	if err != nil {
		return nil, err
	}

	bundles := make([]models.BundleOption, 0, len(items))
	for _, item := range items {
		normalized, _ := json.Marshal(item)
		var b models.BundleOption
		if err := json.Unmarshal(normalized, &b); err != nil {
			continue
		}
		bundles = append(bundles, b)
		if len(bundles) == MaxItems {
			break
		}
	}
	return bundles, nil
}

func parseItemArray(raw []byte, stage, itemSchema string) ([]map[string]interface{}, error) {
	var arr []map[string]interface{}
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, errors.NewModelResponseError(stage, err)
	}

	valid := make([]map[string]interface{}, 0, len(arr))
	for _, item := range arr {
		if s, ok := item["score"].(float64); ok {
			item["score"] = guardrails.ClampConfidence(s)
		} else {
			item["score"] = 0.0
		}
		if err := validateAgainst(itemSchema, item); err != nil {
			continue
		}
		valid = append(valid, item)
	}
	return valid, nil
}

// ValidateSalesResult checks an assembled sales result against its schema.
func ValidateSalesResult(result *models.SalesWorkflowResult) error {
	if err := validateAgainst(salesResultSchema, result); err != nil {
		return errors.NewOutputValidationError("sales_workflow_result", err.Error())
	}
	return nil
}

// ValidateSupportResult checks an assembled support result against its schema.
func ValidateSupportResult(result *models.SupportWorkflowResult) error {
	if err := validateAgainst(supportResultSchema, result); err != nil {
		return errors.NewOutputValidationError("support_workflow_result", err.Error())
	}
	return nil
}

// ValidateFinalResponse is the single point guaranteeing the externally
// observed contract: schema conformance plus the category/payload exclusivity
// invariant.
func ValidateFinalResponse(resp *models.FinalAgentResponse) error {
	if err := validateAgainst(finalResponseSchema, resp); err != nil {
		return errors.NewOutputValidationError("final_agent_response", err.Error())
	}

	switch resp.Category {
	case models.CategorySales:
		if resp.Sales == nil || resp.Support != nil {
			return errors.NewOutputValidationError("final_agent_response",
				"sales category requires exactly the sales payload")
		}
	case models.CategorySupport:
		if resp.Support == nil || resp.Sales != nil {
			return errors.NewOutputValidationError("final_agent_response",
				"support category requires exactly the support payload")
		}
	}
	return nil
}

func truncate(list []string, max int) []string {
	if list == nil {
		return []string{}
	}
	if len(list) > max {
		return list[:max]
	}
	return list
}
