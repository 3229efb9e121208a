// internal/llm/prompts.go
package llm

import (
	"encoding/json"
	"fmt"
)

// KnowledgeBase holds the static hint structure passed to the classifier.
type KnowledgeBase struct {
	Sales       []string            `json:"sales"`
	Support     []string            `json:"support"`
	IntentRules map[string][]string `json:"intent_rules"`
}

// DefaultKnowledgeBase returns the fixed keyword hints for classification.
func DefaultKnowledgeBase() KnowledgeBase {
	return KnowledgeBase{
		Sales:   []string{"pricing", "quote", "discount", "bundle", "purchase", "buy", "trial", "demo", "renewal", "invoice"},
		Support: []string{"error", "bug", "issue", "not working", "down", "broken", "failed", "incident", "unable", "crash"},
		IntentRules: map[string][]string{
			"specific_product_query":            {"sku", "product code", "looking for", "is available", "availability"},
			"requirement_to_product_suggestion": {"recommend", "suggest", "best fit", "need a solution", "requirements"},
			"best_price_offer_or_bundling":      {"bundle", "best price", "discount", "offer", "package"},
			"need_more_information":             {"clarify", "need more info", "not sure", "details needed"},
		},
	}
}

const classifySystem = `You are a strict email classifier for a sales/support organization. ` +
	`Return ONLY valid JSON that matches this schema:` + "\n" +
	`{"category": "sales|support|unknown", ` +
	`"intent": "specific_product_query|requirement_to_product_suggestion|best_price_offer_or_bundling|need_more_information|other", ` +
	`"confidence": number between 0 and 1, ` +
	`"reasoning": string}.` + "\n" +
	`Use the provided knowledge base hints, but rely on the email content.`

const intentDetailsSystem = `You extract intent details. Return ONLY valid JSON:` + "\n" +
	`{"mentions": ["..."], ` +
	`"need_keywords": ["..."], ` +
	`"wants_bundles": true|false, ` +
	`"needs_more_info": true|false, ` +
	`"follow_up_questions": ["..."], ` +
	`"support_symptoms": ["..."], ` +
	`"environment_hints": ["..."], ` +
	`"urgency": "low|medium|high"}` + "\n" +
	`Keep arrays short (max 8 items).`

const recommendSystem = `You are a product recommendation engine. Return ONLY valid JSON array. ` +
	`Each item must have: sku, name, purpose, price_usd, score(0..1), reasoning. ` +
	`Rank best first. Provide 1-5 items.`

const bundleSystem = `You create bundle options. Return ONLY valid JSON array. ` +
	`Each item: name, items(array of SKUs or product names), total_price_usd, score(0..1), reasoning. ` +
	`Return exactly 5 items.`

// ClassifyPrompt builds the classification invocation.
func ClassifyPrompt(kb KnowledgeBase, subject, body string) Prompt {
	hints, _ := json.Marshal(kb)
	return Prompt{
		Name:   "classify",
		System: classifySystem,
		User: fmt.Sprintf("KNOWLEDGE BASE HINTS:\n%s\n\nEMAIL SUBJECT:\n%s\n\nEMAIL BODY:\n%s\n",
			hints, subject, body),
	}
}

// IntentDetailsPrompt builds the second extraction invocation.
func IntentDetailsPrompt(subject, body string, classification interface{}) Prompt {
	cls, _ := json.Marshal(classification)
	return Prompt{
		Name:   "intent-details",
		System: intentDetailsSystem,
		User: fmt.Sprintf("EMAIL SUBJECT:\n%s\n\nEMAIL BODY:\n%s\n\nCLASSIFICATION:\n%s\n",
			subject, body, cls),
	}
}

// RecommendPrompt builds the recommendation invocation over candidate products.
func RecommendPrompt(needs string, products interface{}) Prompt {
	prods, _ := json.Marshal(products)
	return Prompt{
		Name:   "recommend",
		System: recommendSystem,
		User:   fmt.Sprintf("CUSTOMER NEEDS:\n%s\n\nAVAILABLE PRODUCTS:\n%s\n", needs, prods),
	}
}

// BundlePrompt builds the bundling invocation over the active catalog.
func BundlePrompt(context string, products interface{}) Prompt {
	prods, _ := json.Marshal(products)
	return Prompt{
		Name:   "bundle",
		System: bundleSystem,
		User: fmt.Sprintf("CUSTOMER CONTEXT:\n%s\n\nAVAILABLE ACTIVE PRODUCTS:\n%s\nBundling guidance: keep bundles realistic and price-sensitive.",
			context, prods),
	}
}
