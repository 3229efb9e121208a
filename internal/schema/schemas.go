// internal/schema/schemas.go
package schema

// JSON Schemas for every shape the external model is allowed to return, plus
// the assembled response contract. The orchestration enforces shape only; the
// semantic quality of the answer is the model's problem.

const classificationSchema = `{
	"type": "object",
	"required": ["category", "intent", "confidence", "reasoning"],
	"properties": {
		"category": {"type": "string", "enum": ["sales", "support", "unknown"]},
		"intent": {"type": "string", "enum": [
			"specific_product_query",
			"requirement_to_product_suggestion",
			"best_price_offer_or_bundling",
			"need_more_information",
			"other"
		]},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"reasoning": {"type": "string", "minLength": 10, "maxLength": 1000}
	}
}`

const intentDetailsSchema = `{
	"type": "object",
	"properties": {
		"mentions": {"type": "array", "items": {"type": "string"}},
		"need_keywords": {"type": "array", "items": {"type": "string"}},
		"wants_bundles": {"type": "boolean"},
		"needs_more_info": {"type": "boolean"},
		"follow_up_questions": {"type": "array", "items": {"type": "string"}},
		"support_symptoms": {"type": "array", "items": {"type": "string"}},
		"environment_hints": {"type": "array", "items": {"type": "string"}},
		"urgency": {"type": "string", "enum": ["low", "medium", "high"]}
	}
}`

const recommendationItemSchema = `{
	"type": "object",
	"required": ["sku", "name", "purpose", "price_usd", "score", "reasoning"],
	"properties": {
		"sku": {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 1},
		"purpose": {"type": "string"},
		"price_usd": {"type": "number", "minimum": 0},
		"score": {"type": "number", "minimum": 0, "maximum": 1},
		"reasoning": {"type": "string", "minLength": 10, "maxLength": 800}
	}
}`

const bundleItemSchema = `{
	"type": "object",
	"required": ["name", "items", "total_price_usd", "score", "reasoning"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"items": {"type": "array", "items": {"type": "string"}, "minItems": 1, "maxItems": 6},
		"total_price_usd": {"type": "number", "minimum": 0},
		"score": {"type": "number", "minimum": 0, "maximum": 1},
		"reasoning": {"type": "string", "minLength": 10, "maxLength": 800}
	}
}`

const salesResultSchema = `{
	"type": "object",
	"required": ["ticket_id", "message_to_rep"],
	"properties": {
		"ticket_id": {"type": "string", "minLength": 1},
		"message_to_rep": {"type": "string", "minLength": 1},
		"recommendations": {"type": ["array", "null"]},
		"bundles": {"type": ["array", "null"]},
		"follow_up_questions": {"type": ["array", "null"], "items": {"type": "string"}}
	}
}`

const supportResultSchema = `{
	"type": "object",
	"required": ["ticket_id", "message_to_rep"],
	"properties": {
		"ticket_id": {"type": "string"},
		"message_to_rep": {"type": "string", "minLength": 1},
		"follow_up_questions": {"type": ["array", "null"], "items": {"type": "string"}}
	}
}`

const finalResponseSchema = `{
	"type": "object",
	"required": ["category", "classification"],
	"properties": {
		"category": {"type": "string", "enum": ["sales", "support", "unknown"]},
		"classification": ` + classificationSchema + `,
		"sales": ` + salesResultSchema + `,
		"support": ` + supportResultSchema + `
	}
}`
