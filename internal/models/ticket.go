// internal/models/ticket.go
package models

import "time"

// TicketKind distinguishes the two persisted request tables.
type TicketKind string

const (
	TicketKindSales   TicketKind = "sales"
	TicketKindSupport TicketKind = "support"
)

// Ticket id prefixes. A ticket id is the prefix plus a 10-char uppercase hex
// suffix.
const (
	SalesTicketPrefix   = "SR-"
	SupportTicketPrefix = "SUP-"
)

// Ticket is a persisted sales or support request with the JSON columns
// deserialized. Intent and Confidence are populated for support tickets only.
type Ticket struct {
	TicketID       string               `json:"ticket_id"`
	Kind           TicketKind           `json:"kind"`
	CreatedAt      time.Time            `json:"created_at"`
	CustomerHint   string               `json:"customer_hint,omitempty"`
	EmailSubject   string               `json:"email_subject"`
	EmailBody      string               `json:"email_body"`
	Attachments    []AttachmentInfo     `json:"attachments"`
	Intent         Intent               `json:"intent,omitempty"`
	Confidence     float64              `json:"confidence,omitempty"`
	Classification ClassificationResult `json:"classification"`
}
