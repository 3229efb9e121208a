// internal/models/email.go
package models

// AttachmentInfo captures attachment metadata only. Content is never inspected
// beyond its size.
type AttachmentInfo struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// EmailInput is the validated inbound email. Immutable once constructed.
type EmailInput struct {
	Subject     string           `json:"subject"`
	Body        string           `json:"body"`
	Attachments []AttachmentInfo `json:"attachments"`
}
