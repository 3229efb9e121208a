// Package guardrails rejects malformed or injection-bearing input before any
// model call is made.
package guardrails

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"email-triage/internal/common/errors"
	"email-triage/internal/models"
)

const (
	SubjectMinLen = 1
	SubjectMaxLen = 200
	BodyMinLen    = 10
	BodyMaxLen    = 20000
)

// injectionPatterns are matched case-insensitively against the email body.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+previous\s+instructions`),
	regexp.MustCompile(`(?i)system\s+prompt`),
	regexp.MustCompile(`(?i)developer\s+message`),
	regexp.MustCompile(`(?i)reveal\s+chain\s+of\s+thought`),
}

// ValidateEmail constructs a validated EmailInput from raw fields. It fails
// with an input-validation error on length violations and has no other side
// effects.
func ValidateEmail(subject, body string, attachments []models.AttachmentInfo) (*models.EmailInput, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)

	// Bounds count characters, not bytes; multibyte input must not shift them.
	subjectLen := utf8.RuneCountInString(subject)
	bodyLen := utf8.RuneCountInString(body)

	if subjectLen < SubjectMinLen || subjectLen > SubjectMaxLen {
		return nil, errors.NewInputValidationError(
			fmt.Sprintf("subject must be %d-%d characters, got %d", SubjectMinLen, SubjectMaxLen, subjectLen))
	}
	if bodyLen < BodyMinLen || bodyLen > BodyMaxLen {
		return nil, errors.NewInputValidationError(
			fmt.Sprintf("body must be %d-%d characters, got %d", BodyMinLen, BodyMaxLen, bodyLen))
	}

	if attachments == nil {
		attachments = []models.AttachmentInfo{}
	}

	return &models.EmailInput{
		Subject:     subject,
		Body:        body,
		Attachments: attachments,
	}, nil
}

// CheckBody scans the body for prompt-injection attempts. A match fails with
// a guardrail violation carrying a user-facing remediation message.
func CheckBody(body string) error {
	for _, p := range injectionPatterns {
		if p.MatchString(body) {
			return errors.NewGuardrailViolationError(p.String())
		}
	}
	return nil
}

// ClampConfidence forces a raw model confidence or score into [0,1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
