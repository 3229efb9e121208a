// Package store persists tickets and reference products. Every operation uses
// one connection and commits immediately; there are no multi-statement
// transactions.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"email-triage/internal/common/errors"
	"email-triage/internal/common/logger"
	"email-triage/internal/common/metrics"
	"email-triage/internal/models"
)

// TicketStore writes and reads the sales_requests and support_requests tables.
type TicketStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewTicketStore(db *sql.DB, log logger.Logger) *TicketStore {
	return &TicketStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "ticket-store"}),
	}
}

// newTicketID returns prefix plus a 10-char uppercase hex suffix.
func newTicketID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
	return prefix + strings.ToUpper(suffix)
}

// CreateSalesTicket inserts a sales_requests row and returns its ticket id.
// The insert commits immediately: the ticket survives any later workflow
// failure.
func (s *TicketStore) CreateSalesTicket(ctx context.Context, email *models.EmailInput, cls *models.ClassificationResult) (string, error) {
	ticketID := newTicketID(models.SalesTicketPrefix)

	attachments, _ := json.Marshal(email.Attachments)
	classification, _ := json.Marshal(cls)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales_requests (ticket_id, created_at, customer_hint, email_subject, email_body, attachments_json, classification_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ticketID, time.Now().UTC(), nil, email.Subject, email.Body, string(attachments), string(classification),
	)
	if err != nil {
		return "", errors.NewPersistenceError("create-sales-ticket", err)
	}

	metrics.TicketsCreated.WithLabelValues(string(models.TicketKindSales)).Inc()
	s.logger.Info("sales ticket created", map[string]interface{}{"ticketId": ticketID})
	return ticketID, nil
}

// CreateSupportTicket inserts a support_requests row. Intent and confidence
// are stored as dedicated queryable columns alongside the serialized
// classification.
func (s *TicketStore) CreateSupportTicket(ctx context.Context, email *models.EmailInput, cls *models.ClassificationResult) (string, error) {
	ticketID := newTicketID(models.SupportTicketPrefix)

	attachments, _ := json.Marshal(email.Attachments)
	classification, _ := json.Marshal(cls)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO support_requests (ticket_id, created_at, customer_hint, email_subject, email_body, attachments_json, intent, confidence, classification_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ticketID, time.Now().UTC(), nil, email.Subject, email.Body, string(attachments),
		string(cls.Intent), cls.Confidence, string(classification),
	)
	if err != nil {
		return "", errors.NewPersistenceError("create-support-ticket", err)
	}

	metrics.TicketsCreated.WithLabelValues(string(models.TicketKindSupport)).Inc()
	s.logger.Info("support ticket created", map[string]interface{}{"ticketId": ticketID})
	return ticketID, nil
}

// GetTicket fetches a ticket by id with its JSON columns deserialized. The id
// prefix selects the table; ids without a known prefix probe both. A missing
// ticket yields a structured TICKET_NOT_FOUND error, never a raw sql error.
func (s *TicketStore) GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticketID = strings.TrimSpace(ticketID)

	switch {
	case strings.HasPrefix(ticketID, models.SalesTicketPrefix):
		return s.getSalesTicket(ctx, ticketID)
	case strings.HasPrefix(ticketID, models.SupportTicketPrefix):
		return s.getSupportTicket(ctx, ticketID)
	}

	if t, err := s.getSalesTicket(ctx, ticketID); err == nil {
		return t, nil
	} else if errors.CodeOf(err) != errors.ErrCodeTicketNotFound {
		return nil, err
	}
	return s.getSupportTicket(ctx, ticketID)
}

func (s *TicketStore) getSalesTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ticket_id, created_at, customer_hint, email_subject, email_body, attachments_json, classification_json
		FROM sales_requests WHERE ticket_id = $1`, ticketID)

	t := models.Ticket{Kind: models.TicketKindSales}
	var hint sql.NullString
	var attachmentsJSON, classificationJSON string
	err := row.Scan(&t.TicketID, &t.CreatedAt, &hint, &t.EmailSubject, &t.EmailBody, &attachmentsJSON, &classificationJSON)
	if err == sql.ErrNoRows {
		return nil, errors.NewTicketNotFoundError(ticketID)
	}
	if err != nil {
		return nil, errors.NewPersistenceError("get-sales-ticket", err)
	}

	t.CustomerHint = hint.String
	decodeTicketJSON(&t, attachmentsJSON, classificationJSON)
	return &t, nil
}

func (s *TicketStore) getSupportTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ticket_id, created_at, customer_hint, email_subject, email_body, attachments_json, intent, confidence, classification_json
		FROM support_requests WHERE ticket_id = $1`, ticketID)

	t := models.Ticket{Kind: models.TicketKindSupport}
	var hint sql.NullString
	var intent string
	var attachmentsJSON, classificationJSON string
	err := row.Scan(&t.TicketID, &t.CreatedAt, &hint, &t.EmailSubject, &t.EmailBody, &attachmentsJSON, &intent, &t.Confidence, &classificationJSON)
	if err == sql.ErrNoRows {
		return nil, errors.NewTicketNotFoundError(ticketID)
	}
	if err != nil {
		return nil, errors.NewPersistenceError("get-support-ticket", err)
	}

	t.CustomerHint = hint.String
	t.Intent = models.Intent(intent)
	decodeTicketJSON(&t, attachmentsJSON, classificationJSON)
	return &t, nil
}

// decodeTicketJSON tolerates malformed stored JSON: the row is still returned
// with empty embedded fields.
func decodeTicketJSON(t *models.Ticket, attachmentsJSON, classificationJSON string) {
	if err := json.Unmarshal([]byte(attachmentsJSON), &t.Attachments); err != nil {
		t.Attachments = []models.AttachmentInfo{}
	}
	if err := json.Unmarshal([]byte(classificationJSON), &t.Classification); err != nil {
		t.Classification = models.ClassificationResult{}
	}
}
