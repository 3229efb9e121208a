package store

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"email-triage/internal/common/errors"
	"email-triage/internal/common/logger"
	"email-triage/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func testEmail() *models.EmailInput {
	return &models.EmailInput{
		Subject: "Pricing for NimbusCRM Pro",
		Body:    "How much does NimbusCRM Pro cost for 20 seats?",
		Attachments: []models.AttachmentInfo{
			{Filename: "requirements.pdf", ContentType: "application/pdf", SizeBytes: 1024},
		},
	}
}

func testClassification() *models.ClassificationResult {
	return &models.ClassificationResult{
		Category:   models.CategorySales,
		Intent:     models.IntentSpecificProductQuery,
		Confidence: 0.92,
		Reasoning:  "Asks about a named product and seat pricing.",
	}
}

// ==========================
// Ticket ID Generation
// ==========================

func TestNewTicketID(t *testing.T) {
	salesID := newTicketID(models.SalesTicketPrefix)
	supportID := newTicketID(models.SupportTicketPrefix)

	assert.Regexp(t, regexp.MustCompile(`^SR-[0-9A-F]{10}$`), salesID)
	assert.Regexp(t, regexp.MustCompile(`^SUP-[0-9A-F]{10}$`), supportID)
	assert.NotEqual(t, newTicketID(models.SalesTicketPrefix), newTicketID(models.SalesTicketPrefix))
}

// ==========================
// Ticket Creation
// ==========================

func TestTicketStore_CreateSalesTicket(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO sales_requests`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewTicketStore(db, createTestLogger(t))
	ticketID, err := store.CreateSalesTicket(context.Background(), testEmail(), testClassification())

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ticketID, models.SalesTicketPrefix))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketStore_CreateSupportTicket(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO support_requests`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	cls := &models.ClassificationResult{
		Category:   models.CategorySupport,
		Intent:     models.IntentOther,
		Confidence: 0.81,
		Reasoning:  "Reports dashboard failures after an upgrade.",
	}

	store := NewTicketStore(db, createTestLogger(t))
	ticketID, err := store.CreateSupportTicket(context.Background(), testEmail(), cls)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ticketID, models.SupportTicketPrefix))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketStore_CreateSalesTicket_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO sales_requests`).
		WillReturnError(assert.AnError)

	store := NewTicketStore(db, createTestLogger(t))
	_, err = store.CreateSalesTicket(context.Background(), testEmail(), testClassification())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePersistenceFailed, errors.CodeOf(err))
}

// ==========================
// Ticket Retrieval
// ==========================

func salesTicketRows(t *testing.T, ticketID string) *sqlmock.Rows {
	t.Helper()
	attachments, err := json.Marshal(testEmail().Attachments)
	require.NoError(t, err)
	classification, err := json.Marshal(testClassification())
	require.NoError(t, err)

	return sqlmock.NewRows([]string{
		"ticket_id", "created_at", "customer_hint", "email_subject", "email_body",
		"attachments_json", "classification_json",
	}).AddRow(
		ticketID, time.Now().UTC(), nil, "Pricing for NimbusCRM Pro",
		"How much does NimbusCRM Pro cost for 20 seats?",
		string(attachments), string(classification),
	)
}

func TestTicketStore_GetTicket_SalesPrefix(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM sales_requests WHERE ticket_id = \$1`).
		WithArgs("SR-ABCDEF1234").
		WillReturnRows(salesTicketRows(t, "SR-ABCDEF1234"))

	store := NewTicketStore(db, createTestLogger(t))
	ticket, err := store.GetTicket(context.Background(), "SR-ABCDEF1234")

	require.NoError(t, err)
	assert.Equal(t, models.TicketKindSales, ticket.Kind)
	assert.Equal(t, "SR-ABCDEF1234", ticket.TicketID)
	// Stored JSON columns round-trip into typed fields.
	assert.Equal(t, *testClassification(), ticket.Classification)
	assert.Equal(t, testEmail().Attachments, ticket.Attachments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketStore_GetTicket_SupportPrefix(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	classification, err := json.Marshal(&models.ClassificationResult{
		Category: models.CategorySupport, Intent: models.IntentOther,
		Confidence: 0.7, Reasoning: "Reports repeated login failures.",
	})
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{
		"ticket_id", "created_at", "customer_hint", "email_subject", "email_body",
		"attachments_json", "intent", "confidence", "classification_json",
	}).AddRow(
		"SUP-ABCDEF1234", time.Now().UTC(), nil, "Login broken",
		"Users cannot log in since this morning.",
		"[]", "other", 0.7, string(classification),
	)

	mock.ExpectQuery(`SELECT .* FROM support_requests WHERE ticket_id = \$1`).
		WithArgs("SUP-ABCDEF1234").
		WillReturnRows(rows)

	store := NewTicketStore(db, createTestLogger(t))
	ticket, err := store.GetTicket(context.Background(), "SUP-ABCDEF1234")

	require.NoError(t, err)
	assert.Equal(t, models.TicketKindSupport, ticket.Kind)
	assert.Equal(t, models.IntentOther, ticket.Intent)
	assert.Equal(t, 0.7, ticket.Confidence)
}

func TestTicketStore_GetTicket_UnknownPrefixProbesBoth(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM sales_requests WHERE ticket_id = \$1`).
		WithArgs("X-123").
		WillReturnRows(sqlmock.NewRows([]string{"ticket_id"}))
	mock.ExpectQuery(`SELECT .* FROM support_requests WHERE ticket_id = \$1`).
		WithArgs("X-123").
		WillReturnRows(sqlmock.NewRows([]string{"ticket_id"}))

	store := NewTicketStore(db, createTestLogger(t))
	_, err = store.GetTicket(context.Background(), "X-123")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTicketNotFound, errors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketStore_GetTicket_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM sales_requests WHERE ticket_id = \$1`).
		WithArgs("SR-MISSING123").
		WillReturnRows(sqlmock.NewRows([]string{"ticket_id"}))

	store := NewTicketStore(db, createTestLogger(t))
	_, err = store.GetTicket(context.Background(), "SR-MISSING123")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTicketNotFound, errors.CodeOf(err))
}

func TestTicketStore_GetTicket_MalformedStoredJSON(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"ticket_id", "created_at", "customer_hint", "email_subject", "email_body",
		"attachments_json", "classification_json",
	}).AddRow(
		"SR-BROKEN0001", time.Now().UTC(), nil, "subject", "body body body",
		"{not json", "also not json",
	)

	mock.ExpectQuery(`SELECT .* FROM sales_requests WHERE ticket_id = \$1`).
		WithArgs("SR-BROKEN0001").
		WillReturnRows(rows)

	store := NewTicketStore(db, createTestLogger(t))
	ticket, err := store.GetTicket(context.Background(), "SR-BROKEN0001")

	// The row is still returned with empty embedded fields.
	require.NoError(t, err)
	assert.Empty(t, ticket.Attachments)
	assert.Equal(t, models.ClassificationResult{}, ticket.Classification)
}
