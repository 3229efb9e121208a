// internal/store/schema.go
package store

import (
	"context"
	"database/sql"

	"email-triage/internal/common/errors"
	"email-triage/internal/models"
)

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS products (
		sku TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		purpose TEXT NOT NULL,
		price_usd DOUBLE PRECISION NOT NULL,
		is_active BOOLEAN NOT NULL,
		keywords TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sales_requests (
		ticket_id TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		customer_hint TEXT,
		email_subject TEXT,
		email_body TEXT NOT NULL,
		attachments_json TEXT NOT NULL,
		classification_json TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS support_requests (
		ticket_id TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		customer_hint TEXT,
		email_subject TEXT,
		email_body TEXT NOT NULL,
		attachments_json TEXT NOT NULL,
		intent TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		classification_json TEXT NOT NULL
	)`,
}

// Init creates the three tables when they do not exist yet.
func Init(ctx context.Context, db *sql.DB) error {
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.NewPersistenceError("init-schema", err)
		}
	}
	return nil
}

var seedProducts = []models.Product{
	{
		SKU:      "PROD-CRM-001",
		Name:     "NimbusCRM Starter",
		Category: "CRM",
		Purpose:  "Small teams CRM with email tracking and pipelines",
		PriceUSD: 49.0,
		IsActive: true,
		Keywords: "crm pipeline leads email tracking small team starter",
	},
	{
		SKU:      "PROD-CRM-010",
		Name:     "NimbusCRM Pro",
		Category: "CRM",
		Purpose:  "Advanced CRM with automation, analytics, and role-based access",
		PriceUSD: 149.0,
		IsActive: true,
		Keywords: "crm automation analytics rbac enterprise pro",
	},
	{
		SKU:      "PROD-SUP-100",
		Name:     "HelioSupport Desk",
		Category: "Support",
		Purpose:  "Ticketing + SLA + knowledge base for support teams",
		PriceUSD: 99.0,
		IsActive: true,
		Keywords: "support ticketing sla knowledge base helpdesk",
	},
	{
		SKU:      "PROD-BI-200",
		Name:     "AuroraBI",
		Category: "Analytics",
		Purpose:  "Self-serve dashboards and KPI tracking for leadership",
		PriceUSD: 199.0,
		IsActive: true,
		Keywords: "bi dashboards kpi analytics reporting leadership",
	},
	{
		SKU:      "PROD-OLD-777",
		Name:     "LegacyBundle X (Deprecated)",
		Category: "Bundle",
		Purpose:  "Deprecated legacy bundle (not available)",
		PriceUSD: 79.0,
		IsActive: false,
		Keywords: "legacy deprecated bundle old",
	},
}

// SeedProductsIfEmpty inserts the reference catalog when the products table
// has no rows.
func SeedProductsIfEmpty(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return errors.NewPersistenceError("seed-count", err)
	}
	if count > 0 {
		return nil
	}

	for _, p := range seedProducts {
		_, err := db.ExecContext(ctx, `
			INSERT INTO products (sku, name, category, purpose, price_usd, is_active, keywords)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.SKU, p.Name, p.Category, p.Purpose, p.PriceUSD, p.IsActive, p.Keywords,
		)
		if err != nil {
			return errors.NewPersistenceError("seed-insert", err)
		}
	}
	return nil
}
