// internal/store/products.go
package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"email-triage/internal/common/errors"
	"email-triage/internal/common/logger"
	"email-triage/internal/models"
)

const mentionSearchLimit = 10

// ProductStore reads the product reference table.
type ProductStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewProductStore(db *sql.DB, log logger.Logger) *ProductStore {
	return &ProductStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "product-store"}),
	}
}

const productColumns = `sku, name, category, purpose, price_usd, is_active, keywords`

func scanProducts(rows *sql.Rows) ([]models.Product, error) {
	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.SKU, &p.Name, &p.Category, &p.Purpose, &p.PriceUSD, &p.IsActive, &p.Keywords); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SearchByMention finds products whose sku or name contains any of the given
// mentions, deduplicated by sku. Includes inactive products so the caller can
// report discontinued items.
func (s *ProductStore) SearchByMention(ctx context.Context, mentions []string) ([]models.Product, error) {
	if len(mentions) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	var results []models.Product

	for _, m := range mentions {
		like := "%" + strings.TrimSpace(m) + "%"
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+productColumns+`
			FROM products
			WHERE (sku ILIKE $1 OR name ILIKE $1)
			LIMIT $2`, like, mentionSearchLimit)
		if err != nil {
			return nil, errors.NewPersistenceError("search-products-by-mention", err)
		}

		found, err := scanProducts(rows)
		rows.Close()
		if err != nil {
			return nil, errors.NewPersistenceError("search-products-by-mention", err)
		}

		for _, p := range found {
			if !seen[p.SKU] {
				seen[p.SKU] = true
				results = append(results, p)
			}
		}
	}

	return results, nil
}

// SearchByKeywords finds products whose keyword string contains any of the
// given need keywords.
func (s *ProductStore) SearchByKeywords(ctx context.Context, keywords []string, limit int) ([]models.Product, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	conds := make([]string, len(keywords))
	args := make([]interface{}, 0, len(keywords)+1)
	for i, k := range keywords {
		conds[i] = "keywords ILIKE $" + strconv.Itoa(i+1)
		args = append(args, "%"+strings.TrimSpace(k)+"%")
	}
	args = append(args, limit)

	query := `SELECT ` + productColumns + `
		FROM products
		WHERE (` + strings.Join(conds, " OR ") + `)
		LIMIT $` + strconv.Itoa(len(keywords)+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewPersistenceError("search-products-by-keywords", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, errors.NewPersistenceError("search-products-by-keywords", err)
	}
	return products, nil
}

// ListActive returns the active catalog ordered by ascending price.
func (s *ProductStore) ListActive(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE is_active = TRUE
		ORDER BY price_usd ASC`)
	if err != nil {
		return nil, errors.NewPersistenceError("list-active-products", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, errors.NewPersistenceError("list-active-products", err)
	}
	return products, nil
}
