// internal/models/product.go
package models

// Product is seed/reference data for the sales workflow. Keywords is a plain
// keyword string used for substring search.
type Product struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Purpose  string  `json:"purpose"`
	PriceUSD float64 `json:"price_usd"`
	IsActive bool    `json:"is_active"`
	Keywords string  `json:"keywords"`
}

// ProductRecommendation is one ranked item returned by the recommendation call.
type ProductRecommendation struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Purpose   string  `json:"purpose"`
	PriceUSD  float64 `json:"price_usd"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// BundleOption is one bundle proposal returned by the bundling call. Items
// holds 1-6 SKUs or product names.
type BundleOption struct {
	Name          string   `json:"name"`
	Items         []string `json:"items"`
	TotalPriceUSD float64  `json:"total_price_usd"`
	Score         float64  `json:"score"`
	Reasoning     string   `json:"reasoning"`
}
