package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"email-triage/internal/models"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name string
		cls  *models.ClassificationResult
		want Branch
	}{
		{name: "sales", cls: &models.ClassificationResult{Category: models.CategorySales}, want: BranchSales},
		{name: "support", cls: &models.ClassificationResult{Category: models.CategorySupport}, want: BranchSupport},
		{name: "unknown", cls: &models.ClassificationResult{Category: models.CategoryUnknown}, want: BranchUnknown},
		{name: "unrecognized category", cls: &models.ClassificationResult{Category: "billing"}, want: BranchUnknown},
		{name: "empty category", cls: &models.ClassificationResult{}, want: BranchUnknown},
		{name: "nil classification", cls: nil, want: BranchUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.cls))
		})
	}
}
