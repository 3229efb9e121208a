// internal/triage/router.go
package triage

import "email-triage/internal/models"

// Branch identifies the workflow a classified email is routed to.
type Branch string

const (
	BranchSales   Branch = "sales"
	BranchSupport Branch = "support"
	BranchUnknown Branch = "unknown"
)

// Route maps a classification to its workflow branch. Total and
// deterministic: anything that is not sales or support, including a missing
// classification, goes to the unknown branch.
func Route(cls *models.ClassificationResult) Branch {
	if cls == nil {
		return BranchUnknown
	}
	switch cls.Category {
	case models.CategorySales:
		return BranchSales
	case models.CategorySupport:
		return BranchSupport
	default:
		return BranchUnknown
	}
}
