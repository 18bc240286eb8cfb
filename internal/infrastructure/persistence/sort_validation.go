package persistence

import (
	"strings"

	"github.com/dealerops/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder normalizes a sort direction to ASC or DESC (the default)
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "ASC") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when whitelisted, defaultField otherwise.
// Column names are interpolated into ORDER BY, so nothing else may pass.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// DealerSortFields contains allowed sort fields for dealers
var DealerSortFields = map[string]bool{
	"code":            true,
	"name":            true,
	"tier":            true,
	"created_at":      true,
	"last_order_date": true,
	"last_visit_date": true,
}

// AlertSortFields contains allowed sort fields for alerts
var AlertSortFields = map[string]bool{
	"created_at": true,
	"severity":   true,
	"kind":       true,
	"status":     true,
}

// applyOrder sorts by a whitelisted field; an empty direction uses defaultDir
func applyOrder(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField, defaultDir string) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, allowed, defaultField)
	dir := defaultDir
	if filter.OrderDir != "" {
		dir = ValidateSortOrder(filter.OrderDir)
	}
	// id keeps paging stable across equal sort keys
	return query.Order(field + " " + dir).Order("id " + dir)
}

func applyPage(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.PageSize <= 0 {
		return query
	}
	return query.Offset(filter.Offset()).Limit(filter.PageSize)
}
