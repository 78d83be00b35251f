package audit

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Repository handles change-history persistence in the relational fallback.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to audit operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateBatch persists all records from one save operation.
func (r *Repository) CreateBatch(ctx context.Context, records []ChangeRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("at least one change record is required")
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

// List returns a spreadsheet's change history, newest first. The user email
// filter is a case-insensitive contains match; the unique ID filter is exact.
func (r *Repository) List(ctx context.Context, spreadsheetID string, filter ListFilter) ([]ChangeRecord, error) {
	query := r.db.WithContext(ctx).
		Where("spreadsheet_id = ?", spreadsheetID).
		Order("changed_at DESC")
	if email := strings.TrimSpace(filter.UserEmail); email != "" {
		query = query.Where("LOWER(changed_by) LIKE ?", "%"+strings.ToLower(email)+"%")
	}
	if uniqueID := strings.TrimSpace(filter.UniqueID); uniqueID != "" {
		query = query.Where("unique_id = ?", uniqueID)
	}

	var records []ChangeRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
