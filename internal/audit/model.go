package audit

import (
	"time"

	"gorm.io/gorm"
)

// ChangeRecord is one changed field from one save operation, persisted in
// the relational fallback store when no spreadsheet token is available.
type ChangeRecord struct {
	ID            uint   `gorm:"primaryKey"`
	SpreadsheetID string `gorm:"size:128;index"`
	SheetName     string `gorm:"size:128"`
	UniqueID      string `gorm:"size:128;index"`
	ChangedBy     string `gorm:"size:256;index"`
	FieldName     string `gorm:"size:256"`
	OldValue      string
	NewValue      string
	ChangedAt     time.Time `gorm:"index"`
}

// TableName pins the fallback table name.
func (ChangeRecord) TableName() string {
	return "customer_change_history"
}

// Migrate creates or updates the fallback table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&ChangeRecord{})
}
