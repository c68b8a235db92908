// Package audit appends a row to the audit trail for every lifecycle write.
package audit

import (
	"context"
	"log"

	"github.com/amendes/orderdesk/internal/auth"
	"github.com/amendes/orderdesk/internal/models"
	"gorm.io/gorm"
)

// Recorder writes audit rows. A nil Recorder is valid and records nothing,
// and a failed insert only logs; the triggering request is never failed.
type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder { return &Recorder{db: db} }

func (r *Recorder) Record(ctx context.Context, orderID, action, detail string) {
	if r == nil || r.db == nil {
		return
	}
	s, _ := auth.FromContext(ctx)
	entry := models.AuditLog{
		TenantID:   s.TenantID,
		EmployeeID: s.EmployeeID,
		OrderID:    orderID,
		Action:     action,
		Detail:     detail,
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("audit: record %s %s: %v", action, orderID, err)
	}
}
