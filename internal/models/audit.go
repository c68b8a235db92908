package models

import "time"

// AuditLog records who changed which order and how. Written best-effort on
// every lifecycle write; never consulted by the lifecycle logic itself.
type AuditLog struct {
	ID         uint   `gorm:"primaryKey"`
	TenantID   string `gorm:"size:12;index"`
	EmployeeID uint
	OrderID    string `gorm:"size:12;index"`
	Action     string // create, update, delete, payment, remove_payment, convert, status
	Detail     string
	CreatedAt  time.Time
}
