package models

import "time"

// Employee access levels.
const (
	AccessAdmin = "admin"
	AccessStaff = "staff"
)

// Employee is a staff account scoped to a tenant. Password holds a bcrypt hash.
type Employee struct {
	ID          uint   `gorm:"primaryKey"`
	TenantID    string `gorm:"not null;index;size:12"`
	Tenant      Tenant `gorm:"foreignKey:TenantID"`
	Name        string `gorm:"not null;index"`
	Email       string `gorm:"unique;not null;index"`
	Password    string `gorm:"not null"`
	AccessLevel string `gorm:"not null;default:'staff'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsAdmin reports whether the employee may perform admin-only operations
// (payment removal, order deletion, employee management).
func (e *Employee) IsAdmin() bool { return e.AccessLevel == AccessAdmin }
