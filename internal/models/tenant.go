package models

import "time"

// Subscription statuses maintained by the billing collaborator. The gate only
// reads them; it never sets them.
const (
	SubscriptionTrial          = "trial"
	SubscriptionActive         = "active"
	SubscriptionPendingPayment = "pending_payment"
	SubscriptionInactive       = "inactive"
)

// Tenant is one isolated shop account. Every order and employee belongs to
// exactly one tenant.
type Tenant struct {
	ID                 string `gorm:"primaryKey;size:12"`
	Name               string `gorm:"not null;index"`
	Phone              string
	Email              string
	SubscriptionStatus string     `gorm:"not null;default:'trial'"`
	TrialEndsAt        *time.Time // set while SubscriptionStatus is trial
	NextPaymentDue     *time.Time // set once the tenant is on a paid plan
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
