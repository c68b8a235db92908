// Package subscription computes the per-tenant subscription countdown and the
// derived write-access decision. The subscription status itself is maintained
// by the billing collaborator; this package only reads the tenant record.
package subscription

import (
	"math"
	"time"

	"github.com/amendes/orderdesk/internal/models"
)

// WarnWithinDays is the advisory threshold: a countdown at or below it (and
// not yet negative) surfaces a renewal warning, never a block.
const WarnWithinDays = 3

// Countdown is the gate's read-model for one tenant.
type Countdown struct {
	Status        string `json:"status"`
	DaysRemaining int    `json:"days_remaining"`
	HasDueDate    bool   `json:"has_due_date"`
	Warn          bool   `json:"warn"`
}

// DaysRemaining returns ceil(dueDate-now in days) for the tenant's relevant
// due date: TrialEndsAt while on trial, NextPaymentDue otherwise. The second
// return is false when no due date is set; the gate is inert then.
func DaysRemaining(t *models.Tenant, now time.Time) (int, bool) {
	due := dueDate(t)
	if due == nil {
		return 0, false
	}
	days := math.Ceil(due.Sub(now).Seconds() / 86400)
	return int(days), true
}

// CanWrite reports whether the tenant's subscription status permits write
// operations. Read-only order tracking stays available regardless, so a
// restricted status never hides existing orders from customers.
func CanWrite(status string) bool {
	return status == models.SubscriptionTrial || status == models.SubscriptionActive
}

// Evaluate bundles the countdown and advisory flag for one tenant.
func Evaluate(t *models.Tenant, now time.Time) Countdown {
	days, ok := DaysRemaining(t, now)
	return Countdown{
		Status:        t.SubscriptionStatus,
		DaysRemaining: days,
		HasDueDate:    ok,
		Warn:          ok && days >= 0 && days <= WarnWithinDays,
	}
}

func dueDate(t *models.Tenant) *time.Time {
	if t.SubscriptionStatus == models.SubscriptionTrial {
		return t.TrialEndsAt
	}
	return t.NextPaymentDue
}
