package subscription

import (
	"testing"
	"time"

	"github.com/amendes/orderdesk/internal/models"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func tenantWith(status string, due time.Time) *models.Tenant {
	t := &models.Tenant{ID: "t1", Name: "Shop", SubscriptionStatus: status}
	if status == models.SubscriptionTrial {
		t.TrialEndsAt = &due
	} else {
		t.NextPaymentDue = &due
	}
	return t
}

func TestDaysRemainingTrial(t *testing.T) {
	tn := tenantWith(models.SubscriptionTrial, now.Add(10*24*time.Hour))
	days, ok := DaysRemaining(tn, now)
	assert.True(t, ok)
	assert.Equal(t, 10, days)
}

func TestDaysRemainingCeil(t *testing.T) {
	// half a day left still counts as one day
	tn := tenantWith(models.SubscriptionActive, now.Add(12*time.Hour))
	days, ok := DaysRemaining(tn, now)
	assert.True(t, ok)
	assert.Equal(t, 1, days)
}

func TestDaysRemainingPast(t *testing.T) {
	tn := tenantWith(models.SubscriptionPendingPayment, now.Add(-2*24*time.Hour))
	days, ok := DaysRemaining(tn, now)
	assert.True(t, ok)
	assert.Equal(t, -2, days)
}

func TestDaysRemainingInertWithoutDueDate(t *testing.T) {
	tn := &models.Tenant{ID: "t1", SubscriptionStatus: models.SubscriptionActive}
	_, ok := DaysRemaining(tn, now)
	assert.False(t, ok)

	c := Evaluate(tn, now)
	assert.False(t, c.HasDueDate)
	assert.False(t, c.Warn)
}

func TestCanWrite(t *testing.T) {
	assert.True(t, CanWrite(models.SubscriptionTrial))
	assert.True(t, CanWrite(models.SubscriptionActive))
	assert.False(t, CanWrite(models.SubscriptionPendingPayment))
	assert.False(t, CanWrite(models.SubscriptionInactive))
}

func TestEvaluateWarnThreshold(t *testing.T) {
	cases := []struct {
		days int
		warn bool
	}{
		{days: 0, warn: true},
		{days: 1, warn: true},
		{days: 3, warn: true},
		{days: 4, warn: false},
		{days: -1, warn: false}, // already past due, the status gate takes over
	}
	for _, c := range cases {
		tn := tenantWith(models.SubscriptionActive, now.Add(time.Duration(c.days)*24*time.Hour))
		got := Evaluate(tn, now)
		assert.Equal(t, c.warn, got.Warn, "days=%d", c.days)
		assert.Equal(t, c.days, got.DaysRemaining, "days=%d", c.days)
	}
}
