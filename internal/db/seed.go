package db

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/amendes/orderdesk/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seed creates a demo tenant with an admin employee when DB_SEED=1|true.
// Idempotent: existing records are left alone.
func Seed(db *gorm.DB) error {
	if v := strings.ToLower(os.Getenv("DB_SEED")); v != "1" && v != "true" && v != "yes" {
		return nil
	}
	return seed(db)
}

func seed(db *gorm.DB) error {
	var tenant models.Tenant
	err := db.Where("name = ?", "Demo Print Shop").First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		trialEnd := time.Now().Add(14 * 24 * time.Hour)
		tenant = models.Tenant{ID: "DEMO0001", Name: "Demo Print Shop", SubscriptionStatus: models.SubscriptionTrial, TrialEndsAt: &trialEnd}
		if err := db.Create(&tenant).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	var count int64
	if err := db.Model(&models.Employee{}).Where("email = ?", "admin@demo.local").Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		emp := models.Employee{TenantID: tenant.ID, Name: "Demo Admin", Email: "admin@demo.local", Password: string(hash), AccessLevel: models.AccessAdmin}
		if err := db.Create(&emp).Error; err != nil {
			return err
		}
	}
	return nil
}
