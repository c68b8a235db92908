package orders

import (
	"context"
	"errors"

	"github.com/amendes/orderdesk/internal/models"
	"gorm.io/gorm"
)

// Repository is the storage collaborator. Every read and write is scoped to a
// tenant; a miss (including a tenant mismatch) is ErrNotFound.
type Repository interface {
	GetOrder(ctx context.Context, tenantID, id string) (*models.Order, error)
	PutOrder(ctx context.Context, o *models.Order) error
	DeleteOrder(ctx context.Context, tenantID, id string) error
	ListOrders(ctx context.Context, tenantID string) ([]models.Order, error)
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository { return &GormRepository{db: db} }

func (r *GormRepository) GetOrder(ctx context.Context, tenantID, id string) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Timeline", func(db *gorm.DB) *gorm.DB { return db.Order("status_events.position") }).
		First(&o, "tenant_id = ? AND id = ?", tenantID, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// PutOrder persists the order, its items, and its timeline in one
// transaction. Items and timeline are replaced wholesale so the stored state
// always matches the in-memory order exactly; a failure leaves the previous
// state untouched.
func (r *GormRepository) PutOrder(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items", "Timeline").Save(o).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		for i := range o.Items {
			o.Items[i].ID = 0
			o.Items[i].OrderID = o.ID
		}
		if len(o.Items) > 0 {
			if err := tx.Create(&o.Items).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&models.StatusEvent{}).Error; err != nil {
			return err
		}
		for i := range o.Timeline {
			o.Timeline[i].ID = 0
			o.Timeline[i].OrderID = o.ID
		}
		if len(o.Timeline) > 0 {
			if err := tx.Create(&o.Timeline).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormRepository) DeleteOrder(ctx context.Context, tenantID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.Order{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Where("order_id = ?", id).Delete(&models.StatusEvent{}).Error
	})
}

func (r *GormRepository) ListOrders(ctx context.Context, tenantID string) ([]models.Order, error) {
	var out []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Timeline", func(db *gorm.DB) *gorm.DB { return db.Order("status_events.position") }).
		Where("tenant_id = ?", tenantID).
		Order("created_at desc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
