package models

import "time"

// Order statuses. A quote is the same entity before it enters production.
type Status string

const (
	StatusQuote        Status = "QUOTE"
	StatusOrderPlaced  Status = "ORDER_PLACED"
	StatusInProduction Status = "IN_PRODUCTION"
	StatusCompleted    Status = "COMPLETED"
	StatusCanceled     Status = "CANCELED"
)

// Order is the central entity: a customer order or a quote, discriminated by
// CurrentStatus. Total is always recomputed from Items, never stored alone.
type Order struct {
	ID            string      `gorm:"primaryKey;size:12" json:"id"`
	TenantID      string      `gorm:"not null;index;size:12" json:"-"`
	CustomerName  string      `gorm:"not null;index" json:"customer_name"`
	CustomerPhone string      `gorm:"not null" json:"customer_phone"`
	ShippingAddr  string      `json:"shipping_address"`
	Items         []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	// Running sum of recorded payments; cached, re-derived from PaymentMethod.
	DownPayment float64 `json:"down_payment"`
	// Serialized payment ledger, e.g. "Pix (R$ 20,00) + Cash (R$ 30,00)".
	// The print and tracking views parse this format, keep it stable.
	PaymentMethod string `json:"payment_method"`
	// Count of ledger segments that failed to decode on the last payment
	// mutation. Not persisted; surfaces hand-edited legacy data to the client.
	LedgerWarnings int           `gorm:"-" json:"ledger_warnings,omitempty"`
	CurrentStatus Status        `gorm:"not null;index" json:"current_status"`
	Timeline      []StatusEvent `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"timeline"`
	OrderDate     string        `json:"order_date"`
	QuoteValidity string        `json:"quote_validity"`
	Notes         string        `json:"notes"`
	PhotoURL      string        `json:"photo_url"`
	PressingDate  string        `json:"pressing_date"`
	PrintingDate  string        `json:"printing_date"`
	Seamstress    string        `json:"seamstress"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Total computes the order total from its items.
func (o *Order) Total() float64 {
	var sum float64
	for _, it := range o.Items {
		sum += float64(it.Quantity) * it.UnitPrice
	}
	return sum
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey" json:"-"`
	OrderID   string  `gorm:"not null;index;size:12" json:"-"`
	Name      string  `gorm:"not null" json:"name"`
	Size      string  `json:"size"`
	Quantity  int     `gorm:"not null" json:"quantity"`
	UnitPrice float64 `gorm:"not null" json:"unit_price"`
}

// StatusEvent is one checkpoint of the production timeline. Events are seeded
// once and mutated in place by transitions; they are never removed.
type StatusEvent struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	OrderID     string `gorm:"not null;index;size:12" json:"-"`
	Status      Status `gorm:"not null" json:"status"`
	Position    int    `gorm:"not null" json:"position"` // keeps seeding order stable across loads
	Timestamp   string `json:"timestamp"` // business-local, "DD MMM, HH:MM"
	Description string `json:"description"`
	Location    string `json:"location"`
	Completed   bool   `json:"completed"`
}
