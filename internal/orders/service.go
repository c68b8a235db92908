// Package orders implements the order lifecycle manager: intake of orders and
// quotes, edits, the payment ledger, quote conversion, and status changes.
// Subscription gating and admin checks belong to the caller; this package
// only enforces the order's own invariants.
package orders

import (
	"context"
	"strings"
	"time"

	"github.com/amendes/orderdesk/internal/ledger"
	"github.com/amendes/orderdesk/internal/models"
	"github.com/amendes/orderdesk/internal/timeline"
	"github.com/amendes/orderdesk/internal/validation"
	"github.com/google/uuid"
)

// centTolerance absorbs float rounding when comparing payment sums.
const centTolerance = 0.01

type ItemInput struct {
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Input carries everything intake and edit forms submit for one order.
type Input struct {
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	ShippingAddr  string      `json:"shipping_address"`
	Items         []ItemInput `json:"items"`
	DownPayment   float64     `json:"down_payment"`
	PaymentMethod string      `json:"payment_method"` // label of the initial payment, e.g. "Pix"
	OrderDate     string      `json:"order_date"`
	QuoteValidity string      `json:"quote_validity"`
	Notes         string      `json:"notes"`
	PhotoURL      string      `json:"photo_url"`
	PressingDate  string      `json:"pressing_date"`
	PrintingDate  string      `json:"printing_date"`
	Seamstress    string      `json:"seamstress"`
}

type Service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// NewService builds the lifecycle manager. loc is the shop's local timezone;
// timeline timestamps render in it.
func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

func (s *Service) localNow() time.Time { return s.now().In(s.loc) }

// CreateOrder validates the input, seeds the production timeline (first event
// completed, initial payment embedded in its description), and persists a new
// order with status ORDER_PLACED.
func (s *Service) CreateOrder(ctx context.Context, tenantID string, in Input) (*models.Order, error) {
	o, err := s.buildFromInput(tenantID, in)
	if err != nil {
		return nil, err
	}
	o.CurrentStatus = models.StatusOrderPlaced
	o.Timeline = timeline.Seed(s.localNow(), o.PaymentMethod)
	if err := s.repo.PutOrder(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// CreateQuote is CreateOrder without a production timeline: the entity stays
// in QUOTE until converted.
func (s *Service) CreateQuote(ctx context.Context, tenantID string, in Input) (*models.Order, error) {
	o, err := s.buildFromInput(tenantID, in)
	if err != nil {
		return nil, err
	}
	o.CurrentStatus = models.StatusQuote
	if err := s.repo.PutOrder(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateOrder fully replaces the customer, item, date, and photo fields and
// recomputes the total. Timeline and ledger are untouched here; the recorded
// down payment must still fit under the new total.
func (s *Service) UpdateOrder(ctx context.Context, tenantID, id string, in Input) (*models.Order, error) {
	o, err := s.repo.GetOrder(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	v := validateInput(in)
	if !v.Empty() {
		return nil, validationErr(v)
	}
	o.CustomerName = in.CustomerName
	o.CustomerPhone = in.CustomerPhone
	o.ShippingAddr = in.ShippingAddr
	o.Items = buildItems(in.Items)
	o.OrderDate = in.OrderDate
	o.QuoteValidity = in.QuoteValidity
	o.Notes = in.Notes
	o.PhotoURL = in.PhotoURL
	o.PressingDate = in.PressingDate
	o.PrintingDate = in.PrintingDate
	o.Seamstress = in.Seamstress
	if o.DownPayment > o.Total()+centTolerance {
		return nil, validationErr(validation.Violations{"items": "total_below_recorded_payments"})
	}
	if err := s.repo.PutOrder(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Duplicate returns an unsaved draft copying the customer and items of src.
// Payments and dates are reset; a quote keeps its validity window. The source
// is never mutated, and the caller persists the draft through CreateOrder or
// CreateQuote.
func (s *Service) Duplicate(src *models.Order) Input {
	in := Input{
		CustomerName:  src.CustomerName,
		CustomerPhone: src.CustomerPhone,
		ShippingAddr:  src.ShippingAddr,
		Items:         make([]ItemInput, 0, len(src.Items)),
	}
	for _, it := range src.Items {
		in.Items = append(in.Items, ItemInput{Name: it.Name, Size: it.Size, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	if src.CurrentStatus == models.StatusQuote {
		in.QuoteValidity = src.QuoteValidity
	}
	return in
}

// RecordPayment appends a payment to the ledger and re-derives the cached
// down payment by decoding the result. A payment beyond the remaining balance
// (plus one cent of tolerance) leaves the order unchanged.
func (s *Service) RecordPayment(ctx context.Context, tenantID, id string, amount float64, method string) (*models.Order, error) {
	o, err := s.repo.GetOrder(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	v := validation.Violations{}
	validation.Required("method", method, v)
	methodLabelCheck("method", method, v)
	if amount <= 0 {
		v["amount"] = "must_be_positive"
	}
	if !v.Empty() {
		return nil, validationErr(v)
	}
	if amount > o.Total()-o.DownPayment+centTolerance {
		return nil, ErrInsufficientBalance
	}
	next := ledger.Append(o.PaymentMethod, strings.TrimSpace(method), amount)
	total, warnings := ledger.Total(next)
	// re-derived sum must still fit under the order total, whatever the
	// ledger string now decodes to
	if total > o.Total()+centTolerance {
		return nil, ErrInsufficientBalance
	}
	o.PaymentMethod = next
	o.DownPayment = total
	o.LedgerWarnings = warnings
	if err := s.repo.PutOrder(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// RemovePayment drops the ledger entry at index and re-derives the cached
// down payment from what remains. Admin-only; the caller enforces that.
func (s *Service) RemovePayment(ctx context.Context, tenantID, id string, index int) (*models.Order, error) {
	o, err := s.repo.GetOrder(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	rest, err := ledger.RemoveEntry(o.PaymentMethod, index)
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = rest
	o.DownPayment, o.LedgerWarnings = ledger.Total(rest)
	if err := s.repo.PutOrder(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ConvertQuoteToOrder promotes a quote into a placed order, seeding the
// standard production timeline with the first event completed.
func (s *Service) ConvertQuoteToOrder(ctx context.Context, tenantID, id string) (*models.Order, error) {
	o, err := s.repo.GetOrder(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if o.CurrentStatus != models.StatusQuote {
		return nil, ErrNotAQuote
	}
	o.CurrentStatus = models.StatusOrderPlaced
	o.Timeline = timeline.Seed(s.localNow(), o.PaymentMethod)
	if err := s.repo.PutOrder(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ChangeStatus runs the state machine against the order's timeline and
// persists the result. Quotes carry no timeline; they must be converted
// before their status can move.
func (s *Service) ChangeStatus(ctx context.Context, tenantID, id string, target models.Status, location string) (*models.Order, error) {
	o, err := s.repo.GetOrder(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if timeline.Weight(target) == 0 {
		return nil, validationErr(validation.Violations{"status": "unknown_status"})
	}
	if o.CurrentStatus == models.StatusQuote {
		return nil, validationErr(validation.Violations{"status": "quote_must_be_converted_first"})
	}
	o.Timeline = timeline.Apply(o.Timeline, target, location, s.localNow())
	o.CurrentStatus = target
	if err := s.repo.PutOrder(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// DeleteOrder removes an order unconditionally. Admin-only; the caller
// enforces that.
func (s *Service) DeleteOrder(ctx context.Context, tenantID, id string) error {
	return s.repo.DeleteOrder(ctx, tenantID, id)
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (*models.Order, error) {
	return s.repo.GetOrder(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID string) ([]models.Order, error) {
	return s.repo.ListOrders(ctx, tenantID)
}

// buildFromInput validates and assembles a new order common to intake of both
// orders and quotes. The initial payment, when present, is run through the
// ledger codec and the cached down payment is re-derived by decoding it.
func (s *Service) buildFromInput(tenantID string, in Input) (*models.Order, error) {
	v := validateInput(in)
	if in.DownPayment > 0 {
		if strings.TrimSpace(in.PaymentMethod) == "" {
			v["payment_method"] = "required"
		}
		methodLabelCheck("payment_method", in.PaymentMethod, v)
	}
	if !v.Empty() {
		return nil, validationErr(v)
	}
	o := &models.Order{
		ID:            NewOrderID(),
		TenantID:      tenantID,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		ShippingAddr:  in.ShippingAddr,
		Items:         buildItems(in.Items),
		OrderDate:     in.OrderDate,
		QuoteValidity: in.QuoteValidity,
		Notes:         in.Notes,
		PhotoURL:      in.PhotoURL,
		PressingDate:  in.PressingDate,
		PrintingDate:  in.PrintingDate,
		Seamstress:    in.Seamstress,
	}
	vc := validation.Violations{}
	validation.AtMostFloat("down_payment", in.DownPayment, o.Total(), centTolerance, vc)
	if !vc.Empty() {
		return nil, validationErr(vc)
	}
	if in.DownPayment > 0 {
		o.PaymentMethod = ledger.Encode(strings.TrimSpace(in.PaymentMethod), in.DownPayment)
		o.DownPayment, o.LedgerWarnings = ledger.Total(o.PaymentMethod)
		if o.DownPayment > o.Total()+centTolerance {
			return nil, validationErr(validation.Violations{"down_payment": "exceeds_limit"})
		}
	}
	return o, nil
}

// methodLabelCheck rejects payment labels that would collide with the ledger
// serialization. A label carrying the entry separator or parentheses becomes
// indistinguishable from real entries once encoded, inflating the decoded sum.
func methodLabelCheck(field, label string, v validation.Violations) {
	if strings.Contains(label, ledger.Separator) || strings.ContainsAny(label, "()") {
		v[field] = "contains_reserved_characters"
	}
}

func validateInput(in Input) validation.Violations {
	v := validation.Violations{}
	validation.Required("customer_name", in.CustomerName, v)
	validation.Required("customer_phone", in.CustomerPhone, v)
	validation.Required("order_date", in.OrderDate, v)
	if len(in.Items) == 0 {
		v["items"] = "required"
	}
	for _, it := range in.Items {
		if strings.TrimSpace(it.Name) == "" {
			v["items"] = "item_name_required"
		}
		if it.Quantity <= 0 {
			v["items"] = "quantity_must_be_positive"
		}
		if it.UnitPrice < 0 {
			v["items"] = "unit_price_must_not_be_negative"
		}
	}
	validation.NonNegativeFloat("down_payment", in.DownPayment, v)
	return v
}

func buildItems(items []ItemInput) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, models.OrderItem{Name: it.Name, Size: it.Size, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return out
}

// NewOrderID returns a short opaque identifier customers can read back over
// the phone.
func NewOrderID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
