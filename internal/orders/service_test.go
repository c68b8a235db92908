package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/amendes/orderdesk/internal/ledger"
	"github.com/amendes/orderdesk/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Tenant{}, &models.Order{}, &models.OrderItem{}, &models.StatusEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupOrderTestDB(t)
	if err := db.Create(&models.Tenant{ID: "ten1", Name: "Print Shop", SubscriptionStatus: models.SubscriptionActive}).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	svc := NewService(NewGormRepository(db), time.UTC)
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC) }
	return svc, db
}

func shirtInput() Input {
	return Input{
		CustomerName:  "Maria Souza",
		CustomerPhone: "11 98888-7777",
		OrderDate:     "2025-03-14",
		Items:         []ItemInput{{Name: "Shirt", Size: "M", Quantity: 2, UnitPrice: 25.00}},
		DownPayment:   20.00,
		PaymentMethod: "Pix",
	}
}

func TestCreateOrderSeedsLedgerAndTimeline(t *testing.T) {
	svc, _ := newTestService(t)
	o, err := svc.CreateOrder(context.Background(), "ten1", shirtInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := o.Total(); math.Abs(got-50.00) > 0.01 {
		t.Fatalf("total: want 50.00 got %v", got)
	}
	if o.PaymentMethod != "Pix (R$ 20,00)" {
		t.Fatalf("ledger: %q", o.PaymentMethod)
	}
	if math.Abs(o.DownPayment-20.00) > 0.01 {
		t.Fatalf("down payment: %v", o.DownPayment)
	}
	if o.CurrentStatus != models.StatusOrderPlaced {
		t.Fatalf("status: %v", o.CurrentStatus)
	}
	if len(o.Timeline) != 3 || !o.Timeline[0].Completed {
		t.Fatalf("timeline: %#v", o.Timeline)
	}
	if o.Timeline[1].Completed || o.Timeline[2].Completed {
		t.Fatalf("only the first event should be completed")
	}
	// reload to make sure the timeline round-trips through storage
	got, err := svc.Get(context.Background(), "ten1", o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Timeline) != 3 || got.Timeline[0].Description != "Order placed. Payment recorded: Pix (R$ 20,00)" {
		t.Fatalf("persisted timeline: %#v", got.Timeline)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateOrder(context.Background(), "ten1", Input{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	for _, field := range []string{"customer_name", "customer_phone", "order_date", "items"} {
		if _, ok := verr.Violations[field]; !ok {
			t.Fatalf("missing violation for %s: %v", field, verr.Violations)
		}
	}
}

func TestCreateOrderDownPaymentAboveTotal(t *testing.T) {
	svc, _ := newTestService(t)
	in := shirtInput()
	in.DownPayment = 60.00
	_, err := svc.CreateOrder(context.Background(), "ten1", in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if verr.Violations["down_payment"] != "exceeds_limit" {
		t.Fatalf("violations: %v", verr.Violations)
	}
}

func TestCreateQuoteHasNoTimeline(t *testing.T) {
	svc, _ := newTestService(t)
	in := shirtInput()
	in.DownPayment = 0
	in.PaymentMethod = ""
	in.QuoteValidity = "15 days"
	q, err := svc.CreateQuote(context.Background(), "ten1", in)
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	if q.CurrentStatus != models.StatusQuote {
		t.Fatalf("status: %v", q.CurrentStatus)
	}
	if len(q.Timeline) != 0 {
		t.Fatalf("quotes carry no timeline: %#v", q.Timeline)
	}
}

func TestRecordPaymentAppendsAndRederives(t *testing.T) {
	svc, _ := newTestService(t)
	o, _ := svc.CreateOrder(context.Background(), "ten1", shirtInput())

	o, err := svc.RecordPayment(context.Background(), "ten1", o.ID, 30.00, "Cash")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if o.PaymentMethod != "Pix (R$ 20,00) + Cash (R$ 30,00)" {
		t.Fatalf("ledger: %q", o.PaymentMethod)
	}
	if math.Abs(o.DownPayment-50.00) > 0.01 {
		t.Fatalf("down payment: %v", o.DownPayment)
	}
}

func TestRecordPaymentRejectsLedgerSyntaxInMethod(t *testing.T) {
	svc, _ := newTestService(t)
	o, _ := svc.CreateOrder(context.Background(), "ten1", shirtInput())

	// a label carrying an encoded entry would decode as 100 paid on a 50 order
	_, err := svc.RecordPayment(context.Background(), "ten1", o.ID, 1.00, "X (R$ 99,00) + Y")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if verr.Violations["method"] != "contains_reserved_characters" {
		t.Fatalf("violations: %v", verr.Violations)
	}
	got, _ := svc.Get(context.Background(), "ten1", o.ID)
	if got.PaymentMethod != "Pix (R$ 20,00)" || math.Abs(got.DownPayment-20.00) > 0.01 {
		t.Fatalf("order mutated after rejected payment: %q %v", got.PaymentMethod, got.DownPayment)
	}

	for _, method := range []string{"Pix + Cash", "Cash (partial)", "Cash)"} {
		if _, err := svc.RecordPayment(context.Background(), "ten1", o.ID, 1.00, method); !errors.As(err, &verr) {
			t.Fatalf("method %q: want ValidationError, got %v", method, err)
		}
	}
}

func TestCreateOrderRejectsLedgerSyntaxInPaymentMethod(t *testing.T) {
	svc, _ := newTestService(t)
	in := shirtInput()
	in.PaymentMethod = "Pix (R$ 99,00) + Cash"
	_, err := svc.CreateOrder(context.Background(), "ten1", in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if verr.Violations["payment_method"] != "contains_reserved_characters" {
		t.Fatalf("violations: %v", verr.Violations)
	}
}

func TestRecordPaymentSurfacesUnparsedSegments(t *testing.T) {
	svc, db := newTestService(t)
	o, _ := svc.CreateOrder(context.Background(), "ten1", shirtInput())

	// hand-edited legacy ledgers can carry segments without an amount
	legacy := "Pix (R$ 20,00) + store credit"
	if err := db.Model(&models.Order{}).Where("id = ?", o.ID).Update("payment_method", legacy).Error; err != nil {
		t.Fatalf("seed legacy ledger: %v", err)
	}

	got, err := svc.RecordPayment(context.Background(), "ten1", o.ID, 5.00, "Cash")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if got.PaymentMethod != "Pix (R$ 20,00) + store credit + Cash (R$ 5,00)" {
		t.Fatalf("ledger: %q", got.PaymentMethod)
	}
	if math.Abs(got.DownPayment-25.00) > 0.01 {
		t.Fatalf("down payment: %v", got.DownPayment)
	}
	if got.LedgerWarnings != 1 {
		t.Fatalf("ledger warnings: %d", got.LedgerWarnings)
	}
}

func TestRecordPaymentInsufficientBalanceLeavesOrderUnchanged(t *testing.T) {
	svc, _ := newTestService(t)
	o, _ := svc.CreateOrder(context.Background(), "ten1", shirtInput())

	_, err := svc.RecordPayment(context.Background(), "ten1", o.ID, 31.00, "Cash")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}
	got, _ := svc.Get(context.Background(), "ten1", o.ID)
	if got.PaymentMethod != "Pix (R$ 20,00)" || math.Abs(got.DownPayment-20.00) > 0.01 {
		t.Fatalf("order mutated after rejected payment: %q %v", got.PaymentMethod, got.DownPayment)
	}
}

func TestRecordPaymentExactRemainderAllowed(t *testing.T) {
	svc, _ := newTestService(t)
	o, _ := svc.CreateOrder(context.Background(), "ten1", shirtInput())
	o, err := svc.RecordPayment(context.Background(), "ten1", o.ID, 30.00, "Cash")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if o.DownPayment > o.Total()+0.01 {
		t.Fatalf("down payment exceeds total: %v > %v", o.DownPayment, o.Total())
	}
	// nothing left to pay
	if _, err := svc.RecordPayment(context.Background(), "ten1", o.ID, 0.50, "Cash"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}
}

func TestRemovePaymentRederivesByDecode(t *testing.T) {
	svc, _ := newTestService(t)
	o, _ := svc.CreateOrder(context.Background(), "ten1", shirtInput())
	o, _ = svc.RecordPayment(context.Background(), "ten1", o.ID, 30.00, "Cash")

	o, err := svc.RemovePayment(context.Background(), "ten1", o.ID, 0)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if o.PaymentMethod != "Cash (R$ 30,00)" {
		t.Fatalf("ledger: %q", o.PaymentMethod)
	}
	if math.Abs(o.DownPayment-30.00) > 0.01 {
		t.Fatalf("down payment must be re-derived from the ledger: %v", o.DownPayment)
	}
}

func TestRemovePaymentOutOfBounds(t *testing.T) {
	svc, _ := newTestService(t)
	o, _ := svc.CreateOrder(context.Background(), "ten1", shirtInput())
	_, err := svc.RemovePayment(context.Background(), "ten1", o.ID, 5)
	if !errors.Is(err, ledger.ErrIndexOutOfBounds) {
		t.Fatalf("want ErrIndexOutOfBounds, got %v", err)
	}
}

func TestLedgerMatchesDownPaymentAfterEverySequence(t *testing.T) {
	svc, _ := newTestService(t)
	in := shirtInput()
	in.Items = []ItemInput{{Name: "Banner", Quantity: 1, UnitPrice: 500}}
	in.DownPayment = 100
	o, err := svc.CreateOrder(context.Background(), "ten1", in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	steps := []struct {
		amount float64
		method string
	}{{50.55, "Cash"}, {99.99, "Card"}, {120.01, "Pix"}}
	for _, st := range steps {
		o, err = svc.RecordPayment(context.Background(), "ten1", o.ID, st.amount, st.method)
		if err != nil {
			t.Fatalf("record %v: %v", st, err)
		}
		decoded, unparsed := ledger.Total(o.PaymentMethod)
		if unparsed != 0 || math.Abs(decoded-o.DownPayment) > 0.01 {
			t.Fatalf("ledger %q decodes to %v but cache is %v", o.PaymentMethod, decoded, o.DownPayment)
		}
	}
	o, err = svc.RemovePayment(context.Background(), "ten1", o.ID, 2)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	decoded, _ := ledger.Total(o.PaymentMethod)
	if math.Abs(decoded-o.DownPayment) > 0.01 {
		t.Fatalf("cache drifted after removal: %v vs %v", decoded, o.DownPayment)
	}
}

func TestConvertQuoteToOrder(t *testing.T) {
	svc, _ := newTestService(t)
	q, _ := svc.CreateQuote(context.Background(), "ten1", shirtInput())

	o, err := svc.ConvertQuoteToOrder(context.Background(), "ten1", q.ID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if o.CurrentStatus != models.StatusOrderPlaced {
		t.Fatalf("status: %v", o.CurrentStatus)
	}
	if len(o.Timeline) != 3 || !o.Timeline[0].Completed {
		t.Fatalf("timeline: %#v", o.Timeline)
	}
}

func TestConvertNonQuoteFails(t *testing.T) {
	svc, _ := newTestService(t)
	o, _ := svc.CreateOrder(context.Background(), "ten1", shirtInput())

	before, _ := svc.Get(context.Background(), "ten1", o.ID)
	_, err := svc.ConvertQuoteToOrder(context.Background(), "ten1", o.ID)
	if !errors.Is(err, ErrNotAQuote) {
		t.Fatalf("want ErrNotAQuote, got %v", err)
	}
	after, _ := svc.Get(context.Background(), "ten1", o.ID)
	if fmt.Sprintf("%+v", before) != fmt.Sprintf("%+v", after) {
		t.Fatalf("order changed by failed conversion:\n%+v\n%+v", before, after)
	}
}

func TestChangeStatusForwardAndBackward(t *testing.T) {
	svc, _ := newTestService(t)
	o, _ := svc.CreateOrder(context.Background(), "ten1", shirtInput())

	o, err := svc.ChangeStatus(context.Background(), "ten1", o.ID, models.StatusInProduction, "Atelier 2")
	if err != nil {
		t.Fatalf("change: %v", err)
	}
	if o.CurrentStatus != models.StatusInProduction || !o.Timeline[1].Completed {
		t.Fatalf("forward transition: %#v", o.Timeline)
	}
	if o.Timeline[1].Location != "Atelier 2" {
		t.Fatalf("location: %q", o.Timeline[1].Location)
	}

	// backward transition keeps the later event completed
	o, err = svc.ChangeStatus(context.Background(), "ten1", o.ID, models.StatusOrderPlaced, "")
	if err != nil {
		t.Fatalf("change back: %v", err)
	}
	if o.CurrentStatus != models.StatusOrderPlaced {
		t.Fatalf("status: %v", o.CurrentStatus)
	}
	if !o.Timeline[1].Completed {
		t.Fatalf("backward move must not un-complete IN_PRODUCTION")
	}
}

func TestChangeStatusCancelAppends(t *testing.T) {
	svc, _ := newTestService(t)
	o, _ := svc.CreateOrder(context.Background(), "ten1", shirtInput())
	o, err := svc.ChangeStatus(context.Background(), "ten1", o.ID, models.StatusCanceled, "")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(o.Timeline) != 4 || o.Timeline[3].Status != models.StatusCanceled {
		t.Fatalf("timeline: %#v", o.Timeline)
	}
}

func TestChangeStatusOnQuoteRejected(t *testing.T) {
	svc, _ := newTestService(t)
	q, _ := svc.CreateQuote(context.Background(), "ten1", shirtInput())
	_, err := svc.ChangeStatus(context.Background(), "ten1", q.ID, models.StatusInProduction, "")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestUpdateOrderReplacesFieldsKeepsLedger(t *testing.T) {
	svc, _ := newTestService(t)
	o, _ := svc.CreateOrder(context.Background(), "ten1", shirtInput())

	in := shirtInput()
	in.CustomerName = "Maria S. Souza"
	in.Items = []ItemInput{{Name: "Shirt", Size: "G", Quantity: 3, UnitPrice: 30.00}}
	got, err := svc.UpdateOrder(context.Background(), "ten1", o.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.CustomerName != "Maria S. Souza" || math.Abs(got.Total()-90.00) > 0.01 {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.PaymentMethod != "Pix (R$ 20,00)" || len(got.Timeline) != 3 {
		t.Fatalf("update must not touch ledger or timeline")
	}
}

func TestUpdateOrderRejectsTotalBelowPayments(t *testing.T) {
	svc, _ := newTestService(t)
	o, _ := svc.CreateOrder(context.Background(), "ten1", shirtInput())

	in := shirtInput()
	in.Items = []ItemInput{{Name: "Shirt", Quantity: 1, UnitPrice: 10.00}}
	_, err := svc.UpdateOrder(context.Background(), "ten1", o.ID, in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	got, _ := svc.Get(context.Background(), "ten1", o.ID)
	if math.Abs(got.Total()-50.00) > 0.01 {
		t.Fatalf("rejected update must not persist: %v", got.Total())
	}
}

func TestDuplicateResetsPaymentsKeepsQuoteValidity(t *testing.T) {
	svc, _ := newTestService(t)
	in := shirtInput()
	in.QuoteValidity = "30 days"
	in.DownPayment = 0
	in.PaymentMethod = ""
	q, _ := svc.CreateQuote(context.Background(), "ten1", in)

	draft := svc.Duplicate(q)
	if draft.DownPayment != 0 || draft.PaymentMethod != "" {
		t.Fatalf("draft must reset payments: %+v", draft)
	}
	if draft.QuoteValidity != "30 days" {
		t.Fatalf("quote validity should be kept for quote sources")
	}
	if draft.OrderDate != "" {
		t.Fatalf("dates should be cleared")
	}
	if len(draft.Items) != 1 || draft.Items[0].Name != "Shirt" {
		t.Fatalf("items not copied: %+v", draft.Items)
	}

	o, _ := svc.CreateOrder(context.Background(), "ten1", shirtInput())
	orderDraft := svc.Duplicate(o)
	if orderDraft.QuoteValidity != "" {
		t.Fatalf("order sources do not keep quote validity")
	}
	// source untouched
	src, _ := svc.Get(context.Background(), "ten1", o.ID)
	if src.PaymentMethod != "Pix (R$ 20,00)" {
		t.Fatalf("duplicate mutated the source")
	}
}

func TestDeleteOrder(t *testing.T) {
	svc, db := newTestService(t)
	o, _ := svc.CreateOrder(context.Background(), "ten1", shirtInput())
	if err := svc.DeleteOrder(context.Background(), "ten1", o.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), "ten1", o.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
	var itemCount, eventCount int64
	db.Model(&models.OrderItem{}).Where("order_id = ?", o.ID).Count(&itemCount)
	db.Model(&models.StatusEvent{}).Where("order_id = ?", o.ID).Count(&eventCount)
	if itemCount != 0 || eventCount != 0 {
		t.Fatalf("children not removed: %d items %d events", itemCount, eventCount)
	}
}

func TestCrossTenantAccessIsNotFound(t *testing.T) {
	svc, db := newTestService(t)
	if err := db.Create(&models.Tenant{ID: "ten2", Name: "Other Shop", SubscriptionStatus: models.SubscriptionActive}).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	o, _ := svc.CreateOrder(context.Background(), "ten1", shirtInput())

	if _, err := svc.Get(context.Background(), "ten2", o.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant read must be ErrNotFound, got %v", err)
	}
	if _, err := svc.RecordPayment(context.Background(), "ten2", o.ID, 5, "Cash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant write must be ErrNotFound, got %v", err)
	}
	if err := svc.DeleteOrder(context.Background(), "ten2", o.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant delete must be ErrNotFound, got %v", err)
	}
}

func TestListScopedToTenant(t *testing.T) {
	svc, db := newTestService(t)
	if err := db.Create(&models.Tenant{ID: "ten2", Name: "Other", SubscriptionStatus: models.SubscriptionActive}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.CreateOrder(context.Background(), "ten1", shirtInput()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateOrder(context.Background(), "ten2", shirtInput()); err != nil {
		t.Fatalf("create: %v", err)
	}
	list, err := svc.List(context.Background(), "ten1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].TenantID != "ten1" {
		t.Fatalf("list leaked across tenants: %+v", list)
	}
}
