package sales

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pos-backend/internal/audit"
	"pos-backend/internal/auth"
	"pos-backend/internal/cart"
	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func uptr(v uint) *uint { return &v }

func splitRequest() cart.SaleRequest {
	serial := uint(77)
	return cart.SaleRequest{
		BranchID:   uptr(1),
		CashierID:  9,
		CustomerID: uptr(4),
		Items: []cart.SaleItem{
			{ProductID: 1, Name: "Çay", Quantity: d("2"), UnitPrice: d("50"), LineTotal: d("100"), VATRate: d("20")},
			{ProductID: 2, Name: "Telefon", Quantity: d("1"), UnitPrice: d("200"), DiscountAmount: d("20"), LineTotal: d("180"), VATRate: d("20"), SerialNumberID: &serial},
		},
		Gross:         d("300"),
		DiscountTotal: d("20"),
		Net:           d("280"),
		PaymentType:   cart.PaymentSplit,
		Breakdown:     cart.Split{Cash: d("100"), Card: d("80"), Credit: d("100")},
		PaidAmount:    d("280"),
		ChangeAmount:  decimal.Zero,
	}
}

func TestBuildRecordsSplit(t *testing.T) {
	at := time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)
	rec := BuildRecords(splitRequest(), at)

	if len(rec.Sale.Items) != 2 || rec.Sale.Items[1].SerialNumberID == nil {
		t.Fatalf("items = %+v", rec.Sale.Items)
	}
	if len(rec.Sale.Payments) != 3 {
		t.Fatalf("payments = %+v", rec.Sale.Payments)
	}
	if len(rec.Movements) != 2 {
		t.Fatalf("movements = %+v", rec.Movements)
	}
	if rec.Movements[0].Method != models.CashMethodCash || !rec.Movements[0].Amount.Equal(d("100")) {
		t.Errorf("cash movement = %+v", rec.Movements[0])
	}
	if rec.Movements[1].Method != models.CashMethodCard || !rec.Movements[1].Amount.Equal(d("80")) {
		t.Errorf("card movement = %+v", rec.Movements[1])
	}
	if rec.CustomerTx == nil || !rec.CustomerTx.Amount.Equal(d("100")) || rec.CustomerTx.CustomerID != 4 {
		t.Errorf("customer tx = %+v", rec.CustomerTx)
	}
	if !rec.Sale.CreatedAt.Equal(at) || rec.Movements[0].Date != at {
		t.Error("timestamps not propagated")
	}
}

func TestBuildRecordsCashWithChange(t *testing.T) {
	req := cart.SaleRequest{
		CashierID:    2,
		Items:        []cart.SaleItem{{ProductID: 1, Quantity: d("1"), UnitPrice: d("80"), LineTotal: d("80")}},
		Net:          d("80"),
		PaymentType:  cart.PaymentCash,
		Breakdown:    cart.Split{Cash: d("80"), Card: decimal.Zero, Credit: decimal.Zero},
		PaidAmount:   d("100"),
		ChangeAmount: d("20"),
	}
	rec := BuildRecords(req, time.Now())
	if len(rec.Movements) != 1 || !rec.Movements[0].Amount.Equal(d("80")) {
		t.Errorf("drawer should receive net, not tendered: %+v", rec.Movements)
	}
	if rec.CustomerTx != nil {
		t.Error("cash sale must not touch customer ledger")
	}
	if len(rec.Sale.Payments) != 1 || rec.Sale.Payments[0].Method != "cash" {
		t.Errorf("payments = %+v", rec.Sale.Payments)
	}
}

func TestSaleAuditLog(t *testing.T) {
	rec := BuildRecords(splitRequest(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	rec.Sale.ID = 31

	entry := audit.NewLog(SaleAuditOptions(rec.Sale, "Kasiyer Deniz"))
	if entry.EntityType != "sale" || entry.EntityID != 31 || entry.Action != models.AuditActionCreate {
		t.Errorf("entry = %+v", entry)
	}
	if entry.UserID != 9 || entry.UserName != "Kasiyer Deniz" || entry.BranchID == nil || *entry.BranchID != 1 {
		t.Errorf("actor = user %d %q branch %v", entry.UserID, entry.UserName, entry.BranchID)
	}
	if !strings.Contains(entry.Description, "280.00") {
		t.Errorf("description = %q", entry.Description)
	}
	if !strings.Contains(entry.AfterData, `"payment_type":"split"`) || entry.BeforeData != "null" {
		t.Errorf("before=%s after=%s", entry.BeforeData, entry.AfterData)
	}
}

func TestNewSaleResponse(t *testing.T) {
	s := models.Sale{
		ID:       5,
		Customer: &models.Customer{Name: "Ali"},
		Net:      d("10"),
		Items:    []models.SaleItem{{ProductName: "Su", Quantity: d("1")}},
		Payments: []models.SalePayment{{Method: "card", Amount: d("10")}},
	}
	r := NewSaleResponse(s)
	if r.CustomerName != "Ali" || len(r.Items) != 1 || len(r.Payments) != 1 {
		t.Errorf("response = %+v", r)
	}
}

func TestParseFilterScopesByRole(t *testing.T) {
	branch := uint(3)
	tests := []struct {
		name        string
		id          auth.Identity
		query       string
		wantCashier *uint
		wantBranch  *uint
		wantErr     bool
	}{
		{"cashier sees own sales", auth.Identity{UserID: 9, Role: models.RoleCashier, BranchID: &branch}, "?cashier_id=1", uptr(9), uptr(3), false},
		{"branch admin pinned to branch", auth.Identity{UserID: 2, Role: models.RoleBranchAdmin, BranchID: &branch}, "?branch_id=8", nil, uptr(3), false},
		{"super admin free filter", auth.Identity{UserID: 1, Role: models.RoleSuperAdmin}, "?branch_id=8&cashier_id=4", uptr(4), uptr(8), false},
		{"bad date", auth.Identity{UserID: 1, Role: models.RoleSuperAdmin}, "?from=yesterday", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			var got Filter
			var gotErr error
			app.Get("/", func(c *fiber.Ctx) error {
				got, gotErr = ParseFilter(c, tt.id)
				return c.SendStatus(fiber.StatusNoContent)
			})
			if _, err := app.Test(httptest.NewRequest("GET", "/"+tt.query, nil)); err != nil {
				t.Fatal(err)
			}
			if (gotErr != nil) != tt.wantErr {
				t.Fatalf("err = %v", gotErr)
			}
			if tt.wantErr {
				return
			}
			if !equalPtr(got.CashierID, tt.wantCashier) || !equalPtr(got.BranchID, tt.wantBranch) {
				t.Errorf("filter = cashier %v branch %v", deref(got.CashierID), deref(got.BranchID))
			}
		})
	}
}

func TestParseFilterToIsInclusive(t *testing.T) {
	app := fiber.New()
	var got Filter
	app.Get("/", func(c *fiber.Ctx) error {
		got, _ = ParseFilter(c, auth.Identity{UserID: 1, Role: models.RoleSuperAdmin})
		return nil
	})
	if _, err := app.Test(httptest.NewRequest("GET", "/?from=2026-01-01&to=2026-01-31", nil)); err != nil {
		t.Fatal(err)
	}
	if got.To == nil || got.To.Day() != 1 || got.To.Month() != time.February {
		t.Errorf("to = %v", got.To)
	}
}

func TestCanSee(t *testing.T) {
	b1, b2 := uint(1), uint(2)
	s := models.Sale{CashierID: 9, BranchID: &b1}
	if !canSee(auth.Identity{Role: models.RoleSuperAdmin}, s) {
		t.Error("super admin sees all")
	}
	if canSee(auth.Identity{Role: models.RoleBranchAdmin, BranchID: &b2}, s) {
		t.Error("other branch admin must not see")
	}
	if !canSee(auth.Identity{Role: models.RoleCashier, UserID: 9}, s) || canSee(auth.Identity{Role: models.RoleCashier, UserID: 8}, s) {
		t.Error("cashier sees only own sales")
	}
}

func equalPtr(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(p *uint) any {
	if p == nil {
		return nil
	}
	return *p
}
