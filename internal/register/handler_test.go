package register

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"pos-backend/internal/auth"
	"pos-backend/internal/cart"
	"pos-backend/internal/checkout"
	"pos-backend/internal/customer"
	"pos-backend/internal/inventory"
	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeProducts struct {
	byBarcode map[string]cart.Product
}

func (f *fakeProducts) FindByBarcode(_ context.Context, barcode string) (cart.Product, error) {
	p, ok := f.byBarcode[barcode]
	if !ok {
		return cart.Product{}, inventory.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProducts) FindByID(_ context.Context, id uint) (cart.Product, error) {
	for _, p := range f.byBarcode {
		if p.ID == id {
			return p, nil
		}
	}
	return cart.Product{}, inventory.ErrProductNotFound
}

type fakeSerials struct {
	rows map[uint]models.SerialNumber

	mu       sync.Mutex
	taken    map[uint]bool
	released []uint
}

func (f *fakeSerials) Find(_ context.Context, id uint) (models.SerialNumber, error) {
	sn, ok := f.rows[id]
	if !ok {
		return sn, inventory.ErrSerialNotFound
	}
	return sn, nil
}

func (f *fakeSerials) Reserve(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.taken[id] {
		return inventory.ErrSerialUnavailable
	}
	f.taken[id] = true
	return nil
}

func (f *fakeSerials) Release(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.taken, id)
	f.released = append(f.released, id)
	return nil
}

type fakeCustomers map[uint]cart.Customer

func (f fakeCustomers) Lookup(_ context.Context, id uint) (cart.Customer, error) {
	cu, ok := f[id]
	if !ok {
		return cu, customer.ErrCustomerNotFound
	}
	return cu, nil
}

type fakeSubmitter struct {
	mu   sync.Mutex
	err  error
	reqs []cart.SaleRequest
}

func (f *fakeSubmitter) SubmitSale(_ context.Context, req cart.SaleRequest) (checkout.SaleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return checkout.SaleResult{}, f.err
	}
	return checkout.SaleResult{SaleID: 42}, nil
}

type fixture struct {
	app       *fiber.App
	serials   *fakeSerials
	submitter *fakeSubmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	products := &fakeProducts{byBarcode: map[string]cart.Product{
		"111": {ID: 1, Barcode: "111", Name: "Çay", Unit: "adet", VATRate: d("20"), Prices: map[int]decimal.Decimal{1: d("50"), 2: d("45")}},
		"222": {ID: 2, Barcode: "222", Name: "Peynir", Unit: "kg", VATRate: d("10"), Prices: map[int]decimal.Decimal{1: d("300")}},
		"999": {ID: 9, Barcode: "999", Name: "Telefon", Unit: "adet", VATRate: d("20"), IsSerialized: true, Prices: map[int]decimal.Decimal{1: d("10000")}},
	}}
	serials := &fakeSerials{
		rows: map[uint]models.SerialNumber{
			70: {ID: 70, ProductID: 9, Serial: "IMEI-70", Status: models.SerialAvailable},
			71: {ID: 71, ProductID: 9, Serial: "IMEI-71", Status: models.SerialAvailable},
			80: {ID: 80, ProductID: 1, Serial: "BAŞKA", Status: models.SerialAvailable},
		},
		taken: map[uint]bool{71: true},
	}
	customers := fakeCustomers{
		5: {ID: 5, Name: "Ayşe Yılmaz", Balance: d("100"), CreditLimit: d("500")},
	}
	submitter := &fakeSubmitter{}

	deps := &Deps{
		Sessions:  NewSessions(3, 1),
		Products:  products,
		Serials:   serials,
		Customers: customers,
		Checkout:  checkout.New(submitter, serials, checkout.WithCustomers(customers)),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	// JWT yerine test kullanıcısı
	app.Use(func(c *fiber.Ctx) error {
		uid := uint(1)
		if v := c.Get("X-User"); v != "" {
			n, _ := strconv.Atoi(v)
			uid = uint(n)
		}
		branch := uint(1)
		c.Locals(auth.CtxUserIDKey, uid)
		c.Locals(auth.CtxUserRoleKey, models.RoleCashier)
		c.Locals(auth.CtxBranchIDKey, &branch)
		return c.Next()
	})
	Mount(app.Group("/api"), deps)

	return &fixture{app: app, serials: serials, submitter: submitter}
}

func (f *fixture) do(t *testing.T, method, path string, body any, out any, headers ...string) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestAddByBarcodeMergesLines(t *testing.T) {
	f := newFixture(t)

	var tab TabResponse
	f.do(t, "POST", "/api/register/tabs/1/lines", fiber.Map{"barcode": "111"}, &tab)
	status := f.do(t, "POST", "/api/register/tabs/1/lines", fiber.Map{"barcode": "111", "quantity": "2"}, &tab)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(tab.Lines) != 1 || !tab.Lines[0].Quantity.Equal(d("3")) {
		t.Fatalf("lines = %+v", tab.Lines)
	}
	if !tab.Net.Equal(d("150")) {
		t.Errorf("net = %s", tab.Net)
	}
	if len(tab.Taxes) != 1 || !tab.Taxes[0].Base.Equal(d("125")) {
		t.Errorf("taxes = %+v", tab.Taxes)
	}
}

func TestAddFractionalQuantityByProductID(t *testing.T) {
	f := newFixture(t)
	var tab TabResponse
	status := f.do(t, "POST", "/api/register/tabs/2/lines", fiber.Map{"product_id": 2, "quantity": "0.75"}, &tab)
	if status != fiber.StatusOK || !tab.Net.Equal(d("225")) {
		t.Fatalf("status=%d net=%s", status, tab.Net)
	}
}

func TestUnknownBarcodePromptsCreate(t *testing.T) {
	f := newFixture(t)
	var body map[string]any
	status := f.do(t, "POST", "/api/register/tabs/1/lines", fiber.Map{"barcode": "000"}, &body)
	if status != fiber.StatusNotFound {
		t.Fatalf("status = %d", status)
	}
	if body["create_product"] != true || body["barcode"] != "000" {
		t.Errorf("body = %v", body)
	}
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	f := newFixture(t)
	var body map[string]any
	status := f.do(t, "POST", "/api/register/tabs/1/lines", fiber.Map{"barcode": "111", "quantity": "0"}, &body)
	if status != fiber.StatusUnprocessableEntity || body["code"] != "invalid_quantity" {
		t.Errorf("status=%d body=%v", status, body)
	}
}

func TestUnknownTab(t *testing.T) {
	f := newFixture(t)
	if status := f.do(t, "GET", "/api/register/tabs/9", nil, nil); status != fiber.StatusNotFound {
		t.Errorf("status = %d", status)
	}
	if status := f.do(t, "GET", "/api/register/tabs/abc", nil, nil); status != fiber.StatusBadRequest {
		t.Errorf("status = %d", status)
	}
}

func TestSerializedFlow(t *testing.T) {
	f := newFixture(t)

	var body map[string]any
	status := f.do(t, "POST", "/api/register/tabs/1/lines", fiber.Map{"barcode": "999"}, &body)
	if status != fiber.StatusUnprocessableEntity || body["code"] != "serial_required" {
		t.Fatalf("status=%d body=%v", status, body)
	}

	status = f.do(t, "POST", "/api/register/tabs/1/lines", fiber.Map{"barcode": "999", "serial_number_id": 80}, &body)
	if status != fiber.StatusUnprocessableEntity || body["code"] != "serial_mismatch" {
		t.Fatalf("status=%d body=%v", status, body)
	}

	status = f.do(t, "POST", "/api/register/tabs/1/lines", fiber.Map{"barcode": "999", "serial_number_id": 71}, nil)
	if status != fiber.StatusConflict {
		t.Fatalf("taken serial status = %d", status)
	}

	var tab TabResponse
	status = f.do(t, "POST", "/api/register/tabs/1/lines", fiber.Map{"barcode": "999", "serial_number_id": 70}, &tab)
	if status != fiber.StatusOK || len(tab.Lines) != 1 {
		t.Fatalf("status=%d lines=%+v", status, tab.Lines)
	}
	line := tab.Lines[0]
	if line.SerialNumber != "IMEI-70" || !line.Quantity.Equal(d("1")) {
		t.Errorf("line = %+v", line)
	}

	// miktar düzenleme seri satırda yok sayılır
	f.do(t, "PATCH", "/api/register/tabs/1/lines/"+line.ID, fiber.Map{"quantity": "3"}, &tab)
	if !tab.Lines[0].Quantity.Equal(d("1")) {
		t.Errorf("serialized quantity changed: %s", tab.Lines[0].Quantity)
	}

	f.do(t, "DELETE", "/api/register/tabs/1/lines/"+line.ID, nil, &tab)
	if len(tab.Lines) != 0 {
		t.Errorf("line not removed")
	}
	if len(f.serials.released) != 1 || f.serials.released[0] != 70 {
		t.Errorf("released = %v", f.serials.released)
	}
}

func TestPatchLineDiscountClamps(t *testing.T) {
	f := newFixture(t)
	var tab TabResponse
	f.do(t, "POST", "/api/register/tabs/1/lines", fiber.Map{"barcode": "111", "quantity": "2"}, &tab)
	lineID := tab.Lines[0].ID

	f.do(t, "PATCH", "/api/register/tabs/1/lines/"+lineID, fiber.Map{"discount": "500"}, &tab)
	if !tab.Lines[0].DiscountAmount.Equal(d("100")) || !tab.Net.IsZero() {
		t.Errorf("discount=%s net=%s", tab.Lines[0].DiscountAmount, tab.Net)
	}

	status := f.do(t, "PATCH", "/api/register/tabs/1/lines/"+lineID, fiber.Map{}, nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("empty patch status = %d", status)
	}

	f.do(t, "PATCH", "/api/register/tabs/1/lines/"+lineID, fiber.Map{"quantity": "0"}, &tab)
	if len(tab.Lines) != 0 {
		t.Errorf("quantity 0 should remove line")
	}
}

func TestCustomerBindingAndCreditCheckout(t *testing.T) {
	f := newFixture(t)
	var tab TabResponse
	f.do(t, "POST", "/api/register/tabs/1/lines", fiber.Map{"barcode": "111", "quantity": "2"}, &tab)

	var body map[string]any
	status := f.do(t, "POST", "/api/register/tabs/1/checkout", fiber.Map{"type": "credit"}, &body)
	if status != fiber.StatusUnprocessableEntity || body["code"] != string(cart.CodeCustomerRequired) {
		t.Fatalf("status=%d body=%v", status, body)
	}

	if status := f.do(t, "PUT", "/api/register/tabs/1/customer", fiber.Map{"customer_id": 404}, nil); status != fiber.StatusNotFound {
		t.Errorf("unknown customer status = %d", status)
	}

	f.do(t, "PUT", "/api/register/tabs/1/customer", fiber.Map{"customer_id": 5}, &tab)
	if tab.CustomerLabel != "Ayşe Yılmaz" || tab.Customer == nil || !tab.Customer.Remaining.Equal(d("400")) {
		t.Fatalf("tab = %+v", tab)
	}

	var res CheckoutResponse
	status = f.do(t, "POST", "/api/register/tabs/1/checkout", fiber.Map{"type": "credit"}, &res)
	if status != fiber.StatusCreated {
		t.Fatalf("status = %d", status)
	}
	if res.SaleID != 42 || !res.CartCleared || len(res.Tab.Lines) != 0 {
		t.Errorf("res = %+v", res)
	}
	if res.Tab.Customer == nil {
		t.Error("customer binding lost after checkout")
	}
	req := f.submitter.reqs[0]
	if req.CustomerID == nil || *req.CustomerID != 5 || req.CashierID != 1 || !req.Breakdown.Credit.Equal(d("100")) {
		t.Errorf("request = %+v", req)
	}
}

func TestCashCheckoutChange(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/api/register/tabs/1/lines", fiber.Map{"barcode": "111"}, nil)

	var res CheckoutResponse
	status := f.do(t, "POST", "/api/register/tabs/1/checkout", fiber.Map{"type": "cash", "paid_amount": "100"}, &res)
	if status != fiber.StatusCreated {
		t.Fatalf("status = %d", status)
	}
	if !res.ChangeAmount.Equal(d("50")) || !res.Net.Equal(d("50")) {
		t.Errorf("res = %+v", res)
	}

	var body map[string]any
	status = f.do(t, "POST", "/api/register/tabs/1/checkout", fiber.Map{"type": "cash", "paid_amount": "100"}, &body)
	if status != fiber.StatusUnprocessableEntity || body["code"] != string(cart.CodeEmptyCart) {
		t.Errorf("empty cart checkout status=%d body=%v", status, body)
	}
}

func TestCheckoutSubmissionFailureLeavesCartCleared(t *testing.T) {
	f := newFixture(t)
	f.submitter.err = errors.New("db down")
	f.do(t, "POST", "/api/register/tabs/1/lines", fiber.Map{"barcode": "111"}, nil)

	var body map[string]any
	status := f.do(t, "POST", "/api/register/tabs/1/checkout", fiber.Map{"type": "card", "paid_amount": "50"}, &body)
	if status != fiber.StatusBadGateway || body["cart_cleared"] != true {
		t.Fatalf("status=%d body=%v", status, body)
	}

	var tab TabResponse
	f.do(t, "GET", "/api/register/tabs/1", nil, &tab)
	if len(tab.Lines) != 0 {
		t.Error("optimistic policy must not restore the cart")
	}
}

func TestFailedSubmissionReleasesSerial(t *testing.T) {
	f := newFixture(t)
	f.submitter.err = errors.New("db down")
	f.do(t, "POST", "/api/register/tabs/1/lines", fiber.Map{"barcode": "999", "serial_number_id": 70}, nil)

	status := f.do(t, "POST", "/api/register/tabs/1/checkout", fiber.Map{"type": "cash", "paid_amount": "1000000"}, nil)
	if status != fiber.StatusBadGateway {
		t.Fatalf("status = %d", status)
	}
	f.serials.mu.Lock()
	defer f.serials.mu.Unlock()
	if f.serials.taken[70] || len(f.serials.released) != 1 {
		t.Errorf("taken=%v released=%v, serial 70 must be free again", f.serials.taken, f.serials.released)
	}
}

func TestMapErrorConflicts(t *testing.T) {
	for _, err := range []error{checkout.ErrCartChanged, checkout.ErrCheckoutInProgress, checkout.ErrReservationFailed} {
		var fe *fiber.Error
		if !errors.As(mapError(err), &fe) || fe.Code != fiber.StatusConflict {
			t.Errorf("mapError(%v) = %v, want 409", err, mapError(err))
		}
	}
}

func TestSessionsArePerCashier(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/api/register/tabs/1/lines", fiber.Map{"barcode": "111"}, nil, "X-User", "1")

	var tabs TabsResponse
	f.do(t, "GET", "/api/register/tabs", nil, &tabs, "X-User", "2")
	if len(tabs.Tabs) != 3 || len(tabs.Tabs[0].Lines) != 0 {
		t.Errorf("second cashier sees foreign cart: %+v", tabs.Tabs)
	}

	f.do(t, "GET", "/api/register/tabs", nil, &tabs, "X-User", "1")
	if len(tabs.Tabs[0].Lines) != 1 || tabs.ActiveTab != 1 || tabs.PriceList != 1 {
		t.Errorf("tabs = %+v", tabs)
	}
}

func TestActiveTabAndPriceList(t *testing.T) {
	f := newFixture(t)

	if status := f.do(t, "PUT", "/api/register/active-tab", fiber.Map{"tab_id": 7}, nil); status != fiber.StatusNotFound {
		t.Errorf("status = %d", status)
	}
	f.do(t, "PUT", "/api/register/active-tab", fiber.Map{"tab_id": 3}, nil)
	f.do(t, "PUT", "/api/register/price-list", fiber.Map{"price_list": 2}, nil)

	var tab TabResponse
	f.do(t, "POST", "/api/register/tabs/3/lines", fiber.Map{"barcode": "111"}, &tab)
	if !tab.Lines[0].UnitPrice.Equal(d("45")) {
		t.Errorf("unit price = %s, want price list 2", tab.Lines[0].UnitPrice)
	}

	var tabs TabsResponse
	f.do(t, "GET", "/api/register/tabs", nil, &tabs)
	if tabs.ActiveTab != 3 || tabs.PriceList != 2 {
		t.Errorf("tabs = %+v", tabs)
	}
}

func TestClearTabReleasesSerialsKeepsCustomer(t *testing.T) {
	f := newFixture(t)
	f.do(t, "PUT", "/api/register/tabs/2/customer", fiber.Map{"customer_id": 5}, nil)
	f.do(t, "POST", "/api/register/tabs/2/lines", fiber.Map{"barcode": "999", "serial_number_id": 70}, nil)
	f.do(t, "POST", "/api/register/tabs/2/lines", fiber.Map{"barcode": "111"}, nil)

	var tab TabResponse
	f.do(t, "POST", "/api/register/tabs/2/clear", nil, &tab)
	if len(tab.Lines) != 0 || tab.CustomerLabel != "Ayşe Yılmaz" {
		t.Errorf("tab = %+v", tab)
	}
	if len(f.serials.released) != 1 {
		t.Errorf("released = %v", f.serials.released)
	}

	f.do(t, "DELETE", "/api/register/tabs/2/customer", nil, &tab)
	if tab.CustomerLabel != "Müşteri 2" || tab.Customer != nil {
		t.Errorf("tab = %+v", tab)
	}
}

func TestPaymentPanelComputesChange(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/api/register/tabs/1/lines", fiber.Map{"barcode": "111"}, nil)

	var tab TabResponse
	f.do(t, "PUT", "/api/register/tabs/1/payment", fiber.Map{"type": "cash", "paid_amount": "200"}, &tab)
	if !tab.Payment.ChangeAmount.Equal(d("150")) {
		t.Errorf("change = %s", tab.Payment.ChangeAmount)
	}

	var body map[string]any
	status := f.do(t, "PUT", "/api/register/tabs/1/payment", fiber.Map{"type": "cash", "paid_amount": "-1"}, &body)
	if status != fiber.StatusUnprocessableEntity {
		t.Errorf("status = %d", status)
	}
}
