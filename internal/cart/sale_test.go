package cart

import "testing"

func TestBuildSaleRequest(t *testing.T) {
	s := newTestStore()
	s.AddLine(1, testProduct(1, "100"), d("2"))
	c, _ := s.AddSerializedLine(1, serialProduct(2, "500"), 77, "SN-77")
	c, _ = s.SetDiscount(1, c.Lines[0].ID, d("20"))
	b, _ := s.SelectCustomer(1, Customer{ID: 12, Name: "Ayşe", CreditLimit: d("1000")})

	req := BuildSaleRequest(c, &b, Payment{
		Type:  PaymentSplit,
		Split: Split{Cash: d("200"), Card: d("200"), Credit: d("280")},
	})

	if req.CustomerID == nil || *req.CustomerID != 12 {
		t.Fatalf("customer id = %v", req.CustomerID)
	}
	if len(req.Items) != 2 {
		t.Fatalf("items = %d", len(req.Items))
	}
	if req.Items[1].SerialNumberID == nil || *req.Items[1].SerialNumberID != 77 {
		t.Errorf("serial not carried: %+v", req.Items[1])
	}
	if !req.Gross.Equal(d("700")) || !req.DiscountTotal.Equal(d("20")) || !req.Net.Equal(d("680")) {
		t.Errorf("totals = %s/%s/%s", req.Gross, req.DiscountTotal, req.Net)
	}
	if !req.Breakdown.Credit.Equal(d("280")) {
		t.Errorf("credit = %s", req.Breakdown.Credit)
	}
	if !req.PaidAmount.Equal(d("680")) || !req.ChangeAmount.IsZero() {
		t.Errorf("paid = %s change = %s", req.PaidAmount, req.ChangeAmount)
	}
}

func TestBuildSaleRequest_CashChange(t *testing.T) {
	s := newTestStore()
	c, _ := s.AddLine(1, testProduct(1, "45"), d("1"))

	req := BuildSaleRequest(c, nil, Payment{Type: PaymentCash, Paid: d("50")})
	if req.CustomerID != nil {
		t.Errorf("customer id = %v, want nil", *req.CustomerID)
	}
	if !req.ChangeAmount.Equal(d("5")) {
		t.Errorf("change = %s, want 5", req.ChangeAmount)
	}
	if !req.Breakdown.Cash.Equal(d("45")) {
		t.Errorf("cash portion = %s, want 45", req.Breakdown.Cash)
	}
}

func TestTaxBreakdown(t *testing.T) {
	lines := []Line{
		{VATRate: d("20"), LineTotal: d("120")},
		{VATRate: d("10"), LineTotal: d("55")},
		{VATRate: d("20"), LineTotal: d("60")},
		{VATRate: d("0"), LineTotal: d("15")},
	}
	got := TaxBreakdown(lines)
	if len(got) != 3 {
		t.Fatalf("rates = %d, want 3", len(got))
	}

	want := []struct{ rate, base, vat, total string }{
		{"0", "15", "0", "15"},
		{"10", "50", "5", "55"},
		{"20", "150", "30", "180"},
	}
	for i, w := range want {
		g := got[i]
		if !g.Rate.Equal(d(w.rate)) || !g.Base.Equal(d(w.base)) || !g.VAT.Equal(d(w.vat)) || !g.Total.Equal(d(w.total)) {
			t.Errorf("row %d = %+v, want %+v", i, g, w)
		}
	}
}
