package cart

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SaleItem kaydedilecek satışın bir kalemi.
type SaleItem struct {
	ProductID      uint            `json:"product_id"`
	Name           string          `json:"name"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	VATRate        decimal.Decimal `json:"vat_rate"`
	LineTotal      decimal.Decimal `json:"line_total"`
	SerialNumberID *uint           `json:"serial_number_id,omitempty"`
}

// SaleRequest satış kaydı servisine gönderilen istek.
type SaleRequest struct {
	BranchID      *uint           `json:"branch_id"`
	CashierID     uint            `json:"cashier_id"`
	CustomerID    *uint           `json:"customer_id"`
	Items         []SaleItem      `json:"items"`
	Gross         decimal.Decimal `json:"gross"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	Net           decimal.Decimal `json:"net"`
	PaymentType   PaymentType     `json:"payment_type"`
	Breakdown     Split           `json:"breakdown"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	ChangeAmount  decimal.Decimal `json:"change_amount"`
}

// BuildSaleRequest sepetten satış isteği üretir. Toplamlar satırlardan tekrar
// hesaplanır.
func BuildSaleRequest(c Cart, customer *Binding, p Payment) SaleRequest {
	gross, discount, net := Totals(c.Lines)

	items := make([]SaleItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, SaleItem{
			ProductID:      l.ProductID,
			Name:           l.Name,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			DiscountAmount: l.DiscountAmount,
			VATRate:        l.VATRate,
			LineTotal:      l.LineTotal,
			SerialNumberID: l.SerialNumberID,
		})
	}

	var customerID *uint
	if customer != nil {
		id := customer.Customer.ID
		customerID = &id
	}

	paid := p.Paid
	if p.Type == PaymentCredit || p.Type == PaymentSplit {
		paid = p.Breakdown(net).Sum()
	}

	return SaleRequest{
		CustomerID:    customerID,
		Items:         items,
		Gross:         gross,
		DiscountTotal: discount,
		Net:           net,
		PaymentType:   p.Type,
		Breakdown:     p.Breakdown(net),
		PaidAmount:    paid,
		ChangeAmount:  ComputeChange(paid, net),
	}
}

// TaxLine bir KDV oranına ait fiş özeti.
type TaxLine struct {
	Rate  decimal.Decimal `json:"rate"`
	Base  decimal.Decimal `json:"base"`
	VAT   decimal.Decimal `json:"vat"`
	Total decimal.Decimal `json:"total"`
}

var hundred = decimal.NewFromInt(100)

// TaxBreakdown KDV dahil satır toplamlarını orana göre matrah ve KDV olarak
// ayırır. Net tutarı değiştirmez; sadece fiş ve rapor gösterimi içindir.
func TaxBreakdown(lines []Line) []TaxLine {
	byRate := map[string]*TaxLine{}
	for _, l := range lines {
		key := l.VATRate.String()
		t, ok := byRate[key]
		if !ok {
			t = &TaxLine{Rate: l.VATRate, Base: decimal.Zero, VAT: decimal.Zero, Total: decimal.Zero}
			byRate[key] = t
		}
		t.Total = t.Total.Add(l.LineTotal)
	}

	out := make([]TaxLine, 0, len(byRate))
	for _, t := range byRate {
		divisor := decimal.NewFromInt(1)
		if t.Rate.IsPositive() {
			divisor = divisor.Add(t.Rate.Div(hundred))
		}
		base := t.Total.Div(divisor).Round(2)
		out = append(out, TaxLine{
			Rate:  t.Rate,
			Base:  base,
			VAT:   t.Total.Round(2).Sub(base),
			Total: t.Total.Round(2),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rate.LessThan(out[j].Rate) })
	return out
}
