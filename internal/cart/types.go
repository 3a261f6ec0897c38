package cart

import (
	"github.com/shopspring/decimal"
)

// DefaultPriceList fiyat listesi seçilmediğinde kullanılan liste.
const DefaultPriceList = 1

// Product katalogdaki ürünün sepete eklendiği andaki salt-okunur kopyası.
type Product struct {
	ID            uint
	Barcode       string
	Name          string
	Unit          string // adet, kg, lt ...
	Category      string
	Prices        map[int]decimal.Decimal // fiyat listesi -> fiyat
	VATRate       decimal.Decimal         // yüzde, örn: 20
	StockQuantity decimal.Decimal
	IsSerialized  bool
}

// PriceFor verilen fiyat listesindeki fiyatı döner, yoksa varsayılan listeye düşer.
func (p Product) PriceFor(list int) decimal.Decimal {
	if v, ok := p.Prices[list]; ok {
		return v
	}
	return p.Prices[DefaultPriceList]
}

// Line sepetteki tek bir ürün satırı.
type Line struct {
	ID             string          `json:"id"`
	ProductID      uint            `json:"product_id"`
	Barcode        string          `json:"barcode"`
	Name           string          `json:"name"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	VATRate        decimal.Decimal `json:"vat_rate"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	IsSerialized   bool            `json:"is_serialized"`
	SerialNumberID *uint           `json:"serial_number_id,omitempty"`
	SerialNumber   string          `json:"serial_number,omitempty"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

// Serialized seri numarası takipli satırlarda miktar her zaman 1'dir.
func (l Line) Serialized() bool {
	return l.IsSerialized || l.SerialNumberID != nil
}

// Subtotal indirim öncesi satır tutarı.
func (l Line) Subtotal() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

func (l *Line) recompute() {
	l.LineTotal = l.Subtotal().Sub(l.DiscountAmount)
}

// PaymentInfo sekmenin ödeme paneli durumu.
type PaymentInfo struct {
	Type         PaymentType     `json:"type"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	ChangeAmount decimal.Decimal `json:"change_amount"`
}

// Cart bir müşteri sekmesinin sepeti. Toplamlar her zaman satırlardan hesaplanır.
type Cart struct {
	TabID         int             `json:"tab_id"`
	CustomerLabel string          `json:"customer_label"`
	Lines         []Line          `json:"lines"`
	Gross         decimal.Decimal `json:"gross"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	Net           decimal.Decimal `json:"net"`
	Payment       PaymentInfo     `json:"payment"`
	Revision      uint64          `json:"revision"`
}

// Line id'ye göre satırı bulur.
func (c Cart) Line(id string) (Line, bool) {
	for _, l := range c.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return Line{}, false
}

// Totals satır listesinden brüt, indirim ve net tutarı hesaplar.
func Totals(lines []Line) (gross, discount, net decimal.Decimal) {
	gross = decimal.Zero
	discount = decimal.Zero
	for _, l := range lines {
		gross = gross.Add(l.Subtotal())
		discount = discount.Add(l.DiscountAmount)
	}
	return gross, discount, gross.Sub(discount)
}

func (c *Cart) clone() Cart {
	out := *c
	if c.Lines != nil {
		out.Lines = make([]Line, len(c.Lines))
		copy(out.Lines, c.Lines)
		for i := range out.Lines {
			if id := out.Lines[i].SerialNumberID; id != nil {
				v := *id
				out.Lines[i].SerialNumberID = &v
			}
		}
	}
	return out
}
