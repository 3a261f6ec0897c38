package cart

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTabCount kasada aynı anda açık tutulan müşteri sekmesi sayısı.
const DefaultTabCount = 5

var ErrUnknownTab = errors.New("geçersiz sekme")

// Store bir kasiyer oturumunun sabit sayıdaki sepetini tutar.
//
// Tüm mutasyonlar satır listesinden toplamları yeniden hesaplar; toplamlar
// hiçbir zaman ayrıca güncellenmez. Dönen Cart değerleri kopyadır.
type Store struct {
	mu        sync.Mutex
	tabs      []*Cart
	customers map[int]Binding
	active    int
	priceList int
	newID     func() string
}

type Option func(*Store)

// WithPriceList yeni eklenen satırlarda kullanılacak fiyat listesini belirler.
func WithPriceList(list int) Option {
	return func(s *Store) {
		if list > 0 {
			s.priceList = list
		}
	}
}

// WithIDGenerator satır id üretecini değiştirir (testlerde deterministik id için).
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewStore(tabCount int, opts ...Option) *Store {
	if tabCount <= 0 {
		tabCount = DefaultTabCount
	}
	s := &Store{
		tabs:      make([]*Cart, tabCount),
		customers: make(map[int]Binding),
		active:    1,
		priceList: DefaultPriceList,
		newID:     uuid.NewString,
	}
	for i := range s.tabs {
		s.tabs[i] = &Cart{TabID: i + 1, CustomerLabel: DefaultLabel(i + 1)}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultLabel sekmenin müşteri bağlı değilken gösterilen etiketi.
func DefaultLabel(tabID int) string {
	return fmt.Sprintf("Müşteri %d", tabID)
}

func (s *Store) TabCount() int {
	return len(s.tabs)
}

func (s *Store) PriceList() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.priceList
}

// SetPriceList sadece sonraki eklemeleri etkiler, mevcut satırların fiyatı sabittir.
func (s *Store) SetPriceList(list int) {
	if list <= 0 {
		return
	}
	s.mu.Lock()
	s.priceList = list
	s.mu.Unlock()
}

func (s *Store) tab(tabID int) (*Cart, error) {
	if tabID < 1 || tabID > len(s.tabs) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTab, tabID)
	}
	return s.tabs[tabID-1], nil
}

func (s *Store) ActiveTab() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActiveTab aktif sekmeyi değiştirir; müşteri bağlantıları etkilenmez.
func (s *Store) SetActiveTab(tabID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.tab(tabID); err != nil {
		return err
	}
	s.active = tabID
	return nil
}

func (s *Store) Cart(tabID int) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.tab(tabID)
	if err != nil {
		return Cart{}, err
	}
	return c.clone(), nil
}

func (s *Store) Carts() []Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Cart, 0, len(s.tabs))
	for _, c := range s.tabs {
		out = append(out, c.clone())
	}
	return out
}

// AddLine ürünü sepete ekler. Aynı ürünün seri takipsiz satırı varsa miktarı
// artırılır, indirim ölçeklenmez. Seri takipli ürünler her zaman yeni satır açar.
// Pozitif olmayan miktar çağıranın sorumluluğundadır.
func (s *Store) AddLine(tabID int, p Product, quantity decimal.Decimal) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.tab(tabID)
	if err != nil {
		return Cart{}, err
	}

	if p.IsSerialized {
		s.appendLine(c, p, decimal.NewFromInt(1), nil, "")
		return s.commit(c), nil
	}

	for i := range c.Lines {
		l := &c.Lines[i]
		if l.ProductID == p.ID && !l.Serialized() {
			l.Quantity = l.Quantity.Add(quantity)
			l.recompute()
			return s.commit(c), nil
		}
	}

	s.appendLine(c, p, quantity, nil, "")
	return s.commit(c), nil
}

// AddSerializedLine seri numarası bilinen tek bir fiziksel ürünü ekler.
func (s *Store) AddSerializedLine(tabID int, p Product, serialID uint, serial string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.tab(tabID)
	if err != nil {
		return Cart{}, err
	}
	id := serialID
	s.appendLine(c, p, decimal.NewFromInt(1), &id, serial)
	return s.commit(c), nil
}

func (s *Store) appendLine(c *Cart, p Product, qty decimal.Decimal, serialID *uint, serial string) {
	l := Line{
		ID:             s.newID(),
		ProductID:      p.ID,
		Barcode:        p.Barcode,
		Name:           p.Name,
		Quantity:       qty,
		UnitPrice:      p.PriceFor(s.priceList),
		VATRate:        p.VATRate,
		DiscountAmount: decimal.Zero,
		IsSerialized:   p.IsSerialized || serialID != nil,
		SerialNumberID: serialID,
		SerialNumber:   serial,
	}
	l.recompute()
	c.Lines = append(c.Lines, l)
}

// RemoveLine satırı siler ve silinen satırı döner. Satır yoksa işlem yapılmaz.
func (s *Store) RemoveLine(tabID int, lineID string) (Cart, *Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.tab(tabID)
	if err != nil {
		return Cart{}, nil, err
	}
	removed := removeLine(c, lineID)
	if removed == nil {
		return c.clone(), nil, nil
	}
	return s.commit(c), removed, nil
}

func removeLine(c *Cart, lineID string) *Line {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			l := c.Lines[i]
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return &l
		}
	}
	return nil
}

// SetQuantity miktarı günceller; miktar <= 0 ise satır silinir ve döner.
// Seri takipli satırlarda miktar değişikliği yok sayılır. İndirim yeniden
// sınırlanmaz, satır toplamı negatife düşebilir.
func (s *Store) SetQuantity(tabID int, lineID string, quantity decimal.Decimal) (Cart, *Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.tab(tabID)
	if err != nil {
		return Cart{}, nil, err
	}

	if !quantity.IsPositive() {
		removed := removeLine(c, lineID)
		if removed == nil {
			return c.clone(), nil, nil
		}
		return s.commit(c), removed, nil
	}

	for i := range c.Lines {
		l := &c.Lines[i]
		if l.ID != lineID {
			continue
		}
		if l.Serialized() {
			return c.clone(), nil, nil
		}
		l.Quantity = quantity
		l.recompute()
		return s.commit(c), nil, nil
	}
	return c.clone(), nil, nil
}

// SetDiscount indirimi [0, miktar×birim fiyat] aralığına sıkıştırarak kaydeder.
func (s *Store) SetDiscount(tabID int, lineID string, amount decimal.Decimal) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.tab(tabID)
	if err != nil {
		return Cart{}, err
	}
	for i := range c.Lines {
		l := &c.Lines[i]
		if l.ID != lineID {
			continue
		}
		l.DiscountAmount = ClampDiscount(amount, l.Subtotal())
		l.recompute()
		return s.commit(c), nil
	}
	return c.clone(), nil
}

// ClampDiscount indirimi [0, max] aralığına getirir.
func ClampDiscount(amount, max decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	if max.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(max) {
		return max
	}
	return amount
}

// ClearCart satırları ve ödeme bilgisini sıfırlar, silinen satırları döner.
// Sekmeye bağlı müşteri korunur.
func (s *Store) ClearCart(tabID int) (Cart, []Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.tab(tabID)
	if err != nil {
		return Cart{}, nil, err
	}
	removed := c.Lines
	c.Lines = nil
	c.Payment = PaymentInfo{}
	return s.commit(c), removed, nil
}

// ClearCartAt sepet verilen revizyondaysa temizler. Onay bekleyen satışlarda
// arada sepete eklenen satırların silinmemesi için kullanılır.
func (s *Store) ClearCartAt(tabID int, revision uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.tab(tabID)
	if err != nil {
		return false, err
	}
	if c.Revision != revision {
		return false, nil
	}
	c.Lines = nil
	c.Payment = PaymentInfo{}
	s.commit(c)
	return true, nil
}

// RecomputeTotals toplamları satırlardan yeniden hesaplar.
func (s *Store) RecomputeTotals(tabID int) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.tab(tabID)
	if err != nil {
		return Cart{}, err
	}
	recomputeTotals(c)
	return c.clone(), nil
}

// SetPaidAmount ödeme panelindeki ödeme tipini ve alınan tutarı günceller.
func (s *Store) SetPaidAmount(tabID int, t PaymentType, paid decimal.Decimal) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.tab(tabID)
	if err != nil {
		return Cart{}, err
	}
	c.Payment.Type = t
	c.Payment.PaidAmount = paid
	c.Payment.ChangeAmount = ComputeChange(paid, c.Net)
	return c.clone(), nil
}

func recomputeTotals(c *Cart) {
	c.Gross, c.DiscountTotal, c.Net = Totals(c.Lines)
	c.Payment.ChangeAmount = ComputeChange(c.Payment.PaidAmount, c.Net)
}

func (s *Store) commit(c *Cart) Cart {
	recomputeTotals(c)
	c.Revision++
	return c.clone()
}
