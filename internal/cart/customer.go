package cart

import "github.com/shopspring/decimal"

// Customer sekmeye bağlanan müşterinin özet bilgisi.
type Customer struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Balance     decimal.Decimal `json:"balance"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

// Binding sekme ile müşteri arasındaki bağ. Remaining = limit - bakiye,
// ödeme panelinde veresiye limit uyarısı için kullanılır.
type Binding struct {
	Customer    Customer        `json:"customer"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	Remaining   decimal.Decimal `json:"remaining"`
}

// ExceedsLimit verilen tutar veresiyeye yazılırsa limit aşılır mı?
func (b Binding) ExceedsLimit(amount decimal.Decimal) bool {
	return amount.GreaterThan(b.Remaining)
}

// SelectCustomer müşteriyi sekmeye bağlar; önceki bağlantının yerine geçer.
func (s *Store) SelectCustomer(tabID int, cu Customer) (Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.tab(tabID)
	if err != nil {
		return Binding{}, err
	}
	b := newBinding(cu)
	s.customers[tabID] = b
	c.CustomerLabel = cu.Name
	return b, nil
}

// RefreshCustomer bağlı müşterinin bakiye ve limitini günceller. Sekmeye bu
// arada başka müşteri bağlandıysa ya da bağlantı kaldırıldıysa dokunmaz.
func (s *Store) RefreshCustomer(tabID int, cu Customer) (Binding, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.tab(tabID)
	if err != nil {
		return Binding{}, false, err
	}
	old, ok := s.customers[tabID]
	if !ok || old.Customer.ID != cu.ID {
		return old, false, nil
	}
	b := newBinding(cu)
	s.customers[tabID] = b
	c.CustomerLabel = cu.Name
	return b, true, nil
}

func newBinding(cu Customer) Binding {
	return Binding{
		Customer:    cu,
		CreditLimit: cu.CreditLimit,
		Remaining:   cu.CreditLimit.Sub(cu.Balance),
	}
}

// ClearCustomer bağlantıyı kaldırır ve etiketi varsayılana döndürür.
func (s *Store) ClearCustomer(tabID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.tab(tabID)
	if err != nil {
		return err
	}
	delete(s.customers, tabID)
	c.CustomerLabel = DefaultLabel(tabID)
	return nil
}

// Customer sekmeye bağlı müşteriyi döner.
func (s *Store) Customer(tabID int) (Binding, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.tab(tabID); err != nil {
		return Binding{}, false, err
	}
	b, ok := s.customers[tabID]
	return b, ok, nil
}
