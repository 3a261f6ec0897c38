package register

import (
	"sync"

	"pos-backend/internal/cart"
)

// Sessions her kasiyerin kendi sekmeli sepetlerini tutar. Sepetler bellekte
// yaşar, sunucu yeniden başlarsa boşalır.
type Sessions struct {
	mu        sync.Mutex
	stores    map[uint]*cart.Store
	tabCount  int
	priceList int
	opts      []cart.Option
}

func NewSessions(tabCount, priceList int, opts ...cart.Option) *Sessions {
	if tabCount < 1 {
		tabCount = cart.DefaultTabCount
	}
	if priceList < 1 {
		priceList = cart.DefaultPriceList
	}
	return &Sessions{
		stores:    make(map[uint]*cart.Store),
		tabCount:  tabCount,
		priceList: priceList,
		opts:      opts,
	}
}

// For kullanıcının kasasını döner, yoksa açar.
func (s *Sessions) For(userID uint) *cart.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stores[userID]
	if !ok {
		opts := append([]cart.Option{cart.WithPriceList(s.priceList)}, s.opts...)
		st = cart.NewStore(s.tabCount, opts...)
		s.stores[userID] = st
	}
	return st
}

// Len açık kasa sayısı.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}
