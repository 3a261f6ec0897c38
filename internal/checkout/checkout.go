package checkout

import (
	"context"
	"errors"
	"fmt"

	"pos-backend/internal/cart"

	"go.uber.org/zap"
)

// Order kasiyerin ödeme isteği.
type Order struct {
	TabID     int
	Payment   cart.Payment
	CashierID uint
	BranchID  *uint
}

// Pending devam eden satış gönderimi.
type Pending struct {
	Request     cart.SaleRequest
	Cleared     bool // gönderim başlarken sepet temizlendi mi
	OverLimit   bool // veresiye kısmı müşteri limitini aşıyor
	done        chan struct{}
	result      SaleResult
	err         error
	clearedLate bool
}

// Done gönderim bittiğinde kapanır.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait gönderim sonucunu bekler. ctx biterse gönderim arka planda devam eder.
func (p *Pending) Wait(ctx context.Context) (SaleResult, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return SaleResult{}, ctx.Err()
	}
}

// CartCleared sepet temizlendi mi; bekleme politikasında sonuç geldikten sonra anlamlıdır.
func (p *Pending) CartCleared() bool {
	select {
	case <-p.done:
		return p.Cleared || p.clearedLate
	default:
		return p.Cleared
	}
}

// Checkout ödemeyi doğrular ve satışı gönderir.
//
// Doğrulama reddi *cart.ValidationError olarak hemen döner ve sepet değişmez.
// Geçerli ödemede gönderim arka planda başlar; sonucu Pending.Wait verir.
// İyimser politikada sepet gönderimden önce temizlenir ve gönderim hatasında
// geri yüklenmez, yalnızca seri rezervasyonları bırakılır. Tekrar deneme yapılmaz.
// Doğrulanan sepet temizlenmeden önce değiştiyse ErrCartChanged döner.
func (s *Service) Checkout(ctx context.Context, store *cart.Store, o Order) (*Pending, error) {
	c, err := store.Cart(o.TabID)
	if err != nil {
		return nil, err
	}
	binding, bound, err := store.Customer(o.TabID)
	if err != nil {
		return nil, err
	}
	if bound {
		if fresh, ok := s.refreshCustomer(ctx, store, o.TabID, binding.Customer.ID); ok {
			binding = fresh
		}
	}

	if len(c.Lines) == 0 {
		s.metrics.Rejected(string(o.Payment.Type))
		return nil, &cart.ValidationError{Code: cart.CodeEmptyCart, Message: "Sepet boş"}
	}
	if err := cart.ValidatePayment(o.Payment, c.Net, bound); err != nil {
		s.metrics.Rejected(string(o.Payment.Type))
		return nil, err
	}

	var customer *cart.Binding
	if bound {
		customer = &binding
	}
	req := cart.BuildSaleRequest(c, customer, o.Payment)
	req.CashierID = o.CashierID
	req.BranchID = o.BranchID

	p := &Pending{Request: req, done: make(chan struct{})}
	if bound && req.Breakdown.Credit.IsPositive() {
		p.OverLimit = binding.ExceedsLimit(req.Breakdown.Credit)
	}

	key := tabKey{store: store, tab: o.TabID}
	switch s.policy {
	case PolicyOptimistic:
		// Doğrulanan revizyon temizlenir; araya giren değişiklik ya da ikinci
		// ödeme isteği burada reddedilir.
		ok, err := store.ClearCartAt(o.TabID, c.Revision)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrCartChanged
		}
		p.Cleared = true
	case PolicyHoldUntilConfirmed:
		if !s.begin(key) {
			return nil, ErrCheckoutInProgress
		}
	}

	submitCtx := context.WithoutCancel(ctx)
	go s.submit(submitCtx, store, o.TabID, c.Revision, p)
	return p, nil
}

// begin sekmede onay bekleyen satış yoksa sekmeyi işaretler.
func (s *Service) begin(key tabKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return false
	}
	s.inflight[key] = struct{}{}
	return true
}

func (s *Service) finish(key tabKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, key)
}

// refreshCustomer bağlı müşteriyi kaynaktan tekrar okur. Okunamazsa eski
// bağlantı kullanılır.
func (s *Service) refreshCustomer(ctx context.Context, store *cart.Store, tabID int, customerID uint) (cart.Binding, bool) {
	if s.customers == nil {
		return cart.Binding{}, false
	}
	cu, err := s.customers.Lookup(ctx, customerID)
	if err != nil {
		s.logger.Warn("customer refresh failed, using cached balance",
			zap.Uint("customer_id", customerID), zap.Int("tab", tabID), zap.Error(err))
		return cart.Binding{}, false
	}
	b, ok, err := store.RefreshCustomer(tabID, cu)
	if err != nil || !ok {
		return cart.Binding{}, false
	}
	return b, true
}

func (s *Service) submit(ctx context.Context, store *cart.Store, tabID int, revision uint64, p *Pending) {
	defer close(p.done)
	if s.policy == PolicyHoldUntilConfirmed {
		defer s.finish(tabKey{store: store, tab: tabID})
	}

	submitCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	paymentType := string(p.Request.PaymentType)
	res, err := s.submitter.SubmitSale(submitCtx, p.Request)
	if err != nil {
		s.metrics.Failed(paymentType)
		s.logger.Error("sale submission failed",
			zap.Int("tab", tabID),
			zap.String("net", p.Request.Net.StringFixed(2)),
			zap.String("payment_type", paymentType),
			zap.Bool("cart_cleared", p.Cleared),
			zap.Error(err))
		// Temizlenen sepetteki seri numaraları artık hiçbir satıra ait değil
		if p.Cleared {
			s.releaseItems(ctx, p.Request.Items)
		}
		p.err = fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
		return
	}

	p.result = res
	s.metrics.Submitted(paymentType, p.Request.Net.InexactFloat64())
	s.logger.Info("sale submitted",
		zap.Uint("sale_id", res.SaleID),
		zap.Int("tab", tabID),
		zap.String("net", p.Request.Net.StringFixed(2)),
		zap.String("payment_type", paymentType))

	if p.Request.CustomerID != nil && p.Request.Breakdown.Credit.IsPositive() {
		s.refreshCustomer(ctx, store, tabID, *p.Request.CustomerID)
	}

	if s.policy == PolicyHoldUntilConfirmed {
		ok, err := store.ClearCartAt(tabID, revision)
		if err != nil || !ok {
			s.logger.Warn("cart changed while sale was pending, not cleared",
				zap.Int("tab", tabID), zap.Uint("sale_id", res.SaleID), zap.Error(err))
			return
		}
		p.clearedLate = true
	}
}

// IsValidation hata bir ödeme doğrulama reddi mi?
func IsValidation(err error) bool {
	var verr *cart.ValidationError
	return errors.As(err, &verr)
}
