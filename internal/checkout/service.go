package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pos-backend/internal/cart"
	"pos-backend/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrReservationFailed  = errors.New("seri numarası rezerve edilemedi")
	ErrSubmissionFailed   = errors.New("satış kaydedilemedi")
	ErrCartChanged        = errors.New("sepet ödeme sırasında değişti, tekrar deneyin")
	ErrCheckoutInProgress = errors.New("bu sekmede onay bekleyen bir satış var")
)

// SaleResult satış servisinin başarılı cevabı.
type SaleResult struct {
	SaleID uint `json:"sale_id"`
}

// SaleSubmitter satışı kalıcı hale getiren dış servis.
type SaleSubmitter interface {
	SubmitSale(ctx context.Context, req cart.SaleRequest) (SaleResult, error)
}

// SerialReserver seri numarası rezervasyonlarını yöneten stok servisi.
type SerialReserver interface {
	Reserve(ctx context.Context, serialID uint) error
	Release(ctx context.Context, serialID uint) error
}

// CustomerLookup müşterinin güncel bakiye ve limitini verir.
type CustomerLookup interface {
	Lookup(ctx context.Context, id uint) (cart.Customer, error)
}

// Policy satış gönderilirken sepetin ne zaman temizleneceği.
type Policy int

const (
	// PolicyOptimistic sepeti gönderimden önce temizler; hata olursa sepet geri
	// yüklenmez, sadece bildirilir.
	PolicyOptimistic Policy = iota
	// PolicyHoldUntilConfirmed sepeti satış onaylanana kadar tutar.
	PolicyHoldUntilConfirmed
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "optimistic":
		return PolicyOptimistic, nil
	case "hold":
		return PolicyHoldUntilConfirmed, nil
	default:
		return PolicyOptimistic, fmt.Errorf("bilinmeyen checkout politikası: %q (optimistic|hold)", s)
	}
}

func (p Policy) String() string {
	if p == PolicyHoldUntilConfirmed {
		return "hold"
	}
	return "optimistic"
}

type Service struct {
	submitter SaleSubmitter
	serials   SerialReserver
	customers CustomerLookup
	policy    Policy
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Checkout

	mu       sync.Mutex
	inflight map[tabKey]struct{}
}

type tabKey struct {
	store *cart.Store
	tab   int
}

type Option func(*Service)

func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithSubmitTimeout gönderim için üst süre. 0 süresiz demektir.
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Checkout) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCustomers ödeme öncesi ve veresiye satış sonrası bağlı müşterinin
// bakiyesini tazelemek için kullanılır.
func WithCustomers(c CustomerLookup) Option {
	return func(s *Service) { s.customers = c }
}

func New(submitter SaleSubmitter, serials SerialReserver, opts ...Option) *Service {
	s := &Service{
		submitter: submitter,
		serials:   serials,
		policy:    PolicyOptimistic,
		logger:    zap.NewNop(),
		inflight:  make(map[tabKey]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Policy() Policy {
	return s.policy
}

// AddSerialized önce seri numarasını rezerve eder, başarılıysa satırı ekler.
// Rezervasyon başarısızsa sepete hiçbir şey eklenmez.
func (s *Service) AddSerialized(ctx context.Context, store *cart.Store, tabID int, p cart.Product, serialID uint, serial string) (cart.Cart, error) {
	if _, err := store.Cart(tabID); err != nil {
		return cart.Cart{}, err
	}

	err := s.serials.Reserve(ctx, serialID)
	s.metrics.Reservation("reserve", err)
	if err != nil {
		s.logger.Warn("serial reservation failed",
			zap.Uint("serial_id", serialID), zap.Int("tab", tabID), zap.Error(err))
		return cart.Cart{}, fmt.Errorf("%w: %v", ErrReservationFailed, err)
	}

	c, err := store.AddSerializedLine(tabID, p, serialID, serial)
	if err != nil {
		s.release(ctx, serialID)
		return cart.Cart{}, err
	}
	return c, nil
}

// RemoveLine satırı siler; seri takipli satırın rezervasyonunu bırakır.
func (s *Service) RemoveLine(ctx context.Context, store *cart.Store, tabID int, lineID string) (cart.Cart, error) {
	c, removed, err := store.RemoveLine(tabID, lineID)
	if err != nil {
		return cart.Cart{}, err
	}
	if removed != nil {
		s.releaseLines(ctx, *removed)
	}
	return c, nil
}

// SetQuantity miktarı günceller; miktar <= 0 ile silinen seri satırın
// rezervasyonu bırakılır.
func (s *Service) SetQuantity(ctx context.Context, store *cart.Store, tabID int, lineID string, qty decimal.Decimal) (cart.Cart, error) {
	c, removed, err := store.SetQuantity(tabID, lineID, qty)
	if err != nil {
		return cart.Cart{}, err
	}
	if removed != nil {
		s.releaseLines(ctx, *removed)
	}
	return c, nil
}

// ClearCart sepeti boşaltır ve terk edilen tüm seri rezervasyonlarını bırakır.
func (s *Service) ClearCart(ctx context.Context, store *cart.Store, tabID int) (cart.Cart, error) {
	c, removed, err := store.ClearCart(tabID)
	if err != nil {
		return cart.Cart{}, err
	}
	s.releaseLines(ctx, removed...)
	return c, nil
}

func (s *Service) releaseItems(ctx context.Context, items []cart.SaleItem) {
	for _, it := range items {
		if it.SerialNumberID != nil {
			s.release(ctx, *it.SerialNumberID)
		}
	}
}

func (s *Service) releaseLines(ctx context.Context, lines ...cart.Line) {
	for _, l := range lines {
		if l.SerialNumberID != nil {
			s.release(ctx, *l.SerialNumberID)
		}
	}
}

func (s *Service) release(ctx context.Context, serialID uint) {
	err := s.serials.Release(ctx, serialID)
	s.metrics.Reservation("release", err)
	if err != nil {
		s.logger.Error("serial release failed, reservation leaked",
			zap.Uint("serial_id", serialID), zap.Error(err))
	}
}
