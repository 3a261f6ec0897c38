package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentCash   PaymentType = "cash"   // nakit
	PaymentCard   PaymentType = "card"   // kredi kartı / pos
	PaymentCredit PaymentType = "credit" // veresiye (cari hesap)
	PaymentSplit  PaymentType = "split"  // parçalı
)

type ValidationCode string

const (
	CodeEmptyCart          ValidationCode = "empty_cart"
	CodeInsufficientAmount ValidationCode = "insufficient_amount"
	CodeCustomerRequired   ValidationCode = "customer_required"
	CodeSplitMismatch      ValidationCode = "split_mismatch"
	CodeNegativeAmount     ValidationCode = "negative_amount"
	CodeUnknownPaymentType ValidationCode = "unknown_payment_type"
)

// ValidationError ödeme doğrulaması reddi. Hiçbir durum değişikliği yapılmadan döner.
type ValidationError struct {
	Code    ValidationCode
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func reject(code ValidationCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Split parçalı ödemenin dağılımı.
type Split struct {
	Cash   decimal.Decimal `json:"cash"`
	Card   decimal.Decimal `json:"card"`
	Credit decimal.Decimal `json:"credit"`
}

func (s Split) Sum() decimal.Decimal {
	return s.Cash.Add(s.Card).Add(s.Credit)
}

// Payment kasiyerin seçtiği ödeme.
type Payment struct {
	Type  PaymentType     `json:"type"`
	Paid  decimal.Decimal `json:"paid_amount"`
	Split Split           `json:"split"`
}

// ComputeChange para üstü; hiçbir zaman negatif değildir.
func ComputeChange(paid, net decimal.Decimal) decimal.Decimal {
	change := paid.Sub(net)
	if change.IsNegative() {
		return decimal.Zero
	}
	return change
}

// ValidatePayment ödemeyi net tutara göre doğrular.
//
// cash/card: alınan >= net. credit: bağlı müşteri gerekir, netin tamamı
// veresiyeye yazılır. split: parçaların toplamı nete eşit olmalı, veresiye
// parçası varsa bağlı müşteri gerekir.
func ValidatePayment(p Payment, net decimal.Decimal, hasCustomer bool) error {
	switch p.Type {
	case PaymentCash, PaymentCard:
		if p.Paid.LessThan(net) {
			return reject(CodeInsufficientAmount, "Alınan tutar yetersiz: %s < %s", p.Paid.StringFixed(2), net.StringFixed(2))
		}
	case PaymentCredit:
		if !hasCustomer {
			return reject(CodeCustomerRequired, "Veresiye satış için müşteri seçilmeli")
		}
	case PaymentSplit:
		s := p.Split
		if s.Cash.IsNegative() || s.Card.IsNegative() || s.Credit.IsNegative() {
			return reject(CodeNegativeAmount, "Ödeme parçaları negatif olamaz")
		}
		if s.Credit.IsPositive() && !hasCustomer {
			return reject(CodeCustomerRequired, "Veresiye kısmı için müşteri seçilmeli")
		}
		if !s.Sum().Equal(net) {
			return reject(CodeSplitMismatch, "Parçalı ödeme toplamı (%s) net tutara (%s) eşit değil", s.Sum().StringFixed(2), net.StringFixed(2))
		}
	default:
		return reject(CodeUnknownPaymentType, "Geçersiz ödeme tipi: %q (cash|card|credit|split)", p.Type)
	}
	return nil
}

// Breakdown ödemenin kasaya/karta/veresiyeye dağılımı. Para üstü düşülmüş haldedir.
func (p Payment) Breakdown(net decimal.Decimal) Split {
	switch p.Type {
	case PaymentCash:
		return Split{Cash: net, Card: decimal.Zero, Credit: decimal.Zero}
	case PaymentCard:
		return Split{Cash: decimal.Zero, Card: net, Credit: decimal.Zero}
	case PaymentCredit:
		return Split{Cash: decimal.Zero, Card: decimal.Zero, Credit: net}
	default:
		return p.Split
	}
}
