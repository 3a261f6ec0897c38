package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"size:150;not null;index"`
	Phone       string          `gorm:"size:30;index"`
	Email       string          `gorm:"size:100"`
	Address     string          `gorm:"size:255"`
	Balance     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"` // borç bakiyesi (pozitif = müşteri borçlu)
	CreditLimit decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"` // veresiye limiti
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CustomerTransactionType string

const (
	CustomerTxSaleCredit CustomerTransactionType = "sale_credit" // veresiye satış
	CustomerTxPayment    CustomerTransactionType = "payment"     // tahsilat
	CustomerTxAdjustment CustomerTransactionType = "adjustment"  // düzeltme
)

// CustomerTransaction: Cari hesap hareketi. Amount pozitifse borç artar, negatifse azalır.
type CustomerTransaction struct {
	ID          uint                    `gorm:"primaryKey"`
	CustomerID  uint                    `gorm:"index;not null"`
	SaleID      *uint                   `gorm:"index"`
	Type        CustomerTransactionType `gorm:"size:20;not null"`
	Amount      decimal.Decimal         `gorm:"type:decimal(12,2);not null"`
	Description string                  `gorm:"size:255"`
	Date        time.Time               `gorm:"index;not null"`
	CreatedAt   time.Time
}
