package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CashMethod string

const (
	CashMethodCash CashMethod = "cash" // nakit
	CashMethodCard CashMethod = "card" // pos / kredi kartı
)

type CashDirection string

const (
	CashIn  CashDirection = "in"
	CashOut CashDirection = "out"
)

// CashMovement: Kasa hareketi. Satışlardan otomatik, para giriş/çıkışlarında elle oluşur.
type CashMovement struct {
	ID          uint            `gorm:"primaryKey"`
	BranchID    *uint           `gorm:"index"`
	SaleID      *uint           `gorm:"index"`
	UserID      uint            `gorm:"index;not null"`
	Date        time.Time       `gorm:"index;not null"`
	Method      CashMethod      `gorm:"size:20;not null"`
	Direction   CashDirection   `gorm:"size:10;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description string          `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
