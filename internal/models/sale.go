package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Sale struct {
	ID            uint            `gorm:"primaryKey"`
	BranchID      *uint           `gorm:"index"`
	CashierID     uint            `gorm:"index;not null"`
	CustomerID    *uint           `gorm:"index"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID"`
	Gross         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Net           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentType   string          `gorm:"size:20;not null"` // cash | card | credit | split
	PaidAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ChangeAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Items         []SaleItem      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Payments      []SalePayment   `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `gorm:"index"`
}

type SaleItem struct {
	ID             uint            `gorm:"primaryKey"`
	SaleID         uint            `gorm:"index;not null"`
	ProductID      uint            `gorm:"index;not null"`
	ProductName    string          `gorm:"size:150;not null"` // satış anındaki ad (denormalize)
	Quantity       decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	VATRate        decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	LineTotal      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SerialNumberID *uint
}

type SalePayment struct {
	ID     uint            `gorm:"primaryKey"`
	SaleID uint            `gorm:"index;not null"`
	Method string          `gorm:"size:20;not null"` // cash | card | credit
	Amount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}
