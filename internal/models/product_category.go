package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductCategory ürün grubu. KDV oranı girilmeden eklenen ürünler
// kategorinin varsayılan oranını alır.
type ProductCategory struct {
	ID             uint            `gorm:"primaryKey"`
	Name           string          `gorm:"size:100;not null;unique"`
	DefaultVATRate decimal.Decimal `gorm:"type:decimal(5,2);not null;default:20"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
