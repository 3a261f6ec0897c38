package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            uint             `gorm:"primaryKey"`
	Barcode       string           `gorm:"size:64;uniqueIndex;not null"`
	Name          string           `gorm:"size:150;not null;index"`
	Unit          string           `gorm:"size:20;not null;default:'adet'"` // adet, kg, lt vs.
	CategoryID    *uint            `gorm:"index"`
	Category      *ProductCategory `gorm:"foreignKey:CategoryID"`
	VATRate       decimal.Decimal  `gorm:"type:decimal(5,2);not null;default:20"`   // KDV yüzdesi
	StockQuantity decimal.Decimal  `gorm:"type:decimal(12,3);not null;default:0"`  // kg bazlı ürünler için ondalıklı
	IsSerialized  bool             `gorm:"not null;default:false"`                 // IMEI / seri no takipli
	Prices        []ProductPrice   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductPrice: Ürünün fiyat listesi bazlı satış fiyatı (1 = perakende, 2 = toptan ...)
type ProductPrice struct {
	ID        uint            `gorm:"primaryKey"`
	ProductID uint            `gorm:"not null;uniqueIndex:idx_product_price_list"`
	PriceList int             `gorm:"not null;uniqueIndex:idx_product_price_list"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
