package models

import "time"

type SerialStatus string

const (
	SerialAvailable SerialStatus = "available" // satılabilir
	SerialReserved  SerialStatus = "reserved"  // bir kasada sepette
	SerialSold      SerialStatus = "sold"      // satıldı
)

// SerialNumber: Seri numarası takipli ürünün tek bir fiziksel birimi (IMEI vb.)
type SerialNumber struct {
	ID         uint         `gorm:"primaryKey"`
	ProductID  uint         `gorm:"index;not null"`
	Product    Product      `gorm:"foreignKey:ProductID"`
	Serial     string       `gorm:"size:100;uniqueIndex;not null"`
	Status     SerialStatus `gorm:"size:20;not null;default:'available';index"`
	ReservedAt *time.Time
	SaleID     *uint `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
