package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrSerialNotFound    = errors.New("seri numarası bulunamadı")
	ErrSerialUnavailable = errors.New("seri numarası satışa uygun değil")
)

// Serials seri numarası rezervasyonları. Durum geçişleri koşullu UPDATE ile
// yapılır, aynı seriyi iki kasa aynı anda alamaz.
type Serials struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSerials(db *gorm.DB) *Serials {
	return &Serials{db: db, now: time.Now}
}

// Available ürünün satılabilir seri numaraları.
func (s *Serials) Available(ctx context.Context, productID uint) ([]models.SerialNumber, error) {
	var rows []models.SerialNumber
	err := s.db.WithContext(ctx).
		Where("product_id = ? AND status = ?", productID, models.SerialAvailable).
		Order("serial asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("seri numaraları okunamadı: %w", err)
	}
	return rows, nil
}

func (s *Serials) Find(ctx context.Context, id uint) (models.SerialNumber, error) {
	var sn models.SerialNumber
	err := s.db.WithContext(ctx).First(&sn, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sn, ErrSerialNotFound
	}
	if err != nil {
		return sn, fmt.Errorf("seri numarası okunamadı: %w", err)
	}
	return sn, nil
}

// Reserve available -> reserved.
func (s *Serials) Reserve(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.SerialNumber{}).
		Where("id = ? AND status = ?", id, models.SerialAvailable).
		Updates(map[string]interface{}{
			"status":      models.SerialReserved,
			"reserved_at": s.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("rezervasyon: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSerialUnavailable
	}
	return nil
}

// Release reserved -> available. Rezerve olmayan seri için sessizce geçer.
func (s *Serials) Release(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Model(&models.SerialNumber{}).
		Where("id = ? AND status = ?", id, models.SerialReserved).
		Updates(map[string]interface{}{
			"status":      models.SerialAvailable,
			"reserved_at": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("rezervasyon bırakma: %w", err)
	}
	return nil
}

// ReleaseStale verilen andan önce alınmış rezervasyonları bırakır. Sepetler
// bellekte tutulduğu için sunucu açılışında önceki sürecin rezervasyonları
// bununla geri alınır.
func (s *Serials) ReleaseStale(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.SerialNumber{}).
		Where("status = ? AND (reserved_at IS NULL OR reserved_at < ?)", models.SerialReserved, before).
		Updates(map[string]interface{}{
			"status":      models.SerialAvailable,
			"reserved_at": nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("eski rezervasyonlar bırakılamadı: %w", res.Error)
	}
	return res.RowsAffected, nil
}
