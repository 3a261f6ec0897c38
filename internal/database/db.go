package database

import (
	"fmt"

	"pos-backend/internal/config"
	"pos-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Init Postgres bağlantısını açar ve şemayı günceller.
func Init(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("veritabanına bağlanılamadı: %w", err)
	}

	err = db.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.ProductCategory{},
		&models.Product{},
		&models.ProductPrice{},
		&models.SerialNumber{},
		&models.Customer{},
		&models.CustomerTransaction{},
		&models.Sale{},
		&models.SaleItem{},
		&models.SalePayment{},
		&models.CashMovement{},
		&models.AuditLog{},
	)
	if err != nil {
		return nil, fmt.Errorf("AutoMigrate hatası: %w", err)
	}

	logger.Info("Veritabanı bağlantısı başarılı. Migration tamamlandı.")
	return db, nil
}
