package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos-backend/internal/cart"
	"pos-backend/internal/database"
	"pos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCustomerNotFound = errors.New("müşteri bulunamadı")
	ErrInvalidAmount    = errors.New("tutar sıfırdan büyük olmalı")
)

// Directory müşteri kartları ve cari hesap hareketleri.
type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// Search ad veya telefonda geçen müşteriler.
func (d *Directory) Search(ctx context.Context, q string, limit int) ([]models.Customer, error) {
	if limit <= 0 {
		limit = 20
	}
	dbq := d.db.WithContext(ctx)
	if q = strings.TrimSpace(q); q != "" {
		like := database.ContainsPattern(q)
		dbq = dbq.Where("name ILIKE ? OR phone ILIKE ?", like, like)
	}
	var rows []models.Customer
	if err := dbq.Order("name asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("müşteri araması: %w", err)
	}
	return rows, nil
}

func (d *Directory) Get(ctx context.Context, id uint) (models.Customer, error) {
	var cu models.Customer
	err := d.db.WithContext(ctx).First(&cu, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cu, ErrCustomerNotFound
	}
	if err != nil {
		return cu, fmt.Errorf("müşteri okunamadı: %w", err)
	}
	return cu, nil
}

// Lookup müşteriyi sepete bağlanacak haliyle döner.
func (d *Directory) Lookup(ctx context.Context, id uint) (cart.Customer, error) {
	cu, err := d.Get(ctx, id)
	if err != nil {
		return cart.Customer{}, err
	}
	return ToCartCustomer(cu), nil
}

func ToCartCustomer(cu models.Customer) cart.Customer {
	return cart.Customer{
		ID:          cu.ID,
		Name:        cu.Name,
		Phone:       cu.Phone,
		Balance:     cu.Balance,
		CreditLimit: cu.CreditLimit,
	}
}

func (d *Directory) Create(ctx context.Context, cu *models.Customer) error {
	if err := d.db.WithContext(ctx).Create(cu).Error; err != nil {
		return fmt.Errorf("müşteri oluşturulamadı: %w", err)
	}
	return nil
}

// Update bakiye dışındaki alanları kaydeder; bakiye sadece hareketlerle değişir.
func (d *Directory) Update(ctx context.Context, cu *models.Customer) error {
	err := d.db.WithContext(ctx).Model(cu).
		Select("name", "phone", "email", "address", "credit_limit").
		Updates(cu).Error
	if err != nil {
		return fmt.Errorf("müşteri güncellenemedi: %w", err)
	}
	return nil
}

// LedgerEntry cari hareket ve o hareketten sonraki bakiye.
type LedgerEntry struct {
	ID          uint                           `json:"id"`
	Date        time.Time                      `json:"date"`
	Type        models.CustomerTransactionType `json:"type"`
	SaleID      *uint                          `json:"sale_id"`
	Description string                         `json:"description"`
	Amount      decimal.Decimal                `json:"amount"`
	Balance     decimal.Decimal                `json:"balance"`
}

// RunningBalance tarih sırasındaki hareketlere kümülatif bakiye ekler.
func RunningBalance(txs []models.CustomerTransaction) []LedgerEntry {
	out := make([]LedgerEntry, 0, len(txs))
	balance := decimal.Zero
	for _, tx := range txs {
		balance = balance.Add(tx.Amount)
		out = append(out, LedgerEntry{
			ID:          tx.ID,
			Date:        tx.Date,
			Type:        tx.Type,
			SaleID:      tx.SaleID,
			Description: tx.Description,
			Amount:      tx.Amount,
			Balance:     balance,
		})
	}
	return out
}

// Ledger müşterinin tüm hareketlerini eskiden yeniye bakiye ile döner.
func (d *Directory) Ledger(ctx context.Context, id uint) ([]LedgerEntry, error) {
	if _, err := d.Get(ctx, id); err != nil {
		return nil, err
	}
	var txs []models.CustomerTransaction
	err := d.db.WithContext(ctx).
		Where("customer_id = ?", id).
		Order("date asc, id asc").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("cari hareketler okunamadı: %w", err)
	}
	return RunningBalance(txs), nil
}

// RecordPayment tahsilat kaydeder ve bakiyeyi düşer.
func (d *Directory) RecordPayment(ctx context.Context, id uint, amount decimal.Decimal, description string) (models.Customer, error) {
	if !amount.IsPositive() {
		return models.Customer{}, ErrInvalidAmount
	}
	if description == "" {
		description = "Tahsilat"
	}

	var cu models.Customer
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cu, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}
		entry := models.CustomerTransaction{
			CustomerID:  cu.ID,
			Type:        models.CustomerTxPayment,
			Amount:      amount.Neg(),
			Description: description,
			Date:        time.Now(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		cu.Balance = cu.Balance.Sub(amount)
		return tx.Model(&cu).Update("balance", cu.Balance).Error
	})
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return cu, err
		}
		return cu, fmt.Errorf("tahsilat kaydedilemedi: %w", err)
	}
	return cu, nil
}
