package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pos-backend/internal/cart"
	"pos-backend/internal/database"
	"pos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrProductNotFound = errors.New("ürün bulunamadı")

const defaultSearchLimit = 20

// Catalog kasanın ürün arama kaynağı.
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) query(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx).Preload("Prices").Preload("Category")
}

// FindByBarcode barkodla tam eşleşen ürünü döner, yoksa ErrProductNotFound.
func (c *Catalog) FindByBarcode(ctx context.Context, barcode string) (cart.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return cart.Product{}, ErrProductNotFound
	}
	var p models.Product
	err := c.query(ctx).Where("barcode = ?", barcode).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cart.Product{}, ErrProductNotFound
	}
	if err != nil {
		return cart.Product{}, fmt.Errorf("barkod araması: %w", err)
	}
	return ToCartProduct(p), nil
}

func (c *Catalog) FindByID(ctx context.Context, id uint) (cart.Product, error) {
	var p models.Product
	err := c.query(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cart.Product{}, ErrProductNotFound
	}
	if err != nil {
		return cart.Product{}, fmt.Errorf("ürün okunamadı: %w", err)
	}
	return ToCartProduct(p), nil
}

// Search ad veya barkodda geçen ürünleri ada göre sıralı döner.
func (c *Catalog) Search(ctx context.Context, q string, limit int) ([]cart.Product, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	dbq := c.query(ctx)
	if q = strings.TrimSpace(q); q != "" {
		like := database.ContainsPattern(q)
		dbq = dbq.Where("name ILIKE ? OR barcode ILIKE ?", like, like)
	}

	var rows []models.Product
	if err := dbq.Order("name asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ürün araması: %w", err)
	}
	res := make([]cart.Product, 0, len(rows))
	for _, p := range rows {
		res = append(res, ToCartProduct(p))
	}
	return res, nil
}

// ToCartProduct veritabanı ürününü sepet kopyasına çevirir.
func ToCartProduct(p models.Product) cart.Product {
	prices := make(map[int]decimal.Decimal, len(p.Prices))
	for _, pr := range p.Prices {
		prices[pr.PriceList] = pr.Price
	}
	category := ""
	if p.Category != nil {
		category = p.Category.Name
	}
	return cart.Product{
		ID:            p.ID,
		Barcode:       p.Barcode,
		Name:          p.Name,
		Unit:          p.Unit,
		Category:      category,
		Prices:        prices,
		VATRate:       p.VATRate,
		StockQuantity: p.StockQuantity,
		IsSerialized:  p.IsSerialized,
	}
}
