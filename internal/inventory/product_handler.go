package inventory

import (
	"errors"
	"sort"
	"strings"

	"pos-backend/internal/audit"
	"pos-backend/internal/cart"
	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PriceEntry struct {
	PriceList int             `json:"price_list"`
	Price     decimal.Decimal `json:"price"`
}

type ProductResponse struct {
	ID            uint            `json:"id"`
	Barcode       string          `json:"barcode"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	Category      string          `json:"category"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	IsSerialized  bool            `json:"is_serialized"`
	Prices        []PriceEntry    `json:"prices"`
}

type ProductRequest struct {
	Barcode       *string          `json:"barcode"`
	Name          *string          `json:"name"`
	Unit          *string          `json:"unit"`
	CategoryID    *uint            `json:"category_id"`
	VATRate       *decimal.Decimal `json:"vat_rate"`
	StockQuantity *decimal.Decimal `json:"stock_quantity"`
	IsSerialized  *bool            `json:"is_serialized"`
	Prices        []PriceEntry     `json:"prices"`
}

type SerialResponse struct {
	ID        uint                `json:"id"`
	ProductID uint                `json:"product_id"`
	Serial    string              `json:"serial"`
	Status    models.SerialStatus `json:"status"`
}

type AddSerialsRequest struct {
	Serials []string `json:"serials"`
}

func NewProductResponse(p cart.Product) ProductResponse {
	prices := make([]PriceEntry, 0, len(p.Prices))
	for list, price := range p.Prices {
		prices = append(prices, PriceEntry{PriceList: list, Price: price})
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].PriceList < prices[j].PriceList })
	return ProductResponse{
		ID:            p.ID,
		Barcode:       p.Barcode,
		Name:          p.Name,
		Unit:          p.Unit,
		Category:      p.Category,
		VATRate:       p.VATRate,
		StockQuantity: p.StockQuantity,
		IsSerialized:  p.IsSerialized,
		Prices:        prices,
	}
}

// GET /api/products?q=&limit=
func ListProductsHandler(catalog *Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		products, err := catalog.Search(c.UserContext(), c.Query("q"), c.QueryInt("limit", 100))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürünler listelenemedi")
		}
		res := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			res = append(res, NewProductResponse(p))
		}
		return c.JSON(res)
	}
}

// GET /api/products/barcode/:code
func GetProductByBarcodeHandler(catalog *Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := catalog.FindByBarcode(c.UserContext(), c.Params("code"))
		if errors.Is(err, ErrProductNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı, yeni ürün olarak ekleyebilirsiniz")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün aranamadı")
		}
		return c.JSON(NewProductResponse(p))
	}
}

// GET /api/products/:id/serials (sadece satılabilir olanlar)
func ListAvailableSerialsHandler(serials *Serials) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün ID")
		}
		rows, err := serials.Available(c.UserContext(), uint(id))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Seri numaraları listelenemedi")
		}
		res := make([]SerialResponse, 0, len(rows))
		for _, sn := range rows {
			res = append(res, SerialResponse{ID: sn.ID, ProductID: sn.ProductID, Serial: sn.Serial, Status: sn.Status})
		}
		return c.JSON(res)
	}
}

// POST /api/admin/products
func CreateProductHandler(db *gorm.DB, catalog *Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		p := models.Product{Unit: "adet"}
		if err := applyProductRequest(&p, body); err != nil {
			return err
		}
		// KDV girilmediyse kategorinin varsayılanı
		if body.VATRate == nil {
			rate, err := categoryVATRate(db, p.CategoryID)
			if err != nil {
				return err
			}
			p.VATRate = rate
		}
		if p.Barcode == "" || p.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Barkod ve ürün adı zorunlu")
		}
		if len(p.Prices) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "En az bir fiyat girilmeli")
		}

		var exists int64
		db.Model(&models.Product{}).Where("barcode = ?", p.Barcode).Count(&exists)
		if exists > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Bu barkod zaten kullanılıyor")
		}

		if err := db.Create(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün oluşturulamadı")
		}

		created, err := catalog.FindByID(c.UserContext(), p.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün okunamadı")
		}
		audit.Record(db, c, audit.LogOptions{
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: "Ürün oluşturuldu: " + p.Name,
			After:       NewProductResponse(created),
		})
		return c.Status(fiber.StatusCreated).JSON(NewProductResponse(created))
	}
}

// PUT /api/admin/products/:id
func UpdateProductHandler(db *gorm.DB, catalog *Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün ID")
		}

		var p models.Product
		if err := db.Preload("Prices").First(&p, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
		}
		before := NewProductResponse(ToCartProduct(p))

		var body ProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}
		newPrices := body.Prices
		body.Prices = nil
		if err := applyProductRequest(&p, body); err != nil {
			return err
		}
		if body.Barcode != nil {
			var exists int64
			db.Model(&models.Product{}).Where("barcode = ? AND id <> ?", p.Barcode, p.ID).Count(&exists)
			if exists > 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Bu barkod zaten kullanılıyor")
			}
		}
		prices, err := priceRows(newPrices)
		if err != nil {
			return err
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit("Prices", "Category").Save(&p).Error; err != nil {
				return err
			}
			return upsertPrices(tx, p.ID, prices)
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün güncellenemedi")
		}

		updated, err := catalog.FindByID(c.UserContext(), p.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün okunamadı")
		}
		audit.Record(db, c, audit.LogOptions{
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: "Ürün güncellendi: " + p.Name,
			Before:      before,
			After:       NewProductResponse(updated),
		})
		return c.JSON(NewProductResponse(updated))
	}
}

// DELETE /api/admin/products/:id
func DeleteProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün ID")
		}

		// Satışı olan ürün silinmez, geçmiş bozulur
		var sold int64
		db.Model(&models.SaleItem{}).Where("product_id = ?", id).Count(&sold)
		if sold > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Bu ürünün satışları var, silinemez")
		}

		var p models.Product
		if err := db.First(&p, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("product_id = ?", p.ID).Delete(&models.SerialNumber{}).Error; err != nil {
				return err
			}
			if err := tx.Where("product_id = ?", p.ID).Delete(&models.ProductPrice{}).Error; err != nil {
				return err
			}
			return tx.Delete(&p).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün silinemedi")
		}

		audit.Record(db, c, audit.LogOptions{
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: "Ürün silindi: " + p.Name,
			Before:      p,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/admin/products/:id/serials
func AddSerialsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ürün ID")
		}

		var p models.Product
		if err := db.First(&p, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
		}
		if !p.IsSerialized {
			return fiber.NewError(fiber.StatusBadRequest, "Ürün seri numarası takipli değil")
		}

		var body AddSerialsRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}
		serials := NormalizeSerials(body.Serials)
		if len(serials) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "En az bir seri numarası girilmeli")
		}

		rows := make([]models.SerialNumber, 0, len(serials))
		for _, s := range serials {
			rows = append(rows, models.SerialNumber{ProductID: p.ID, Serial: s, Status: models.SerialAvailable})
		}
		// Zaten kayıtlı seriler atlanır
		res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "serial"}}, DoNothing: true}).Create(&rows)
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Seri numaraları eklenemedi")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"product_id": p.ID,
			"added":      res.RowsAffected,
			"skipped":    int64(len(rows)) - res.RowsAffected,
		})
	}
}

// NormalizeSerials boşlukları kırpar, boş ve tekrar edenleri atar.
func NormalizeSerials(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func applyProductRequest(p *models.Product, body ProductRequest) error {
	if body.Barcode != nil {
		p.Barcode = strings.TrimSpace(*body.Barcode)
		if p.Barcode == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Barkod boş olamaz")
		}
	}
	if body.Name != nil {
		p.Name = strings.TrimSpace(*body.Name)
		if p.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Ürün adı boş olamaz")
		}
	}
	if body.Unit != nil {
		p.Unit = strings.TrimSpace(*body.Unit)
		if p.Unit == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Birim boş olamaz")
		}
	}
	if body.CategoryID != nil {
		p.CategoryID = body.CategoryID
	}
	if body.VATRate != nil {
		if err := checkVATRate(*body.VATRate); err != nil {
			return err
		}
		p.VATRate = *body.VATRate
	}
	if body.StockQuantity != nil {
		p.StockQuantity = *body.StockQuantity
	}
	if body.IsSerialized != nil {
		p.IsSerialized = *body.IsSerialized
	}
	if len(body.Prices) > 0 {
		prices, err := priceRows(body.Prices)
		if err != nil {
			return err
		}
		p.Prices = prices
	}
	return nil
}

func priceRows(entries []PriceEntry) ([]models.ProductPrice, error) {
	rows := make([]models.ProductPrice, 0, len(entries))
	seen := map[int]bool{}
	for _, e := range entries {
		if e.PriceList < 1 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Fiyat listesi 1 veya büyük olmalı")
		}
		if e.Price.IsNegative() {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Fiyat negatif olamaz")
		}
		if seen[e.PriceList] {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Aynı fiyat listesi iki kez girilmiş")
		}
		seen[e.PriceList] = true
		rows = append(rows, models.ProductPrice{PriceList: e.PriceList, Price: e.Price})
	}
	return rows, nil
}

func upsertPrices(tx *gorm.DB, productID uint, prices []models.ProductPrice) error {
	if len(prices) == 0 {
		return nil
	}
	for i := range prices {
		prices[i].ProductID = productID
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "price_list"}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "updated_at"}),
	}).Create(&prices).Error
}
