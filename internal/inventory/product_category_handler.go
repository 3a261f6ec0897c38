package inventory

import (
	"errors"
	"strings"

	"pos-backend/internal/audit"
	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var defaultVATRate = decimal.NewFromInt(20)

type ProductCategoryResponse struct {
	ID             uint            `json:"id"`
	Name           string          `json:"name"`
	DefaultVATRate decimal.Decimal `json:"default_vat_rate"`
	ProductCount   int64           `json:"product_count"`
	CreatedAt      string          `json:"created_at"`
}

type ProductCategoryRequest struct {
	Name           *string          `json:"name"`
	DefaultVATRate *decimal.Decimal `json:"default_vat_rate"`
}

func newCategoryResponse(cat models.ProductCategory, productCount int64) ProductCategoryResponse {
	return ProductCategoryResponse{
		ID:             cat.ID,
		Name:           cat.Name,
		DefaultVATRate: cat.DefaultVATRate,
		ProductCount:   productCount,
		CreatedAt:      cat.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func checkVATRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return fiber.NewError(fiber.StatusBadRequest, "KDV oranı 0-100 arasında olmalı")
	}
	return nil
}

func applyCategoryRequest(cat *models.ProductCategory, body ProductCategoryRequest) error {
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Kategori adı boş olamaz")
		}
		cat.Name = name
	}
	if body.DefaultVATRate != nil {
		if err := checkVATRate(*body.DefaultVATRate); err != nil {
			return err
		}
		cat.DefaultVATRate = *body.DefaultVATRate
	}
	return nil
}

// categoryVATRate kategorinin varsayılan KDV oranı; kategori yoksa genel oran.
func categoryVATRate(db *gorm.DB, categoryID *uint) (decimal.Decimal, error) {
	if categoryID == nil {
		return defaultVATRate, nil
	}
	var cat models.ProductCategory
	if err := db.Select("id", "default_vat_rate").First(&cat, *categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, fiber.NewError(fiber.StatusBadRequest, "Kategori bulunamadı")
		}
		return decimal.Zero, err
	}
	return cat.DefaultVATRate, nil
}

// GET /api/product-categories
func ListProductCategoriesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var categories []models.ProductCategory
		if err := db.Order("name asc").Find(&categories).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kategoriler listelenemedi")
		}

		var counts []struct {
			CategoryID uint
			Total      int64
		}
		db.Model(&models.Product{}).
			Select("category_id, COUNT(*) AS total").
			Where("category_id IS NOT NULL").
			Group("category_id").
			Scan(&counts)
		byCategory := make(map[uint]int64, len(counts))
		for _, r := range counts {
			byCategory[r.CategoryID] = r.Total
		}

		res := make([]ProductCategoryResponse, 0, len(categories))
		for _, cat := range categories {
			res = append(res, newCategoryResponse(cat, byCategory[cat.ID]))
		}
		return c.JSON(res)
	}
}

// POST /api/admin/product-categories
func CreateProductCategoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProductCategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}

		cat := models.ProductCategory{DefaultVATRate: defaultVATRate}
		if err := applyCategoryRequest(&cat, body); err != nil {
			return err
		}
		if cat.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Kategori adı zorunlu")
		}

		if err := db.Create(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kategori oluşturulamadı")
		}
		audit.Record(db, c, audit.LogOptions{
			EntityType:  "product_category",
			EntityID:    cat.ID,
			Action:      models.AuditActionCreate,
			Description: "Kategori oluşturuldu: " + cat.Name,
			After:       newCategoryResponse(cat, 0),
		})
		return c.Status(fiber.StatusCreated).JSON(newCategoryResponse(cat, 0))
	}
}

// PUT /api/admin/product-categories/:id
// Varsayılan KDV değişikliği mevcut ürünlere yansımaz.
func UpdateProductCategoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cat models.ProductCategory
		if err := db.First(&cat, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kategori bulunamadı")
		}
		before := newCategoryResponse(cat, 0)

		var body ProductCategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}
		if err := applyCategoryRequest(&cat, body); err != nil {
			return err
		}

		if err := db.Save(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kategori güncellenemedi")
		}
		audit.Record(db, c, audit.LogOptions{
			EntityType:  "product_category",
			EntityID:    cat.ID,
			Action:      models.AuditActionUpdate,
			Description: "Kategori güncellendi: " + cat.Name,
			Before:      before,
			After:       newCategoryResponse(cat, 0),
		})
		return c.JSON(newCategoryResponse(cat, 0))
	}
}

// DELETE /api/admin/product-categories/:id
func DeleteProductCategoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cat models.ProductCategory
		if err := db.First(&cat, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kategori bulunamadı")
		}

		var count int64
		db.Model(&models.Product{}).Where("category_id = ?", cat.ID).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Bu kategoriye ait ürünler var, önce ürünleri taşıyın")
		}

		if err := db.Delete(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kategori silinemedi")
		}
		audit.Record(db, c, audit.LogOptions{
			EntityType:  "product_category",
			EntityID:    cat.ID,
			Action:      models.AuditActionDelete,
			Description: "Kategori silindi: " + cat.Name,
			Before:      newCategoryResponse(cat, 0),
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
