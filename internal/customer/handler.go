package customer

import (
	"errors"
	"strings"

	"pos-backend/internal/audit"
	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CustomerResponse struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Email       string          `json:"email"`
	Address     string          `json:"address"`
	Balance     decimal.Decimal `json:"balance"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	Remaining   decimal.Decimal `json:"remaining_credit"`
}

type CustomerRequest struct {
	Name        *string          `json:"name"`
	Phone       *string          `json:"phone"`
	Email       *string          `json:"email"`
	Address     *string          `json:"address"`
	CreditLimit *decimal.Decimal `json:"credit_limit"`
}

type PaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func NewCustomerResponse(cu models.Customer) CustomerResponse {
	return CustomerResponse{
		ID:          cu.ID,
		Name:        cu.Name,
		Phone:       cu.Phone,
		Email:       cu.Email,
		Address:     cu.Address,
		Balance:     cu.Balance,
		CreditLimit: cu.CreditLimit,
		Remaining:   cu.CreditLimit.Sub(cu.Balance),
	}
}

func applyCustomerRequest(cu *models.Customer, body CustomerRequest) error {
	if body.Name != nil {
		cu.Name = strings.TrimSpace(*body.Name)
		if cu.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Müşteri adı boş olamaz")
		}
	}
	if body.Phone != nil {
		cu.Phone = strings.TrimSpace(*body.Phone)
	}
	if body.Email != nil {
		cu.Email = strings.TrimSpace(*body.Email)
	}
	if body.Address != nil {
		cu.Address = strings.TrimSpace(*body.Address)
	}
	if body.CreditLimit != nil {
		if body.CreditLimit.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Veresiye limiti negatif olamaz")
		}
		cu.CreditLimit = *body.CreditLimit
	}
	return nil
}

func customerID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz müşteri ID")
	}
	return uint(id), nil
}

func lookupError(err error) error {
	if errors.Is(err, ErrCustomerNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Müşteri bulunamadı")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "Müşteri okunamadı")
}

// GET /api/customers?q=&limit=
func ListCustomersHandler(dir *Directory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := dir.Search(c.UserContext(), c.Query("q"), c.QueryInt("limit", 50))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteriler listelenemedi")
		}
		res := make([]CustomerResponse, 0, len(rows))
		for _, cu := range rows {
			res = append(res, NewCustomerResponse(cu))
		}
		return c.JSON(res)
	}
}

// GET /api/customers/:id
func GetCustomerHandler(dir *Directory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := customerID(c)
		if err != nil {
			return err
		}
		cu, err := dir.Get(c.UserContext(), id)
		if err != nil {
			return lookupError(err)
		}
		return c.JSON(NewCustomerResponse(cu))
	}
}

// POST /api/customers
func CreateCustomerHandler(db *gorm.DB, dir *Directory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}
		var cu models.Customer
		if err := applyCustomerRequest(&cu, body); err != nil {
			return err
		}
		if cu.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Müşteri adı zorunlu")
		}
		if err := dir.Create(c.UserContext(), &cu); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteri oluşturulamadı")
		}

		audit.Record(db, c, audit.LogOptions{
			EntityType:  "customer",
			EntityID:    cu.ID,
			Action:      models.AuditActionCreate,
			Description: "Müşteri oluşturuldu: " + cu.Name,
			After:       NewCustomerResponse(cu),
		})
		return c.Status(fiber.StatusCreated).JSON(NewCustomerResponse(cu))
	}
}

// PUT /api/customers/:id
func UpdateCustomerHandler(db *gorm.DB, dir *Directory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := customerID(c)
		if err != nil {
			return err
		}
		cu, err := dir.Get(c.UserContext(), id)
		if err != nil {
			return lookupError(err)
		}
		before := NewCustomerResponse(cu)

		var body CustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}
		if err := applyCustomerRequest(&cu, body); err != nil {
			return err
		}
		if err := dir.Update(c.UserContext(), &cu); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteri güncellenemedi")
		}

		audit.Record(db, c, audit.LogOptions{
			EntityType:  "customer",
			EntityID:    cu.ID,
			Action:      models.AuditActionUpdate,
			Description: "Müşteri güncellendi: " + cu.Name,
			Before:      before,
			After:       NewCustomerResponse(cu),
		})
		return c.JSON(NewCustomerResponse(cu))
	}
}

// GET /api/customers/:id/ledger
func LedgerHandler(dir *Directory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := customerID(c)
		if err != nil {
			return err
		}
		entries, err := dir.Ledger(c.UserContext(), id)
		if err != nil {
			return lookupError(err)
		}
		return c.JSON(entries)
	}
}

// POST /api/customers/:id/payments
func RecordPaymentHandler(db *gorm.DB, dir *Directory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := customerID(c)
		if err != nil {
			return err
		}
		var body PaymentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri")
		}
		if !body.Amount.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "Tutar sıfırdan büyük olmalı")
		}

		cu, err := dir.RecordPayment(c.UserContext(), id, body.Amount, strings.TrimSpace(body.Description))
		if err != nil {
			return lookupError(err)
		}

		audit.Record(db, c, audit.LogOptions{
			EntityType:  "customer",
			EntityID:    cu.ID,
			Action:      models.AuditActionUpdate,
			Description: "Tahsilat: " + body.Amount.StringFixed(2),
			After:       NewCustomerResponse(cu),
		})
		return c.Status(fiber.StatusCreated).JSON(NewCustomerResponse(cu))
	}
}
