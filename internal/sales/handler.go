package sales

import (
	"errors"
	"time"

	"pos-backend/internal/auth"
	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type SaleItemResponse struct {
	ProductID      uint            `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	VATRate        decimal.Decimal `json:"vat_rate"`
	LineTotal      decimal.Decimal `json:"line_total"`
	SerialNumberID *uint           `json:"serial_number_id,omitempty"`
}

type SalePaymentResponse struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type SaleResponse struct {
	ID            uint                  `json:"id"`
	CreatedAt     string                `json:"created_at"`
	BranchID      *uint                 `json:"branch_id"`
	CashierID     uint                  `json:"cashier_id"`
	CustomerID    *uint                 `json:"customer_id"`
	CustomerName  string                `json:"customer_name,omitempty"`
	Gross         decimal.Decimal       `json:"gross"`
	DiscountTotal decimal.Decimal       `json:"discount_total"`
	Net           decimal.Decimal       `json:"net"`
	PaymentType   string                `json:"payment_type"`
	PaidAmount    decimal.Decimal       `json:"paid_amount"`
	ChangeAmount  decimal.Decimal       `json:"change_amount"`
	Items         []SaleItemResponse    `json:"items,omitempty"`
	Payments      []SalePaymentResponse `json:"payments,omitempty"`
}

func NewSaleResponse(s models.Sale) SaleResponse {
	resp := SaleResponse{
		ID:            s.ID,
		CreatedAt:     s.CreatedAt.Format("2006-01-02 15:04:05"),
		BranchID:      s.BranchID,
		CashierID:     s.CashierID,
		CustomerID:    s.CustomerID,
		Gross:         s.Gross,
		DiscountTotal: s.DiscountTotal,
		Net:           s.Net,
		PaymentType:   s.PaymentType,
		PaidAmount:    s.PaidAmount,
		ChangeAmount:  s.ChangeAmount,
	}
	if s.Customer != nil {
		resp.CustomerName = s.Customer.Name
	}
	for _, it := range s.Items {
		resp.Items = append(resp.Items, SaleItemResponse{
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			DiscountAmount: it.DiscountAmount,
			VATRate:        it.VATRate,
			LineTotal:      it.LineTotal,
			SerialNumberID: it.SerialNumberID,
		})
	}
	for _, p := range s.Payments {
		resp.Payments = append(resp.Payments, SalePaymentResponse{Method: p.Method, Amount: p.Amount})
	}
	return resp
}

// ParseFilter query parametrelerinden filtre kurar. Kasiyer sadece kendi
// satışlarını, şube yöneticisi kendi şubesini görür.
func ParseFilter(c *fiber.Ctx, id auth.Identity) (Filter, error) {
	f := Filter{Limit: c.QueryInt("limit", 100)}

	switch id.Role {
	case models.RoleCashier:
		uid := id.UserID
		f.CashierID = &uid
		f.BranchID = id.BranchID
	case models.RoleBranchAdmin:
		f.BranchID = id.BranchID
	default:
		if v := c.QueryInt("branch_id", 0); v > 0 {
			bid := uint(v)
			f.BranchID = &bid
		}
	}
	if f.CashierID == nil {
		if v := c.QueryInt("cashier_id", 0); v > 0 {
			cid := uint(v)
			f.CashierID = &cid
		}
	}
	if v := c.QueryInt("customer_id", 0); v > 0 {
		cu := uint(v)
		f.CustomerID = &cu
	}

	if s := c.Query("from"); s != "" {
		from, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			return f, fiber.NewError(fiber.StatusBadRequest, "from tarihi geçersiz, 'YYYY-MM-DD' olmalı")
		}
		f.From = &from
	}
	if s := c.Query("to"); s != "" {
		to, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			return f, fiber.NewError(fiber.StatusBadRequest, "to tarihi geçersiz, 'YYYY-MM-DD' olmalı")
		}
		// to günü dahil
		end := to.AddDate(0, 0, 1)
		f.To = &end
	}
	return f, nil
}

// GET /api/sales?from=2026-01-01&to=2026-01-31&customer_id=3
func ListSalesHandler(repo *Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		f, err := ParseFilter(c, id)
		if err != nil {
			return err
		}
		rows, err := repo.List(c.UserContext(), f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Satışlar listelenemedi")
		}
		res := make([]SaleResponse, 0, len(rows))
		for _, s := range rows {
			res = append(res, NewSaleResponse(s))
		}
		return c.JSON(res)
	}
}

// GET /api/sales/:id
func GetSaleHandler(repo *Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		saleID, err := c.ParamsInt("id")
		if err != nil || saleID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz satış ID")
		}

		s, err := repo.Get(c.UserContext(), uint(saleID))
		if errors.Is(err, ErrSaleNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Satış bulunamadı")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Satış okunamadı")
		}
		if !canSee(id, s) {
			return fiber.NewError(fiber.StatusForbidden, "Bu satışı görme yetkiniz yok")
		}
		return c.JSON(NewSaleResponse(s))
	}
}

func canSee(id auth.Identity, s models.Sale) bool {
	switch id.Role {
	case models.RoleSuperAdmin:
		return true
	case models.RoleBranchAdmin:
		return id.BranchID != nil && s.BranchID != nil && *id.BranchID == *s.BranchID
	default:
		return s.CashierID == id.UserID
	}
}
