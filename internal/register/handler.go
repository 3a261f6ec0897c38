package register

import (
	"context"
	"errors"
	"strconv"

	"pos-backend/internal/auth"
	"pos-backend/internal/cart"
	"pos-backend/internal/checkout"
	"pos-backend/internal/customer"
	"pos-backend/internal/inventory"
	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductFinder interface {
	FindByBarcode(ctx context.Context, barcode string) (cart.Product, error)
	FindByID(ctx context.Context, id uint) (cart.Product, error)
}

type SerialFinder interface {
	Find(ctx context.Context, id uint) (models.SerialNumber, error)
}

type CustomerFinder interface {
	Lookup(ctx context.Context, id uint) (cart.Customer, error)
}

// Deps kasa handler'larının bağımlılıkları.
type Deps struct {
	Sessions  *Sessions
	Products  ProductFinder
	Serials   SerialFinder
	Customers CustomerFinder
	Checkout  *checkout.Service
	Logger    *zap.Logger
}

type TabResponse struct {
	cart.Cart
	Customer *cart.Binding  `json:"customer"`
	Taxes    []cart.TaxLine `json:"taxes"`
}

type TabsResponse struct {
	ActiveTab int           `json:"active_tab"`
	PriceList int           `json:"price_list"`
	Tabs      []TabResponse `json:"tabs"`
}

type ActiveTabRequest struct {
	TabID int `json:"tab_id"`
}

type PriceListRequest struct {
	PriceList int `json:"price_list"`
}

type AddLineRequest struct {
	Barcode        string           `json:"barcode"`
	ProductID      uint             `json:"product_id"`
	Quantity       *decimal.Decimal `json:"quantity"`
	SerialNumberID *uint            `json:"serial_number_id"`
}

type UpdateLineRequest struct {
	Quantity *decimal.Decimal `json:"quantity"`
	Discount *decimal.Decimal `json:"discount"`
}

type CustomerRequest struct {
	CustomerID uint `json:"customer_id"`
}

type PaymentPanelRequest struct {
	Type       cart.PaymentType `json:"type"`
	PaidAmount decimal.Decimal  `json:"paid_amount"`
}

type CheckoutRequest struct {
	Type       cart.PaymentType `json:"type"`
	PaidAmount decimal.Decimal  `json:"paid_amount"`
	Split      cart.Split       `json:"split"`
}

type CheckoutResponse struct {
	SaleID       uint            `json:"sale_id"`
	Net          decimal.Decimal `json:"net"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	ChangeAmount decimal.Decimal `json:"change_amount"`
	OverLimit    bool            `json:"over_limit"`
	CartCleared  bool            `json:"cart_cleared"`
	Tab          TabResponse     `json:"tab"`
}

func (d *Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// store isteği yapan kasiyerin kasası.
func (d *Deps) store(c *fiber.Ctx) (*cart.Store, error) {
	id, err := auth.CurrentIdentity(c)
	if err != nil {
		return nil, err
	}
	return d.Sessions.For(id.UserID), nil
}

func tabParam(c *fiber.Ctx) (int, error) {
	tab, err := strconv.Atoi(c.Params("tab"))
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz sekme")
	}
	return tab, nil
}

func tabResponse(st *cart.Store, tabID int) (TabResponse, error) {
	c, err := st.Cart(tabID)
	if err != nil {
		return TabResponse{}, err
	}
	resp := TabResponse{Cart: c, Taxes: cart.TaxBreakdown(c.Lines)}
	if b, ok, err := st.Customer(tabID); err == nil && ok {
		resp.Customer = &b
	}
	return resp, nil
}

// validationError doğrulama reddini kodla birlikte 422 olarak yazar.
func validationError(c *fiber.Ctx, code cart.ValidationCode, msg string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"error": msg,
		"code":  code,
	})
}

// mapError alan hatalarını HTTP durumuna çevirir.
func mapError(err error) error {
	switch {
	case errors.Is(err, cart.ErrUnknownTab):
		return fiber.NewError(fiber.StatusNotFound, "Sekme bulunamadı")
	case errors.Is(err, checkout.ErrReservationFailed):
		return fiber.NewError(fiber.StatusConflict, "Seri numarası başka bir satışta, seçilemedi")
	case errors.Is(err, checkout.ErrCartChanged), errors.Is(err, checkout.ErrCheckoutInProgress):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, inventory.ErrSerialNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Seri numarası bulunamadı")
	case errors.Is(err, customer.ErrCustomerNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Müşteri bulunamadı, yeni müşteri olarak ekleyebilirsiniz")
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	return err
}

// reply mutasyon sonrası sekmenin son halini döner.
func reply(c *fiber.Ctx, st *cart.Store, tabID int) error {
	resp, err := tabResponse(st, tabID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(resp)
}

// GET /api/register/tabs
func ListTabsHandler(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := d.store(c)
		if err != nil {
			return err
		}
		resp := TabsResponse{
			ActiveTab: st.ActiveTab(),
			PriceList: st.PriceList(),
			Tabs:      make([]TabResponse, 0, st.TabCount()),
		}
		for _, ct := range st.Carts() {
			tr, err := tabResponse(st, ct.TabID)
			if err != nil {
				return mapError(err)
			}
			resp.Tabs = append(resp.Tabs, tr)
		}
		return c.JSON(resp)
	}
}

// PUT /api/register/active-tab
func SetActiveTabHandler(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := d.store(c)
		if err != nil {
			return err
		}
		var body ActiveTabRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if err := st.SetActiveTab(body.TabID); err != nil {
			return mapError(err)
		}
		return reply(c, st, body.TabID)
	}
}

// PUT /api/register/price-list (sadece yeni eklenen satırları etkiler)
func SetPriceListHandler(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := d.store(c)
		if err != nil {
			return err
		}
		var body PriceListRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.PriceList < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Fiyat listesi 1 veya büyük olmalı")
		}
		st.SetPriceList(body.PriceList)
		return c.JSON(fiber.Map{"price_list": st.PriceList()})
	}
}

// GET /api/register/tabs/:tab
func GetTabHandler(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := d.store(c)
		if err != nil {
			return err
		}
		tab, err := tabParam(c)
		if err != nil {
			return err
		}
		return reply(c, st, tab)
	}
}

// POST /api/register/tabs/:tab/lines
func AddLineHandler(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := d.store(c)
		if err != nil {
			return err
		}
		tab, err := tabParam(c)
		if err != nil {
			return err
		}
		var body AddLineRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		ctx := c.UserContext()
		var p cart.Product
		switch {
		case body.Barcode != "":
			p, err = d.Products.FindByBarcode(ctx, body.Barcode)
		case body.ProductID != 0:
			p, err = d.Products.FindByID(ctx, body.ProductID)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Barkod veya ürün seçilmeli")
		}
		if errors.Is(err, inventory.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":          "Ürün bulunamadı, yeni ürün olarak ekleyebilirsiniz",
				"barcode":        body.Barcode,
				"create_product": true,
			})
		}
		if err != nil {
			d.logger().Error("product lookup failed", zap.String("barcode", body.Barcode), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün aranamadı")
		}

		if p.IsSerialized {
			if body.SerialNumberID == nil {
				return validationError(c, "serial_required", "Seri numarası takipli ürün, seri numarası seçilmeli")
			}
			sn, err := d.Serials.Find(ctx, *body.SerialNumberID)
			if err != nil {
				return mapError(err)
			}
			if sn.ProductID != p.ID {
				return validationError(c, "serial_mismatch", "Seri numarası bu ürüne ait değil")
			}
			if _, err := d.Checkout.AddSerialized(ctx, st, tab, p, sn.ID, sn.Serial); err != nil {
				return mapError(err)
			}
			return reply(c, st, tab)
		}

		qty := decimal.NewFromInt(1)
		if body.Quantity != nil {
			qty = *body.Quantity
		}
		if !qty.IsPositive() {
			return validationError(c, "invalid_quantity", "Miktar sıfırdan büyük olmalı")
		}
		if _, err := st.AddLine(tab, p, qty); err != nil {
			return mapError(err)
		}
		return reply(c, st, tab)
	}
}

// PATCH /api/register/tabs/:tab/lines/:line
func UpdateLineHandler(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := d.store(c)
		if err != nil {
			return err
		}
		tab, err := tabParam(c)
		if err != nil {
			return err
		}
		var body UpdateLineRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.Quantity == nil && body.Discount == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Miktar veya indirim girilmeli")
		}

		lineID := c.Params("line")
		if body.Quantity != nil {
			if _, err := d.Checkout.SetQuantity(c.UserContext(), st, tab, lineID, *body.Quantity); err != nil {
				return mapError(err)
			}
		}
		if body.Discount != nil {
			if _, err := st.SetDiscount(tab, lineID, *body.Discount); err != nil {
				return mapError(err)
			}
		}
		return reply(c, st, tab)
	}
}

// DELETE /api/register/tabs/:tab/lines/:line
func RemoveLineHandler(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := d.store(c)
		if err != nil {
			return err
		}
		tab, err := tabParam(c)
		if err != nil {
			return err
		}
		if _, err := d.Checkout.RemoveLine(c.UserContext(), st, tab, c.Params("line")); err != nil {
			return mapError(err)
		}
		return reply(c, st, tab)
	}
}

// POST /api/register/tabs/:tab/clear
func ClearTabHandler(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := d.store(c)
		if err != nil {
			return err
		}
		tab, err := tabParam(c)
		if err != nil {
			return err
		}
		if _, err := d.Checkout.ClearCart(c.UserContext(), st, tab); err != nil {
			return mapError(err)
		}
		return reply(c, st, tab)
	}
}

// POST /api/register/tabs/:tab/recompute
func RecomputeHandler(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := d.store(c)
		if err != nil {
			return err
		}
		tab, err := tabParam(c)
		if err != nil {
			return err
		}
		if _, err := st.RecomputeTotals(tab); err != nil {
			return mapError(err)
		}
		return reply(c, st, tab)
	}
}

// PUT /api/register/tabs/:tab/customer
func SelectCustomerHandler(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := d.store(c)
		if err != nil {
			return err
		}
		tab, err := tabParam(c)
		if err != nil {
			return err
		}
		var body CustomerRequest
		if err := c.BodyParser(&body); err != nil || body.CustomerID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Müşteri seçilmeli")
		}
		if _, err := st.Cart(tab); err != nil {
			return mapError(err)
		}

		cu, err := d.Customers.Lookup(c.UserContext(), body.CustomerID)
		if err != nil {
			return mapError(err)
		}
		if _, err := st.SelectCustomer(tab, cu); err != nil {
			return mapError(err)
		}
		return reply(c, st, tab)
	}
}

// DELETE /api/register/tabs/:tab/customer
func ClearCustomerHandler(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := d.store(c)
		if err != nil {
			return err
		}
		tab, err := tabParam(c)
		if err != nil {
			return err
		}
		if err := st.ClearCustomer(tab); err != nil {
			return mapError(err)
		}
		return reply(c, st, tab)
	}
}

// PUT /api/register/tabs/:tab/payment (ödeme paneli: alınan tutar ve para üstü)
func PaymentPanelHandler(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := d.store(c)
		if err != nil {
			return err
		}
		tab, err := tabParam(c)
		if err != nil {
			return err
		}
		var body PaymentPanelRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.PaidAmount.IsNegative() {
			return validationError(c, cart.CodeNegativeAmount, "Alınan tutar negatif olamaz")
		}
		if _, err := st.SetPaidAmount(tab, body.Type, body.PaidAmount); err != nil {
			return mapError(err)
		}
		return reply(c, st, tab)
	}
}

// POST /api/register/tabs/:tab/checkout
func CheckoutHandler(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		st := d.Sessions.For(id.UserID)
		tab, err := tabParam(c)
		if err != nil {
			return err
		}
		var body CheckoutRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		ctx := c.UserContext()
		pending, err := d.Checkout.Checkout(ctx, st, checkout.Order{
			TabID:     tab,
			Payment:   cart.Payment{Type: body.Type, Paid: body.PaidAmount, Split: body.Split},
			CashierID: id.UserID,
			BranchID:  id.BranchID,
		})
		var verr *cart.ValidationError
		if errors.As(err, &verr) {
			return validationError(c, verr.Code, verr.Message)
		}
		if err != nil {
			return mapError(err)
		}

		res, err := pending.Wait(ctx)
		if err != nil && !errors.Is(err, checkout.ErrSubmissionFailed) {
			// İstemci ayrıldı, gönderim arka planda sürüyor
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"message":      "Satış arka planda kaydediliyor",
				"cart_cleared": pending.CartCleared(),
			})
		}
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":        "Satış kaydedilemedi: " + err.Error(),
				"cart_cleared": pending.CartCleared(),
			})
		}

		tr, err := tabResponse(st, tab)
		if err != nil {
			return mapError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(CheckoutResponse{
			SaleID:       res.SaleID,
			Net:          pending.Request.Net,
			PaidAmount:   pending.Request.PaidAmount,
			ChangeAmount: pending.Request.ChangeAmount,
			OverLimit:    pending.OverLimit,
			CartCleared:  pending.CartCleared(),
			Tab:          tr,
		})
	}
}
