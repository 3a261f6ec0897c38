package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-backend/internal/audit"
	"pos-backend/internal/cart"
	"pos-backend/internal/checkout"
	"pos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProductMissing  = errors.New("satıştaki ürün bulunamadı")
	ErrSerialNotHeld   = errors.New("seri numarası satılamaz durumda")
	ErrCustomerMissing = errors.New("satıştaki müşteri bulunamadı")
	ErrSaleNotFound    = errors.New("satış bulunamadı")
)

// Repository satışları tek transaction içinde kaydeder.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

var _ checkout.SaleSubmitter = (*Repository)(nil)

// Records bir satış isteğinin yazılacak kayıtları.
type Records struct {
	Sale        models.Sale
	Movements   []models.CashMovement
	CustomerTx  *models.CustomerTransaction
	CreditTotal decimal.Decimal
}

// BuildRecords satış isteğinden satış, kasa hareketleri ve cari hareket üretir.
// Nakit ve kart kısmı kasaya giriş, veresiye kısmı müşteri borcu olarak yazılır.
func BuildRecords(req cart.SaleRequest, at time.Time) Records {
	sale := models.Sale{
		BranchID:      req.BranchID,
		CashierID:     req.CashierID,
		CustomerID:    req.CustomerID,
		Gross:         req.Gross,
		DiscountTotal: req.DiscountTotal,
		Net:           req.Net,
		PaymentType:   string(req.PaymentType),
		PaidAmount:    req.PaidAmount,
		ChangeAmount:  req.ChangeAmount,
		CreatedAt:     at,
	}
	for _, it := range req.Items {
		sale.Items = append(sale.Items, models.SaleItem{
			ProductID:      it.ProductID,
			ProductName:    it.Name,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			DiscountAmount: it.DiscountAmount,
			VATRate:        it.VATRate,
			LineTotal:      it.LineTotal,
			SerialNumberID: it.SerialNumberID,
		})
	}

	b := req.Breakdown
	parts := []struct {
		method string
		amount decimal.Decimal
	}{
		{string(models.CashMethodCash), b.Cash},
		{string(models.CashMethodCard), b.Card},
		{string(cart.PaymentCredit), b.Credit},
	}

	rec := Records{CreditTotal: decimal.Zero}
	for _, p := range parts {
		if !p.amount.IsPositive() {
			continue
		}
		sale.Payments = append(sale.Payments, models.SalePayment{Method: p.method, Amount: p.amount})
		if p.method == string(cart.PaymentCredit) {
			rec.CreditTotal = p.amount
			continue
		}
		rec.Movements = append(rec.Movements, models.CashMovement{
			BranchID:    req.BranchID,
			UserID:      req.CashierID,
			Date:        at,
			Method:      models.CashMethod(p.method),
			Direction:   models.CashIn,
			Amount:      p.amount,
			Description: "Satış",
		})
	}

	if rec.CreditTotal.IsPositive() && req.CustomerID != nil {
		rec.CustomerTx = &models.CustomerTransaction{
			CustomerID:  *req.CustomerID,
			Type:        models.CustomerTxSaleCredit,
			Amount:      rec.CreditTotal,
			Description: "Veresiye satış",
			Date:        at,
		}
	}
	rec.Sale = sale
	return rec
}

// SubmitSale satışı, stok düşümünü, seri numarası satışını, cari borcu ve
// kasa hareketlerini tek transaction'da yazar. Herhangi biri başarısızsa
// hiçbiri yazılmaz.
func (r *Repository) SubmitSale(ctx context.Context, req cart.SaleRequest) (checkout.SaleResult, error) {
	if len(req.Items) == 0 {
		return checkout.SaleResult{}, errors.New("satış kalemi yok")
	}
	rec := BuildRecords(req, r.now())

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec.Sale).Error; err != nil {
			return fmt.Errorf("satış yazılamadı: %w", err)
		}
		saleID := rec.Sale.ID

		for _, it := range rec.Sale.Items {
			res := tx.Model(&models.Product{}).
				Where("id = ?", it.ProductID).
				Update("stock_quantity", gorm.Expr("stock_quantity - ?", it.Quantity))
			if res.Error != nil {
				return fmt.Errorf("stok düşülemedi: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %d", ErrProductMissing, it.ProductID)
			}

			if it.SerialNumberID == nil {
				continue
			}
			res = tx.Model(&models.SerialNumber{}).
				Where("id = ? AND product_id = ? AND status IN ?", *it.SerialNumberID, it.ProductID,
					[]models.SerialStatus{models.SerialReserved, models.SerialAvailable}).
				Updates(map[string]interface{}{
					"status":      models.SerialSold,
					"sale_id":     saleID,
					"reserved_at": nil,
				})
			if res.Error != nil {
				return fmt.Errorf("seri numarası güncellenemedi: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %d", ErrSerialNotHeld, *it.SerialNumberID)
			}
		}

		if rec.CustomerTx != nil {
			rec.CustomerTx.SaleID = &saleID
			if err := tx.Create(rec.CustomerTx).Error; err != nil {
				return fmt.Errorf("cari hareket yazılamadı: %w", err)
			}
			res := tx.Model(&models.Customer{}).
				Where("id = ?", rec.CustomerTx.CustomerID).
				Update("balance", gorm.Expr("balance + ?", rec.CreditTotal))
			if res.Error != nil {
				return fmt.Errorf("müşteri bakiyesi güncellenemedi: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrCustomerMissing
			}
		}

		for i := range rec.Movements {
			rec.Movements[i].SaleID = &saleID
		}
		if len(rec.Movements) > 0 {
			if err := tx.Create(&rec.Movements).Error; err != nil {
				return fmt.Errorf("kasa hareketi yazılamadı: %w", err)
			}
		}

		var names []string
		tx.Model(&models.User{}).Where("id = ?", rec.Sale.CashierID).Pluck("name", &names)
		cashier := ""
		if len(names) > 0 {
			cashier = names[0]
		}
		entry := audit.NewLog(SaleAuditOptions(rec.Sale, cashier))
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("audit log kaydedilemedi: %w", err)
		}
		return nil
	})
	if err != nil {
		return checkout.SaleResult{}, err
	}
	return checkout.SaleResult{SaleID: rec.Sale.ID}, nil
}

// SaleAuditOptions kaydedilen satışın audit kaydı.
func SaleAuditOptions(sale models.Sale, cashierName string) audit.LogOptions {
	return audit.LogOptions{
		BranchID:    sale.BranchID,
		UserID:      sale.CashierID,
		UserName:    cashierName,
		EntityType:  "sale",
		EntityID:    sale.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("Satış #%d: %s TL (%s)", sale.ID, sale.Net.StringFixed(2), sale.PaymentType),
		After:       NewSaleResponse(sale),
	}
}

// Filter satış listesi filtresi.
type Filter struct {
	BranchID   *uint
	CashierID  *uint
	CustomerID *uint
	From       *time.Time
	To         *time.Time // dahil değil
	Limit      int
}

func (r *Repository) List(ctx context.Context, f Filter) ([]models.Sale, error) {
	dbq := r.db.WithContext(ctx).Model(&models.Sale{}).Preload("Customer")
	if f.BranchID != nil {
		dbq = dbq.Where("branch_id = ?", *f.BranchID)
	}
	if f.CashierID != nil {
		dbq = dbq.Where("cashier_id = ?", *f.CashierID)
	}
	if f.CustomerID != nil {
		dbq = dbq.Where("customer_id = ?", *f.CustomerID)
	}
	if f.From != nil {
		dbq = dbq.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		dbq = dbq.Where("created_at < ?", *f.To)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var rows []models.Sale
	if err := dbq.Order("created_at desc, id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("satışlar listelenemedi: %w", err)
	}
	return rows, nil
}

func (r *Repository) Get(ctx context.Context, id uint) (models.Sale, error) {
	var s models.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").Preload("Payments").Preload("Customer").
		First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s, ErrSaleNotFound
	}
	if err != nil {
		return s, fmt.Errorf("satış okunamadı: %w", err)
	}
	return s, nil
}
