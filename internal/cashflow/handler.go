package cashflow

import (
	"fmt"
	"sort"
	"time"

	"pos-backend/internal/audit"
	"pos-backend/internal/auth"
	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateCashMovementRequest struct {
	Date        *string              `json:"date"`      // "2026-01-15", boşsa şimdi
	Method      models.CashMethod    `json:"method"`    // cash | card
	Direction   models.CashDirection `json:"direction"` // in | out
	Amount      decimal.Decimal      `json:"amount"`
	Description string               `json:"description"`
	// super_admin için opsiyonel:
	BranchID *uint `json:"branch_id"`
}

type CashMovementResponse struct {
	ID          uint                 `json:"id"`
	BranchID    *uint                `json:"branch_id"`
	SaleID      *uint                `json:"sale_id"`
	UserID      uint                 `json:"user_id"`
	Date        string               `json:"date"`
	Method      models.CashMethod    `json:"method"`
	Direction   models.CashDirection `json:"direction"`
	Amount      decimal.Decimal      `json:"amount"`
	Description string               `json:"description"`
}

type SummaryItem struct {
	Method models.CashMethod `json:"method"`
	In     decimal.Decimal   `json:"in"`
	Out    decimal.Decimal   `json:"out"`
	Net    decimal.Decimal   `json:"net"`
}

type SummaryResponse struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	Items    []SummaryItem   `json:"items"`
	GrandNet decimal.Decimal `json:"grand_net"`
}

func newMovementResponse(m models.CashMovement) CashMovementResponse {
	return CashMovementResponse{
		ID:          m.ID,
		BranchID:    m.BranchID,
		SaleID:      m.SaleID,
		UserID:      m.UserID,
		Date:        m.Date.Format("2006-01-02 15:04:05"),
		Method:      m.Method,
		Direction:   m.Direction,
		Amount:      m.Amount,
		Description: m.Description,
	}
}

// resolveBranchID şube yöneticisi ve kasiyer için JWT'deki şube, super_admin için istekteki şube.
func resolveBranchID(id auth.Identity, requested *uint) (*uint, error) {
	if id.Role == models.RoleSuperAdmin {
		return requested, nil
	}
	if id.BranchID == nil {
		return nil, fiber.NewError(fiber.StatusForbidden, "Şube bilgisi bulunamadı")
	}
	return id.BranchID, nil
}

func queryBranchID(c *fiber.Ctx) (*uint, error) {
	bidStr := c.Query("branch_id")
	if bidStr == "" {
		return nil, nil
	}
	var bid uint
	if _, err := fmt.Sscan(bidStr, &bid); err != nil || bid == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "branch_id geçersiz")
	}
	return &bid, nil
}

// parseRange from/to (YYYY-MM-DD) okur; to günü dahildir. Boşsa bugün.
func parseRange(fromStr, toStr string, now time.Time) (time.Time, time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from, to := today, today
	var err error
	if fromStr != "" {
		if from, err = time.ParseInLocation("2006-01-02", fromStr, now.Location()); err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "from tarihi geçersiz")
		}
	}
	if toStr != "" {
		if to, err = time.ParseInLocation("2006-01-02", toStr, now.Location()); err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "to tarihi geçersiz")
		}
	}
	if to.Before(from) {
		return from, to, fiber.NewError(fiber.StatusBadRequest, "to tarihi from tarihinden önce olamaz")
	}
	return from, to.AddDate(0, 0, 1), nil
}

// -------------------------------------------------
// POST /api/cash-movements (elle para giriş/çıkışı)
// -------------------------------------------------
func CreateCashMovementHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}

		var body CreateCashMovementRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if !body.Amount.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "Tutar 0'dan büyük olmalı")
		}

		switch body.Method {
		case models.CashMethodCash, models.CashMethodCard:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz method (cash|card)")
		}
		if body.Direction == "" {
			body.Direction = models.CashIn
		}
		if body.Direction != models.CashIn && body.Direction != models.CashOut {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz yön (in|out)")
		}

		branchID, err := resolveBranchID(id, body.BranchID)
		if err != nil {
			return err
		}

		date := time.Now()
		if body.Date != nil && *body.Date != "" {
			d, err := time.ParseInLocation("2006-01-02", *body.Date, time.Local)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı geçersiz, 'YYYY-MM-DD' olmalı")
			}
			date = d
		}

		mov := models.CashMovement{
			BranchID:    branchID,
			UserID:      id.UserID,
			Date:        date,
			Method:      body.Method,
			Direction:   body.Direction,
			Amount:      body.Amount,
			Description: body.Description,
		}
		if err := db.Create(&mov).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kayıt oluşturulamadı")
		}

		audit.Record(db, c, audit.LogOptions{
			BranchID:    mov.BranchID,
			EntityType:  "cash_movement",
			EntityID:    mov.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Kasa hareketi: %s %s %s TL", mov.Direction, mov.Method, mov.Amount.StringFixed(2)),
			After:       newMovementResponse(mov),
		})

		return c.Status(fiber.StatusCreated).JSON(newMovementResponse(mov))
	}
}

// -------------------------------------------------
// GET /api/cash-movements?from=2026-01-01&to=2026-01-31&method=cash
// -------------------------------------------------
func ListCashMovementsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		requested, err := queryBranchID(c)
		if err != nil {
			return err
		}
		branchID, err := resolveBranchID(id, requested)
		if err != nil {
			return err
		}
		from, to, err := parseRange(c.Query("from"), c.Query("to"), time.Now())
		if err != nil {
			return err
		}

		dbq := db.Model(&models.CashMovement{}).Where("date >= ? AND date < ?", from, to)
		if branchID != nil {
			dbq = dbq.Where("branch_id = ?", *branchID)
		}
		if m := c.Query("method"); m != "" {
			dbq = dbq.Where("method = ?", m)
		}

		var movs []models.CashMovement
		if err := dbq.Order("date asc, id asc").Find(&movs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kayıtlar listelenemedi")
		}

		resp := make([]CashMovementResponse, 0, len(movs))
		for _, m := range movs {
			resp = append(resp, newMovementResponse(m))
		}
		return c.JSON(resp)
	}
}

// -------------------------------------------------
// GET /api/cash-movements/summary?from=...&to=...
// Kasa kapanışında yöntem bazlı giriş/çıkış toplamı
// -------------------------------------------------
func SummaryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		requested, err := queryBranchID(c)
		if err != nil {
			return err
		}
		branchID, err := resolveBranchID(id, requested)
		if err != nil {
			return err
		}
		from, to, err := parseRange(c.Query("from"), c.Query("to"), time.Now())
		if err != nil {
			return err
		}

		dbq := db.Model(&models.CashMovement{}).Where("date >= ? AND date < ?", from, to)
		if branchID != nil {
			dbq = dbq.Where("branch_id = ?", *branchID)
		}
		var movs []models.CashMovement
		if err := dbq.Find(&movs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Özet hesaplanamadı")
		}

		resp := Summarize(movs)
		resp.From = from.Format("2006-01-02")
		resp.To = to.AddDate(0, 0, -1).Format("2006-01-02")
		return c.JSON(resp)
	}
}

// Summarize hareketleri yönteme göre toplar.
func Summarize(movs []models.CashMovement) SummaryResponse {
	byMethod := map[models.CashMethod]*SummaryItem{}
	for _, m := range movs {
		it, ok := byMethod[m.Method]
		if !ok {
			it = &SummaryItem{Method: m.Method}
			byMethod[m.Method] = it
		}
		if m.Direction == models.CashOut {
			it.Out = it.Out.Add(m.Amount)
		} else {
			it.In = it.In.Add(m.Amount)
		}
	}

	resp := SummaryResponse{Items: make([]SummaryItem, 0, len(byMethod))}
	for _, it := range byMethod {
		it.Net = it.In.Sub(it.Out)
		resp.GrandNet = resp.GrandNet.Add(it.Net)
		resp.Items = append(resp.Items, *it)
	}
	sort.Slice(resp.Items, func(i, j int) bool { return resp.Items[i].Method < resp.Items[j].Method })
	return resp
}
