package inventory

import (
	"errors"
	"fmt"
	"strings"

	"pos-backend/internal/audit"
	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Excel sütun sırası: Barkod | Ürün Adı | Birim | KDV | Fiyat 1 | Fiyat 2 | Stok | Seri Takip (E/H)
const (
	colBarcode = iota
	colName
	colUnit
	colVAT
	colPrice1
	colPrice2
	colStock
	colSerialized
)

type ImportRow struct {
	Line         int // excel satır no (1'den başlar)
	Barcode      string
	Name         string
	Unit         string
	VATRate      decimal.Decimal
	Prices       map[int]decimal.Decimal
	Stock        decimal.Decimal
	IsSerialized bool
}

type ImportError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type ImportResult struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Errors  []ImportError `json:"errors"`
}

// ParseProductSheet ilk sheet'teki ürün satırlarını okur. Hatalı satırlar
// atlanır ve satır numarasıyla raporlanır.
func ParseProductSheet(f *excelize.File) ([]ImportRow, []ImportError, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("excel dosyasında sheet bulunamadı")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("sheet okunamadı: %w", err)
	}

	var (
		out  []ImportRow
		errs []ImportError
	)
	seen := map[string]int{}
	for i, cells := range rows {
		line := i + 1
		if i == 0 && isHeaderRow(cells) {
			continue
		}
		if isBlankRow(cells) {
			continue
		}

		row, err := parseImportRow(line, cells)
		if err != nil {
			errs = append(errs, ImportError{Line: line, Message: err.Error()})
			continue
		}
		if prev, ok := seen[row.Barcode]; ok {
			errs = append(errs, ImportError{Line: line, Message: fmt.Sprintf("barkod %d. satırda da var", prev)})
			continue
		}
		seen[row.Barcode] = line
		out = append(out, row)
	}
	return out, errs, nil
}

func isHeaderRow(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	first := strings.ToUpper(strings.TrimSpace(cells[0]))
	return strings.Contains(first, "BARKOD") || strings.Contains(first, "BARCODE")
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return strings.TrimSpace(cells[i])
	}
	return ""
}

// Türkçe excel'lerde ondalık ayıracı virgül olabilir
func parseDecimalCell(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}

func parseImportRow(line int, cells []string) (ImportRow, error) {
	row := ImportRow{
		Line:    line,
		Barcode: cell(cells, colBarcode),
		Name:    cell(cells, colName),
		Unit:    cell(cells, colUnit),
		VATRate: decimal.NewFromInt(20),
		Prices:  map[int]decimal.Decimal{},
	}
	if row.Barcode == "" {
		return row, errors.New("barkod boş")
	}
	if row.Name == "" {
		return row, errors.New("ürün adı boş")
	}
	if row.Unit == "" {
		row.Unit = "adet"
	}

	if v := cell(cells, colVAT); v != "" {
		vat, err := parseDecimalCell(strings.TrimPrefix(v, "%"))
		if err != nil || vat.IsNegative() || vat.GreaterThan(decimal.NewFromInt(100)) {
			return row, fmt.Errorf("geçersiz KDV: %q", v)
		}
		row.VATRate = vat
	}

	for list, col := range map[int]int{1: colPrice1, 2: colPrice2} {
		v := cell(cells, col)
		if v == "" {
			continue
		}
		price, err := parseDecimalCell(v)
		if err != nil || price.IsNegative() {
			return row, fmt.Errorf("geçersiz fiyat %d: %q", list, v)
		}
		row.Prices[list] = price
	}
	if _, ok := row.Prices[1]; !ok {
		return row, errors.New("fiyat 1 zorunlu")
	}

	if v := cell(cells, colStock); v != "" {
		stock, err := parseDecimalCell(v)
		if err != nil {
			return row, fmt.Errorf("geçersiz stok: %q", v)
		}
		row.Stock = stock
	}

	switch strings.ToUpper(cell(cells, colSerialized)) {
	case "E", "EVET", "1", "X":
		row.IsSerialized = true
	}
	return row, nil
}

// POST /api/admin/products/import (multipart: file)
func ImportProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Excel dosyası bulunamadı (file)")
		}
		file, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Dosya açılamadı")
		}
		defer file.Close()

		excelFile, err := excelize.OpenReader(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Excel dosyası okunamadı: "+err.Error())
		}
		defer excelFile.Close()

		rows, rowErrs, err := ParseProductSheet(excelFile)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result := ImportResult{Errors: rowErrs}
		err = db.Transaction(func(tx *gorm.DB) error {
			for _, r := range rows {
				created, err := importRow(tx, r)
				if err != nil {
					return fmt.Errorf("satır %d: %w", r.Line, err)
				}
				if created {
					result.Created++
				} else {
					result.Updated++
				}
			}
			return nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürünler içe aktarılamadı: "+err.Error())
		}
		if result.Errors == nil {
			result.Errors = []ImportError{}
		}

		audit.Record(db, c, audit.LogOptions{
			EntityType:  "product",
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Excel ürün aktarımı: %d yeni, %d güncel", result.Created, result.Updated),
			After:       result,
		})
		return c.JSON(result)
	}
}

func importRow(tx *gorm.DB, r ImportRow) (bool, error) {
	var p models.Product
	err := tx.Where("barcode = ?", r.Barcode).First(&p).Error
	created := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !created {
		return false, err
	}

	p.Barcode = r.Barcode
	p.Name = r.Name
	p.Unit = r.Unit
	p.VATRate = r.VATRate
	p.StockQuantity = r.Stock
	p.IsSerialized = r.IsSerialized
	if err := tx.Omit("Prices", "Category").Save(&p).Error; err != nil {
		return false, err
	}

	prices := make([]models.ProductPrice, 0, len(r.Prices))
	for list, price := range r.Prices {
		prices = append(prices, models.ProductPrice{PriceList: list, Price: price})
	}
	return created, upsertPrices(tx, p.ID, prices)
}
