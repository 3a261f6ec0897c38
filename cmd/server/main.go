package main

import (
	"context"
	"log"
	"strings"
	"time"

	"pos-backend/internal/admin"
	"pos-backend/internal/audit"
	"pos-backend/internal/auth"
	"pos-backend/internal/cashflow"
	"pos-backend/internal/checkout"
	"pos-backend/internal/config"
	"pos-backend/internal/customer"
	"pos-backend/internal/database"
	"pos-backend/internal/inventory"
	"pos-backend/internal/logging"
	"pos-backend/internal/metrics"
	"pos-backend/internal/models"
	"pos-backend/internal/register"
	"pos-backend/internal/sales"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger oluşturulamadı: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	policy, err := checkout.ParsePolicy(cfg.CheckoutPolicy)
	if err != nil {
		logger.Fatal("invalid checkout policy", zap.Error(err))
	}

	db, err := database.Init(cfg, logger)
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}

	catalog := inventory.NewCatalog(db)
	serials := inventory.NewSerials(db)
	customers := customer.NewDirectory(db)
	saleRepo := sales.NewRepository(db)

	// Önceki çalışmadan kalan rezervasyonlar; sepetler bellekte olduğu için sahipsiz kaldılar
	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	released, err := serials.ReleaseStale(startupCtx, time.Now())
	cancel()
	if err != nil {
		logger.Error("stale serial reservations could not be released", zap.Error(err))
	} else if released > 0 {
		logger.Info("released stale serial reservations", zap.Int64("count", released))
	}

	var checkoutMetrics *metrics.Checkout
	if cfg.PrometheusEnabled {
		checkoutMetrics = metrics.NewCheckout(prometheus.DefaultRegisterer)
	}

	checkoutSvc := checkout.New(saleRepo, serials,
		checkout.WithPolicy(policy),
		checkout.WithSubmitTimeout(cfg.SubmitTimeout),
		checkout.WithLogger(logger.Named("checkout")),
		checkout.WithMetrics(checkoutMetrics),
		checkout.WithCustomers(customers),
	)

	registerDeps := &register.Deps{
		Sessions:  register.NewSessions(cfg.TabCount, cfg.DefaultPriceList),
		Products:  catalog,
		Serials:   serials,
		Customers: customers,
		Checkout:  checkoutSvc,
		Logger:    logger.Named("register"),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			logger.Error("unexpected error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Beklenmeyen sunucu hatası",
			})
		},
	})

	// CORS origins virgülle ayrılmış string olarak gelir
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	if cfg.PrometheusEnabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler(db))
	api.Post("/auth/login", auth.LoginHandler(db, cfg.JWTSecret, cfg.JWTTTL))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))

	protected.Get("/auth/me", auth.MeHandler(db))

	// Super admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleSuperAdmin))

	// Şube ve personel yönetimi
	adminRoutes.Post("/branches", admin.CreateBranchHandler(db))
	adminRoutes.Get("/branches", admin.ListBranchesHandler(db))
	adminRoutes.Get("/branches/:id", admin.GetBranchHandler(db))
	adminRoutes.Put("/branches/:id", admin.UpdateBranchHandler(db))
	adminRoutes.Delete("/branches/:id", admin.DeleteBranchHandler(db))
	adminRoutes.Get("/branches/:id/staff", admin.ListBranchStaffHandler(db))
	adminRoutes.Post("/users", auth.CreateUserHandler(db))

	// Ürün yönetimi
	adminRoutes.Post("/products", inventory.CreateProductHandler(db, catalog))
	adminRoutes.Put("/products/:id", inventory.UpdateProductHandler(db, catalog))
	adminRoutes.Delete("/products/:id", inventory.DeleteProductHandler(db))
	adminRoutes.Post("/products/:id/serials", inventory.AddSerialsHandler(db))
	adminRoutes.Post("/products/import", inventory.ImportProductsHandler(db))

	// Ürün kategorileri
	adminRoutes.Post("/product-categories", inventory.CreateProductCategoryHandler(db))
	adminRoutes.Put("/product-categories/:id", inventory.UpdateProductCategoryHandler(db))
	adminRoutes.Delete("/product-categories/:id", inventory.DeleteProductCategoryHandler(db))

	// Ortak (auth gerektiren) route'lar

	// Ürünler
	protected.Get("/products", inventory.ListProductsHandler(catalog))
	protected.Get("/products/search", inventory.ListProductsHandler(catalog))
	protected.Get("/products/barcode/:code", inventory.GetProductByBarcodeHandler(catalog))
	protected.Get("/products/:id/serials", inventory.ListAvailableSerialsHandler(serials))
	protected.Get("/product-categories", inventory.ListProductCategoriesHandler(db))

	// Müşteriler (veresiye)
	protected.Get("/customers", customer.ListCustomersHandler(customers))
	protected.Post("/customers", customer.CreateCustomerHandler(db, customers))
	protected.Get("/customers/:id", customer.GetCustomerHandler(customers))
	protected.Put("/customers/:id", customer.UpdateCustomerHandler(db, customers))
	protected.Get("/customers/:id/ledger", customer.LedgerHandler(customers))
	protected.Post("/customers/:id/payments", customer.RecordPaymentHandler(db, customers))

	// Satışlar
	protected.Get("/sales", sales.ListSalesHandler(saleRepo))
	protected.Get("/sales/:id", sales.GetSaleHandler(saleRepo))

	// Para giriş/çıkış
	protected.Post("/cash-movements", cashflow.CreateCashMovementHandler(db))
	protected.Get("/cash-movements", cashflow.ListCashMovementsHandler(db))
	protected.Get("/cash-movements/summary", cashflow.SummaryHandler(db))

	// Kasa sekmeleri
	register.Mount(protected, registerDeps)

	// Audit logs
	protected.Get("/audit-logs",
		auth.RequireRole(models.RoleSuperAdmin, models.RoleBranchAdmin),
		audit.ListAuditLogsHandler(db))

	logger.Info("server starting",
		zap.String("port", cfg.HTTPPort),
		zap.String("checkout_policy", policy.String()),
		zap.Int("tab_count", cfg.TabCount))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
