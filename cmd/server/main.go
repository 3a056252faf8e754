package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/audit"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/config"
	"tradepos-backend/internal/currency"
	"tradepos-backend/internal/customers"
	"tradepos-backend/internal/database"
	"tradepos-backend/internal/documents"
	"tradepos-backend/internal/invoice"
	"tradepos-backend/internal/logger"
	"tradepos-backend/internal/outbox"
	"tradepos-backend/internal/pos"
	"tradepos-backend/internal/products"
	"tradepos-backend/internal/quotations"
	"tradepos-backend/internal/reports"
	"tradepos-backend/internal/shifts"
	"tradepos-backend/internal/stock"
	"tradepos-backend/internal/suppliers"
	"tradepos-backend/internal/transactions"
	"tradepos-backend/internal/users"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/op/go-logging"
	"github.com/shopspring/decimal"
)

var log = logging.MustGetLogger("server")

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("log level: %v", err)
	}
	if err := database.Init(cfg); err != nil {
		log.Fatalf("database: %v", err)
	}
	db := database.DB

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer := documents.NewRenderer(documents.Company{
		Name:    cfg.CompanyName,
		Address: cfg.CompanyAddress,
		Phone:   cfg.CompanyPhone,
	}, cfg.PDFFontPath, cfg.PDFLogoPath, cfg.SystemCurrency)

	hub := transactions.NewHub()
	txSvc := &transactions.Service{DB: db, Hub: hub}
	taxRate := decimal.NewFromFloat(cfg.TaxRatePercent)
	posSvc := &pos.Service{DB: db, Hub: hub, TaxRate: taxRate, Currency: cfg.SystemCurrency}
	rates := &currency.Service{
		DB:      db,
		Client:  &http.Client{Timeout: 10 * time.Second},
		APIURL:  cfg.RatesAPIURL,
		Base:    cfg.RatesBaseCurrency,
		Targets: cfg.RatesTargets,
	}
	reportBuilder := &reports.Builder{DB: db, Rates: rates.Current, System: cfg.SystemCurrency}
	quoteDefaults := quotations.Defaults{TaxRate: taxRate, Currency: cfg.SystemCurrency}

	go refreshRates(ctx, rates, time.Duration(cfg.RatesRefreshHours)*time.Hour)
	startOutbox(ctx, cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if !errors.As(err, &e) && !errors.As(apperr.HTTP(err), &e) {
				e = fiber.ErrInternalServerError
			}
			if e.Code >= fiber.StatusInternalServerError {
				log.Errorf("%s %s: %v", c.Method(), c.Path(), err)
			}
			return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(corsOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		ExposeHeaders: "Content-Disposition, Idempotent-Replayed",
	}))

	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(db))
	api.Post("/auth/login", auth.LoginHandler(db, cfg))

	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))
	perm := auth.RequirePermission

	protected.Get("/auth/me", auth.MeHandler(db))

	// Users
	protected.Get("/users", perm(auth.PermUsers), users.ListHandler(db))
	protected.Post("/users", perm(auth.PermUsers), users.CreateHandler(db))
	protected.Put("/users/:id", perm(auth.PermUsers), users.UpdateHandler(db))
	protected.Post("/users/:id/password", perm(auth.PermUsers), users.ResetPasswordHandler(db))

	// Transactions
	protected.Get("/transactions", perm(auth.PermTransactionsRead), transactions.ListHandler(txSvc))
	protected.Get("/transactions/stream", perm(auth.PermTransactionsRead), transactions.StreamHandler(hub))
	protected.Get("/transactions/:id", perm(auth.PermTransactionsRead), transactions.GetHandler(txSvc))
	protected.Get("/transactions/:id/receipt.pdf", perm(auth.PermTransactionsRead), transactions.ReceiptHandler(txSvc, renderer))
	protected.Post("/transactions", perm(auth.PermTransactionsWrite), transactions.CreateHandler(txSvc))
	protected.Put("/transactions/:id", perm(auth.PermTransactionsWrite), transactions.UpdateHandler(txSvc))
	protected.Delete("/transactions/:id", perm(auth.PermTransactionsWrite), transactions.DeleteHandler(txSvc))

	// Suppliers
	protected.Get("/suppliers", perm(auth.PermSuppliersRead), suppliers.ListHandler(db))
	protected.Get("/suppliers/:id", perm(auth.PermSuppliersRead), suppliers.GetHandler(db))
	protected.Get("/suppliers/:id/statement", perm(auth.PermSuppliersRead), suppliers.StatementHandler(db))
	protected.Post("/suppliers", perm(auth.PermSuppliersWrite), suppliers.CreateHandler(db))
	protected.Put("/suppliers/:id", perm(auth.PermSuppliersWrite), suppliers.UpdateHandler(db))
	protected.Delete("/suppliers/:id", perm(auth.PermSuppliersWrite), suppliers.DeleteHandler(db))

	// Customers
	protected.Get("/customers", perm(auth.PermCustomersRead), customers.ListHandler(db))
	protected.Get("/customers/:id", perm(auth.PermCustomersRead), customers.GetHandler(db))
	protected.Get("/customers/:id/history", perm(auth.PermCustomersRead), customers.HistoryHandler(db))
	protected.Post("/customers", perm(auth.PermCustomersWrite), customers.CreateHandler(db))
	protected.Put("/customers/:id", perm(auth.PermCustomersWrite), customers.UpdateHandler(db))
	protected.Delete("/customers/:id", perm(auth.PermCustomersWrite), customers.DeleteHandler(db))

	// Products
	protected.Get("/products", perm(auth.PermProductsRead), products.ListHandler(db))
	protected.Get("/products/:id", perm(auth.PermProductsRead), products.GetHandler(db))
	protected.Post("/products", perm(auth.PermProductsWrite), products.CreateHandler(db))
	protected.Post("/products/import", perm(auth.PermProductsWrite), products.ImportHandler(db))
	protected.Put("/products/:id", perm(auth.PermProductsWrite), products.UpdateHandler(db))
	protected.Delete("/products/:id", perm(auth.PermProductsWrite), products.DeleteHandler(db))

	// Stock
	protected.Get("/stock/movements", perm(auth.PermStockRead), stock.ListMovementsHandler(db))
	protected.Post("/stock/movements", perm(auth.PermStockWrite), stock.CreateMovementHandler(db))
	protected.Get("/stock/balances", perm(auth.PermStockRead), stock.ListBalancesHandler(db))
	protected.Get("/stock/products/:id", perm(auth.PermStockRead), stock.GetProductStockHandler(db))
	protected.Post("/stock/products/:id/reconcile", perm(auth.PermStockWrite), stock.ReconcileHandler(db))

	// Shifts
	protected.Post("/shifts/open", perm(auth.PermShifts), shifts.OpenHandler(db))
	protected.Get("/shifts/current", perm(auth.PermShifts), shifts.CurrentHandler(db))
	protected.Post("/shifts/:id/close", perm(auth.PermShifts), shifts.CloseHandler(db))
	protected.Get("/shifts", perm(auth.PermShifts), shifts.ListHandler(db))
	protected.Get("/shifts/:id", perm(auth.PermShifts), shifts.GetHandler(db))
	protected.Get("/shifts/:id/report.pdf", perm(auth.PermShifts), shifts.ReportHandler(db, renderer))

	// POS
	protected.Post("/pos/checkout", perm(auth.PermPOS), pos.CheckoutHandler(posSvc))
	protected.Post("/pos/totals", perm(auth.PermPOS), pos.TotalsHandler(db, posSvc))
	protected.Post("/pos/returns", perm(auth.PermReturns), pos.ReturnHandler(posSvc))
	protected.Get("/invoices/next", perm(auth.PermPOS), invoice.PeekNextHandler(db))
	protected.Get("/invoices/validate", perm(auth.PermSalesRead), invoice.ValidateHandler())
	protected.Get("/sales", perm(auth.PermSalesRead), pos.ListSalesHandler(db))
	protected.Get("/sales/:id", perm(auth.PermSalesRead), pos.GetSaleHandler(db))
	protected.Get("/sales/:id/receipt.pdf", perm(auth.PermSalesRead), pos.ReceiptHandler(db, renderer))
	protected.Get("/sales/:id/invoice.pdf", perm(auth.PermSalesRead), pos.InvoicePDFHandler(db, renderer))

	// Quotations
	protected.Get("/quotations", perm(auth.PermQuotations), quotations.ListHandler(db))
	protected.Get("/quotations/:id", perm(auth.PermQuotations), quotations.GetHandler(db))
	protected.Get("/quotations/:id/pdf", perm(auth.PermQuotations), quotations.PDFHandler(db, renderer))
	protected.Post("/quotations", perm(auth.PermQuotations), quotations.CreateHandler(db, quoteDefaults))
	protected.Put("/quotations/:id/status", perm(auth.PermQuotations), quotations.UpdateStatusHandler(db))

	// Currency
	protected.Get("/currency/rates", currency.ListRatesHandler(rates))
	protected.Get("/currency/convert", currency.ConvertHandler(rates))
	protected.Post("/currency/rates/refresh", perm(auth.PermCurrencyWrite), currency.RefreshRatesHandler(rates))
	protected.Put("/currency/rates", perm(auth.PermCurrencyWrite), currency.SetRateHandler(rates))

	// Reports
	protected.Get("/reports/financial", perm(auth.PermReports), reports.FinancialHandler(reportBuilder))
	protected.Get("/reports/financial.pdf", perm(auth.PermReports), reports.FinancialPDFHandler(reportBuilder, renderer))
	protected.Get("/reports/financial.xlsx", perm(auth.PermReports), reports.FinancialXLSXHandler(reportBuilder))
	protected.Get("/reports/sales-chart", perm(auth.PermReports), reports.SalesChartHandler(reportBuilder))

	// Audit + outbox
	protected.Get("/audit-logs", perm(auth.PermAudit), audit.ListAuditLogsHandler(db))
	protected.Post("/audit-logs/:id/undo", perm(auth.PermAudit), audit.UndoAuditLogHandler(db))
	protected.Get("/outbox/pending", perm(auth.PermAudit), outbox.PendingHandler(db))

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	log.Infof("listening on :%s", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// refreshRates keeps the stored exchange rates fresh. A failed fetch keeps
// what is stored, so the loop never stops on errors.
func refreshRates(ctx context.Context, svc *currency.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if _, err := svc.Refresh(ctx); err != nil {
			log.Warningf("exchange rates: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// startOutbox runs the dispatcher when a broker is configured. Without one,
// events stay in the outbox table.
func startOutbox(ctx context.Context, cfg *config.Config) {
	if cfg.AMQPURL == "" {
		log.Info("AMQP_URL not set, outbox events are kept but not published")
		return
	}
	pub, err := outbox.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		log.Errorf("outbox publisher: %v", err)
		return
	}
	d := &outbox.Dispatcher{
		DB:          database.DB,
		Publisher:   pub,
		Interval:    time.Duration(cfg.OutboxPollSeconds) * time.Second,
		BatchSize:   100,
		MaxAttempts: 10,
	}
	go func() {
		d.Run(ctx)
		if err := pub.Close(); err != nil {
			log.Warningf("outbox publisher close: %v", err)
		}
	}()
}
