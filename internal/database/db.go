package database

import (
	"fmt"
	"time"

	"tradepos-backend/internal/config"
	"tradepos-backend/internal/models"

	"github.com/op/go-logging"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var log = logging.MustGetLogger("database")

var DB *gorm.DB

// Init opens the configured database, sets up the pool and migrates the schema.
func Init(cfg *config.Config) error {
	db, err := Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return err
	}

	DB = db
	log.Infof("database connected (%s), migration finished", cfg.DBDriver)
	return nil
}

func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Supplier{},
		&models.Customer{},
		&models.CustomerPurchase{},
		&models.Product{},
		&models.StockMovement{},
		&models.ProductStock{},
		&models.Shift{},
		&models.Sale{},
		&models.SaleItem{},
		&models.Payment{},
		&models.Return{},
		&models.ReturnItem{},
		&models.Transaction{},
		&models.Quotation{},
		&models.QuotationItem{},
		&models.InvoiceCounter{},
		&models.ExchangeRate{},
		&models.OutboxEvent{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
