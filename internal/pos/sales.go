package pos

import (
	"strings"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/models"

	"gorm.io/gorm"
)

type SaleFilter struct {
	From       *time.Time
	To         *time.Time // exclusive
	ShiftID    uint
	CashierID  uint
	CustomerID uint
	Status     models.SaleStatus
	Invoice    string // prefix match
	Limit      int
	Offset     int
}

func ListSales(db *gorm.DB, f SaleFilter) ([]models.Sale, int64, error) {
	q := db.Model(&models.Sale{})
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}
	if f.ShiftID > 0 {
		q = q.Where("shift_id = ?", f.ShiftID)
	}
	if f.CashierID > 0 {
		q = q.Where("cashier_id = ?", f.CashierID)
	}
	if f.CustomerID > 0 {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if v := strings.ToUpper(strings.TrimSpace(f.Invoice)); v != "" {
		q = q.Where("invoice_number LIKE ?", v+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var list []models.Sale
	err := q.Preload("Customer").Order("created_at desc, id desc").Limit(limit).Offset(f.Offset).Find(&list).Error
	return list, total, err
}

type SaleDetail struct {
	models.Sale
	Payments []models.Payment `json:"payments"`
	Returns  []models.Return  `json:"returns"`
}

func GetSale(db *gorm.DB, id uint) (*SaleDetail, error) {
	var d SaleDetail
	if err := db.Preload("Items").Preload("Customer").First(&d.Sale, id).Error; err != nil {
		return nil, apperr.FromDB(err, "sale")
	}
	if err := db.Where("sale_id = ?", id).Order("id asc").Find(&d.Payments).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("Items").Where("sale_id = ?", id).Order("id asc").Find(&d.Returns).Error; err != nil {
		return nil, err
	}
	return &d, nil
}
