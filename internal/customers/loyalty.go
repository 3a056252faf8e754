package customers

import (
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var pointsPer = decimal.NewFromInt(10)

// CalculateLoyaltyPoints gives one point per full 10 currency units.
func CalculateLoyaltyPoints(amount decimal.Decimal) int64 {
	if !amount.IsPositive() {
		return 0
	}
	return amount.Div(pointsPer).Floor().IntPart()
}

// RecordPurchase books a completed sale on the customer: history row, points,
// lifetime total and last purchase time. Runs inside the checkout transaction.
func RecordPurchase(tx *gorm.DB, customerID, saleID uint, amount decimal.Decimal, at time.Time) (int64, error) {
	points := CalculateLoyaltyPoints(amount)

	p := models.CustomerPurchase{
		CustomerID:   customerID,
		SaleID:       saleID,
		Amount:       amount,
		PointsEarned: points,
		Date:         at,
	}
	if err := tx.Create(&p).Error; err != nil {
		return 0, err
	}

	res := tx.Model(&models.Customer{}).Where("id = ?", customerID).Updates(map[string]any{
		"loyalty_points":   gorm.Expr("loyalty_points + ?", points),
		"total_purchases":  gorm.Expr("total_purchases + ?", amount),
		"last_purchase_at": at,
	})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, apperr.NotFound("customer %d not found", customerID)
	}
	return points, nil
}

// ReversePurchase takes back the total of a refunded amount and the points
// the sale no longer earns. Points are recomputed on what is left of the
// sale after all its refunds, so a sale returned in pieces gives back
// exactly what it earned. Neither value goes below zero.
func ReversePurchase(tx *gorm.DB, customerID, saleID uint, amount decimal.Decimal, at time.Time) error {
	var c models.Customer
	if err := tx.First(&c, customerID).Error; err != nil {
		return apperr.FromDB(err, "customer")
	}

	var history []models.CustomerPurchase
	if err := tx.Where("customer_id = ? AND sale_id = ?", customerID, saleID).Find(&history).Error; err != nil {
		return err
	}
	points := pointsToReverse(history, amount)
	if points > c.LoyaltyPoints {
		points = c.LoyaltyPoints
	}
	total := c.TotalPurchases.Sub(amount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	p := models.CustomerPurchase{
		CustomerID:   customerID,
		SaleID:       saleID,
		Amount:       amount.Neg(),
		PointsEarned: -points,
		Date:         at,
	}
	if err := tx.Create(&p).Error; err != nil {
		return err
	}
	return tx.Model(&models.Customer{}).Where("id = ?", customerID).Updates(map[string]any{
		"loyalty_points":  gorm.Expr("loyalty_points - ?", points),
		"total_purchases": total,
	}).Error
}

// pointsToReverse is earned - points(kept amount) - already reversed, where
// the kept amount is the sale minus every refund including this one.
func pointsToReverse(history []models.CustomerPurchase, refund decimal.Decimal) int64 {
	sold, refunded := decimal.Zero, refund
	var earned, reversed int64
	for _, h := range history {
		if h.Amount.IsNegative() {
			refunded = refunded.Add(h.Amount.Neg())
			reversed -= h.PointsEarned
			continue
		}
		sold = sold.Add(h.Amount)
		earned += h.PointsEarned
	}
	kept := sold.Sub(refunded)
	if kept.IsNegative() {
		kept = decimal.Zero
	}
	n := earned - CalculateLoyaltyPoints(kept) - reversed
	if n < 0 {
		return 0
	}
	return n
}
