package pos

import (
	"errors"
	"fmt"
	"strings"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/audit"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/customers"
	"tradepos-backend/internal/models"
	"tradepos-backend/internal/outbox"
	"tradepos-backend/internal/shifts"
	"tradepos-backend/internal/stock"
	"tradepos-backend/internal/transactions"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReturnLine struct {
	SaleItemID uint            `json:"sale_item_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

type ReturnRequest struct {
	SaleID       uint               `json:"sale_id"`
	Lines        []ReturnLine       `json:"lines"`
	Reason       string             `json:"reason"`
	RefundMethod models.PaymentType `json:"refund_method"` // cash | card, empty = as paid
}

type returnEvent struct {
	ReturnID      uint            `json:"return_id"`
	SaleID        uint            `json:"sale_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	Items         []eventItem     `json:"items"`
}

// RefundShare is the part of the sale total that the returned goods stand
// for, discount and tax included.
func RefundShare(sale models.Sale, returnedValue decimal.Decimal) decimal.Decimal {
	if !sale.Subtotal.IsPositive() {
		return decimal.Zero
	}
	return returnedValue.Mul(sale.Total).Div(sale.Subtotal).Round(2)
}

// Return takes goods back from a sale: stock comes back in, the money goes
// out as an expense and the customer's loyalty is reduced.
func (s *Service) Return(sess auth.Session, req ReturnRequest) (*models.Return, error) {
	if len(req.Lines) == 0 {
		return nil, apperr.Validation("choose at least one line to return")
	}

	var (
		ret     models.Return
		expense models.Transaction
	)
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		now := s.now()

		var sale models.Sale
		if err := tx.Preload("Items").First(&sale, req.SaleID).Error; err != nil {
			return apperr.FromDB(err, "sale")
		}
		if sale.Status == models.SaleReturned {
			return apperr.Conflict("sale %s is already fully returned", sale.InvoiceNumber)
		}

		method := req.RefundMethod
		if method == "" {
			method = sale.PaymentType
			if method == models.PaymentMixed {
				method = models.PaymentCash
			}
		}
		if method != models.PaymentCash && method != models.PaymentCard {
			return apperr.Validation("refund method must be cash or card")
		}

		// cash comes out of the drawer of whoever refunds it
		var shiftID *uint
		shift, err := shifts.OpenShiftFor(tx, sess.UserID)
		switch {
		case err == nil:
			shiftID = &shift.ID
		case errors.Is(err, apperr.ErrNoOpenShift) && method == models.PaymentCard:
		default:
			return err
		}

		items := make(map[uint]*models.SaleItem, len(sale.Items))
		for i := range sale.Items {
			items[sale.Items[i].ID] = &sale.Items[i]
		}

		returnedValue := decimal.Zero
		ret = models.Return{
			SaleID:       sale.ID,
			ShiftID:      shiftID,
			Reason:       strings.TrimSpace(req.Reason),
			RefundMethod: method,
			CreatedBy:    sess.UserID,
			CreatedAt:    now,
		}
		for i, l := range req.Lines {
			it, ok := items[l.SaleItemID]
			if !ok {
				return apperr.Validation("line %d: item %d is not part of sale %s", i+1, l.SaleItemID, sale.InvoiceNumber)
			}
			if !l.Quantity.IsPositive() {
				return apperr.Validation("line %d: quantity must be greater than zero", i+1)
			}
			left := it.Quantity.Sub(it.ReturnedQuantity)
			if l.Quantity.GreaterThan(left) {
				return apperr.Validation("%s: only %s left to return", it.ProductName, left.String())
			}

			res := tx.Model(&models.SaleItem{}).
				Where("id = ? AND returned_quantity + ? <= quantity", it.ID, l.Quantity).
				Update("returned_quantity", gorm.Expr("returned_quantity + ?", l.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.Conflict("%s was returned in the meantime", it.ProductName)
			}
			it.ReturnedQuantity = it.ReturnedQuantity.Add(l.Quantity)

			lineTotal := l.Quantity.Mul(it.UnitPrice).Round(2)
			returnedValue = returnedValue.Add(lineTotal)
			ret.Items = append(ret.Items, models.ReturnItem{
				SaleItemID: it.ID,
				ProductID:  it.ProductID,
				Quantity:   l.Quantity,
				UnitPrice:  it.UnitPrice,
				LineTotal:  lineTotal,
			})
		}

		fully := true
		for _, it := range sale.Items {
			if it.ReturnedQuantity.LessThan(it.Quantity) {
				fully = false
				break
			}
		}

		var prior []models.Return
		if err := tx.Select("id", "total").Where("sale_id = ?", sale.ID).Find(&prior).Error; err != nil {
			return err
		}
		remaining := sale.Total
		for _, p := range prior {
			remaining = remaining.Sub(p.Total)
		}
		ret.Total = RefundShare(sale, returnedValue)
		if fully || ret.Total.GreaterThan(remaining) {
			// the last return settles rounding left by earlier partial ones
			ret.Total = remaining
		}

		if err := tx.Create(&ret).Error; err != nil {
			return err
		}

		for _, it := range ret.Items {
			_, err := stock.AddStockMovement(tx, stock.Entry{
				ProductID:     it.ProductID,
				Type:          models.MovementIn,
				Quantity:      it.Quantity,
				Date:          now,
				Reason:        "return of " + sale.InvoiceNumber,
				ReferenceType: "return",
				ReferenceID:   ret.ID,
				CreatedBy:     sess.UserID,
			})
			if err != nil {
				return err
			}
		}

		status := models.SalePartiallyReturned
		if fully {
			status = models.SaleReturned
		}
		if err := tx.Model(&models.Sale{}).Where("id = ?", sale.ID).Update("status", status).Error; err != nil {
			return err
		}

		expense = models.Transaction{
			Type:          models.TransactionExpense,
			Amount:        ret.Total,
			Currency:      sale.Currency,
			Category:      models.CategorySalesReturn,
			Date:          now,
			CustomerID:    sale.CustomerID,
			Description:   "Return of " + sale.InvoiceNumber,
			ReferenceType: "return",
			ReferenceID:   ret.ID,
			CreatedBy:     sess.UserID,
		}
		if ret.Total.IsPositive() {
			if err := tx.Create(&expense).Error; err != nil {
				return err
			}
		}

		if sale.CustomerID != nil {
			if err := customers.ReversePurchase(tx, *sale.CustomerID, sale.ID, ret.Total, now); err != nil {
				return err
			}
		}

		if shiftID != nil {
			if err := shifts.AddReturn(tx, *shiftID, ret.Total, method); err != nil {
				return err
			}
		}

		err = audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "return",
			EntityID:    ret.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Return on %s: %s %s (%s)", sale.InvoiceNumber, ret.Total.StringFixed(2), sale.Currency, method),
			After:       ret,
		})
		if err != nil {
			return err
		}

		ev := returnEvent{ReturnID: ret.ID, SaleID: sale.ID, InvoiceNumber: sale.InvoiceNumber, Total: ret.Total, Currency: sale.Currency}
		for _, it := range ret.Items {
			ev.Items = append(ev.Items, eventItem{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		return outbox.Enqueue(tx, outbox.TopicSaleReturned, ev)
	})
	if err != nil {
		return nil, err
	}

	if expense.ID != 0 {
		s.Hub.Publish(transactions.Event{Kind: transactions.EventCreated, Transaction: expense})
	}
	log.Infof("return %d on sale %d: %s", ret.ID, ret.SaleID, ret.Total.StringFixed(2))
	return &ret, nil
}
