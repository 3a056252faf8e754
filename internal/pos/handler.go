package pos

import (
	"fmt"
	"strconv"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/documents"
	"tradepos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func idParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid sale id")
	}
	return uint(id), nil
}

// POST /api/pos/checkout
// An Idempotency-Key header (or idempotency_key field) makes retries safe.
func CheckoutHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CheckoutRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.IdempotencyKey == "" {
			body.IdempotencyKey = c.Get("Idempotency-Key")
		}
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}

		sale, replayed, err := svc.Checkout(sess, body)
		if err != nil {
			return apperr.HTTP(err)
		}
		if replayed {
			c.Set("Idempotent-Replayed", "true")
			return c.JSON(sale)
		}
		return c.Status(fiber.StatusCreated).JSON(sale)
	}
}

// POST /api/pos/totals
// Prices a cart without saving anything.
func TotalsHandler(db *gorm.DB, svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CheckoutRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		lines, err := validateLines(db, sess, body.Lines)
		if err != nil {
			return apperr.HTTP(err)
		}
		priced := make([]PricedLine, len(lines))
		for i, l := range lines {
			priced[i] = PricedLine{Quantity: l.quantity, UnitPrice: l.price}
		}
		rate := svc.TaxRate
		if body.TaxRate != nil {
			rate = *body.TaxRate
		}
		totals, err := CalculateTotals(priced, body.DiscountAmount, body.DiscountPercent, rate)
		if err != nil {
			return apperr.HTTP(err)
		}
		resp := fiber.Map{"totals": totals}
		if body.CashAmount.IsPositive() || body.CardAmount.IsPositive() {
			if split, err := SplitPayment(totals.Total, body.CashAmount, body.CardAmount); err == nil {
				resp["payment"] = split
			} else {
				resp["payment_error"] = err.Error()
			}
		}
		return c.JSON(resp)
	}
}

// POST /api/pos/returns
func ReturnHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ReturnRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		ret, err := svc.Return(sess, body)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.Status(fiber.StatusCreated).JSON(ret)
	}
}

// GET /api/sales?from=&to=&shift_id=&customer_id=&status=&invoice=&limit=&offset=
func ListSalesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		f := SaleFilter{
			ShiftID:    uint(c.QueryInt("shift_id")),
			CustomerID: uint(c.QueryInt("customer_id")),
			CashierID:  uint(c.QueryInt("cashier_id")),
			Status:     models.SaleStatus(c.Query("status")),
			Invoice:    c.Query("invoice"),
			Limit:      c.QueryInt("limit"),
			Offset:     c.QueryInt("offset"),
		}
		if sess.Role == models.RoleCashier {
			f.CashierID = sess.UserID
		}
		if v := c.Query("from"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid from date")
			}
			f.From = &t
		}
		if v := c.Query("to"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid to date")
			}
			t = t.AddDate(0, 0, 1)
			f.To = &t
		}

		list, total, err := ListSales(db, f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list sales")
		}
		return c.JSON(fiber.Map{"total": total, "items": list})
	}
}

// GET /api/sales/:id
func GetSaleHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		d, err := GetSale(db, id)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(d)
	}
}

func salePDF(db *gorm.DB, render func(models.Sale) ([]byte, error), kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		d, err := GetSale(db, id)
		if err != nil {
			return apperr.HTTP(err)
		}
		pdf, err := render(d.Sale)
		if err != nil {
			log.Errorf("sale %d %s: %v", id, kind, err)
			return fiber.NewError(fiber.StatusInternalServerError, kind+" could not be rendered")
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%s-%s.pdf", kind, d.InvoiceNumber))
		return c.Send(pdf)
	}
}

// GET /api/sales/:id/receipt.pdf (80 mm thermal)
func ReceiptHandler(db *gorm.DB, r *documents.Renderer) fiber.Handler {
	return salePDF(db, r.ThermalReceipt, "receipt")
}

// GET /api/sales/:id/invoice.pdf
func InvoicePDFHandler(db *gorm.DB, r *documents.Renderer) fiber.Handler {
	return salePDF(db, r.SaleInvoice, "invoice")
}
