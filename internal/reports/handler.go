package reports

import (
	"fmt"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/documents"

	"github.com/gofiber/fiber/v2"
)

// period reads ?from=YYYY-MM-DD&to=YYYY-MM-DD (to inclusive). Defaults to
// the current month up to today.
func period(c *fiber.Ctx, now time.Time) (time.Time, time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := today.AddDate(0, 0, 1)

	if v := c.Query("from"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, now.Location())
		if err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "invalid from date")
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, now.Location())
		if err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "invalid to date")
		}
		to = t.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return from, to, fiber.NewError(fiber.StatusBadRequest, "from must not be after to")
	}
	return from, to, nil
}

func build(c *fiber.Ctx, b *Builder) (*Financial, error) {
	from, to, err := period(c, time.Now())
	if err != nil {
		return nil, err
	}
	rep, err := b.Financial(from, to, c.QueryInt("top", 10))
	if err != nil {
		log.Errorf("financial report: %v", err)
		return nil, fiber.NewError(fiber.StatusInternalServerError, "report could not be built")
	}
	return rep, nil
}

// GET /api/reports/financial?from=&to=&top=
func FinancialHandler(b *Builder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rep, err := build(c, b)
		if err != nil {
			return err
		}
		return c.JSON(rep)
	}
}

// GET /api/reports/financial.pdf?from=&to=
func FinancialPDFHandler(b *Builder, r *documents.Renderer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rep, err := build(c, b)
		if err != nil {
			return err
		}
		pdf, err := r.FinancialReport(rep.Document())
		if err != nil {
			log.Errorf("financial report pdf: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "report could not be rendered")
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, "inline; filename="+fileName(rep, "pdf"))
		return c.Send(pdf)
	}
}

// GET /api/reports/financial.xlsx?from=&to=
func FinancialXLSXHandler(b *Builder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rep, err := build(c, b)
		if err != nil {
			return err
		}
		data, err := rep.XLSX()
		if err != nil {
			log.Errorf("financial report xlsx: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "report could not be exported")
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, "attachment; filename="+fileName(rep, "xlsx"))
		return c.Send(data)
	}
}

// GET /api/reports/sales-chart?period=daily&count=7
func SalesChartHandler(b *Builder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		chart, err := b.SalesChart(c.Query("period", "daily"), c.QueryInt("count"), time.Now())
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(chart)
	}
}

func fileName(rep *Financial, ext string) string {
	return fmt.Sprintf("report-%s-%s.%s", rep.From.Format("20060102"), rep.To.AddDate(0, 0, -1).Format("20060102"), ext)
}
