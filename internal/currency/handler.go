package currency

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// GET /api/currency/rates
func ListRatesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := svc.Rows()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not read rates")
		}
		if len(rows) == 0 {
			return c.JSON(fiber.Map{"source": "fallback", "rates": FallbackRates})
		}
		return c.JSON(fiber.Map{"rates": rows})
	}
}

// POST /api/currency/rates/refresh
func RefreshRatesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rates, err := svc.Refresh(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not store rates")
		}
		return c.JSON(rates)
	}
}

// PUT /api/currency/rates
func SetRateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body Rate
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.From = strings.ToUpper(strings.TrimSpace(body.From))
		body.To = strings.ToUpper(strings.TrimSpace(body.To))
		if len(body.From) != 3 || len(body.To) != 3 || !body.Rate.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "from, to (ISO codes) and a positive rate are required")
		}
		if err := svc.SetManual(body.From, body.To, body.Rate); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not store rate")
		}
		return c.JSON(body)
	}
}

// GET /api/currency/convert?amount=10&from=USD&to=EGP
func ConvertHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		amount, err := decimal.NewFromString(c.Query("amount"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "amount must be a number")
		}
		from, to := strings.ToUpper(c.Query("from")), strings.ToUpper(c.Query("to"))
		if from == "" || to == "" {
			return fiber.NewError(fiber.StatusBadRequest, "from and to are required")
		}

		rates, err := svc.Current()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not read rates")
		}
		converted := ConvertCurrency(amount, from, to, Expand(rates))
		return c.JSON(fiber.Map{
			"amount":    amount,
			"from":      from,
			"to":        to,
			"result":    converted,
			"formatted": FormatCurrency(converted, to),
		})
	}
}
