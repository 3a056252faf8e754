package transactions

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/documents"
	"tradepos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func idParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid transaction id")
	}
	return uint(id), nil
}

func dateQuery(c *fiber.Ctx, key string, addDay bool) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+key+" date")
	}
	if addDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

// GET /api/transactions?type=&category=&currency=&supplier_id=&customer_id=&from=&to=&limit=&offset=
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := dateQuery(c, "from", false)
		if err != nil {
			return err
		}
		to, err := dateQuery(c, "to", true)
		if err != nil {
			return err
		}
		list, total, err := List(svc.DB, Filter{
			Type:       models.TransactionType(c.Query("type")),
			Category:   c.Query("category"),
			Currency:   c.Query("currency"),
			SupplierID: uint(c.QueryInt("supplier_id")),
			CustomerID: uint(c.QueryInt("customer_id")),
			From:       from,
			To:         to,
			Limit:      c.QueryInt("limit"),
			Offset:     c.QueryInt("offset"),
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list transactions")
		}
		return c.JSON(fiber.Map{"total": total, "items": list})
	}
}

// GET /api/transactions/:id
func GetHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		var t models.Transaction
		if err := svc.DB.First(&t, id).Error; err != nil {
			return apperr.HTTP(apperr.FromDB(err, "transaction"))
		}
		return c.JSON(t)
	}
}

// POST /api/transactions
func CreateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body Input
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		t, err := svc.Create(sess, body)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	}
}

// PUT /api/transactions/:id
func UpdateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		var body Input
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		t, err := svc.Update(sess, id, body)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(t)
	}
}

// DELETE /api/transactions/:id
func DeleteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		if err := svc.Delete(sess, id); err != nil {
			return apperr.HTTP(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/transactions/:id/receipt.pdf
func ReceiptHandler(svc *Service, r *documents.Renderer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		var t models.Transaction
		if err := svc.DB.First(&t, id).Error; err != nil {
			return apperr.HTTP(apperr.FromDB(err, "transaction"))
		}
		pdf, err := r.TransactionReceipt(t)
		if err != nil {
			log.Errorf("transaction %d receipt: %v", id, err)
			return fiber.NewError(fiber.StatusInternalServerError, "receipt could not be rendered")
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=transaction-%d.pdf", id))
		return c.Send(pdf)
	}
}

const heartbeat = 20 * time.Second

// GET /api/transactions/stream (server-sent events)
func StreamHandler(hub *Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		events, cancel := hub.Subscribe()
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer cancel()
			ticker := time.NewTicker(heartbeat)
			defer ticker.Stop()

			fmt.Fprint(w, ": connected\n\n")
			if err := w.Flush(); err != nil {
				return
			}
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return
					}
					data, err := json.Marshal(ev)
					if err != nil {
						continue
					}
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
				case <-ticker.C:
					fmt.Fprint(w, ": ping\n\n")
				}
				// a failed flush means the client went away
				if err := w.Flush(); err != nil {
					return
				}
			}
		})
		return nil
	}
}
