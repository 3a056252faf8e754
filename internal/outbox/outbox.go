// Package outbox stores domain events next to the business change that
// caused them and relays them to the message broker afterwards.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tradepos-backend/internal/models"

	"github.com/google/uuid"
	"github.com/op/go-logging"
	"gorm.io/gorm"
)

var log = logging.MustGetLogger("outbox")

const (
	TopicSaleCompleted = "sale.completed"
	TopicSaleReturned  = "sale.returned"
)

// Enqueue stores an event in the caller's transaction.
func Enqueue(tx *gorm.DB, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outbox payload: %w", err)
	}
	ev := models.OutboxEvent{
		ID:      uuid.NewString(),
		Topic:   topic,
		Payload: string(body),
	}
	return tx.Create(&ev).Error
}

// Publisher delivers one event to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev models.OutboxEvent) error
}

type Dispatcher struct {
	DB        *gorm.DB
	Publisher Publisher
	Interval  time.Duration
	BatchSize int
	// events failing this many times are left for an operator
	MaxAttempts int
}

// Run dispatches until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("outbox dispatcher started, every %s", interval)
	for {
		if _, err := d.DispatchOnce(ctx); err != nil {
			log.Errorf("outbox dispatch: %v", err)
		}
		select {
		case <-ctx.Done():
			log.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// DispatchOnce publishes one batch of pending events in creation order and
// returns how many were published.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	batch := d.BatchSize
	if batch <= 0 {
		batch = 100
	}
	maxAttempts := d.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}

	var pending []models.OutboxEvent
	err := d.DB.WithContext(ctx).
		Where("published_at IS NULL AND attempts < ?", maxAttempts).
		Order("created_at asc").
		Limit(batch).
		Find(&pending).Error
	if err != nil {
		return 0, err
	}

	published := 0
	for _, ev := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := d.Publisher.Publish(ctx, ev); err != nil {
			log.Warningf("event %s (%s) not published: %v", ev.ID, ev.Topic, err)
			msg := err.Error()
			if len(msg) > 500 {
				msg = msg[:500]
			}
			if err := d.DB.Model(&models.OutboxEvent{}).Where("id = ?", ev.ID).Updates(map[string]any{
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": msg,
			}).Error; err != nil {
				return published, err
			}
			// keep order: later events wait for this one
			break
		}
		now := time.Now()
		if err := d.DB.Model(&models.OutboxEvent{}).Where("id = ?", ev.ID).Updates(map[string]any{
			"published_at": now,
			"attempts":     gorm.Expr("attempts + 1"),
			"last_error":   "",
		}).Error; err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}

// Pending lists unpublished events, oldest first.
func Pending(db *gorm.DB, limit int) ([]models.OutboxEvent, error) {
	var list []models.OutboxEvent
	err := db.Where("published_at IS NULL").Order("created_at asc").Limit(limit).Find(&list).Error
	return list, err
}
