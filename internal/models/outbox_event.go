package models

import "time"

// OutboxEvent is written in the same transaction as the business change and
// published to the broker afterwards.
type OutboxEvent struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Topic       string     `gorm:"size:50;not null;index" json:"topic"`
	Payload     string     `gorm:"type:text;not null" json:"payload"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	PublishedAt *time.Time `gorm:"index" json:"published_at"`
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`
	LastError   string     `gorm:"size:500" json:"last_error"`
}
