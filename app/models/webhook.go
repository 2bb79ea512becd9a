package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Webhook event types
const (
	EventProductCreated  = "product.created"
	EventProductUpdated  = "product.updated"
	EventProductDeleted  = "product.deleted"
	EventImportStarted   = "import.started"
	EventImportCompleted = "import.completed"
	EventImportFailed    = "import.failed"
)

// WebhookEventTypes lists every event type a subscription may register for.
var WebhookEventTypes = []string{
	EventProductCreated,
	EventProductUpdated,
	EventProductDeleted,
	EventImportStarted,
	EventImportCompleted,
	EventImportFailed,
}

// Webhook is a registered subscriber endpoint for one event type.
type Webhook struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	URL       string    `gorm:"type:varchar(2048);not null" json:"url" validate:"required,url,max=2048"`
	EventType string    `gorm:"type:varchar(100);not null;index" json:"event_type" validate:"required,oneof=product.created product.updated product.deleted import.started import.completed import.failed"`
	Enabled   bool      `gorm:"type:tinyint(1);default:1;not null" json:"enabled"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Webhook model
func (Webhook) TableName() string {
	return "webhooks"
}

func (w *Webhook) Validate() error {
	v := validator.New()

	return v.Struct(w)
}

// IsValidEventType reports whether s is one of the supported event types.
func IsValidEventType(s string) bool {
	for _, e := range WebhookEventTypes {
		if e == s {
			return true
		}
	}
	return false
}
