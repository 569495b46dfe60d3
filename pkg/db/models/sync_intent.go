package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-client/pkg/enums"
)

// SyncIntent represents a durable intent to push local cart state to the
// remote store, appended in the same transaction as the cart write.
type SyncIntent struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	IntentType   enums.SyncIntentType `gorm:"column:intent_type;not null"`
	Payload      json.RawMessage      `gorm:"column:payload;not null"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	PublishedAt  *time.Time           `gorm:"column:published_at"`
	AttemptCount int                  `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string              `gorm:"column:last_error"`
}

func (SyncIntent) TableName() string {
	return "sync_intents"
}
