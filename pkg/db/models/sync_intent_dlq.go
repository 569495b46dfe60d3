package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-client/pkg/enums"
)

// SyncIntentDLQ records intents the sync worker gave up on, kept for
// inspection rather than silently dropped.
type SyncIntentDLQ struct {
	ID           int64                    `gorm:"column:id;primaryKey;autoIncrement"`
	IntentID     uuid.UUID                `gorm:"column:intent_id;type:uuid;not null"`
	IntentType   enums.SyncIntentType     `gorm:"column:intent_type;not null"`
	Payload      json.RawMessage          `gorm:"column:payload;not null"`
	ErrorReason  enums.SyncDLQErrorReason `gorm:"column:error_reason;not null"`
	ErrorMessage *string                  `gorm:"column:error_message"`
	AttemptCount int                      `gorm:"column:attempt_count;not null"`
	FailedAt     time.Time                `gorm:"column:failed_at;not null"`
}

func (SyncIntentDLQ) TableName() string {
	return "sync_intent_dlq"
}
