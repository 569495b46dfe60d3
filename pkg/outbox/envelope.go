package outbox

import (
	"encoding/json"
	"time"
)

// IntentEnvelope is the stable payload structure stored in sync_intents.
type IntentEnvelope struct {
	Version    int             `json:"version"`
	IntentID   string          `json:"intentId"`
	OccurredAt time.Time       `json:"occurredAt"`
	UserID     string          `json:"userId,omitempty"`
	Data       json.RawMessage `json:"data"`
}
